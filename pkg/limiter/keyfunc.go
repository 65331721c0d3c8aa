package limiter

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Key generators. Each returns a namespaced key ("ip:…", "key:…", "user:…")
// so that different identity signals never collide in a shared store.

// ErrNoKey is returned when a generator cannot derive an identity from the
// request (for example a token-based generator on an anonymous request).
var ErrNoKey = errors.New("limiter: no key could be derived from request")

// ClientIP extracts the originating client IP: the first X-Forwarded-For
// entry when trustProxy is set, then X-Real-IP, then RemoteAddr.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			if ip := strings.TrimSpace(parts[0]); ip != "" {
				return ip
			}
		}
		if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

// IPKey keys requests by client IP.
func IPKey(trustProxy bool) KeyFunc {
	return func(_ context.Context, r *http.Request) (string, error) {
		return "ip:" + ClientIP(r, trustProxy), nil
	}
}

// HeaderKey keys requests by the value of header (an API key header,
// typically). Requests without the header fall back to the client IP so that
// anonymous traffic is still limited.
func HeaderKey(header string, trustProxy bool) KeyFunc {
	return func(_ context.Context, r *http.Request) (string, error) {
		if v := strings.TrimSpace(r.Header.Get(header)); v != "" {
			return "key:" + v, nil
		}
		return "ip:" + ClientIP(r, trustProxy), nil
	}
}

// JWTSubjectKey keys requests by the subject claim of a Bearer token signed
// with the given HMAC secret. Requests without a valid token get ErrNoKey;
// compose with HeaderKey or IPKey when anonymous traffic must be limited too.
func JWTSubjectKey(secret []byte) KeyFunc {
	return func(_ context.Context, r *http.Request) (string, error) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			return "", ErrNoKey
		}
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return "", ErrNoKey
		}
		token, err := jwt.Parse(parts[1], func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			return "", ErrNoKey
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return "", ErrNoKey
		}
		sub, err := claims.GetSubject()
		if err != nil || sub == "" {
			return "", ErrNoKey
		}
		return "user:" + sub, nil
	}
}

// FirstKey tries each generator in order and returns the first key derived.
// Generators that return ErrNoKey are skipped; any other error is surfaced.
func FirstKey(fns ...KeyFunc) KeyFunc {
	return func(ctx context.Context, r *http.Request) (string, error) {
		for _, fn := range fns {
			key, err := fn(ctx, r)
			if errors.Is(err, ErrNoKey) {
				continue
			}
			if err != nil {
				return "", err
			}
			return key, nil
		}
		return "", ErrNoKey
	}
}
