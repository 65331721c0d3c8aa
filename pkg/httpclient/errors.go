package httpclient

import (
	"fmt"
	"net/http"

	"github.com/stagedoor/apikit/pkg/envelope"
)

// kindForStatus maps an HTTP status to the error taxonomy. Statuses below
// 500 are terminal for the retry loop; 5xx and transport failures are
// retryable.
func kindForStatus(status int) envelope.Kind {
	switch {
	case status == http.StatusUnauthorized:
		return envelope.KindAuthentication
	case status == http.StatusForbidden:
		return envelope.KindAuthorization
	case status == http.StatusNotFound:
		return envelope.KindNotFound
	case status == http.StatusTooManyRequests:
		return envelope.KindRateLimit
	case status >= 400 && status < 500:
		return envelope.KindValidation
	default:
		return envelope.KindServerError
	}
}

func statusError(method, url string, status int) *envelope.Error {
	return envelope.New(kindForStatus(status),
		fmt.Sprintf("%s %s returned status %d", method, url, status))
}

func transportError(method, url string, cause error) *envelope.Error {
	return envelope.Wrap(envelope.KindExternalService,
		fmt.Sprintf("%s %s failed", method, url), cause)
}
