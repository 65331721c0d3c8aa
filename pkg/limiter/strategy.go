package limiter

import (
	"errors"
	"strings"
)

// StrategyName identifies one of the built-in limiting algorithms.
type StrategyName string

const (
	StrategyFixedWindow   StrategyName = "fixed_window"
	StrategySlidingWindow StrategyName = "sliding_window"
	StrategyTokenBucket   StrategyName = "token_bucket"
)

// ParseStrategy normalizes a user-supplied algorithm name. It accepts
// snake_case and collapsed spellings in any case.
func ParseStrategy(name string) (StrategyName, error) {
	if name == "" {
		return "", errors.New("strategy name is required")
	}
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	normalized = strings.ReplaceAll(normalized, " ", "_")
	switch normalized {
	case "fixed_window", "fixedwindow":
		return StrategyFixedWindow, nil
	case "sliding_window", "slidingwindow":
		return StrategySlidingWindow, nil
	case "token_bucket", "tokenbucket":
		return StrategyTokenBucket, nil
	default:
		return "", errors.New("unsupported strategy: " + name)
	}
}
