package resilience

import (
	"time"
)

// FixedInterval returns a config that makes at most maxAttempts attempts,
// waiting exactly interval between them. Non-positive values fall back to
// the defaults.
func FixedInterval(maxAttempts int, interval time.Duration) RetryConfig {
	cfg := DefaultRetryConfig()
	if maxAttempts > 0 {
		cfg.MaxAttempts = maxAttempts
	}
	if interval >= 0 {
		cfg.InitialBackoff = interval
		cfg.MaxBackoff = max(interval, time.Millisecond)
	}
	cfg.Multiplier = 1
	cfg.JitterFraction = 0
	return cfg
}
