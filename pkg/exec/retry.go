package exec

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// CallFunc is one venue invocation: it returns the raw ack payload, or an
// error for unrecoverable transport failures.
type CallFunc func(ctx context.Context) (map[string]interface{}, error)

// RunWithRetry invokes fn until its payload classifies ok, a non-transient
// failure appears, or 1+extra attempts are exhausted. Backoff between
// attempts is constant. Successful calls are never re-sent and permanent
// failures are never retried; only known-transient venue conditions are.
func RunWithRetry(ctx context.Context, fn CallFunc, extra int, backoff time.Duration, logger *logrus.Logger) (map[string]interface{}, bool, int) {
	if extra < 0 {
		extra = 0
	}
	maxAttempts := 1 + extra

	var result map[string]interface{}
	attempts := 0
	for attempts < maxAttempts {
		attempts++
		payload, err := fn(ctx)
		if err != nil {
			// Driver errors fold into the failure payload so the same
			// classifier covers both shapes.
			payload = map[string]interface{}{"error": err.Error()}
		}
		result = payload
		if AckOK(payload) {
			return result, true, attempts
		}
		if !IsTransient(payload) || attempts >= maxAttempts {
			break
		}
		logger.WithFields(logrus.Fields{
			"attempt": attempts,
			"backoff": backoff.String(),
		}).Warn("transient venue error, retrying")
		select {
		case <-ctx.Done():
			return result, false, attempts
		case <-time.After(backoff):
		}
	}
	return result, false, attempts
}
