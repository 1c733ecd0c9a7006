package actors

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Retry runs op under the shared outbound-call policy: bounded exponential
// backoff, then the last error is surfaced to the caller.
func Retry(op func() error) error {
	return RetryWithPolicy(op, defaultPolicy())
}

// RetryWithPolicy exists so tests can inject a fast policy.
func RetryWithPolicy(op func() error, policy backoff.BackOff) error {
	return backoff.Retry(op, policy)
}

func defaultPolicy() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = time.Minute
	attempts := uint64(4)
	if conf != nil {
		if configured := conf.GetUint64("retryAttempts"); configured > 0 {
			attempts = configured
		}
	}
	return backoff.WithMaxRetries(b, attempts-1)
}
