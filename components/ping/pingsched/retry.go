package pingsched

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/open-control-systems/ping-monitor/components/status"
)

// RetryParams configures store write retries.
type RetryParams struct {
	// MaxRetries - how many times a failed write is retried.
	MaxRetries uint64 `yaml:"max_retries"`

	// InitialInterval - delay before the first retry, doubled on each attempt.
	InitialInterval time.Duration `yaml:"initial_interval"`

	// MaxInterval - upper bound for the delay between retries.
	MaxInterval time.Duration `yaml:"max_interval"`
}

// DefaultRetryParams returns the default retry configuration.
func DefaultRetryParams() RetryParams {
	return RetryParams{
		MaxRetries:      3,
		InitialInterval: time.Millisecond * 100,
		MaxInterval:     time.Second,
	}
}

// retry runs op until it succeeds, the retries are exhausted, or ctx is canceled.
//
// Remarks:
//   - Version conflicts and missing data aren't retried, the caller has to re-read.
func retry(ctx context.Context, params RetryParams, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = params.InitialInterval
	b.MaxInterval = params.MaxInterval
	b.MaxElapsedTime = 0

	return backoff.Retry(func() error {
		err := op()
		if err != nil && (errors.Is(err, status.StatusStale) ||
			errors.Is(err, status.StatusNoData) ||
			errors.Is(err, status.StatusConflict)) {
			return backoff.Permanent(err)
		}

		return err
	}, backoff.WithContext(backoff.WithMaxRetries(b, params.MaxRetries), ctx))
}
