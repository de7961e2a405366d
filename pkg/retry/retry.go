// Package retry re-runs operations that fail with transient errors, backing
// off exponentially between attempts.
//
// Only errors classified as transient by the errors package are retried;
// invalid and fatal errors, and the caller's own cancellation, end the loop
// at once.
package retry

import (
	"context"
	stderrors "errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/tledoux/spar-mets-viewer/errors"
)

var (
	randMu     sync.Mutex
	randSource = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// Config describes the backoff schedule.
type Config struct {
	MaxAttempts  int           // total attempts, values below 1 mean a single attempt
	InitialDelay time.Duration // delay before the second attempt
	MaxDelay     time.Duration // upper bound of any delay
	Multiplier   float64       // growth factor between delays
	Jitter       bool          // add up to 25% random delay
}

// DefaultConfig retries a lookup twice within roughly a second.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// Once runs the operation a single time.
func Once() Config {
	return Config{MaxAttempts: 1}
}

// Validate reports schedule values that cannot be honoured.
func (c Config) Validate() error {
	switch {
	case c.InitialDelay < 0, c.MaxDelay < 0:
		return invalid("delays cannot be negative")
	case c.Multiplier < 0:
		return invalid("multiplier cannot be negative")
	case c.MaxDelay > 0 && c.MaxDelay < c.InitialDelay:
		return invalid("max delay must be >= initial delay")
	}
	return nil
}

func invalid(msg string) error {
	return errors.WrapInvalid(fmt.Errorf("%w: %s", errors.ErrInvalidConfig, msg), "retry", "Validate", "check schedule")
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 1
	}
	if c.InitialDelay == 0 {
		c.InitialDelay = 100 * time.Millisecond
	}
	if c.MaxDelay == 0 {
		c.MaxDelay = 5 * time.Second
	}
	if c.Multiplier == 0 {
		c.Multiplier = 2.0
	}
	if c.Multiplier > 1000 {
		c.Multiplier = 1000
	}
	return c
}

// Retryable reports whether err deserves another attempt.
func Retryable(err error) bool {
	if err == nil ||
		stderrors.Is(err, context.Canceled) ||
		stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errors.IsTransient(err)
}

// Do runs fn until it succeeds, returns a non-retryable error, runs out of
// attempts or ctx is done. The last error is returned unwrapped so its
// classification survives.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg = cfg.withDefaults()

	delay := cfg.InitialDelay
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil || attempt >= cfg.MaxAttempts || !Retryable(err) {
			return err
		}

		timer := time.NewTimer(jittered(delay, cfg.Jitter))
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}

		next := float64(delay) * cfg.Multiplier
		if next > float64(cfg.MaxDelay) {
			delay = cfg.MaxDelay
		} else {
			delay = time.Duration(next)
		}
	}
}

// DoWithResult is Do for operations that produce a value.
func DoWithResult[T any](ctx context.Context, cfg Config, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := Do(ctx, cfg, func(ctx context.Context) error {
		var innerErr error
		result, innerErr = fn(ctx)
		return innerErr
	})
	return result, err
}

func jittered(delay time.Duration, enabled bool) time.Duration {
	if !enabled || delay < 4 {
		return delay
	}
	randMu.Lock()
	defer randMu.Unlock()
	return delay + time.Duration(randSource.Int63n(int64(delay/4)))
}
