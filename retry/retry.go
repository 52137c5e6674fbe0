// Package retry runs an operation with bounded exponential backoff.
//
// Only errors accepted by the caller's predicate are retried; any other error
// is returned unchanged after the first attempt. The delay before retry n
// (counting from 1) is InitialDelay * Multiplier^(n-1), so with the default
// policy the delays are 500ms, 750ms, 1.125s, ... and the 10th failure is
// returned to the caller.
//
//	err := retry.Do(ctx, retry.DefaultPolicy, func(ctx context.Context) error {
//	    return ops.ExecuteSQLFlush(ctx, stmts)
//	}, sqlgraph.IsSerializationFailure)
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy describes how often and how fast an operation is retried.
type Policy struct {
	// Attempts is the total number of attempts, including the first one.
	Attempts int
	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration
	// Multiplier scales the delay after every retry.
	Multiplier float64
	// MaxDelay caps a single delay. Zero means no cap.
	MaxDelay time.Duration
}

// DefaultPolicy makes 10 attempts, starting at 500ms and growing by 1.5x.
var DefaultPolicy = Policy{
	Attempts:     10,
	InitialDelay: 500 * time.Millisecond,
	Multiplier:   1.5,
}

// Validate reports an error if the policy cannot be used.
func (p Policy) Validate() error {
	switch {
	case p.Attempts < 1:
		return fmt.Errorf("retry: attempts must be at least 1, got %d", p.Attempts)
	case p.InitialDelay < 0:
		return fmt.Errorf("retry: negative initial delay %s", p.InitialDelay)
	case p.Multiplier < 1:
		return fmt.Errorf("retry: multiplier must be at least 1, got %g", p.Multiplier)
	case p.MaxDelay < 0:
		return fmt.Errorf("retry: negative max delay %s", p.MaxDelay)
	}
	return nil
}

// Delays returns the sleeps between attempts when every attempt fails.
func (p Policy) Delays() []time.Duration {
	if p.Attempts < 2 {
		return nil
	}
	b := p.backOff()
	delays := make([]time.Duration, 0, p.Attempts-1)
	for range p.Attempts - 1 {
		delays = append(delays, b.NextBackOff())
	}
	return delays
}

// backOff returns the exponential schedule of the policy without jitter.
func (p Policy) backOff() *backoff.ExponentialBackOff {
	maxDelay := p.MaxDelay
	if maxDelay == 0 {
		maxDelay = time.Duration(math.MaxInt64)
	}
	b := &backoff.ExponentialBackOff{
		InitialInterval:     p.InitialDelay,
		RandomizationFactor: 0,
		Multiplier:          p.Multiplier,
		MaxInterval:         maxDelay,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	return b
}

// Option configures a single Do call.
type Option func(*config)

type config struct {
	notify func(err error, delay time.Duration)
	timer  backoff.Timer
	log    *slog.Logger
}

// WithNotify sets a function called before every sleep with the error that
// caused the retry and the delay.
func WithNotify(fn func(err error, delay time.Duration)) Option {
	return func(c *config) {
		c.notify = fn
	}
}

// WithTimer sets the timer used to sleep between attempts.
func WithTimer(t backoff.Timer) Option {
	return func(c *config) {
		c.timer = t
	}
}

// WithLogger logs every retry at warn level.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.log = l
	}
}

// Do calls op until it succeeds, returns an error rejected by retryable, or
// the policy's attempts are exhausted. The last error is returned unchanged.
// The sleep between attempts is interrupted when ctx is done, in which case
// the context error is returned.
func Do(ctx context.Context, p Policy, op func(context.Context) error, retryable func(error) bool, opts ...Option) error {
	if err := p.Validate(); err != nil {
		return err
	}
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	attempt := 1
	operation := func() error {
		err := op(ctx)
		if err == nil || IsPermanent(err) {
			return err
		}
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, delay time.Duration) {
		if cfg.log != nil {
			cfg.log.WarnContext(ctx, "retrying operation",
				"attempt", attempt, "max_attempts", p.Attempts, "delay", delay, "error", err)
		}
		if cfg.notify != nil {
			cfg.notify(err, delay)
		}
		attempt++
	}
	b := backoff.WithContext(backoff.WithMaxRetries(p.backOff(), uint64(p.Attempts-1)), ctx)
	return backoff.RetryNotifyWithTimer(operation, b, notify, cfg.timer)
}

// Permanent wraps err so Do returns it without retrying, regardless of the
// retryable predicate.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *backoff.PermanentError
	return errors.As(err, &p)
}
