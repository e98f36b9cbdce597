// Package retry drives HTTP attempts under a retry budget and an optional
// absolute deadline shared across a whole logical operation.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/local/whisperer/internal/metrics"
	"github.com/local/whisperer/internal/transport"
)

// ErrDeadlineExhausted is returned when the budget deadline passed before
// any attempt produced a response or a transport error.
var ErrDeadlineExhausted = errors.New("retry budget deadline exhausted")

// Budget bounds the attempts of one logical operation. A zero Deadline
// means no wall-clock bound. MaxRetries of 0 disables retrying: exactly
// one attempt is made.
type Budget struct {
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
	Deadline   time.Time
}

// AttemptFunc performs one HTTP attempt with the effective timeout the
// engine computed for it.
type AttemptFunc func(ctx context.Context, timeout time.Duration) (*transport.Envelope, error)

// Retryable reports whether an HTTP status is worth retrying: rate limits
// and server faults are, every other 4xx is a definitive client error.
func Retryable(status int) bool {
	return status == 429 || status >= 500
}

// Engine executes attempts for a single endpoint under a Budget. The
// clock and sleep functions are injectable so the attempt/deadline
// contract can be tested without real sleeps.
type Engine struct {
	budget   Budget
	endpoint string
	log      zerolog.Logger
	now      func() time.Time
	sleep    func(time.Duration)
}

func New(budget Budget, endpoint string, log zerolog.Logger) *Engine {
	return &Engine{
		budget:   budget,
		endpoint: endpoint,
		log:      log,
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// WithClock overrides the wall clock and sleep, for tests.
func (e *Engine) WithClock(now func() time.Time, sleep func(time.Duration)) *Engine {
	e.now = now
	e.sleep = sleep
	return e
}

// Do runs attempt until it yields a non-retryable envelope, the budget is
// exhausted, or the deadline passes.
//
// Exhaustion semantics: if the last attempt failed at the transport level
// the transport error propagates; if it produced a retryable HTTP status
// (429/5xx) the final envelope is returned so the caller can surface the
// decoded error body.
func (e *Engine) Do(ctx context.Context, timeout time.Duration, attempt AttemptFunc) (*transport.Envelope, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = e.budget.MinWait
	bo.MaxInterval = e.budget.MaxWait
	bo.MaxElapsedTime = 0
	bo.Reset()

	var lastEnv *transport.Envelope
	var lastErr error

	for i := 0; i <= e.budget.MaxRetries; i++ {
		eff := timeout
		if !e.budget.Deadline.IsZero() {
			remaining := e.budget.Deadline.Sub(e.now())
			if remaining <= 0 {
				e.log.Warn().
					Str("endpoint", e.endpoint).
					Int("attempts", i).
					Msg("deadline reached, giving up")
				return e.finish(lastEnv, lastErr, ErrDeadlineExhausted)
			}
			if remaining < eff {
				eff = remaining
			}
		}
		if err := ctx.Err(); err != nil {
			return e.finish(lastEnv, lastErr, err)
		}

		env, err := attempt(ctx, eff)
		if err != nil {
			lastEnv, lastErr = nil, err
			e.log.Warn().
				Str("endpoint", e.endpoint).
				Int("attempt", i+1).
				Err(err).
				Msg("attempt failed at transport level")
		} else {
			lastEnv, lastErr = env, nil
			if !Retryable(env.StatusCode) {
				return env, nil
			}
			e.log.Warn().
				Str("endpoint", e.endpoint).
				Int("attempt", i+1).
				Int("status", env.StatusCode).
				Msg("retryable status from service")
		}

		if i == e.budget.MaxRetries {
			break
		}
		wait := bo.NextBackOff()
		if wait > e.budget.MaxWait {
			wait = e.budget.MaxWait
		}
		metrics.IncRetry(e.endpoint)
		e.sleep(wait)
	}

	return e.finish(lastEnv, lastErr, ErrDeadlineExhausted)
}

// finish applies the exhaustion policy: last response wins over last
// transport error, which wins over the fallback error.
func (e *Engine) finish(env *transport.Envelope, lastErr, fallback error) (*transport.Envelope, error) {
	if env != nil {
		return env, nil
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fallback
}
