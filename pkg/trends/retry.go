package trends

import (
	"context"
	"errors"
	"time"

	"keyword-go/pkg/logger"
)

// Clock abstracts time for the retry loop so tests can run without real
// sleeps.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type retryState int

const (
	stateAttempt retryState = iota
	stateWait
	stateFailed
)

// Retrier runs an operation through an explicit attempt/wait state machine
// with exponential backoff. Transient failures are retried up to
// maxAttempts; timeouts get a single retry; invalid requests fail
// immediately.
type Retrier struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	clock       Clock
	log         *logger.Logger
}

func NewRetrier(maxAttempts int, baseDelay, maxDelay time.Duration) *Retrier {
	return NewRetrierWithClock(maxAttempts, baseDelay, maxDelay, realClock{})
}

func NewRetrierWithClock(maxAttempts int, baseDelay, maxDelay time.Duration, clock Clock) *Retrier {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}
	return &Retrier{
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		maxDelay:    maxDelay,
		clock:       clock,
		log:         logger.GetLogger().WithField("component", "retrier"),
	}
}

// Do executes fn through the state machine. No lock or resource is held
// while waiting between attempts.
func (r *Retrier) Do(ctx context.Context, fn func() error) error {
	state := stateAttempt
	attempt := 0
	var lastErr error

	for {
		switch state {
		case stateAttempt:
			if err := ctx.Err(); err != nil {
				return err
			}
			attempt++
			err := fn()
			if err == nil {
				return nil
			}
			lastErr = err

			var fe *FetchError
			if errors.As(err, &fe) && !fe.Retryable() {
				return err
			}
			if attempt >= r.allowedAttempts(err) {
				state = stateFailed
			} else {
				state = stateWait
			}

		case stateWait:
			delay := r.backoff(attempt)
			r.log.WithFields(map[string]interface{}{
				"attempt": attempt,
				"delay":   delay.String(),
			}).Debug("Retrying after backoff")
			if err := r.clock.Sleep(ctx, delay); err != nil {
				return err
			}
			state = stateAttempt

		case stateFailed:
			return lastErr
		}
	}
}

// allowedAttempts caps timeouts at one retry; everything else uses the
// configured attempt budget.
func (r *Retrier) allowedAttempts(err error) int {
	if KindOf(err) == KindTimeout {
		if r.maxAttempts < 2 {
			return r.maxAttempts
		}
		return 2
	}
	return r.maxAttempts
}

// backoff doubles the base delay per completed attempt, capped at maxDelay.
func (r *Retrier) backoff(attempt int) time.Duration {
	delay := r.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= r.maxDelay {
			return r.maxDelay
		}
	}
	if delay > r.maxDelay {
		return r.maxDelay
	}
	return delay
}
