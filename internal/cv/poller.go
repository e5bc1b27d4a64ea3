package cv

import (
	"context"
	"time"

	"github.com/pared2021/honkai-star-rail-automation-sub001/internal/logging"
)

// minPollInterval keeps a zero interval from spinning
const minPollInterval = time.Millisecond

// PollState is a step of the poll loop
type PollState int

const (
	PollIdle PollState = iota
	PollAttempting
	PollRetrying
	PollSucceeded
	PollTimedOut
	PollCancelled
)

func (s PollState) String() string {
	switch s {
	case PollIdle:
		return "idle"
	case PollAttempting:
		return "attempting"
	case PollRetrying:
		return "retrying"
	case PollSucceeded:
		return "succeeded"
	case PollTimedOut:
		return "timed_out"
	case PollCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Attempt is one recognition try. An error counts as a transient miss.
type Attempt func(ctx context.Context) (RecognitionResult, error)

// PollOutcome is the final state of a poll
type PollOutcome struct {
	Result   RecognitionResult
	State    PollState
	Attempts int
	Elapsed  time.Duration
}

// Poller repeats an attempt every Interval until it succeeds or Timeout elapses.
// A zero Timeout makes exactly one attempt.
type Poller struct {
	Interval time.Duration
	Timeout  time.Duration
	Logger   *logging.Logger

	now func() time.Time
}

// NewPoller creates a poller
func NewPoller(interval, timeout time.Duration, logger *logging.Logger) *Poller {
	return &Poller{Interval: interval, Timeout: timeout, Logger: logger}
}

// Run drives the poll state machine to a terminal state. The result is
// NotFound unless the final state is PollSucceeded.
func (p *Poller) Run(ctx context.Context, attempt Attempt) PollOutcome {
	now := p.now
	if now == nil {
		now = time.Now
	}
	interval := p.Interval
	if interval < minPollInterval {
		interval = minPollInterval
	}

	start := now()
	deadline := start.Add(p.Timeout)
	out := PollOutcome{Result: NotFound(), State: PollIdle}

	for {
		switch out.State {
		case PollIdle:
			out.State = PollAttempting

		case PollAttempting:
			out.Attempts++
			result, err := attempt(ctx)
			switch {
			case err != nil:
				p.warn("Poll attempt failed", err, out.Attempts)
			case result.Found:
				out.Result = result
				out.State = PollSucceeded
				continue
			}

			if ctx.Err() != nil {
				out.State = PollCancelled
			} else if !now().Before(deadline) {
				out.State = PollTimedOut
			} else {
				out.State = PollRetrying
			}

		case PollRetrying:
			wait := interval
			if remaining := deadline.Sub(now()); remaining < wait {
				wait = remaining
			}
			if !p.sleep(ctx, wait) {
				out.State = PollCancelled
				continue
			}
			if !now().Before(deadline) {
				out.State = PollTimedOut
				continue
			}
			out.State = PollAttempting

		default:
			out.Elapsed = now().Sub(start)
			return out
		}
	}
}

// sleep waits on a timer; false means ctx was cancelled first
func (p *Poller) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (p *Poller) warn(message string, err error, attempt int) {
	if p.Logger == nil {
		return
	}
	p.Logger.WarnWithContext(message, map[string]interface{}{
		"attempt": attempt,
		"error":   err.Error(),
	})
}
