package engine

import (
	"context"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// timerSlice bounds how long either timer task sleeps before re-checking
// cancellation, so a cancel is observed within one slice.
const timerSlice = 500 * time.Millisecond

// revealGrace is how long the owning loop waits after cancelling the timer
// before editing in the reveal, so an in-flight countdown edit cannot land
// on top of it.
const revealGrace = 100 * time.Millisecond

// questionTimer runs the two per-question tasks: the authoritative deadline
// and the countdown display. Both share one cancellation flag; cancellation
// is monotonic and observed within one slice.
type questionTimer struct {
	clock     Clock
	presenter Presenter
	log       *slog.Logger

	handle  MessageHandle
	start   time.Time
	timeout time.Duration

	cancelled atomic.Bool
	expired   chan struct{}
	group     *errgroup.Group
}

// startQuestionTimer launches the deadline and display tasks for one
// question. The returned timer's Expired channel closes on natural expiry;
// Cancel stops both tasks early; Wait joins them.
func startQuestionTimer(ctx context.Context, clock Clock, presenter Presenter, log *slog.Logger, handle MessageHandle, start time.Time, timeout time.Duration) *questionTimer {
	t := &questionTimer{
		clock:     clock,
		presenter: presenter,
		log:       log,
		handle:    handle,
		start:     start,
		timeout:   timeout,
		expired:   make(chan struct{}),
	}

	g, gctx := errgroup.WithContext(ctx)
	t.group = g
	g.Go(func() error { return t.runDeadline(gctx) })
	g.Go(func() error { return t.runDisplay(gctx) })
	return t
}

// Expired closes when the deadline passes without cancellation.
func (t *questionTimer) Expired() <-chan struct{} { return t.expired }

// Cancel stops both tasks. Safe to call more than once.
func (t *questionTimer) Cancel() { t.cancelled.Store(true) }

// Wait blocks until both tasks have exited.
func (t *questionTimer) Wait() error { return t.group.Wait() }

// runDeadline is the authoritative deadline task. It sleeps in short slices
// so cancellation is prompt, and closes expired on natural expiry.
func (t *questionTimer) runDeadline(ctx context.Context) error {
	deadline := t.start.Add(t.timeout)
	for {
		if t.cancelled.Load() {
			return nil
		}
		remaining := deadline.Sub(t.clock.Now())
		if remaining <= 0 {
			close(t.expired)
			return nil
		}
		if err := t.clock.Sleep(ctx, min(remaining, timerSlice)); err != nil {
			return err
		}
	}
}

// runDisplay refreshes the countdown. It never blocks the deadline task: a
// failed edit is logged and the loop continues. Redundant redraws are
// skipped by tracking the last displayed second.
func (t *questionTimer) runDisplay(ctx context.Context) error {
	if t.handle == nil {
		return nil
	}

	deadline := t.start.Add(t.timeout)
	totalS := int(t.timeout.Seconds())
	lastShown := -1

	for {
		if t.cancelled.Load() {
			return nil
		}
		remaining := deadline.Sub(t.clock.Now())
		if remaining <= 0 {
			return nil
		}

		remainingS := int(math.Ceil(remaining.Seconds()))
		if lastShown < 0 || lastShown-remainingS >= displayCadenceS(remainingS) {
			if err := t.presenter.UpdateTimer(ctx, t.handle, remainingS, totalS); err != nil {
				t.log.Debug("countdown edit failed", "error", err)
			}
			lastShown = remainingS
		}

		if err := t.clock.Sleep(ctx, min(remaining, timerSlice)); err != nil {
			return err
		}
	}
}

// displayCadenceS is the countdown redraw interval: per-second under 10s
// remaining, every 2s under 30s, every 3s beyond that.
func displayCadenceS(remainingS int) int {
	switch {
	case remainingS <= 10:
		return 1
	case remainingS <= 30:
		return 2
	default:
		return 3
	}
}
