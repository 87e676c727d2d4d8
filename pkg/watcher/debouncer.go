package watcher

import (
	"context"
	"time"

	"github.com/DerAndereJohannes/pmrs-cli/pkg/logging"
)

// Debouncer coalesces bursts of change events so one save triggers one
// regeneration. An event is emitted after quietPeriod without further
// changes, or after maxWait of continuous churn.
type Debouncer struct {
	input       <-chan ChangeEvent
	output      chan ChangeEvent
	quietPeriod time.Duration
	maxWait     time.Duration
}

// NewDebouncer creates a debouncer over an event channel.
func NewDebouncer(input <-chan ChangeEvent, quietPeriod, maxWait time.Duration) *Debouncer {
	return &Debouncer{
		input:       input,
		output:      make(chan ChangeEvent, 10),
		quietPeriod: quietPeriod,
		maxWait:     maxWait,
	}
}

// Start begins debouncing; cancelling ctx stops it.
func (d *Debouncer) Start(ctx context.Context) {
	go d.run(ctx)
}

func (d *Debouncer) run(ctx context.Context) {
	var (
		quietTimer   *time.Timer
		maxWaitTimer *time.Timer
		accumulated  []string
	)

	stopTimers := func() {
		if quietTimer != nil {
			quietTimer.Stop()
			quietTimer = nil
		}
		if maxWaitTimer != nil {
			maxWaitTimer.Stop()
			maxWaitTimer = nil
		}
	}

	flush := func() {
		stopTimers()
		if len(accumulated) == 0 {
			return
		}
		logging.Debug("flushing change batch", "changes", len(accumulated))
		d.output <- ChangeEvent{Paths: accumulated, Timestamp: time.Now()}
		accumulated = nil
	}

	quietC := func() <-chan time.Time {
		if quietTimer == nil {
			return nil
		}
		return quietTimer.C
	}
	maxWaitC := func() <-chan time.Time {
		if maxWaitTimer == nil {
			return nil
		}
		return maxWaitTimer.C
	}

	for {
		select {
		case <-ctx.Done():
			stopTimers()
			close(d.output)
			return

		case event, ok := <-d.input:
			if !ok {
				flush()
				close(d.output)
				return
			}
			accumulated = append(accumulated, event.Paths...)
			if quietTimer == nil {
				quietTimer = time.NewTimer(d.quietPeriod)
			} else {
				quietTimer.Reset(d.quietPeriod)
			}
			if maxWaitTimer == nil {
				maxWaitTimer = time.NewTimer(d.maxWait)
			}

		case <-quietC():
			flush()

		case <-maxWaitC():
			flush()
		}
	}
}

// Events returns the debounced change batches.
func (d *Debouncer) Events() <-chan ChangeEvent {
	return d.output
}
