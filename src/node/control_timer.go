package node

import (
	"context"
	"time"
)

type timerFactory func(time.Duration) <-chan time.Time

// ControlTimer produces the heartbeat that prompts the intake stage to
// consider creating an event. After each tick the timer is unset until the
// stage resets it, so ticks never pile up while the stage is busy.
type ControlTimer struct {
	timerFactory timerFactory
	tickCh       chan struct{}      //sends a signal to the intake stage
	resetCh      chan time.Duration //receives instruction to reset the timer
}

// NewControlTimer ...
func NewControlTimer(timerFactory timerFactory) *ControlTimer {
	return &ControlTimer{
		timerFactory: timerFactory,
		tickCh:       make(chan struct{}, 1),
		resetCh:      make(chan time.Duration),
	}
}

// NewFixedControlTimer creates a ControlTimer based on time.After
func NewFixedControlTimer() *ControlTimer {
	fixedTimeout := func(d time.Duration) <-chan time.Time {
		if d == 0 {
			return nil
		}
		return time.After(d)
	}
	return NewControlTimer(fixedTimeout)
}

// Run runs the timer until ctx is done. The first tick comes after init.
func (c *ControlTimer) Run(ctx context.Context, init time.Duration) {
	timer := c.timerFactory(init)
	for {
		select {
		case <-timer:
			select {
			case c.tickCh <- struct{}{}:
			default:
			}
			timer = nil
		case t := <-c.resetCh:
			timer = c.timerFactory(t)
		case <-ctx.Done():
			return
		}
	}
}

// Reset arms the timer, unless ctx is done.
func (c *ControlTimer) Reset(ctx context.Context, d time.Duration) {
	select {
	case c.resetCh <- d:
	case <-ctx.Done():
	}
}

