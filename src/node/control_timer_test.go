package node

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestControlTimer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	timer := NewFixedControlTimer()
	go timer.Run(ctx, time.Millisecond)

	select {
	case <-timer.tickCh:
	case <-time.After(time.Second):
		t.Fatal("expected a tick")
	}

	// unset until reset
	select {
	case <-timer.tickCh:
		t.Fatal("unexpected tick")
	case <-time.After(20 * time.Millisecond):
	}

	timer.Reset(ctx, time.Millisecond)
	select {
	case <-timer.tickCh:
	case <-time.After(time.Second):
		t.Fatal("expected a tick after reset")
	}

	// a reset replaces the pending timeout
	timer.Reset(ctx, time.Hour)
	timer.Reset(ctx, time.Millisecond)
	select {
	case <-timer.tickCh:
	case <-time.After(time.Second):
		t.Fatal("expected a tick after the second reset")
	}
}

func TestControlTimerZero(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	timer := NewFixedControlTimer()
	go timer.Run(ctx, 0)

	select {
	case <-timer.tickCh:
		t.Fatal("a zero timeout never fires")
	case <-ctx.Done():
	}
	assert.Error(t, ctx.Err())
}
