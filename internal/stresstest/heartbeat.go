package stresstest

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultHeartbeatInterval matches the server's session idle timeout margin
const DefaultHeartbeatInterval = 5 * time.Minute

// Heartbeat runs an action immediately and then once per interval in the
// background until stopped. It is independent of the scheduler.
type Heartbeat struct {
	interval time.Duration
	action   func(ctx context.Context)
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	count    AtomicCounter
}

// StartHeartbeat starts the background loop. The first invocation always
// happens, even when Stop is called right away. The action result is not
// observed; a panicking action is logged and the loop keeps going.
func StartHeartbeat(ctx context.Context, interval time.Duration, action func(ctx context.Context)) *Heartbeat {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	h := &Heartbeat{
		interval: interval,
		action:   action,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go h.loop(ctx)
	return h
}

func (h *Heartbeat) loop(ctx context.Context) {
	defer close(h.done)

	for {
		h.invoke(ctx)

		timer := time.NewTimer(h.interval)
		select {
		case <-h.stop:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		// Stop wins over a timer that fired at the same time
		select {
		case <-h.stop:
			return
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (h *Heartbeat) invoke(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Debug().Interface("panic", r).Msg("Heartbeat action failed")
		}
	}()
	h.count.Inc()
	h.action(ctx)
}

// Stop cancels the next invocation and waits for an in-progress one to
// finish. No invocation starts after Stop returns. Safe to call repeatedly.
func (h *Heartbeat) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
	})
	<-h.done
}

// Count returns how many times the action was invoked
func (h *Heartbeat) Count() int64 {
	return h.count.Value()
}
