package stresstest

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestHeartbeat_InvocationBounds(t *testing.T) {
	interval := 25 * time.Millisecond
	start := time.Now()
	hb := StartHeartbeat(context.Background(), interval, func(ctx context.Context) {})

	time.Sleep(200 * time.Millisecond)
	hb.Stop()
	elapsed := time.Since(start)

	upper := int64(elapsed/interval) + 1
	if got := hb.Count(); got < 3 || got > upper {
		t.Errorf("Expected between 3 and %d invocations over %v, got %d", upper, elapsed, got)
	}
}

func TestHeartbeat_InvokesImmediately(t *testing.T) {
	called := make(chan struct{}, 1)
	hb := StartHeartbeat(context.Background(), time.Hour, func(ctx context.Context) {
		select {
		case called <- struct{}{}:
		default:
		}
	})
	defer hb.Stop()

	select {
	case <-called:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected first invocation right after start")
	}
}

func TestHeartbeat_NoInvocationAfterStop(t *testing.T) {
	interval := 10 * time.Millisecond
	hb := StartHeartbeat(context.Background(), interval, func(ctx context.Context) {})

	time.Sleep(35 * time.Millisecond)
	hb.Stop()
	count := hb.Count()

	time.Sleep(5 * interval)
	if got := hb.Count(); got != count {
		t.Errorf("Expected no invocations after Stop, count went from %d to %d", count, got)
	}
}

func TestHeartbeat_StopWaitsForInProgressAction(t *testing.T) {
	started := make(chan struct{})
	var finished int32

	hb := StartHeartbeat(context.Background(), time.Hour, func(ctx context.Context) {
		close(started)
		time.Sleep(50 * time.Millisecond)
		atomic.StoreInt32(&finished, 1)
	})

	<-started
	hb.Stop()

	if atomic.LoadInt32(&finished) != 1 {
		t.Error("Expected in-progress action to complete before Stop returned")
	}
}

func TestHeartbeat_SurvivesPanickingAction(t *testing.T) {
	hb := StartHeartbeat(context.Background(), 5*time.Millisecond, func(ctx context.Context) {
		panic("keep-alive failed")
	})

	time.Sleep(60 * time.Millisecond)
	hb.Stop()

	if hb.Count() < 2 {
		t.Errorf("Expected heartbeat to keep running after a panic, got %d invocations", hb.Count())
	}
}

func TestHeartbeat_StopIsIdempotent(t *testing.T) {
	hb := StartHeartbeat(context.Background(), time.Hour, func(ctx context.Context) {})
	hb.Stop()
	hb.Stop()
}

func TestHeartbeat_ContextCancelEndsLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hb := StartHeartbeat(ctx, time.Hour, func(ctx context.Context) {})
	cancel()

	done := make(chan struct{})
	go func() {
		hb.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected Stop to return after context cancellation")
	}
}

func TestHeartbeat_FirstInvocationSurvivesImmediateStop(t *testing.T) {
	hb := StartHeartbeat(context.Background(), time.Hour, func(ctx context.Context) {})
	hb.Stop()

	if hb.Count() != 1 {
		t.Errorf("Expected exactly one invocation, got %d", hb.Count())
	}
}
