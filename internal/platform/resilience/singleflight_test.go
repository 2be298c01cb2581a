package resilience

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestSingleFlight_WaitersJoinTheFlight(t *testing.T) {
	var g SingleFlight
	var executions int32
	inFlight := make(chan struct{})
	release := make(chan struct{})

	leaderDone := make(chan struct{})
	go func() {
		defer close(leaderDone)
		val, err, shared := g.Do("team:61", func() (any, error) {
			close(inFlight)
			<-release
			atomic.AddInt32(&executions, 1)
			return "LIVE", nil
		})
		if err != nil || val != "LIVE" {
			t.Errorf("leader: val=%v err=%v", val, err)
		}
		if shared {
			t.Error("leader must not report shared")
		}
	}()

	<-inFlight
	waiterDone := make(chan struct{})
	go func() {
		defer close(waiterDone)
		val, err, shared := g.Do("team:61", func() (any, error) {
			atomic.AddInt32(&executions, 1)
			return "LIVE", nil
		})
		if err != nil || val != "LIVE" {
			t.Errorf("waiter: val=%v err=%v", val, err)
		}
		if !shared {
			t.Error("waiter that joined mid-flight must report shared")
		}
	}()

	// Give the waiter time to join the flight before the leader finishes.
	time.Sleep(10 * time.Millisecond)
	close(release)
	<-leaderDone
	<-waiterDone

	if got := atomic.LoadInt32(&executions); got != 1 {
		t.Fatalf("fn executed %d times, want 1", got)
	}
}

func TestSingleFlight_SequentialCallsRunIndependently(t *testing.T) {
	var g SingleFlight
	calls := 0

	for i := 0; i < 2; i++ {
		val, err, shared := g.Do("key", func() (any, error) {
			calls++
			return calls, nil
		})
		if err != nil || shared {
			t.Fatalf("call %d: err=%v shared=%v", i, err, shared)
		}
		if val != i+1 {
			t.Fatalf("call %d: val=%v want %d", i, val, i+1)
		}
	}
}
