package reminder

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerFiresRepeatedly(t *testing.T) {
	var fired atomic.Int32
	s := NewScheduler(func() { fired.Add(1) })

	s.Arm(10 * time.Millisecond)
	defer s.Disarm()

	deadline := time.Now().Add(2 * time.Second)
	for fired.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if fired.Load() < 3 {
		t.Fatalf("expected at least 3 fires, got %d", fired.Load())
	}
	if !s.Armed() {
		t.Error("expected scheduler to stay armed")
	}
}

func TestSchedulerDisarmStopsFires(t *testing.T) {
	var fired atomic.Int32
	s := NewScheduler(func() { fired.Add(1) })

	s.Arm(30 * time.Millisecond)
	s.Disarm()
	time.Sleep(80 * time.Millisecond)

	if fired.Load() != 0 {
		t.Fatalf("expected no fires after disarm, got %d", fired.Load())
	}
	if s.Armed() {
		t.Error("expected scheduler to be disarmed")
	}
}

func TestSchedulerRearmRestartsInterval(t *testing.T) {
	var fired atomic.Int32
	s := NewScheduler(func() { fired.Add(1) })
	defer s.Disarm()

	s.Arm(200 * time.Millisecond)
	time.Sleep(120 * time.Millisecond)
	s.Arm(200 * time.Millisecond)
	time.Sleep(120 * time.Millisecond)

	if fired.Load() != 0 {
		t.Fatalf("expected re-arm to restart from zero, got %d fires", fired.Load())
	}
}

func TestSchedulerNonPositiveIntervalDisarms(t *testing.T) {
	s := NewScheduler(func() {})
	s.Arm(time.Hour)
	s.Arm(0)
	if s.Armed() {
		t.Error("expected zero interval to disarm")
	}
}
