package reminder

import (
	"sync"
	"time"
)

// Scheduler is a repeating timer. Arming restarts the interval from zero and
// disarming drops any pending fire; nothing is remembered across the two.
type Scheduler struct {
	fire func()

	mu       sync.Mutex
	timer    *time.Timer
	interval time.Duration
	gen      uint64
}

func NewScheduler(fire func()) *Scheduler {
	return &Scheduler{fire: fire}
}

// Arm starts (or restarts) the timer.
func (s *Scheduler) Arm(interval time.Duration) {
	if interval <= 0 {
		s.Disarm()
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.interval = interval
	s.scheduleLocked()
}

func (s *Scheduler) Disarm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Scheduler) Armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

func (s *Scheduler) scheduleLocked() {
	gen := s.gen
	s.timer = time.AfterFunc(s.interval, func() { s.tick(gen) })
}

func (s *Scheduler) stopLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Scheduler) tick(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.timer == nil {
		s.mu.Unlock()
		return
	}
	s.scheduleLocked()
	s.mu.Unlock()

	s.fire()
}
