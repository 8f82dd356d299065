package game

import (
	"sort"
	"time"
)

// ScheduledAction is a deferred effect tied to an owner. Before running it
// is re-validated: the owner must still be alive, the match must still be
// in progress, and Valid (if set) must agree.
type ScheduledAction struct {
	At     time.Duration
	Owner  *Entity
	Valid  func(m *Match) bool
	Effect func(m *Match)

	seq uint64
}

// Scheduler is a time-ordered queue of deferred actions driven by the
// match clock.
type Scheduler struct {
	pending []*ScheduledAction
	seq     uint64
	limit   int

	ran       uint64
	cancelled uint64
}

// NewScheduler creates a scheduler holding at most limit pending actions
// (0 = unbounded).
func NewScheduler(limit int) *Scheduler {
	return &Scheduler{limit: limit}
}

// Schedule queues a; it reports false when the queue is full.
func (s *Scheduler) Schedule(a ScheduledAction) bool {
	if s.limit > 0 && len(s.pending) >= s.limit {
		return false
	}
	s.seq++
	a.seq = s.seq
	s.pending = append(s.pending, &a)
	return true
}

// Pending is the number of queued actions.
func (s *Scheduler) Pending() int { return len(s.pending) }

// Stats returns how many actions ran and how many were dropped at
// validation.
func (s *Scheduler) Stats() (ran, cancelled uint64) { return s.ran, s.cancelled }

// Drain runs every action due at or before now, oldest first. Actions
// scheduled by a running effect wait for the next drain.
func (s *Scheduler) Drain(m *Match, now time.Duration) int {
	if len(s.pending) == 0 {
		return 0
	}

	var due []*ScheduledAction
	n := 0
	for _, a := range s.pending {
		if a.At <= now {
			due = append(due, a)
		} else {
			s.pending[n] = a
			n++
		}
	}
	for i := n; i < len(s.pending); i++ {
		s.pending[i] = nil
	}
	s.pending = s.pending[:n]

	sort.Slice(due, func(i, j int) bool {
		if due[i].At != due[j].At {
			return due[i].At < due[j].At
		}
		return due[i].seq < due[j].seq
	})

	ran := 0
	for _, a := range due {
		if !s.valid(m, a) {
			s.cancelled++
			continue
		}
		a.Effect(m)
		s.ran++
		ran++
	}
	return ran
}

func (s *Scheduler) valid(m *Match, a *ScheduledAction) bool {
	if m.Outcome != InProgress {
		return false
	}
	if a.Owner != nil && !a.Owner.Alive() {
		return false
	}
	if a.Valid != nil && !a.Valid(m) {
		return false
	}
	return true
}

// schedule queues an owner-bound effect.
func (m *Match) schedule(at time.Duration, owner *Entity, effect func(m *Match)) bool {
	return m.Scheduler.Schedule(ScheduledAction{At: at, Owner: owner, Effect: effect})
}
