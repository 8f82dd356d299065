package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSchedulerOrdering(t *testing.T) {
	m := newTestMatch(testConfig(), openField(), dummy(Pattern{}), 550, 550)
	s := NewScheduler(0)

	var order []string
	add := func(at time.Duration, name string) {
		s.Schedule(ScheduledAction{At: at, Effect: func(*Match) { order = append(order, name) }})
	}
	add(30*time.Millisecond, "c")
	add(10*time.Millisecond, "a")
	add(10*time.Millisecond, "b")
	add(50*time.Millisecond, "late")

	assert.Equal(t, 3, s.Drain(m, 40*time.Millisecond))
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, 1, s.Pending())
}

func TestSchedulerDefersNestedActions(t *testing.T) {
	m := newTestMatch(testConfig(), openField(), dummy(Pattern{}), 550, 550)
	s := NewScheduler(0)

	ran := 0
	s.Schedule(ScheduledAction{At: 0, Effect: func(*Match) {
		ran++
		s.Schedule(ScheduledAction{At: 0, Effect: func(*Match) { ran++ }})
	}})

	s.Drain(m, time.Second)
	assert.Equal(t, 1, ran)
	s.Drain(m, time.Second)
	assert.Equal(t, 2, ran)
}

func TestSchedulerRevalidates(t *testing.T) {
	m := newTestMatch(testConfig(), openField(), dummy(Pattern{}), 550, 550)
	dead := addTarget(m, 1, 200, 200)
	dead.HP = 0
	s := NewScheduler(0)

	ran := 0
	effect := func(*Match) { ran++ }
	s.Schedule(ScheduledAction{At: 0, Owner: dead, Effect: effect})
	s.Schedule(ScheduledAction{At: 0, Owner: m.Player, Valid: func(*Match) bool { return false }, Effect: effect})
	s.Schedule(ScheduledAction{At: 0, Owner: m.Player, Effect: effect})

	s.Drain(m, 0)
	assert.Equal(t, 1, ran)

	r, c := s.Stats()
	assert.Equal(t, uint64(1), r)
	assert.Equal(t, uint64(2), c)
}

func TestSchedulerStopsAfterMatchEnds(t *testing.T) {
	m := newTestMatch(testConfig(), openField(), dummy(Pattern{}), 550, 550)
	m.Outcome = Victory
	s := NewScheduler(0)

	ran := false
	s.Schedule(ScheduledAction{At: 0, Effect: func(*Match) { ran = true }})
	s.Drain(m, time.Second)
	assert.False(t, ran)
}

func TestSchedulerLimit(t *testing.T) {
	s := NewScheduler(2)
	noop := func(*Match) {}

	assert.True(t, s.Schedule(ScheduledAction{Effect: noop}))
	assert.True(t, s.Schedule(ScheduledAction{Effect: noop}))
	assert.False(t, s.Schedule(ScheduledAction{Effect: noop}))
	assert.Equal(t, 2, s.Pending())
}
