package game

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventLogSequence(t *testing.T) {
	el := NewEventLog()

	for i := 0; i < 5; i++ {
		require.True(t, el.Emit(NewEvent(EventEliminated, uint64(i), "", nil)))
	}

	events := el.Since(0, 0)
	require.Len(t, events, 5)
	for i, e := range events {
		if e.Sequence != uint64(i+1) {
			t.Errorf("Expected sequence %d, got %d", i+1, e.Sequence)
		}
	}

	assert.Len(t, el.Since(3, 0), 2)
	assert.Len(t, el.Since(0, 2), 2)
	assert.Empty(t, el.Since(5, 0))
	assert.Equal(t, uint64(5), el.LastSequence())
}

func TestEventLogRingOverwrites(t *testing.T) {
	el := NewEventLog()
	total := EventBufferSize + 76
	for i := 0; i < total; i++ {
		el.Emit(NewEvent(EventMatchResult, 0, "", nil))
	}

	events := el.Since(0, 0)
	require.Len(t, events, EventBufferSize)
	assert.Equal(t, uint64(77), events[0].Sequence)
	assert.Equal(t, uint64(total), events[len(events)-1].Sequence)
}

func TestEventLogRateLimitsNoisyEntities(t *testing.T) {
	el := NewEventLog()

	for i := 0; i < 200; i++ {
		el.Emit(NewEvent(EventDamage, 0, "noisy", nil))
	}
	assert.Greater(t, el.GetDroppedCount(), uint64(0))

	before := el.GetDroppedCount()
	for i := 0; i < 200; i++ {
		require.True(t, el.Emit(NewEvent(EventAmmoChanged, 0, "noisy", nil)), "critical events bypass limits")
	}
	assert.Equal(t, before, el.GetDroppedCount())
}

func TestEventLogFeedsSubscribers(t *testing.T) {
	el := NewEventLog()

	var mu sync.Mutex
	var got []Event
	el.Subscribe(func(batch []Event) {
		mu.Lock()
		got = append(got, batch...)
		mu.Unlock()
	})

	el.Start()
	for i := 0; i < BatchFlushSize*2+3; i++ {
		el.Emit(NewEvent(EventEliminated, uint64(i), "", nil))
	}
	el.Stop()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, BatchFlushSize*2+3)
	for i := 1; i < len(got); i++ {
		if got[i].Sequence <= got[i-1].Sequence {
			t.Fatalf("Expected increasing sequences, got %d after %d", got[i].Sequence, got[i-1].Sequence)
		}
	}
	assert.Equal(t, uint64(0), el.GetStats()["pending"])
}

func TestEventLogRestart(t *testing.T) {
	el := NewEventLog()

	var mu sync.Mutex
	var got []Event
	el.Subscribe(func(batch []Event) {
		mu.Lock()
		got = append(got, batch...)
		mu.Unlock()
	})

	el.Stop() // before Start: no-op
	assert.False(t, el.GetStats()["running"].(bool))

	el.Start()
	el.Emit(NewEvent(EventEliminated, 1, "", nil))
	el.Stop()
	el.Stop()

	el.Start()
	assert.True(t, el.GetStats()["running"].(bool))
	el.Emit(NewEvent(EventEliminated, 2, "", nil))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, time.Second, 10*time.Millisecond, "the restarted writer keeps feeding subscribers")

	el.Stop()
	assert.False(t, el.GetStats()["running"].(bool))
}

func TestEventTypeNames(t *testing.T) {
	tests := []struct {
		t    EventType
		want string
	}{
		{EventTick, "tick"},
		{EventDamage, "damage"},
		{EventMatchResult, "match_result"},
		{EventTileDestroyed, "tile_destroyed"},
	}
	for _, tt := range tests {
		if got := tt.t.String(); got != tt.want {
			t.Errorf("Expected %s, got %s", tt.want, got)
		}
	}
	assert.True(t, EventEliminated.Critical())
	assert.False(t, EventDamage.Critical())
}
