package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"showdown/internal/config"
)

func newTestEngine() *Engine {
	return NewEngine(config.DefaultSim(), nil)
}

func TestEngineStartMatchShowdown(t *testing.T) {
	e := newTestEngine()
	assert.Nil(t, e.GetSnapshot())

	snap, err := e.StartMatch(MatchOptions{Character: "colt", Seed: 3})
	require.NoError(t, err)
	assert.Equal(t, "showdown", snap.Mode)
	assert.Len(t, snap.Entities, 10)
	assert.True(t, snap.Zone.Enabled)

	teams := map[int]bool{}
	for _, ent := range snap.Entities {
		assert.False(t, teams[ent.Team], "every showdown combatant has its own team")
		teams[ent.Team] = true
	}

	player, ok := snap.Player()
	require.True(t, ok)
	assert.Equal(t, "COLT", player.Name)
	assert.Equal(t, snap.PlayerID, player.ID)
}

func TestEngineStartMatchKnockout(t *testing.T) {
	e := newTestEngine()

	snap, err := e.StartMatch(MatchOptions{Mode: ModeKnockout, Seed: 5})
	require.NoError(t, err)
	assert.Len(t, snap.Entities, 6)
	assert.False(t, snap.Zone.Enabled)

	counts := map[int]int{}
	for _, ent := range snap.Entities {
		counts[ent.Team]++
	}
	assert.Equal(t, map[int]int{0: 3, 1: 3}, counts)
}

func TestEngineStartMatchValidation(t *testing.T) {
	e := newTestEngine()

	tests := []struct {
		name string
		opts MatchOptions
	}{
		{"unknown mode", MatchOptions{Mode: "duel"}},
		{"negative bots", MatchOptions{Bots: -1}},
		{"too many bots", MatchOptions{Bots: 500}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.StartMatch(tt.opts); err == nil {
				t.Error("Expected an error, got nil")
			}
		})
	}
}

func TestEngineStep(t *testing.T) {
	e := newTestEngine()
	_, err := e.StartMatch(MatchOptions{Character: "SHELLY", Bots: 1, Seed: 9})
	require.NoError(t, err)

	var observed []TickStats
	e.SetTickObserver(func(s TickStats) { observed = append(observed, s) })

	e.Step(time.Second / 30)
	e.Step(time.Second / 30)

	snap := e.GetSnapshot()
	assert.Equal(t, uint64(2), snap.Tick)
	assert.InDelta(t, 2.0/30, snap.Elapsed, 1e-6)
	require.Len(t, observed, 2)
	assert.Equal(t, 2, observed[1].Match.Entities)

	events := e.Events(0, 0)
	require.NotEmpty(t, events)
	assert.Equal(t, EventMatchStarted, events[0].Type)
	assert.Len(t, eventsOf(events, EventTick), 2)

	stats, ok := e.MatchStats()
	require.True(t, ok)
	assert.Equal(t, 2, stats.Entities)
}

func TestEngineInputLatchesFire(t *testing.T) {
	e := newTestEngine()
	snap, err := e.StartMatch(MatchOptions{Character: "SHELLY", Bots: 1, Seed: 9})
	require.NoError(t, err)
	player, _ := snap.Player()

	e.SetInput(Input{Fire: true, AimX: player.X + 100, AimY: player.Y})
	e.SetInput(Input{AimX: player.X + 100, AimY: player.Y}) // release before the tick
	e.Step(time.Second / 30)

	after, _ := e.GetSnapshot().Player()
	assert.Equal(t, player.Ammo-1, after.Ammo)

	e.Step(time.Second / 30)
	again, _ := e.GetSnapshot().Player()
	assert.Equal(t, after.Ammo, again.Ammo, "fire is consumed by one tick")
}

func TestEngineStartStop(t *testing.T) {
	cfg := config.DefaultSim()
	cfg.Match.TickRate = 200
	e := NewEngine(cfg, nil)
	_, err := e.StartMatch(MatchOptions{Bots: 1, Seed: 1})
	require.NoError(t, err)

	e.Start()
	assert.True(t, e.Running())
	assert.Eventually(t, func() bool {
		s := e.GetSnapshot()
		return s != nil && s.Tick > 3
	}, time.Second, 5*time.Millisecond)

	e.Stop()
	assert.False(t, e.Running())
	e.Stop()
}

func TestSnapshotSharesStaticTiles(t *testing.T) {
	m := NewMatch(MatchOptions{Seed: 1}, testConfig(), nil)
	var st SnapshotStore

	a := st.Produce(m)
	b := st.Produce(m)
	require.NotEmpty(t, a.Tiles)
	assert.Same(t, &a.Tiles[0], &b.Tiles[0])
	assert.Greater(t, b.Sequence, a.Sequence)
	assert.Same(t, b, st.Latest())

	var box *Tile
	for _, tile := range m.World.Tiles() {
		if tile.Kind.Breakable() {
			tile := tile
			box = &tile
			break
		}
	}
	require.NotNil(t, box)
	require.True(t, m.World.DestroyAt(box.X+1, box.Y+1))

	c := st.Produce(m)
	assert.Len(t, c.Tiles, len(a.Tiles)-1)
	assert.Greater(t, c.TileVersion, a.TileVersion)
}
