package game

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReloadRestoresAmmo(t *testing.T) {
	m := newTestMatch(testConfig(), openField(), dummy(Pattern{Damage: 1, Range: 100, Speed: 100}), 550, 550)
	addTarget(m, 1, 200, 200)
	p := m.Player
	p.Ammo = 0
	m.DrainEvents()

	step(m, 100*time.Millisecond, 5)
	assert.Zero(t, p.Ammo)
	assert.InDelta(t, 0.5, p.ReloadProgress(), 1e-9)
	assert.Empty(t, eventsOf(m.DrainEvents(), EventAmmoChanged))

	step(m, 100*time.Millisecond, 5)
	assert.Equal(t, 1, p.Ammo, "one round per reload duration")
	assert.Zero(t, p.ReloadProgress())

	ammo := eventsOf(m.DrainEvents(), EventAmmoChanged)
	require.Len(t, ammo, 1)
	payload := ammo[0].Payload.(AmmoPayload)
	if payload.Ammo != 1 || payload.MaxAmmo != 3 {
		t.Errorf("Expected ammo 1/3, got %d/%d", payload.Ammo, payload.MaxAmmo)
	}

	step(m, 100*time.Millisecond, 20)
	assert.Equal(t, 3, p.Ammo)
	assert.Len(t, eventsOf(m.DrainEvents(), EventAmmoChanged), 2)

	// a full magazine holds no partial progress
	step(m, 100*time.Millisecond, 7)
	assert.Equal(t, 3, p.Ammo)
	assert.Zero(t, p.ReloadProgress())
	assert.Empty(t, eventsOf(m.DrainEvents(), EventAmmoChanged))
}

func TestBotReloadEmitsNothing(t *testing.T) {
	m := newTestMatch(testConfig(), openField(), dummy(Pattern{Damage: 1, Range: 100, Speed: 100}), 550, 550)
	bot := addTarget(m, 1, 200, 200)
	bot.Ammo = 0

	step(m, 100*time.Millisecond, 20)
	assert.Positive(t, bot.Ammo)
	assert.Empty(t, eventsOf(m.DrainEvents(), EventAmmoChanged))
}

func TestMovementSlidesAlongWall(t *testing.T) {
	rows := openField()
	rows[10] = ".......X............"

	m := newTestMatch(testConfig(), rows, dummy(Pattern{}), 380, 575)
	addTarget(m, 1, 200, 200)
	p := m.Player
	p.Speed = 300

	m.SetInput(Input{Right: true, Down: true})
	m.Update(100 * time.Millisecond)

	leg := 300 / math.Sqrt2 * 0.1
	assert.InDelta(t, 380.0, p.X, 1e-9, "the box blocks the x axis")
	assert.InDelta(t, 575.0+leg, p.Y, 1e-9, "y still moves")

	m.SetInput(Input{Right: true})
	m.Update(100 * time.Millisecond)
	assert.InDelta(t, 380.0, p.X, 1e-9)
	assert.InDelta(t, 575.0+leg, p.Y, 1e-9)
}

func TestDiagonalInputNormalized(t *testing.T) {
	leg := 300 / math.Sqrt2 * 0.1

	tests := []struct {
		name   string
		input  Input
		dx, dy float64
	}{
		{"right", Input{Right: true}, 30, 0},
		{"up", Input{Up: true}, 0, -30},
		{"up right", Input{Up: true, Right: true}, leg, -leg},
		{"down left", Input{Down: true, Left: true}, -leg, leg},
		{"opposites cancel", Input{Left: true, Right: true}, 0, 0},
		{"idle", Input{}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMatch(testConfig(), openField(), dummy(Pattern{}), 550, 550)
			addTarget(m, 1, 200, 200)
			p := m.Player
			p.Speed = 300

			m.SetInput(tt.input)
			m.Update(100 * time.Millisecond)

			assert.InDelta(t, 550+tt.dx, p.X, 1e-9)
			assert.InDelta(t, 550+tt.dy, p.Y, 1e-9)
			if speed := math.Hypot(p.VX, p.VY); tt.dx != 0 || tt.dy != 0 {
				assert.InDelta(t, 300.0, speed, 1e-9, "diagonals are no faster than straight lines")
			}
		})
	}
}
