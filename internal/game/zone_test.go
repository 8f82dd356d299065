package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"showdown/internal/config"
)

func testZone() *Zone {
	cfg := config.DefaultZone()
	cfg.Enabled = true
	cfg.Delay = 5 * time.Second
	cfg.GrowthRate = 15
	cfg.SafetyMargin = 100
	return NewZone(cfg, 1500, 1500)
}

func TestZoneGrowth(t *testing.T) {
	z := testZone()

	for i := 0; i < 4; i++ {
		z.Update(time.Second)
	}
	assert.Equal(t, ZoneDormant, z.Phase)
	assert.Zero(t, z.Inset)

	z.Update(time.Second)
	z.Update(time.Second)
	assert.Equal(t, ZoneGrowing, z.Phase)
	assert.InDelta(t, 15.0, z.Inset, 1e-9)
}

func TestZoneCarriesLeftoverPastDelay(t *testing.T) {
	z := testZone()
	z.Update(6 * time.Second)
	assert.InDelta(t, 15.0, z.Inset, 1e-9)
}

func TestZoneMonotonicAndCapped(t *testing.T) {
	z := testZone()
	assert.Equal(t, 650.0, z.MaxInset)

	last := 0.0
	for i := 0; i < 200; i++ {
		z.Update(500 * time.Millisecond)
		if z.Inset < last {
			t.Fatalf("Expected inset to never shrink, went from %v to %v", last, z.Inset)
		}
		last = z.Inset
	}
	assert.Equal(t, ZoneCapped, z.Phase)
	assert.Equal(t, z.MaxInset, z.Inset)
}

func TestZoneExposure(t *testing.T) {
	z := testZone()
	z.Update(6 * time.Second) // inset 15

	var exposure time.Duration
	assert.True(t, z.Outside(5, 700))
	assert.Equal(t, 0, z.Expose(&exposure, 5, 700, 500*time.Millisecond))
	assert.Equal(t, 1, z.Expose(&exposure, 5, 700, 500*time.Millisecond))
	assert.Equal(t, 2, z.Expose(&exposure, 5, 700, 2*time.Second))

	// stepping inside clears the accumulator
	z.Expose(&exposure, 5, 700, 900*time.Millisecond)
	assert.Equal(t, 0, z.Expose(&exposure, 750, 750, time.Second))
	assert.Zero(t, exposure)

	assert.Equal(t, 600, z.TickDamage(3000))
}

func TestZoneDisabled(t *testing.T) {
	cfg := config.DefaultZone()
	cfg.Enabled = false
	z := NewZone(cfg, 1000, 1000)

	z.Update(time.Hour)
	assert.Zero(t, z.Inset)
	assert.False(t, z.Outside(0, 0))
}

func TestZoneDamagesOutsideEntities(t *testing.T) {
	cfg := testConfig()
	cfg.Zone.Enabled = true
	cfg.Zone.Delay = 0
	cfg.Zone.GrowthRate = 1000 // covers the whole edge band at once

	m := newTestMatch(cfg, openField(), dummy(Pattern{}), 550, 550)
	edge := addTarget(m, 1, 80, 550)
	addTarget(m, 2, 550, 600)

	step(m, 100*time.Millisecond, 10)
	assert.Equal(t, edge.MaxHP-edge.MaxHP/5, edge.HP, "one exposure tick after a second outside")
	assert.Equal(t, m.Player.MaxHP, m.Player.HP)
}
