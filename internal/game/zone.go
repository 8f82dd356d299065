package game

import (
	"math"
	"time"

	"showdown/internal/config"
)

// ZonePhase is the lifecycle of the safe zone.
type ZonePhase uint8

const (
	ZoneDormant ZonePhase = iota
	ZoneGrowing
	ZoneCapped
)

func (p ZonePhase) String() string {
	switch p {
	case ZoneGrowing:
		return "growing"
	case ZoneCapped:
		return "capped"
	default:
		return "dormant"
	}
}

// Zone is the shrinking safe rectangle. The gas inset grows from every edge
// once the start delay has elapsed and stops at MaxInset.
type Zone struct {
	Inset      float64
	GrowthRate float64
	MaxInset   float64
	Phase      ZonePhase

	delayRemaining time.Duration
	width, height  float64
	interval       time.Duration
	fraction       float64
	enabled        bool
}

// NewZone creates a zone for a width x height map.
func NewZone(cfg config.ZoneConfig, width, height float64) *Zone {
	maxInset := math.Min(width, height)/2 - cfg.SafetyMargin
	if maxInset < 0 {
		maxInset = 0
	}
	interval := cfg.ExposureInterval
	if interval <= 0 {
		interval = time.Second
	}
	return &Zone{
		GrowthRate:     cfg.GrowthRate,
		MaxInset:       maxInset,
		delayRemaining: cfg.Delay,
		width:          width,
		height:         height,
		interval:       interval,
		fraction:       cfg.DamageFraction,
		enabled:        cfg.Enabled,
	}
}

// Enabled reports whether the zone applies at all.
func (z *Zone) Enabled() bool { return z.enabled }

// Update advances the zone by dt.
func (z *Zone) Update(dt time.Duration) {
	if !z.enabled || z.Phase == ZoneCapped {
		return
	}
	if z.Phase == ZoneDormant {
		if dt < z.delayRemaining {
			z.delayRemaining -= dt
			return
		}
		dt -= z.delayRemaining
		z.delayRemaining = 0
		z.Phase = ZoneGrowing
	}

	z.Inset += z.GrowthRate * dt.Seconds()
	if z.Inset >= z.MaxInset {
		z.Inset = z.MaxInset
		z.Phase = ZoneCapped
	}
}

// Outside reports whether (x, y) is in the gas.
func (z *Zone) Outside(x, y float64) bool {
	if !z.enabled || z.Inset <= 0 {
		return false
	}
	return x < z.Inset || x > z.width-z.Inset || y < z.Inset || y > z.height-z.Inset
}

// Expose advances an entity's exposure accumulator and returns how many
// damage ticks are due. Being inside clears the accumulator.
func (z *Zone) Expose(exposure *time.Duration, x, y float64, dt time.Duration) int {
	if !z.Outside(x, y) {
		*exposure = 0
		return 0
	}
	*exposure += dt
	ticks := 0
	for *exposure >= z.interval {
		*exposure -= z.interval
		ticks++
	}
	return ticks
}

// TickDamage is the damage of one exposure tick for a given max HP.
func (z *Zone) TickDamage(maxHP int) int {
	return int(math.Round(float64(maxHP) * z.fraction))
}

// SafeRect returns the current safe area as x, y, w, h.
func (z *Zone) SafeRect() (float64, float64, float64, float64) {
	return z.Inset, z.Inset, z.width - 2*z.Inset, z.height - 2*z.Inset
}
