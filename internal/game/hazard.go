package game

import (
	"math"
	"time"
)

// HazardKind distinguishes ground effects.
type HazardKind uint8

const (
	HazardPool HazardKind = iota
	HazardMine
)

func (k HazardKind) String() string {
	if k == HazardMine {
		return "mine"
	}
	return "pool"
}

// Hazard is a lingering ground effect left by a landed projectile.
type Hazard struct {
	ID        uint64
	Kind      HazardKind
	X, Y      float64
	Radius    float64
	Damage    int
	Owner     *Entity
	OwnerTeam int
	Lifetime  time.Duration
	Age       time.Duration
	ArmDelay  time.Duration
	Active    bool

	tickAcc time.Duration
}

// Armed reports whether a mine can trigger.
func (h *Hazard) Armed() bool {
	return h.Kind == HazardMine && h.Age >= h.ArmDelay
}

// Remaining is the time left before expiry.
func (h *Hazard) Remaining() time.Duration {
	if h.Age >= h.Lifetime {
		return 0
	}
	return h.Lifetime - h.Age
}

func (m *Match) spawnHazard(kind HazardKind, x, y float64, spec *HazardSpec, fallbackDamage int, owner *Entity, ownerTeam int) *Hazard {
	if len(m.Hazards) >= m.cfg.Limits.MaxHazards {
		return nil
	}
	hz := m.cfg.Hazards

	h := &Hazard{
		Kind:      kind,
		X:         x,
		Y:         y,
		Radius:    DefaultHazardRange,
		Damage:    fallbackDamage,
		Owner:     owner,
		OwnerTeam: ownerTeam,
		Active:    true,
	}
	if kind == HazardMine {
		h.Lifetime = hz.MineLifetime
		h.ArmDelay = hz.MineArmDelay
	} else {
		h.Lifetime = hz.PoolLifetime
	}
	if spec != nil {
		if spec.Radius > 0 {
			h.Radius = spec.Radius
		}
		if spec.Damage > 0 {
			h.Damage = spec.Damage
		}
		if spec.LifetimeMS > 0 {
			h.Lifetime = ms(spec.LifetimeMS)
		}
	}

	m.nextHazardID++
	h.ID = m.nextHazardID
	m.Hazards = append(m.Hazards, h)

	m.emit(EventHazardSpawned, owner, HazardSpawnedPayload{
		Kind:   kind.String(),
		X:      x,
		Y:      y,
		Radius: h.Radius,
	})
	return h
}

// exempt reports whether e is protected from h (the owner and its team).
func (h *Hazard) exempt(e *Entity) bool {
	return e == h.Owner || e.Team == h.OwnerTeam
}

func (h *Hazard) reaches(e *Entity) bool {
	return math.Hypot(e.X-h.X, e.Y-h.Y) <= h.Radius
}

func (m *Match) updateHazard(h *Hazard, dt time.Duration) {
	h.Age += dt

	switch h.Kind {
	case HazardPool:
		interval := m.cfg.Hazards.PoolInterval
		h.tickAcc += dt
		// each tick instant must fall inside the lifetime
		for h.tickAcc >= interval && h.Age-h.tickAcc+interval <= h.Lifetime {
			h.tickAcc -= interval
			for _, idx := range m.grid.Near(h.X, h.Y, h.Radius+EntityHalfSize) {
				e := m.Entities[idx]
				if !e.Targetable() || h.exempt(e) || !h.reaches(e) {
					continue
				}
				m.ApplyDamage(e, h.Damage, h.Owner)
			}
		}

	case HazardMine:
		if h.Armed() && h.Age <= h.Lifetime {
			for _, idx := range m.grid.Near(h.X, h.Y, h.Radius+EntityHalfSize) {
				e := m.Entities[idx]
				if !e.Targetable() || h.exempt(e) || !h.reaches(e) {
					continue
				}
				h.Active = false
				m.Explode(h.X, h.Y, h.Radius, h.Damage, h.Owner, h.OwnerTeam)
				return
			}
		}
	}

	if h.Age >= h.Lifetime {
		h.Active = false
	}
}

func (m *Match) compactHazards() {
	n := 0
	for _, h := range m.Hazards {
		if h.Active {
			m.Hazards[n] = h
			n++
		}
	}
	for i := n; i < len(m.Hazards); i++ {
		m.Hazards[i] = nil
	}
	m.Hazards = m.Hazards[:n]
}

// HazardSnapshot is an immutable copy of hazard state for clients.
type HazardSnapshot struct {
	ID        uint64  `json:"id"`
	Kind      string  `json:"kind"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Radius    float64 `json:"radius"`
	Team      int     `json:"team"`
	Armed     bool    `json:"armed"`
	Remaining float64 `json:"remaining"` // seconds
}

// ToSnapshot copies the hazard for rendering.
func (h *Hazard) ToSnapshot() HazardSnapshot {
	return HazardSnapshot{
		ID:        h.ID,
		Kind:      h.Kind.String(),
		X:         h.X,
		Y:         h.Y,
		Radius:    h.Radius,
		Team:      h.OwnerTeam,
		Armed:     h.Kind == HazardPool || h.Armed(),
		Remaining: h.Remaining().Seconds(),
	}
}
