package game

import (
	"math"
	"time"
)

// think runs the bot state machine and sets the bot's velocity.
//
// CHASE while a visible opponent is within sight range, re-aiming at the
// opponent's current position every tick. PATROL otherwise.
func (m *Match) think(e *Entity, dt time.Duration) {
	target := m.visibleOpponent(e)
	if target != nil {
		e.AI = AIChase
		e.PatrolTo = nil
		e.patrolDwell = 0
		e.LastKnown = &Point{X: target.X, Y: target.Y}

		angle := math.Atan2(target.Y-e.Y, target.X-e.X)
		e.Facing = angle
		e.VX = math.Cos(angle) * e.Speed
		e.VY = math.Sin(angle) * e.Speed

		dist := e.DistanceTo(target)
		atk := &e.Character.Attack
		if dist <= atk.Reach() && (atk.Behavior.Has(BehaviorLob) || atk.Behavior.Has(BehaviorPierce) ||
			m.World.LineClear(e.X, e.Y, target.X, target.Y)) {
			m.TryAttack(e, target.X, target.Y)
		}
		return
	}

	e.AI = AIPatrol
	arrival := m.cfg.AI.ArrivalRadius
	if e.PatrolTo != nil && math.Hypot(e.PatrolTo.X-e.X, e.PatrolTo.Y-e.Y) <= arrival {
		e.PatrolTo = nil
	}
	if e.PatrolTo == nil {
		e.VX, e.VY = 0, 0
		e.patrolDwell += dt
		if e.patrolDwell < m.cfg.AI.PatrolDwell {
			return
		}
		e.patrolDwell = 0
		p, ok := m.randomOpenPoint()
		if !ok {
			e.AI = AIIdle
			return
		}
		e.PatrolTo = &p
	}

	angle := math.Atan2(e.PatrolTo.Y-e.Y, e.PatrolTo.X-e.X)
	e.Facing = angle
	e.VX = math.Cos(angle) * e.Speed
	e.VY = math.Sin(angle) * e.Speed
}

// visibleOpponent returns the nearest live opponent a bot can see.
func (m *Match) visibleOpponent(e *Entity) *Entity {
	sight := m.cfg.AI.SightRange
	detect := m.cfg.AI.CoverDetectRange

	var best *Entity
	bestDist := math.Inf(1)
	for _, idx := range m.grid.Near(e.X, e.Y, sight+EntityHalfSize) {
		o := m.Entities[idx]
		if o == e || o.Team == e.Team || !o.Targetable() {
			continue
		}
		d := e.DistanceTo(o)
		if d > sight {
			continue
		}
		if o.Hidden() && d >= detect {
			continue
		}
		if d < bestDist {
			best, bestDist = o, d
		}
	}
	return best
}

// randomOpenPoint picks a uniformly random in-bounds point a body fits at.
func (m *Match) randomOpenPoint() (Point, bool) {
	ts := m.World.TileSize()
	w, h := m.World.Width()-2*ts, m.World.Height()-2*ts
	if w <= 0 || h <= 0 {
		return Point{}, false
	}
	for i := 0; i < 16; i++ {
		x := ts + m.rng.Float64()*w
		y := ts + m.rng.Float64()*h
		if !m.World.BoxBlocked(x, y, BodyHalfSize) {
			return Point{X: x, Y: y}, true
		}
	}
	return Point{}, false
}
