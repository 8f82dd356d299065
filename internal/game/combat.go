package game

import (
	"log"
	"math"
)

// Outcome is the match result from the player's point of view.
type Outcome uint8

const (
	InProgress Outcome = iota
	Victory
	Defeat
)

func (o Outcome) String() string {
	switch o {
	case Victory:
		return "VICTORY"
	case Defeat:
		return "DEFEAT"
	default:
		return "IN_PROGRESS"
	}
}

// MarshalText lets outcomes appear by name in JSON.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// ApplyDamage lowers target HP (floored at zero) and records the killing
// source the first time HP reaches zero. A nil source means zone or
// self-inflicted damage. Returns the damage applied.
func (m *Match) ApplyDamage(target *Entity, amount int, source *Entity) int {
	if amount <= 0 || !target.Alive() {
		return 0
	}
	applied := amount
	if applied > target.HP {
		applied = target.HP
	}
	target.HP -= applied
	target.sinceDamage = 0
	target.regenCarry = 0

	if source == target {
		source = nil
	}
	if target.HP <= 0 {
		target.killer = source
	}

	m.damageDealt += uint64(applied)
	m.emit(EventDamage, source, DamagePayload{
		VictimID: target.ID,
		Damage:   applied,
		VictimHP: target.HP,
	})
	return applied
}

// Explode damages every targetable entity within radius of (x, y), sparing
// the owner and its team. Returns the number of entities hit.
func (m *Match) Explode(x, y, radius float64, damage int, owner *Entity, ownerTeam int) int {
	hits := 0
	for _, idx := range m.grid.Near(x, y, radius+EntityHalfSize) {
		e := m.Entities[idx]
		if e == owner || e.Team == ownerTeam || !e.Targetable() {
			continue
		}
		if math.Hypot(e.X-x, e.Y-y) > radius {
			continue
		}
		m.ApplyDamage(e, damage, owner)
		hits++
	}
	m.emit(EventExplosion, owner, ExplosionPayload{X: x, Y: y, Radius: radius})
	return hits
}

// breakArea destroys breakable tiles whose centers lie within radius.
func (m *Match) breakArea(x, y, radius float64, owner *Entity) {
	ts := m.World.TileSize()
	minCol, minRow := int(math.Floor((x-radius)/ts)), int(math.Floor((y-radius)/ts))
	maxCol, maxRow := int(math.Floor((x+radius)/ts)), int(math.Floor((y+radius)/ts))
	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			cx, cy := (float64(col)+0.5)*ts, (float64(row)+0.5)*ts
			if math.Hypot(cx-x, cy-y) > radius {
				continue
			}
			if m.World.DestroyAt(cx, cy) {
				m.emit(EventTileDestroyed, owner, TileDestroyedPayload{X: cx, Y: cy})
			}
		}
	}
}

// resolve removes every entity whose HP reached zero, exactly once, then
// evaluates the outcome.
func (m *Match) resolve() {
	n := 0
	var fallen []*Entity
	for _, e := range m.Entities {
		if e.HP <= 0 && !e.eliminated {
			e.eliminated = true
			fallen = append(fallen, e)
			continue
		}
		m.Entities[n] = e
		n++
	}
	for i := n; i < len(m.Entities); i++ {
		m.Entities[i] = nil
	}
	m.Entities = m.Entities[:n]

	for _, e := range fallen {
		m.eliminated = append(m.eliminated, e)
		payload := EliminatedPayload{
			VictimID:   e.ID,
			VictimName: e.Character.Name,
			Remaining:  len(m.Entities),
		}
		if e.killer != nil {
			e.killer.Kills++
			payload.KillerID = e.killer.ID
			payload.KillerName = e.killer.Character.Name
		}
		m.emit(EventEliminated, e.killer, payload)
	}

	if m.Outcome == InProgress {
		m.evaluateOutcome()
	}
}

// evaluateOutcome settles the match. A player elimination wins over any
// simultaneous victory condition.
func (m *Match) evaluateOutcome() {
	if m.Player == nil {
		return
	}

	if m.Player.eliminated {
		m.finish(Defeat, m.opposingTeamsAlive()+1)
		return
	}
	if m.opposingTeamsAlive() == 0 {
		m.finish(Victory, 1)
	}
}

func (m *Match) opposingTeamsAlive() int {
	teams := make(map[int]struct{})
	for _, e := range m.Entities {
		if e.Alive() && e.Team != m.Player.Team {
			teams[e.Team] = struct{}{}
		}
	}
	return len(teams)
}

func (m *Match) finish(outcome Outcome, rank int) {
	m.Outcome = outcome
	m.Rank = rank
	log.Printf("🏁 Match %s finished: %s (rank %d) after %s", m.ID, outcome, rank, m.Now)
	m.emit(EventMatchResult, m.Player, MatchResultPayload{
		Outcome:  outcome.String(),
		Rank:     rank,
		Duration: m.Now.Seconds(),
		Kills:    m.Player.Kills,
	})
}
