package game

import (
	"time"
)

// EventType enum for event classification
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTick                  // Tick boundary
	EventMatchStarted
	EventAmmoChanged
	EventAbilityReady
	EventAbilityUsed
	EventDamage
	EventHeal
	EventEliminated
	EventMatchResult
	EventHazardSpawned
	EventExplosion
	EventTileDestroyed
)

// EventVersion for schema changes seen by API consumers
const EventVersion uint8 = 1

// Event is a discrete simulation occurrence.
type Event struct {
	Version   uint8       `json:"version"`
	Type      EventType   `json:"type"`
	Timestamp int64       `json:"timestamp"` // Unix nano
	Sequence  uint64      `json:"sequence"`  // Assigned by the EventLog
	TickNum   uint64      `json:"tickNum"`
	EntityID  string      `json:"entityId,omitempty"` // Source entity (rate limit key)
	Payload   interface{} `json:"payload,omitempty"`
}

// String returns human-readable event type
func (t EventType) String() string {
	switch t {
	case EventTick:
		return "tick"
	case EventMatchStarted:
		return "match_started"
	case EventAmmoChanged:
		return "ammo_changed"
	case EventAbilityReady:
		return "ability_ready"
	case EventAbilityUsed:
		return "ability_used"
	case EventDamage:
		return "damage"
	case EventHeal:
		return "heal"
	case EventEliminated:
		return "eliminated"
	case EventMatchResult:
		return "match_result"
	case EventHazardSpawned:
		return "hazard_spawned"
	case EventExplosion:
		return "explosion"
	case EventTileDestroyed:
		return "tile_destroyed"
	default:
		return "unknown"
	}
}

// MarshalText encodes the type by name.
func (t EventType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Critical events are never rate limited.
func (t EventType) Critical() bool {
	switch t {
	case EventAmmoChanged, EventAbilityReady, EventEliminated, EventMatchResult, EventMatchStarted:
		return true
	}
	return false
}

// Typed payloads for different event types

// TickPayload marks a tick boundary.
type TickPayload struct {
	Elapsed     float64 `json:"elapsed"` // seconds
	EntityCount int     `json:"entityCount"`
	DeltaTimeNs int64   `json:"deltaTimeNs"`
}

// MatchStartedPayload announces a new match.
type MatchStartedPayload struct {
	MatchID   string `json:"matchId"`
	Mode      string `json:"mode"`
	Character string `json:"character"`
	Entities  int    `json:"entities"`
	Seed      int64  `json:"seed"`
}

// AmmoPayload is sent whenever the player's ammo changes.
type AmmoPayload struct {
	Ammo    int `json:"ammo"`
	MaxAmmo int `json:"maxAmmo"`
}

// AbilityReadyPayload is sent when the player's charge fills.
type AbilityReadyPayload struct {
	Charge int `json:"charge"`
}

// AbilityUsedPayload is sent when any entity triggers its ability.
type AbilityUsedPayload struct {
	Character string `json:"character"`
}

// DamagePayload contains damage event details
type DamagePayload struct {
	VictimID string `json:"victimId"`
	Damage   int    `json:"damage"`
	VictimHP int    `json:"victimHp"`
}

// HealPayload contains heal event details
type HealPayload struct {
	Amount int `json:"amount"`
	HP     int `json:"hp"`
}

// EliminatedPayload reports an entity removal. KillerID is empty for zone
// and self-inflicted deaths.
type EliminatedPayload struct {
	VictimID   string `json:"victimId"`
	VictimName string `json:"victimName"`
	KillerID   string `json:"killerId,omitempty"`
	KillerName string `json:"killerName,omitempty"`
	Remaining  int    `json:"remaining"`
}

// MatchResultPayload is the terminal outcome.
type MatchResultPayload struct {
	Outcome  string  `json:"outcome"`
	Rank     int     `json:"rank"`
	Duration float64 `json:"duration"` // seconds
	Kills    int     `json:"kills"`
}

// HazardSpawnedPayload announces a pool or mine.
type HazardSpawnedPayload struct {
	Kind   string  `json:"kind"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
}

// ExplosionPayload marks an area burst for presentation.
type ExplosionPayload struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
}

// TileDestroyedPayload marks a removed wall or box.
type TileDestroyedPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, tickNum uint64, entityID string, payload interface{}) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: time.Now().UnixNano(),
		TickNum:   tickNum,
		EntityID:  entityID,
		Payload:   payload,
	}
}

// emit queues an event for the engine to publish after the tick.
func (m *Match) emit(t EventType, source *Entity, payload interface{}) {
	id := ""
	if source != nil {
		id = source.ID
	}
	m.events = append(m.events, NewEvent(t, m.TickCount, id, payload))
}

// DrainEvents returns and clears the events produced since the last call.
func (m *Match) DrainEvents() []Event {
	out := m.events
	m.events = nil
	return out
}
