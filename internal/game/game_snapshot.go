package game

import (
	"sync/atomic"
	"time"
)

// TileSnapshot is one solid tile.
type TileSnapshot struct {
	Col  int    `json:"col"`
	Row  int    `json:"row"`
	Kind string `json:"kind"`
}

// ZoneSnapshot is the safe zone state.
type ZoneSnapshot struct {
	Inset    float64 `json:"inset"`
	MaxInset float64 `json:"maxInset"`
	Phase    string  `json:"phase"`
	Enabled  bool    `json:"enabled"`
}

// Snapshot is an immutable view of one tick, safe to share between
// goroutines once published.
type Snapshot struct {
	Sequence    uint64               `json:"sequence"`
	Timestamp   int64                `json:"timestamp"`
	MatchID     string               `json:"matchId"`
	Mode        string               `json:"mode"`
	Tick        uint64               `json:"tick"`
	Elapsed     float64              `json:"elapsed"` // seconds
	Outcome     Outcome              `json:"outcome"`
	Rank        int                  `json:"rank,omitempty"`
	PlayerID    string               `json:"playerId"`
	Width       float64              `json:"width"`
	Height      float64              `json:"height"`
	TileSize    float64              `json:"tileSize"`
	Zone        ZoneSnapshot         `json:"zone"`
	Entities    []EntitySnapshot     `json:"entities"`
	Projectiles []ProjectileSnapshot `json:"projectiles"`
	Hazards     []HazardSnapshot     `json:"hazards"`
	Tiles       []TileSnapshot       `json:"tiles"`
	Cover       [][2]int             `json:"cover"`
	TileVersion uint64               `json:"tileVersion"`
}

// Player returns the player's entity snapshot, if the player is still alive.
func (s *Snapshot) Player() (EntitySnapshot, bool) {
	for _, e := range s.Entities {
		if e.IsPlayer {
			return e, true
		}
	}
	return EntitySnapshot{}, false
}

// SnapshotStore publishes the latest snapshot for concurrent readers.
// Each published snapshot is a fresh value, so readers never observe a
// half-written tick. Tile and cover slices are shared between snapshots
// until the world changes.
type SnapshotStore struct {
	current  atomic.Pointer[Snapshot]
	sequence atomic.Uint64

	tiles       []TileSnapshot
	cover       [][2]int
	tileVersion uint64
	tileWorld   *TileWorld
}

// Produce builds a snapshot of m and publishes it. Called by the tick
// goroutine only.
func (st *SnapshotStore) Produce(m *Match) *Snapshot {
	if st.tileWorld != m.World || st.tileVersion != m.World.Version() || st.tiles == nil {
		tiles := m.World.Tiles()
		st.tiles = make([]TileSnapshot, len(tiles))
		for i, t := range tiles {
			st.tiles[i] = TileSnapshot{Col: t.Col, Row: t.Row, Kind: t.Kind.String()}
		}
		st.cover = m.World.CoverCells()
		st.tileVersion = m.World.Version()
		st.tileWorld = m.World
	}

	s := &Snapshot{
		Sequence:    st.sequence.Add(1),
		Timestamp:   time.Now().UnixMilli(),
		MatchID:     m.ID,
		Mode:        string(m.Mode),
		Tick:        m.TickCount,
		Elapsed:     m.Now.Seconds(),
		Outcome:     m.Outcome,
		Rank:        m.Rank,
		Width:       m.World.Width(),
		Height:      m.World.Height(),
		TileSize:    m.World.TileSize(),
		Tiles:       st.tiles,
		Cover:       st.cover,
		TileVersion: st.tileVersion,
		Zone: ZoneSnapshot{
			Inset:    m.Zone.Inset,
			MaxInset: m.Zone.MaxInset,
			Phase:    m.Zone.Phase.String(),
			Enabled:  m.Zone.Enabled(),
		},
		Entities:    make([]EntitySnapshot, 0, len(m.Entities)),
		Projectiles: make([]ProjectileSnapshot, 0, len(m.Projectiles)),
		Hazards:     make([]HazardSnapshot, 0, len(m.Hazards)),
	}
	if m.Player != nil {
		s.PlayerID = m.Player.ID
	}
	for _, e := range m.Entities {
		s.Entities = append(s.Entities, e.ToSnapshot())
	}
	for _, p := range m.Projectiles {
		s.Projectiles = append(s.Projectiles, p.ToSnapshot())
	}
	for _, h := range m.Hazards {
		s.Hazards = append(s.Hazards, h.ToSnapshot())
	}

	st.current.Store(s)
	return s
}

// Latest returns the most recently published snapshot, or nil.
func (st *SnapshotStore) Latest() *Snapshot {
	return st.current.Load()
}
