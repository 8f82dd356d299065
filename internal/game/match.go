package game

import (
	"log"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"showdown/internal/config"
	"showdown/internal/game/spatial"
)

// Mode selects spawn layout, teams and zone rules.
type Mode string

const (
	ModeShowdown Mode = "showdown"
	ModeKnockout Mode = "knockout"
)

// ParseMode maps a name to a Mode, defaulting to showdown.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), string(ModeKnockout)) {
		return ModeKnockout
	}
	return ModeShowdown
}

// Input is the live player command. Fire and Ability are edge triggers
// consumed by the next tick.
type Input struct {
	Up      bool    `json:"up" msgpack:"up"`
	Down    bool    `json:"down" msgpack:"down"`
	Left    bool    `json:"left" msgpack:"left"`
	Right   bool    `json:"right" msgpack:"right"`
	AimX    float64 `json:"aimX" msgpack:"aimX"`
	AimY    float64 `json:"aimY" msgpack:"aimY"`
	Fire    bool    `json:"fire" msgpack:"fire"`
	Ability bool    `json:"ability" msgpack:"ability"`
}

// MatchOptions describes a match to create.
type MatchOptions struct {
	Character     string
	Mode          Mode
	Bots          int
	BotCharacters []string // optional, cycled; random roster picks otherwise
	Seed          int64
	Map           []string // overrides the built-in map for the mode
}

// Match is the whole simulation state. It is not safe for concurrent use;
// Engine serializes access.
type Match struct {
	ID          string
	Mode        Mode
	World       *TileWorld
	Zone        *Zone
	Entities    []*Entity
	Projectiles []*Projectile
	Hazards     []*Hazard
	Scheduler   *Scheduler
	Player      *Entity

	Now       time.Duration
	TickCount uint64
	Outcome   Outcome
	Rank      int
	Seed      int64

	cfg    config.SimConfig
	roster *Roster
	rng    *rand.Rand
	grid   *spatial.Grid
	input  Input
	events []Event

	eliminated       []*Entity
	nextProjectileID uint64
	nextHazardID     uint64
	projectilesFired uint64
	damageDealt      uint64
}

// NewMatch builds a match: arena, zone, the player and opts.Bots bots.
func NewMatch(opts MatchOptions, cfg config.SimConfig, roster *Roster) *Match {
	cfg = sanitize(cfg)
	if roster == nil {
		roster = DefaultRoster()
	}
	if opts.Mode == "" {
		opts.Mode = ModeShowdown
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	rows := opts.Map
	if rows == nil {
		rows = BuiltinMap(opts.Mode)
	}
	arena := LoadArena(string(opts.Mode), rows, cfg.Match.TileSize)
	w := arena.World

	zoneCfg := cfg.Zone
	if opts.Mode == ModeKnockout {
		zoneCfg.Enabled = false
	}

	m := &Match{
		ID:        uuid.NewString(),
		Mode:      opts.Mode,
		World:     w,
		Zone:      NewZone(zoneCfg, w.Width(), w.Height()),
		Scheduler: NewScheduler(cfg.Limits.MaxScheduled),
		Seed:      seed,
		cfg:       cfg,
		roster:    roster,
		rng:       rand.New(rand.NewSource(seed)),
		grid:      spatial.NewGrid(w.Width(), w.Height(), cfg.Spatial.GridCellSize, cfg.Limits.MaxEntities),
	}

	char, ok := roster.Get(opts.Character)
	if !ok && opts.Character != "" {
		log.Printf("⚠️ Unknown character %q, using %s", opts.Character, char.Name)
	}
	px, py := m.playerSpawn(arena, opts.Bots)
	m.Player = m.AddEntity(char, 0, true, px, py)

	for i := 1; i <= opts.Bots; i++ {
		team := i
		var x, y float64
		if opts.Mode == ModeKnockout {
			allies := (opts.Bots - 1) / 2
			if i <= allies {
				team = 0
			} else {
				team = 1
			}
			x, y = m.teamSpawn(team)
		} else {
			x, y = m.ringSpawn(arena, i, opts.Bots+1)
		}
		m.AddEntity(m.botCharacter(opts.BotCharacters, i-1), team, false, x, y)
	}

	log.Printf("🎮 Match %s created: mode=%s character=%s entities=%d seed=%d",
		m.ID, m.Mode, char.Name, len(m.Entities), seed)
	m.emit(EventMatchStarted, m.Player, MatchStartedPayload{
		MatchID:   m.ID,
		Mode:      string(m.Mode),
		Character: char.Name,
		Entities:  len(m.Entities),
		Seed:      seed,
	})
	return m
}

func sanitize(cfg config.SimConfig) config.SimConfig {
	def := config.DefaultSim()
	if cfg.Match.TileSize <= 0 {
		cfg.Match.TileSize = def.Match.TileSize
	}
	if cfg.Hazards.PoolInterval <= 0 {
		cfg.Hazards.PoolInterval = def.Hazards.PoolInterval
	}
	if cfg.Hazards.PoisonInterval <= 0 {
		cfg.Hazards.PoisonInterval = def.Hazards.PoisonInterval
	}
	if cfg.Limits.MaxProjectiles <= 0 {
		cfg.Limits.MaxProjectiles = def.Limits.MaxProjectiles
	}
	if cfg.Limits.MaxHazards <= 0 {
		cfg.Limits.MaxHazards = def.Limits.MaxHazards
	}
	if cfg.Limits.MaxEntities <= 0 {
		cfg.Limits.MaxEntities = def.Limits.MaxEntities
	}
	if cfg.Spatial.GridCellSize <= 0 {
		cfg.Spatial.GridCellSize = def.Spatial.GridCellSize
	}
	return cfg
}

func (m *Match) botCharacter(names []string, i int) *Character {
	if len(names) > 0 {
		c, _ := m.roster.Get(names[i%len(names)])
		return c
	}
	all := m.roster.Names()
	c, _ := m.roster.Get(all[m.rng.Intn(len(all))])
	return c
}

func (m *Match) playerSpawn(a *Arena, bots int) (float64, float64) {
	if a.PlayerSpawn != nil {
		return m.World.NearestOpen(a.PlayerSpawn.X, a.PlayerSpawn.Y, BodyHalfSize)
	}
	if m.Mode == ModeKnockout {
		return m.teamSpawn(0)
	}
	return m.ringSpawn(a, 0, bots+1)
}

// ringSpawn places slot i of n evenly on a ring around the map center,
// preferring declared bot spawns when the map has enough of them.
func (m *Match) ringSpawn(a *Arena, i, n int) (float64, float64) {
	if i > 0 && len(a.BotSpawns) >= n-1 {
		sp := a.BotSpawns[i-1]
		return m.World.NearestOpen(sp.X, sp.Y, BodyHalfSize)
	}
	w, h := m.World.Width(), m.World.Height()
	radius := math.Min(w, h)/2 - 2*m.World.TileSize()
	if radius < 0 {
		radius = 0
	}
	angle := float64(i) / float64(n) * 2 * math.Pi
	x := w/2 + math.Cos(angle)*radius
	y := h/2 + math.Sin(angle)*radius
	return m.World.NearestOpen(x, y, BodyHalfSize)
}

// teamSpawn places knockout team 0 at the bottom and team 1 at the top.
func (m *Match) teamSpawn(team int) (float64, float64) {
	w, h := m.World.Width(), m.World.Height()
	ts := m.World.TileSize()
	x := w/2 + (m.rng.Float64()-0.5)*math.Min(w/2, 500)
	y := h - 3*ts
	if team != 0 {
		y = 3 * ts
	}
	return m.World.NearestOpen(x, y, BodyHalfSize)
}

// AddEntity places a new combatant in the match.
func (m *Match) AddEntity(c *Character, team int, isPlayer bool, x, y float64) *Entity {
	if c == nil {
		c = DefaultCharacter()
	}
	e := NewEntity(c, team, isPlayer, x, y)
	if len(m.Entities) >= m.cfg.Limits.MaxEntities {
		log.Printf("⚠️ Entity cap %d reached, %s not spawned", m.cfg.Limits.MaxEntities, c.Name)
		return e
	}
	m.Entities = append(m.Entities, e)
	m.rebuildGrid()
	return e
}

// SetInput replaces the live input.
func (m *Match) SetInput(in Input) {
	m.input = in
}

// Update advances the simulation by dt. Ordering: zone, scheduled actions,
// entities, projectiles, hazards, resolution.
func (m *Match) Update(dt time.Duration) {
	if m.Outcome != InProgress || dt <= 0 {
		return
	}
	m.TickCount++
	m.Now += dt
	secs := dt.Seconds()

	m.Zone.Update(dt)

	m.Scheduler.Drain(m, m.Now)

	m.rebuildGrid()
	for _, e := range m.Entities {
		m.updateEntity(e, dt)
	}
	m.input.Fire = false
	m.input.Ability = false

	m.rebuildGrid()
	for i := 0; i < len(m.Projectiles); i++ {
		if p := m.Projectiles[i]; p.Active {
			m.updateProjectile(p, secs)
		}
	}
	m.compactProjectiles()

	for i := 0; i < len(m.Hazards); i++ {
		if h := m.Hazards[i]; h.Active {
			m.updateHazard(h, dt)
		}
	}
	m.compactHazards()

	m.resolve()
	m.rebuildGrid()
}

func (m *Match) rebuildGrid() {
	m.grid.Reset()
	for i, e := range m.Entities {
		m.grid.Insert(uint32(i), e.X, e.Y)
	}
}

// Entity returns a live entity by ID.
func (m *Match) Entity(id string) *Entity {
	for _, e := range m.Entities {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// Fallen lists eliminated entities in elimination order.
func (m *Match) Fallen() []*Entity {
	out := make([]*Entity, len(m.eliminated))
	copy(out, m.eliminated)
	return out
}

// MatchStats are cumulative counters for metrics.
type MatchStats struct {
	Entities         int
	Projectiles      int
	Hazards          int
	Scheduled        int
	ProjectilesFired uint64
	DamageDealt      uint64
	Grid             spatial.Stats
}

// Stats reports live counts and cumulative counters.
func (m *Match) Stats() MatchStats {
	return MatchStats{
		Entities:         len(m.Entities),
		Projectiles:      len(m.Projectiles),
		Hazards:          len(m.Hazards),
		Scheduled:        m.Scheduler.Pending(),
		ProjectilesFired: m.projectilesFired,
		DamageDealt:      m.damageDealt,
		Grid:             m.grid.Stats(),
	}
}
