package game

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Entity geometry and economy constants.
const (
	EntityHalfSize = 20.0 // hitbox half-extent (40x40 box)
	BodyHalfSize   = 16.0 // movement collision half-extent
	ChargeMax      = 100
)

// AIState is the bot decision state.
type AIState uint8

const (
	AIIdle AIState = iota
	AIPatrol
	AIChase
)

func (s AIState) String() string {
	switch s {
	case AIPatrol:
		return "PATROL"
	case AIChase:
		return "CHASE"
	default:
		return "IDLE"
	}
}

type dashState struct {
	dirX, dirY  float64
	speed       float64
	remaining   float64
	breakWalls  bool
	angle       float64
	aimDist     float64
	pattern     *Pattern
	fromAbility bool
}

// Entity is a combatant: the player or a bot.
type Entity struct {
	ID        string
	Character *Character
	Team      int
	IsPlayer  bool

	X, Y   float64
	VX, VY float64
	Facing float64

	HP    int
	MaxHP int
	Speed float64

	Ammo         int
	MaxAmmo      int
	reload       time.Duration
	nextAttackAt time.Duration
	Charge       int

	// status
	poisonStacks int
	poisonTimer  time.Duration
	poisoner     *Entity
	exposure     time.Duration
	stun         time.Duration
	reveal       time.Duration
	cloak        time.Duration
	rootedUntil  time.Duration
	sinceDamage  time.Duration
	regenCarry   float64
	airborne     bool
	dash         *dashState
	InCover      bool

	// AI
	AI          AIState
	LastKnown   *Point
	PatrolTo    *Point
	patrolDwell time.Duration

	// resolution
	eliminated bool
	killer     *Entity
	Kills      int
}

// NewEntity creates an entity at full health and ammo.
func NewEntity(c *Character, team int, isPlayer bool, x, y float64) *Entity {
	return &Entity{
		ID:        uuid.NewString(),
		Character: c,
		Team:      team,
		IsPlayer:  isPlayer,
		X:         x,
		Y:         y,
		HP:        c.HP,
		MaxHP:     c.HP,
		Speed:     c.Speed,
		Ammo:      c.Ammo,
		MaxAmmo:   c.Ammo,
	}
}

// Alive reports whether the entity still counts for the match.
func (e *Entity) Alive() bool {
	return !e.eliminated && e.HP > 0
}

// Eliminated reports whether the resolver already removed e.
func (e *Entity) Eliminated() bool { return e.eliminated }

// Targetable reports whether projectiles and hazards can touch e.
func (e *Entity) Targetable() bool {
	return e.Alive() && !e.airborne
}

// Hidden is true while concealed by cover or cloak and not revealed.
func (e *Entity) Hidden() bool {
	if e.reveal > 0 {
		return false
	}
	return e.InCover || e.cloak > 0
}

// Stunned reports whether e cannot act.
func (e *Entity) Stunned() bool { return e.stun > 0 }

// Airborne reports whether e is mid-jump.
func (e *Entity) Airborne() bool { return e.airborne }

// Dashing reports whether e is mid-dash.
func (e *Entity) Dashing() bool { return e.dash != nil }

// busy reports whether e is locked out of new actions.
func (e *Entity) busy(now time.Duration) bool {
	return e.stun > 0 || e.airborne || e.dash != nil || now < e.rootedUntil
}

// Contains reports whether (x, y) is inside the hitbox.
func (e *Entity) Contains(x, y float64) bool {
	return math.Abs(x-e.X) <= EntityHalfSize && math.Abs(y-e.Y) <= EntityHalfSize
}

// DistanceTo returns the center distance to another entity.
func (e *Entity) DistanceTo(o *Entity) float64 {
	return math.Hypot(o.X-e.X, o.Y-e.Y)
}

// ReloadProgress is reload completion in [0, 1).
func (e *Entity) ReloadProgress() float64 {
	if e.Ammo >= e.MaxAmmo {
		return 0
	}
	total := e.Character.Reload()
	if total <= 0 {
		return 0
	}
	return float64(e.reload) / float64(total)
}

// Poison applies stacks, keeping the larger count and the newest source.
func (e *Entity) Poison(stacks int, source *Entity) {
	if stacks > e.poisonStacks {
		e.poisonStacks = stacks
	}
	e.poisoner = source
}

// PoisonStacks is the remaining poison ticks.
func (e *Entity) PoisonStacks() int { return e.poisonStacks }

// Stun prevents movement and actions for d, keeping the longer stun.
func (e *Entity) Stun(d time.Duration) {
	if d > e.stun {
		e.stun = d
	}
}

// Heal restores HP up to MaxHP and returns the amount applied.
func (e *Entity) Heal(amount int) int {
	if amount <= 0 || !e.Alive() {
		return 0
	}
	before := e.HP
	e.HP += amount
	if e.HP > e.MaxHP {
		e.HP = e.MaxHP
	}
	return e.HP - before
}

// update runs the per-tick entity pipeline: reload, status, cover, movement.
func (m *Match) updateEntity(e *Entity, dt time.Duration) {
	if !e.Alive() {
		return
	}

	m.updateReload(e, dt)
	m.updateStatus(e, dt)
	if !e.Alive() {
		return
	}
	e.InCover = m.World.IsCover(e.X, e.Y)

	switch {
	case e.dash != nil:
		m.stepDash(e, dt)
	case e.airborne:
		// the landing action moves the entity
	case e.stun > 0 || m.Now < e.rootedUntil:
		e.VX, e.VY = 0, 0
		if !e.IsPlayer {
			e.AI = AIIdle
		}
	case e.IsPlayer:
		m.playerControl(e, dt)
	default:
		m.think(e, dt)
		m.moveEntity(e, e.VX*dt.Seconds(), e.VY*dt.Seconds())
	}
}

func (m *Match) updateReload(e *Entity, dt time.Duration) {
	if e.Ammo >= e.MaxAmmo {
		e.reload = 0
		return
	}
	e.reload += dt
	if total := e.Character.Reload(); e.reload >= total {
		e.reload -= total
		e.Ammo++
		if e.Ammo >= e.MaxAmmo {
			e.reload = 0
		}
		if e.IsPlayer {
			m.emit(EventAmmoChanged, e, AmmoPayload{Ammo: e.Ammo, MaxAmmo: e.MaxAmmo})
		}
	}
}

func (m *Match) updateStatus(e *Entity, dt time.Duration) {
	hz := m.cfg.Hazards

	if e.poisonStacks > 0 {
		e.poisonTimer += dt
		for e.poisonTimer >= hz.PoisonInterval && e.poisonStacks > 0 {
			e.poisonTimer -= hz.PoisonInterval
			e.poisonStacks--
			m.ApplyDamage(e, hz.PoisonDamage, e.poisoner)
		}
		if e.poisonStacks == 0 {
			e.poisonTimer = 0
			e.poisoner = nil
		}
	}

	if ticks := m.Zone.Expose(&e.exposure, e.X, e.Y, dt); ticks > 0 {
		for i := 0; i < ticks; i++ {
			m.ApplyDamage(e, m.Zone.TickDamage(e.MaxHP), nil)
		}
	}

	e.stun = decay(e.stun, dt)
	e.reveal = decay(e.reveal, dt)
	e.cloak = decay(e.cloak, dt)

	e.sinceDamage += dt
	mc := m.cfg.Match
	if e.HP > 0 && e.HP < e.MaxHP && e.sinceDamage >= mc.RegenDelay && mc.RegenFraction > 0 {
		e.regenCarry += float64(e.MaxHP) * mc.RegenFraction * dt.Seconds()
		if whole := int(e.regenCarry); whole > 0 {
			e.regenCarry -= float64(whole)
			e.Heal(whole)
		}
	} else {
		e.regenCarry = 0
	}
}

func decay(v, dt time.Duration) time.Duration {
	if v <= dt {
		return 0
	}
	return v - dt
}

func (m *Match) playerControl(e *Entity, dt time.Duration) {
	in := m.input
	dx, dy := 0.0, 0.0
	if in.Left {
		dx--
	}
	if in.Right {
		dx++
	}
	if in.Up {
		dy--
	}
	if in.Down {
		dy++
	}
	if l := math.Hypot(dx, dy); l > 0 {
		dx, dy = dx/l, dy/l
	}
	e.VX, e.VY = dx*e.Speed, dy*e.Speed
	if in.AimX != 0 || in.AimY != 0 {
		e.Facing = math.Atan2(in.AimY-e.Y, in.AimX-e.X)
	}
	m.moveEntity(e, e.VX*dt.Seconds(), e.VY*dt.Seconds())

	aimX, aimY := in.AimX, in.AimY
	if aimX == 0 && aimY == 0 {
		aimX, aimY = e.X+math.Cos(e.Facing)*100, e.Y+math.Sin(e.Facing)*100
	}
	if in.Fire {
		m.TryAttack(e, aimX, aimY)
	}
	if in.Ability {
		m.TryAbility(e, aimX, aimY)
	}
}

// moveEntity resolves X then Y independently against the tile world and
// reports which axes were blocked.
func (m *Match) moveEntity(e *Entity, dx, dy float64) (blockedX, blockedY bool) {
	if dx != 0 {
		if nx := e.X + dx; !m.World.BoxBlocked(nx, e.Y, BodyHalfSize) {
			e.X = nx
		} else {
			blockedX = true
		}
	}
	if dy != 0 {
		if ny := e.Y + dy; !m.World.BoxBlocked(e.X, ny, BodyHalfSize) {
			e.Y = ny
		} else {
			blockedY = true
		}
	}
	return blockedX, blockedY
}

// knockback pushes e along (dirX, dirY) in sub-steps until dist is covered
// or a wall stops it.
func (m *Match) knockback(e *Entity, dirX, dirY, dist float64) {
	for dist > 0 {
		s := math.Min(dist, MaxSubStep)
		dist -= s
		if bx, by := m.moveEntity(e, dirX*s, dirY*s); bx || by {
			return
		}
	}
}

func (m *Match) stepDash(e *Entity, dt time.Duration) {
	d := e.dash
	step := math.Min(d.speed*dt.Seconds(), d.remaining)
	for step > 0 {
		s := math.Min(step, MaxSubStep)
		step -= s
		d.remaining -= s
		nx, ny := e.X+d.dirX*s, e.Y+d.dirY*s
		if m.World.BoxBlocked(nx, ny, BodyHalfSize) {
			if !d.breakWalls || !m.breakBody(nx, ny, e) || m.World.BoxBlocked(nx, ny, BodyHalfSize) {
				d.remaining = 0
				break
			}
		}
		e.X, e.Y = nx, ny
	}
	if d.remaining <= 0 {
		e.dash = nil
		m.schedule(m.Now, e, func(m *Match) {
			m.release(e, d.pattern, d.angle, d.aimDist, d.fromAbility)
		})
	}
}

// breakBody destroys breakable tiles under a body-sized box at (x, y).
func (m *Match) breakBody(x, y float64, owner *Entity) bool {
	broke := false
	for _, c := range [][2]float64{{-1, -1}, {1, -1}, {-1, 1}, {1, 1}} {
		px, py := x+c[0]*BodyHalfSize, y+c[1]*BodyHalfSize
		if m.World.DestroyAt(px, py) {
			broke = true
			m.emit(EventTileDestroyed, owner, TileDestroyedPayload{X: px, Y: py})
		}
	}
	return broke
}

// EntitySnapshot is an immutable copy of entity state for clients.
type EntitySnapshot struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Icon           string  `json:"icon,omitempty"`
	Team           int     `json:"team"`
	IsPlayer       bool    `json:"isPlayer"`
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
	Facing         float64 `json:"facing"`
	HP             int     `json:"hp"`
	MaxHP          int     `json:"maxHp"`
	Ammo           int     `json:"ammo"`
	MaxAmmo        int     `json:"maxAmmo"`
	ReloadProgress float64 `json:"reloadProgress"`
	Charge         int     `json:"charge"`
	Hidden         bool    `json:"hidden"`
	Stunned        bool    `json:"stunned"`
	Airborne       bool    `json:"airborne"`
	Poisoned       bool    `json:"poisoned"`
	AI             string  `json:"ai,omitempty"`
}

// ToSnapshot copies the entity for rendering.
func (e *Entity) ToSnapshot() EntitySnapshot {
	s := EntitySnapshot{
		ID:             e.ID,
		Name:           e.Character.Name,
		Icon:           e.Character.Icon,
		Team:           e.Team,
		IsPlayer:       e.IsPlayer,
		X:              e.X,
		Y:              e.Y,
		Facing:         e.Facing,
		HP:             e.HP,
		MaxHP:          e.MaxHP,
		Ammo:           e.Ammo,
		MaxAmmo:        e.MaxAmmo,
		ReloadProgress: e.ReloadProgress(),
		Charge:         e.Charge,
		Hidden:         e.Hidden(),
		Stunned:        e.Stunned(),
		Airborne:       e.airborne,
		Poisoned:       e.poisonStacks > 0,
	}
	if !e.IsPlayer {
		s.AI = e.AI.String()
	}
	return s
}
