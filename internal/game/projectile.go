package game

import (
	"fmt"
	"math"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Behavior is a closed set of projectile flags.
type Behavior uint16

const (
	BehaviorPierce Behavior = 1 << iota
	BehaviorBounce
	BehaviorWallBreak
	BehaviorLob
	BehaviorSpawnsPool
	BehaviorSpawnsMine
	BehaviorPoisons
	BehaviorExplodes
	BehaviorStuns
)

var behaviorNames = []struct {
	flag Behavior
	name string
}{
	{BehaviorPierce, "pierce"},
	{BehaviorBounce, "bounce"},
	{BehaviorWallBreak, "wallbreak"},
	{BehaviorLob, "lob"},
	{BehaviorSpawnsPool, "spawns_pool"},
	{BehaviorSpawnsMine, "spawns_mine"},
	{BehaviorPoisons, "poisons"},
	{BehaviorExplodes, "explodes"},
	{BehaviorStuns, "stuns"},
}

// Has reports whether every flag in f is set.
func (b Behavior) Has(f Behavior) bool { return b&f == f }

// Names lists the set flags in declaration order.
func (b Behavior) Names() []string {
	out := []string{}
	for _, bn := range behaviorNames {
		if b.Has(bn.flag) {
			out = append(out, bn.name)
		}
	}
	return out
}

func (b Behavior) String() string { return strings.Join(b.Names(), "|") }

// ParseBehavior converts flag names into a Behavior.
func ParseBehavior(names []string) (Behavior, error) {
	var b Behavior
	for _, n := range names {
		found := false
		for _, bn := range behaviorNames {
			if strings.EqualFold(n, bn.name) {
				b |= bn.flag
				found = true
				break
			}
		}
		if !found {
			return b, fmt.Errorf("unknown behavior %q", n)
		}
	}
	return b, nil
}

// UnmarshalYAML reads a behavior list such as [pierce, wallbreak].
func (b *Behavior) UnmarshalYAML(value *yaml.Node) error {
	var names []string
	if err := value.Decode(&names); err != nil {
		return err
	}
	parsed, err := ParseBehavior(names)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// MarshalJSON writes the flag names.
func (b Behavior) MarshalJSON() ([]byte, error) {
	names := b.Names()
	var sb strings.Builder
	sb.WriteByte('[')
	for i, n := range names {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(`"` + n + `"`)
	}
	sb.WriteByte(']')
	return []byte(sb.String()), nil
}

// Payload is what a projectile carries into a hit or leaves where it lands.
type Payload struct {
	Hazard       *HazardSpec
	PoisonStacks int
	Stun         time.Duration
	Split        *SplitSpec
	Knockback    float64
}

// Projectile is an in-flight shot.
type Projectile struct {
	ID         uint64
	X, Y       float64
	PrevX      float64
	PrevY      float64
	DirX, DirY float64 // unit direction
	Speed      float64 // units per second
	Range      float64
	Traveled   float64
	Damage     int
	Owner      *Entity
	OwnerTeam  int
	Behavior   Behavior
	Payload    Payload
	Scaling    bool // damage grows with distance traveled
	Ability    bool // fired by an ability; hits grant no charge
	Active     bool

	hit map[*Entity]struct{}
}

// Projectile system constants.
const (
	MaxSubStep     = 10.0 // longest single advance, below the smallest hitbox
	MinScaleFactor = 0.4  // distance-scaled damage at zero range
)

// SpawnProjectile creates a shot at (x, y) heading along angle. Returns nil
// when the projectile cap is reached.
func (m *Match) SpawnProjectile(x, y, angle, speed, rng float64, damage int, owner *Entity, behavior Behavior, payload Payload) *Projectile {
	if len(m.Projectiles) >= m.cfg.Limits.MaxProjectiles {
		return nil
	}
	m.nextProjectileID++
	p := &Projectile{
		ID:       m.nextProjectileID,
		X:        x,
		Y:        y,
		PrevX:    x,
		PrevY:    y,
		DirX:     math.Cos(angle),
		DirY:     math.Sin(angle),
		Speed:    speed,
		Range:    rng,
		Damage:   damage,
		Owner:    owner,
		Behavior: behavior,
		Payload:  payload,
		Active:   true,
		hit:      make(map[*Entity]struct{}),
	}
	if owner != nil {
		p.OwnerTeam = owner.Team
	} else {
		p.OwnerTeam = -1
	}
	m.Projectiles = append(m.Projectiles, p)
	m.projectilesFired++
	return p
}

// Angle is the current heading.
func (p *Projectile) Angle() float64 { return math.Atan2(p.DirY, p.DirX) }

// HasHit reports whether e was already damaged by this projectile.
func (p *Projectile) HasHit(e *Entity) bool {
	_, ok := p.hit[e]
	return ok
}

// updateProjectile advances p in sub-steps so fast shots cannot tunnel
// through thin walls or hitboxes.
func (m *Match) updateProjectile(p *Projectile, dt float64) {
	remaining := p.Speed * dt
	for remaining > 0 && p.Active {
		if p.Traveled >= p.Range {
			p.Active = false
			m.land(p)
			return
		}
		step := math.Min(remaining, MaxSubStep)
		if p.Traveled+step > p.Range {
			step = p.Range - p.Traveled
		}
		remaining -= step

		p.PrevX, p.PrevY = p.X, p.Y
		p.X += p.DirX * step
		p.Y += p.DirY * step
		p.Traveled += step

		if !p.Behavior.Has(BehaviorLob) {
			m.projectileVsTiles(p)
			if p.Active {
				m.projectileVsEntities(p)
			}
		}

		if p.Active && p.Traveled >= p.Range-1e-9 {
			p.Active = false
			m.land(p)
		}
	}
}

func (m *Match) projectileVsTiles(p *Projectile) {
	if !m.World.IsBlocked(p.X, p.Y, true) {
		return
	}

	if p.Behavior.Has(BehaviorWallBreak) && m.World.DestroyAt(p.X, p.Y) {
		m.emit(EventTileDestroyed, p.Owner, TileDestroyedPayload{X: p.X, Y: p.Y})
		return
	}
	// piercing shots pass through whatever is left, borders included
	if p.Behavior.Has(BehaviorPierce) {
		return
	}

	if p.Behavior.Has(BehaviorBounce) {
		blockedX := m.World.IsBlocked(p.X, p.PrevY, true)
		blockedY := m.World.IsBlocked(p.PrevX, p.Y, true)
		if blockedX {
			p.DirX = -p.DirX
		}
		if blockedY {
			p.DirY = -p.DirY
		}
		if !blockedX && !blockedY {
			p.DirX, p.DirY = -p.DirX, -p.DirY
		}
		p.X, p.Y = p.PrevX, p.PrevY
		return
	}

	m.impact(p)
}

func (m *Match) projectileVsEntities(p *Projectile) {
	for _, idx := range m.grid.Near(p.X, p.Y, EntityHalfSize) {
		e := m.Entities[idx]
		if e == p.Owner || !e.Targetable() || e.Team == p.OwnerTeam {
			continue
		}
		if _, done := p.hit[e]; done {
			continue
		}
		if !e.Contains(p.X, p.Y) {
			continue
		}

		p.hit[e] = struct{}{}
		m.projectileHit(p, e)

		if !p.Behavior.Has(BehaviorPierce) {
			m.impact(p)
			return
		}
	}
}

func (m *Match) projectileHit(p *Projectile, e *Entity) {
	dmg := p.Damage
	if p.Scaling && p.Range > 0 {
		frac := math.Min(p.Traveled/p.Range, 1)
		dmg = int(math.Round(float64(dmg) * (MinScaleFactor + (1-MinScaleFactor)*frac)))
	}
	m.ApplyDamage(e, dmg, p.Owner)

	if p.Behavior.Has(BehaviorPoisons) && p.Payload.PoisonStacks > 0 {
		e.Poison(p.Payload.PoisonStacks, p.Owner)
	}
	if p.Behavior.Has(BehaviorStuns) && p.Payload.Stun > 0 {
		e.Stun(p.Payload.Stun)
	}
	if p.Payload.Knockback > 0 && e.Alive() {
		m.knockback(e, p.DirX, p.DirY, p.Payload.Knockback)
	}
	if p.Owner != nil && p.Owner.IsPlayer && !p.Ability {
		m.grantCharge(p.Owner, m.cfg.Match.ChargePerHit)
	}
}

// land resolves a projectile's payload where it stopped.
func (m *Match) land(p *Projectile) {
	spec := p.Payload.Hazard
	switch {
	case p.Behavior.Has(BehaviorSpawnsPool):
		m.spawnHazard(HazardPool, p.X, p.Y, spec, p.Damage, p.Owner, p.OwnerTeam)
	case p.Behavior.Has(BehaviorSpawnsMine):
		m.spawnHazard(HazardMine, p.X, p.Y, spec, p.Damage, p.Owner, p.OwnerTeam)
	case p.Behavior.Has(BehaviorExplodes):
		radius := DefaultHazardRange
		if spec != nil {
			radius = spec.Radius
		}
		if p.Behavior.Has(BehaviorWallBreak) {
			m.breakArea(p.X, p.Y, radius, p.Owner)
		}
		m.Explode(p.X, p.Y, radius, p.Damage, p.Owner, p.OwnerTeam)
	}
	m.split(p)
}

// impact stops p against a wall or a body.
func (m *Match) impact(p *Projectile) {
	p.Active = false
	if p.Behavior.Has(BehaviorExplodes) {
		m.land(p)
		return
	}
	m.split(p)
}

// split fans p's fragments evenly around the point where it stopped.
// Fragments skip whoever p already hit.
func (m *Match) split(p *Projectile) {
	s := p.Payload.Split
	if s == nil || s.Count <= 0 {
		return
	}
	x, y := p.X, p.Y
	if m.World.IsBlocked(x, y, true) {
		x, y = p.PrevX, p.PrevY
	}
	step := 2 * math.Pi / float64(s.Count)
	for i := 0; i < s.Count; i++ {
		frag := m.SpawnProjectile(x, y, step*float64(i), s.Speed, s.Range, s.Damage, p.Owner, 0, Payload{})
		if frag == nil {
			return
		}
		frag.OwnerTeam = p.OwnerTeam
		frag.Ability = p.Ability
		for e := range p.hit {
			frag.hit[e] = struct{}{}
		}
	}
}

// compactProjectiles drops inactive projectiles in place.
func (m *Match) compactProjectiles() {
	n := 0
	for _, p := range m.Projectiles {
		if p.Active {
			m.Projectiles[n] = p
			n++
		}
	}
	for i := n; i < len(m.Projectiles); i++ {
		m.Projectiles[i] = nil
	}
	m.Projectiles = m.Projectiles[:n]
}

// ProjectileSnapshot is an immutable copy of projectile state for clients.
type ProjectileSnapshot struct {
	ID       uint64   `json:"id"`
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Angle    float64  `json:"angle"`
	OwnerID  string   `json:"ownerId,omitempty"`
	Team     int      `json:"team"`
	Behavior Behavior `json:"behavior"`
	Lob      bool     `json:"lob"`
	Progress float64  `json:"progress"` // traveled / range, for lob arcs
}

// ToSnapshot copies the projectile for rendering.
func (p *Projectile) ToSnapshot() ProjectileSnapshot {
	s := ProjectileSnapshot{
		ID:       p.ID,
		X:        p.X,
		Y:        p.Y,
		Angle:    p.Angle(),
		Team:     p.OwnerTeam,
		Behavior: p.Behavior,
		Lob:      p.Behavior.Has(BehaviorLob),
	}
	if p.Owner != nil {
		s.OwnerID = p.Owner.ID
	}
	if p.Range > 0 {
		s.Progress = p.Traveled / p.Range
	}
	return s
}
