package game

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed roster.yaml
var defaultRosterYAML []byte

// Default stats used when a roster entry leaves a field empty.
const (
	DefaultHP          = 3000
	DefaultSpeed       = 180.0
	DefaultAmmo        = 3
	DefaultReloadMS    = 1500
	DefaultCooldownMS  = 500
	DefaultDamage      = 500
	DefaultRange       = 450.0
	DefaultShotSpeed   = 720.0
	DefaultChargeCost  = 100
	DefaultJumpRange   = 400.0
	DefaultJumpMS      = 500
	DefaultDashSpeed   = 1200.0
	DefaultHazardRange = 80.0
	DefaultSplitCount  = 6
	DefaultSplitRange  = 150.0
)

// HazardSpec describes the pool, mine or explosion a pattern leaves behind.
type HazardSpec struct {
	Radius     float64 `yaml:"radius" json:"radius"`
	Damage     int     `yaml:"damage" json:"damage,omitempty"`
	LifetimeMS int     `yaml:"lifetime_ms" json:"lifetimeMs,omitempty"`
}

// DashSpec moves the caster along the aim direction before the pattern fires.
type DashSpec struct {
	Distance float64 `yaml:"distance" json:"distance"`
	Speed    float64 `yaml:"speed" json:"speed"`
}

// JumpSpec makes the caster airborne, landing at the clamped aim point.
type JumpSpec struct {
	DurationMS int     `yaml:"duration_ms" json:"durationMs"`
	Range      float64 `yaml:"range" json:"range"`
}

// SplitSpec fans fragments evenly around the point where a shot stops.
type SplitSpec struct {
	Count  int     `yaml:"count" json:"count"`
	Damage int     `yaml:"damage" json:"damage"`
	Range  float64 `yaml:"range" json:"range"`
	Speed  float64 `yaml:"speed" json:"speed"`
}

// Pattern is a declarative attack or ability. Modifiers (windup, dash,
// jump, heal, cloak) wrap the release, which emits an optional area burst
// around the caster followed by Count shots. Split and Knockback ride on
// the shots.
type Pattern struct {
	Damage          int         `yaml:"damage" json:"damage"`
	Count           int         `yaml:"count" json:"count"`
	Pellets         int         `yaml:"pellets" json:"pellets,omitempty"`
	Spread          float64     `yaml:"spread" json:"spread,omitempty"`
	Range           float64     `yaml:"range" json:"range"`
	Speed           float64     `yaml:"speed" json:"speed"`
	BurstDelayMS    int         `yaml:"burst_delay_ms" json:"burstDelayMs,omitempty"`
	Behavior        Behavior    `yaml:"behavior" json:"behavior"`
	Hazard          *HazardSpec `yaml:"hazard" json:"hazard,omitempty"`
	WindupMS        int         `yaml:"windup_ms" json:"windupMs,omitempty"`
	Dash            *DashSpec   `yaml:"dash" json:"dash,omitempty"`
	Jump            *JumpSpec   `yaml:"jump" json:"jump,omitempty"`
	Heal            int         `yaml:"heal" json:"heal,omitempty"`
	AreaRadius      float64     `yaml:"area_radius" json:"areaRadius,omitempty"`
	StunMS          int         `yaml:"stun_ms" json:"stunMs,omitempty"`
	DistanceScaling bool        `yaml:"distance_scaling" json:"distanceScaling,omitempty"`
	PoisonStacks    int         `yaml:"poison_stacks" json:"poisonStacks,omitempty"`
	ChargeCost      int         `yaml:"charge_cost" json:"chargeCost,omitempty"`
	CloakMS         int         `yaml:"cloak_ms" json:"cloakMs,omitempty"`
	Split           *SplitSpec  `yaml:"split" json:"split,omitempty"`
	Knockback       float64     `yaml:"knockback" json:"knockback,omitempty"` // push per hit, world units
}

// Empty reports whether the pattern can affect nothing: no movement, heal
// or cloak, and neither a shot nor an area burst that carries an effect.
func (p *Pattern) Empty() bool {
	if p.Heal > 0 || p.CloakMS > 0 || p.Dash != nil || p.Jump != nil {
		return false
	}
	shot := p.Speed > 0 && (p.Damage > 0 || p.Hazard != nil || p.Split != nil ||
		p.Knockback > 0 || p.StunMS > 0)
	burst := p.AreaRadius > 0 && p.Damage > 0
	return !shot && !burst
}

// Shoots reports whether the release emits projectiles.
func (p *Pattern) Shoots() bool {
	return p.Speed > 0 && p.Range > 0 && p.Count > 0
}

// Reach is how far from the caster the pattern can affect.
func (p *Pattern) Reach() float64 {
	switch {
	case p.Dash != nil:
		return p.Dash.Distance + p.AreaRadius
	case p.Jump != nil:
		return p.Jump.Range + p.AreaRadius
	case p.Shoots():
		return p.Range
	default:
		return p.AreaRadius
	}
}

func (p *Pattern) BurstDelay() time.Duration { return ms(p.BurstDelayMS) }
func (p *Pattern) Windup() time.Duration     { return ms(p.WindupMS) }
func (p *Pattern) Stun() time.Duration       { return ms(p.StunMS) }
func (p *Pattern) Cloak() time.Duration      { return ms(p.CloakMS) }

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

// Character is one roster entry.
type Character struct {
	Name        string  `yaml:"name" json:"name"`
	Icon        string  `yaml:"icon" json:"icon,omitempty"`
	HP          int     `yaml:"hp" json:"hp"`
	Speed       float64 `yaml:"speed" json:"speed"`
	Ammo        int     `yaml:"ammo" json:"ammo"`
	ReloadMS    int     `yaml:"reload_ms" json:"reloadMs"`
	CooldownMS  int     `yaml:"cooldown_ms" json:"cooldownMs"`
	Description string  `yaml:"description" json:"description,omitempty"`
	Attack      Pattern `yaml:"attack" json:"attack"`
	Ability     Pattern `yaml:"ability" json:"ability"`
}

func (c *Character) Reload() time.Duration   { return ms(c.ReloadMS) }
func (c *Character) Cooldown() time.Duration { return ms(c.CooldownMS) }

// DefaultAbility is used for characters whose ability is missing or empty:
// a fast wall-breaking shot.
func DefaultAbility() Pattern {
	return Pattern{
		Damage:   1000,
		Count:    1,
		Range:    600,
		Speed:    900,
		Behavior: BehaviorWallBreak,
	}
}

// DefaultCharacter is returned for unknown names.
func DefaultCharacter() *Character {
	c := &Character{Name: "DEFAULT"}
	c.Normalize()
	return c
}

// Normalize fills missing or invalid stats with safe defaults.
func (c *Character) Normalize() {
	c.Name = strings.ToUpper(strings.TrimSpace(c.Name))
	if c.HP <= 0 {
		c.HP = DefaultHP
	}
	if c.Speed <= 0 {
		c.Speed = DefaultSpeed
	}
	if c.Ammo <= 0 {
		c.Ammo = DefaultAmmo
	}
	if c.ReloadMS <= 0 {
		c.ReloadMS = DefaultReloadMS
	}
	if c.CooldownMS <= 0 {
		c.CooldownMS = DefaultCooldownMS
	}

	a := &c.Attack
	if a.Damage <= 0 && a.Heal <= 0 {
		a.Damage = DefaultDamage
	}
	if a.Dash == nil && a.Jump == nil && a.AreaRadius <= 0 {
		// plain attacks always shoot
		if a.Speed <= 0 {
			a.Speed = DefaultShotSpeed
		}
		if a.Range <= 0 {
			a.Range = DefaultRange
		}
	}
	a.normalize()

	if c.Ability.Empty() {
		c.Ability = DefaultAbility()
	}
	c.Ability.normalize()
}

func (p *Pattern) normalize() {
	if p.Count <= 0 {
		p.Count = 1
	}
	if p.Pellets <= 0 {
		p.Pellets = 1
	}
	if p.Spread < 0 {
		p.Spread = 0
	}
	if p.Speed > 0 && p.Range <= 0 {
		p.Range = DefaultRange
	}
	if p.ChargeCost <= 0 || p.ChargeCost > ChargeMax {
		p.ChargeCost = DefaultChargeCost
	}
	if p.Dash != nil {
		if p.Dash.Speed <= 0 {
			p.Dash.Speed = DefaultDashSpeed
		}
		if p.Dash.Distance <= 0 {
			p.Dash.Distance = DefaultRange
		}
	}
	if p.Split != nil {
		if p.Split.Count <= 0 {
			p.Split.Count = DefaultSplitCount
		}
		if p.Split.Damage <= 0 {
			p.Split.Damage = DefaultDamage
		}
		if p.Split.Range <= 0 {
			p.Split.Range = DefaultSplitRange
		}
		if p.Split.Speed <= 0 {
			p.Split.Speed = DefaultShotSpeed
		}
	}
	if p.Knockback < 0 {
		p.Knockback = 0
	}
	if p.Jump != nil {
		if p.Jump.DurationMS <= 0 {
			p.Jump.DurationMS = DefaultJumpMS
		}
		if p.Jump.Range <= 0 {
			p.Jump.Range = DefaultJumpRange
		}
	}
	if p.Hazard != nil && p.Hazard.Radius <= 0 {
		p.Hazard.Radius = DefaultHazardRange
	}
	if p.Behavior.Has(BehaviorPoisons) && p.PoisonStacks <= 0 {
		p.PoisonStacks = 4
	}
}

// Roster is the character table keyed by upper-case name.
type Roster struct {
	chars map[string]*Character
	order []string
}

type rosterFile struct {
	Characters []Character `yaml:"characters"`
}

// ParseRoster decodes a YAML roster and normalizes every entry.
func ParseRoster(data []byte) (*Roster, error) {
	var f rosterFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode roster: %w", err)
	}
	if len(f.Characters) == 0 {
		return nil, fmt.Errorf("decode roster: no characters")
	}

	r := &Roster{chars: make(map[string]*Character, len(f.Characters))}
	for i := range f.Characters {
		c := f.Characters[i]
		c.Normalize()
		if c.Name == "" {
			return nil, fmt.Errorf("decode roster: character %d has no name", i)
		}
		if _, dup := r.chars[c.Name]; dup {
			return nil, fmt.Errorf("decode roster: duplicate character %q", c.Name)
		}
		r.chars[c.Name] = &c
		r.order = append(r.order, c.Name)
	}
	return r, nil
}

// LoadRoster reads a roster file from disk.
func LoadRoster(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster %s: %w", path, err)
	}
	return ParseRoster(data)
}

// DefaultRoster returns the embedded character table.
func DefaultRoster() *Roster {
	r, err := ParseRoster(defaultRosterYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded roster is invalid: %v", err))
	}
	return r
}

// Get returns a copy of the named character, or the default character.
// The bool reports whether the name was found.
func (r *Roster) Get(name string) (*Character, bool) {
	if c, ok := r.chars[strings.ToUpper(strings.TrimSpace(name))]; ok {
		cp := *c
		return &cp, true
	}
	return DefaultCharacter(), false
}

// Names returns character names in roster order.
func (r *Roster) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// All returns every character, sorted by name.
func (r *Roster) All() []Character {
	out := make([]Character, 0, len(r.chars))
	for _, c := range r.chars {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len is the number of characters.
func (r *Roster) Len() int { return len(r.order) }
