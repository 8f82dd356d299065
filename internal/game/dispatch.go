package game

import (
	"math"
	"time"
)

// TryAttack fires e's normal attack toward (aimX, aimY). Attacks without
// ammo, during cooldown, or while stunned, rooted or mid-movement are
// silently rejected.
func (m *Match) TryAttack(e *Entity, aimX, aimY float64) bool {
	if m.Outcome != InProgress || !e.Alive() || e.busy(m.Now) {
		return false
	}
	if e.Ammo <= 0 || m.Now < e.nextAttackAt {
		return false
	}

	e.Ammo--
	e.nextAttackAt = m.Now + e.Character.Cooldown()
	e.reveal = m.cfg.Match.RevealDuration
	if e.IsPlayer {
		m.emit(EventAmmoChanged, e, AmmoPayload{Ammo: e.Ammo, MaxAmmo: e.MaxAmmo})
	}

	m.dispatch(e, &e.Character.Attack, aimX, aimY, false)
	return true
}

// TryAbility spends the ability charge and runs the ability pattern.
func (m *Match) TryAbility(e *Entity, aimX, aimY float64) bool {
	p := &e.Character.Ability
	if m.Outcome != InProgress || !e.Alive() || e.busy(m.Now) {
		return false
	}
	if e.Charge < p.ChargeCost {
		return false
	}

	e.Charge -= p.ChargeCost
	e.reveal = m.cfg.Match.RevealDuration
	m.emit(EventAbilityUsed, e, AbilityUsedPayload{Character: e.Character.Name})

	m.dispatch(e, p, aimX, aimY, true)
	return true
}

// dispatch interprets a pattern: instant modifiers first (heal, cloak), then
// at most one deferring modifier (windup, dash, jump) wrapping the release.
func (m *Match) dispatch(e *Entity, p *Pattern, aimX, aimY float64, fromAbility bool) {
	angle := math.Atan2(aimY-e.Y, aimX-e.X)
	aimDist := math.Hypot(aimX-e.X, aimY-e.Y)
	e.Facing = angle

	if p.Heal > 0 {
		if healed := e.Heal(p.Heal); healed > 0 {
			m.emit(EventHeal, e, HealPayload{Amount: healed, HP: e.HP})
		}
	}
	if p.CloakMS > 0 {
		e.cloak = p.Cloak()
		e.reveal = 0
	}

	switch {
	case p.WindupMS > 0:
		e.rootedUntil = m.Now + p.Windup()
		e.VX, e.VY = 0, 0
		m.schedule(m.Now+p.Windup(), e, func(m *Match) {
			m.release(e, p, angle, aimDist, fromAbility)
		})

	case p.Dash != nil:
		e.dash = &dashState{
			dirX:        math.Cos(angle),
			dirY:        math.Sin(angle),
			speed:       p.Dash.Speed,
			remaining:   p.Dash.Distance,
			breakWalls:  p.Behavior.Has(BehaviorWallBreak),
			angle:       angle,
			aimDist:     aimDist,
			pattern:     p,
			fromAbility: fromAbility,
		}

	case p.Jump != nil:
		dist := math.Min(aimDist, p.Jump.Range)
		tx, ty := e.X+math.Cos(angle)*dist, e.Y+math.Sin(angle)*dist
		e.airborne = true
		e.VX, e.VY = 0, 0
		landed := m.schedule(m.Now+ms(p.Jump.DurationMS), e, func(m *Match) {
			e.X, e.Y = m.World.NearestOpen(tx, ty, BodyHalfSize)
			e.airborne = false
			m.release(e, p, angle, aimDist, fromAbility)
		})
		if !landed {
			e.airborne = false
		}

	default:
		m.release(e, p, angle, aimDist, fromAbility)
	}
}

// release emits the pattern's area burst and shots from e's position.
func (m *Match) release(e *Entity, p *Pattern, angle, aimDist float64, fromAbility bool) {
	if p.AreaRadius > 0 && p.Damage > 0 {
		if p.Behavior.Has(BehaviorWallBreak) {
			m.breakArea(e.X, e.Y, p.AreaRadius, e)
		}
		hits := m.Explode(e.X, e.Y, p.AreaRadius, p.Damage, e, e.Team)
		if hits > 0 && e.IsPlayer && !fromAbility {
			m.grantCharge(e, m.cfg.Match.ChargePerHit*hits)
		}
	}
	if !p.Shoots() {
		return
	}

	if p.BurstDelayMS > 0 && p.Count > 1 {
		m.fireFan(e, p, angle, aimDist, p.Pellets, fromAbility)
		for i := 1; i < p.Count; i++ {
			m.schedule(m.Now+time.Duration(i)*p.BurstDelay(), e, func(m *Match) {
				m.fireFan(e, p, angle, aimDist, p.Pellets, fromAbility)
			})
		}
		return
	}
	m.fireFan(e, p, angle, aimDist, p.Count, fromAbility)
}

// fireFan spawns n shots evenly across the pattern spread, centered on angle.
func (m *Match) fireFan(e *Entity, p *Pattern, angle, aimDist float64, n int, fromAbility bool) {
	start, step := angle, 0.0
	if n > 1 {
		start = angle - p.Spread/2
		step = p.Spread / float64(n-1)
	}
	for i := 0; i < n; i++ {
		m.fireShot(e, p, start+step*float64(i), aimDist, fromAbility)
	}
}

func (m *Match) fireShot(e *Entity, p *Pattern, angle, aimDist float64, fromAbility bool) *Projectile {
	rng := p.Range
	if p.Behavior.Has(BehaviorLob) && aimDist > 0 {
		rng = math.Min(aimDist, p.Range)
	}
	proj := m.SpawnProjectile(e.X, e.Y, angle, p.Speed, rng, p.Damage, e, p.Behavior, Payload{
		Hazard:       p.Hazard,
		PoisonStacks: p.PoisonStacks,
		Stun:         p.Stun(),
		Split:        p.Split,
		Knockback:    p.Knockback,
	})
	if proj != nil {
		proj.Scaling = p.DistanceScaling
		proj.Ability = fromAbility
	}
	return proj
}

// grantCharge adds ability charge, capped at ChargeMax.
func (m *Match) grantCharge(e *Entity, amount int) {
	if amount <= 0 {
		return
	}
	before := e.Charge
	e.Charge += amount
	if e.Charge > ChargeMax {
		e.Charge = ChargeMax
	}
	if e.IsPlayer && before < e.Character.Ability.ChargeCost && e.Charge >= e.Character.Ability.ChargeCost {
		m.emit(EventAbilityReady, e, AbilityReadyPayload{Charge: e.Charge})
	}
}
