package game

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tick = time.Second / 30

// fire makes the player shoot toward (x, y) on the next tick.
func fire(m *Match, x, y float64) {
	m.SetInput(Input{AimX: x, AimY: y, Fire: true})
	m.Update(tick)
}

func TestProjectileHitScenario(t *testing.T) {
	m := newTestMatch(testConfig(), openField(), dummy(Pattern{Damage: 1000, Range: 400, Speed: 800}), 200, 550)
	target := addTarget(m, 1, 500, 550)

	fire(m, 500, 550)
	require.Len(t, m.Projectiles, 1)
	p := m.Projectiles[0]
	assert.Equal(t, 2, m.Player.Ammo)

	step(m, tick, 20)

	assert.Equal(t, 4000, target.HP)
	assert.Equal(t, 20, m.Player.Charge)
	assert.False(t, p.Active)
	assert.Empty(t, m.Projectiles)

	dmg := eventsOf(m.DrainEvents(), EventDamage)
	require.Len(t, dmg, 1)
	assert.Equal(t, m.Player.ID, dmg[0].EntityID)
}

func TestProjectileExpiresAtRange(t *testing.T) {
	m := newTestMatch(testConfig(), openField(), dummy(Pattern{Damage: 1000, Range: 200, Speed: 800}), 200, 550)
	target := addTarget(m, 1, 500, 550)

	fire(m, 500, 550)
	step(m, tick, 20)

	assert.Equal(t, target.MaxHP, target.HP)
	assert.Empty(t, m.Projectiles)
}

func TestPierceHitsEachEntityOnce(t *testing.T) {
	m := newTestMatch(testConfig(), openField(),
		dummy(Pattern{Damage: 1000, Range: 600, Speed: 800, Behavior: BehaviorPierce}), 200, 550)
	first := addTarget(m, 1, 400, 550)
	second := addTarget(m, 2, 500, 550)
	addTarget(m, 3, 900, 900)

	fire(m, 500, 550)
	step(m, tick, 30)

	assert.Equal(t, 4000, first.HP)
	assert.Equal(t, 4000, second.HP)
	assert.Equal(t, 40, m.Player.Charge)
}

func TestNonPierceStopsAtFirstEntity(t *testing.T) {
	m := newTestMatch(testConfig(), openField(), dummy(Pattern{Damage: 1000, Range: 600, Speed: 800}), 200, 550)
	first := addTarget(m, 1, 400, 550)
	second := addTarget(m, 2, 500, 550)

	fire(m, 500, 550)
	step(m, tick, 30)

	assert.Equal(t, 4000, first.HP)
	assert.Equal(t, second.MaxHP, second.HP)
}

func TestProjectileSkipsTeammates(t *testing.T) {
	m := newTestMatch(testConfig(), openField(), dummy(Pattern{Damage: 1000, Range: 600, Speed: 800}), 200, 550)
	ally := addTarget(m, 0, 350, 550)
	enemy := addTarget(m, 1, 500, 550)

	fire(m, 500, 550)
	step(m, tick, 30)

	assert.Equal(t, ally.MaxHP, ally.HP)
	assert.Equal(t, 4000, enemy.HP)
}

func TestWallStopsShot(t *testing.T) {
	rows := openField()
	rows[10] = ".....#.............." // wall at x 300..350 on the player's row

	m := newTestMatch(testConfig(), rows, dummy(Pattern{Damage: 1000, Range: 600, Speed: 800}), 200, 550)
	target := addTarget(m, 1, 450, 550)

	fire(m, 450, 550)
	step(m, tick, 30)

	assert.Equal(t, target.MaxHP, target.HP)
	assert.NotNil(t, m.World.TileAt(325, 550), "plain shots do not break walls")
}

func TestLobClearsWallsAndLandsAtAim(t *testing.T) {
	rows := openField()
	rows[10] = ".....#.............."

	m := newTestMatch(testConfig(), rows,
		dummy(Pattern{Damage: 1000, Range: 600, Speed: 600, Behavior: BehaviorLob | BehaviorExplodes}), 200, 550)
	target := addTarget(m, 1, 400, 550)

	fire(m, 400, 550)
	require.Len(t, m.Projectiles, 1)
	assert.InDelta(t, 200.0, m.Projectiles[0].Range, 1e-9, "lob range clamps to the aim distance")

	step(m, tick, 20)

	assert.Equal(t, 4000, target.HP)
	assert.Len(t, eventsOf(m.DrainEvents(), EventExplosion), 1)
}

func TestLobRangeCappedByPattern(t *testing.T) {
	m := newTestMatch(testConfig(), openField(),
		dummy(Pattern{Damage: 100, Range: 300, Speed: 600, Behavior: BehaviorLob}), 200, 550)
	addTarget(m, 1, 900, 900)

	fire(m, 900, 550)
	require.Len(t, m.Projectiles, 1)
	assert.Equal(t, 300.0, m.Projectiles[0].Range)
}

func TestWallBreakDestroysBox(t *testing.T) {
	rows := openField()
	rows[10] = ".....X.............."

	m := newTestMatch(testConfig(), rows,
		dummy(Pattern{Damage: 1000, Range: 600, Speed: 800, Behavior: BehaviorWallBreak}), 200, 550)
	target := addTarget(m, 1, 450, 550)
	version := m.World.Version()

	fire(m, 450, 550)
	step(m, tick, 30)

	assert.Nil(t, m.World.TileAt(325, 550))
	assert.Greater(t, m.World.Version(), version)
	assert.Equal(t, 4000, target.HP, "shot continues through the broken box")
	assert.NotEmpty(t, eventsOf(m.DrainEvents(), EventTileDestroyed))
}

func TestPierceWallBreakClearsEveryBox(t *testing.T) {
	rows := openField()
	rows[10] = ".....X.X............"

	m := newTestMatch(testConfig(), rows,
		dummy(Pattern{Damage: 1000, Range: 600, Speed: 800, Behavior: BehaviorPierce | BehaviorWallBreak}), 200, 550)
	target := addTarget(m, 1, 600, 550)

	fire(m, 600, 550)
	require.Len(t, m.Projectiles, 1)
	p := m.Projectiles[0]
	step(m, tick, 30)

	assert.Nil(t, m.World.TileAt(325, 550))
	assert.Nil(t, m.World.TileAt(425, 550))
	assert.Len(t, eventsOf(m.DrainEvents(), EventTileDestroyed), 2)
	assert.Equal(t, 4000, target.HP)
	assert.GreaterOrEqual(t, p.Traveled, 400.0, "pierce keeps flying after breaking a box")
}

func TestWallBreakLeavesBorder(t *testing.T) {
	m := newTestMatch(testConfig(), openField(),
		dummy(Pattern{Damage: 1000, Range: 600, Speed: 800, Behavior: BehaviorWallBreak}), 950, 550)
	addTarget(m, 1, 200, 200)

	fire(m, 1100, 550)
	step(m, tick, 30)

	assert.NotNil(t, m.World.TileAt(1075, 550))
	assert.Empty(t, m.Projectiles)
}

func TestBounceReflects(t *testing.T) {
	m := newTestMatch(testConfig(), openField(),
		dummy(Pattern{Damage: 100, Range: 400, Speed: 800, Behavior: BehaviorBounce}), 950, 550)
	addTarget(m, 1, 200, 200)

	fire(m, 1100, 550)
	require.Len(t, m.Projectiles, 1)
	p := m.Projectiles[0]

	step(m, tick, 6)
	assert.True(t, p.Active)
	assert.Less(t, p.DirX, 0.0)
	assert.Less(t, p.X, 1050.0)
}

func TestDistanceScaling(t *testing.T) {
	m := newTestMatch(testConfig(), openField(),
		dummy(Pattern{Damage: 1000, Range: 400, Speed: 800, DistanceScaling: true}), 200, 550)
	target := addTarget(m, 1, 300, 550)

	fire(m, 300, 550)
	step(m, tick, 10)

	lost := target.MaxHP - target.HP
	assert.Greater(t, lost, 400)
	assert.Less(t, lost, 1000)
}

func TestPoisonAndStunPayload(t *testing.T) {
	m := newTestMatch(testConfig(), openField(),
		dummy(Pattern{Damage: 100, Range: 400, Speed: 800, StunMS: 1000, Behavior: BehaviorPoisons | BehaviorStuns}), 200, 550)
	target := addTarget(m, 1, 300, 550)
	target.stun = 0

	fire(m, 300, 550)
	step(m, tick, 5)

	assert.Equal(t, 4, target.PoisonStacks())
	assert.True(t, target.Stunned())

	step(m, 100*time.Millisecond, 45)
	assert.Zero(t, target.PoisonStacks())
	assert.Equal(t, target.MaxHP-100-4*m.cfg.Hazards.PoisonDamage, target.HP)
}

func TestGrenadeSplitsIntoFragments(t *testing.T) {
	m := newTestMatch(testConfig(), openField(), dummy(Pattern{
		Damage:   100,
		Range:    300,
		Speed:    600,
		Behavior: BehaviorLob | BehaviorExplodes,
		Hazard:   &HazardSpec{Radius: 50},
		Split:    &SplitSpec{Count: 6, Damage: 50, Range: 150, Speed: 800},
	}), 200, 550)
	target := addTarget(m, 1, 480, 550)

	fire(m, 400, 550)
	require.Len(t, m.Projectiles, 1)
	grenade := m.Projectiles[0]
	for i := 0; i < 30 && grenade.Active; i++ {
		m.Update(tick)
	}
	require.False(t, grenade.Active)

	require.Len(t, m.Projectiles, 6)
	for i, frag := range m.Projectiles {
		if frag.Damage != 50 {
			t.Errorf("Expected fragment damage 50, got %d", frag.Damage)
		}
		assert.Equal(t, m.Player.Team, frag.OwnerTeam)
		assert.InDelta(t, math.Cos(float64(i)*math.Pi/3), frag.DirX, 1e-9)
		assert.InDelta(t, math.Sin(float64(i)*math.Pi/3), frag.DirY, 1e-9)
	}

	step(m, tick, 10)
	assert.Equal(t, target.MaxHP-50, target.HP, "only the eastward fragment reaches the target")
}

func TestSplitOnDirectHit(t *testing.T) {
	m := newTestMatch(testConfig(), openField(), dummy(Pattern{
		Damage: 100,
		Range:  400,
		Speed:  800,
		Split:  &SplitSpec{Count: 4, Damage: 50, Range: 100, Speed: 800},
	}), 200, 550)
	target := addTarget(m, 1, 300, 550)

	fire(m, 300, 550)
	step(m, tick, 10)

	assert.Equal(t, target.MaxHP-100, target.HP, "fragments skip the entity already hit")
	assert.Equal(t, uint64(5), m.projectilesFired)
}

func TestKnockbackPushesTarget(t *testing.T) {
	m := newTestMatch(testConfig(), openField(),
		dummy(Pattern{Damage: 100, Range: 400, Speed: 800, Knockback: 30}), 200, 550)
	target := addTarget(m, 1, 300, 550)

	fire(m, 300, 550)
	step(m, tick, 5)

	assert.Equal(t, target.MaxHP-100, target.HP)
	assert.InDelta(t, 330.0, target.X, 1e-9)
	assert.InDelta(t, 550.0, target.Y, 1e-9)
}

func TestKnockbackStopsAtWall(t *testing.T) {
	rows := openField()
	rows[10] = ".......X............"

	m := newTestMatch(testConfig(), rows,
		dummy(Pattern{Damage: 100, Range: 400, Speed: 800, Knockback: 100}), 200, 550)
	target := addTarget(m, 1, 370, 550)

	fire(m, 370, 550)
	step(m, tick, 8)

	assert.Equal(t, target.MaxHP-100, target.HP)
	assert.Greater(t, target.X, 370.0)
	assert.LessOrEqual(t, target.X+BodyHalfSize, 400.0, "the box stops the push")
	assert.NotNil(t, m.World.TileAt(425, 550))
}

func TestProjectileCap(t *testing.T) {
	cfg := testConfig()
	cfg.Limits.MaxProjectiles = 2
	m := newTestMatch(cfg, openField(), dummy(Pattern{Damage: 1, Count: 5, Spread: 1, Range: 400, Speed: 100}), 550, 550)
	addTarget(m, 1, 200, 200)

	fire(m, 900, 550)
	assert.Len(t, m.Projectiles, 2)
}
