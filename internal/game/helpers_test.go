package game

import (
	"strings"
	"time"

	"showdown/internal/config"
)

// openField is a 20x20 room with no obstacles (22x22 with the border).
func openField() []string {
	rows := make([]string, 20)
	for i := range rows {
		rows[i] = strings.Repeat(".", 20)
	}
	return rows
}

// testConfig disables regeneration and the zone so numbers stay exact.
func testConfig() config.SimConfig {
	cfg := config.DefaultSim()
	cfg.Zone.Enabled = false
	cfg.Match.RegenFraction = 0
	return cfg
}

// newTestMatch creates a match with only the player, placed at (x, y).
func newTestMatch(cfg config.SimConfig, rows []string, player *Character, x, y float64) *Match {
	m := NewMatch(MatchOptions{Map: rows, Seed: 1}, cfg, DefaultRoster())
	m.Player.Character = player
	m.Player.HP, m.Player.MaxHP = player.HP, player.HP
	m.Player.Ammo, m.Player.MaxAmmo = player.Ammo, player.Ammo
	m.Player.Speed = player.Speed
	m.Player.X, m.Player.Y = x, y
	m.DrainEvents()
	return m
}

// dummy builds a stationary-friendly character with the given attack.
func dummy(attack Pattern) *Character {
	c := &Character{Name: "DUMMY", HP: 10000, Speed: 1, Ammo: 3, ReloadMS: 1000, CooldownMS: 100, Attack: attack}
	c.Normalize()
	return c
}

// addTarget adds a stunned bot that neither moves nor shoots.
func addTarget(m *Match, team int, x, y float64) *Entity {
	c := &Character{Name: "TARGET", HP: 5000, Speed: 1}
	c.Normalize()
	e := m.AddEntity(c, team, false, x, y)
	e.Stun(time.Hour)
	return e
}

func step(m *Match, d time.Duration, n int) {
	for i := 0; i < n; i++ {
		m.Update(d)
	}
}

func eventsOf(events []Event, t EventType) []Event {
	var out []Event
	for _, e := range events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
