package tui

import (
	"math"
	"time"

	"github.com/gdamore/tcell/v2"

	"showdown/internal/game"
)

// Terminals report key presses but not releases, so a press holds its
// direction for a short window and repeats from the keyboard extend it.
const (
	DefaultMoveHold = 150 * time.Millisecond
	DefaultAimHold  = 1500 * time.Millisecond
)

// Action is a non-gameplay command produced by a key press.
type Action int

const (
	ActionNone Action = iota
	ActionQuit
	ActionRestart
)

type direction int

const (
	dirUp direction = iota
	dirDown
	dirLeft
	dirRight
)

// Controls turns key events into game input.
type Controls struct {
	MoveHold time.Duration
	AimHold  time.Duration

	moveUntil [4]time.Time

	aimX, aimY float64
	aimUntil   time.Time

	fire    bool
	ability bool
}

// NewControls returns controls with the default hold windows.
func NewControls() *Controls {
	return &Controls{MoveHold: DefaultMoveHold, AimHold: DefaultAimHold}
}

// HandleKey records a key press at now.
func (c *Controls) HandleKey(ev *tcell.EventKey, now time.Time) Action {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return ActionQuit
	case tcell.KeyUp:
		c.aim(0, -1, now)
	case tcell.KeyDown:
		c.aim(0, 1, now)
	case tcell.KeyLeft:
		c.aim(-1, 0, now)
	case tcell.KeyRight:
		c.aim(1, 0, now)
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'w', 'W':
			c.press(dirUp, now)
		case 's', 'S':
			c.press(dirDown, now)
		case 'a', 'A':
			c.press(dirLeft, now)
		case 'd', 'D':
			c.press(dirRight, now)
		case ' ':
			c.fire = true
		case 'e', 'E':
			c.ability = true
		case 'r', 'R':
			return ActionRestart
		case 'q', 'Q':
			return ActionQuit
		}
	}
	return ActionNone
}

func (c *Controls) press(d direction, now time.Time) {
	c.moveUntil[d] = now.Add(c.MoveHold)
	// opposite keys cancel each other
	switch d {
	case dirUp:
		c.moveUntil[dirDown] = time.Time{}
	case dirDown:
		c.moveUntil[dirUp] = time.Time{}
	case dirLeft:
		c.moveUntil[dirRight] = time.Time{}
	case dirRight:
		c.moveUntil[dirLeft] = time.Time{}
	}
}

// aim adds an arrow press to the manual aim direction. Arrows pressed
// together within the hold window combine into a diagonal.
func (c *Controls) aim(dx, dy float64, now time.Time) {
	if now.After(c.aimUntil) {
		c.aimX, c.aimY = 0, 0
	}
	if dx != 0 {
		c.aimX = dx
	}
	if dy != 0 {
		c.aimY = dy
	}
	c.aimUntil = now.Add(c.AimHold)
}

// Reset drops all held keys, e.g. when a new match starts.
func (c *Controls) Reset() {
	*c = Controls{MoveHold: c.MoveHold, AimHold: c.AimHold}
}

// Input builds the command for the current frame. Fire and ability
// presses are reported once.
func (c *Controls) Input(snap *game.Snapshot, now time.Time) game.Input {
	in := game.Input{
		Up:      now.Before(c.moveUntil[dirUp]),
		Down:    now.Before(c.moveUntil[dirDown]),
		Left:    now.Before(c.moveUntil[dirLeft]),
		Right:   now.Before(c.moveUntil[dirRight]),
		Fire:    c.fire,
		Ability: c.ability,
	}
	c.fire, c.ability = false, false

	if snap == nil {
		return in
	}
	p, ok := snap.Player()
	if !ok {
		return in
	}

	switch {
	case now.Before(c.aimUntil):
		in.AimX, in.AimY = aimPoint(p, c.aimX, c.aimY)
	default:
		if target, found := nearestEnemy(snap, p); found {
			in.AimX, in.AimY = target.X, target.Y
		} else {
			in.AimX, in.AimY = aimPoint(p, 0, 0)
		}
	}
	return in
}

func nearestEnemy(snap *game.Snapshot, p game.EntitySnapshot) (game.EntitySnapshot, bool) {
	var best game.EntitySnapshot
	bestDist := math.Inf(1)
	for _, e := range snap.Entities {
		if e.Team == p.Team || e.Hidden {
			continue
		}
		if d := math.Hypot(e.X-p.X, e.Y-p.Y); d < bestDist {
			best, bestDist = e, d
		}
	}
	return best, !math.IsInf(bestDist, 1)
}
