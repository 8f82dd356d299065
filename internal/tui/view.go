// Package tui draws match snapshots on a character grid and turns key
// presses into player input.
package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/gdamore/tcell/v2"

	"showdown/internal/game"
	"showdown/internal/render"
)

// Canvas is the subset of tcell.Screen the view draws on.
type Canvas interface {
	SetContent(x, y int, primary rune, combining []rune, style tcell.Style)
	Size() (width, height int)
}

// HUDRows is the number of text rows reserved under the arena.
const HUDRows = 2

var (
	styleFloor  = tcell.StyleDefault.Background(tcell.ColorDarkGreen).Foreground(tcell.ColorGreen)
	styleCover  = tcell.StyleDefault.Background(tcell.ColorDarkOliveGreen).Foreground(tcell.ColorYellowGreen)
	styleWall   = tcell.StyleDefault.Background(tcell.ColorSaddleBrown).Foreground(tcell.ColorPeru)
	styleBox    = tcell.StyleDefault.Background(tcell.ColorPeru).Foreground(tcell.ColorSaddleBrown)
	styleBorder = tcell.StyleDefault.Background(tcell.ColorSlateGray).Foreground(tcell.ColorGray)
	styleWater  = tcell.StyleDefault.Background(tcell.ColorRoyalBlue).Foreground(tcell.ColorLightBlue)
	styleGas    = tcell.StyleDefault.Background(tcell.ColorOliveDrab).Foreground(tcell.ColorGreenYellow)
	styleHUD    = tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite)
	styleResult = tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorYellow).Bold(true)
)

// Glyphs used on the grid.
const (
	GlyphFloor      = ' '
	GlyphCover      = '"'
	GlyphWall       = '#'
	GlyphBox        = 'X'
	GlyphBorder     = '█'
	GlyphWater      = '~'
	GlyphGas        = '░'
	GlyphPool       = '○'
	GlyphMine       = '*'
	GlyphProjectile = '•'
	GlyphPlayer     = '@'
)

// View maps world coordinates onto a canvas.
type View struct {
	canvas Canvas

	// per-snapshot layout
	sx, sy        float64
	width, height int
}

// NewView creates a view drawing on c.
func NewView(c Canvas) *View {
	return &View{canvas: c}
}

// Cell returns the canvas cell for a world position under the last layout.
func (v *View) Cell(x, y float64) (int, int) {
	return int(x * v.sx), int(y * v.sy)
}

func (v *View) layout(snap *game.Snapshot) bool {
	w, h := v.canvas.Size()
	h -= HUDRows
	if w <= 0 || h <= 0 || snap.Width <= 0 || snap.Height <= 0 {
		return false
	}
	v.width, v.height = w, h
	v.sx = float64(w) / snap.Width
	v.sy = float64(h) / snap.Height
	return true
}

// Draw paints snap over the whole canvas. The caller shows the screen.
func (v *View) Draw(snap *game.Snapshot) {
	if snap == nil || !v.layout(snap) {
		return
	}

	tiles := make(map[[2]int]string, len(snap.Tiles))
	for _, t := range snap.Tiles {
		tiles[[2]int{t.Col, t.Row}] = t.Kind
	}
	cover := make(map[[2]int]bool, len(snap.Cover))
	for _, c := range snap.Cover {
		cover[c] = true
	}

	inset := 0.0
	if snap.Zone.Enabled {
		inset = snap.Zone.Inset
	}

	// Terrain: sample the world at each cell center.
	for cy := 0; cy < v.height; cy++ {
		wy := (float64(cy) + 0.5) / v.sy
		for cx := 0; cx < v.width; cx++ {
			wx := (float64(cx) + 0.5) / v.sx
			key := [2]int{int(wx / snap.TileSize), int(wy / snap.TileSize)}

			glyph, style := terrain(tiles[key], cover[key])
			if tiles[key] == "" && inset > 0 &&
				(wx < inset || wy < inset || wx > snap.Width-inset || wy > snap.Height-inset) {
				glyph, style = GlyphGas, styleGas
			}
			v.canvas.SetContent(cx, cy, glyph, nil, style)
		}
	}

	for _, hz := range snap.Hazards {
		glyph := GlyphPool
		if hz.Kind == "mine" {
			glyph = GlyphMine
		}
		v.put(hz.X, hz.Y, glyph, styleFloor.Foreground(teamColor(hz.Team)))
	}

	for _, p := range snap.Projectiles {
		v.put(p.X, p.Y, GlyphProjectile, styleFloor.Foreground(tcell.ColorYellow))
	}

	for _, e := range snap.Entities {
		if e.Hidden && !e.IsPlayer {
			continue
		}
		style := tcell.StyleDefault.Background(teamColor(e.Team)).Foreground(tcell.ColorWhite)
		glyph := entityGlyph(e)
		if e.IsPlayer {
			glyph = GlyphPlayer
			style = style.Bold(true)
		}
		v.put(e.X, e.Y, glyph, style)
	}

	v.drawHUD(snap)
}

func (v *View) put(x, y float64, glyph rune, style tcell.Style) {
	cx, cy := v.Cell(x, y)
	if cx < 0 || cy < 0 || cx >= v.width || cy >= v.height {
		return
	}
	v.canvas.SetContent(cx, cy, glyph, nil, style)
}

func (v *View) drawHUD(snap *game.Snapshot) {
	w, _ := v.canvas.Size()
	status := HUDLine(snap)
	result := ""
	if snap.Outcome != game.InProgress {
		result = fmt.Sprintf("%s  rank #%d  (r: new match, q: quit)", snap.Outcome, snap.Rank)
	} else {
		result = "WASD move  arrows aim  space fire  e super  r restart  q quit"
	}
	v.text(0, v.height, w, status, styleHUD)
	if snap.Outcome != game.InProgress {
		v.text(0, v.height+1, w, result, styleResult)
	} else {
		v.text(0, v.height+1, w, result, styleHUD)
	}
}

func (v *View) text(x, y, width int, s string, style tcell.Style) {
	col := x
	for _, r := range s {
		if col >= width {
			return
		}
		v.canvas.SetContent(col, y, r, nil, style)
		col++
	}
	for ; col < width; col++ {
		v.canvas.SetContent(col, y, ' ', nil, style)
	}
}

// HUDLine summarizes the player's state.
func HUDLine(snap *game.Snapshot) string {
	alive := len(snap.Entities)
	p, ok := snap.Player()
	if !ok {
		return fmt.Sprintf("eliminated  alive %d  %s %.0fs", alive, snap.Mode, snap.Elapsed)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s  HP %d/%d  ammo ", p.Name, p.HP, p.MaxHP)
	for i := 0; i < p.MaxAmmo; i++ {
		if i < p.Ammo {
			b.WriteRune('■')
		} else {
			b.WriteRune('□')
		}
	}
	fmt.Fprintf(&b, "  super %d%%  alive %d  zone %s  %.0fs", p.Charge, alive, snap.Zone.Phase, snap.Elapsed)
	if p.Hidden {
		b.WriteString("  [hidden]")
	}
	if p.Poisoned {
		b.WriteString("  [poisoned]")
	}
	return b.String()
}

func terrain(kind string, cover bool) (rune, tcell.Style) {
	switch kind {
	case "wall":
		return GlyphWall, styleWall
	case "box":
		return GlyphBox, styleBox
	case "border":
		return GlyphBorder, styleBorder
	case "water":
		return GlyphWater, styleWater
	}
	if cover {
		return GlyphCover, styleCover
	}
	return GlyphFloor, styleFloor
}

func entityGlyph(e game.EntitySnapshot) rune {
	for _, r := range e.Name {
		return r
	}
	return '?'
}

func teamColor(team int) tcell.Color {
	c := render.TeamColor(team)
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}

// aimPoint projects a direction from the player out to a fixed distance.
func aimPoint(p game.EntitySnapshot, dx, dy float64) (float64, float64) {
	const reach = 400.0
	l := math.Hypot(dx, dy)
	if l == 0 {
		return p.X + reach*math.Cos(p.Facing), p.Y + reach*math.Sin(p.Facing)
	}
	return p.X + dx/l*reach, p.Y + dy/l*reach
}
