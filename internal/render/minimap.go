// Package render draws match snapshots as images.
package render

import (
	"errors"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/fogleman/gg"

	"showdown/internal/game"
)

const (
	MinSize     = 32
	MaxSize     = 2048
	DefaultSize = 256
)

// ErrNoSnapshot is returned when there is nothing to draw.
var ErrNoSnapshot = errors.New("render: no snapshot")

var (
	colorFloor  = color.RGBA{46, 139, 87, 255}
	colorCover  = color.RGBA{34, 100, 52, 255}
	colorWall   = color.RGBA{139, 90, 43, 255}
	colorBox    = color.RGBA{205, 133, 63, 255}
	colorBorder = color.RGBA{60, 60, 70, 255}
	colorWater  = color.RGBA{64, 128, 220, 255}
	colorGas    = color.RGBA{120, 220, 80, 110}
	colorPool   = color.RGBA{150, 255, 60, 90}
	colorMine   = color.RGBA{255, 80, 40, 200}
	colorShot   = color.RGBA{255, 240, 120, 255}
	colorPlayer = color.RGBA{255, 255, 255, 255}

	// HP bar colors
	colorHPHigh = color.RGBA{83, 255, 69, 255}
	colorHPMid  = color.RGBA{255, 149, 0, 255}
	colorHPLow  = color.RGBA{255, 62, 62, 255}
)

var teamColors = []color.RGBA{
	{66, 135, 245, 255},
	{235, 64, 52, 255},
	{245, 196, 66, 255},
	{171, 71, 188, 255},
	{0, 188, 212, 255},
	{255, 112, 67, 255},
	{124, 179, 66, 255},
	{236, 64, 122, 255},
	{141, 110, 99, 255},
	{120, 144, 156, 255},
}

// TeamColor returns a stable color for a team index.
func TeamColor(team int) color.RGBA {
	if team < 0 {
		team = -team
	}
	return teamColors[team%len(teamColors)]
}

func tileColor(kind string) color.Color {
	switch kind {
	case "wall":
		return colorWall
	case "box":
		return colorBox
	case "border":
		return colorBorder
	case "water":
		return colorWater
	default:
		return colorFloor
	}
}

// ClampSize keeps a requested image size within sane bounds; zero selects
// the default.
func ClampSize(size int) int {
	switch {
	case size <= 0:
		return DefaultSize
	case size < MinSize:
		return MinSize
	case size > MaxSize:
		return MaxSize
	}
	return size
}

// Draw renders snap into a fresh size x size context.
func Draw(snap *game.Snapshot, size int) (*gg.Context, error) {
	if snap == nil || snap.Width <= 0 || snap.Height <= 0 {
		return nil, ErrNoSnapshot
	}
	size = ClampSize(size)

	dc := gg.NewContext(size, size)
	dc.SetColor(color.Black)
	dc.Clear()

	scale := float64(size) / math.Max(snap.Width, snap.Height)
	dc.Scale(scale, scale)

	dc.SetColor(colorFloor)
	dc.DrawRectangle(0, 0, snap.Width, snap.Height)
	dc.Fill()

	drawCover(dc, snap)
	drawTiles(dc, snap)
	drawZone(dc, snap)
	drawHazards(dc, snap)
	drawProjectiles(dc, snap, scale)
	drawEntities(dc, snap, scale)

	return dc, nil
}

// Minimap renders snap as an image.
func Minimap(snap *game.Snapshot, size int) (image.Image, error) {
	dc, err := Draw(snap, size)
	if err != nil {
		return nil, err
	}
	return dc.Image(), nil
}

// WritePNG encodes the minimap of snap to w.
func WritePNG(w io.Writer, snap *game.Snapshot, size int) error {
	dc, err := Draw(snap, size)
	if err != nil {
		return err
	}
	return dc.EncodePNG(w)
}

func drawCover(dc *gg.Context, snap *game.Snapshot) {
	ts := snap.TileSize
	dc.SetColor(colorCover)
	for _, c := range snap.Cover {
		dc.DrawRectangle(float64(c[0])*ts, float64(c[1])*ts, ts, ts)
	}
	dc.Fill()
}

func drawTiles(dc *gg.Context, snap *game.Snapshot) {
	ts := snap.TileSize
	for _, t := range snap.Tiles {
		dc.SetColor(tileColor(t.Kind))
		dc.DrawRectangle(float64(t.Col)*ts, float64(t.Row)*ts, ts, ts)
		dc.Fill()
	}
}

// drawZone shades the four bands outside the safe rectangle.
func drawZone(dc *gg.Context, snap *game.Snapshot) {
	z := snap.Zone
	if !z.Enabled || z.Inset <= 0 {
		return
	}
	w, h := snap.Width, snap.Height
	inset := math.Min(z.Inset, math.Min(w, h)/2)

	dc.SetColor(colorGas)
	dc.DrawRectangle(0, 0, w, inset)
	dc.DrawRectangle(0, h-inset, w, inset)
	dc.DrawRectangle(0, inset, inset, h-2*inset)
	dc.DrawRectangle(w-inset, inset, inset, h-2*inset)
	dc.Fill()
}

func drawHazards(dc *gg.Context, snap *game.Snapshot) {
	for _, h := range snap.Hazards {
		switch h.Kind {
		case "mine":
			dc.SetColor(colorMine)
			dc.DrawCircle(h.X, h.Y, math.Max(h.Radius/3, 6))
			dc.Fill()
			if h.Armed {
				dc.SetColor(TeamColor(h.Team))
				dc.SetLineWidth(2)
				dc.DrawCircle(h.X, h.Y, h.Radius)
				dc.Stroke()
			}
		default:
			dc.SetColor(colorPool)
			dc.DrawCircle(h.X, h.Y, h.Radius)
			dc.Fill()
		}
	}
}

func drawProjectiles(dc *gg.Context, snap *game.Snapshot, scale float64) {
	// at least one pixel wide
	r := math.Max(6, 1.5/scale)
	for _, p := range snap.Projectiles {
		dc.SetColor(colorShot)
		if p.Lob {
			// lobbed shots swell toward the top of the arc
			dc.DrawCircle(p.X, p.Y, r*(1+math.Sin(p.Progress*math.Pi)))
		} else {
			dc.DrawCircle(p.X, p.Y, r)
		}
		dc.Fill()
	}
}

func drawEntities(dc *gg.Context, snap *game.Snapshot, scale float64) {
	const radius = 20.0
	for _, e := range snap.Entities {
		c := TeamColor(e.Team)
		if e.Hidden && !e.IsPlayer {
			c.A = 90
		}
		dc.SetColor(c)
		dc.DrawCircle(e.X, e.Y, radius)
		dc.Fill()

		if e.IsPlayer {
			dc.SetColor(colorPlayer)
			dc.SetLineWidth(math.Max(3*scale, 1) / scale)
			dc.DrawCircle(e.X, e.Y, radius+4)
			dc.Stroke()
		}

		drawHPBar(dc, e, radius)
	}
}

func drawHPBar(dc *gg.Context, e game.EntitySnapshot, radius float64) {
	if e.MaxHP <= 0 {
		return
	}
	pct := float64(e.HP) / float64(e.MaxHP)
	barW, barH := radius*2, 6.0
	x, y := e.X-radius, e.Y-radius-barH-4

	dc.SetColor(color.RGBA{0, 0, 0, 180})
	dc.DrawRectangle(x, y, barW, barH)
	dc.Fill()

	switch {
	case pct > 0.5:
		dc.SetColor(colorHPHigh)
	case pct > 0.25:
		dc.SetColor(colorHPMid)
	default:
		dc.SetColor(colorHPLow)
	}
	dc.DrawRectangle(x, y, barW*pct, barH)
	dc.Fill()
}
