package game

import (
	"math"
)

// TileKind classifies a blocking map cell.
type TileKind uint8

const (
	TileFloor  TileKind = iota // empty, never stored
	TileWall                   // breakable
	TileBorder                 // map edge, indestructible
	TileBox                    // breakable crate
	TileWater                  // blocks walking, not projectiles
)

// String returns the wire name of a tile kind.
func (k TileKind) String() string {
	switch k {
	case TileWall:
		return "wall"
	case TileBorder:
		return "border"
	case TileBox:
		return "box"
	case TileWater:
		return "water"
	default:
		return "floor"
	}
}

// Breakable reports whether wall-breaking attacks can destroy the tile.
func (k TileKind) Breakable() bool {
	return k == TileWall || k == TileBox
}

// Tile is an axis-aligned solid rectangle.
type Tile struct {
	Col, Row int
	X, Y     float64 // top-left corner
	Size     float64
	Kind     TileKind
}

// Contains reports whether (x, y) lies inside the tile.
func (t *Tile) Contains(x, y float64) bool {
	return x >= t.X && x < t.X+t.Size && y >= t.Y && y < t.Y+t.Size
}

// TileWorld is the static map: a dense row-major grid of solid tiles plus an
// independent cover layer. Points outside the grid behave as border.
type TileWorld struct {
	tileSize   float64
	cols, rows int
	solid      []*Tile
	cover      []bool
	solidCount int
	version    uint64 // bumped whenever a tile is destroyed
}

// NewTileWorld creates an empty world of cols x rows cells.
func NewTileWorld(cols, rows int, tileSize float64) *TileWorld {
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	if tileSize <= 0 {
		tileSize = 50
	}
	return &TileWorld{
		tileSize: tileSize,
		cols:     cols,
		rows:     rows,
		solid:    make([]*Tile, cols*rows),
		cover:    make([]bool, cols*rows),
	}
}

// Width of the world in world units.
func (w *TileWorld) Width() float64 { return float64(w.cols) * w.tileSize }

// Height of the world in world units.
func (w *TileWorld) Height() float64 { return float64(w.rows) * w.tileSize }

// TileSize is the edge length of one cell.
func (w *TileWorld) TileSize() float64 { return w.tileSize }

// Dimensions returns the grid size in cells.
func (w *TileWorld) Dimensions() (cols, rows int) { return w.cols, w.rows }

// Version changes every time the solid layer changes.
func (w *TileWorld) Version() uint64 { return w.version }

// Set places a solid tile of the given kind at (col, row).
// TileFloor clears the cell.
func (w *TileWorld) Set(col, row int, kind TileKind) {
	if !w.inGrid(col, row) {
		return
	}
	idx := row*w.cols + col
	if kind == TileFloor {
		if w.solid[idx] != nil {
			w.solidCount--
		}
		w.solid[idx] = nil
		return
	}
	if w.solid[idx] == nil {
		w.solidCount++
	}
	w.solid[idx] = &Tile{
		Col:  col,
		Row:  row,
		X:    float64(col) * w.tileSize,
		Y:    float64(row) * w.tileSize,
		Size: w.tileSize,
		Kind: kind,
	}
}

// SetCover marks (col, row) as concealing cover.
func (w *TileWorld) SetCover(col, row int, cover bool) {
	if w.inGrid(col, row) {
		w.cover[row*w.cols+col] = cover
	}
}

func (w *TileWorld) inGrid(col, row int) bool {
	return col >= 0 && row >= 0 && col < w.cols && row < w.rows
}

func (w *TileWorld) cellOf(x, y float64) (col, row int) {
	return int(math.Floor(x / w.tileSize)), int(math.Floor(y / w.tileSize))
}

// TileAt returns the solid tile containing (x, y), or nil.
func (w *TileWorld) TileAt(x, y float64) *Tile {
	col, row := w.cellOf(x, y)
	if !w.inGrid(col, row) {
		return nil
	}
	return w.solid[row*w.cols+col]
}

// IsBlocked reports whether (x, y) is impassable. Water only stops walkers.
func (w *TileWorld) IsBlocked(x, y float64, isProjectile bool) bool {
	col, row := w.cellOf(x, y)
	if !w.inGrid(col, row) {
		return true
	}
	t := w.solid[row*w.cols+col]
	if t == nil {
		return false
	}
	if t.Kind == TileWater && isProjectile {
		return false
	}
	return true
}

// BoxBlocked tests the four corners of a square body centered at (x, y).
func (w *TileWorld) BoxBlocked(x, y, half float64) bool {
	return w.IsBlocked(x-half, y-half, false) ||
		w.IsBlocked(x+half, y-half, false) ||
		w.IsBlocked(x-half, y+half, false) ||
		w.IsBlocked(x+half, y+half, false)
}

// IsCover reports whether (x, y) is inside concealing cover.
func (w *TileWorld) IsCover(x, y float64) bool {
	col, row := w.cellOf(x, y)
	if !w.inGrid(col, row) {
		return false
	}
	return w.cover[row*w.cols+col]
}

// DestroyAt removes the breakable tile at (x, y). It reports whether a tile
// was removed; borders, water and empty cells are left alone.
func (w *TileWorld) DestroyAt(x, y float64) bool {
	col, row := w.cellOf(x, y)
	if !w.inGrid(col, row) {
		return false
	}
	idx := row*w.cols + col
	t := w.solid[idx]
	if t == nil || !t.Kind.Breakable() {
		return false
	}
	w.solid[idx] = nil
	w.solidCount--
	w.version++
	return true
}

// CastRay marches from (x, y) along angle and returns the distance to the
// first projectile-blocking cell, or maxDist if none is hit.
func (w *TileWorld) CastRay(x, y, angle, maxDist float64) float64 {
	step := w.tileSize / 4
	dx, dy := math.Cos(angle), math.Sin(angle)
	for d := step; d < maxDist; d += step {
		if w.IsBlocked(x+dx*d, y+dy*d, true) {
			return d
		}
	}
	return maxDist
}

// LineClear reports whether nothing blocks projectiles between two points.
func (w *TileWorld) LineClear(x1, y1, x2, y2 float64) bool {
	dist := math.Hypot(x2-x1, y2-y1)
	if dist == 0 {
		return true
	}
	return w.CastRay(x1, y1, math.Atan2(y2-y1, x2-x1), dist) >= dist
}

// NearestOpen searches outward from (x, y) in tile steps for a spot where a
// body of the given half-size fits.
func (w *TileWorld) NearestOpen(x, y, half float64) (float64, float64) {
	if !w.BoxBlocked(x, y, half) {
		return x, y
	}
	maxRing := w.cols
	if w.rows > maxRing {
		maxRing = w.rows
	}
	for ring := 1; ring <= maxRing; ring++ {
		for dr := -ring; dr <= ring; dr++ {
			for dc := -ring; dc <= ring; dc++ {
				if abs(dr) != ring && abs(dc) != ring {
					continue
				}
				cx := x + float64(dc)*w.tileSize
				cy := y + float64(dr)*w.tileSize
				if !w.BoxBlocked(cx, cy, half) {
					return cx, cy
				}
			}
		}
	}
	return x, y
}

// Tiles returns a copy of every remaining solid tile in row-major order.
func (w *TileWorld) Tiles() []Tile {
	out := make([]Tile, 0, w.solidCount)
	for _, t := range w.solid {
		if t != nil {
			out = append(out, *t)
		}
	}
	return out
}

// CoverCells returns the (col, row) of every cover cell.
func (w *TileWorld) CoverCells() [][2]int {
	var out [][2]int
	for i, c := range w.cover {
		if c {
			out = append(out, [2]int{i % w.cols, i / w.cols})
		}
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
