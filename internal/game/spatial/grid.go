// Package spatial provides a uniform bucket grid used for entity proximity
// queries (explosions, hazards, AI sight, projectile hit candidates).
//
// Entries are integer indices into the caller's entity slice so the grid
// never holds pointers and can be rebuilt every tick without allocating.
package spatial

import (
	"math"
)

// Grid buckets entity indices into fixed-size square cells.
//
// Cell size should be close to the most common query radius. Entries are
// stored row-major (cells[row*cols+col]).
type Grid struct {
	cellSize    float64
	invCellSize float64
	cols, rows  int
	cells       [][]uint32
	scratch     []uint32
	count       int
}

// NewGrid creates a grid covering worldWidth x worldHeight.
func NewGrid(worldWidth, worldHeight, cellSize float64, expected int) *Grid {
	if cellSize <= 0 {
		cellSize = 100
	}
	cols := int(math.Ceil(worldWidth / cellSize))
	rows := int(math.Ceil(worldHeight / cellSize))
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	cells := make([][]uint32, cols*rows)
	perCell := expected / len(cells)
	if perCell < 2 {
		perCell = 2
	}
	for i := range cells {
		cells[i] = make([]uint32, 0, perCell)
	}

	return &Grid{
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		cols:        cols,
		rows:        rows,
		cells:       cells,
		scratch:     make([]uint32, 0, 32),
	}
}

// Reset empties every bucket, keeping capacity.
func (g *Grid) Reset() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
	g.count = 0
}

// Insert files index id under the cell containing (x, y).
// Positions outside the grid are clamped to the edge cells.
func (g *Grid) Insert(id uint32, x, y float64) {
	col, row := g.clamp(int(math.Floor(x*g.invCellSize)), int(math.Floor(y*g.invCellSize)))
	idx := row*g.cols + col
	g.cells[idx] = append(g.cells[idx], id)
	g.count++
}

func (g *Grid) clamp(col, row int) (int, int) {
	if col < 0 {
		col = 0
	} else if col >= g.cols {
		col = g.cols - 1
	}
	if row < 0 {
		row = 0
	} else if row >= g.rows {
		row = g.rows - 1
	}
	return col, row
}

// Near returns candidate indices whose cell intersects the square around
// (cx, cy) with half-extent radius. Callers must run their own exact test.
//
// The returned slice is reused by the next call.
func (g *Grid) Near(cx, cy, radius float64) []uint32 {
	g.scratch = g.scratch[:0]

	minCol, minRow := g.clamp(int(math.Floor((cx-radius)*g.invCellSize)), int(math.Floor((cy-radius)*g.invCellSize)))
	maxCol, maxRow := g.clamp(int(math.Floor((cx+radius)*g.invCellSize)), int(math.Floor((cy+radius)*g.invCellSize)))

	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			g.scratch = append(g.scratch, g.cells[row*g.cols+col]...)
		}
	}
	return g.scratch
}

// Len is the number of inserted entries since the last Reset.
func (g *Grid) Len() int {
	return g.count
}

// Stats summarizes bucket occupancy for the debug endpoint.
func (g *Grid) Stats() Stats {
	var s Stats
	s.Cells = len(g.cells)
	for _, cell := range g.cells {
		n := len(cell)
		s.Entries += n
		if n > 0 {
			s.Occupied++
		}
		if n > s.MaxInCell {
			s.MaxInCell = n
		}
	}
	return s
}

// Stats is a point-in-time occupancy summary.
type Stats struct {
	Cells     int `json:"cells"`
	Occupied  int `json:"occupied"`
	Entries   int `json:"entries"`
	MaxInCell int `json:"maxInCell"`
}
