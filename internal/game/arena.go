package game

import (
	"errors"
	"fmt"
	"log"
	"strings"
)

// Map runes.
const (
	RuneWall        = '#'
	RuneBox         = 'X'
	RuneWater       = 'W'
	RuneCover       = '~'
	RunePlayerSpawn = 'P'
	RuneBotSpawn    = 'S'
)

// Point is a world-space position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Arena is a parsed map: the tile world plus the spawn points it declares.
type Arena struct {
	Name        string
	World       *TileWorld
	PlayerSpawn *Point
	BotSpawns   []Point
}

var ErrEmptyMap = errors.New("map has no rows")

// ParseArena builds an Arena from ASCII rows. The grid is surrounded by an
// indestructible border ring, so map coordinates shift by one cell.
func ParseArena(name string, rows []string, tileSize float64) (*Arena, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyMap
	}
	width := 0
	for _, r := range rows {
		if n := len([]rune(r)); n > width {
			width = n
		}
	}
	if width == 0 {
		return nil, fmt.Errorf("parse map %q: %w", name, ErrEmptyMap)
	}

	cols, nrows := width+2, len(rows)+2
	w := NewTileWorld(cols, nrows, tileSize)
	for c := 0; c < cols; c++ {
		w.Set(c, 0, TileBorder)
		w.Set(c, nrows-1, TileBorder)
	}
	for r := 0; r < nrows; r++ {
		w.Set(0, r, TileBorder)
		w.Set(cols-1, r, TileBorder)
	}

	a := &Arena{Name: name, World: w}
	center := func(col, row int) Point {
		return Point{
			X: (float64(col) + 0.5) * tileSize,
			Y: (float64(row) + 0.5) * tileSize,
		}
	}

	for y, line := range rows {
		for x, ch := range []rune(line) {
			col, row := x+1, y+1
			switch ch {
			case RuneWall:
				w.Set(col, row, TileWall)
			case RuneBox:
				w.Set(col, row, TileBox)
			case RuneWater:
				w.Set(col, row, TileWater)
			case RuneCover:
				w.SetCover(col, row, true)
			case RunePlayerSpawn:
				p := center(col, row)
				a.PlayerSpawn = &p
			case RuneBotSpawn:
				a.BotSpawns = append(a.BotSpawns, center(col, row))
			}
		}
	}
	return a, nil
}

// FallbackArena is a small empty enclosed room.
func FallbackArena(tileSize float64) *Arena {
	row := strings.Repeat(".", 16)
	rows := make([]string, 16)
	for i := range rows {
		rows[i] = row
	}
	a, _ := ParseArena("fallback", rows, tileSize)
	return a
}

// LoadArena parses rows, falling back to FallbackArena when they are unusable.
func LoadArena(name string, rows []string, tileSize float64) *Arena {
	a, err := ParseArena(name, rows, tileSize)
	if err != nil {
		log.Printf("⚠️ Map %q unusable (%v), using fallback arena", name, err)
		return FallbackArena(tileSize)
	}
	return a
}

// BuiltinMap returns the layout for a mode.
func BuiltinMap(mode Mode) []string {
	if mode == ModeKnockout {
		return knockoutMap
	}
	return showdownMap
}

var showdownMap = []string{
	"..............................",
	"..~~~......####......~~~......",
	"..~~~..............X.~~~......",
	"..........XX..................",
	"....###..........~~~....###...",
	"....#............~~~......#...",
	"..........~~..................",
	"..WW......~~.....####.........",
	"..WW..........................",
	"........X.........~~....X.....",
	"..~~~...X.....#...~~....X.....",
	"..~~~.........#...............",
	"..............#......WWW......",
	"....####.............WWW......",
	"..............................",
	"..............................",
	"......WWW.............####....",
	"......WWW......#..............",
	"...............#.........~~~..",
	".....X....~~...#.....X...~~~..",
	".....X....~~.........X........",
	"..........................WW..",
	".........####.....~~......WW..",
	"..................~~..........",
	"...#......~~~............#....",
	"...#....................###...",
	"......XX.........XX...........",
	"......~~~..####.........~~~...",
	"......~~~...............~~~...",
	"..............................",
}

var knockoutMap = []string{
	"......................",
	"....~~~.......~~~.....",
	"....~~~..####.~~~.....",
	"......................",
	"..XX......~~......XX..",
	"..........~~..........",
	"....###.........###...",
	"......................",
	"..~~~....WWWW....~~~..",
	"..~~~....WWWW....~~~..",
	"......................",
	"....###.........###...",
	"..........~~..........",
	"..XX......~~......XX..",
	"......................",
	"....~~~.####..~~~.....",
	"....~~~.......~~~.....",
	"......................",
}
