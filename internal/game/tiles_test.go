package game

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTileWorldBlocking(t *testing.T) {
	w := NewTileWorld(10, 10, 50)
	w.Set(2, 2, TileWall)
	w.Set(3, 3, TileWater)

	tests := []struct {
		name       string
		x, y       float64
		projectile bool
		want       bool
	}{
		{"floor", 25, 25, false, false},
		{"wall blocks walker", 125, 125, false, true},
		{"wall blocks projectile", 125, 125, true, true},
		{"water blocks walker", 175, 175, false, true},
		{"water passes projectile", 175, 175, true, false},
		{"left of grid", -1, 25, true, true},
		{"below grid", 25, 500, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.IsBlocked(tt.x, tt.y, tt.projectile); got != tt.want {
				t.Errorf("Expected IsBlocked(%v, %v, %v) = %v, got %v", tt.x, tt.y, tt.projectile, tt.want, got)
			}
		})
	}
}

func TestTileWorldDestroy(t *testing.T) {
	w := NewTileWorld(10, 10, 50)
	w.Set(0, 0, TileBorder)
	w.Set(4, 4, TileBox)
	w.Set(5, 5, TileWater)

	assert.False(t, w.DestroyAt(25, 25), "border must survive")
	assert.False(t, w.DestroyAt(275, 275), "water must survive")
	assert.False(t, w.DestroyAt(375, 375), "nothing to destroy on floor")
	assert.Equal(t, uint64(0), w.Version())

	assert.True(t, w.DestroyAt(225, 225))
	assert.Nil(t, w.TileAt(225, 225))
	assert.Equal(t, uint64(1), w.Version())
	assert.Len(t, w.Tiles(), 2)
}

func TestCastRay(t *testing.T) {
	w := NewTileWorld(10, 3, 50)
	w.Set(6, 1, TileWall) // x in [300, 350)

	d := w.CastRay(75, 75, 0, 1000)
	if d < 225 || d > 240 {
		t.Errorf("Expected ray to stop near the wall face (225), got %v", d)
	}
	assert.Equal(t, 100.0, w.CastRay(75, 75, 0, 100), "short ray is unobstructed")
	assert.False(t, w.LineClear(75, 75, 400, 75))
	assert.True(t, w.LineClear(75, 75, 75, 120))
	// straight down leaves the grid
	assert.Less(t, w.CastRay(75, 75, math.Pi/2, 1000), 100.0)
}

func TestNearestOpen(t *testing.T) {
	w := NewTileWorld(10, 10, 50)
	w.Set(4, 4, TileWall)

	x, y := w.NearestOpen(225, 225, BodyHalfSize)
	assert.False(t, w.BoxBlocked(x, y, BodyHalfSize))
	assert.InDelta(t, 225, x, 50)
	assert.InDelta(t, 225, y, 50)

	x, y = w.NearestOpen(75, 75, BodyHalfSize)
	assert.Equal(t, 75.0, x)
	assert.Equal(t, 75.0, y)
}

func TestCoverCells(t *testing.T) {
	w := NewTileWorld(4, 4, 50)
	w.SetCover(1, 2, true)

	assert.True(t, w.IsCover(75, 125))
	assert.False(t, w.IsCover(25, 25))
	assert.Equal(t, [][2]int{{1, 2}}, w.CoverCells())
}
