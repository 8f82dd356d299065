package game

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArena(t *testing.T) {
	rows := []string{
		"P.#",
		"X~W",
		"S.S",
	}
	a, err := ParseArena("tiny", rows, 50)
	require.NoError(t, err)

	cols, nrows := a.World.Dimensions()
	assert.Equal(t, 5, cols)
	assert.Equal(t, 5, nrows)

	// map cells shift by one for the border ring
	tests := []struct {
		col, row int
		want     TileKind
	}{
		{0, 0, TileBorder},
		{4, 2, TileBorder},
		{3, 1, TileWall},
		{1, 2, TileBox},
		{3, 2, TileWater},
	}
	for _, tt := range tests {
		tile := a.World.TileAt((float64(tt.col)+0.5)*50, (float64(tt.row)+0.5)*50)
		if tile == nil {
			t.Errorf("Expected %s at (%d,%d), got floor", tt.want, tt.col, tt.row)
			continue
		}
		if tile.Kind != tt.want {
			t.Errorf("Expected %s at (%d,%d), got %s", tt.want, tt.col, tt.row, tile.Kind)
		}
	}

	assert.True(t, a.World.IsCover(125, 125))
	require.NotNil(t, a.PlayerSpawn)
	assert.Equal(t, Point{X: 75, Y: 75}, *a.PlayerSpawn)
	assert.Equal(t, []Point{{X: 75, Y: 175}, {X: 175, Y: 175}}, a.BotSpawns)
}

func TestParseArenaEmpty(t *testing.T) {
	_, err := ParseArena("none", nil, 50)
	assert.True(t, errors.Is(err, ErrEmptyMap))

	_, err = ParseArena("blank", []string{"", ""}, 50)
	assert.True(t, errors.Is(err, ErrEmptyMap))
}

func TestLoadArenaFallback(t *testing.T) {
	a := LoadArena("broken", []string{}, 50)
	assert.Equal(t, "fallback", a.Name)

	cols, rows := a.World.Dimensions()
	assert.Equal(t, 18, cols)
	assert.Equal(t, 18, rows)
	assert.False(t, a.World.BoxBlocked(450, 450, BodyHalfSize))
}

func TestBuiltinMapsParse(t *testing.T) {
	for _, mode := range []Mode{ModeShowdown, ModeKnockout} {
		t.Run(string(mode), func(t *testing.T) {
			a, err := ParseArena(string(mode), BuiltinMap(mode), 50)
			require.NoError(t, err)
			assert.NotEmpty(t, a.World.Tiles())
		})
	}
}
