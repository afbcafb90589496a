package draw

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/elektrokombinacija/mapf-pibt/internal/core"
	"github.com/elektrokombinacija/mapf-pibt/internal/vis/interact"
)

func TestHSVPrimaries(t *testing.T) {
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, hsv(0, 1, 1))
	assert.Equal(t, color.NRGBA{G: 255, A: 255}, hsv(120, 1, 1))
	assert.Equal(t, color.NRGBA{B: 255, A: 255}, hsv(240, 1, 1))
}

func TestAgentColorsDistinct(t *testing.T) {
	seen := make(map[color.NRGBA]bool)
	for i := 0; i < 16; i++ {
		c := AgentColor(i)
		assert.False(t, seen[c], "agent %d reuses a colour", i)
		seen[c] = true
	}
	assert.Equal(t, AgentColor(3), AgentColor(3))
}

func TestCellAt(t *testing.T) {
	g, err := core.NewGrid(3, 4, nil)
	assert.NoError(t, err)
	cam := interact.NewCamera()
	cam.OffsetX, cam.OffsetY, cam.Zoom = 10, 10, 20

	c, ok := CellAt(g, cam, 75, 35)
	assert.True(t, ok)
	assert.Equal(t, core.C(1, 3), c)

	_, ok = CellAt(g, cam, 5, 35)
	assert.False(t, ok)
	_, ok = CellAt(g, cam, 95, 35)
	assert.False(t, ok)
}
