package draw

import (
	"image/color"
	"math"

	"gioui.org/layout"

	"github.com/elektrokombinacija/mapf-pibt/internal/vis/interact"
	"github.com/elektrokombinacija/mapf-pibt/internal/vis/state"
)

var ColorAgentSelected = color.NRGBA{R: 255, G: 255, B: 100, A: 255}

// AgentColor returns a stable hue for an agent index. Consecutive indices
// are spread by the golden angle so neighbours in the list stay distinct.
func AgentColor(agent int) color.NRGBA {
	h := math.Mod(float64(agent)*137.508, 360)
	return hsv(h, 0.65, 0.95)
}

func hsv(h, s, v float64) color.NRGBA {
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c
	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return color.NRGBA{
		R: uint8(math.Round((r + m) * 255)),
		G: uint8(math.Round((g + m) * 255)),
		B: uint8(math.Round((b + m) * 255)),
		A: 255,
	}
}

// DrawGoals marks every goal cell with a ring in its agent's colour.
func DrawGoals(gtx layout.Context, st *state.State, camera *interact.Camera) {
	for i, g := range st.Goals {
		p := state.CellCenter(g)
		x, y := camera.WorldToScreen(p.X, p.Y)
		col := AgentColor(i)
		col.A = 160
		DrawCircleOutline(gtx, x, y, 0.35*camera.Zoom, col, max(0.06*camera.Zoom, 1))
	}
}

// DrawAgents draws every agent at its interpolated position. Agents sitting
// on their goal get a dot in the middle.
func DrawAgents(gtx layout.Context, st *state.State, camera *interact.Camera) {
	size := 0.7 * camera.Zoom
	for i, p := range st.CurrentPositions() {
		x, y := camera.WorldToScreen(p.X, p.Y)
		col := AgentColor(i)
		if i == st.Selected {
			drawSquare(gtx, x, y, size+0.15*camera.Zoom, ColorAgentSelected)
		}
		drawSquare(gtx, x, y, size, col)
		if st.OnGoal(i) {
			drawFilledCircle(gtx, x, y, 0.12*camera.Zoom, ColorCellObstacle)
		}
	}
}
