package draw

import (
	"image/color"

	"gioui.org/layout"

	"github.com/elektrokombinacija/mapf-pibt/internal/core"
	"github.com/elektrokombinacija/mapf-pibt/internal/vis/interact"
)

var (
	ColorCellFree     = color.NRGBA{R: 46, G: 52, B: 60, A: 255}
	ColorCellObstacle = color.NRGBA{R: 20, G: 22, B: 26, A: 255}
	ColorGridLine     = color.NRGBA{R: 70, G: 78, B: 88, A: 255}
)

// DrawGrid paints every cell and the lines between them. Cell (r, c) covers
// world [c, c+1) x [r, r+1).
func DrawGrid(gtx layout.Context, g *core.Grid, camera *interact.Camera) {
	size := camera.Zoom
	for r := 0; r < g.Height(); r++ {
		for c := 0; c < g.Width(); c++ {
			col := ColorCellFree
			if !g.Walkable(core.C(r, c)) {
				col = ColorCellObstacle
			}
			x, y := camera.WorldToScreen(float64(c), float64(r))
			drawRect(gtx, x, y, size, size, col)
		}
	}

	// Lines are skipped when cells get too small to tell apart.
	if size < 8 {
		return
	}
	x0, y0 := camera.WorldToScreen(0, 0)
	x1, y1 := camera.WorldToScreen(float64(g.Width()), float64(g.Height()))
	for c := 0; c <= g.Width(); c++ {
		x, _ := camera.WorldToScreen(float64(c), 0)
		drawSegment(gtx, x, y0, x, y1, 1, ColorGridLine)
	}
	for r := 0; r <= g.Height(); r++ {
		_, y := camera.WorldToScreen(0, float64(r))
		drawSegment(gtx, x0, y, x1, y, 1, ColorGridLine)
	}
}

// CellAt returns the cell under a screen point and whether it lies on the
// grid.
func CellAt(g *core.Grid, camera *interact.Camera, screenX, screenY float32) (core.Coord, bool) {
	wx, wy := camera.ScreenToWorld(screenX, screenY)
	if wx < 0 || wy < 0 {
		return core.Coord{}, false
	}
	c := core.C(int(wy), int(wx))
	return c, g.InBounds(c)
}
