package draw

import (
	"image/color"
	"math"
	"time"

	"gioui.org/layout"

	"github.com/elektrokombinacija/mapf-pibt/internal/algo"
	"github.com/elektrokombinacija/mapf-pibt/internal/vis/interact"
	"github.com/elektrokombinacija/mapf-pibt/internal/vis/state"
)

var (
	ColorConflictVertex = color.NRGBA{R: 255, G: 80, B: 80, A: 200}
	ColorConflictEdge   = color.NRGBA{R: 255, G: 150, B: 80, A: 200}
)

// DrawConflict draws a pulsing marker for a collision in a loaded solution.
func DrawConflict(gtx layout.Context, conflict *algo.Conflict, camera *interact.Camera) {
	pulse := float32(math.Sin(float64(time.Now().UnixMilli())/200.0)*0.3 + 0.7)

	if conflict.IsEdge {
		drawEdgeConflict(gtx, conflict, camera, pulse)
		return
	}
	p := state.CellCenter(conflict.Cell)
	x, y := camera.WorldToScreen(p.X, p.Y)
	radius := 0.5 * camera.Zoom * pulse
	DrawCircleOutline(gtx, x, y, radius, ColorConflictVertex, max(0.08*camera.Zoom, 2))
	drawFilledCircle(gtx, x, y, radius*0.4*pulse, ColorConflictVertex)
}

func drawEdgeConflict(gtx layout.Context, conflict *algo.Conflict, camera *interact.Camera, pulse float32) {
	p1, p2 := state.CellCenter(conflict.EdgeFrom), state.CellCenter(conflict.EdgeTo)
	x1, y1 := camera.WorldToScreen(p1.X, p1.Y)
	x2, y2 := camera.WorldToScreen(p2.X, p2.Y)
	midX, midY := (x1+x2)/2, (y1+y2)/2

	radius := 0.4 * camera.Zoom * pulse
	DrawCircleOutline(gtx, midX, midY, radius, ColorConflictEdge, max(0.06*camera.Zoom, 2))

	// A cross over the swapped edge.
	arm := radius * 0.7
	for _, angle := range []float64{45, 135} {
		rad := angle * math.Pi / 180
		dx := float32(math.Cos(rad)) * arm
		dy := float32(math.Sin(rad)) * arm
		drawSegment(gtx, midX-dx, midY-dy, midX+dx, midY+dy, 3, ColorConflictEdge)
	}

	col := ColorConflictEdge
	col.A = uint8(float32(col.A) * pulse)
	drawSegment(gtx, x1, y1, x2, y2, 0.12*camera.Zoom, col)
}

// DrawConflicts draws the conflicts at the current playback time.
func DrawConflicts(gtx layout.Context, st *state.State, camera *interact.Camera) {
	for _, c := range st.ActiveConflicts() {
		DrawConflict(gtx, c, camera)
	}
}
