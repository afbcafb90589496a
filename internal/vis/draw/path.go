package draw

import (
	"image/color"
	"math"

	"gioui.org/f32"
	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"

	"github.com/elektrokombinacija/mapf-pibt/internal/vis/interact"
	"github.com/elektrokombinacija/mapf-pibt/internal/vis/state"
)

// DrawPath draws a polyline through cell-unit positions. width is in cells.
func DrawPath(gtx layout.Context, path []state.Pos, camera *interact.Camera, col color.NRGBA, width float32) {
	if len(path) < 2 {
		return
	}

	w := width * camera.Zoom
	for i := 0; i < len(path)-1; i++ {
		x1, y1 := camera.WorldToScreen(path[i].X, path[i].Y)
		x2, y2 := camera.WorldToScreen(path[i+1].X, path[i+1].Y)
		drawSegment(gtx, x1, y1, x2, y2, w, col)
	}
}

// DrawPathTrail draws a trail that fades towards its oldest end.
func DrawPathTrail(gtx layout.Context, history []state.Pos, camera *interact.Camera, baseColor color.NRGBA, maxWidth float32) {
	n := len(history)
	if n < 2 {
		return
	}

	for i := 0; i < n-1; i++ {
		col := baseColor
		col.A = uint8(50 + float64(i)/float64(n)*150)
		w := maxWidth * camera.Zoom * (0.3 + 0.7*float32(i)/float32(n))

		x1, y1 := camera.WorldToScreen(history[i].X, history[i].Y)
		x2, y2 := camera.WorldToScreen(history[i+1].X, history[i+1].Y)
		drawSegment(gtx, x1, y1, x2, y2, w, col)
	}
}

// DrawFuturePath draws the remaining moves dimmed, with an arrow on each
// move between two different cells.
func DrawFuturePath(gtx layout.Context, from state.Pos, future []state.Pos, camera *interact.Camera, col color.NRGBA) {
	if len(future) == 0 {
		return
	}
	col.A = 80
	positions := append([]state.Pos{from}, future...)
	DrawPath(gtx, positions, camera, col, 0.08)

	for i := 0; i < len(positions)-1; i++ {
		dx := positions[i+1].X - positions[i].X
		dy := positions[i+1].Y - positions[i].Y
		length := math.Hypot(dx, dy)
		if length < 0.5 {
			continue
		}
		midX := (positions[i].X + positions[i+1].X) / 2
		midY := (positions[i].Y + positions[i+1].Y) / 2
		drawArrow(gtx, midX, midY, dx/length, dy/length, camera, col)
	}
}

// DrawTrails draws history trails for all agents, and the future path of
// the selected one.
func DrawTrails(gtx layout.Context, st *state.State, camera *interact.Camera) {
	for i := 0; i < st.NumAgents(); i++ {
		col := AgentColor(i)
		col.A = 120
		DrawPathTrail(gtx, st.PathHistory(i), camera, col, 0.15)
	}
	if st.Selected >= 0 && st.Selected < st.NumAgents() {
		DrawFuturePath(gtx, st.PositionAt(st.Selected, st.Playback.CurrentTime),
			st.FuturePath(st.Selected), camera, AgentColor(st.Selected))
	}
}

func drawArrow(gtx layout.Context, x, y, dirX, dirY float64, camera *interact.Camera, col color.NRGBA) {
	screenX, screenY := camera.WorldToScreen(x, y)
	size := 0.18 * camera.Zoom

	tipX := screenX + float32(dirX)*size
	tipY := screenY + float32(dirY)*size
	perpX := -float32(dirY) * size * 0.5
	perpY := float32(dirX) * size * 0.5
	baseX := screenX - float32(dirX)*size*0.3
	baseY := screenY - float32(dirY)*size*0.3

	var path clip.Path
	path.Begin(gtx.Ops)
	path.MoveTo(f32.Pt(tipX, tipY))
	path.LineTo(f32.Pt(baseX+perpX, baseY+perpY))
	path.LineTo(f32.Pt(baseX-perpX, baseY-perpY))
	path.Close()

	paint.FillShape(gtx.Ops, col, clip.Outline{Path: path.End()}.Op())
}
