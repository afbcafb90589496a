// Package draw renders the grid, agents and their paths.
package draw

import (
	"image/color"
	"math"

	"gioui.org/f32"
	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
)

// drawSegment fills a quad of the given width between two screen points.
func drawSegment(gtx layout.Context, x1, y1, x2, y2, width float32, col color.NRGBA) {
	dx := x2 - x1
	dy := y2 - y1
	length := float32(math.Sqrt(float64(dx*dx + dy*dy)))
	if length < 0.1 {
		return
	}

	dx /= length
	dy /= length
	px := -dy * width / 2
	py := dx * width / 2

	var path clip.Path
	path.Begin(gtx.Ops)
	path.MoveTo(f32.Pt(x1+px, y1+py))
	path.LineTo(f32.Pt(x2+px, y2+py))
	path.LineTo(f32.Pt(x2-px, y2-py))
	path.LineTo(f32.Pt(x1-px, y1-py))
	path.Close()

	paint.FillShape(gtx.Ops, col, clip.Outline{Path: path.End()}.Op())
}

func drawRect(gtx layout.Context, x, y, w, h float32, col color.NRGBA) {
	var path clip.Path
	path.Begin(gtx.Ops)
	path.MoveTo(f32.Pt(x, y))
	path.LineTo(f32.Pt(x+w, y))
	path.LineTo(f32.Pt(x+w, y+h))
	path.LineTo(f32.Pt(x, y+h))
	path.Close()

	paint.FillShape(gtx.Ops, col, clip.Outline{Path: path.End()}.Op())
}

func drawSquare(gtx layout.Context, cx, cy, size float32, col color.NRGBA) {
	drawRect(gtx, cx-size/2, cy-size/2, size, size, col)
}

func drawFilledCircle(gtx layout.Context, cx, cy, radius float32, col color.NRGBA) {
	var path clip.Path
	path.Begin(gtx.Ops)
	path.MoveTo(f32.Pt(cx+radius, cy))

	segments := 16
	for i := 1; i <= segments; i++ {
		angle := float64(i) * 2 * math.Pi / float64(segments)
		path.LineTo(f32.Pt(cx+radius*float32(math.Cos(angle)), cy+radius*float32(math.Sin(angle))))
	}
	path.Close()

	paint.FillShape(gtx.Ops, col, clip.Outline{Path: path.End()}.Op())
}

// DrawCircleOutline draws a ring of the given stroke width.
func DrawCircleOutline(gtx layout.Context, centerX, centerY, radius float32, col color.NRGBA, strokeWidth float32) {
	innerR := max(radius-strokeWidth, 0)
	segments := 24

	var path clip.Path
	path.Begin(gtx.Ops)
	for _, r := range []float32{radius, innerR} {
		path.MoveTo(f32.Pt(centerX+r, centerY))
		for i := 1; i <= segments; i++ {
			angle := float64(i) * 2 * math.Pi / float64(segments)
			path.LineTo(f32.Pt(centerX+r*float32(math.Cos(angle)), centerY+r*float32(math.Sin(angle))))
		}
		path.Close()
	}

	paint.FillShape(gtx.Ops, col, clip.Outline{Path: path.End()}.Op())
}
