package interact

import (
	"testing"

	"gioui.org/f32"
	"gioui.org/io/pointer"
	"github.com/stretchr/testify/assert"
)

func TestCameraRoundTrip(t *testing.T) {
	c := NewCamera()
	c.Pan(13, -7)
	c.ZoomBy(1.5, 100, 80)

	sx, sy := c.WorldToScreen(3.25, 4.5)
	wx, wy := c.ScreenToWorld(sx, sy)
	assert.InDelta(t, 3.25, wx, 1e-4)
	assert.InDelta(t, 4.5, wy, 1e-4)
}

func TestZoomKeepsAnchor(t *testing.T) {
	c := NewCamera()
	wx, wy := c.ScreenToWorld(200, 150)
	c.ZoomBy(2, 200, 150)

	sx, sy := c.WorldToScreen(wx, wy)
	assert.InDelta(t, 200, sx, 1e-3)
	assert.InDelta(t, 150, sy, 1e-3)
	assert.Equal(t, float32(2*DefaultZoom), c.Zoom)

	c.ZoomBy(1000, 0, 0)
	assert.Equal(t, float32(MaxZoom), c.Zoom)
	c.ZoomBy(0.0001, 0, 0)
	assert.Equal(t, float32(MinZoom), c.Zoom)
}

func TestFitGrid(t *testing.T) {
	c := NewCamera()
	c.FitGrid(10, 20, 840, 640, 20)

	assert.Equal(t, float32(40), c.Zoom)
	sx, sy := c.WorldToScreen(0, 0)
	assert.InDelta(t, 20, sx, 1e-3)
	assert.InDelta(t, 120, sy, 1e-3)
}

func TestHandleEventDragAndScroll(t *testing.T) {
	c := NewCamera()
	x0, y0 := c.OffsetX, c.OffsetY

	c.HandleEvent(pointer.Event{Kind: pointer.Press, Buttons: pointer.ButtonSecondary, Position: f32.Pt(10, 10)})
	assert.True(t, c.HandleEvent(pointer.Event{Kind: pointer.Drag, Buttons: pointer.ButtonSecondary, Position: f32.Pt(25, 5)}))
	c.HandleEvent(pointer.Event{Kind: pointer.Release, Position: f32.Pt(25, 5)})
	assert.Equal(t, x0+15, c.OffsetX)
	assert.Equal(t, y0-5, c.OffsetY)

	assert.False(t, c.HandleEvent(pointer.Event{Kind: pointer.Drag, Position: f32.Pt(40, 40)}), "primary drag does not pan")

	assert.True(t, c.HandleEvent(pointer.Event{Kind: pointer.Scroll, Scroll: f32.Pt(0, -1), Position: f32.Pt(50, 50)}))
	assert.Greater(t, c.Zoom, float32(DefaultZoom))
}
