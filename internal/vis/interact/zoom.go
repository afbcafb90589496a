// Package interact handles pan and zoom of the grid view.
package interact

import (
	"gioui.org/io/pointer"
)

// Zoom is measured in screen pixels per grid cell.
const (
	MinZoom     = 4
	MaxZoom     = 200
	DefaultZoom = 32
	zoomStep    = 1.1
)

// Camera maps cell-unit world coordinates to screen pixels.
type Camera struct {
	OffsetX float32 // screen position of world origin
	OffsetY float32
	Zoom    float32

	dragging bool
	lastX    float32
	lastY    float32
}

// NewCamera creates a camera at the default zoom.
func NewCamera() *Camera {
	c := &Camera{}
	c.Reset()
	return c
}

// Reset restores the default view.
func (c *Camera) Reset() {
	c.OffsetX = 20
	c.OffsetY = 20
	c.Zoom = DefaultZoom
}

// WorldToScreen converts world coordinates to screen coordinates.
func (c *Camera) WorldToScreen(worldX, worldY float64) (screenX, screenY float32) {
	screenX = float32(worldX)*c.Zoom + c.OffsetX
	screenY = float32(worldY)*c.Zoom + c.OffsetY
	return
}

// ScreenToWorld converts screen coordinates to world coordinates.
func (c *Camera) ScreenToWorld(screenX, screenY float32) (worldX, worldY float64) {
	worldX = float64((screenX - c.OffsetX) / c.Zoom)
	worldY = float64((screenY - c.OffsetY) / c.Zoom)
	return
}

// HandleEvent pans with the secondary or middle button and zooms on scroll.
// It reports whether the view changed.
func (c *Camera) HandleEvent(ev pointer.Event) bool {
	switch ev.Kind {
	case pointer.Press:
		c.dragging = ev.Buttons.Contain(pointer.ButtonSecondary) || ev.Buttons.Contain(pointer.ButtonTertiary)
		c.lastX, c.lastY = ev.Position.X, ev.Position.Y

	case pointer.Drag:
		moved := false
		if c.dragging {
			c.Pan(ev.Position.X-c.lastX, ev.Position.Y-c.lastY)
			moved = true
		}
		c.lastX, c.lastY = ev.Position.X, ev.Position.Y
		return moved

	case pointer.Release, pointer.Cancel:
		c.dragging = false

	case pointer.Scroll:
		switch {
		case ev.Scroll.Y > 0:
			c.ZoomBy(1/zoomStep, ev.Position.X, ev.Position.Y)
		case ev.Scroll.Y < 0:
			c.ZoomBy(zoomStep, ev.Position.X, ev.Position.Y)
		default:
			return false
		}
		return true
	}
	return false
}

// Pan pans the camera by the given screen delta.
func (c *Camera) Pan(dx, dy float32) {
	c.OffsetX += dx
	c.OffsetY += dy
}

// ZoomBy zooms by a factor, keeping the world point under (centerX, centerY)
// fixed on screen.
func (c *Camera) ZoomBy(factor float32, centerX, centerY float32) {
	worldX, worldY := c.ScreenToWorld(centerX, centerY)
	c.Zoom = clampZoom(c.Zoom * factor)

	newScreenX, newScreenY := c.WorldToScreen(worldX, worldY)
	c.OffsetX += centerX - newScreenX
	c.OffsetY += centerY - newScreenY
}

// CenterOn centers the camera on a world position.
func (c *Camera) CenterOn(worldX, worldY float64, screenWidth, screenHeight float32) {
	c.OffsetX = screenWidth/2 - float32(worldX)*c.Zoom
	c.OffsetY = screenHeight/2 - float32(worldY)*c.Zoom
}

// FitGrid zooms and centers so a height x width grid fills the screen
// minus margin pixels on every side.
func (c *Camera) FitGrid(height, width int, screenWidth, screenHeight, margin float32) {
	if height <= 0 || width <= 0 {
		return
	}
	zoomX := (screenWidth - 2*margin) / float32(width)
	zoomY := (screenHeight - 2*margin) / float32(height)
	c.Zoom = clampZoom(min(zoomX, zoomY))
	c.CenterOn(float64(width)/2, float64(height)/2, screenWidth, screenHeight)
}

func clampZoom(z float32) float32 {
	return max(MinZoom, min(z, MaxZoom))
}
