// Package widgets provides Gio UI widgets for the visualizer.
package widgets

import (
	"image"
	"image/color"

	"gioui.org/io/event"
	"gioui.org/io/pointer"
	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/widget/material"

	"github.com/elektrokombinacija/mapf-pibt/internal/vis/draw"
	"github.com/elektrokombinacija/mapf-pibt/internal/vis/interact"
	"github.com/elektrokombinacija/mapf-pibt/internal/vis/state"
)

// Workspace is the main grid view.
type Workspace struct {
	state  *state.State
	camera *interact.Camera
	fitted bool
}

// NewWorkspace creates a new workspace widget.
func NewWorkspace(st *state.State, camera *interact.Camera) *Workspace {
	return &Workspace{
		state:  st,
		camera: camera,
	}
}

// Refit fits the grid to the view on the next frame.
func (w *Workspace) Refit() {
	w.fitted = false
}

// Layout renders the workspace.
func (w *Workspace) Layout(gtx layout.Context, th *material.Theme) layout.Dimensions {
	bounds := gtx.Constraints.Max
	defer clip.Rect(image.Rect(0, 0, bounds.X, bounds.Y)).Push(gtx.Ops).Pop()

	paint.Fill(gtx.Ops, color.NRGBA{R: 25, G: 28, B: 32, A: 255})

	if !w.fitted && bounds.X > 0 && bounds.Y > 0 {
		w.camera.FitGrid(w.state.Grid.Height(), w.state.Grid.Width(), float32(bounds.X), float32(bounds.Y), 20)
		w.fitted = true
	}

	w.handlePointerEvents(gtx)

	draw.DrawGrid(gtx, w.state.Grid, w.camera)
	draw.DrawGoals(gtx, w.state, w.camera)
	draw.DrawTrails(gtx, w.state, w.camera)
	draw.DrawConflicts(gtx, w.state, w.camera)
	draw.DrawAgents(gtx, w.state, w.camera)

	return layout.Dimensions{Size: bounds}
}

func (w *Workspace) handlePointerEvents(gtx layout.Context) {
	area := clip.Rect(image.Rect(0, 0, gtx.Constraints.Max.X, gtx.Constraints.Max.Y)).Push(gtx.Ops)
	event.Op(gtx.Ops, w)
	area.Pop()

	for {
		ev, ok := gtx.Event(pointer.Filter{
			Target:  w,
			Kinds:   pointer.Press | pointer.Drag | pointer.Release | pointer.Scroll,
			ScrollY: pointer.ScrollRange{Min: -100, Max: 100},
		})
		if !ok {
			break
		}
		pe, ok := ev.(pointer.Event)
		if !ok {
			continue
		}
		w.camera.HandleEvent(pe)
		if pe.Kind == pointer.Press && pe.Buttons.Contain(pointer.ButtonPrimary) {
			w.handleClick(pe.Position.X, pe.Position.Y)
		}
	}
}

// handleClick selects the agent under the pointer, or clears the selection.
func (w *Workspace) handleClick(screenX, screenY float32) {
	wx, wy := w.camera.ScreenToWorld(screenX, screenY)
	w.state.Selected = w.state.AgentAt(state.Pos{X: wx, Y: wy})
}
