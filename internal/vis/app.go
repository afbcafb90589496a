// Package vis implements a Gio window that replays PIBT runs on the grid.
package vis

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"gioui.org/app"
	"gioui.org/io/event"
	"gioui.org/io/key"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget/material"

	"github.com/elektrokombinacija/mapf-pibt/internal/core"
	"github.com/elektrokombinacija/mapf-pibt/internal/ctxlog"
	"github.com/elektrokombinacija/mapf-pibt/internal/vis/draw"
	"github.com/elektrokombinacija/mapf-pibt/internal/vis/interact"
	"github.com/elektrokombinacija/mapf-pibt/internal/vis/state"
	"github.com/elektrokombinacija/mapf-pibt/internal/vis/widgets"
)

const panelWidth = 220

// App is the main visualization application.
type App struct {
	ctx       context.Context
	state     *state.State
	theme     *material.Theme
	workspace *widgets.Workspace
	timeline  *widgets.Timeline
	toolbar   *widgets.Toolbar
	camera    *interact.Camera
}

// NewApp creates an application showing st. ctx carries the logger and
// bounds live scheduler steps.
func NewApp(ctx context.Context, st *state.State) *App {
	camera := interact.NewCamera()
	a := &App{
		ctx:       ctx,
		state:     st,
		theme:     material.NewTheme(),
		workspace: widgets.NewWorkspace(st, camera),
		timeline:  widgets.NewTimeline(st),
		camera:    camera,
	}
	a.toolbar = widgets.NewToolbar(ctx, st, a.reportError)
	a.toolbar.OnFit = a.workspace.Refit
	return a
}

func (a *App) reportError(err error) {
	ctxlog.FromContext(a.ctx).Error("Live step failed", "error", err, "timestep", a.state.Solution.Steps())
}

// Run starts the application event loop.
func (a *App) Run(w *app.Window) error {
	var ops op.Ops
	tag := new(int)
	focused := false

	for {
		switch e := w.Event().(type) {
		case app.DestroyEvent:
			return e.Err

		case app.FrameEvent:
			gtx := app.NewContext(&ops, e)

			for {
				ev, ok := gtx.Event(key.Filter{Focus: tag, Optional: key.ModCtrl | key.ModShift})
				if !ok {
					break
				}
				if ke, ok := ev.(key.Event); ok && ke.State == key.Press {
					a.handleKeyEvent(ke)
				}
			}

			event.Op(gtx.Ops, tag)
			if !focused {
				gtx.Execute(key.FocusCmd{Tag: tag})
				focused = true
			}

			if err := a.state.Tick(a.ctx); err != nil {
				a.reportError(err)
			}

			a.layout(gtx)
			e.Frame(gtx.Ops)

			if a.state.Playback.Playing {
				w.Invalidate()
			}
		}
	}
}

func (a *App) handleKeyEvent(e key.Event) {
	pb := a.state.Playback
	switch e.Name {
	case key.NameSpace:
		pb.TogglePlay()
	case key.NameLeftArrow:
		pb.StepBack()
	case key.NameRightArrow:
		pb.StepForward()
	case key.NameUpArrow:
		pb.Faster()
	case key.NameDownArrow:
		pb.Slower()
	case key.NameHome:
		pb.Reset()
	case key.NameEnd:
		pb.Pause()
		pb.SetTime(pb.MaxTime)
	case key.NameEscape:
		a.state.Selected = -1
	case key.NameTab:
		if n := a.state.NumAgents(); n > 0 {
			a.state.Selected = (a.state.Selected + 1) % n
		}
	case "N":
		if err := a.state.StepLive(a.ctx); err != nil {
			a.reportError(err)
		}
		pb.Pause()
		pb.SetTime(pb.MaxTime)
	case "F":
		a.workspace.Refit()
	case "R":
		a.camera.Reset()
	}
}

func (a *App) layout(gtx layout.Context) layout.Dimensions {
	paint.Fill(gtx.Ops, color.NRGBA{R: 30, G: 30, B: 35, A: 255})

	return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return a.toolbar.Layout(gtx, a.theme)
		}),
		layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
			return layout.Flex{Axis: layout.Horizontal}.Layout(gtx,
				layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
					return a.workspace.Layout(gtx, a.theme)
				}),
				layout.Rigid(a.layoutAgentPanel),
			)
		}),
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return a.timeline.Layout(gtx, a.theme)
		}),
	)
}

// layoutAgentPanel lists every agent with its cell and goal. The selected
// agent is highlighted.
func (a *App) layoutAgentPanel(gtx layout.Context) layout.Dimensions {
	width := gtx.Dp(unit.Dp(panelWidth))
	size := image.Point{X: width, Y: gtx.Constraints.Max.Y}
	defer clip.Rect(image.Rectangle{Max: size}).Push(gtx.Ops).Pop()
	paint.Fill(gtx.Ops, color.NRGBA{R: 40, G: 40, B: 45, A: 255})
	gtx.Constraints = layout.Exact(size)

	t := int(a.state.Playback.CurrentTime)
	cfg := a.state.Solution.At(t)
	var priorities []float64
	if a.state.Live != nil && t == a.state.Solution.Steps() {
		priorities = a.state.Live.Priorities()
	}

	lines := make([]layout.FlexChild, 0, a.state.NumAgents()+1)
	lines = append(lines, layout.Rigid(func(gtx layout.Context) layout.Dimensions {
		label := material.Label(a.theme, 13, fmt.Sprintf("%d agents, t=%d", a.state.NumAgents(), t))
		label.Color = color.NRGBA{R: 220, G: 220, B: 220, A: 255}
		return layout.Inset{Bottom: unit.Dp(6)}.Layout(gtx, label.Layout)
	}))
	for i := range a.state.NumAgents() {
		text := agentLine(a.state.AgentLabel(i), cfg[i], a.state.Goals[i])
		if priorities != nil {
			text += fmt.Sprintf(" p=%.2f", priorities[i])
		}
		lines = append(lines, layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			label := material.Label(a.theme, 12, text)
			label.Color = draw.AgentColor(i)
			if i == a.state.Selected {
				label.Color = draw.ColorAgentSelected
			}
			return label.Layout(gtx)
		}))
	}

	layout.UniformInset(unit.Dp(8)).Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return layout.Flex{Axis: layout.Vertical}.Layout(gtx, lines...)
	})
	return layout.Dimensions{Size: size}
}

func agentLine(name string, at, goal core.Coord) string {
	mark := ""
	if at == goal {
		mark = " *"
	}
	return fmt.Sprintf("%s %v -> %v%s", name, at, goal, mark)
}
