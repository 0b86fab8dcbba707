package anim

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/oomph-ac/locomotion/game"
	"github.com/oomph-ac/locomotion/movement"
	"github.com/oomph-ac/locomotion/oerror"
)

// WindowState is the lifecycle state of a WarpWindow.
type WindowState uint8

const (
	// WindowWaiting is the state of a window whose start has not been reached yet.
	WindowWaiting WindowState = iota
	// WindowActive is the state of a window the playback time is within.
	WindowActive
	// WindowMarkedForRemoval is the state of a window that was left, or whose animation stopped playing.
	WindowMarkedForRemoval
	// WindowDisabled is the state of a window that was reset without an animation to track.
	WindowDisabled
)

func (s WindowState) String() string {
	switch s {
	case WindowWaiting:
		return "waiting"
	case WindowActive:
		return "active"
	case WindowMarkedForRemoval:
		return "marked_for_removal"
	case WindowDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// WarpWindow is a named range of playback time of an animation during which a warp is applied.
type WarpWindow struct {
	Name      string
	Animation string
	Start     float32
	End       float32

	state WindowState
}

// NewWarpWindow ...
func NewWarpWindow(name, animation string, start, end float32) (*WarpWindow, error) {
	if name == "" {
		return nil, oerror.Configuration("warp window", "name must not be empty")
	}
	if end <= start || start < 0 {
		return nil, oerror.Configuration("warp window "+name, "range [%v, %v] is invalid", start, end)
	}
	w := &WarpWindow{Name: name, Animation: animation, Start: start, End: end}
	if animation == "" {
		w.state = WindowDisabled
	}
	return w, nil
}

// State ...
func (w *WarpWindow) State() WindowState {
	return w.state
}

// Reset returns the window to its waiting state so that it may be used for another playback of its animation.
func (w *WarpWindow) Reset() {
	w.state = WindowWaiting
	if w.Animation == "" {
		w.state = WindowDisabled
	}
}

// Update advances the lifecycle of the window with the animation playing and its playback time. Windows that
// were marked for removal or disabled stay that way until Reset is called.
func (w *WarpWindow) Update(animation string, time float32) WindowState {
	switch w.state {
	case WindowMarkedForRemoval, WindowDisabled:
		return w.state
	}
	if animation != w.Animation {
		if w.state == WindowActive {
			w.state = WindowMarkedForRemoval
		}
		return w.state
	}
	switch {
	case time > w.End:
		w.state = WindowMarkedForRemoval
	case time >= w.Start:
		w.state = WindowActive
	}
	return w.state
}

// Progress returns how far the playback time is through the window, in the range [0, 1].
func (w *WarpWindow) Progress(time float32) float32 {
	return mgl32.Clamp((time-w.Start)/(w.End-w.Start), 0, 1)
}

// WindowedSolver runs a solver only while its warp window is active.
type WindowedSolver struct {
	window *WarpWindow
	solver Solver
}

// Windowed returns a solver running s while w is active.
func Windowed(w *WarpWindow, s Solver) *WindowedSolver {
	return &WindowedSolver{window: w, solver: s}
}

func (ws *WindowedSolver) ID() SolverID { return ws.solver.ID() }

// Window ...
func (ws *WindowedSolver) Window() *WarpWindow {
	return ws.window
}

// Solve ...
func (ws *WindowedSolver) Solve(frame *FrameContext) (WarpTarget, bool) {
	if ws.window.Update(frame.Animation, frame.PlaybackTime) != WindowActive {
		return WarpTarget{}, false
	}
	return ws.solver.Solve(frame)
}

// MantleWarp moves the root onto the ledge being mantled so that the mantle animation ends exactly where the
// simulation places the character.
type MantleWarp struct{}

func (MantleWarp) ID() SolverID { return SolverMantleWarp }

// Solve ...
func (MantleWarp) Solve(frame *FrameContext) (WarpTarget, bool) {
	p, ok := movement.PayloadOf[movement.MantlePayload](frame.State)
	if !ok || p.Duration == 0 {
		return WarpTarget{}, false
	}
	target := game.Vec64To32(p.Target)
	yaw := frame.Facing
	if dir := target.Sub(game.Vec64To32(p.Start)); dir.X()*dir.X()+dir.Z()*dir.Z() > mgl32.Epsilon {
		yaw = game.YawFromDirection32(dir)
	}
	return WarpTarget{
		Location: target,
		Yaw:      yaw,
		Alpha:    float32(min(p.Elapsed, p.Duration)) / float32(p.Duration),
	}, true
}
