package anim

import (
	"sync"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/oomph-ac/locomotion/game"
	"github.com/oomph-ac/locomotion/oerror"
	"github.com/oomph-ac/locomotion/reconcile"
)

// residualFraction is the fraction of a correction left once its blend window has passed. Anything smaller than
// residualEpsilon is dropped entirely.
const (
	residualFraction = 0.01
	residualEpsilon  = 1e-4
)

// CorrectionSmoother hides corrections made by reconciliation. Instead of jumping to the corrected state, the
// rendered root starts where it was before the correction and converges on the corrected state over the blend
// window.
type CorrectionSmoother struct {
	blendWindow float32
	rate        float32

	mu     sync.Mutex
	offset mgl32.Vec3
	yaw    float32
}

// NewCorrectionSmoother returns a smoother that hides corrections over blendWindow seconds.
func NewCorrectionSmoother(blendWindow float32) (*CorrectionSmoother, error) {
	if blendWindow <= 0 {
		return nil, oerror.Configuration("correction blend window", "must be positive, got %v", blendWindow)
	}
	return &CorrectionSmoother{
		blendWindow: blendWindow,
		rate:        -math32.Log(residualFraction) / blendWindow,
	}, nil
}

func (*CorrectionSmoother) ID() SolverID { return SolverCorrection }

// BlendWindow ...
func (c *CorrectionSmoother) BlendWindow() float32 {
	return c.blendWindow
}

// AddCorrection adds the residual of a correction to the offset being smoothed. It may be called from any
// goroutine, usually the one delivering authoritative states.
func (c *CorrectionSmoother) AddCorrection(res reconcile.Result) {
	if res.Outcome != reconcile.OutcomeCorrected {
		return
	}
	c.mu.Lock()
	c.offset = c.offset.Add(game.Vec64To32(res.Residual))
	c.yaw = game.NormalizeAxis32(c.yaw + float32(res.ResidualYaw))
	c.mu.Unlock()
}

// Offset returns the offset currently applied on top of the latest state.
func (c *CorrectionSmoother) Offset() (mgl32.Vec3, float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offset, c.yaw
}

// Solve decays the pending offset and emits the rendered root, or nothing once the offset has gone.
func (c *CorrectionSmoother) Solve(frame *FrameContext) (WarpTarget, bool) {
	c.mu.Lock()
	decay := math32.Exp(-c.rate * max(frame.DeltaSeconds, 0))
	c.offset = c.offset.Mul(decay)
	c.yaw *= decay
	if c.offset.Len() < residualEpsilon {
		c.offset = mgl32.Vec3{}
	}
	if math32.Abs(c.yaw) < residualEpsilon {
		c.yaw = 0
	}
	offset, yaw := c.offset, c.yaw
	c.mu.Unlock()

	if offset == (mgl32.Vec3{}) && yaw == 0 {
		return WarpTarget{}, false
	}
	return WarpTarget{
		Location: frame.Position().Add(offset),
		Yaw:      game.NormalizeAxis32(float32(frame.State.Yaw()) + yaw),
		Alpha:    1,
	}, true
}
