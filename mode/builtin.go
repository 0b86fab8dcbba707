package mode

import (
	"math"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion/game"
	"github.com/oomph-ac/locomotion/movement"
	"github.com/oomph-ac/locomotion/world"
)

const (
	PriorityMantling = 400
	PriorityClimbing = 300
	PrioritySwimming = 200
	PriorityGrounded = 100
	PriorityFalling  = 0
)

// groundProbe is the distance below the character searched for ground when it is not already on it.
const groundProbe = 0.05

// Defaults returns the built-in rules for every builtin mode.
func Defaults() []Rule {
	return []Rule{Mantling(), Climbing(), Swimming(), Grounded(), Falling()}
}

// DefaultSet returns a set containing the built-in rules.
func DefaultSet() *Set {
	return MustNewSet(Defaults()...)
}

// Grounded walks on solid ground.
func Grounded() Rule {
	return Rule{
		Mode:     movement.ModeGrounded,
		Priority: PriorityGrounded,
		Eligible: func(ctx *Context, s movement.State, in movement.Input) bool {
			if s.Vel.Y() > 0 {
				return false
			}
			return s.OnGround || world.Supported(ctx.World, box(ctx, s), groundProbe)
		},
		Enter: func(ctx *Context, s movement.State, in movement.Input) movement.State {
			s.OnGround = true
			s.Vel[1] = 0
			return s
		},
		Step: stepGrounded,
	}
}

// Falling is the fallback mode, always eligible.
func Falling() Rule {
	return Rule{
		Mode:     movement.ModeFalling,
		Priority: PriorityFalling,
		Eligible: func(*Context, movement.State, movement.Input) bool {
			return true
		},
		Enter: func(ctx *Context, s movement.State, in movement.Input) movement.State {
			s.OnGround = false
			return s
		},
		Step: stepFalling,
	}
}

// Swimming moves freely in three dimensions once the character is immersed deeply enough.
func Swimming() Rule {
	return Rule{
		Mode:     movement.ModeSwimming,
		Priority: PrioritySwimming,
		Eligible: func(ctx *Context, s movement.State, in movement.Input) bool {
			return world.Immersion(ctx.World, box(ctx, s)) >= ctx.Params.SwimImmersion
		},
		Enter: func(ctx *Context, s movement.State, in movement.Input) movement.State {
			s.OnGround = false
			s.Payload = movement.SwimPayload{Immersion: world.Immersion(ctx.World, box(ctx, s))}
			return s
		},
		Step: stepSwimming,
	}
}

// Climbing attaches the character to a climbable surface it walks into.
func Climbing() Rule {
	return Rule{
		Mode:     movement.ModeClimbing,
		Priority: PriorityClimbing,
		From:     []movement.Mode{movement.ModeGrounded, movement.ModeFalling, movement.ModeSwimming},
		Eligible: func(ctx *Context, s movement.State, in movement.Input) bool {
			if in.Jump || in.Crouch {
				return false
			}
			normal, ok := world.ClimbSurface(ctx.World, box(ctx, s), ctx.Params.ClimbReach)
			if !ok {
				return false
			}
			if s.Mode == movement.ModeClimbing {
				return true
			}
			return in.Move.Y() > 0 && game.RotateXZ(in.Move, in.Yaw).Dot(normal) < -0.5
		},
		Enter: func(ctx *Context, s movement.State, in movement.Input) movement.State {
			normal, _ := world.ClimbSurface(ctx.World, box(ctx, s), ctx.Params.ClimbReach)
			s.OnGround = false
			s.Vel = mgl64.Vec3{}
			s.Payload = movement.ClimbPayload{Normal: normal}
			return s
		},
		Step: stepClimbing,
	}
}

// Mantling pulls the character over a ledge in front of it. Once started, a mantle keeps control until it
// has run for its full duration.
func Mantling() Rule {
	return Rule{
		Mode:     movement.ModeMantling,
		Priority: PriorityMantling,
		Eligible: func(ctx *Context, s movement.State, in movement.Input) bool {
			if p, ok := movement.PayloadOf[movement.MantlePayload](s); ok && s.Mode == movement.ModeMantling {
				return !p.Done()
			}
			if !in.Jump || in.Move.Y() <= 0 {
				return false
			}
			_, ok := findLedge(ctx, s, in)
			return ok
		},
		Enter: func(ctx *Context, s movement.State, in movement.Input) movement.State {
			ledge, _ := findLedge(ctx, s, in)
			s.OnGround = false
			s.Vel = mgl64.Vec3{}
			s.Payload = movement.MantlePayload{
				Start:    s.Pos,
				Target:   ledge.Target,
				Duration: ctx.Params.MantleDuration,
			}
			return s
		},
		Step: stepMantling,
	}
}

func stepGrounded(ctx *Context, s movement.State, in movement.Input, dt float64) movement.State {
	p := ctx.Params
	speed := p.WalkSpeed
	if in.Crouch {
		speed = p.CrouchSpeed
	} else if in.Sprint {
		speed = p.SprintSpeed
	}

	rate := p.BrakingDecel
	if in.Moving() {
		rate = p.GroundAccel
	}
	vel := approach(game.Vec3Hz(s.Vel), wishVelocity(in, speed), rate*dt)
	if in.Jump {
		vel[1] = p.JumpVelocity
	} else {
		vel[1] = -p.Gravity * dt
	}

	s = move(ctx, s, vel, dt, true)
	s.SetRotation(mgl64.Vec3{in.Pitch, in.Yaw, 0})
	return s
}

func stepFalling(ctx *Context, s movement.State, in movement.Input, dt float64) movement.State {
	p := ctx.Params
	hz := game.Vec3Hz(s.Vel).Mul(1 - p.AirDrag)
	hz = approach(hz, wishVelocity(in, p.WalkSpeed), p.AirControl*p.GroundAccel*dt)

	vel := hz
	vel[1] = math.Max(s.Vel.Y()-p.Gravity*dt, -p.TerminalSpeed)

	s = move(ctx, s, vel, dt, false)
	s.SetRotation(mgl64.Vec3{in.Pitch, in.Yaw, 0})
	return s
}

func stepSwimming(ctx *Context, s movement.State, in movement.Input, dt float64) movement.State {
	p := ctx.Params
	immersion := world.Immersion(ctx.World, box(ctx, s))

	forward := game.DirectionVector(in.Yaw, in.Pitch)
	wish := forward.Mul(in.Move.Y()).Add(game.RotateXZ(mgl64.Vec2{in.Move.X(), 0}, in.Yaw))
	if l := wish.Len(); l > 1 {
		wish = wish.Mul(1 / l)
	}
	wish = wish.Mul(p.SwimSpeed)
	if in.Jump {
		wish[1] = math.Max(wish[1], p.SwimSpeed*0.5)
	}

	vel := s.Vel.Add(wish.Sub(s.Vel).Mul(math.Min(1, p.SwimDrag*dt)))
	vel[1] += (p.Buoyancy*immersion - p.Gravity) * dt
	vel[1] = game.ClampFloat(vel[1], -p.SwimSpeed, p.SwimSpeed)

	s = move(ctx, s, vel, dt, false)
	s.OnGround = false
	s.Payload = movement.SwimPayload{Immersion: world.Immersion(ctx.World, box(ctx, s))}
	s.SetRotation(mgl64.Vec3{in.Pitch, in.Yaw, 0})
	return s
}

func stepClimbing(ctx *Context, s movement.State, in movement.Input, dt float64) movement.State {
	p := ctx.Params
	payload, _ := movement.PayloadOf[movement.ClimbPayload](s)
	normal := payload.Normal
	tangent := mgl64.Vec3{normal.Z(), 0, -normal.X()}

	vel := tangent.Mul(in.Move.X() * p.ClimbSpeed * 0.5)
	vel[1] = in.Move.Y() * p.ClimbSpeed

	s = move(ctx, s, vel, dt, false)
	s.OnGround = false
	if n, ok := world.ClimbSurface(ctx.World, box(ctx, s), p.ClimbReach); ok {
		normal = n
	}
	s.Payload = movement.ClimbPayload{Normal: normal}
	s.SetRotation(mgl64.Vec3{in.Pitch, game.YawFromDirection(normal.Mul(-1)), 0})
	return s
}

func stepMantling(ctx *Context, s movement.State, in movement.Input, dt float64) movement.State {
	payload, ok := movement.PayloadOf[movement.MantlePayload](s)
	if !ok || payload.Duration == 0 {
		return s
	}
	payload.Elapsed++
	t := math.Min(float64(payload.Elapsed)/float64(payload.Duration), 1)

	// The character is lifted during the first half of the mantle and pulled forward over the second.
	rise := smoothstep(math.Min(t*2, 1))
	forward := smoothstep(math.Max(t*2-1, 0))
	delta := payload.Target.Sub(payload.Start)
	pos := payload.Start.Add(mgl64.Vec3{delta.X() * forward, delta.Y() * rise, delta.Z() * forward})

	if dt > 0 {
		s.SetVel(pos.Sub(s.Pos).Mul(1 / dt))
	}
	s.SetPos(pos)
	s.Payload = payload
	s.OnGround = payload.Done()
	if s.OnGround {
		s.SetVel(mgl64.Vec3{})
	}
	return s
}

// move applies vel over dt through the world, zeroing the velocity on every axis that collided.
func move(ctx *Context, s movement.State, vel mgl64.Vec3, dt float64, grounded bool) movement.State {
	step := 0.0
	if grounded {
		step = ctx.Params.StepHeight
	}
	res := world.Move(ctx.World, box(ctx, s), vel.Mul(dt), s.OnGround, step)
	if res.CollideX {
		vel[0] = 0
	}
	if res.CollideY {
		vel[1] = 0
	}
	if res.CollideZ {
		vel[2] = 0
	}
	s.SetPos(world.FeetOf(res.Box))
	s.SetVel(vel)
	s.OnGround = res.OnGround
	return s
}

func box(ctx *Context, s movement.State) cube.BBox {
	return world.BoxAt(s.Pos, ctx.Params.Width, ctx.Params.Height)
}

func findLedge(ctx *Context, s movement.State, in movement.Input) (world.Ledge, bool) {
	p := ctx.Params
	return world.FindLedge(ctx.World, box(ctx, s), game.DirectionVector(in.Yaw, 0), p.MantleReach, p.StepHeight, p.MantleHeight)
}

// wishVelocity returns the horizontal velocity requested by the input at the speed passed. Diagonal input is
// normalised so that it is not faster than straight movement.
func wishVelocity(in movement.Input, speed float64) mgl64.Vec3 {
	force := in.Move.Len()
	if force < 1e-4 {
		return mgl64.Vec3{}
	}
	return game.RotateXZ(in.Move, in.Yaw).Mul(speed / math.Max(force, 1))
}

// approach moves current towards target by at most maxDelta.
func approach(current, target mgl64.Vec3, maxDelta float64) mgl64.Vec3 {
	diff := target.Sub(current)
	l := diff.Len()
	if l <= maxDelta || l == 0 {
		return target
	}
	return current.Add(diff.Mul(maxDelta / l))
}

func smoothstep(t float64) float64 {
	return t * t * (3 - 2*t)
}
