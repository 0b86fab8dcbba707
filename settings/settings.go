package settings

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/oomph-ac/locomotion/anim"
	"github.com/oomph-ac/locomotion/game"
	"github.com/oomph-ac/locomotion/mode"
	"github.com/oomph-ac/locomotion/motiondb"
	"github.com/oomph-ac/locomotion/oerror"
	"github.com/oomph-ac/locomotion/reconcile"
	"github.com/oomph-ac/locomotion/simulation"
	"github.com/pelletier/go-toml"
	"github.com/sirupsen/logrus"
)

// EnvPrefix is the prefix of every environment variable that overrides a setting.
const EnvPrefix = "LOCOMOTION_"

// Settings contains everything that can be configured for the simulation, reconciliation and animation of
// characters.
type Settings struct {
	Simulation Simulation
	Reconcile  Reconcile
	Animation  Animation
	MotionDB   MotionDB
	Transport  Transport
	Log        Log
	// Workers is the number of characters stepped in parallel. Zero uses one worker per CPU.
	Workers int `env:"WORKERS"`
}

// Simulation ...
type Simulation struct {
	TickRate int `env:"TICK_RATE"`
	// Precision is the number of decimal places states are rounded to after every step.
	Precision int
	// History is the number of ticks of history kept per character.
	History int `env:"HISTORY"`
	Params  mode.Params
}

// Reconcile ...
type Reconcile struct {
	Tolerance         float64 `env:"TOLERANCE"`
	OrientationWeight float64
	VerifyDeterminism bool `env:"VERIFY_DETERMINISM"`
	// StaleLogSeconds limits how often stale authoritative states are logged.
	StaleLogSeconds float64
}

// Animation holds the tunables of the animation solvers.
type Animation struct {
	BlendFrames    int
	MaxTurnRate    float32
	RotationMethod string
	// CorrectionBlendWindow is the time, in seconds, over which corrections are smoothed.
	CorrectionBlendWindow float32 `env:"CORRECTION_BLEND_WINDOW"`

	StopClip     string
	Deceleration float32

	TurnThreshold    float32
	TurnRotationRate float32

	CompassMode string
	MinPlayRate float32
	MaxPlayRate float32

	TrajectoryHistory int
	PivotAngle        float32
	MaxPoseCost       float32
}

// MotionDB ...
type MotionDB struct {
	// Path is the path of the SQLite motion database. An empty path disables the solvers that need one.
	Path             string `env:"MOTION_DB"`
	PoseWeight       float32
	TrajectoryWeight float32
}

// Transport ...
type Transport struct {
	// LoopbackLatency is the one-way latency of the loopback transport in ticks.
	LoopbackLatency int `env:"LOOPBACK_LATENCY"`
	// RakNetAddress is the address the RakNet transport listens on or dials. It is empty to use the loopback.
	RakNetAddress string `env:"RAKNET_ADDRESS"`
}

// Log ...
type Log struct {
	Level string `env:"LOG_LEVEL"`
	File  string `env:"LOG_FILE"`
}

// DefaultSettings returns the default settings.
func DefaultSettings() Settings {
	s := Settings{}
	s.Simulation.TickRate = game.DefaultTickRate
	s.Simulation.Precision = 0
	s.Simulation.History = game.DefaultHistorySize
	s.Simulation.Params = mode.DefaultParams()

	opts := reconcile.DefaultOptions()
	s.Reconcile.Tolerance = opts.Tolerance
	s.Reconcile.OrientationWeight = opts.OrientationWeight
	s.Reconcile.VerifyDeterminism = opts.VerifyDeterminism
	s.Reconcile.StaleLogSeconds = opts.StaleLogInterval.Seconds()

	orientation := anim.DefaultOrientationWarpConfig()
	s.Animation.BlendFrames = orientation.BlendFrames
	s.Animation.MaxTurnRate = orientation.MaxTurnRate
	s.Animation.RotationMethod = orientation.Method.String()
	s.Animation.CorrectionBlendWindow = 0.2

	dm := anim.DefaultDistanceMatchingConfig()
	s.Animation.StopClip = dm.Clip
	s.Animation.Deceleration = float32(s.Simulation.Params.BrakingDecel)

	turn := anim.DefaultTurnInPlaceConfig()
	s.Animation.TurnThreshold = turn.Threshold
	s.Animation.TurnRotationRate = turn.RotationRate

	loco := anim.DefaultLocomotionConfig()
	s.Animation.CompassMode = loco.Mode.String()
	s.Animation.MinPlayRate = loco.MinPlayRate
	s.Animation.MaxPlayRate = loco.MaxPlayRate

	traj := anim.DefaultTrajectoryConfig()
	s.Animation.TrajectoryHistory = traj.History
	s.Animation.PivotAngle = traj.PivotAngle

	weights := motiondb.DefaultWeights()
	s.MotionDB.PoseWeight = weights.Pose
	s.MotionDB.TrajectoryWeight = weights.Trajectory

	s.Transport.LoopbackLatency = 2
	s.Log.Level = logrus.InfoLevel.String()
	return s
}

// Validate returns a ConfigurationError for the first setting that is out of range.
func (s Settings) Validate() error {
	if s.Simulation.TickRate <= 0 {
		return oerror.Configuration("tick rate", "must be positive, got %d", s.Simulation.TickRate)
	}
	if s.Simulation.Precision < 0 || s.Simulation.Precision > 15 {
		return oerror.Configuration("precision", "must be in [0, 15], got %d", s.Simulation.Precision)
	}
	if s.Simulation.History < 2 {
		return oerror.Configuration("history", "must hold at least 2 ticks, got %d", s.Simulation.History)
	}
	if s.Workers < 0 {
		return oerror.Configuration("workers", "must not be negative, got %d", s.Workers)
	}
	if s.Transport.LoopbackLatency < 0 {
		return oerror.Configuration("loopback latency", "must not be negative, got %d", s.Transport.LoopbackLatency)
	}
	if s.MotionDB.PoseWeight < 0 || s.MotionDB.TrajectoryWeight < 0 {
		return oerror.Configuration("motion database weights", "must not be negative")
	}
	if _, err := logrus.ParseLevel(s.Log.Level); err != nil {
		return oerror.Configuration("log level", "%v", err)
	}
	if err := s.Simulation.Params.Validate(); err != nil {
		return err
	}
	if err := s.ReconcileOptions().Validate(); err != nil {
		return err
	}
	if _, err := s.Solvers(); err != nil {
		return err
	}
	return nil
}

// SimulationOptions ...
func (s Settings) SimulationOptions() simulation.Options {
	return simulation.Options{Precision: s.Simulation.Precision}
}

// TickDuration returns the duration of a single tick.
func (s Settings) TickDuration() time.Duration {
	return time.Second / time.Duration(max(s.Simulation.TickRate, 1))
}

// ReconcileOptions ...
func (s Settings) ReconcileOptions() reconcile.Options {
	return reconcile.Options{
		Tolerance:         s.Reconcile.Tolerance,
		OrientationWeight: s.Reconcile.OrientationWeight,
		TickDuration:      1 / float64(max(s.Simulation.TickRate, 1)),
		VerifyDeterminism: s.Reconcile.VerifyDeterminism,
		StaleLogInterval:  time.Duration(s.Reconcile.StaleLogSeconds * float64(time.Second)),
	}
}

// Weights returns the weights of motion database searches.
func (s Settings) Weights() motiondb.Weights {
	return motiondb.Weights{Pose: s.MotionDB.PoseWeight, Trajectory: s.MotionDB.TrajectoryWeight}
}

// SolverSettings holds the configuration of every animation solver.
type SolverSettings struct {
	Orientation      anim.OrientationWarpConfig
	DistanceMatching anim.DistanceMatchingConfig
	PoseSearch       anim.PoseSearchConfig
	TurnInPlace      anim.TurnInPlaceConfig
	Locomotion       anim.LocomotionConfig
	Trajectory       anim.TrajectoryConfig
	BlendWindow      float32
	// MantleSeconds is the duration of a mantle.
	MantleSeconds float32
}

// Solvers converts the animation settings into solver configurations, validating each of them.
func (s Settings) Solvers() (SolverSettings, error) {
	a := s.Animation
	method, err := anim.ParseRotationMethod(a.RotationMethod)
	if err != nil {
		return SolverSettings{}, err
	}
	compass, err := anim.ParseCompassMode(a.CompassMode)
	if err != nil {
		return SolverSettings{}, err
	}
	groundSpeed := float32(s.Simulation.Params.WalkSpeed)

	conf := SolverSettings{
		Orientation: anim.OrientationWarpConfig{
			BlendFrames: a.BlendFrames,
			MaxTurnRate: a.MaxTurnRate,
			Method:      method,
			MinSpeed:    0.1,
		},
		DistanceMatching: anim.DistanceMatchingConfig{Clip: a.StopClip, Deceleration: a.Deceleration, MinSpeed: 0.05},
		PoseSearch:       anim.PoseSearchConfig{MaxCost: a.MaxPoseCost},
		TurnInPlace:      anim.DefaultTurnInPlaceConfig(),
		Locomotion: anim.LocomotionConfig{
			Mode:        compass,
			MinSpeed:    0.1,
			MinPlayRate: a.MinPlayRate,
			MaxPlayRate: a.MaxPlayRate,
		},
		Trajectory: anim.TrajectoryConfig{
			History:      a.TrajectoryHistory,
			Deceleration: a.Deceleration,
			MaxSpeed:     max(groundSpeed, float32(s.Simulation.Params.SprintSpeed)),
			PivotAngle:   a.PivotAngle,
		},
		BlendWindow:   a.CorrectionBlendWindow,
		MantleSeconds: float32(s.Simulation.Params.MantleDuration) / float32(max(s.Simulation.TickRate, 1)),
	}
	conf.TurnInPlace.Threshold = a.TurnThreshold
	conf.TurnInPlace.RotationRate = a.TurnRotationRate

	if a.CorrectionBlendWindow <= 0 {
		return SolverSettings{}, oerror.Configuration("correction blend window", "must be positive, got %v", a.CorrectionBlendWindow)
	}
	if a.MaxPoseCost < 0 {
		return SolverSettings{}, oerror.Configuration("max pose cost", "must not be negative, got %v", a.MaxPoseCost)
	}
	for _, err := range []error{
		conf.Orientation.Validate(),
		conf.DistanceMatching.Validate(),
		conf.TurnInPlace.Validate(),
		conf.Locomotion.Validate(),
		conf.Trajectory.Validate(),
	} {
		if err != nil {
			return SolverSettings{}, err
		}
	}
	return conf, nil
}

// SaveDefault will create and save the default settings file. If the file already exists, it will return an error.
func SaveDefault(path string) error {
	s := DefaultSettings()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if data, err := toml.Marshal(s); err != nil {
			return fmt.Errorf("failed encoding default settings: %w", err)
		} else if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed creating settings file: %w", err)
		}
		return nil
	}
	return errors.New("settings file already exists")
}

// Load will load the settings from your settings file, and return an error if the file does not exist. Settings
// missing from the file keep their default values, and environment variables prefixed with EnvPrefix override
// the file. The settings returned are validated.
func Load(path string) (Settings, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Settings{}, errors.New("settings file doesn't exist")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("error reading config: %w", err)
	}

	settings := DefaultSettings()
	if err = toml.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("error decoding config: %w", err)
	}
	return FromEnv(settings)
}

// FromEnv applies environment overrides to the settings passed and validates the result.
func FromEnv(s Settings) (Settings, error) {
	if err := env.ParseWithOptions(&s, env.Options{Prefix: EnvPrefix}); err != nil {
		return Settings{}, fmt.Errorf("error parsing environment: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}
