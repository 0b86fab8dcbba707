package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/oomph-ac/locomotion/anim"
	"github.com/oomph-ac/locomotion/oerror"
)

func TestDefaultSettingsValid(t *testing.T) {
	s := DefaultSettings()
	if err := s.Validate(); err != nil {
		t.Fatalf("expected default settings to be valid: %v", err)
	}
	conf, err := s.Solvers()
	if err != nil {
		t.Fatal(err)
	}
	if conf.Orientation.Method != anim.RotationClampedSlerp || conf.Locomotion.Mode != anim.CompassStrafing8Way {
		t.Fatalf("unexpected solver settings %+v", conf)
	}
	if s.TickDuration() != time.Second/30 {
		t.Fatalf("unexpected tick duration %v", s.TickDuration())
	}
	if opts := s.ReconcileOptions(); opts.StaleLogInterval != time.Second || opts.Tolerance != 0.1 {
		t.Fatalf("unexpected reconcile options %+v", opts)
	}
}

func TestSaveDefaultAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	if err := SaveDefault(path); err != nil {
		t.Fatal(err)
	}
	if err := SaveDefault(path); err == nil {
		t.Fatal("expected saving over an existing file to fail")
	}
	s, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if s != DefaultSettings() {
		t.Fatalf("expected loaded settings to equal the defaults, got %+v", s)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected loading a missing file to fail")
	}

	bad := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(bad, []byte("this is not toml ="), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Fatal("expected a malformed file to fail")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv(EnvPrefix+"TOLERANCE", "0.5")
	t.Setenv(EnvPrefix+"TICK_RATE", "60")
	t.Setenv(EnvPrefix+"RAKNET_ADDRESS", "127.0.0.1:19132")

	s, err := FromEnv(DefaultSettings())
	if err != nil {
		t.Fatal(err)
	}
	if s.Reconcile.Tolerance != 0.5 || s.Simulation.TickRate != 60 || s.Transport.RakNetAddress != "127.0.0.1:19132" {
		t.Fatalf("expected environment overrides to apply, got %+v", s)
	}
	if s.ReconcileOptions().TickDuration != 1.0/60 {
		t.Fatalf("expected the tick duration to follow the tick rate, got %v", s.ReconcileOptions().TickDuration)
	}

	t.Setenv(EnvPrefix+"LOG_LEVEL", "loud")
	if _, err := FromEnv(DefaultSettings()); !oerror.IsKind(err, oerror.KindConfiguration) {
		t.Fatalf("expected configuration error for an unknown log level, got %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Settings){
		"tick rate":       func(s *Settings) { s.Simulation.TickRate = 0 },
		"history":         func(s *Settings) { s.Simulation.History = 1 },
		"tolerance":       func(s *Settings) { s.Reconcile.Tolerance = -1 },
		"gravity":         func(s *Settings) { s.Simulation.Params.Gravity = 0 },
		"rotation method": func(s *Settings) { s.Animation.RotationMethod = "spin" },
		"compass mode":    func(s *Settings) { s.Animation.CompassMode = "16way" },
		"blend frames":    func(s *Settings) { s.Animation.BlendFrames = 0 },
		"blend window":    func(s *Settings) { s.Animation.CorrectionBlendWindow = 0 },
		"turn threshold":  func(s *Settings) { s.Animation.TurnThreshold = 200 },
		"workers":         func(s *Settings) { s.Workers = -1 },
	}
	for name, mutate := range cases {
		s := DefaultSettings()
		mutate(&s)
		if err := s.Validate(); !oerror.IsKind(err, oerror.KindConfiguration) {
			t.Errorf("%s: expected configuration error, got %v", name, err)
		}
	}
}
