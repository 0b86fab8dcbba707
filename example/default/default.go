package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/chewxy/math32"
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/getsentry/sentry-go"
	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion"
	"github.com/oomph-ac/locomotion/anim"
	"github.com/oomph-ac/locomotion/character"
	"github.com/oomph-ac/locomotion/movement"
	"github.com/oomph-ac/locomotion/settings"
	"github.com/oomph-ac/locomotion/simulation"
	"github.com/oomph-ac/locomotion/transport"
	"github.com/oomph-ac/locomotion/world"
	"github.com/sirupsen/logrus"
)

// The following program runs a character walking around a small arena. In local mode the client and the
// authority run in the same process, connected by a loopback transport. The server and client modes connect
// them over RakNet instead.
func main() {
	mode := flag.String("mode", "local", "one of local, server or client")
	path := flag.String("settings", "settings.toml", "path of the settings file")
	flag.Parse()

	conf := readSettings(*path)
	log := newLogger(conf.Log)

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: dsn}); err != nil {
			log.Fatalf("unable to initialize sentry: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}
	if os.Getenv("PPROF_ENABLED") != "" {
		// set configurations before calling `statsview.New()` method
		viewer.SetConfiguration(viewer.WithTheme(viewer.ThemeWesteros), viewer.WithAddr("localhost:8080"))

		mgr := statsview.New()
		go mgr.Start()
		defer mgr.Stop()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	var err error
	switch *mode {
	case "local":
		err = runLocal(ctx, conf, log)
	case "server":
		err = runServer(ctx, conf, log)
	case "client":
		err = runClient(ctx, conf, log)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil && ctx.Err() == nil {
		log.Fatal(err)
	}
}

// readSettings loads the settings file, creating it with the default settings if it doesn't exist yet.
func readSettings(path string) settings.Settings {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := settings.SaveDefault(path); err != nil {
			panic(err)
		}
	}
	s, err := settings.Load(path)
	if err != nil {
		panic(err)
	}
	return s
}

func newLogger(conf settings.Log) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		ForceColors:     conf.File == "",
		TimestampFormat: "2006-01-02 15:04:05",
		FullTimestamp:   true,
	})
	log.Level, _ = logrus.ParseLevel(conf.Level)
	if conf.File != "" {
		f, err := os.OpenFile(conf.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			panic(err)
		}
		log.SetOutput(f)
	}
	return log
}

// arena returns the environment the character walks around in: a floor with a wall, a ladder and a pool.
func arena() world.Environment {
	return world.NewStatic().
		Floor(0, 32).
		Add(world.VolumeSolid, cube.Box(6, 0, -8, 7, 1, 8)).
		Add(world.VolumeSolid, cube.Box(-12, 0, -2, -11, 6, 2)).
		Add(world.VolumeClimbable, cube.Box(-11, 0, -1, -10.9, 6, 1)).
		Add(world.VolumeWater, cube.Box(-8, -3, 10, 8, 0.9, 20))
}

func spawn(string) movement.State {
	return movement.State{Mode: movement.ModeGrounded, OnGround: true}
}

func newSide(conf settings.Settings, role simulation.Role, log *logrus.Logger) (*locomotion.Locomotion, error) {
	return locomotion.New(locomotion.Config{
		Settings:    conf,
		Role:        role,
		Environment: arena(),
		Log:         log,
		Spawn:       spawn,
	})
}

func runLocal(ctx context.Context, conf settings.Settings, log *logrus.Logger) error {
	server, err := newSide(conf, simulation.RoleAuthority, log)
	if err != nil {
		return err
	}
	defer server.Close()
	client, err := newSide(conf, simulation.RolePredictive, log)
	if err != nil {
		return err
	}
	defer client.Close()

	lb := transport.NewLoopback(uint64(conf.Transport.LoopbackLatency))
	lb.Handle(transport.SideServer, server)
	lb.Handle(transport.SideClient, client)
	server.Connect(lb.End(transport.SideServer))
	client.Connect(lb.End(transport.SideClient))

	a, err := newAnimator(client, "player")
	if err != nil {
		return err
	}

	ticker := time.NewTicker(conf.TickDuration())
	defer ticker.Stop()
	report := time.NewTicker(5 * time.Second)
	defer report.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			client.Step()
			lb.Advance()
			a.frame(float32(conf.TickDuration().Seconds()), log)
		case <-report.C:
			log.Infof("client: %s", client.Stats())
		}
	}
}

func runServer(ctx context.Context, conf settings.Settings, log *logrus.Logger) error {
	server, err := newSide(conf, simulation.RoleAuthority, log)
	if err != nil {
		return err
	}
	defer server.Close()

	l, err := transport.ListenRakNet(conf.Transport.RakNetAddress, server, log)
	if err != nil {
		return err
	}
	server.Connect(l)
	log.Infof("authority listening on %v", l.Addr())

	go reportStats(ctx, server, log)
	return server.Run(ctx)
}

func runClient(ctx context.Context, conf settings.Settings, log *logrus.Logger) error {
	client, err := newSide(conf, simulation.RolePredictive, log)
	if err != nil {
		return err
	}
	defer client.Close()

	conn, err := transport.DialRakNet(ctx, conf.Transport.RakNetAddress, client, log)
	if err != nil {
		return err
	}
	client.Connect(conn)
	log.Infof("connected to %s", conf.Transport.RakNetAddress)

	if _, err := newAnimator(client, "player"); err != nil {
		return err
	}
	go reportStats(ctx, client, log)
	return client.Run(ctx)
}

func reportStats(ctx context.Context, l *locomotion.Locomotion, log *logrus.Logger) {
	t := time.NewTicker(5 * time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			log.Infof("%s: %s", l.Role(), l.Stats())
		}
	}
}

// animator renders the character, feeding the targets of its evaluator back into the facing of the next frame.
type animator struct {
	eval   *anim.Evaluator
	facing float32
}

func newAnimator(l *locomotion.Locomotion, id string) (*animator, error) {
	c, err := l.Spawn(id, spawn(id))
	if err != nil {
		return nil, err
	}
	c.SetInput(wander(0))
	l.Handle(wanderer{})

	eval, err := l.Evaluator(id)
	if err != nil {
		return nil, err
	}
	return &animator{eval: eval}, nil
}

func (a *animator) frame(dt float32, log *logrus.Logger) {
	targets := a.eval.GetWarpTargets(anim.FrameContext{
		DeltaSeconds: dt,
		Facing:       a.facing,
		Animation:    "locomotion",
		PlayRate:     1,
	})
	for _, t := range targets {
		if t.Source == anim.SolverOrientationWarp {
			a.facing = t.Yaw
		}
		log.Tracef("%s: location=%v yaw=%.2f alpha=%.2f", t.Source, t.Location, t.Yaw, t.Alpha)
	}
}

// wanderer sets the input of every predictive character after each tick, walking it in slow circles.
type wanderer struct {
	character.NopHandler
}

func (wanderer) HandleTick(c *character.Character, s movement.State) {
	c.SetInput(wander(s.Tick + 1))
}

func wander(tick uint64) movement.Input {
	t := float32(tick) / 30
	return movement.Input{
		Move:   mgl64.Vec2{0, 1},
		Yaw:    float64(math32.Mod(t*24, 360)),
		Jump:   tick%90 == 0,
		Sprint: math32.Sin(t/4) > 0,
	}
}
