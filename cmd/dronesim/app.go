package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"drone-city-sim/internal/audio"
	"drone-city-sim/internal/config"
	"drone-city-sim/internal/detect"
	"drone-city-sim/internal/flightlog"
	"drone-city-sim/internal/logging"
	"drone-city-sim/internal/sim"
	"drone-city-sim/internal/world"
)

// app carries what every subcommand shares: the loaded config and logger.
type app struct {
	configPath string
	logLevel   string

	cfg      config.Config
	log      zerolog.Logger
	closeLog func() error
}

func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	log, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	a.cfg, a.log, a.closeLog = cfg, log, closeLog
	return nil
}

// redirectConsole rebuilds the logger with its console output sent to w.
// File and graylog outputs are kept.
func (a *app) redirectConsole(w io.Writer) error {
	if err := a.close(); err != nil {
		return err
	}
	a.cfg.Log.Console = w
	log, closeLog, err := logging.New(a.cfg.Log)
	if err != nil {
		a.closeLog = nil
		return err
	}
	a.log, a.closeLog = log, closeLog
	return nil
}

func (a *app) close() error {
	if a.closeLog == nil {
		return nil
	}
	return a.closeLog()
}

// buildWorld generates the city. seed 0 picks a time seed, which is logged
// so the city can be regenerated.
func (a *app) buildWorld(ctx context.Context, seed int64) (*world.World, error) {
	layout := world.DefaultLayout()
	if a.cfg.World.Layout != "" {
		l, err := world.LoadLayout(a.cfg.World.Layout)
		if err != nil {
			return nil, err
		}
		layout = l
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	start := time.Now()
	w := world.Generate(layout, rand.New(rand.NewSource(seed)))
	a.log.Info().
		Int64("seed", seed).
		Int("objects", len(w.Objects())).
		Int("roads", len(w.Roads())).
		Object("placement", w.Report).
		Dur("took", time.Since(start)).
		Msg("world generated")

	if a.cfg.World.Tiles {
		loader := world.NewHTTPTileLoader(a.cfg.World.TileTimeout)
		failed := w.LoadTiles(ctx, loader, a.cfg.World.TileParallel, a.log)
		a.log.Info().Int("tiles", len(w.Tiles)).Int("failed", failed).Msg("ground tiles loaded")
	}
	return w, nil
}

// buildDetector starts the adapter; with detection disabled it stays in
// the disabled state and never runs.
func (a *app) buildDetector(ctx context.Context, w *world.World) (*detect.Adapter, error) {
	var det detect.Detector
	if a.cfg.Detection.Enabled {
		det = detect.NewGroundTruthDetector(w, a.cfg.Detection.GroundTruth)
	}
	adapter, err := detect.NewAdapter(det, a.cfg.Detection.Interval, a.log)
	if err != nil {
		return nil, fmt.Errorf("creating detection adapter: %w", err)
	}
	adapter.Start(ctx)
	return adapter, nil
}

func (a *app) openStore() (*flightlog.Store, error) {
	if !a.cfg.Store.Enabled {
		return nil, errors.New("flight store is disabled (store.enabled)")
	}
	return flightlog.OpenStore(a.cfg.Store.Flightlog(), a.log)
}

// buildExporter wires the recorder sink. Optional sinks that fail to open
// are logged and skipped.
func (a *app) buildExporter() (*flightlog.Exporter, func()) {
	exp := flightlog.NewExporter(a.cfg.Recordings.Dir, a.cfg.Recordings.TickRate, a.log)
	exp.Plot = a.cfg.Recordings.Plot

	if a.cfg.Store.Enabled {
		store, err := a.openStore()
		if err != nil {
			a.log.Warn().Err(err).Msg("flight store unavailable")
		} else {
			exp.Store = store
		}
	}
	if a.cfg.Influx.Enabled {
		sink, err := flightlog.NewInfluxSink(a.cfg.Influx, a.log)
		if err != nil {
			a.log.Warn().Err(err).Msg("influx sink unavailable")
		} else {
			exp.Influx = sink
		}
	}

	return exp, func() {
		if exp.Store != nil {
			if err := exp.Store.Close(); err != nil {
				a.log.Warn().Err(err).Msg("closing flight store")
			}
		}
		if exp.Influx != nil {
			exp.Influx.Close()
		}
	}
}

// session is a fully wired simulator plus everything it must release.
type session struct {
	sim      *sim.Simulator
	world    *world.World
	exporter *flightlog.Exporter
	cleanup  []func()
}

func (s *session) Close() {
	s.sim.Close()
	for i := len(s.cleanup) - 1; i >= 0; i-- {
		s.cleanup[i]()
	}
}

type sessionOptions struct {
	HUD   sim.HUD
	Audio bool
	// Frames, when set, builds the drone camera source once the world exists.
	Frames func(w *world.World) (sim.FrameSource, error)
}

func (a *app) newSession(ctx context.Context, opts sessionOptions) (*session, error) {
	ctx, cancel := context.WithCancel(ctx)
	sess := &session{cleanup: []func(){cancel}}

	w, err := a.buildWorld(ctx, a.cfg.World.Seed)
	if err != nil {
		cancel()
		return nil, err
	}
	sess.world = w

	adapter, err := a.buildDetector(ctx, w)
	if err != nil {
		cancel()
		return nil, err
	}

	exp, closeExp := a.buildExporter()
	sess.exporter = exp
	sess.cleanup = append(sess.cleanup, closeExp)

	deps := sim.Deps{
		World:    w,
		Detector: adapter,
		HUD:      opts.HUD,
		Exporter: exp,
		Logger:   a.log,
	}
	if opts.Frames != nil {
		frames, err := opts.Frames(w)
		if err != nil {
			adapter.Close()
			for _, c := range sess.cleanup {
				c()
			}
			return nil, err
		}
		deps.Frames = frames
	}
	if opts.Audio && a.cfg.Audio.Enabled {
		player, err := audio.Start(a.cfg.Audio)
		if err != nil {
			a.log.Warn().Err(err).Msg("rotor audio disabled")
		} else {
			deps.Rotor = player
			sess.cleanup = append(sess.cleanup, player.Close)
		}
	}

	s, err := sim.NewSimulator(a.cfg.Sim, deps)
	if err != nil {
		adapter.Close()
		for _, c := range sess.cleanup {
			c()
		}
		return nil, fmt.Errorf("creating simulator: %w", err)
	}
	sess.sim = s
	return sess, nil
}
