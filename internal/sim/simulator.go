package sim

import (
	"context"
	"image"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"drone-city-sim/internal/detect"
	"drone-city-sim/internal/geom"
	"drone-city-sim/internal/world"
)

// Config groups the tunables of every tick component.
type Config struct {
	Flight    FlightParams   `mapstructure:"flight"`
	Wind      WindParams     `mapstructure:"wind"`
	Camera    CameraParams   `mapstructure:"camera"`
	DroneCam  DroneCamParams `mapstructure:"droneCam"`
	MaxFrames int            `mapstructure:"maxFrames"`
	Spawn     geom.Vec3      `mapstructure:"spawn"`
	TickRate  int            `mapstructure:"tickRate"` // fixed updates per second
	Seed      int64          `mapstructure:"seed"`
}

func DefaultConfig() Config {
	return Config{
		Flight:    DefaultFlightParams(),
		Wind:      DefaultWindParams(),
		Camera:    DefaultCameraParams(),
		DroneCam:  DefaultDroneCamParams(),
		MaxFrames: DefaultMaxFrames,
		Spawn:     geom.Vec3{X: 0, Y: 50, Z: 0},
		TickRate:  120,
		Seed:      1,
	}
}

// FrameSource renders a camera view to pixels. The GL renderer implements
// it with an offscreen framebuffer.
type FrameSource interface {
	RenderFrame(view CameraView) (*image.RGBA, error)
}

// RotorSink follows the propeller speed, e.g. for rotor audio.
type RotorSink interface {
	SetPropellerSpeed(speed float64)
}

// Deps are the optional collaborators of a Simulator. Any may be nil.
type Deps struct {
	World    *world.World
	Detector *detect.Adapter
	HUD      HUD
	Exporter FrameExporter
	Frames   FrameSource
	Rotor    RotorSink
	Rand     *rand.Rand
	Logger   zerolog.Logger
}

// Simulator is the single context owning every tick component.
type Simulator struct {
	cfg Config

	drone      *Drone
	wind       *Wind
	camera     *ChaseCamera
	recorder   *Recorder
	controls   *Controls
	actions    *ActionQueue
	dispatcher *Dispatcher

	world    *world.World
	detector *detect.Adapter
	hud      HUD
	frames   FrameSource
	rotor    RotorSink
	metrics  *simMetrics
	log      zerolog.Logger

	epoch     time.Time
	simTime   float64
	ticks     int64
	telemetry float64
	notice    string

	lastFrame *image.RGBA

	droneCamFullscreen bool
	headlight          bool
	hudVisible         bool
}

func NewSimulator(cfg Config, deps Deps) (*Simulator, error) {
	metrics, err := newSimMetrics()
	if err != nil {
		return nil, err
	}
	rng := deps.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(cfg.Seed))
	}
	hud := deps.HUD
	if hud == nil {
		hud = NewHUDValues()
	}

	flight := cfg.Flight
	flight.ResetPosition = cfg.Spawn
	drone := NewDrone(flight)
	drone.Rig = NewDroneRigWithCamera(cfg.DroneCam)
	drone.Rig.Sync(drone)
	// Later resets use the fixed reset pose, not the spawn.
	drone.Params.ResetPosition = cfg.Flight.ResetPosition

	queue := NewActionQueue()
	s := &Simulator{
		cfg:        cfg,
		drone:      drone,
		wind:       NewWind(cfg.Wind, rng),
		camera:     NewChaseCamera(cfg.Camera),
		recorder:   NewRecorder(cfg.MaxFrames, deps.Exporter, deps.Logger),
		controls:   NewControls(),
		actions:    queue,
		dispatcher: NewDispatcher(queue),
		world:      deps.World,
		detector:   deps.Detector,
		hud:        hud,
		frames:     deps.Frames,
		rotor:      deps.Rotor,
		metrics:    metrics,
		log:        deps.Logger.With().Str("component", "sim").Logger(),
		epoch:      time.Now(),
		hudVisible: true,
	}
	s.camera.Snap(drone.Pose())
	s.registerHandlers()
	return s, nil
}

func (s *Simulator) registerHandlers() {
	s.dispatcher.Register(ActionReset, func(Action) {
		s.drone.Reset()
		s.camera.Snap(s.drone.Pose())
		s.metrics.resets.Add(context.Background(), 1)
		s.notify("RESET")
	})
	s.dispatcher.Register(ActionResetSession, func(Action) {
		s.drone.ResetSession()
		s.camera.Snap(s.drone.Pose())
		s.metrics.resets.Add(context.Background(), 1)
		s.notify("RESET + RECHARGED")
	})
	s.dispatcher.Register(ActionToggleDroneCam, func(Action) {
		s.droneCamFullscreen = !s.droneCamFullscreen
	})
	s.dispatcher.Register(ActionToggleHeadlight, func(Action) {
		s.headlight = !s.headlight
		if s.headlight {
			s.notify("HEADLIGHT ON")
		} else {
			s.notify("HEADLIGHT OFF")
		}
	})
	s.dispatcher.Register(ActionCycleEnvironment, func(Action) {
		if s.world == nil {
			return
		}
		p := s.world.NextPreset()
		s.log.Info().Str("preset", p.Name).Msg("environment changed")
		s.notify(p.Name)
	})
	s.dispatcher.Register(ActionToggleRecording, func(Action) {
		s.recorder.Toggle()
		if s.recorder.State() == RecorderRecording {
			s.notify("RECORDING")
		} else {
			s.notify("RECORDING SAVED")
		}
	})
	s.dispatcher.Register(ActionToggleHUD, func(Action) {
		s.hudVisible = !s.hudVisible
	})
}

func (s *Simulator) notify(msg string) { s.notice = msg }

// Push queues actions from outside the aggregator, e.g. a UI button.
func (s *Simulator) Push(actions ...Action) { s.actions.Push(actions...) }

// FocusLost releases all keys.
func (s *Simulator) FocusLost() { s.controls.FocusLost() }

// Tick runs one step: input, dispatch, wind, flight, recorder, camera,
// HUD, then detection.
func (s *Simulator) Tick(held HeldSet, dt float64) {
	intent, actions := s.controls.Aggregate(held)
	s.actions.Push(actions...)
	for _, a := range actions {
		s.metrics.action(a.Kind)
	}
	s.dispatcher.Dispatch()

	force := s.wind.Update(dt, s.drone.Position.Y)
	s.drone.Step(intent, force, dt)
	pose := s.drone.Pose()

	s.recorder.Append(pose)
	s.camera.Update(pose, dt)
	if s.rotor != nil {
		s.rotor.SetPropellerSpeed(pose.PropellerSpeed)
	}

	if dt > 0 {
		s.simTime += dt
		s.telemetry += dt
	}
	s.ticks++
	ctx := context.Background()
	s.metrics.ticks.Add(ctx, 1)
	s.metrics.battery.Record(ctx, s.drone.Battery.Level)

	s.publishHUD(pose)
	s.updateDetection()

	// Telemetry every ~2 seconds of simulated time
	if s.telemetry >= 2.0 {
		s.telemetry = 0
		s.logTelemetry(pose)
	}
}

func (s *Simulator) publishHUD(p Pose) {
	h := s.hud
	h.Publish(HUDAltitude, p.Position.Y)
	h.Publish(HUDSpeed, p.HorizontalSpeed())
	h.Publish(HUDPositionX, p.Position.X)
	h.Publish(HUDPositionZ, p.Position.Z)
	h.Publish(HUDHeading, p.Heading())
	h.Publish(HUDBattery, s.drone.Battery.Level)
	h.Publish(HUDWindSpeed, s.wind.Speed())
	h.Publish(HUDRecorder, s.recorder.State().String())
	h.Publish(HUDRecordedFrames, float64(s.recorder.Len()))
	if s.world != nil {
		h.Publish(HUDEnvironment, s.world.CurrentPreset().Name)
	}
	if s.detector != nil {
		h.Publish(HUDDetectionStatus, s.detector.Status())
		h.Publish(HUDDetectionCount, float64(len(s.detector.Latest())))
	}
	if s.notice != "" {
		h.Publish(HUDNotice, s.notice)
		s.notice = ""
	}
}

// clock is the simulated wall time used for detection throttling.
func (s *Simulator) clock() time.Time {
	return s.epoch.Add(time.Duration(s.simTime * float64(time.Second)))
}

func (s *Simulator) updateDetection() {
	if s.detector == nil {
		return
	}
	s.detector.Poll()

	now := s.clock()
	if !s.detector.Due(now) {
		return
	}
	view := s.drone.Rig.CameraView()
	frame := detect.Frame{
		ViewProj: view.ViewProjection(),
		Eye:      view.Eye,
		Width:    view.Width,
		Height:   view.Height,
	}
	if s.frames != nil {
		img, err := s.frames.RenderFrame(view)
		if err != nil {
			s.log.Warn().Err(err).Msg("drone cam render failed")
			return
		}
		frame.Image = img
		s.lastFrame = img
	}
	if err := s.detector.Submit(now, frame); err != nil {
		s.log.Trace().Err(err).Msg("detection frame skipped")
	}
}

func (s *Simulator) logTelemetry(p Pose) {
	s.log.Debug().
		Float64("alt", p.Position.Y).
		Float64("speed", p.HorizontalSpeed()).
		Float64("heading", p.Heading()).
		Float64("battery", s.drone.Battery.Level).
		Float64("wind", s.wind.Speed()).
		Str("rec", s.recorder.State().String()).
		Int64("ticks", s.ticks).
		Msg("telemetry")
}

// RunHeadless executes fixed-step updates without creating a window.
// held is applied every step. Returns the number of simulation steps
// performed.
func (s *Simulator) RunHeadless(held HeldSet, steps int, ups int, dur time.Duration) int {
	if ups <= 0 {
		ups = s.cfg.TickRate
	}
	if ups <= 0 {
		ups = 120
	}
	fixed := time.Second / time.Duration(ups)
	performed := 0
	start := time.Now()
	useSteps := steps > 0
	useDur := dur > 0

	for {
		if useSteps && performed >= steps {
			break
		}
		if useDur && time.Since(start) >= dur {
			break
		}
		if !useSteps && !useDur {
			break
		}
		s.Tick(held, fixed.Seconds())
		performed++
	}
	return performed
}

// Close flushes an in-progress recording.
func (s *Simulator) Close() {
	s.recorder.Stop()
	if s.detector != nil {
		s.detector.Close()
	}
}

func (s *Simulator) Drone() *Drone { return s.drone }
func (s *Simulator) Wind() *Wind { return s.wind }
func (s *Simulator) Camera() *ChaseCamera { return s.camera }
func (s *Simulator) Recorder() *Recorder { return s.recorder }
func (s *Simulator) World() *world.World { return s.world }
func (s *Simulator) Detector() *detect.Adapter { return s.detector }
func (s *Simulator) HUD() HUD { return s.hud }

// LastFrame is the most recent drone-cam image, or nil without a frame
// source.
func (s *Simulator) LastFrame() *image.RGBA { return s.lastFrame }
func (s *Simulator) Ticks() int64 { return s.ticks }
func (s *Simulator) SimTime() float64 { return s.simTime }
func (s *Simulator) DroneCamFullscreen() bool { return s.droneCamFullscreen }
func (s *Simulator) Headlight() bool { return s.headlight }
func (s *Simulator) HUDVisible() bool { return s.hudVisible }
