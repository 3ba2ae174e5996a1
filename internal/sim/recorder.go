package sim

import (
	"github.com/rs/zerolog"

	"drone-city-sim/internal/geom"
)

// RecordingFrame is one sampled tick of a recorded flight.
type RecordingFrame struct {
	Position geom.Vec3
	Velocity geom.Vec3
	Yaw      float64
	Index    int
}

// HorizontalSpeed is the XZ speed of the frame.
func (f RecordingFrame) HorizontalSpeed() float64 { return f.Velocity.HorizontalLength() }

// FrameExporter receives a finished recording. It gets its own copy of the
// frames.
type FrameExporter interface {
	Export(frames []RecordingFrame) error
}

type RecorderState int

const (
	RecorderIdle RecorderState = iota
	RecorderRecording
)

func (s RecorderState) String() string {
	if s == RecorderRecording {
		return "REC"
	}
	return "IDLE"
}

const DefaultMaxFrames = 36000 // ten minutes at 60 Hz

type Recorder struct {
	MaxFrames int

	state    RecorderState
	frames   []RecordingFrame
	exporter FrameExporter
	log      zerolog.Logger
}

func NewRecorder(maxFrames int, exporter FrameExporter, log zerolog.Logger) *Recorder {
	if maxFrames <= 0 {
		maxFrames = DefaultMaxFrames
	}
	return &Recorder{
		MaxFrames: maxFrames,
		exporter:  exporter,
		log:       log.With().Str("component", "recorder").Logger(),
	}
}

func (r *Recorder) State() RecorderState { return r.state }

func (r *Recorder) Len() int { return len(r.frames) }

// Frames returns a copy of the current or last recording.
func (r *Recorder) Frames() []RecordingFrame {
	out := make([]RecordingFrame, len(r.frames))
	copy(out, r.frames)
	return out
}

// Start clears any previous recording and begins a new one.
func (r *Recorder) Start() {
	r.frames = r.frames[:0]
	r.state = RecorderRecording
	r.log.Info().Int("max_frames", r.MaxFrames).Msg("recording started")
}

// Append samples the pose. It is a no-op while idle and stops the recording
// once MaxFrames is reached.
func (r *Recorder) Append(p Pose) {
	if r.state != RecorderRecording {
		return
	}
	if len(r.frames) >= r.MaxFrames {
		r.Stop()
		return
	}
	r.frames = append(r.frames, RecordingFrame{
		Position: p.Position,
		Velocity: p.Velocity,
		Yaw:      p.Yaw,
		Index:    len(r.frames),
	})
	if len(r.frames) >= r.MaxFrames {
		r.log.Warn().Int("frames", len(r.frames)).Msg("recording frame cap reached")
		r.Stop()
	}
}

// Stop ends the recording and hands the frames to the exporter. Export
// failures are logged only.
func (r *Recorder) Stop() {
	if r.state != RecorderRecording {
		return
	}
	r.state = RecorderIdle
	r.log.Info().Int("frames", len(r.frames)).Msg("recording stopped")
	if r.exporter == nil || len(r.frames) == 0 {
		return
	}
	if err := r.exporter.Export(r.Frames()); err != nil {
		r.log.Error().Err(err).Msg("recording export failed")
	}
}

func (r *Recorder) Toggle() {
	if r.state == RecorderRecording {
		r.Stop()
		return
	}
	r.Start()
}
