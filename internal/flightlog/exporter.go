package flightlog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"drone-city-sim/internal/sim"
)

const exportTimeout = 30 * time.Second

// Exporter is the recorder's sink. Every recording becomes
// flight_<timestamp>.csv in Dir; the optional sinks get the same frames.
type Exporter struct {
	Dir      string
	TickRate float64
	Plot     bool // also write flight_<timestamp>.png
	Store    *Store
	Influx   *InfluxSink

	now      func() time.Time
	log      zerolog.Logger
	lastPath string
}

func NewExporter(dir string, tickRate float64, log zerolog.Logger) *Exporter {
	if tickRate <= 0 {
		tickRate = NominalTickRate
	}
	return &Exporter{
		Dir:      dir,
		TickRate: tickRate,
		now:      time.Now,
		log:      log.With().Str("component", "exporter").Logger(),
	}
}

// LastPath is the CSV written by the most recent successful Export.
func (e *Exporter) LastPath() string { return e.lastPath }

var _ sim.FrameExporter = (*Exporter)(nil)

// Export writes the CSV first; sink failures after that are joined into
// the returned error but do not undo the file.
func (e *Exporter) Export(frames []sim.RecordingFrame) error {
	if len(frames) == 0 {
		return ErrNoFrames
	}
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return fmt.Errorf("creating recordings dir: %w", err)
	}

	start := e.now()
	base := filepath.Join(e.Dir, "flight_"+start.Format("20060102_150405"))
	path := base + ".csv"
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := WriteCSV(f, frames, e.TickRate); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	e.lastPath = path

	sum, err := Summarize(frames, e.TickRate)
	if err != nil {
		return err
	}
	e.log.Info().Str("path", path).Object("summary", sum).Msg("flight exported")

	var errs []error
	if e.Plot {
		if err := SaveProfile(base+".png", frames, e.TickRate); err != nil {
			errs = append(errs, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
	defer cancel()

	sessionID := filepath.Base(base)
	if e.Store != nil {
		sess, err := e.Store.SaveSession(ctx, filepath.Base(path), frames, e.TickRate)
		if err != nil {
			errs = append(errs, err)
		} else {
			sessionID = sess.ID.String()
		}
	}
	if e.Influx != nil {
		if err := e.Influx.WriteSession(ctx, sessionID, start, frames, e.TickRate); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
