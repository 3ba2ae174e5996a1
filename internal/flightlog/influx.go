package flightlog

import (
	"context"
	"errors"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"

	"drone-city-sim/internal/sim"
)

const flightMeasurement = "drone_flight"

type InfluxConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Token   string `mapstructure:"token"`
	Org     string `mapstructure:"org"`
	Bucket  string `mapstructure:"bucket"`
}

// InfluxSink writes recorded frames as time series points.
type InfluxSink struct {
	client influxdb2.Client
	write  influxdb2_api.WriteAPIBlocking
	log    zerolog.Logger
}

func NewInfluxSink(cfg InfluxConfig, log zerolog.Logger) (*InfluxSink, error) {
	if !cfg.Enabled {
		return nil, errors.New("influx sink is disabled")
	}
	if cfg.URL == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("influx sink needs url and bucket, got %q and %q", cfg.URL, cfg.Bucket)
	}
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)
	return &InfluxSink{
		client: client,
		write:  client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:    log.With().Str("component", "influx").Logger(),
	}, nil
}

// FramePoints converts frames to points stamped start + index/tickRate.
func FramePoints(sessionID string, start time.Time, frames []sim.RecordingFrame, tickRate float64) []*influxdb2_write.Point {
	points := make([]*influxdb2_write.Point, 0, len(frames))
	for _, f := range frames {
		ts := start.Add(time.Duration(frameTime(f, tickRate) * float64(time.Second)))
		p := influxdb2_write.NewPointWithMeasurement(flightMeasurement).
			AddTag("session", sessionID).
			AddField("x", f.Position.X).
			AddField("y", f.Position.Y).
			AddField("z", f.Position.Z).
			AddField("vel_x", f.Velocity.X).
			AddField("vel_y", f.Velocity.Y).
			AddField("vel_z", f.Velocity.Z).
			AddField("yaw", f.Yaw).
			AddField("speed", f.HorizontalSpeed()).
			SetTime(ts)
		points = append(points, p)
	}
	return points
}

func (s *InfluxSink) WriteSession(ctx context.Context, sessionID string, start time.Time, frames []sim.RecordingFrame, tickRate float64) error {
	points := FramePoints(sessionID, start, frames, tickRate)
	if err := s.write.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("writing %d points to influx: %w", len(points), err)
	}
	s.log.Debug().Str("session", sessionID).Int("points", len(points)).Msg("flight written to influx")
	return nil
}

func (s *InfluxSink) Close() {
	s.client.Close()
}
