package flightlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"drone-city-sim/internal/geom"
	"drone-city-sim/internal/sim"
)

// Session is one stored flight.
type Session struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt  time.Time
	Name       string
	TickRate   float64
	FrameCount int
	Summary    datatypes.JSON
	Frames     []FrameRecord `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
}

// DecodeSummary unpacks the stored summary.
func (s Session) DecodeSummary() (Summary, error) {
	var sum Summary
	if len(s.Summary) == 0 {
		return sum, nil
	}
	if err := json.Unmarshal(s.Summary, &sum); err != nil {
		return sum, fmt.Errorf("decoding session summary: %w", err)
	}
	return sum, nil
}

type FrameRecord struct {
	ID         uint      `gorm:"primaryKey"`
	SessionID  uuid.UUID `gorm:"type:uuid;index"`
	FrameIndex int       `gorm:"index"`
	X          float64
	Y          float64
	Z          float64
	VelX       float64
	VelY       float64
	VelZ       float64
	Yaw        float64
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"` // sqlite or postgres
	Path   string `mapstructure:"path"`   // sqlite file; empty for memory
	DSN    string `mapstructure:"dsn"`    // postgres
}

type Store struct {
	db  *gorm.DB
	log zerolog.Logger
}

var gormConfig = &gorm.Config{
	SkipDefaultTransaction: true,
	CreateBatchSize:        2000,
	Logger:                 logger.Default.LogMode(logger.Silent),
}

// OpenStore connects and migrates the schema.
func OpenStore(cfg StoreConfig, log zerolog.Logger) (*Store, error) {
	var (
		db  *gorm.DB
		err error
	)
	log = log.With().Str("component", "store").Str("driver", cfg.Driver).Logger()

	switch cfg.Driver {
	case "", "sqlite":
		path := cfg.Path
		if path == "" {
			// a private shared-cache memory database per store
			path = fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
		}
		db, err = gorm.Open(sqlite.Open(path), gormConfig)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite %q: %w", cfg.Path, err)
		}
		log.Info().Str("path", cfg.Path).Msg("using sqlite store")
	case "postgres":
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  cfg.DSN,
			PreferSimpleProtocol: true,
		}), gormConfig)
		if err != nil {
			return nil, fmt.Errorf("opening postgres: %w", err)
		}
		log.Info().Msg("using postgres store")
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}

	if err := db.AutoMigrate(&Session{}, &FrameRecord{}); err != nil {
		return nil, fmt.Errorf("migrating store: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

// SaveSession stores frames as a new session and returns it without its
// frame rows.
func (s *Store) SaveSession(ctx context.Context, name string, frames []sim.RecordingFrame, tickRate float64) (Session, error) {
	sum, err := Summarize(frames, tickRate)
	if err != nil {
		return Session{}, err
	}
	raw, err := json.Marshal(sum)
	if err != nil {
		return Session{}, fmt.Errorf("encoding summary: %w", err)
	}

	sess := Session{
		ID:         uuid.New(),
		Name:       name,
		TickRate:   tickRate,
		FrameCount: len(frames),
		Summary:    datatypes.JSON(raw),
	}
	rows := make([]FrameRecord, len(frames))
	for i, f := range frames {
		rows[i] = FrameRecord{
			SessionID:  sess.ID,
			FrameIndex: f.Index,
			X:          f.Position.X,
			Y:          f.Position.Y,
			Z:          f.Position.Z,
			VelX:       f.Velocity.X,
			VelY:       f.Velocity.Y,
			VelZ:       f.Velocity.Z,
			Yaw:        f.Yaw,
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Frames").Create(&sess).Error; err != nil {
			return fmt.Errorf("creating session: %w", err)
		}
		if err := tx.CreateInBatches(rows, 2000).Error; err != nil {
			return fmt.Errorf("creating frames: %w", err)
		}
		return nil
	})
	if err != nil {
		return Session{}, err
	}
	s.log.Info().Str("session", sess.ID.String()).Int("frames", len(frames)).Msg("session stored")
	return sess, nil
}

// ListSessions returns every session, newest first, without frames.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	var out []Session
	if err := s.db.WithContext(ctx).Order("created_at desc").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	return out, nil
}

// LoadSession returns a session and its frames in recording order.
func (s *Store) LoadSession(ctx context.Context, id uuid.UUID) (Session, []sim.RecordingFrame, error) {
	var sess Session
	err := s.db.WithContext(ctx).
		Preload("Frames", func(db *gorm.DB) *gorm.DB { return db.Order("frame_index asc") }).
		First(&sess, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Session{}, nil, fmt.Errorf("session %s: %w", id, err)
	}
	if err != nil {
		return Session{}, nil, fmt.Errorf("loading session %s: %w", id, err)
	}

	frames := make([]sim.RecordingFrame, len(sess.Frames))
	for i, r := range sess.Frames {
		frames[i] = sim.RecordingFrame{
			Position: geom.Vec3{X: r.X, Y: r.Y, Z: r.Z},
			Velocity: geom.Vec3{X: r.VelX, Y: r.VelY, Z: r.VelZ},
			Yaw:      r.Yaw,
			Index:    r.FrameIndex,
		}
	}
	sess.Frames = nil
	return sess, frames, nil
}

// DeleteSession removes a session and its frames.
func (s *Store) DeleteSession(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", id).Delete(&FrameRecord{}).Error; err != nil {
			return fmt.Errorf("deleting frames: %w", err)
		}
		res := tx.Delete(&Session{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("deleting session: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("session %s: %w", id, gorm.ErrRecordNotFound)
		}
		return nil
	})
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
