// Package config loads dronesim settings from defaults, an optional
// dronesim.yaml and DRONESIM_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"drone-city-sim/internal/audio"
	"drone-city-sim/internal/detect"
	"drone-city-sim/internal/flightlog"
	"drone-city-sim/internal/logging"
	"drone-city-sim/internal/sim"
)

const (
	FileName  = "dronesim"
	EnvPrefix = "DRONESIM"
)

type WorldConfig struct {
	Layout       string        `mapstructure:"layout"` // YAML file; empty uses the built-in city
	Seed         int64         `mapstructure:"seed"`   // 0 picks a time seed
	Tiles        bool          `mapstructure:"tiles"`
	TileTimeout  time.Duration `mapstructure:"tileTimeout"`
	TileParallel int           `mapstructure:"tileParallel"`
}

type DetectionConfig struct {
	Enabled     bool                     `mapstructure:"enabled"`
	Interval    time.Duration            `mapstructure:"interval"`
	Brightness  float64                  `mapstructure:"brightness"`
	Contrast    float64                  `mapstructure:"contrast"`
	GroundTruth detect.GroundTruthParams `mapstructure:"groundTruth"`
}

type RecordingsConfig struct {
	Dir      string  `mapstructure:"dir"`
	Plot     bool    `mapstructure:"plot"`
	TickRate float64 `mapstructure:"tickRate"` // CSV time base
}

type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Driver  string `mapstructure:"driver"`
	Path    string `mapstructure:"path"`
	DSN     string `mapstructure:"dsn"`
}

func (s StoreConfig) Flightlog() flightlog.StoreConfig {
	return flightlog.StoreConfig{Driver: s.Driver, Path: s.Path, DSN: s.DSN}
}

type WindowConfig struct {
	Width  int    `mapstructure:"width"`
	Height int    `mapstructure:"height"`
	Title  string `mapstructure:"title"`
}

type Config struct {
	Log        logging.Options        `mapstructure:"log"`
	Sim        sim.Config             `mapstructure:"sim"`
	World      WorldConfig            `mapstructure:"world"`
	Detection  DetectionConfig        `mapstructure:"detection"`
	Recordings RecordingsConfig       `mapstructure:"recordings"`
	Store      StoreConfig            `mapstructure:"store"`
	Influx     flightlog.InfluxConfig `mapstructure:"influx"`
	Audio      audio.Options          `mapstructure:"audio"`
	Window     WindowConfig           `mapstructure:"window"`
}

func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		Log: logging.Options{Level: "INFO"},
		Sim: sim.DefaultConfig(),
		World: WorldConfig{
			TileTimeout:  5 * time.Second,
			TileParallel: 8,
		},
		Detection: DetectionConfig{
			Enabled:     true,
			Interval:    detect.DefaultInterval,
			Brightness:  detect.DefaultBrightness,
			Contrast:    detect.DefaultContrast,
			GroundTruth: detect.DefaultGroundTruthParams(),
		},
		Recordings: RecordingsConfig{
			Dir:      filepath.Join(home, ".dronesim", "recordings"),
			Plot:     true,
			TickRate: flightlog.NominalTickRate,
		},
		Store: StoreConfig{
			Enabled: true,
			Driver:  "sqlite",
			Path:    filepath.Join(home, ".dronesim", "flights.db"),
		},
		Influx: flightlog.InfluxConfig{
			URL:    "http://localhost:8086",
			Org:    "dronesim",
			Bucket: "flights",
		},
		Audio:  audio.DefaultOptions(),
		Window: WindowConfig{Width: 1280, Height: 720, Title: "Drone City Simulator"},
	}
}

// Load reads configuration. path may be a directory to search for
// dronesim.yaml or a file; a missing file leaves the defaults in place.
func Load(path string) (Config, error) {
	v := viper.New()
	cfg := Default()
	if err := setDefaults(v, cfg); err != nil {
		return Config{}, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if info, err := os.Stat(path); path != "" && err == nil && !info.IsDir() {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		if path != "" {
			v.AddConfigPath(path)
		}
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.dronesim")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every leaf of cfg so env vars can override keys
// that no config file mentions.
func setDefaults(v *viper.Viper, cfg Config) error {
	tree := map[string]any{}
	if err := mapstructure.Decode(cfg, &tree); err != nil {
		return fmt.Errorf("flattening defaults: %w", err)
	}
	flatten(v, "", tree)
	return nil
}

func flatten(v *viper.Viper, prefix string, m map[string]any) {
	for k, val := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok {
			flatten(v, key, sub)
			continue
		}
		v.SetDefault(key, val)
	}
}
