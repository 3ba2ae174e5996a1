package world

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidLayout is returned for layouts that cannot be generated.
var ErrInvalidLayout = errors.New("invalid layout")

type Orientation string

const (
	Horizontal Orientation = "horizontal" // runs along X
	Vertical   Orientation = "vertical"   // runs along Z
)

// RoadSegment is a straight road centred on (CenterX, CenterZ).
type RoadSegment struct {
	Name        string      `yaml:"name"`
	CenterX     float64     `yaml:"center_x"`
	CenterZ     float64     `yaml:"center_z"`
	Width       float64     `yaml:"width"`
	Length      float64     `yaml:"length"`
	Orientation Orientation `yaml:"orientation"`
}

// Cluster is an anchor for a group of buildings.
type Cluster struct {
	X           float64 `yaml:"x"`
	Z           float64 `yaml:"z"`
	Count       int     `yaml:"count"`
	Spread      float64 `yaml:"spread"`
	MinHeight   float64 `yaml:"min_height"`
	MaxHeight   float64 `yaml:"max_height"`
	AvoidRadius float64 `yaml:"avoid_radius"` // keeps trees out of the block
}

type GeoOrigin struct {
	Lat float64 `yaml:"lat"`
	Lon float64 `yaml:"lon"`
}

// Layout is the static input of Generate.
type Layout struct {
	WorldSize float64       `yaml:"world_size"`
	Roads     []RoadSegment `yaml:"roads"`
	Clusters  []Cluster     `yaml:"clusters"`

	Trees          int     `yaml:"trees"`
	TreeAttempts   int     `yaml:"tree_attempts"`
	TreeExtent     float64 `yaml:"tree_extent"` // fraction of WorldSize
	TreeRoadMargin float64 `yaml:"tree_road_margin"`

	HelipadMinHeight float64 `yaml:"helipad_min_height"`
	HelipadChance    float64 `yaml:"helipad_chance"`

	VehicleSpacing     float64 `yaml:"vehicle_spacing"`
	StreetlightSpacing float64 `yaml:"streetlight_spacing"`

	Benches       int     `yaml:"benches"`
	BenchExtent   float64 `yaml:"bench_extent"`
	BenchMargin   float64 `yaml:"bench_margin"`
	BenchAttempts int     `yaml:"bench_attempts"`

	PeoplePerIntersection int     `yaml:"people_per_intersection"`
	RoadsidePeople        int     `yaml:"roadside_people"`
	PersonMargin          float64 `yaml:"person_margin"`
	PersonAttempts        int     `yaml:"person_attempts"`

	Origin       GeoOrigin `yaml:"origin"`
	TileZoom     int       `yaml:"tile_zoom"`
	TilesPerSide int       `yaml:"tiles_per_side"`
}

// DefaultLayout is the built-in city.
func DefaultLayout() Layout {
	return Layout{
		WorldSize: 4000,
		Roads: []RoadSegment{
			{Name: "Main Street", CenterX: 0, CenterZ: 0, Width: 24, Length: 3000, Orientation: Horizontal},
			{Name: "North Boulevard", CenterX: 0, CenterZ: 900, Width: 20, Length: 2400, Orientation: Horizontal},
			{Name: "South Avenue", CenterX: 0, CenterZ: -900, Width: 20, Length: 2400, Orientation: Horizontal},
			{Name: "Central Avenue", CenterX: 0, CenterZ: 0, Width: 24, Length: 3000, Orientation: Vertical},
			{Name: "East Road", CenterX: 900, CenterZ: 0, Width: 20, Length: 2400, Orientation: Vertical},
			{Name: "West Road", CenterX: -900, CenterZ: 0, Width: 20, Length: 2400, Orientation: Vertical},
		},
		Clusters: []Cluster{
			{X: 400, Z: 400, Count: 20, Spread: 250, MinHeight: 15, MaxHeight: 80, AvoidRadius: 280},
			{X: -500, Z: 300, Count: 15, Spread: 180, MinHeight: 10, MaxHeight: 50, AvoidRadius: 210},
			{X: 300, Z: -500, Count: 12, Spread: 200, MinHeight: 8, MaxHeight: 30, AvoidRadius: 230},
			{X: -400, Z: -400, Count: 25, Spread: 250, MinHeight: 5, MaxHeight: 18, AvoidRadius: 280},
			{X: 0, Z: 600, Count: 18, Spread: 180, MinHeight: 30, MaxHeight: 120, AvoidRadius: 210},
		},

		Trees:          400,
		TreeAttempts:   15,
		TreeExtent:     0.9,
		TreeRoadMargin: 4,

		HelipadMinHeight: 40,
		HelipadChance:    0.3,

		VehicleSpacing:     150,
		StreetlightSpacing: 80,

		Benches:       25,
		BenchExtent:   0.7,
		BenchMargin:   2,
		BenchAttempts: 15,

		PeoplePerIntersection: 3,
		RoadsidePeople:        40,
		PersonMargin:          1.5,
		PersonAttempts:        15,

		Origin:       GeoOrigin{Lat: 41.0082, Lon: 28.9784},
		TileZoom:     17,
		TilesPerSide: 8,
	}
}

// LoadLayout reads a YAML layout. Fields missing from the file keep their
// DefaultLayout values; a roads or clusters list replaces the default list.
func LoadLayout(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("reading layout file: %w", err)
	}

	layout := DefaultLayout()
	if err := yaml.Unmarshal(data, &layout); err != nil {
		return Layout{}, fmt.Errorf("parsing layout YAML: %w", err)
	}
	if err := layout.Validate(); err != nil {
		return Layout{}, err
	}
	return layout, nil
}

// Validate checks that every road and cluster is usable.
func (l Layout) Validate() error {
	if l.WorldSize <= 0 {
		return fmt.Errorf("%w: world_size must be positive", ErrInvalidLayout)
	}
	for i, r := range l.Roads {
		if r.Width <= 0 || r.Length <= 0 {
			return fmt.Errorf("%w: road %d (%s) needs positive width and length", ErrInvalidLayout, i, r.Name)
		}
		if r.Orientation != Horizontal && r.Orientation != Vertical {
			return fmt.Errorf("%w: road %d (%s) has orientation %q", ErrInvalidLayout, i, r.Name, r.Orientation)
		}
	}
	for i, c := range l.Clusters {
		if c.Count < 0 || c.Spread < 0 || c.MaxHeight < c.MinHeight {
			return fmt.Errorf("%w: cluster %d is malformed", ErrInvalidLayout, i)
		}
	}
	if l.VehicleSpacing <= 0 || l.StreetlightSpacing <= 0 {
		return fmt.Errorf("%w: spacings must be positive", ErrInvalidLayout)
	}
	return nil
}
