package world

import (
	"math"
	"sort"

	"github.com/rs/zerolog"

	"drone-city-sim/internal/geom"
)

type Kind string

const (
	KindBuilding     Kind = "building"
	KindVehicle      Kind = "vehicle"
	KindPerson       Kind = "person"
	KindTree         Kind = "tree"
	KindStreetLight  Kind = "streetlight"
	KindTrafficLight Kind = "traffic_light"
	KindBench        Kind = "bench"
	KindHelipad      Kind = "helipad"
)

// DetectableObject is a labelled static entity. Position is the centre of
// the object's base; Size is the full extent of its box before Yaw.
type DetectableObject struct {
	Kind     Kind
	Label    string
	Position geom.Vec3
	Size     geom.Vec3
	Yaw      float64
	Handle   int // stable index for renderers
}

// Corners returns the eight corners of the object's oriented box.
func (o DetectableObject) Corners() [8]geom.Vec3 {
	hx, hz := o.Size.X/2, o.Size.Z/2
	var out [8]geom.Vec3
	i := 0
	for _, y := range []float64{0, o.Size.Y} {
		for _, c := range [4][2]float64{{-hx, -hz}, {hx, -hz}, {hx, hz}, {-hx, hz}} {
			local := geom.Vec3{X: c[0], Y: y, Z: c[1]}
			out[i] = o.Position.Add(local.RotateY(o.Yaw))
			i++
		}
	}
	return out
}

// Center is the middle of the object's box.
func (o DetectableObject) Center() geom.Vec3 {
	return o.Position.Add(geom.Vec3{Y: o.Size.Y / 2})
}

// Footprint is the horizontal radius enclosing the object.
func (o DetectableObject) Footprint() float64 {
	return math.Hypot(o.Size.X, o.Size.Z) / 2
}

// PlacementReport counts requested and placed entities per kind.
type PlacementReport struct {
	Requested map[Kind]int
	Placed    map[Kind]int
}

func newPlacementReport() PlacementReport {
	return PlacementReport{Requested: make(map[Kind]int), Placed: make(map[Kind]int)}
}

func (r PlacementReport) request(k Kind, n int) { r.Requested[k] += n }

func (r PlacementReport) place(k Kind) { r.Placed[k]++ }

// Skipped is how many requested entities of kind k were not placed.
func (r PlacementReport) Skipped(k Kind) int {
	s := r.Requested[k] - r.Placed[k]
	if s < 0 {
		return 0
	}
	return s
}

// Kinds lists every kind in the report in sorted order.
func (r PlacementReport) Kinds() []Kind {
	seen := make(map[Kind]bool)
	for k := range r.Requested {
		seen[k] = true
	}
	for k := range r.Placed {
		seen[k] = true
	}
	out := make([]Kind, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MarshalZerologObject logs placed/requested per kind.
func (r PlacementReport) MarshalZerologObject(e *zerolog.Event) {
	for _, k := range r.Kinds() {
		e.Dict(string(k), zerolog.Dict().
			Int("placed", r.Placed[k]).
			Int("requested", r.Requested[k]))
	}
}
