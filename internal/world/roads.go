package world

import (
	"math"
	"math/rand"
)

// Intersection is the crossing of a horizontal and a vertical road.
type Intersection struct {
	X, Z       float64
	Horizontal int // index into Roads
	Vertical   int
}

// Contains reports whether (x, z) lies on the road, widened by margin on
// both sides. The margin does not extend the road's ends.
func (r RoadSegment) Contains(x, z, margin float64) bool {
	halfW := r.Width/2 + margin
	halfL := r.Length / 2
	if r.Orientation == Horizontal {
		return math.Abs(z-r.CenterZ) <= halfW && math.Abs(x-r.CenterX) <= halfL
	}
	return math.Abs(x-r.CenterX) <= halfW && math.Abs(z-r.CenterZ) <= halfL
}

// Direction is the unit travel direction (dx, dz) of the road's forward lane.
func (r RoadSegment) Direction() (dx, dz float64) {
	if r.Orientation == Horizontal {
		return 1, 0
	}
	return 0, 1
}

// PointAt returns the centreline point at signed distance along the road
// from its centre, shifted sideways by lateral (toward +Z for horizontal
// roads, +X for vertical ones).
func (r RoadSegment) PointAt(along, lateral float64) (x, z float64) {
	if r.Orientation == Horizontal {
		return r.CenterX + along, r.CenterZ + lateral
	}
	return r.CenterX + lateral, r.CenterZ + along
}

// Network is the road list plus its derived intersections.
type Network struct {
	Roads         []RoadSegment
	Intersections []Intersection
}

// NewNetwork derives intersections geometrically: every horizontal and
// vertical pair whose extents overlap crosses at (vertical x, horizontal z).
func NewNetwork(roads []RoadSegment) Network {
	n := Network{Roads: append([]RoadSegment(nil), roads...)}
	for hi, h := range n.Roads {
		if h.Orientation != Horizontal {
			continue
		}
		for vi, v := range n.Roads {
			if v.Orientation != Vertical {
				continue
			}
			if math.Abs(v.CenterX-h.CenterX) > h.Length/2 {
				continue
			}
			if math.Abs(h.CenterZ-v.CenterZ) > v.Length/2 {
				continue
			}
			n.Intersections = append(n.Intersections, Intersection{
				X: v.CenterX, Z: h.CenterZ, Horizontal: hi, Vertical: vi,
			})
		}
	}
	return n
}

// IsOnRoad tests (x, z) against every road.
func (n Network) IsOnRoad(x, z, margin float64) bool {
	for _, r := range n.Roads {
		if r.Contains(x, z, margin) {
			return true
		}
	}
	return false
}

// sampleOffRoad draws uniform points in a square of the given extent
// centred on the origin until one is off-road (and passes reject, if set).
// It gives up after attempts draws.
func (n Network) sampleOffRoad(rng *rand.Rand, extent, margin float64, attempts int, reject func(x, z float64) bool) (x, z float64, ok bool) {
	for i := 0; i < attempts; i++ {
		x = (rng.Float64() - 0.5) * extent
		z = (rng.Float64() - 0.5) * extent
		if n.IsOnRoad(x, z, margin) {
			continue
		}
		if reject != nil && reject(x, z) {
			continue
		}
		return x, z, true
	}
	return 0, 0, false
}
