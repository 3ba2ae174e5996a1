package world

import (
	"math"
	"math/rand"

	"drone-city-sim/internal/geom"
)

// World is the generated city. Positions never change after Generate;
// only the environment settings are mutable.
type World struct {
	Layout  Layout
	Network Network
	Tiles   []GroundTile
	Report  PlacementReport

	objects   []DetectableObject
	env       Environment
	presetIdx int
}

// vehicle classes and their draw weights
var vehicleClasses = []struct {
	label  string
	weight float64
	size   geom.Vec3
}{
	{"car", 0.75, geom.Vec3{X: 2.2, Y: 2.0, Z: 4.5}},
	{"truck", 0.15, geom.Vec3{X: 2.6, Y: 3.4, Z: 8}},
	{"bus", 0.10, geom.Vec3{X: 2.6, Y: 3.2, Z: 11}},
}

var (
	personSize       = geom.Vec3{X: 0.5, Y: 1.9, Z: 0.5}
	streetLightSize  = geom.Vec3{X: 0.4, Y: 9, Z: 0.4}
	trafficLightSize = geom.Vec3{X: 0.4, Y: 5, Z: 0.4}
	benchSize        = geom.Vec3{X: 2.5, Y: 0.9, Z: 0.9}
)

const (
	buildingAttempts  = 10
	streetLightOffset = 3 // beyond the kerb
	trafficLightInset = 2 // beyond the kerb, at each corner
	cornerCrowdOffset = 4 // crowd anchor beyond the kerb
	cornerCrowdRadius = 5
	roadsideBand      = 6 // people stand within this band past the margin
)

// Generate builds the city. The same layout and seed always give the same
// registry.
func Generate(layout Layout, rng *rand.Rand) *World {
	w := &World{
		Layout:  layout,
		Network: NewNetwork(layout.Roads),
		Report:  newPlacementReport(),
	}
	w.Tiles = newTileGrid(layout)

	w.placeBuildings(rng)
	w.placeTrees(rng)
	w.placeVehicles(rng)
	w.placePeople(rng)
	w.placeStreetFurniture(rng)

	w.ApplyPreset(0)
	return w
}

func (w *World) add(o DetectableObject) {
	o.Handle = len(w.objects)
	w.objects = append(w.objects, o)
	w.Report.place(o.Kind)
}

// Objects returns the registry in creation order.
func (w *World) Objects() []DetectableObject {
	return append([]DetectableObject(nil), w.objects...)
}

func (w *World) ObjectsOfKind(k Kind) []DetectableObject {
	var out []DetectableObject
	for _, o := range w.objects {
		if o.Kind == k {
			out = append(out, o)
		}
	}
	return out
}

func (w *World) Count(k Kind) int {
	n := 0
	for _, o := range w.objects {
		if o.Kind == k {
			n++
		}
	}
	return n
}

func (w *World) Roads() []RoadSegment { return w.Network.Roads }

func (w *World) Intersections() []Intersection { return w.Network.Intersections }

func (w *World) IsOnRoad(x, z, margin float64) bool { return w.Network.IsOnRoad(x, z, margin) }

// Buildings are scattered around cluster anchors at a random angle and
// radius. Overlap between buildings is accepted; roads are not.
func (w *World) placeBuildings(rng *rand.Rand) {
	l := w.Layout
	for _, c := range l.Clusters {
		w.Report.request(KindBuilding, c.Count)
		for i := 0; i < c.Count; i++ {
			width := rng.Float64()*30 + 15
			depth := rng.Float64()*30 + 15
			height := rng.Float64()*(c.MaxHeight-c.MinHeight) + c.MinHeight
			yaw := rng.Float64()*0.3 - 0.15
			clearance := math.Hypot(width, depth) / 2

			var x, z float64
			placed := false
			for a := 0; a < buildingAttempts; a++ {
				angle := rng.Float64() * 2 * math.Pi
				radius := rng.Float64() * c.Spread
				x = c.X + math.Cos(angle)*radius
				z = c.Z + math.Sin(angle)*radius
				if !w.Network.IsOnRoad(x, z, clearance) {
					placed = true
					break
				}
			}
			if !placed {
				continue
			}

			w.add(DetectableObject{
				Kind:     KindBuilding,
				Label:    "building",
				Position: geom.Vec3{X: x, Z: z},
				Size:     geom.Vec3{X: width, Y: height, Z: depth},
				Yaw:      yaw,
			})

			if height > l.HelipadMinHeight && rng.Float64() < l.HelipadChance {
				r := math.Min(width, depth) * 0.25
				w.Report.request(KindHelipad, 1)
				w.add(DetectableObject{
					Kind:     KindHelipad,
					Label:    "helipad",
					Position: geom.Vec3{X: x, Y: height, Z: z},
					Size:     geom.Vec3{X: 2 * r, Y: 0.3, Z: 2 * r},
				})
			}
		}
	}
}

func (w *World) inClusterArea(x, z float64) bool {
	for _, c := range w.Layout.Clusters {
		if math.Hypot(x-c.X, z-c.Z) < c.AvoidRadius {
			return true
		}
	}
	return false
}

func (w *World) placeTrees(rng *rand.Rand) {
	l := w.Layout
	w.Report.request(KindTree, l.Trees)
	extent := l.WorldSize * l.TreeExtent
	for i := 0; i < l.Trees; i++ {
		trunk := 3 + rng.Float64()*5
		radius := 3 + rng.Float64()*2.5
		x, z, ok := w.Network.sampleOffRoad(rng, extent, l.TreeRoadMargin, l.TreeAttempts, w.inClusterArea)
		if !ok {
			continue
		}
		w.add(DetectableObject{
			Kind:     KindTree,
			Label:    "tree",
			Position: geom.Vec3{X: x, Z: z},
			Size:     geom.Vec3{X: 2 * radius, Y: trunk + 1.8*radius, Z: 2 * radius},
		})
	}
}

func pickVehicle(rng *rand.Rand) int {
	r := rng.Float64()
	acc := 0.0
	for i, c := range vehicleClasses {
		acc += c.weight
		if r < acc {
			return i
		}
	}
	return 0
}

// laneYaw is the heading of travel along a road; the second lane faces the
// other way.
func laneYaw(r RoadSegment, forwardLane bool) float64 {
	yaw := 0.0
	if r.Orientation == Horizontal {
		yaw = math.Pi / 2
	}
	if !forwardLane {
		yaw += math.Pi
	}
	return yaw
}

// Vehicles are spread evenly along each road, each in one of two lanes at
// a quarter of the road width from the centreline.
func (w *World) placeVehicles(rng *rand.Rand) {
	l := w.Layout
	for _, r := range w.Network.Roads {
		count := int(math.Floor(r.Length / l.VehicleSpacing))
		w.Report.request(KindVehicle, count)
		for i := 0; i < count; i++ {
			progress := (float64(i) + 0.5) / float64(count)
			along := (progress - 0.5) * r.Length
			forward := rng.Float64() < 0.5
			lateral := r.Width / 4
			if !forward {
				lateral = -lateral
			}
			cls := vehicleClasses[pickVehicle(rng)]
			x, z := r.PointAt(along, lateral)
			w.add(DetectableObject{
				Kind:     KindVehicle,
				Label:    cls.label,
				Position: geom.Vec3{X: x, Z: z},
				Size:     cls.size,
				Yaw:      laneYaw(r, forward),
			})
		}
	}
}

func (w *World) placePeople(rng *rand.Rand) {
	l := w.Layout

	// Crowds at intersection corners
	for _, in := range w.Network.Intersections {
		h := w.Network.Roads[in.Horizontal]
		v := w.Network.Roads[in.Vertical]
		w.Report.request(KindPerson, l.PeoplePerIntersection)
		for i := 0; i < l.PeoplePerIntersection; i++ {
			sx := float64(1 - 2*rng.Intn(2))
			sz := float64(1 - 2*rng.Intn(2))
			cx := in.X + sx*(v.Width/2+cornerCrowdOffset)
			cz := in.Z + sz*(h.Width/2+cornerCrowdOffset)
			for a := 0; a < l.PersonAttempts; a++ {
				angle := rng.Float64() * 2 * math.Pi
				radius := rng.Float64() * cornerCrowdRadius
				x := cx + math.Cos(angle)*radius
				z := cz + math.Sin(angle)*radius
				if w.Network.IsOnRoad(x, z, l.PersonMargin) {
					continue
				}
				w.addPerson(rng, x, z)
				break
			}
		}
	}

	// Sparse roadside pedestrians
	if len(w.Network.Roads) == 0 {
		return
	}
	w.Report.request(KindPerson, l.RoadsidePeople)
	for i := 0; i < l.RoadsidePeople; i++ {
		for a := 0; a < l.PersonAttempts; a++ {
			r := w.Network.Roads[rng.Intn(len(w.Network.Roads))]
			along := (rng.Float64() - 0.5) * r.Length
			lateral := r.Width/2 + l.PersonMargin + rng.Float64()*roadsideBand
			if rng.Intn(2) == 0 {
				lateral = -lateral
			}
			x, z := r.PointAt(along, lateral)
			if w.Network.IsOnRoad(x, z, l.PersonMargin) {
				continue
			}
			w.addPerson(rng, x, z)
			break
		}
	}
}

func (w *World) addPerson(rng *rand.Rand, x, z float64) {
	w.add(DetectableObject{
		Kind:     KindPerson,
		Label:    "person",
		Position: geom.Vec3{X: x, Z: z},
		Size:     personSize,
		Yaw:      rng.Float64() * 2 * math.Pi,
	})
}

func (w *World) placeStreetFurniture(rng *rand.Rand) {
	l := w.Layout

	// Traffic lights at the four corners of each intersection
	for _, in := range w.Network.Intersections {
		h := w.Network.Roads[in.Horizontal]
		v := w.Network.Roads[in.Vertical]
		dx := v.Width/2 + trafficLightInset
		dz := h.Width/2 + trafficLightInset
		w.Report.request(KindTrafficLight, 4)
		for _, c := range [4][2]float64{{1, 1}, {-1, 1}, {-1, -1}, {1, -1}} {
			w.add(DetectableObject{
				Kind:     KindTrafficLight,
				Label:    "traffic light",
				Position: geom.Vec3{X: in.X + c[0]*dx, Z: in.Z + c[1]*dz},
				Size:     trafficLightSize,
				Yaw:      math.Atan2(-c[0], -c[1]), // face the crossing
			})
		}
	}

	// Streetlights at fixed spacing on both sides of every road
	for ri, r := range w.Network.Roads {
		n := int(math.Floor(r.Length / l.StreetlightSpacing))
		for i := 0; i < n; i++ {
			along := -r.Length/2 + (float64(i)+0.5)*l.StreetlightSpacing
			for _, side := range []float64{1, -1} {
				w.Report.request(KindStreetLight, 1)
				x, z := r.PointAt(along, side*(r.Width/2+streetLightOffset))
				if w.onOtherRoad(ri, x, z) {
					continue
				}
				yaw := laneYaw(r, true) - side*math.Pi/2
				w.add(DetectableObject{
					Kind:     KindStreetLight,
					Label:    "streetlight",
					Position: geom.Vec3{X: x, Z: z},
					Size:     streetLightSize,
					Yaw:      yaw,
				})
			}
		}
	}

	w.Report.request(KindBench, l.Benches)
	extent := l.WorldSize * l.BenchExtent
	for i := 0; i < l.Benches; i++ {
		x, z, ok := w.Network.sampleOffRoad(rng, extent, l.BenchMargin, l.BenchAttempts, nil)
		if !ok {
			continue
		}
		w.add(DetectableObject{
			Kind:     KindBench,
			Label:    "bench",
			Position: geom.Vec3{X: x, Z: z},
			Size:     benchSize,
			Yaw:      rng.Float64() * 2 * math.Pi,
		})
	}
}

// onOtherRoad reports whether (x, z) falls on any road other than skip.
func (w *World) onOtherRoad(skip int, x, z float64) bool {
	for i, r := range w.Network.Roads {
		if i != skip && r.Contains(x, z, 0.5) {
			return true
		}
	}
	return false
}
