package world

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	sfgeom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"

	"drone-city-sim/internal/geom"
)

// GeoReference places world metres on the globe. World +X is east and
// world +Z is south, matching the tile grid.
type GeoReference struct {
	OriginLat float64
	OriginLon float64

	originX, originY float64 // EPSG:3857
	scale            float64 // mercator metres per ground metre
	toMerc           func(a, b, c float64) (float64, float64, float64)
	toGeo            func(a, b, c float64) (float64, float64, float64)
}

func NewGeoReference(o GeoOrigin) *GeoReference {
	epsg := wgs84.EPSG()
	g := &GeoReference{
		OriginLat: o.Lat,
		OriginLon: o.Lon,
		toMerc:    epsg.Transform(4326, 3857),
		toGeo:     epsg.Transform(3857, 4326),
		scale:     1 / math.Cos(o.Lat*math.Pi/180),
	}
	g.originX, g.originY, _ = g.toMerc(o.Lon, o.Lat, 0)
	return g
}

// Mercator returns the EPSG:3857 coordinates of a world point.
func (g *GeoReference) Mercator(p geom.Vec3) (x, y float64) {
	return g.originX + p.X*g.scale, g.originY - p.Z*g.scale
}

// LatLon returns WGS84 degrees for a world point.
func (g *GeoReference) LatLon(p geom.Vec3) (lat, lon float64) {
	x, y := g.Mercator(p)
	lon, lat, _ = g.toGeo(x, y, 0)
	return lat, lon
}

func (g *GeoReference) point(p geom.Vec3) (sfgeom.Geometry, error) {
	lat, lon := g.LatLon(p)
	pt, err := sfgeom.NewPoint(sfgeom.Coordinates{
		XY:   sfgeom.XY{X: lon, Y: lat},
		Type: sfgeom.DimXY,
	})
	if err != nil {
		return sfgeom.Geometry{}, err
	}
	return pt.AsGeometry(), nil
}

func (g *GeoReference) roadLine(r RoadSegment) (sfgeom.Geometry, error) {
	x0, z0 := r.PointAt(-r.Length/2, 0)
	x1, z1 := r.PointAt(r.Length/2, 0)
	lat0, lon0 := g.LatLon(geom.Vec3{X: x0, Z: z0})
	lat1, lon1 := g.LatLon(geom.Vec3{X: x1, Z: z1})
	seq := sfgeom.NewSequence([]float64{lon0, lat0, lon1, lat1}, sfgeom.DimXY)
	ls, err := sfgeom.NewLineString(seq)
	if err != nil {
		return sfgeom.Geometry{}, err
	}
	return ls.AsGeometry(), nil
}

// ExportGeoJSON writes roads as LineStrings and every registry object as a
// Point feature.
func ExportGeoJSON(out io.Writer, w *World, ref *GeoReference) error {
	var fc sfgeom.GeoJSONFeatureCollection
	for i, r := range w.Network.Roads {
		line, err := ref.roadLine(r)
		if err != nil {
			return fmt.Errorf("building road %q geometry: %w", r.Name, err)
		}
		fc = append(fc, sfgeom.GeoJSONFeature{
			Geometry: line,
			ID:       fmt.Sprintf("road-%d", i),
			Properties: map[string]interface{}{
				"kind":  "road",
				"name":  r.Name,
				"width": r.Width,
			},
		})
	}
	for _, o := range w.objects {
		pt, err := ref.point(o.Position)
		if err != nil {
			return fmt.Errorf("building object %d geometry: %w", o.Handle, err)
		}
		fc = append(fc, sfgeom.GeoJSONFeature{
			Geometry: pt,
			ID:       o.Handle,
			Properties: map[string]interface{}{
				"kind":   string(o.Kind),
				"label":  o.Label,
				"height": o.Size.Y,
			},
		})
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(fc); err != nil {
		return fmt.Errorf("encoding geojson: %w", err)
	}
	return nil
}
