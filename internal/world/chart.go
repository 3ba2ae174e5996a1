package world

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"drone-city-sim/internal/geom"
)

// mapKinds is the series order of the map; later series draw on top.
var mapKinds = []Kind{
	KindTree, KindBuilding, KindHelipad, KindBench,
	KindStreetLight, KindTrafficLight, KindVehicle, KindPerson,
}

// RenderMap writes an HTML top-down scatter map of the city. North (-Z) is
// up. A non-empty track is overlaid as a flight path.
func RenderMap(out io.Writer, w *World, track []geom.Vec3) error {
	pad := w.Layout.WorldSize / 2

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "City Map", Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "City Map", Subtitle: fmt.Sprintf("objects=%d roads=%d", len(w.objects), len(w.Network.Roads))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "East (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "North (m)", NameLocation: "middle", NameGap: 30}),
	)

	roads := make([]opts.ScatterData, 0)
	for _, r := range w.Network.Roads {
		for along := -r.Length / 2; along <= r.Length/2; along += 20 {
			x, z := r.PointAt(along, 0)
			roads = append(roads, opts.ScatterData{Value: []interface{}{x, -z}, Name: r.Name})
		}
	}
	scatter.AddSeries("road", roads, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 2}))

	for _, k := range mapKinds {
		pts := make([]opts.ScatterData, 0)
		for _, o := range w.objects {
			if o.Kind != k {
				continue
			}
			pts = append(pts, opts.ScatterData{Value: []interface{}{o.Position.X, -o.Position.Z, o.Size.Y}, Name: o.Label})
		}
		if len(pts) == 0 {
			continue
		}
		size := 4
		if k == KindBuilding {
			size = 8
		}
		scatter.AddSeries(string(k), pts, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: size}))
	}

	if len(track) > 0 {
		pts := make([]opts.ScatterData, 0, len(track))
		for _, p := range track {
			pts = append(pts, opts.ScatterData{Value: []interface{}{p.X, -p.Z, p.Y}})
		}
		scatter.AddSeries("flight", pts, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 2}))
	}

	if err := scatter.Render(out); err != nil {
		return fmt.Errorf("rendering city map: %w", err)
	}
	return nil
}
