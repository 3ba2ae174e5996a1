package detect

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"drone-city-sim/internal/geom"
	"drone-city-sim/internal/world"
)

// ObjectSource supplies the static scene. *world.World satisfies it.
type ObjectSource interface {
	Objects() []world.DetectableObject
}

type GroundTruthParams struct {
	Classes       []string `mapstructure:"classes"`
	MaxRange      float64  `mapstructure:"maxRange"`
	MaxConfidence float64  `mapstructure:"maxConfidence"`
	MinConfidence float64  `mapstructure:"minConfidence"`
	MinBoxSize    float64  `mapstructure:"minBoxSize"` // pixels, both sides
	MaxDetections int      `mapstructure:"maxDetections"`
}

// DefaultGroundTruthParams reports the scene classes a COCO model knows.
func DefaultGroundTruthParams() GroundTruthParams {
	return GroundTruthParams{
		Classes:       []string{"person", "car", "truck", "bus", "traffic light", "bench"},
		MaxRange:      500,
		MaxConfidence: 0.98,
		MinConfidence: 0.5,
		MinBoxSize:    3,
		MaxDetections: 20,
	}
}

// GroundTruthDetector projects registry objects through the camera instead
// of running a model. Occlusion is not modelled.
type GroundTruthDetector struct {
	source  ObjectSource
	params  GroundTruthParams
	classes map[string]bool
	objects []world.DetectableObject
}

func NewGroundTruthDetector(source ObjectSource, p GroundTruthParams) *GroundTruthDetector {
	classes := make(map[string]bool, len(p.Classes))
	for _, c := range p.Classes {
		classes[c] = true
	}
	return &GroundTruthDetector{source: source, params: p, classes: classes}
}

// Load snapshots the registry, keeping only detectable classes.
func (g *GroundTruthDetector) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if g.source == nil {
		return errors.New("no object source")
	}
	if g.params.MaxRange <= 0 {
		return fmt.Errorf("max range must be positive, got %v", g.params.MaxRange)
	}
	var objs []world.DetectableObject
	for _, o := range g.source.Objects() {
		if g.classes[o.Label] {
			objs = append(objs, o)
		}
	}
	g.objects = objs
	return nil
}

func (g *GroundTruthDetector) Detect(ctx context.Context, f Frame) ([]Detection, error) {
	if f.Width <= 0 || f.Height <= 0 {
		return nil, fmt.Errorf("frame %d has no size", f.Seq)
	}

	var out []Detection
	for i, o := range g.objects {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		dist := o.Center().Sub(f.Eye).Length()
		if dist > g.params.MaxRange {
			continue
		}
		conf := g.params.MaxConfidence * (1 - dist/g.params.MaxRange)
		if conf < g.params.MinConfidence {
			continue
		}
		box, ok := projectBox(o, f)
		if !ok || box.W < g.params.MinBoxSize || box.H < g.params.MinBoxSize {
			continue
		}
		out = append(out, Detection{Label: o.Label, Confidence: conf, Box: box})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	if g.params.MaxDetections > 0 && len(out) > g.params.MaxDetections {
		out = out[:g.params.MaxDetections]
	}
	return out, nil
}

// projectBox returns the screen rectangle enclosing the object's corners,
// clipped to the frame. Objects with any corner behind the camera are
// skipped.
func projectBox(o world.DetectableObject, f Frame) (Box, bool) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range o.Corners() {
		clip := f.ViewProj.MulVec4(geom.Vec4{X: c.X, Y: c.Y, Z: c.Z, W: 1})
		if clip.W <= 1e-6 {
			return Box{}, false
		}
		nx, ny := clip.X/clip.W, clip.Y/clip.W
		px := (nx + 1) / 2 * float64(f.Width)
		py := (1 - ny) / 2 * float64(f.Height)
		minX, maxX = math.Min(minX, px), math.Max(maxX, px)
		minY, maxY = math.Min(minY, py), math.Max(maxY, py)
	}

	minX = math.Max(minX, 0)
	minY = math.Max(minY, 0)
	maxX = math.Min(maxX, float64(f.Width))
	maxY = math.Min(maxY, float64(f.Height))
	if maxX <= minX || maxY <= minY {
		return Box{}, false
	}
	return Box{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}, true
}
