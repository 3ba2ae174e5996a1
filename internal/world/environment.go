package world

import (
	"image/color"

	"drone-city-sim/internal/geom"
)

// Preset is a named lighting and atmosphere setting.
type Preset struct {
	Name            string
	Sky             color.RGBA
	Fog             color.RGBA
	FogNear, FogFar float64
	Ground          color.RGBA
	Ambient         float64
	Sun             float64
	SunColor        color.RGBA
	SunPosition     geom.Vec3
	Exposure        float64
	StreetLights    float64
	WindowEmissive  float64
}

// Hex converts 0xRRGGBB to an opaque colour.
func Hex(v uint32) color.RGBA {
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}

var presets = []Preset{
	{
		Name: "City Day", Sky: Hex(0x87ceeb), Fog: Hex(0x87ceeb), FogNear: 500, FogFar: 2000,
		Ground: Hex(0x3d6b35), Ambient: 1.2, Sun: 2.0, SunColor: Hex(0xffffff),
		SunPosition: geom.Vec3{X: 100, Y: 200, Z: 100}, Exposure: 1.5,
		StreetLights: 0.5, WindowEmissive: 0,
	},
	{
		Name: "Sunset", Sky: Hex(0xff7b54), Fog: Hex(0xff9966), FogNear: 400, FogFar: 1800,
		Ground: Hex(0x5a4a35), Ambient: 0.8, Sun: 2.5, SunColor: Hex(0xff8844),
		SunPosition: geom.Vec3{X: 200, Y: 50, Z: 100}, Exposure: 1.4,
		StreetLights: 1.5, WindowEmissive: 0.5,
	},
	{
		Name: "Night City", Sky: Hex(0x0a0a1a), Fog: Hex(0x0a0a1a), FogNear: 100, FogFar: 800,
		Ground: Hex(0x1a1a2a), Ambient: 0.15, Sun: 0.1, SunColor: Hex(0x4444aa),
		SunPosition: geom.Vec3{X: -100, Y: 50, Z: -100}, Exposure: 0.8,
		StreetLights: 3.0, WindowEmissive: 1.5,
	},
	{
		Name: "Overcast", Sky: Hex(0x8899aa), Fog: Hex(0x8899aa), FogNear: 300, FogFar: 1500,
		Ground: Hex(0x4a5a4a), Ambient: 1.5, Sun: 0.8, SunColor: Hex(0xcccccc),
		SunPosition: geom.Vec3{X: 50, Y: 300, Z: 50}, Exposure: 1.3,
		StreetLights: 0.8, WindowEmissive: 0.2,
	},
	{
		Name: "Desert", Sky: Hex(0x87ceeb), Fog: Hex(0xd4a574), FogNear: 600, FogFar: 2500,
		Ground: Hex(0xc4a35a), Ambient: 1.4, Sun: 3.0, SunColor: Hex(0xffffee),
		SunPosition: geom.Vec3{X: 0, Y: 250, Z: 50}, Exposure: 1.8,
		StreetLights: 0.3, WindowEmissive: 0,
	},
	{
		Name: "Stormy", Sky: Hex(0x3a4a5a), Fog: Hex(0x3a4a5a), FogNear: 200, FogFar: 1000,
		Ground: Hex(0x2a3a2a), Ambient: 0.6, Sun: 0.4, SunColor: Hex(0x8899aa),
		SunPosition: geom.Vec3{X: 100, Y: 150, Z: 100}, Exposure: 1.2,
		StreetLights: 2.0, WindowEmissive: 0.8,
	},
}

// Presets returns a copy of the built-in presets in cycle order.
func Presets() []Preset {
	return append([]Preset(nil), presets...)
}

// Environment is the live state the renderer reads.
type Environment struct {
	Preset               Preset
	GroundColor          color.RGBA
	StreetLightIntensity float64
	WindowEmissive       float64
}

func (w *World) Environment() Environment { return w.env }

func (w *World) SetGroundColor(c color.RGBA) { w.env.GroundColor = c }

func (w *World) SetStreetLightsIntensity(v float64) { w.env.StreetLightIntensity = v }

func (w *World) SetWindowEmissiveIntensity(v float64) { w.env.WindowEmissive = v }

// ApplyPreset switches to preset i (wrapped into range) and returns it.
func (w *World) ApplyPreset(i int) Preset {
	n := len(presets)
	i = ((i % n) + n) % n
	p := presets[i]
	w.presetIdx = i
	w.env.Preset = p
	w.SetGroundColor(p.Ground)
	w.SetStreetLightsIntensity(p.StreetLights)
	w.SetWindowEmissiveIntensity(p.WindowEmissive)
	return p
}

// NextPreset cycles to the following preset.
func (w *World) NextPreset() Preset { return w.ApplyPreset(w.presetIdx + 1) }

func (w *World) CurrentPreset() Preset { return presets[w.presetIdx] }
