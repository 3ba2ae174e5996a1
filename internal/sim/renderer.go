//go:build !test
// +build !test

package sim

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"

	"drone-city-sim/internal/detect"
	"drone-city-sim/internal/geom"
	"drone-city-sim/internal/world"
)

const vertexShaderSource = `
#version 410 core
layout (location = 0) in vec3 aPos;
layout (location = 1) in vec3 aNormal;

uniform mat4 model;
uniform mat4 view;
uniform mat4 projection;

out vec3 vNormal;
out vec3 worldPos;

void main() {
    vec4 wp = model * vec4(aPos, 1.0);
    worldPos = wp.xyz;
    vNormal = mat3(model) * aNormal;
    gl_Position = projection * view * wp;
}
` + "\x00"

const fragmentShaderSource = `
#version 410 core
in vec3 vNormal;
in vec3 worldPos;
out vec4 FragColor;

uniform vec3 uColor;
uniform float uEmissive;
uniform vec3 uSunDir;
uniform vec3 uSunColor;
uniform float uSun;
uniform float uAmbient;
uniform float uExposure;

uniform vec3 uCameraPos;
uniform vec3 uFogColor;
uniform float uFogNear;
uniform float uFogFar;

uniform int uUseGrid;       // 1 = grid lines on ground tiles
uniform float uTileSize;    // world units per grid cell
uniform float uGridLineWidth;

uniform int uHeadlight;
uniform vec3 uHeadPos;
uniform vec3 uHeadDir;

void main() {
    vec3 n = normalize(vNormal);
    float diff = max(dot(n, normalize(uSunDir)), 0.0);
    vec3 light = vec3(uAmbient * 0.4) + uSunColor * diff * uSun * 0.35;

    if (uHeadlight == 1) {
        vec3 toFrag = worldPos - uHeadPos;
        float d = max(length(toFrag), 0.001);
        float cone = smoothstep(0.85, 0.95, dot(toFrag / d, uHeadDir));
        light += vec3(cone * 3.0 / (1.0 + 0.002 * d * d));
    }

    vec3 base = uColor;
    if (uUseGrid == 1) {
        float fx = abs(fract(worldPos.x / uTileSize) - 0.5);
        float fz = abs(fract(worldPos.z / uTileSize) - 0.5);
        float lineWidth = uGridLineWidth / uTileSize;
        float lineMask = smoothstep(0.5 - lineWidth, 0.5, max(fx, fz));
        base = mix(base, base * 0.7, lineMask * 0.6);
    }

    vec3 c = base * light * uExposure * 0.6 + uColor * uEmissive;

    float dist = distance(worldPos, uCameraPos);
    float fogFactor = clamp((dist - uFogNear) / max(uFogFar - uFogNear, 1.0), 0.0, 1.0);
    FragColor = vec4(mix(c, uFogColor, fogFactor), 1.0);
}
` + "\x00"

var (
	roadColor      = world.Hex(0x333333)
	droneColor     = world.Hex(0xe04848)
	propellerColor = world.Hex(0x222222)
	kindColors     = map[world.Kind]color.RGBA{
		world.KindBuilding:     world.Hex(0x8a8f99),
		world.KindPerson:       world.Hex(0xd9a066),
		world.KindTree:         world.Hex(0x2e7d32),
		world.KindStreetLight:  world.Hex(0x555555),
		world.KindTrafficLight: world.Hex(0x333333),
		world.KindBench:        world.Hex(0x8b5a2b),
		world.KindHelipad:      world.Hex(0x444444),
	}
	vehicleColors = map[string]color.RGBA{
		"car":   world.Hex(0x3366cc),
		"truck": world.Hex(0xcc8833),
		"bus":   world.Hex(0xddbb22),
	}
)

// Renderer draws the city, the drone and the drone-cam frame. It
// implements FrameSource.
type Renderer struct {
	shaderProgram uint32
	cubeVAO       uint32
	cubeCount     int32

	modelLoc      int32
	viewLoc       int32
	projectionLoc int32
	colorLoc      int32
	emissiveLoc   int32
	sunDirLoc     int32
	sunColorLoc   int32
	sunLoc        int32
	ambientLoc    int32
	exposureLoc   int32
	cameraPosLoc  int32
	fogColorLoc   int32
	fogNearLoc    int32
	fogFarLoc     int32
	useGridLoc    int32
	tileSizeLoc   int32
	gridWidthLoc  int32
	headlightLoc  int32
	headPosLoc    int32
	headDirLoc    int32

	fbo, fboColor, fboDepth uint32
	fboW, fboH              int

	world      *world.World
	drone      *Drone
	headlight  bool
	screenW    int
	screenH    int
	brightness float64
	contrast   float64
}

// NewRenderer needs a current GL context.
func NewRenderer(w *world.World, brightness, contrast float64) (*Renderer, error) {
	r := &Renderer{world: w, brightness: brightness, contrast: contrast}
	if err := r.initShaders(); err != nil {
		return nil, err
	}
	r.initGeometry()
	return r, nil
}

func (r *Renderer) initShaders() error {
	program, err := linkProgram(vertexShaderSource, fragmentShaderSource)
	if err != nil {
		return err
	}
	r.shaderProgram = program

	loc := func(name string) int32 {
		return gl.GetUniformLocation(r.shaderProgram, gl.Str(name+"\x00"))
	}
	r.modelLoc = loc("model")
	r.viewLoc = loc("view")
	r.projectionLoc = loc("projection")
	r.colorLoc = loc("uColor")
	r.emissiveLoc = loc("uEmissive")
	r.sunDirLoc = loc("uSunDir")
	r.sunColorLoc = loc("uSunColor")
	r.sunLoc = loc("uSun")
	r.ambientLoc = loc("uAmbient")
	r.exposureLoc = loc("uExposure")
	r.cameraPosLoc = loc("uCameraPos")
	r.fogColorLoc = loc("uFogColor")
	r.fogNearLoc = loc("uFogNear")
	r.fogFarLoc = loc("uFogFar")
	r.useGridLoc = loc("uUseGrid")
	r.tileSizeLoc = loc("uTileSize")
	r.gridWidthLoc = loc("uGridLineWidth")
	r.headlightLoc = loc("uHeadlight")
	r.headPosLoc = loc("uHeadPos")
	r.headDirLoc = loc("uHeadDir")
	return nil
}

// initGeometry builds a unit box with its base on y=0, so scaling by an
// object's Size and translating to its Position places it directly.
func (r *Renderer) initGeometry() {
	type face struct {
		n       [3]float32
		corners [4][3]float32
	}
	faces := []face{
		{[3]float32{0, 0, 1}, [4][3]float32{{-0.5, 0, 0.5}, {0.5, 0, 0.5}, {0.5, 1, 0.5}, {-0.5, 1, 0.5}}},
		{[3]float32{0, 0, -1}, [4][3]float32{{0.5, 0, -0.5}, {-0.5, 0, -0.5}, {-0.5, 1, -0.5}, {0.5, 1, -0.5}}},
		{[3]float32{-1, 0, 0}, [4][3]float32{{-0.5, 0, -0.5}, {-0.5, 0, 0.5}, {-0.5, 1, 0.5}, {-0.5, 1, -0.5}}},
		{[3]float32{1, 0, 0}, [4][3]float32{{0.5, 0, 0.5}, {0.5, 0, -0.5}, {0.5, 1, -0.5}, {0.5, 1, 0.5}}},
		{[3]float32{0, 1, 0}, [4][3]float32{{-0.5, 1, 0.5}, {0.5, 1, 0.5}, {0.5, 1, -0.5}, {-0.5, 1, -0.5}}},
		{[3]float32{0, -1, 0}, [4][3]float32{{-0.5, 0, -0.5}, {0.5, 0, -0.5}, {0.5, 0, 0.5}, {-0.5, 0, 0.5}}},
	}
	vertices := make([]float32, 0, len(faces)*4*6)
	indices := make([]uint32, 0, len(faces)*6)
	for i, f := range faces {
		for _, c := range f.corners {
			vertices = append(vertices, c[0], c[1], c[2], f.n[0], f.n[1], f.n[2])
		}
		b := uint32(i * 4)
		indices = append(indices, b, b+1, b+2, b+2, b+3, b)
	}
	r.cubeCount = int32(len(indices))

	var vbo, ebo uint32
	gl.GenVertexArrays(1, &r.cubeVAO)
	gl.GenBuffers(1, &vbo)
	gl.GenBuffers(1, &ebo)

	gl.BindVertexArray(r.cubeVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, gl.Ptr(vertices), gl.STATIC_DRAW)

	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, gl.Ptr(indices), gl.STATIC_DRAW)

	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, 6*4, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(1, 3, gl.FLOAT, false, 6*4, gl.PtrOffset(3*4))
	gl.EnableVertexAttribArray(1)
	gl.BindVertexArray(0)
}

// SetDrone sets the drone drawn in the main view.
func (r *Renderer) SetDrone(d *Drone) { r.drone = d }

func (r *Renderer) SetHeadlight(on bool) { r.headlight = on }

func rgb(c color.RGBA) (float32, float32, float32) {
	return float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255
}

func setMat(loc int32, m geom.Mat4) {
	f := m.Float32()
	gl.UniformMatrix4fv(loc, 1, false, &f[0])
}

func setVec(loc int32, v geom.Vec3) {
	gl.Uniform3f(loc, float32(v.X), float32(v.Y), float32(v.Z))
}

func (r *Renderer) drawBox(model geom.Mat4, c color.RGBA, emissive float64) {
	setMat(r.modelLoc, model)
	cr, cg, cb := rgb(c)
	gl.Uniform3f(r.colorLoc, cr, cg, cb)
	gl.Uniform1f(r.emissiveLoc, float32(emissive))
	gl.DrawElements(gl.TRIANGLES, r.cubeCount, gl.UNSIGNED_INT, gl.PtrOffset(0))
}

func boxModel(pos geom.Vec3, yaw float64, size geom.Vec3) geom.Mat4 {
	return geom.ComposeTRS(pos, yaw, 0, 0, size)
}

// Render draws the main chase view into the default framebuffer.
func (r *Renderer) Render(view CameraView, alpha float64) {
	r.screenW, r.screenH = view.Width, view.Height
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, int32(view.Width), int32(view.Height))
	r.drawScene(view, alpha, true)
}

func (r *Renderer) drawScene(view CameraView, alpha float64, withDrone bool) {
	env := world.Environment{Preset: world.Presets()[0], GroundColor: world.Hex(0x3d6b35)}
	if r.world != nil {
		env = r.world.Environment()
	}
	p := env.Preset
	sr, sg, sb := rgb(p.Sky)
	gl.ClearColor(sr, sg, sb, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	gl.UseProgram(r.shaderProgram)
	gl.BindVertexArray(r.cubeVAO)
	setMat(r.viewLoc, view.View())
	setMat(r.projectionLoc, view.Projection())
	setVec(r.cameraPosLoc, view.Eye)
	setVec(r.sunDirLoc, p.SunPosition.Normalize())
	cr, cg, cb := rgb(p.SunColor)
	gl.Uniform3f(r.sunColorLoc, cr, cg, cb)
	gl.Uniform1f(r.sunLoc, float32(p.Sun))
	gl.Uniform1f(r.ambientLoc, float32(p.Ambient))
	gl.Uniform1f(r.exposureLoc, float32(p.Exposure))
	fr, fg, fb := rgb(p.Fog)
	gl.Uniform3f(r.fogColorLoc, fr, fg, fb)
	gl.Uniform1f(r.fogNearLoc, float32(p.FogNear))
	gl.Uniform1f(r.fogFarLoc, float32(p.FogFar))

	gl.Uniform1i(r.headlightLoc, 0)
	if r.headlight && r.drone != nil {
		gl.Uniform1i(r.headlightLoc, 1)
		setVec(r.headPosLoc, r.drone.Position)
		setVec(r.headDirLoc, geom.Vec3{Z: 1}.RotateY(r.drone.Rotation.Y).Add(geom.Vec3{Y: -0.3}).Normalize())
	}

	if r.world != nil {
		r.drawGround(env)
		r.drawRoads()
		r.drawObjects(env)
	}
	if withDrone && r.drone != nil {
		r.drawDrone(alpha)
	}
	gl.BindVertexArray(0)
}

func (r *Renderer) drawGround(env world.Environment) {
	gl.Uniform1i(r.useGridLoc, 1)
	gl.Uniform1f(r.tileSizeLoc, 50)
	gl.Uniform1f(r.gridWidthLoc, 0.5)
	for _, t := range r.world.Tiles {
		c := env.GroundColor
		if t.Loaded {
			c = t.Color
		}
		pos := geom.Vec3{X: t.Center.X, Y: -0.2, Z: t.Center.Z}
		r.drawBox(boxModel(pos, 0, geom.Vec3{X: t.Size, Y: 0.2, Z: t.Size}), c, 0)
	}
	gl.Uniform1i(r.useGridLoc, 0)
}

func (r *Renderer) drawRoads() {
	for _, road := range r.world.Roads() {
		size := geom.Vec3{X: road.Length, Y: 0.05, Z: road.Width}
		if road.Orientation == world.Vertical {
			size = geom.Vec3{X: road.Width, Y: 0.05, Z: road.Length}
		}
		pos := geom.Vec3{X: road.CenterX, Z: road.CenterZ}
		r.drawBox(boxModel(pos, 0, size), roadColor, 0)
	}
}

func (r *Renderer) drawObjects(env world.Environment) {
	for _, o := range r.world.Objects() {
		c, ok := kindColors[o.Kind]
		if o.Kind == world.KindVehicle {
			c, ok = vehicleColors[o.Label]
		}
		if !ok {
			c = detect.ClassColor(o.Label)
		}
		emissive := 0.0
		switch o.Kind {
		case world.KindBuilding:
			emissive = env.WindowEmissive * 0.15
		case world.KindStreetLight:
			emissive = env.StreetLightIntensity * 0.3
		}
		r.drawBox(boxModel(o.Position, o.Yaw, o.Size), c, emissive)
	}
}

func (r *Renderer) drawDrone(alpha float64) {
	body := r.drone.TransformMatrix(alpha)
	r.drawBox(body.Mul(geom.ComposeTRS(geom.Vec3{Y: -0.2}, 0, 0, 0, geom.Vec3{X: 1.4, Y: 0.4, Z: 1.4})), droneColor, 0)
	// arms
	r.drawBox(body.Mul(geom.ComposeTRS(geom.Vec3{}, math.Pi/4, 0, 0, geom.Vec3{X: 0.15, Y: 0.1, Z: 3.4})), propellerColor, 0)
	r.drawBox(body.Mul(geom.ComposeTRS(geom.Vec3{}, -math.Pi/4, 0, 0, geom.Vec3{X: 0.15, Y: 0.1, Z: 3.4})), propellerColor, 0)

	rig := r.drone.Rig
	for _, idx := range rig.Propellers {
		local := rig.Tree.Nodes[idx].Local.Matrix()
		blade := geom.ScaleMat4(1.6, 0.03, 0.15)
		r.drawBox(body.Mul(local).Mul(blade), propellerColor, 0)
	}
}

func (r *Renderer) ensureFramebuffer(w, h int) error {
	if r.fbo != 0 && r.fboW == w && r.fboH == h {
		return nil
	}
	if r.fbo != 0 {
		gl.DeleteFramebuffers(1, &r.fbo)
		gl.DeleteTextures(1, &r.fboColor)
		gl.DeleteRenderbuffers(1, &r.fboDepth)
	}
	gl.GenFramebuffers(1, &r.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, r.fbo)

	gl.GenTextures(1, &r.fboColor)
	gl.BindTexture(gl.TEXTURE_2D, r.fboColor)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(w), int32(h), 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, r.fboColor, 0)

	gl.GenRenderbuffers(1, &r.fboDepth)
	gl.BindRenderbuffer(gl.RENDERBUFFER, r.fboDepth)
	gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH_COMPONENT24, int32(w), int32(h))
	gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.RENDERBUFFER, r.fboDepth)

	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		return fmt.Errorf("drone cam framebuffer incomplete: 0x%x", status)
	}
	r.fboW, r.fboH = w, h
	return nil
}

// RenderFrame draws view offscreen and reads it back top row first, with
// the drone-cam brightness and contrast applied.
func (r *Renderer) RenderFrame(view CameraView) (*image.RGBA, error) {
	w, h := view.Width, view.Height
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid drone cam size %dx%d", w, h)
	}
	if err := r.ensureFramebuffer(w, h); err != nil {
		return nil, err
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, r.fbo)
	gl.Viewport(0, 0, int32(w), int32(h))
	r.drawScene(view, 1, false)

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(w), int32(h), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))

	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if r.screenW > 0 && r.screenH > 0 {
		gl.Viewport(0, 0, int32(r.screenW), int32(r.screenH))
	}

	detect.FlipVertical(img)
	detect.Enhance(img, r.brightness, r.contrast)
	return img, nil
}

func linkProgram(vertexSource, fragmentSource string) (uint32, error) {
	vertexShader, err := compileShader(vertexSource, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}
	fragmentShader, err := compileShader(fragmentSource, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vertexShader)
		return 0, err
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, vertexShader)
	gl.AttachShader(program, fragmentShader)
	gl.LinkProgram(program)
	gl.DeleteShader(vertexShader)
	gl.DeleteShader(fragmentShader)

	var success int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &success)
	if success == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		return 0, fmt.Errorf("failed to link shader program: %v", log)
	}
	return program, nil
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	cSources, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, cSources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("failed to compile shader: %v", log)
	}
	return shader, nil
}

var _ FrameSource = (*Renderer)(nil)
