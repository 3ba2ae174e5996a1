//go:build !test
// +build !test

package sim

import (
	"fmt"
	"image"
	"image/draw"
	"strings"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"

	"drone-city-sim/internal/detect"
)

type Color struct{ R, G, B, A float32 }

var (
	colorPanel   = Color{0, 0, 0, 0.55}
	colorText    = Color{0.9, 0.95, 1, 1}
	colorLabel   = Color{0.6, 0.7, 0.8, 1}
	colorWarn    = Color{1, 0.3, 0.3, 1}
	colorNotice  = Color{1, 0.85, 0.2, 1}
	colorBorder  = Color{0, 1, 0.53, 1}
	colorRecLive = Color{1, 0.2, 0.2, 1}
)

const (
	insetWidth  = 320
	insetHeight = 240
	noticeTime  = 2.0 // seconds
)

const uiVertexSource = `#version 410 core
layout(location=0) in vec2 aPos;
layout(location=1) in vec4 aColor;
out vec4 vColor;
void main(){
    gl_Position = vec4(aPos, 0.0, 1.0);
    vColor = aColor;
}` + "\x00"

const uiFragmentSource = `#version 410 core
in vec4 vColor;
out vec4 FragColor;
void main(){
    FragColor = vColor;
}` + "\x00"

const texVertexSource = `#version 410 core
layout(location=0) in vec2 aPos;
layout(location=1) in vec2 aUV;
out vec2 vUV;
void main(){
    gl_Position = vec4(aPos, 0.0, 1.0);
    vUV = aUV;
}` + "\x00"

const texFragmentSource = `#version 410 core
in vec2 vUV;
out vec4 FragColor;
uniform sampler2D uTex;
void main(){
    FragColor = texture(uTex, vUV);
}` + "\x00"

// Overlay draws the 2D layer: HUD panel, notices and the drone-cam inset
// with detection boxes.
type Overlay struct {
	shader uint32
	vao    uint32
	vbo    uint32
	verts  []float32 // x,y,r,g,b,a per-vertex
	scrW   int
	scrH   int

	texShader uint32
	texVAO    uint32
	texVBO    uint32
	tex       uint32
	texFrame  *image.RGBA
	texSeq    uint64
	scratch   *image.RGBA

	notice      string
	noticeTimer float64
}

func NewOverlay() (*Overlay, error) {
	o := &Overlay{}
	if err := o.init(); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *Overlay) init() error {
	var err error
	if o.shader, err = linkProgram(uiVertexSource, uiFragmentSource); err != nil {
		return fmt.Errorf("overlay shader: %w", err)
	}
	if o.texShader, err = linkProgram(texVertexSource, texFragmentSource); err != nil {
		return fmt.Errorf("overlay texture shader: %w", err)
	}

	gl.GenVertexArrays(1, &o.vao)
	gl.GenBuffers(1, &o.vbo)
	gl.BindVertexArray(o.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, o.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, 0, nil, gl.DYNAMIC_DRAW)
	gl.VertexAttribPointer(0, 2, gl.FLOAT, false, 6*4, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(1, 4, gl.FLOAT, false, 6*4, gl.PtrOffset(2*4))
	gl.EnableVertexAttribArray(1)

	gl.GenVertexArrays(1, &o.texVAO)
	gl.GenBuffers(1, &o.texVBO)
	gl.BindVertexArray(o.texVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, o.texVBO)
	gl.BufferData(gl.ARRAY_BUFFER, 0, nil, gl.DYNAMIC_DRAW)
	gl.VertexAttribPointer(0, 2, gl.FLOAT, false, 4*4, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(1, 2, gl.FLOAT, false, 4*4, gl.PtrOffset(2*4))
	gl.EnableVertexAttribArray(1)
	gl.BindVertexArray(0)

	gl.GenTextures(1, &o.tex)
	gl.BindTexture(gl.TEXTURE_2D, o.tex)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	return nil
}

func (o *Overlay) Begin(width, height int) {
	o.scrW, o.scrH = width, height
	o.verts = o.verts[:0]
}

func (o *Overlay) Flush() {
	if len(o.verts) == 0 {
		return
	}
	gl.Disable(gl.DEPTH_TEST)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.UseProgram(o.shader)
	gl.BindVertexArray(o.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, o.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(o.verts)*4, gl.Ptr(o.verts), gl.DYNAMIC_DRAW)
	gl.DrawArrays(gl.TRIANGLES, 0, int32(len(o.verts)/6))
	gl.BindVertexArray(0)
	gl.Disable(gl.BLEND)
	gl.Enable(gl.DEPTH_TEST)
	o.verts = o.verts[:0]
}

func (o *Overlay) AddRect(x, y, w, h int, c Color) {
	x0 := o.pxToNDCX(float32(x))
	y0 := o.pxToNDCY(float32(y))
	x1 := o.pxToNDCX(float32(x + w))
	y1 := o.pxToNDCY(float32(y + h))
	o.addV(x0, y0, c)
	o.addV(x1, y0, c)
	o.addV(x1, y1, c)

	o.addV(x0, y0, c)
	o.addV(x1, y1, c)
	o.addV(x0, y1, c)
}

func (o *Overlay) addV(x, y float32, c Color) {
	o.verts = append(o.verts, x, y, c.R, c.G, c.B, c.A)
}

func (o *Overlay) pxToNDCX(px float32) float32 {
	return (px/float32(o.scrW))*2 - 1
}

// Pixels have a top-left origin.
func (o *Overlay) pxToNDCY(py float32) float32 {
	return 1 - (py/float32(o.scrH))*2
}

// 5x7 uppercase font for minimal HUD text
// Each row is 5 LSBits used.
var font5x7 = map[rune][7]uint8{
	' ': {0, 0, 0, 0, 0, 0, 0},
	'.': {0, 0, 0, 0, 0, 0, 0b00100},
	',': {0, 0, 0, 0, 0, 0b00100, 0b01000},
	':': {0, 0, 0b010, 0, 0b010, 0, 0},
	'%': {0b10001, 0b00010, 0b00100, 0b01000, 0b10000, 0, 0},
	'-': {0, 0, 0b11110, 0, 0, 0, 0},
	'/': {0b00001, 0b00010, 0b00010, 0b00100, 0b01000, 0b01000, 0b10000},
	'(': {0b00010, 0b00100, 0b01000, 0b01000, 0b01000, 0b00100, 0b00010},
	')': {0b01000, 0b00100, 0b00010, 0b00010, 0b00010, 0b00100, 0b01000},

	'0': {0b01110, 0b10001, 0b10011, 0b10101, 0b11001, 0b10001, 0b01110},
	'1': {0b00100, 0b01100, 0b00100, 0b00100, 0b00100, 0b00100, 0b01110},
	'2': {0b01110, 0b10001, 0b00001, 0b00010, 0b00100, 0b01000, 0b11111},
	'3': {0b11110, 0b00001, 0b00001, 0b01110, 0b00001, 0b00001, 0b11110},
	'4': {0b00010, 0b00110, 0b01010, 0b10010, 0b11111, 0b00010, 0b00010},
	'5': {0b11111, 0b10000, 0b11110, 0b00001, 0b00001, 0b10001, 0b01110},
	'6': {0b00110, 0b01000, 0b10000, 0b11110, 0b10001, 0b10001, 0b01110},
	'7': {0b11111, 0b00001, 0b00010, 0b00100, 0b01000, 0b01000, 0b01000},
	'8': {0b01110, 0b10001, 0b10001, 0b01110, 0b10001, 0b10001, 0b01110},
	'9': {0b01110, 0b10001, 0b10001, 0b01111, 0b00001, 0b00010, 0b01100},

	'A': {0b01110, 0b10001, 0b10001, 0b11111, 0b10001, 0b10001, 0b10001},
	'B': {0b11110, 0b10001, 0b10001, 0b11110, 0b10001, 0b10001, 0b11110},
	'C': {0b01110, 0b10001, 0b10000, 0b10000, 0b10000, 0b10001, 0b01110},
	'D': {0b11100, 0b10010, 0b10001, 0b10001, 0b10001, 0b10010, 0b11100},
	'E': {0b11111, 0b10000, 0b10000, 0b11110, 0b10000, 0b10000, 0b11111},
	'F': {0b11111, 0b10000, 0b10000, 0b11110, 0b10000, 0b10000, 0b10000},
	'G': {0b01110, 0b10001, 0b10000, 0b10111, 0b10001, 0b10001, 0b01110},
	'H': {0b10001, 0b10001, 0b10001, 0b11111, 0b10001, 0b10001, 0b10001},
	'I': {0b01110, 0b00100, 0b00100, 0b00100, 0b00100, 0b00100, 0b01110},
	'J': {0b00001, 0b00001, 0b00001, 0b00001, 0b10001, 0b10001, 0b01110},
	'K': {0b10001, 0b10010, 0b10100, 0b11000, 0b10100, 0b10010, 0b10001},
	'L': {0b10000, 0b10000, 0b10000, 0b10000, 0b10000, 0b10000, 0b11111},
	'M': {0b10001, 0b11011, 0b10101, 0b10101, 0b10001, 0b10001, 0b10001},
	'N': {0b10001, 0b11001, 0b10101, 0b10011, 0b10001, 0b10001, 0b10001},
	'O': {0b01110, 0b10001, 0b10001, 0b10001, 0b10001, 0b10001, 0b01110},
	'P': {0b11110, 0b10001, 0b10001, 0b11110, 0b10000, 0b10000, 0b10000},
	'Q': {0b01110, 0b10001, 0b10001, 0b10001, 0b10101, 0b10010, 0b01101},
	'R': {0b11110, 0b10001, 0b10001, 0b11110, 0b10100, 0b10010, 0b10001},
	'S': {0b01111, 0b10000, 0b10000, 0b01110, 0b00001, 0b00001, 0b11110},
	'T': {0b11111, 0b00100, 0b00100, 0b00100, 0b00100, 0b00100, 0b00100},
	'U': {0b10001, 0b10001, 0b10001, 0b10001, 0b10001, 0b10001, 0b01110},
	'V': {0b10001, 0b10001, 0b10001, 0b10001, 0b01010, 0b01010, 0b00100},
	'W': {0b10001, 0b10001, 0b10001, 0b10101, 0b10101, 0b11011, 0b10001},
	'X': {0b10001, 0b10001, 0b01010, 0b00100, 0b01010, 0b10001, 0b10001},
	'Y': {0b10001, 0b10001, 0b01010, 0b00100, 0b00100, 0b00100, 0b00100},
	'Z': {0b11111, 0b00001, 0b00010, 0b00100, 0b01000, 0b10000, 0b11111},
}

// DrawText draws uppercase-only text with a minimal 5x7 font.
// scale is the pixel size of one font pixel.
func (o *Overlay) DrawText(x, y int, text string, scale int, c Color) {
	s := strings.ToUpper(text)
	cx := x
	cw := 5 * scale
	ch := 7 * scale
	for _, r := range s {
		if r == '\n' {
			y += ch + scale
			cx = x
			continue
		}
		glyph, ok := font5x7[r]
		if !ok {
			cx += cw + scale
			continue
		}
		for row := 0; row < 7; row++ {
			bits := glyph[row]
			for col := 0; col < 5; col++ {
				if (bits & (1 << uint(4-col))) != 0 { // left-most is MSB among 5 bits
					o.AddRect(cx+col*scale, y+row*scale, scale, scale, c)
				}
			}
		}
		cx += cw + scale
	}
}

// Draw renders the overlay for one frame. dt advances notice fading.
func (o *Overlay) Draw(s *Simulator, hud *HUDValues, width, height int, dt float64) {
	o.Begin(width, height)

	if msg, ok := hud.String(HUDNotice); ok && msg != "" && msg != o.notice {
		o.notice = msg
		o.noticeTimer = noticeTime
	}
	// The simulator publishes a notice once; clear it so a repeat shows again.
	hud.Publish(HUDNotice, "")

	if s.DroneCamFullscreen() {
		o.drawDroneCam(s, 0, 0, width, height, detect.FullscreenStyle)
	} else {
		o.drawDroneCam(s, width-insetWidth-10, 10, insetWidth, insetHeight, detect.InsetStyle)
	}

	if s.HUDVisible() {
		o.drawPanel(hud)
	}
	if o.noticeTimer > 0 {
		o.noticeTimer -= dt
		tw := len(o.notice) * 18
		o.AddRect(width/2-tw/2-10, 40, tw+20, 40, colorPanel)
		o.DrawText(width/2-tw/2, 50, o.notice, 3, colorNotice)
	} else {
		o.notice = ""
	}
	o.DrawText(10, height-20, "WASD MOVE  QE YAW  SPACE/SHIFT UP/DOWN  R RESET  C CAM  L LIGHT  M ENV  V REC  H HUD", 2, colorLabel)
	o.Flush()
}

func (o *Overlay) drawPanel(hud *HUDValues) {
	f := func(name string) float64 { v, _ := hud.Float(name); return v }
	str := func(name string) string { v, _ := hud.String(name); return v }

	o.AddRect(10, 10, 300, 190, colorPanel)
	rows := []struct {
		label, value string
		c            Color
	}{
		{"ALT", fmt1(f(HUDAltitude)) + " M", colorText},
		{"SPD", fmt1(f(HUDSpeed)) + " M/S", colorText},
		{"POS", fmt1(f(HUDPositionX)) + ", " + fmt1(f(HUDPositionZ)), colorText},
		{"HDG", fmt1(f(HUDHeading)), colorText},
		{"BAT", fmt1(f(HUDBattery)) + " %", colorText},
		{"WIND", fmt1(f(HUDWindSpeed)), colorText},
		{"ENV", str(HUDEnvironment), colorText},
		{"DET", str(HUDDetectionStatus) + " (" + itoa(int(f(HUDDetectionCount))) + ")", colorText},
	}
	if f(HUDBattery) < 20 {
		rows[4].c = colorWarn
	}
	y := 20
	for _, r := range rows {
		o.DrawText(20, y, r.label, 2, colorLabel)
		o.DrawText(80, y, r.value, 2, r.c)
		y += 20
	}
	if str(HUDRecorder) == RecorderRecording.String() {
		o.AddRect(20, y+2, 10, 10, colorRecLive)
		o.DrawText(40, y, "REC "+itoa(int(f(HUDRecordedFrames))), 2, colorRecLive)
	}
}

// drawDroneCam shows the last drone-cam frame with the latest detections
// drawn into a copy of it.
func (o *Overlay) drawDroneCam(s *Simulator, x, y, w, h int, style detect.OverlayStyle) {
	frame := s.LastFrame()
	if frame == nil {
		return
	}
	o.AddRect(x-2, y-2, w+4, h+4, colorBorder)
	o.Flush()

	var seq uint64
	var dets []detect.Detection
	if a := s.Detector(); a != nil {
		seq = a.LatestSeq()
		dets = a.Latest()
	}
	if frame != o.texFrame || seq != o.texSeq {
		if o.scratch == nil || o.scratch.Bounds() != frame.Bounds() {
			o.scratch = image.NewRGBA(frame.Bounds())
		}
		draw.Draw(o.scratch, frame.Bounds(), frame, frame.Bounds().Min, draw.Src)
		detect.DrawBoxes(o.scratch, dets, style)
		if style == detect.FullscreenStyle {
			detect.DrawCaption(o.scratch, len(dets), time.Now())
		}
		b := o.scratch.Bounds()
		gl.BindTexture(gl.TEXTURE_2D, o.tex)
		gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(b.Dx()), int32(b.Dy()), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(o.scratch.Pix))
		o.texFrame, o.texSeq = frame, seq
	}

	// Row 0 of the image is the top, so the top edge samples v=0.
	x0, y0 := o.pxToNDCX(float32(x)), o.pxToNDCY(float32(y))
	x1, y1 := o.pxToNDCX(float32(x+w)), o.pxToNDCY(float32(y+h))
	quad := []float32{
		x0, y0, 0, 0,
		x1, y0, 1, 0,
		x1, y1, 1, 1,
		x0, y0, 0, 0,
		x1, y1, 1, 1,
		x0, y1, 0, 1,
	}
	gl.Disable(gl.DEPTH_TEST)
	gl.UseProgram(o.texShader)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, o.tex)
	gl.BindVertexArray(o.texVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, o.texVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(quad)*4, gl.Ptr(quad), gl.DYNAMIC_DRAW)
	gl.DrawArrays(gl.TRIANGLES, 0, 6)
	gl.BindVertexArray(0)
	gl.Enable(gl.DEPTH_TEST)
}
