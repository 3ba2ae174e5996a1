//go:build !test
// +build !test

package sim

import (
	"fmt"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
)

const (
	maxFrameTime      = 0.25 // seconds of wall time absorbed per frame
	maxStepsPerFrame  = 5
	defaultWindowRate = 120
)

var glfwKeys = map[glfw.Key]Key{
	glfw.KeyW:          KeyW,
	glfw.KeyA:          KeyA,
	glfw.KeyS:          KeyS,
	glfw.KeyD:          KeyD,
	glfw.KeyQ:          KeyQ,
	glfw.KeyE:          KeyE,
	glfw.KeyR:          KeyR,
	glfw.KeyC:          KeyC,
	glfw.KeyL:          KeyL,
	glfw.KeyM:          KeyM,
	glfw.KeyV:          KeyV,
	glfw.KeyH:          KeyH,
	glfw.KeyUp:         KeyUp,
	glfw.KeyDown:       KeyDown,
	glfw.KeyLeft:       KeyLeft,
	glfw.KeyRight:      KeyRight,
	glfw.KeySpace:      KeySpace,
	glfw.KeyLeftShift:  KeyShift,
	glfw.KeyRightShift: KeyShift,
	glfw.KeyEscape:     KeyEscape,
}

// InputHandler tracks held keys from glfw callbacks. Callbacks run on the
// main thread inside PollEvents, so no locking is needed.
type InputHandler struct {
	keys      map[glfw.Key]bool
	focusLost bool
}

func NewInputHandler() *InputHandler {
	return &InputHandler{keys: make(map[glfw.Key]bool)}
}

func (i *InputHandler) SetupCallbacks(window *glfw.Window) {
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action == glfw.Press {
			i.keys[key] = true
			if key == glfw.KeyEscape {
				w.SetShouldClose(true)
			}
		} else if action == glfw.Release {
			i.keys[key] = false
		}
	})
	window.SetFocusCallback(func(w *glfw.Window, focused bool) {
		if !focused {
			clear(i.keys)
			i.focusLost = true
		}
	})
}

// Held translates the pressed glfw keys.
func (i *InputHandler) Held() HeldSet {
	held := make(HeldSet, len(i.keys))
	for k, down := range i.keys {
		if !down {
			continue
		}
		if key, ok := glfwKeys[k]; ok {
			held[key] = true
		}
	}
	return held
}

// TakeFocusLost reports a focus loss since the last call.
func (i *InputHandler) TakeFocusLost() bool {
	lost := i.focusLost
	i.focusLost = false
	return lost
}

type WindowOptions struct {
	Width  int
	Height int
	Title  string
}

// OpenWindow creates the GL 4.1 core window. The caller must hold the main
// OS thread and call glfw.Terminate when done.
func OpenWindow(opts WindowOptions) (*glfw.Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize GLFW: %w", err)
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	window, err := glfw.CreateWindow(opts.Width, opts.Height, opts.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("failed to create window: %w", err)
	}
	window.MakeContextCurrent()
	glfw.SwapInterval(1)

	if err := gl.Init(); err != nil {
		window.Destroy()
		glfw.Terminate()
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.Disable(gl.CULL_FACE)
	gl.PolygonMode(gl.FRONT_AND_BACK, gl.FILL)
	return window, nil
}

// Run drives the simulator from the window until it is closed: fixed steps
// of 1/TickRate from an accumulator, at most maxStepsPerFrame per frame,
// then one interpolated render.
func (s *Simulator) Run(window *glfw.Window, renderer *Renderer, overlay *Overlay, hud *HUDValues) {
	input := NewInputHandler()
	input.SetupCallbacks(window)
	renderer.SetDrone(s.drone)

	rate := s.cfg.TickRate
	if rate <= 0 {
		rate = defaultWindowRate
	}
	fixed := 1.0 / float64(rate)

	s.log.Info().
		Int("tickRate", rate).
		Str("gl", gl.GoStr(gl.GetString(gl.VERSION))).
		Msg("window loop started")

	last := time.Now()
	accumulator := 0.0
	for !window.ShouldClose() {
		now := time.Now()
		frame := now.Sub(last).Seconds()
		last = now
		if frame > maxFrameTime {
			frame = maxFrameTime
		}
		accumulator += frame

		if input.TakeFocusLost() {
			s.FocusLost()
		}
		held := input.Held()
		steps := 0
		for accumulator >= fixed && steps < maxStepsPerFrame {
			s.Tick(held, fixed)
			accumulator -= fixed
			steps++
		}
		if steps == maxStepsPerFrame {
			// Too slow to catch up; drop the backlog instead of spiralling.
			accumulator = 0
		}
		alpha := accumulator / fixed

		width, height := window.GetFramebufferSize()
		renderer.SetHeadlight(s.Headlight())
		renderer.Render(s.camera.View(width, height), alpha)
		if overlay != nil && hud != nil {
			overlay.Draw(s, hud, width, height, frame)
		}

		window.SwapBuffers()
		glfw.PollEvents()
	}
	s.log.Info().Int64("ticks", s.ticks).Msg("window closed")
}
