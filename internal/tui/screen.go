// Package tui is a terminal front end: a tcell HUD panel and keyboard
// source driving the same tick pipeline as the GL window.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog"

	"drone-city-sim/internal/sim"
)

const (
	noticeDuration = 2 * time.Second
	drawRate       = 30 // panel redraws per second
)

// Ticker is the part of the simulator the terminal loop drives.
type Ticker interface {
	Tick(held sim.HeldSet, dt float64)
	FocusLost()
}

var (
	styleLabel  = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleValue  = tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
	styleTitle  = tcell.StyleDefault.Foreground(tcell.ColorAqua).Bold(true)
	styleWarn   = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleNotice = tcell.StyleDefault.Foreground(tcell.ColorYellow).Reverse(true)
	styleHelp   = tcell.StyleDefault.Foreground(tcell.ColorDarkGray)
)

// Screen is a sim.HUD that renders the latest values to a terminal.
type Screen struct {
	screen tcell.Screen
	values *sim.HUDValues
	keys   *KeyState
	log    zerolog.Logger

	notice      string
	noticeUntil time.Time
	pending     bool
}

// New wraps an initialised tcell screen.
func New(screen tcell.Screen, log zerolog.Logger) *Screen {
	return &Screen{
		screen: screen,
		values: sim.NewHUDValues(),
		keys:   NewKeyState(HoldWindow),
		log:    log.With().Str("component", "tui").Logger(),
	}
}

// NewTerminal opens the controlling terminal.
func NewTerminal(log zerolog.Logger) (*Screen, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("creating terminal screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("initialising terminal screen: %w", err)
	}
	screen.EnableFocus()
	screen.HideCursor()
	return New(screen, log), nil
}

func (s *Screen) Publish(name string, value any) {
	if name == sim.HUDNotice {
		if msg, ok := value.(string); ok && msg != "" {
			s.notice = msg
			s.pending = true
		}
		return
	}
	s.values.Publish(name, value)
}

// Values exposes the latest published values.
func (s *Screen) Values() *sim.HUDValues { return s.values }

// Handle applies one terminal event. It reports whether the user asked to
// quit and whether focus was lost.
func (s *Screen) Handle(ev tcell.Event, now time.Time) (quit, focusLost bool) {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
			return true, false
		}
		for _, k := range TranslateKey(ev) {
			s.keys.Press(k, now)
		}
	case *tcell.EventFocus:
		if !ev.Focused {
			s.keys.Clear()
			return false, true
		}
	case *tcell.EventResize:
		s.screen.Sync()
	}
	return false, false
}

// Held returns the keys currently considered down.
func (s *Screen) Held(now time.Time) sim.HeldSet { return s.keys.Held(now) }

// Run ticks t at tickRate until ctx ends or the user quits.
func (s *Screen) Run(ctx context.Context, t Ticker, tickRate int) error {
	if tickRate <= 0 {
		tickRate = 120
	}
	events := make(chan tcell.Event, 64)
	quit := make(chan struct{})
	go s.screen.ChannelEvents(events, quit)
	defer close(quit)

	ticker := time.NewTicker(time.Second / time.Duration(tickRate))
	defer ticker.Stop()
	drawEvery := max(1, tickRate/drawRate)

	last := time.Now()
	ticks := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			stop, lost := s.Handle(ev, time.Now())
			if stop {
				s.log.Info().Int("ticks", ticks).Msg("quit requested")
				return nil
			}
			if lost {
				t.FocusLost()
			}
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			t.Tick(s.keys.Held(now), dt)
			ticks++
			if ticks%drawEvery == 0 {
				s.Draw(now)
			}
		}
	}
}

func (s *Screen) Close() {
	s.screen.Fini()
}

func (s *Screen) text(x, y int, style tcell.Style, str string) int {
	for _, r := range str {
		s.screen.SetContent(x, y, r, nil, style)
		x++
	}
	return x
}

func (s *Screen) row(y int, label, value string, style tcell.Style) {
	s.text(2, y, styleLabel, label)
	s.text(8, y, style, value)
}

func (s *Screen) float(name string) float64 {
	v, _ := s.values.Float(name)
	return v
}

func (s *Screen) str(name, fallback string) string {
	if v, ok := s.values.String(name); ok && v != "" {
		return v
	}
	return fallback
}

// Draw renders the panel.
func (s *Screen) Draw(now time.Time) {
	if s.pending {
		s.noticeUntil = now.Add(noticeDuration)
		s.pending = false
	}
	s.screen.Clear()

	s.text(2, 0, styleTitle, "DRONE CITY SIM")
	s.row(2, "ALT", fmt.Sprintf("%7.1f m", s.float(sim.HUDAltitude)), styleValue)
	s.row(3, "SPD", fmt.Sprintf("%7.1f m/s", s.float(sim.HUDSpeed)), styleValue)
	s.row(4, "POS", fmt.Sprintf("x %.1f  z %.1f", s.float(sim.HUDPositionX), s.float(sim.HUDPositionZ)), styleValue)
	s.row(5, "HDG", fmt.Sprintf("%7.1f deg", s.float(sim.HUDHeading)), styleValue)

	battery := s.float(sim.HUDBattery)
	batteryStyle := styleValue
	if battery < 20 {
		batteryStyle = styleWarn
	}
	s.row(6, "BAT", fmt.Sprintf("%7.1f %%", battery), batteryStyle)
	s.row(7, "WIND", fmt.Sprintf("%7.1f", s.float(sim.HUDWindSpeed)), styleValue)
	s.row(8, "ENV", s.str(sim.HUDEnvironment, "-"), styleValue)
	s.row(9, "REC", fmt.Sprintf("%s (%d)", s.str(sim.HUDRecorder, "idle"), int(s.float(sim.HUDRecordedFrames))), styleValue)
	s.row(10, "DET", fmt.Sprintf("%s (%d)", s.str(sim.HUDDetectionStatus, "off"), int(s.float(sim.HUDDetectionCount))), styleValue)

	if s.notice != "" && now.Before(s.noticeUntil) {
		s.text(2, 12, styleNotice, " "+s.notice+" ")
	}

	_, h := s.screen.Size()
	s.text(2, h-1, styleHelp, "WASD move  QE yaw  Space/Z up/down  R reset  Shift+R recharge  C cam  M env  V rec  Esc quit")
	s.screen.Show()
}

var _ sim.HUD = (*Screen)(nil)
