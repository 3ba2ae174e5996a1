package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drone-city-sim/internal/sim"
)

func newSimScreen(t *testing.T) (tcell.SimulationScreen, *Screen) {
	t.Helper()
	ss := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, ss.Init())
	ss.SetSize(80, 24)
	t.Cleanup(ss.Fini)
	return ss, New(ss, zerolog.Nop())
}

func rowText(s tcell.Screen, y int) string {
	w, _ := s.Size()
	var b strings.Builder
	for x := 0; x < w; x++ {
		r, _, _, _ := s.GetContent(x, y)
		if r == 0 {
			r = ' '
		}
		b.WriteRune(r)
	}
	return strings.TrimRight(b.String(), " ")
}

func TestTranslateKey(t *testing.T) {
	assert.Equal(t, []sim.Key{sim.KeyW}, TranslateKey(tcell.NewEventKey(tcell.KeyRune, 'w', tcell.ModNone)))
	assert.Equal(t, []sim.Key{sim.KeyW, sim.KeyShift}, TranslateKey(tcell.NewEventKey(tcell.KeyRune, 'W', tcell.ModNone)))
	assert.Equal(t, []sim.Key{sim.KeySpace}, TranslateKey(tcell.NewEventKey(tcell.KeyRune, ' ', tcell.ModNone)))
	assert.Equal(t, []sim.Key{sim.KeyShift}, TranslateKey(tcell.NewEventKey(tcell.KeyRune, 'z', tcell.ModNone)))
	assert.Equal(t, []sim.Key{sim.KeyUp}, TranslateKey(tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone)))
	assert.Nil(t, TranslateKey(tcell.NewEventKey(tcell.KeyRune, 'k', tcell.ModNone)))
}

func TestKeyStateAutoRelease(t *testing.T) {
	ks := NewKeyState(100 * time.Millisecond)
	t0 := time.Unix(1000, 0)

	ks.Press(sim.KeyW, t0)
	assert.True(t, ks.Held(t0.Add(50*time.Millisecond))[sim.KeyW])

	// auto-repeat keeps it alive
	ks.Press(sim.KeyW, t0.Add(90*time.Millisecond))
	assert.True(t, ks.Held(t0.Add(150*time.Millisecond))[sim.KeyW])

	assert.False(t, ks.Held(t0.Add(200*time.Millisecond))[sim.KeyW])
	assert.Empty(t, ks.Held(t0.Add(200*time.Millisecond)))
}

func TestHandleEvents(t *testing.T) {
	_, s := newSimScreen(t)
	now := time.Unix(1000, 0)

	quit, lost := s.Handle(tcell.NewEventKey(tcell.KeyRune, 'd', tcell.ModNone), now)
	assert.False(t, quit)
	assert.False(t, lost)
	assert.True(t, s.Held(now)[sim.KeyD])

	quit, lost = s.Handle(tcell.NewEventFocus(false), now)
	assert.False(t, quit)
	assert.True(t, lost)
	assert.Empty(t, s.Held(now))

	quit, _ = s.Handle(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone), now)
	assert.True(t, quit)
}

func TestDrawPanel(t *testing.T) {
	ss, s := newSimScreen(t)
	now := time.Unix(1000, 0)

	s.Publish(sim.HUDAltitude, 123.0)
	s.Publish(sim.HUDBattery, 15.0)
	s.Publish(sim.HUDEnvironment, "Night City")
	s.Publish(sim.HUDDetectionStatus, "ready")
	s.Publish(sim.HUDDetectionCount, 3.0)
	s.Publish(sim.HUDNotice, "RESET")
	s.Draw(now)

	assert.Equal(t, "DRONE CITY SIM", strings.TrimSpace(rowText(ss, 0)))
	assert.Contains(t, rowText(ss, 2), "123.0 m")
	assert.Contains(t, rowText(ss, 6), "15.0 %")
	assert.Contains(t, rowText(ss, 8), "Night City")
	assert.Contains(t, rowText(ss, 10), "ready (3)")
	assert.Contains(t, rowText(ss, 12), "RESET")
	assert.Contains(t, rowText(ss, 23), "Esc quit")

	_, _, style, _ := ss.GetContent(8, 6)
	fg, _, _ := style.Decompose()
	assert.Equal(t, tcell.ColorRed, fg)

	// the notice fades
	s.Draw(now.Add(3 * time.Second))
	assert.NotContains(t, rowText(ss, 12), "RESET")
}

type countingTicker struct {
	ticks int
	held  []sim.HeldSet
	lost  int
	stop  context.CancelFunc
	limit int
}

func (c *countingTicker) Tick(held sim.HeldSet, dt float64) {
	c.ticks++
	c.held = append(c.held, held)
	if c.ticks >= c.limit {
		c.stop()
	}
}

func (c *countingTicker) FocusLost() { c.lost++ }

func TestRunTicksUntilCancelled(t *testing.T) {
	_, s := newSimScreen(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ct := &countingTicker{stop: cancel, limit: 5}
	require.NoError(t, s.Run(ctx, ct, 200))
	assert.GreaterOrEqual(t, ct.ticks, 5)
}
