package tui

import (
	"time"

	"github.com/gdamore/tcell/v2"

	"drone-city-sim/internal/sim"
)

// HoldWindow is how long a key counts as held after its last event.
// Terminals send no key-up, so a held key is kept alive by auto-repeat.
const HoldWindow = 180 * time.Millisecond

var runeKeys = map[rune]sim.Key{
	'w': sim.KeyW,
	'a': sim.KeyA,
	's': sim.KeyS,
	'd': sim.KeyD,
	'q': sim.KeyQ,
	'e': sim.KeyE,
	'r': sim.KeyR,
	'c': sim.KeyC,
	'l': sim.KeyL,
	'm': sim.KeyM,
	'v': sim.KeyV,
	'h': sim.KeyH,
	' ': sim.KeySpace,
	'z': sim.KeyShift, // no bare Shift in a terminal
}

var specialKeys = map[tcell.Key]sim.Key{
	tcell.KeyUp:     sim.KeyUp,
	tcell.KeyDown:   sim.KeyDown,
	tcell.KeyLeft:   sim.KeyLeft,
	tcell.KeyRight:  sim.KeyRight,
	tcell.KeyEscape: sim.KeyEscape,
}

// TranslateKey maps a terminal key event to simulator keys. An upper
// case letter also holds Shift.
func TranslateKey(ev *tcell.EventKey) []sim.Key {
	if ev.Key() != tcell.KeyRune {
		if k, ok := specialKeys[ev.Key()]; ok {
			return []sim.Key{k}
		}
		return nil
	}
	r := ev.Rune()
	if r >= 'A' && r <= 'Z' {
		if k, ok := runeKeys[r+('a'-'A')]; ok {
			return []sim.Key{k, sim.KeyShift}
		}
		return []sim.Key{sim.KeyShift}
	}
	if k, ok := runeKeys[r]; ok {
		return []sim.Key{k}
	}
	return nil
}

// KeyState turns key press events into a held set with auto-release.
type KeyState struct {
	hold  time.Duration
	until map[sim.Key]time.Time
}

func NewKeyState(hold time.Duration) *KeyState {
	if hold <= 0 {
		hold = HoldWindow
	}
	return &KeyState{hold: hold, until: make(map[sim.Key]time.Time)}
}

func (k *KeyState) Press(key sim.Key, now time.Time) {
	k.until[key] = now.Add(k.hold)
}

// Held returns the keys still inside their hold window and forgets the rest.
func (k *KeyState) Held(now time.Time) sim.HeldSet {
	held := make(sim.HeldSet, len(k.until))
	for key, t := range k.until {
		if now.Before(t) {
			held[key] = true
		} else {
			delete(k.until, key)
		}
	}
	return held
}

func (k *KeyState) Clear() {
	clear(k.until)
}
