//go:build !test
// +build !test

package audio

import (
	"fmt"
	"time"

	"github.com/gopxl/beep/speaker"
)

// Player owns the speaker device while a Rotor plays.
type Player struct {
	*Rotor
}

// Start opens the default output device and loops the rotor on it.
func Start(opts Options) (*Player, error) {
	rotor, err := NewRotor(opts)
	if err != nil {
		return nil, err
	}
	if err := speaker.Init(sampleRate, sampleRate.N(50*time.Millisecond)); err != nil {
		return nil, fmt.Errorf("audio init: %w", err)
	}
	speaker.Play(rotor)
	return &Player{Rotor: rotor}, nil
}

func (p *Player) Close() {
	speaker.Clear()
	speaker.Close()
}
