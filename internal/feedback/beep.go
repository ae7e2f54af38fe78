// Package feedback plays short tones for hotkey actions.
package feedback

import (
	"os/exec"
	"runtime"

	"github.com/gen2brain/beeep"
)

type Tone string

const (
	ToneStart   Tone = "start"
	ToneStop    Tone = "stop"
	ToneCapture Tone = "capture"
)

type Player struct {
	enabled bool
	beep    func(freq float64, duration int) error
}

func NewPlayer(enabled bool) *Player {
	return &Player{enabled: enabled, beep: beeep.Beep}
}

// Play sounds tone. Failures fall back to the system beep on macOS and are
// otherwise ignored.
func (p *Player) Play(tone Tone) {
	if p == nil || !p.enabled {
		return
	}

	freq, duration, fallback := beeep.DefaultFreq, beeep.DefaultDuration/2, "beep 1"
	switch tone {
	case ToneStop:
		freq, duration, fallback = beeep.DefaultFreq*2, beeep.DefaultDuration/3, "beep 2"
	case ToneCapture:
		freq, duration = beeep.DefaultFreq*1.5, beeep.DefaultDuration/4
	}

	if err := p.beep(freq, duration); err != nil && runtime.GOOS == "darwin" {
		exec.Command("osascript", "-e", fallback).Run()
	}
}
