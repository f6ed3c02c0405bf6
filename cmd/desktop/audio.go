package main

import (
	"github.com/hajimehoshi/ebiten/v2/audio"
)

const (
	sampleRate    = 44100
	beepFrequency = 440
	beepAmplitude = 6553 // about 20% of full scale
)

// squareWave is an endless 16-bit little-endian stereo square wave.
type squareWave struct {
	freq int
	pos  int64 // in samples
}

func (s *squareWave) Read(buf []byte) (int, error) {
	const frameSize = 4
	n := len(buf) / frameSize * frameSize
	period := int64(sampleRate / s.freq)
	amplitude := int16(beepAmplitude)

	for i := 0; i < n; i += frameSize {
		v := amplitude
		if s.pos%period >= period/2 {
			v = -amplitude
		}
		lo, hi := byte(uint16(v)), byte(uint16(v)>>8)
		buf[i], buf[i+1], buf[i+2], buf[i+3] = lo, hi, lo, hi
		s.pos++
	}
	return n, nil
}

// beeper plays a tone while the sound timer is active.
type beeper struct {
	player *audio.Player
}

func newBeeper(ctx *audio.Context, freq int) (*beeper, error) {
	player, err := ctx.NewPlayer(&squareWave{freq: freq})
	if err != nil {
		return nil, err
	}
	return &beeper{player: player}, nil
}

// Set starts or pauses the tone.
func (b *beeper) Set(active bool) {
	switch {
	case active && !b.player.IsPlaying():
		b.player.Play()
	case !active && b.player.IsPlaying():
		b.player.Pause()
	}
}
