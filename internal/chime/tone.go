// Package chime plays short synthesized tones alongside notifications.
package chime

import (
	"encoding/binary"
	"math"
	"time"
)

// Audio format shared by synthesis and playback.
const (
	SampleRate   = 44100
	ChannelCount = 1
)

// fade is the attack/release ramp applied to every tone to avoid clicks.
const fade = 5 * time.Millisecond

// Note is one tone in a cue. A zero Freq is a rest.
type Note struct {
	Freq float64
	Dur  time.Duration
}

// Cues played for each notification kind.
var (
	InfoCue   = []Note{{Freq: 880, Dur: 90 * time.Millisecond}}
	UrgentCue = []Note{
		{Freq: 330, Dur: 120 * time.Millisecond},
		{Freq: 0, Dur: 60 * time.Millisecond},
		{Freq: 330, Dur: 120 * time.Millisecond},
	}
)

// Synthesize renders notes as signed 16-bit little-endian mono PCM.
func Synthesize(notes []Note, volume float64) []byte {
	var out []byte
	for _, n := range notes {
		out = append(out, tone(n, volume)...)
	}
	return out
}

func tone(n Note, volume float64) []byte {
	samples := int(n.Dur.Seconds() * SampleRate)
	ramp := int(fade.Seconds() * SampleRate)
	buf := make([]byte, samples*2)
	if n.Freq <= 0 {
		return buf
	}
	for i := 0; i < samples; i++ {
		env := 1.0
		if i < ramp {
			env = float64(i) / float64(ramp)
		} else if samples-i < ramp {
			env = float64(samples-i) / float64(ramp)
		}
		v := math.Sin(2*math.Pi*n.Freq*float64(i)/SampleRate) * volume * env
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(int16(v*math.MaxInt16)))
	}
	return buf
}
