package chime

import (
	"bytes"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/hammamikhairi/cocinia/internal/logger"
)

// Player plays raw PCM through the system audio device via oto.
type Player struct {
	ctx *oto.Context
	log *logger.Logger
}

// NewPlayer initialises the audio context. Returns an error if no audio
// device is available.
func NewPlayer(log *logger.Logger) (*Player, error) {
	op := &oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: ChannelCount,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-readyChan

	log.Debug("chime: audio initialized (rate=%d, channels=%d)", SampleRate, ChannelCount)
	return &Player{ctx: ctx, log: log}, nil
}

// Play plays pcm synchronously.
func (p *Player) Play(pcm []byte) error {
	player := p.ctx.NewPlayer(bytes.NewReader(pcm))
	player.Play()
	for player.IsPlaying() {
		time.Sleep(5 * time.Millisecond)
	}
	return player.Close()
}
