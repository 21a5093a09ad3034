package chime

import (
	"context"
	"encoding/binary"
	"sync"
	"testing"
	"time"

	"github.com/hammamikhairi/cocinia/internal/logger"
)

func TestSynthesizeLength(t *testing.T) {
	notes := []Note{
		{Freq: 440, Dur: 100 * time.Millisecond},
		{Freq: 0, Dur: 50 * time.Millisecond},
	}
	pcm := Synthesize(notes, 0.5)
	want := (4410 + 2205) * 2
	if len(pcm) != want {
		t.Fatalf("len = %d, want %d", len(pcm), want)
	}

	// The rest is silent.
	for i := 4410 * 2; i < len(pcm); i++ {
		if pcm[i] != 0 {
			t.Fatalf("rest not silent at byte %d", i)
		}
	}
}

func TestSynthesizeAmplitude(t *testing.T) {
	pcm := Synthesize([]Note{{Freq: 440, Dur: 50 * time.Millisecond}}, 0.5)

	var peak int16
	for i := 0; i+1 < len(pcm); i += 2 {
		v := int16(binary.LittleEndian.Uint16(pcm[i:]))
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	limit := int16(0.5*32767) + 1
	if peak == 0 || peak > limit {
		t.Fatalf("peak = %d, want (0, %d]", peak, limit)
	}

	// Fade-in starts from silence.
	if first := int16(binary.LittleEndian.Uint16(pcm[0:])); first != 0 {
		t.Fatalf("first sample = %d, want 0", first)
	}
}

type fakeText struct {
	mu     sync.Mutex
	normal int
	urgent int
}

func (f *fakeText) Notify(ctx context.Context, m string) error {
	f.mu.Lock()
	f.normal++
	f.mu.Unlock()
	return nil
}

func (f *fakeText) NotifyUrgent(ctx context.Context, m string) error {
	f.mu.Lock()
	f.urgent++
	f.mu.Unlock()
	return nil
}

type fakePlayer struct {
	mu    sync.Mutex
	sizes []int
}

func (f *fakePlayer) Play(pcm []byte) error {
	f.mu.Lock()
	f.sizes = append(f.sizes, len(pcm))
	f.mu.Unlock()
	return nil
}

func TestNotifierForwardsAndPlays(t *testing.T) {
	text := &fakeText{}
	player := &fakePlayer{}
	n := newNotifier(text, player, logger.New(logger.LevelOff, nil))
	ctx := context.Background()

	n.Notify(ctx, "Ingrediente añadido")
	n.Close()

	if text.normal != 1 {
		t.Fatalf("text notifications = %d, want 1", text.normal)
	}
	if len(player.sizes) != 1 || player.sizes[0] != len(n.info) {
		t.Fatalf("played %v, want one info cue", player.sizes)
	}

	n2 := newNotifier(text, player, logger.New(logger.LevelOff, nil))
	n2.NotifyUrgent(ctx, "Error")
	n2.Close()
	if text.urgent != 1 {
		t.Fatalf("urgent notifications = %d, want 1", text.urgent)
	}
	if last := player.sizes[len(player.sizes)-1]; last != len(n2.urgent) {
		t.Fatalf("last cue size = %d, want urgent cue %d", last, len(n2.urgent))
	}
}

func TestNotifyAfterCloseForwardsTextOnly(t *testing.T) {
	text := &fakeText{}
	player := &fakePlayer{}
	n := newNotifier(text, player, logger.New(logger.LevelOff, nil))
	n.Close()
	n.Close()

	if err := n.Notify(context.Background(), "tarde"); err != nil {
		t.Fatalf("notify after close: %v", err)
	}
	if text.normal != 1 {
		t.Fatalf("text notifications = %d, want 1", text.normal)
	}
	if len(player.sizes) != 0 {
		t.Fatalf("played %v after close, want nothing", player.sizes)
	}
}
