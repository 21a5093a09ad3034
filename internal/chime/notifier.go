package chime

import (
	"context"
	"sync"

	"github.com/hammamikhairi/cocinia/internal/domain"
	"github.com/hammamikhairi/cocinia/internal/logger"
)

// Compile-time interface check.
var _ domain.Notifier = (*Notifier)(nil)

// pcmPlayer is satisfied by *Player.
type pcmPlayer interface {
	Play(pcm []byte) error
}

// Notifier wraps a text notifier and plays a cue for every message. Cues
// are played on a background goroutine; if one is still playing, new cues
// are dropped rather than queued.
type Notifier struct {
	text   domain.Notifier
	player pcmPlayer
	log    *logger.Logger

	info   []byte
	urgent []byte

	mu     sync.RWMutex
	closed bool
	queue  chan []byte
	wg     sync.WaitGroup
}

// NewNotifier creates a chiming notifier around text.
func NewNotifier(text domain.Notifier, player *Player, log *logger.Logger) *Notifier {
	return newNotifier(text, player, log)
}

func newNotifier(text domain.Notifier, player pcmPlayer, log *logger.Logger) *Notifier {
	n := &Notifier{
		text:   text,
		player: player,
		log:    log,
		info:   Synthesize(InfoCue, 0.3),
		urgent: Synthesize(UrgentCue, 0.4),
		queue:  make(chan []byte, 1),
	}
	n.wg.Add(1)
	go n.run()
	return n
}

func (n *Notifier) run() {
	defer n.wg.Done()
	for pcm := range n.queue {
		if err := n.player.Play(pcm); err != nil {
			n.log.Warn("chime: playback failed: %v", err)
		}
	}
}

func (n *Notifier) enqueue(pcm []byte) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return
	}
	select {
	case n.queue <- pcm:
	default:
		n.log.Debug("chime: busy, dropping cue")
	}
}

// Notify forwards the message and plays the short info cue.
func (n *Notifier) Notify(ctx context.Context, message string) error {
	if err := n.text.Notify(ctx, message); err != nil {
		return err
	}
	n.enqueue(n.info)
	return nil
}

// NotifyUrgent forwards the message and plays the low double cue.
func (n *Notifier) NotifyUrgent(ctx context.Context, message string) error {
	if err := n.text.NotifyUrgent(ctx, message); err != nil {
		return err
	}
	n.enqueue(n.urgent)
	return nil
}

// Close stops the playback goroutine after the pending cue, if any. Later
// messages are still forwarded as text but play nothing.
func (n *Notifier) Close() {
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.queue)
	}
	n.mu.Unlock()
	n.wg.Wait()
}
