// Package scanner runs the periodic capture → classify cycle. One goroutine
// owns the cycle, so at most one classification is in flight; ticks that
// arrive while a frame is being classified are dropped, not queued.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hammamikhairi/cocinia/internal/domain"
	"github.com/hammamikhairi/cocinia/internal/logger"
)

// FrameProvider supplies the next camera frame. *camera.Manager satisfies it.
type FrameProvider interface {
	Frame(ctx context.Context) (*domain.Frame, error)
}

// Option configures the loop.
type Option func(*Loop)

// WithFPS sets the tick rate. Values <= 0 are ignored.
func WithFPS(fps int) Option {
	return func(l *Loop) {
		if fps > 0 {
			l.interval = time.Second / time.Duration(fps)
		}
	}
}

// WithOnPrediction registers a callback for every non-nil prediction.
func WithOnPrediction(fn func(domain.Prediction)) Option {
	return func(l *Loop) {
		l.onPrediction = fn
	}
}

// WithOnClassified registers a callback run after every classification
// that returned without error, whether or not it cleared the threshold.
func WithOnClassified(fn func()) Option {
	return func(l *Loop) {
		l.onClassified = fn
	}
}

// WithOnError registers a callback for inference errors.
func WithOnError(fn func(error)) Option {
	return func(l *Loop) {
		l.onError = fn
	}
}

// WithNotifier reports model load failures to the user.
func WithNotifier(n domain.Notifier) Option {
	return func(l *Loop) {
		l.notifier = n
	}
}

// Loop drives the classifier from a frame provider.
type Loop struct {
	classifier domain.Classifier
	frames     FrameProvider
	log        *logger.Logger
	interval   time.Duration
	notifier   domain.Notifier

	onPrediction func(domain.Prediction)
	onClassified func()
	onError      func(error)

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	latest  *domain.Prediction
}

// New creates a stopped loop ticking at 30 frames per second by default.
func New(classifier domain.Classifier, frames FrameProvider, log *logger.Logger, opts ...Option) *Loop {
	l := &Loop{
		classifier: classifier,
		frames:     frames,
		log:        log,
		interval:   time.Second / 30,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start loads the model and begins the loop in the background. If the model
// cannot be loaded the loop is not started and the error is returned.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		l.log.Warn("scanner already running")
		return nil
	}
	l.mu.Unlock()

	if err := l.classifier.LoadModel(ctx); err != nil {
		if l.notifier != nil {
			l.notifier.NotifyUrgent(ctx, "Error de modelo: no se pudo cargar el modelo.")
		}
		return fmt.Errorf("scanner: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return nil
	}
	childCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})
	l.running = true

	go l.loop(childCtx, l.done)

	l.log.Info("scanner started (interval=%s)", l.interval)
	return nil
}

// Stop cancels the loop and waits for the in-flight cycle to finish.
func (l *Loop) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.cancel()
	done := l.done
	l.running = false
	l.mu.Unlock()

	<-done
	l.log.Info("scanner stopped")
}

// Running reports whether the loop goroutine is active.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Latest returns the most recent non-nil prediction, if any.
func (l *Loop) Latest() (domain.Prediction, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.latest == nil {
		return domain.Prediction{}, false
	}
	return *l.latest, true
}

// ClearLatest forgets the current prediction, e.g. after it was accepted.
func (l *Loop) ClearLatest() {
	l.mu.Lock()
	l.latest = nil
	l.mu.Unlock()
}

func (l *Loop) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer l.exited(ctx, done)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	cameraDown := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cameraDown = l.cycle(ctx, cameraDown)
		}
	}
}

// exited marks the loop stopped when it ends on its own, e.g. because the
// context passed to Start was cancelled. A newer Start is left alone.
func (l *Loop) exited(ctx context.Context, done chan struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running && l.done == done {
		l.running = false
		l.cancel()
		l.log.Info("scanner stopped: %v", ctx.Err())
	}
}

// cycle runs one capture and classification. It returns the camera outage
// state so failures are logged once per outage.
func (l *Loop) cycle(ctx context.Context, cameraDown bool) bool {
	frame, err := l.frames.Frame(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return cameraDown
		}
		if !cameraDown {
			l.log.Warn("scanner: no frames: %v", err)
		}
		return true
	}
	if cameraDown {
		l.log.Info("scanner: frames resumed")
	}

	pred, err := l.classifier.Classify(ctx, frame)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return false
		}
		l.log.Debug("scanner: frame %d: %v", frame.Seq, err)
		if l.onError != nil {
			l.onError(err)
		}
		return false
	}
	if l.onClassified != nil {
		l.onClassified()
	}
	if pred == nil {
		return false
	}

	l.mu.Lock()
	p := *pred
	l.latest = &p
	l.mu.Unlock()

	if l.onPrediction != nil {
		l.onPrediction(p)
	}
	return false
}
