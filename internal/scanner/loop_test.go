package scanner

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hammamikhairi/cocinia/internal/domain"
	"github.com/hammamikhairi/cocinia/internal/logger"
)

type fakeClassifier struct {
	loadErr  error
	pred     *domain.Prediction
	err      error
	delay    time.Duration
	calls    atomic.Int32
	inFlight atomic.Int32
	maxIn    atomic.Int32
}

func (f *fakeClassifier) LoadModel(ctx context.Context) error { return f.loadErr }

func (f *fakeClassifier) Classify(ctx context.Context, frame *domain.Frame) (*domain.Prediction, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxIn.Load()
		if n <= m || f.maxIn.CompareAndSwap(m, n) {
			break
		}
	}
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.pred, f.err
}

type fakeFrames struct {
	err   atomic.Value // error
	calls atomic.Int32
}

func (f *fakeFrames) Frame(ctx context.Context) (*domain.Frame, error) {
	f.calls.Add(1)
	if v := f.err.Load(); v != nil {
		if err, ok := v.(error); ok && err != nil {
			return nil, err
		}
	}
	return &domain.Frame{Seq: uint64(f.calls.Load()), Width: 1, Height: 1, Pix: []byte{1, 2, 3}}, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	urgent []string
}

func (n *recordingNotifier) Notify(ctx context.Context, msg string) error { return nil }

func (n *recordingNotifier) NotifyUrgent(ctx context.Context, msg string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.urgent = append(n.urgent, msg)
	return nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestStartFailsWhenModelDoesNotLoad(t *testing.T) {
	cls := &fakeClassifier{loadErr: domain.ErrModelLoad}
	frames := &fakeFrames{}
	n := &recordingNotifier{}
	l := New(cls, frames, logger.New(logger.LevelOff, nil), WithFPS(1000), WithNotifier(n))

	err := l.Start(context.Background())
	if !errors.Is(err, domain.ErrModelLoad) {
		t.Fatalf("expected ErrModelLoad, got %v", err)
	}
	if l.Running() {
		t.Fatal("loop should not run after load failure")
	}
	time.Sleep(20 * time.Millisecond)
	if frames.calls.Load() != 0 {
		t.Fatal("frames requested although the loop never started")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.urgent) != 1 {
		t.Fatalf("urgent notifications = %d, want 1", len(n.urgent))
	}
}

func TestLoopPublishesPredictions(t *testing.T) {
	want := domain.Prediction{Label: "banana", Confidence: 0.9, ClassIndex: 0}
	cls := &fakeClassifier{pred: &want}

	var got atomic.Int32
	l := New(cls, &fakeFrames{}, logger.New(logger.LevelOff, nil),
		WithFPS(1000),
		WithOnPrediction(func(p domain.Prediction) {
			if p.Label == "banana" {
				got.Add(1)
			}
		}),
	)
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer l.Stop()

	waitFor(t, func() bool { return got.Load() >= 3 })

	p, ok := l.Latest()
	if !ok || p != want {
		t.Fatalf("Latest() = %+v, %v", p, ok)
	}

	l.Stop()
	l.ClearLatest()
	if _, ok := l.Latest(); ok {
		t.Fatal("ClearLatest did not clear")
	}
}

func TestLoopNeverOverlapsClassifications(t *testing.T) {
	cls := &fakeClassifier{delay: 10 * time.Millisecond}
	l := New(cls, &fakeFrames{}, logger.New(logger.LevelOff, nil), WithFPS(1000))
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, func() bool { return cls.calls.Load() >= 3 })
	l.Stop()

	if m := cls.maxIn.Load(); m != 1 {
		t.Fatalf("max concurrent classifications = %d, want 1", m)
	}
	after := cls.calls.Load()
	time.Sleep(30 * time.Millisecond)
	if cls.calls.Load() != after {
		t.Fatal("classifier called after Stop returned")
	}
}

func TestInferenceErrorsReachHook(t *testing.T) {
	cls := &fakeClassifier{err: domain.ErrInference}
	var errs atomic.Int32
	l := New(cls, &fakeFrames{}, logger.New(logger.LevelOff, nil),
		WithFPS(1000),
		WithOnError(func(err error) {
			if errors.Is(err, domain.ErrInference) {
				errs.Add(1)
			}
		}),
	)
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, func() bool { return errs.Load() >= 2 })
	l.Stop()
}

func TestCameraOutageLoggedOnce(t *testing.T) {
	var buf syncBuffer
	log := logger.New(logger.LevelNormal, &buf)

	frames := &fakeFrames{}
	frames.err.Store(error(domain.ErrCameraUnavailable))
	cls := &fakeClassifier{}
	l := New(cls, frames, log, WithFPS(1000))
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	waitFor(t, func() bool { return frames.calls.Load() >= 10 })
	l.Stop()

	if n := strings.Count(buf.String(), "no frames"); n != 1 {
		t.Fatalf("outage logged %d times, want 1\n%s", n, buf.String())
	}
	if cls.calls.Load() != 0 {
		t.Fatal("classifier called without frames")
	}
}

// syncBuffer is a bytes.Buffer safe for the loop goroutine and the test.
func TestParentCancelStopsLoop(t *testing.T) {
	frames := &fakeFrames{}
	l := New(&fakeClassifier{}, frames, logger.New(logger.LevelOff, nil), WithFPS(1000))

	ctx, cancel := context.WithCancel(context.Background())
	if err := l.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	cancel()
	waitFor(t, func() bool { return !l.Running() })

	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if !l.Running() {
		t.Fatal("loop should run again after restart")
	}
	before := frames.calls.Load()
	waitFor(t, func() bool { return frames.calls.Load() > before })
	l.Stop()
	if l.Running() {
		t.Fatal("loop still running after Stop")
	}
}

func TestOnClassifiedFiresBelowThreshold(t *testing.T) {
	var classified, predicted atomic.Int32
	l := New(&fakeClassifier{}, &fakeFrames{}, logger.New(logger.LevelOff, nil),
		WithFPS(1000),
		WithOnClassified(func() { classified.Add(1) }),
		WithOnPrediction(func(domain.Prediction) { predicted.Add(1) }),
	)
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, func() bool { return classified.Load() >= 3 })
	l.Stop()

	if predicted.Load() != 0 {
		t.Fatalf("predictions = %d, want 0 for below-threshold frames", predicted.Load())
	}
	if _, ok := l.Latest(); ok {
		t.Fatal("no prediction should be published")
	}
}

func TestOnClassifiedSkipsErrors(t *testing.T) {
	var classified, failed atomic.Int32
	l := New(&fakeClassifier{err: domain.ErrInference}, &fakeFrames{}, logger.New(logger.LevelOff, nil),
		WithFPS(1000),
		WithOnClassified(func() { classified.Add(1) }),
		WithOnError(func(error) { failed.Add(1) }),
	)
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, func() bool { return failed.Load() >= 3 })
	l.Stop()

	if classified.Load() != 0 {
		t.Fatalf("classified hook ran %d times on errors", classified.Load())
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
