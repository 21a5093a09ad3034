package vision

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/hammamikhairi/cocinia/internal/domain"
	"github.com/hammamikhairi/cocinia/internal/logger"
)

// fakeRunner returns fixed logits and records calls.
type fakeRunner struct {
	logits []float32
	err    error
	calls  atomic.Int32
	closed atomic.Bool
	inLen  atomic.Int32
}

func (f *fakeRunner) Run(input []float32) ([]float32, error) {
	f.calls.Add(1)
	f.inLen.Store(int32(len(input)))
	if f.err != nil {
		return nil, f.err
	}
	return f.logits, nil
}

func (f *fakeRunner) Close() error {
	f.closed.Store(true)
	return nil
}

func newTestSession(t *testing.T, runner *fakeRunner, labels []string) (*Session, *atomic.Int32) {
	t.Helper()
	log := logger.New(logger.LevelOff, nil)
	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 4, 4
	s := NewSession(cfg, log)

	var builds atomic.Int32
	s.newRunner = func(cfg Config, classes int, log *logger.Logger) (modelRunner, error) {
		builds.Add(1)
		return runner, nil
	}
	s.loadLabel = func(string) ([]string, error) { return labels, nil }
	return s, &builds
}

func solidFrame(w, h int) *domain.Frame {
	pix := make([]byte, w*h*3)
	for i := range pix {
		pix[i] = 128
	}
	return &domain.Frame{Seq: 1, Width: w, Height: h, Pix: pix}
}

func TestClassifyBeforeLoad(t *testing.T) {
	s, _ := newTestSession(t, &fakeRunner{logits: []float32{1, 2}}, []string{"banana", "huevo"})

	_, err := s.Classify(context.Background(), solidFrame(4, 4))
	if !errors.Is(err, domain.ErrInference) {
		t.Fatalf("expected ErrInference, got %v", err)
	}
}

func TestLoadModelIsMemoized(t *testing.T) {
	runner := &fakeRunner{logits: []float32{1, 2}}
	s, builds := newTestSession(t, runner, []string{"banana", "huevo"})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.LoadModel(ctx); err != nil {
				t.Errorf("load: %v", err)
			}
		}()
	}
	wg.Wait()

	if err := s.LoadModel(ctx); err != nil {
		t.Fatalf("second load: %v", err)
	}
	if got := builds.Load(); got != 1 {
		t.Fatalf("runner built %d times, want 1", got)
	}
	if !s.Ready() {
		t.Fatal("expected session to be ready")
	}
	if s.Labels().Len() != 2 {
		t.Fatalf("labels = %d, want 2", s.Labels().Len())
	}
}

func TestLoadModelFailureIsSticky(t *testing.T) {
	s, builds := newTestSession(t, &fakeRunner{}, nil)
	s.loadLabel = func(string) ([]string, error) { return nil, errors.New("404") }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		err := s.LoadModel(ctx)
		if !errors.Is(err, domain.ErrModelLoad) {
			t.Fatalf("attempt %d: expected ErrModelLoad, got %v", i, err)
		}
	}
	if builds.Load() != 0 {
		t.Fatal("runner should not be built when labels fail")
	}
	if s.Ready() {
		t.Fatal("session should not be ready")
	}

	s2, _ := newTestSession(t, &fakeRunner{}, []string{"a"})
	s2.newRunner = func(Config, int, *logger.Logger) (modelRunner, error) {
		return nil, errors.New("bad model")
	}
	if err := s2.LoadModel(ctx); !errors.Is(err, domain.ErrModelLoad) {
		t.Fatalf("expected ErrModelLoad for runner failure, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	labels := []string{"banana", "huevo", "harina"}

	tests := []struct {
		name      string
		logits    []float32
		frame     *domain.Frame
		wantNil   bool
		wantLabel string
		wantIdx   int
	}{
		{"confident", []float32{0, 8, 1}, solidFrame(4, 4), false, "huevo", 1},
		{"downsampled frame", []float32{5, 0, 0}, solidFrame(16, 12), false, "banana", 0},
		{"uniform stays above threshold", []float32{1, 1, 1}, solidFrame(4, 4), false, "banana", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{logits: tt.logits}
			s, _ := newTestSession(t, runner, labels)
			if err := s.LoadModel(context.Background()); err != nil {
				t.Fatalf("load: %v", err)
			}

			pred, err := s.Classify(context.Background(), tt.frame)
			if err != nil {
				t.Fatalf("classify: %v", err)
			}
			if tt.wantNil {
				if pred != nil {
					t.Fatalf("expected nil prediction, got %+v", pred)
				}
				return
			}
			if pred == nil {
				t.Fatal("expected prediction, got nil")
			}
			if pred.Label != tt.wantLabel || pred.ClassIndex != tt.wantIdx {
				t.Fatalf("got %s/%d, want %s/%d", pred.Label, pred.ClassIndex, tt.wantLabel, tt.wantIdx)
			}
			if got := runner.inLen.Load(); got != 3*4*4 {
				t.Fatalf("runner input len = %d, want %d", got, 3*4*4)
			}
		})
	}
}

func TestClassifyBelowThreshold(t *testing.T) {
	// 20 equal logits: top probability is 0.05, below the 0.10 gate.
	logits := make([]float32, 20)
	labels := make([]string, 20)
	for i := range labels {
		labels[i] = "item"
	}
	s, _ := newTestSession(t, &fakeRunner{logits: logits}, labels)
	if err := s.LoadModel(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	pred, err := s.Classify(context.Background(), solidFrame(4, 4))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if pred != nil {
		t.Fatalf("expected nil prediction below threshold, got %+v", pred)
	}
}

func TestClassifyPropagatesRunnerError(t *testing.T) {
	runner := &fakeRunner{err: errors.New("ort exploded")}
	s, _ := newTestSession(t, runner, []string{"banana"})
	if err := s.LoadModel(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	_, err := s.Classify(context.Background(), solidFrame(4, 4))
	if !errors.Is(err, domain.ErrInference) {
		t.Fatalf("expected ErrInference, got %v", err)
	}
}

func TestClassifyUnknownClassFallsBackToIndexName(t *testing.T) {
	s, _ := newTestSession(t, &fakeRunner{logits: []float32{0, 0, 9}}, []string{"banana", "huevo"})
	if err := s.LoadModel(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	pred, err := s.Classify(context.Background(), solidFrame(4, 4))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if pred.Label != "class_2" {
		t.Fatalf("label = %q, want class_2", pred.Label)
	}
}

func TestCloseReleasesRunner(t *testing.T) {
	runner := &fakeRunner{logits: []float32{1}}
	s, _ := newTestSession(t, runner, []string{"banana"})
	if err := s.LoadModel(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !runner.closed.Load() {
		t.Fatal("runner not closed")
	}
	if _, err := s.Classify(context.Background(), solidFrame(4, 4)); !errors.Is(err, domain.ErrInference) {
		t.Fatalf("expected ErrInference after close, got %v", err)
	}
}
