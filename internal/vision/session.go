// Package vision runs the on-device image classifier: it owns the model
// session and label table, preprocesses frames into planar normalised
// tensors, and decodes logits into a confidence-gated prediction.
package vision

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hammamikhairi/cocinia/internal/domain"
	"github.com/hammamikhairi/cocinia/internal/logger"
)

// Compile-time interface check.
var _ domain.Classifier = (*Session)(nil)

// ImageNet normalisation constants.
var (
	ImageNetMean = [3]float32{0.485, 0.456, 0.406}
	ImageNetStd  = [3]float32{0.229, 0.224, 0.225}
)

// DefaultMinConfidence is the probability below which no prediction is
// reported.
const DefaultMinConfidence = 0.10

// Config describes the model artifact and its preprocessing.
type Config struct {
	ModelPath  string
	LabelsPath string
	// ORTLibPath is the onnxruntime shared library. If empty, the
	// ONNXRUNTIME_SHARED_LIBRARY_PATH environment variable is used.
	ORTLibPath string

	Width         int
	Height        int
	Mean          [3]float32
	Std           [3]float32
	MinConfidence float32
	// Interpolation used when downsampling frames: "bilinear" (default),
	// "nearest", "catmullrom", or "approx".
	Interpolation string
}

// DefaultConfig returns the settings the bundled model was trained with.
func DefaultConfig() Config {
	return Config{
		ModelPath:     "models/model.onnx",
		LabelsPath:    "models/classes.json",
		Width:         224,
		Height:        224,
		Mean:          ImageNetMean,
		Std:           ImageNetStd,
		MinConfidence: DefaultMinConfidence,
		Interpolation: "bilinear",
	}
}

// runnerFactory builds a model runner for a label table of the given size.
type runnerFactory func(cfg Config, classes int, log *logger.Logger) (modelRunner, error)

// Session is the process-wide classifier. It is created once, loads the
// model at most once, and is safe for concurrent use.
type Session struct {
	cfg Config
	log *logger.Logger

	loadOnce  sync.Once
	loadErr   error
	ready     atomic.Bool
	newRunner runnerFactory
	loadLabel func(path string) ([]string, error)

	mu     sync.Mutex // serialises runner access
	runner modelRunner
	labels domain.LabelTable
}

// NewSession creates an unloaded session. Call LoadModel before Classify.
func NewSession(cfg Config, log *logger.Logger) *Session {
	def := DefaultConfig()
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = def.Width, def.Height
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = def.MinConfidence
	}
	if cfg.Std == ([3]float32{}) {
		cfg.Mean, cfg.Std = def.Mean, def.Std
	}
	return &Session{
		cfg:       cfg,
		log:       log,
		newRunner: newORTRunner,
		loadLabel: LoadLabels,
	}
}

// LoadModel loads the label table and the model. It is memoized: callers
// arriving while a load is in progress wait for it, and later calls return
// the first outcome without reinitialising anything.
func (s *Session) LoadModel(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.loadOnce.Do(func() {
		s.loadErr = s.load()
		if s.loadErr == nil {
			s.ready.Store(true)
		}
	})
	return s.loadErr
}

func (s *Session) load() error {
	labels, err := s.loadLabel(s.cfg.LabelsPath)
	if err != nil {
		s.log.Error("loading labels: %v", err)
		return fmt.Errorf("vision: labels: %w: %v", domain.ErrModelLoad, err)
	}

	runner, err := s.newRunner(s.cfg, len(labels), s.log)
	if err != nil {
		s.log.Error("loading model: %v", err)
		return fmt.Errorf("vision: model: %w: %v", domain.ErrModelLoad, err)
	}

	s.mu.Lock()
	s.runner = runner
	s.labels = domain.NewLabelTable(labels)
	s.mu.Unlock()

	s.log.Info("model & labels loaded, %d classes", len(labels))
	return nil
}

// Ready reports whether LoadModel has completed successfully.
func (s *Session) Ready() bool { return s.ready.Load() }

// Labels returns the loaded label table (empty before LoadModel).
func (s *Session) Labels() domain.LabelTable {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.labels
}

// Classify runs the model on a frame and returns the top class, or nil when
// its probability is below the configured minimum. Errors are wrapped in
// domain.ErrInference and are never swallowed.
func (s *Session) Classify(ctx context.Context, frame *domain.Frame) (*domain.Prediction, error) {
	if !s.ready.Load() {
		return nil, fmt.Errorf("vision: %w: model not loaded", domain.ErrInference)
	}
	if frame == nil {
		return nil, fmt.Errorf("vision: %w: nil frame", domain.ErrInference)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pix, err := Downsample(frame, s.cfg.Width, s.cfg.Height, s.cfg.Interpolation)
	if err != nil {
		return nil, fmt.Errorf("vision: %w: %v", domain.ErrInference, err)
	}
	input, err := Preprocess(pix, s.cfg.Width, s.cfg.Height, s.cfg.Mean, s.cfg.Std)
	if err != nil {
		return nil, fmt.Errorf("vision: %w: %v", domain.ErrInference, err)
	}

	s.mu.Lock()
	if s.runner == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("vision: %w: session closed", domain.ErrInference)
	}
	logits, err := s.runner.Run(input)
	labels := s.labels
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("vision: %w: %v", domain.ErrInference, err)
	}

	idx, prob := ArgmaxSoftmax(logits)
	if idx < 0 {
		return nil, fmt.Errorf("vision: %w: model produced no logits", domain.ErrInference)
	}
	if prob < s.cfg.MinConfidence {
		s.log.Debug("frame %d: top class %d below threshold (%.3f)", frame.Seq, idx, prob)
		return nil, nil
	}

	return &domain.Prediction{
		Label:      labels.Label(idx),
		Confidence: prob,
		ClassIndex: idx,
	}, nil
}

// Close releases the model. The session cannot be reloaded afterwards.
func (s *Session) Close() error {
	s.ready.Store(false)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runner == nil {
		return nil
	}
	err := s.runner.Close()
	s.runner = nil
	return err
}
