package camera

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "golang.org/x/image/webp"

	"github.com/hammamikhairi/cocinia/internal/domain"
	"github.com/hammamikhairi/cocinia/internal/logger"
)

// Compile-time interface check.
var _ domain.FrameSource = (*StillSource)(nil)

// StillSource replays image files from a directory as a camera stream, one
// file per frame, looping forever. Useful on machines without a webcam.
type StillSource struct {
	dir      string
	interval time.Duration
	log      *logger.Logger

	mu     sync.Mutex
	frames []*domain.Frame
	next   int
	seq    uint64
	open   bool
	last   time.Time
}

// NewStillSource creates a source over dir. interval paces Next so the
// stream behaves like a real camera; zero disables pacing.
func NewStillSource(dir string, interval time.Duration, log *logger.Logger) *StillSource {
	return &StillSource{dir: dir, interval: interval, log: log}
}

// Open decodes every png, jpeg, and webp file in the directory.
// Facing is ignored: both modes read the same directory.
func (s *StillSource) Open(ctx context.Context, facing domain.Facing) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("stills: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg", ".webp":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var frames []*domain.Frame
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		f, err := decodeFile(filepath.Join(s.dir, name))
		if err != nil {
			s.log.Warn("stills: skipping %s: %v", name, err)
			continue
		}
		frames = append(frames, f)
	}
	if len(frames) == 0 {
		return fmt.Errorf("stills: no decodable images in %s", s.dir)
	}

	s.mu.Lock()
	s.frames = frames
	s.next = 0
	s.open = true
	s.mu.Unlock()

	s.log.Info("stills: opened %s (%d images, facing=%s)", s.dir, len(frames), facing)
	return nil
}

// Next returns the next image in the rotation.
func (s *StillSource) Next(ctx context.Context) (*domain.Frame, error) {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return nil, fmt.Errorf("stills: %w: stream closed", domain.ErrCameraUnavailable)
	}
	wait := time.Duration(0)
	if s.interval > 0 && !s.last.IsZero() {
		wait = s.interval - time.Since(s.last)
	}
	s.mu.Unlock()

	if wait > 0 {
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return nil, fmt.Errorf("stills: %w: stream closed", domain.ErrCameraUnavailable)
	}
	src := s.frames[s.next]
	s.next = (s.next + 1) % len(s.frames)
	s.seq++
	s.last = time.Now()

	return &domain.Frame{
		Seq:        s.seq,
		Width:      src.Width,
		Height:     src.Height,
		Pix:        src.Pix,
		CapturedAt: s.last,
	}, nil
}

// Close releases the decoded images.
func (s *StillSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
	s.frames = nil
	return nil
}

func decodeFile(path string) (*domain.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	return frameFromImage(img), nil
}

// frameFromImage packs any image into an RGB frame.
func frameFromImage(img image.Image) *domain.Frame {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	pix := make([]byte, 0, w*h*3)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			pix = append(pix, byte(r>>8), byte(g>>8), byte(bl>>8))
		}
	}
	return &domain.Frame{Width: w, Height: h, Pix: pix}
}
