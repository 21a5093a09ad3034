package camera

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/hammamikhairi/cocinia/internal/domain"
	"github.com/hammamikhairi/cocinia/internal/logger"
)

// Compile-time interface check.
var _ domain.FrameSource = (*GstSource)(nil)

// GstConfig selects the V4L2 devices and capture format.
type GstConfig struct {
	BackDevice  string // e.g. "/dev/video0"
	FrontDevice string // e.g. "/dev/video1"
	Width       int
	Height      int
	FPS         int
	OpenTimeout time.Duration
}

func (c *GstConfig) defaults() {
	if c.BackDevice == "" {
		c.BackDevice = "/dev/video0"
	}
	if c.FrontDevice == "" {
		c.FrontDevice = c.BackDevice
	}
	if c.Width <= 0 || c.Height <= 0 {
		c.Width, c.Height = 224, 224
	}
	if c.FPS <= 0 {
		c.FPS = 30
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = 5 * time.Second
	}
}

// GstSource captures RGB frames from a webcam through GStreamer:
//
//	v4l2src → videoconvert → videoscale → videorate → capsfilter(RGB) → appsink
//
// The appsink keeps one buffer and drops the rest; the source keeps only the
// newest frame, so a slow consumer never builds a backlog.
type GstSource struct {
	cfg GstConfig
	log *logger.Logger

	mu       sync.Mutex
	pipeline *gst.Pipeline
	latest   chan *domain.Frame
	done     chan struct{}
	failed   atomic.Bool
	seq      atomic.Uint64
	wg       sync.WaitGroup
}

// NewGstSource creates a closed GStreamer source.
func NewGstSource(cfg GstConfig, log *logger.Logger) *GstSource {
	cfg.defaults()
	return &GstSource{cfg: cfg, log: log}
}

func (s *GstSource) device(facing domain.Facing) string {
	if facing == domain.FacingFront {
		return s.cfg.FrontDevice
	}
	return s.cfg.BackDevice
}

func (s *GstSource) launchString(device string) string {
	return fmt.Sprintf(
		"v4l2src device=%s ! videoconvert ! videoscale ! videorate ! "+
			"video/x-raw,format=RGB,width=%d,height=%d,framerate=%d/1 ! "+
			"appsink name=sink sync=false max-buffers=1 drop=true",
		device, s.cfg.Width, s.cfg.Height, s.cfg.FPS)
}

// Open builds and starts the pipeline for the given facing mode. It returns
// once the pipeline is playing, or with an error if the device is missing,
// busy, or not permitted.
func (s *GstSource) Open(ctx context.Context, facing domain.Facing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pipeline != nil {
		return fmt.Errorf("gst: stream already open")
	}

	gst.Init(nil)

	device := s.device(facing)
	pipeline, err := gst.NewPipelineFromString(s.launchString(device))
	if err != nil {
		return fmt.Errorf("gst: create pipeline: %w", err)
	}

	elem, err := pipeline.GetElementByName("sink")
	if err != nil {
		pipeline.SetState(gst.StateNull)
		return fmt.Errorf("gst: find appsink: %w", err)
	}
	sink := app.SinkFromElement(elem)

	latest := make(chan *domain.Frame, 1)
	done := make(chan struct{})
	sink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: func(sink *app.Sink) gst.FlowReturn {
			return s.onSample(sink, latest, done)
		},
	})

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		pipeline.SetState(gst.StateNull)
		return fmt.Errorf("gst: start %s: %w", device, err)
	}
	if err := waitPlaying(ctx, pipeline, s.cfg.OpenTimeout); err != nil {
		pipeline.SetState(gst.StateNull)
		return fmt.Errorf("gst: open %s: %w", device, err)
	}

	s.pipeline = pipeline
	s.latest = latest
	s.done = done
	s.failed.Store(false)

	s.wg.Add(1)
	go s.watchBus(pipeline, done)

	s.log.Info("gst: camera %s open (facing=%s, %dx%d@%d)", device, facing, s.cfg.Width, s.cfg.Height, s.cfg.FPS)
	return nil
}

// waitPlaying pops bus messages until the pipeline reaches PLAYING or
// reports an error.
func waitPlaying(ctx context.Context, pipeline *gst.Pipeline, timeout time.Duration) error {
	bus := pipeline.GetPipelineBus()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := bus.TimedPop(100 * time.Millisecond)
		if msg == nil {
			continue
		}
		switch msg.Type() {
		case gst.MessageError:
			return msg.ParseError()
		case gst.MessageStateChanged:
			if msg.Source() != pipeline.GetName() {
				continue
			}
			if _, newState := msg.ParseStateChanged(); newState == gst.StatePlaying {
				return nil
			}
		}
	}
	return fmt.Errorf("pipeline did not reach PLAYING within %s", timeout)
}

// onSample copies the newest buffer into the single-slot mailbox, replacing
// any frame the consumer has not taken yet.
func (s *GstSource) onSample(sink *app.Sink, latest chan *domain.Frame, done chan struct{}) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		return gst.FlowOK
	}
	buffer := sample.GetBuffer()
	if buffer == nil {
		return gst.FlowOK
	}

	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	if len(data) == 0 {
		buffer.Unmap()
		return gst.FlowOK
	}
	pix := packRows(data, s.cfg.Width, s.cfg.Height)
	buffer.Unmap()

	frame := &domain.Frame{
		Seq:        s.seq.Add(1),
		Width:      s.cfg.Width,
		Height:     s.cfg.Height,
		Pix:        pix,
		CapturedAt: time.Now(),
	}

	select {
	case <-done:
		return gst.FlowEOS
	default:
	}
	select {
	case <-latest:
	default:
	}
	select {
	case latest <- frame:
	default:
	}
	return gst.FlowOK
}

// packRows copies RGB rows out of a GStreamer buffer, dropping the 4-byte
// row alignment padding when present.
func packRows(data []byte, width, height int) []byte {
	row := width * 3
	stride := (row + 3) &^ 3
	out := make([]byte, row*height)
	if stride == row || len(data) < stride*height {
		copy(out, data)
		return out
	}
	for y := 0; y < height; y++ {
		copy(out[y*row:(y+1)*row], data[y*stride:y*stride+row])
	}
	return out
}

// watchBus marks the stream failed when the pipeline errors or ends.
func (s *GstSource) watchBus(pipeline *gst.Pipeline, done chan struct{}) {
	defer s.wg.Done()
	bus := pipeline.GetPipelineBus()
	for {
		select {
		case <-done:
			return
		default:
		}
		msg := bus.TimedPop(200 * time.Millisecond)
		if msg == nil {
			continue
		}
		switch msg.Type() {
		case gst.MessageError:
			s.log.Error("gst: pipeline error: %v", msg.ParseError())
			s.failed.Store(true)
			return
		case gst.MessageEOS:
			s.log.Warn("gst: end of stream")
			s.failed.Store(true)
			return
		}
	}
}

// Next blocks until a new frame arrives.
func (s *GstSource) Next(ctx context.Context) (*domain.Frame, error) {
	s.mu.Lock()
	latest, done := s.latest, s.done
	s.mu.Unlock()

	if latest == nil {
		return nil, fmt.Errorf("gst: %w: stream closed", domain.ErrCameraUnavailable)
	}
	if s.failed.Load() {
		return nil, fmt.Errorf("gst: %w: pipeline failed", domain.ErrCameraUnavailable)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-done:
		return nil, fmt.Errorf("gst: %w: stream closed", domain.ErrCameraUnavailable)
	case f := <-latest:
		return f, nil
	}
}

// Close stops the pipeline and releases the device. Safe to call when the
// stream is not open.
func (s *GstSource) Close() error {
	s.mu.Lock()
	pipeline, done := s.pipeline, s.done
	s.pipeline, s.latest, s.done = nil, nil, nil
	s.mu.Unlock()

	if pipeline == nil {
		return nil
	}
	close(done)
	s.wg.Wait()

	if err := pipeline.SetState(gst.StateNull); err != nil {
		return fmt.Errorf("gst: stop pipeline: %w", err)
	}
	s.log.Info("gst: camera released")
	return nil
}
