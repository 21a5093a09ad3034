// Package camera owns the webcam stream. A Manager holds at most one open
// FrameSource at a time and guarantees the previous stream is released
// before another one is acquired.
package camera

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hammamikhairi/cocinia/internal/domain"
	"github.com/hammamikhairi/cocinia/internal/logger"
)

// State is the externally visible camera state.
type State int

const (
	StateOff State = iota
	StateOn
	StateDown // last open failed
)

func (s State) String() string {
	switch s {
	case StateOff:
		return "off"
	case StateOn:
		return "on"
	case StateDown:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Manager serialises Start/Flip/Stop against a single FrameSource.
type Manager struct {
	src domain.FrameSource
	log *logger.Logger

	mu     sync.Mutex
	state  State
	facing domain.Facing
}

// NewManager creates a stopped manager over src. The initial facing mode is
// the back camera.
func NewManager(src domain.FrameSource, log *logger.Logger) *Manager {
	return &Manager{src: src, log: log, facing: domain.FacingBack}
}

// Start opens the stream with the given facing mode. An already running
// stream is released first.
func (m *Manager) Start(ctx context.Context, facing domain.Facing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.openLocked(ctx, facing)
}

// Flip switches to the other facing mode.
func (m *Manager) Flip(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.openLocked(ctx, m.facing.Toggle())
}

// Toggle starts the camera when it is off or down and stops it when on.
func (m *Manager) Toggle(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateOn {
		return false, m.closeLocked()
	}
	return true, m.openLocked(ctx, m.facing)
}

func (m *Manager) openLocked(ctx context.Context, facing domain.Facing) error {
	// Always release the old stream, even if the new open fails.
	if err := m.closeLocked(); err != nil {
		m.log.Warn("camera: releasing previous stream: %v", err)
	}

	m.facing = facing
	if err := m.src.Open(ctx, facing); err != nil {
		m.state = StateDown
		// Some sources hold partial resources after a failed open.
		m.src.Close()
		m.log.Error("camera: open %s: %v", facing, err)
		if errors.Is(err, domain.ErrCameraUnavailable) {
			return err
		}
		return fmt.Errorf("camera: %w: %v", domain.ErrCameraUnavailable, err)
	}
	m.state = StateOn
	return nil
}

func (m *Manager) closeLocked() error {
	if m.state != StateOn {
		return nil
	}
	m.state = StateOff
	return m.src.Close()
}

// Stop releases the stream. Safe to call at any time.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	err := m.closeLocked()
	m.state = StateOff
	return err
}

// Frame returns the next frame from the open stream.
func (m *Manager) Frame(ctx context.Context) (*domain.Frame, error) {
	m.mu.Lock()
	state := m.state
	m.mu.Unlock()

	if state != StateOn {
		return nil, fmt.Errorf("camera: %w: %s", domain.ErrCameraUnavailable, state)
	}
	return m.src.Next(ctx)
}

// State returns the camera state and the current facing mode.
func (m *Manager) State() (State, domain.Facing) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.facing
}
