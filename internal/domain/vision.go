package domain

import (
	"fmt"
	"time"
)

// Prediction is the top class for a single classified frame. It is transient
// and superseded every cycle.
type Prediction struct {
	Label      string
	Confidence float32 // softmax probability in [0,1]
	ClassIndex int
}

// LabelTable maps class indices to labels. It is immutable once built.
type LabelTable struct {
	labels []string
}

// NewLabelTable copies labels into an immutable table.
func NewLabelTable(labels []string) LabelTable {
	cp := make([]string, len(labels))
	copy(cp, labels)
	return LabelTable{labels: cp}
}

// Len returns the number of classes.
func (t LabelTable) Len() int { return len(t.labels) }

// Label returns the label for class i, or "class_<i>" when the table has no
// entry for it.
func (t LabelTable) Label(i int) string {
	if i >= 0 && i < len(t.labels) {
		return t.labels[i]
	}
	return fmt.Sprintf("class_%d", i)
}

// Frame is a packed RGB pixel buffer (3 bytes per pixel, row major).
type Frame struct {
	Seq        uint64
	Width      int
	Height     int
	Pix        []byte
	CapturedAt time.Time
}

// Facing selects which physical camera a stream is opened on.
type Facing int

const (
	FacingBack Facing = iota
	FacingFront
)

// Toggle returns the opposite facing mode.
func (f Facing) Toggle() Facing {
	if f == FacingFront {
		return FacingBack
	}
	return FacingFront
}

// String returns a human-readable facing mode.
func (f Facing) String() string {
	switch f {
	case FacingBack:
		return "back"
	case FacingFront:
		return "front"
	default:
		return "unknown"
	}
}
