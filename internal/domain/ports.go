package domain

import "context"

// Classifier turns a frame into the single most likely label.
// Classify returns a nil Prediction when the top class is below the
// confidence threshold.
type Classifier interface {
	LoadModel(ctx context.Context) error
	Classify(ctx context.Context, frame *Frame) (*Prediction, error)
}

// FrameSource is a camera stream. Open acquires the device, Close releases
// it. Next blocks until a frame is available or ctx is done.
type FrameSource interface {
	Open(ctx context.Context, facing Facing) error
	Next(ctx context.Context) (*Frame, error)
	Close() error
}

// RecipeGenerator turns an ingredient list into raw generated recipe text.
type RecipeGenerator interface {
	Generate(ctx context.Context, ingredients []Ingredient) (string, error)
}

// IntentParser converts raw user input into structured intents.
type IntentParser interface {
	Parse(ctx context.Context, input string) (*Intent, error)
}

// Notifier delivers short user-facing messages. Implementations can write
// to the terminal, play a sound, or both.
type Notifier interface {
	Notify(ctx context.Context, message string) error
	NotifyUrgent(ctx context.Context, message string) error
}
