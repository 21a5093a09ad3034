package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used across layers. Components wrap these with context;
// callers match with errors.Is.
var (
	ErrModelLoad           = errors.New("model load failed")
	ErrInference           = errors.New("inference failed")
	ErrCameraUnavailable   = errors.New("camera unavailable")
	ErrDuplicateIngredient = errors.New("duplicate ingredient")
	ErrNotCountable        = errors.New("ingredient is not countable")
	ErrEndpointUnreachable = errors.New("recipe endpoint unreachable")
	ErrEndpointError       = errors.New("recipe endpoint error")
	ErrMalformedResponse   = errors.New("malformed recipe response")

	ErrNotFound           = errors.New("not found")
	ErrNoIngredients      = errors.New("no ingredients")
	ErrGenerationInFlight = errors.New("recipe generation already in progress")
	ErrMissingEndpoint    = errors.New("missing recipe endpoint url")
)

// EndpointStatusError reports a non-success HTTP status from the recipe
// endpoint. It matches ErrEndpointError.
type EndpointStatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *EndpointStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("recipe endpoint returned %s", e.Status)
	}
	return fmt.Sprintf("recipe endpoint returned %s: %s", e.Status, e.Body)
}

// Unwrap lets errors.Is(err, ErrEndpointError) succeed.
func (e *EndpointStatusError) Unwrap() error { return ErrEndpointError }
