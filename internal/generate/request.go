// Package generate runs one try-on generation on a loaded pipeline handle,
// including backend-specific sizing and recovery from unified-memory runtime
// failures by demoting the handle to CPU.
package generate

import (
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"fitroom/internal/backend"
)

// DefaultPrompt is used when a request carries no prompt.
const DefaultPrompt = "a person wearing the garment, high quality, photorealistic, detailed"

// Request defaults.
const (
	DefaultSteps    = 30
	DefaultGuidance = 7.5
)

// ErrInvalidRequest wraps request validation failures.
var ErrInvalidRequest = errors.New("invalid generation request")

// Request is one immutable generation request.
type Request struct {
	Subject  image.Image
	Garment  image.Image
	Prompt   string
	Steps    int
	Guidance float64
}

// NewRequest fills in default steps and guidance.
func NewRequest(subject, garment image.Image, prompt string) Request {
	return Request{Subject: subject, Garment: garment, Prompt: prompt, Steps: DefaultSteps, Guidance: DefaultGuidance}
}

// Validate rejects requests the executor cannot run.
func (r Request) Validate() error {
	switch {
	case r.Subject == nil:
		return fmt.Errorf("%w: subject image required", ErrInvalidRequest)
	case r.Garment == nil:
		return fmt.Errorf("%w: garment image required", ErrInvalidRequest)
	case r.Steps <= 0:
		return fmt.Errorf("%w: steps must be > 0, got %d", ErrInvalidRequest, r.Steps)
	case r.Guidance < 0:
		return fmt.Errorf("%w: guidance must be >= 0, got %g", ErrInvalidRequest, r.Guidance)
	}
	return nil
}

// EffectivePrompt returns the prompt, or DefaultPrompt when it is blank.
func (r Request) EffectivePrompt() string {
	if strings.TrimSpace(r.Prompt) == "" {
		return DefaultPrompt
	}
	return r.Prompt
}

// Outcome is a successful run. Elapsed is set by the service and covers the
// executor run only, never admission wait.
type Outcome struct {
	Image image.Image
	// Backend is the backend that produced Image. It is CPU when the run
	// was downgraded.
	Backend    backend.Kind
	Downgraded bool
	Prompt     string
	Attempts   int
	Elapsed    time.Duration
}
