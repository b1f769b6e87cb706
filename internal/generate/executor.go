package generate

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/rs/zerolog"

	"fitroom/internal/backend"
	"fitroom/internal/events"
	"fitroom/internal/pipeline"
)

// state is the recovery state of one Run.
type state int

const (
	statePrimary state = iota
	stateDowngraded
)

// Executor runs generation requests on a handle. It holds no per-run state;
// the caller guarantees one in-flight Run per handle.
type Executor struct {
	log zerolog.Logger
	pub events.Publisher
}

// Option customizes an Executor.
type Option func(*Executor)

func WithLogger(l zerolog.Logger) Option { return func(e *Executor) { e.log = l } }

func WithPublisher(p events.Publisher) Option {
	return func(e *Executor) {
		if p != nil {
			e.pub = p
		}
	}
}

func NewExecutor(opts ...Option) *Executor {
	e := &Executor{log: zerolog.Nop(), pub: events.Nop()}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Run executes req on h. A backend runtime failure on MPS demotes h to CPU
// in place and repeats the whole run once, preprocessing included: the retry
// resizes the original images again at the CPU edge cap (512) instead of
// reusing the ones already resized for MPS (384). Any other failure, or a
// failure after the downgrade, is terminal.
func (e *Executor) Run(ctx context.Context, h *pipeline.Handle, req Request) (Outcome, error) {
	if err := req.Validate(); err != nil {
		return Outcome{}, err
	}
	switch h.ModelType() {
	case pipeline.GarmentImage2Image, pipeline.MaskedInpaint:
	default:
		return Outcome{}, fmt.Errorf("%w: %s", ErrUnsupportedStrategy, h.ModelType())
	}

	prompt := req.EffectivePrompt()
	st := statePrimary
	attempts := 0
	for {
		attempts++
		kind := h.Backend()
		start := time.Now()
		img, err := e.invoke(ctx, h, req, prompt)
		if err == nil {
			e.log.Info().Str("event", "generate").Str("model_type", h.ModelType().String()).Str("backend", kind.String()).
				Int("attempts", attempts).Dur("elapsed", time.Since(start)).Msg("generation finished")
			return Outcome{Image: img, Backend: kind, Downgraded: st == stateDowngraded, Prompt: prompt, Attempts: attempts}, nil
		}

		if st == statePrimary && kind == backend.MPS && pipeline.IsBackendRuntimeFailure(err) {
			e.log.Warn().Str("event", "downgrade").Str("model_type", h.ModelType().String()).Str("from", kind.String()).
				Str("to", backend.CPU.String()).Err(err).Msg("backend runtime failure; retrying on cpu")
			if derr := h.Demote(ctx); derr != nil {
				return Outcome{}, &terminalError{kind: kind, cause: fmt.Errorf("%w (demote: %v)", err, derr)}
			}
			e.pub.Publish(events.Event{Name: "downgrade", Subject: h.ModelType().String(), Fields: map[string]any{
				"from":  kind.String(),
				"to":    backend.CPU.String(),
				"error": err.Error(),
			}})
			st = stateDowngraded
			continue
		}
		return Outcome{}, &terminalError{kind: kind, downgraded: st == stateDowngraded, cause: err}
	}
}

// invoke preprocesses for the handle's current backend and calls the
// pipeline with the strategy matching its model type.
func (e *Executor) invoke(ctx context.Context, h *pipeline.Handle, req Request, prompt string) (image.Image, error) {
	maxEdge := h.Backend().MaxEdge()
	subject := Resize(req.Subject, maxEdge)
	in := pipeline.Inputs{Prompt: prompt, Image: subject, Steps: req.Steps, Guidance: req.Guidance}
	switch h.ModelType() {
	case pipeline.GarmentImage2Image:
		in.Garment = Resize(req.Garment, maxEdge)
	case pipeline.MaskedInpaint:
		b := subject.Bounds()
		in.Mask = PlaceholderMask(b.Dx(), b.Dy())
	}
	return h.Invoke(ctx, in)
}
