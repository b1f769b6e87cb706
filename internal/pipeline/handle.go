package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"

	"fitroom/internal/backend"
)

// Handle is an exclusively owned, loaded pipeline. It has no internal locking;
// callers serialize access.
type Handle struct {
	pipe      Pipeline
	modelType ModelType
	requested ModelType
	kind      backend.Kind
	precision backend.Precision
}

// NewHandle wraps an already materialized pipeline.
func NewHandle(p Pipeline, mt ModelType, kind backend.Kind) *Handle {
	return &Handle{pipe: p, modelType: mt, requested: mt, kind: kind, precision: kind.Precision()}
}

func (h *Handle) ModelType() ModelType { return h.modelType }
func (h *Handle) Backend() backend.Kind { return h.kind }
func (h *Handle) Precision() backend.Precision { return h.precision }

// Requested is the model type the caller asked for; it differs from
// ModelType when the loader fell back.
func (h *Handle) Requested() ModelType { return h.requested }

// FellBack reports whether the loader substituted the secondary model.
func (h *Handle) FellBack() bool { return h.requested != h.modelType }

// Invoke runs the pipeline once.
func (h *Handle) Invoke(ctx context.Context, in Inputs) (image.Image, error) {
	if h == nil || h.pipe == nil {
		return nil, errors.New("pipeline handle closed")
	}
	return h.pipe.Invoke(ctx, in)
}

// Demote moves the pipeline to CPU in place. The handle's backend changes
// only if the move succeeds. Demoting a CPU handle is an error.
func (h *Handle) Demote(ctx context.Context) error {
	if h.kind == backend.CPU {
		return errors.New("pipeline already on cpu")
	}
	if err := h.pipe.MoveTo(ctx, backend.CPU); err != nil {
		return fmt.Errorf("move %s pipeline to cpu: %w", h.modelType, err)
	}
	h.kind = backend.CPU
	h.precision = backend.CPU.Precision()
	return nil
}

// Close releases the underlying pipeline. Safe to call more than once.
func (h *Handle) Close() error {
	if h == nil || h.pipe == nil {
		return nil
	}
	err := h.pipe.Close()
	h.pipe = nil
	return err
}
