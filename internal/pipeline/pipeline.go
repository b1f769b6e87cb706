// Package pipeline materializes generative pipelines on a compute backend and
// owns the one-shot model fallback chain.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"strings"

	"fitroom/internal/backend"
	"fitroom/internal/registry"
)

// ModelType tags the generation strategy a pipeline implements. The set is
// closed; the executor dispatches on it with a switch.
type ModelType string

const (
	// GarmentImage2Image conditions generation on the subject and garment images.
	GarmentImage2Image ModelType = "idm-vton"
	// MaskedInpaint repaints a masked region of the subject image.
	MaskedInpaint ModelType = "sd-inpaint"
)

// Secondary is the model type the loader falls back to.
const Secondary = MaskedInpaint

func (t ModelType) String() string { return string(t) }

// ParseModelType accepts the wire names of the supported model types.
func ParseModelType(s string) (ModelType, error) {
	t := ModelType(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case GarmentImage2Image, MaskedInpaint:
		return t, nil
	}
	return "", fmt.Errorf("unknown model type %q (want idm-vton|sd-inpaint)", s)
}

// Inputs is one invocation's worth of pipeline arguments. Image is always set;
// Garment is set for GarmentImage2Image, Mask for MaskedInpaint.
type Inputs struct {
	Prompt   string
	Image    image.Image
	Garment  image.Image
	Mask     image.Image
	Steps    int
	Guidance float64
}

// Pipeline is a materialized model bound to a device.
type Pipeline interface {
	// Invoke runs inference once and returns the first produced image.
	Invoke(ctx context.Context, in Inputs) (image.Image, error)
	// MoveTo relocates the weights to another backend.
	MoveTo(ctx context.Context, kind backend.Kind) error
	// EnableAttentionSlicing trades speed for peak memory.
	EnableAttentionSlicing(ctx context.Context) error
	// Close releases the pipeline.
	Close() error
}

// MaterializeRequest describes the pipeline to build.
type MaterializeRequest struct {
	ModelType ModelType
	Source    registry.Source
	Backend   backend.Kind
	Precision backend.Precision
}

// Materializer builds pipelines. It is the boundary to the process that hosts
// the model weights.
type Materializer interface {
	Materialize(ctx context.Context, req MaterializeRequest) (Pipeline, error)
}
