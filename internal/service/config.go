package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"fitroom/internal/backend"
	"fitroom/internal/events"
	"fitroom/internal/generate"
	"fitroom/internal/outputs"
	"fitroom/internal/pipeline"
	"fitroom/internal/prompt"
	"fitroom/internal/store"
	"fitroom/internal/variant"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultMaxQueueDepth = 8
	defaultMaxWait       = 10 * time.Minute
	defaultModelType     = pipeline.GarmentImage2Image
)

// Config holds the service tunables.
type Config struct {
	// ModelType is the pipeline loaded at Start.
	ModelType pipeline.ModelType
	// Backend is "auto" or an explicit backend kind.
	Backend string
	// MaxQueueDepth bounds waiting generations.
	MaxQueueDepth int
	// MaxWait bounds the time spent waiting for a queue slot and for the
	// in-flight slot, each.
	MaxWait time.Duration
	// DefaultSteps and DefaultGuidance fill in unset request fields. A nil
	// DefaultGuidance means generate.DefaultGuidance; zero is a valid scale.
	DefaultSteps    int
	DefaultGuidance *float64
}

// History persists try-on records. *store.DB implements it.
type History interface {
	CreateGeneration(ctx context.Context, g store.Generation) error
	CompleteGeneration(ctx context.Context, id, resultPath, backend, prompt string, seconds float64) error
	FailGeneration(ctx context.Context, id, message string, seconds float64) error
	RateGeneration(ctx context.Context, id string, rating int) error
	GetGeneration(ctx context.Context, id string) (store.Generation, error)
	ListGenerations(ctx context.Context, limit int) ([]store.Generation, error)
	DeleteGeneration(ctx context.Context, id string) error
}

// Deps are the collaborators. Detector, Loader and Tracker are required;
// the rest default to no-ops or are optional. Publisher receives executor
// events; wrap it with MetricsPublisher to export domain counters.
type Deps struct {
	Detector  *backend.Detector
	Loader    *pipeline.Loader
	Executor  *generate.Executor
	Tracker   *variant.Tracker
	History   History
	Outputs   *outputs.Store
	Enhancer  prompt.Enhancer
	Publisher events.Publisher
	Logger    zerolog.Logger
}

func (c Config) withDefaults() Config {
	if c.ModelType == "" {
		c.ModelType = defaultModelType
	}
	if c.Backend == "" {
		c.Backend = backend.Auto
	}
	if c.MaxQueueDepth <= 0 {
		c.MaxQueueDepth = defaultMaxQueueDepth
	}
	if c.MaxWait <= 0 {
		c.MaxWait = defaultMaxWait
	}
	if c.DefaultSteps <= 0 {
		c.DefaultSteps = generate.DefaultSteps
	}
	if c.DefaultGuidance == nil {
		g := generate.DefaultGuidance
		c.DefaultGuidance = &g
	}
	return c
}
