package service

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"fitroom/internal/backend"
	"fitroom/internal/events"
	"fitroom/internal/generate"
	"fitroom/internal/pipeline"
	"fitroom/internal/prompt"
)

// State is the service lifecycle state.
type State string

const (
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateError   State = "error"
)

// Service coordinates generation on a single loaded pipeline.
type Service struct {
	cfg      Config
	detector *backend.Detector
	loader   *pipeline.Loader
	executor *generate.Executor
	deps     Deps
	log      zerolog.Logger
	pub      events.Publisher

	mu       sync.RWMutex
	state    State
	err      string
	handle   *pipeline.Handle
	detected []backend.Kind

	// genCh holds the single in-flight slot, queueCh the queue slots.
	genCh   chan struct{}
	queueCh chan struct{}
	closing atomic.Bool

	startTime        time.Time
	loadsTotal       atomic.Uint64
	generationsTotal atomic.Uint64
	downgradesTotal  atomic.Uint64
}

// New constructs a Service. It does not load anything; call Start.
func New(cfg Config, deps Deps) (*Service, error) {
	if deps.Detector == nil || deps.Loader == nil || deps.Tracker == nil {
		return nil, errors.New("service: detector, loader and tracker are required")
	}
	cfg = cfg.withDefaults()
	pub := deps.Publisher
	if pub == nil {
		pub = events.Nop()
	}
	exec := deps.Executor
	if exec == nil {
		exec = generate.NewExecutor(generate.WithLogger(deps.Logger), generate.WithPublisher(pub))
	}
	if deps.Enhancer == nil {
		deps.Enhancer = prompt.Disabled{}
	}
	return &Service{
		cfg:       cfg,
		detector:  deps.Detector,
		loader:    deps.Loader,
		executor:  exec,
		deps:      deps,
		log:       deps.Logger,
		pub:       pub,
		state:     StateLoading,
		genCh:     make(chan struct{}, 1),
		queueCh:   make(chan struct{}, cfg.MaxQueueDepth),
		startTime: time.Now(),
	}, nil
}

// Start detects the host backends and loads the configured pipeline. A load
// failure is returned and leaves the service running but not ready.
func (s *Service) Start(ctx context.Context) error {
	detected := s.detector.Detect(ctx)
	s.mu.Lock()
	s.detected = detected
	s.mu.Unlock()
	s.log.Info().Str("event", "platform").Str("os", runtime.GOOS).Str("arch", runtime.GOARCH).
		Strs("backends", kindStrings(detected)).Msg("platform detected")
	for _, v := range s.deps.Tracker.All() {
		variantAvgSeconds.WithLabelValues(v.Name).Set(v.AvgSeconds)
	}
	return s.LoadPipeline(ctx, s.cfg.ModelType, s.cfg.Backend)
}

// Ready reports whether a pipeline is loaded.
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handle != nil && !s.closing.Load()
}

// Close stops admitting work, waits for the in-flight run and releases the
// pipeline.
func (s *Service) Close(ctx context.Context) error {
	s.closing.Store(true)
	release, err := s.exclusive(ctx)
	if err != nil {
		return err
	}
	defer release()
	s.mu.Lock()
	h := s.handle
	s.handle = nil
	s.state = StateLoading
	s.mu.Unlock()
	if h != nil {
		return h.Close()
	}
	return nil
}

// Enhancer returns the prompt collaborator.
func (s *Service) Enhancer() prompt.Enhancer { return s.deps.Enhancer }

func kindStrings(ks []backend.Kind) []string {
	out := make([]string, len(ks))
	for i, k := range ks {
		out[i] = k.String()
	}
	return out
}
