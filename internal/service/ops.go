package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fitroom/internal/generate"
	"fitroom/internal/pipeline"
	"fitroom/internal/variant"
)

// SelectVariant returns the named variant when it is available, or the first
// available variant for an empty name.
func (s *Service) SelectVariant(name string) (variant.Variant, error) {
	return s.deps.Tracker.Select(name)
}

// LoadPipeline loads mt on the backend chosen by preference and swaps it in
// between runs. On failure the previous pipeline, if any, keeps serving. A
// load that finishes after Close is discarded.
func (s *Service) LoadPipeline(ctx context.Context, mt pipeline.ModelType, preference string) error {
	if s.closing.Load() {
		return tooBusyError{reason: "shutting down"}
	}
	kind, err := s.detector.Select(ctx, preference)
	if err != nil {
		s.setError(err)
		return err
	}
	s.log.Info().Str("event", "load_start").Str("model_type", mt.String()).Str("backend", kind.String()).
		Str("backend_description", kind.Description()).Str("precision", string(kind.Precision())).
		Int("max_edge", kind.MaxEdge()).Msg("loading pipeline")

	h, err := s.loader.Load(ctx, mt, kind)
	if err != nil {
		s.log.Error().Str("event", "load_failed").Str("model_type", mt.String()).Err(err).Msg("pipeline load failed")
		s.setError(err)
		return err
	}
	s.loadsTotal.Add(1)

	release, err := s.exclusive(ctx)
	if err != nil {
		_ = h.Close()
		return err
	}
	if s.closing.Load() {
		release()
		if cerr := h.Close(); cerr != nil {
			s.log.Warn().Err(cerr).Msg("closing pipeline loaded during shutdown")
		}
		return tooBusyError{reason: "shutting down"}
	}
	s.mu.Lock()
	old := s.handle
	s.handle = h
	s.state = StateReady
	s.err = ""
	s.mu.Unlock()
	release()

	if old != nil {
		if err := old.Close(); err != nil {
			s.log.Warn().Err(err).Msg("closing previous pipeline")
		}
	}
	return nil
}

func (s *Service) setError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err.Error()
	if s.handle == nil {
		s.state = StateError
	}
}

// Generate runs one request on the loaded pipeline. Runs are admitted one at
// a time; waiting callers queue up to the configured depth. The returned
// Outcome.Elapsed times the executor run alone, also when it fails.
func (s *Service) Generate(ctx context.Context, req generate.Request) (generate.Outcome, error) {
	if req.Steps == 0 {
		req.Steps = s.cfg.DefaultSteps
	}
	release, err := s.beginGeneration(ctx)
	if err != nil {
		if IsTooBusy(err) {
			s.log.Warn().Str("event", "backpressure").Err(err).Msg("generation rejected")
		}
		return generate.Outcome{}, err
	}
	defer release()

	s.mu.RLock()
	h := s.handle
	s.mu.RUnlock()
	if h == nil {
		return generate.Outcome{}, ErrNotReady("no pipeline loaded")
	}
	start := time.Now()
	out, err := s.executor.Run(ctx, h, req)
	out.Elapsed = time.Since(start)
	if err != nil {
		return out, err
	}
	s.generationsTotal.Add(1)
	if out.Downgraded {
		s.downgradesTotal.Add(1)
	}
	return out, nil
}

// RecordOutcome feeds a run duration to the tracker.
func (s *Service) RecordOutcome(ctx context.Context, name string, d time.Duration) (variant.Variant, error) {
	v, err := s.deps.Tracker.RecordOutcome(ctx, name, d.Seconds())
	if err != nil {
		return v, fmt.Errorf("record outcome: %w", err)
	}
	variantAvgSeconds.WithLabelValues(v.Name).Set(v.AvgSeconds)
	return v, nil
}

// Variants returns every variant.
func (s *Service) Variants() []variant.Variant { return s.deps.Tracker.All() }

// ReinstateVariant clears a blacklist.
func (s *Service) ReinstateVariant(ctx context.Context, name string) (variant.Variant, error) {
	v, err := s.deps.Tracker.Reinstate(ctx, name)
	if err == nil {
		s.log.Info().Str("event", "reinstated").Str("variant", name).Msg("variant reinstated")
	}
	return v, err
}

// SetVariantEnabled toggles a variant.
func (s *Service) SetVariantEnabled(ctx context.Context, name string, enabled bool) (variant.Variant, error) {
	return s.deps.Tracker.SetEnabled(ctx, name, enabled)
}

// attributable reports whether err came from a run that actually executed,
// and so counts toward the variant's latency.
func attributable(err error) bool {
	if err == nil || generate.IsTerminal(err) {
		return true
	}
	return !(IsTooBusy(err) || IsNotReady(err) || errors.Is(err, generate.ErrInvalidRequest) ||
		errors.Is(err, generate.ErrUnsupportedStrategy) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}
