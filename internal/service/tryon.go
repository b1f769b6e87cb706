package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"fitroom/internal/generate"
	"fitroom/internal/imageio"
	"fitroom/internal/prompt"
	"fitroom/internal/store"
)

// TryOnRequest is one end-to-end try-on.
type TryOnRequest struct {
	Person      imageio.Decoded
	Garment     imageio.Decoded
	PersonName  string
	GarmentName string
	Variant     string
	Prompt      string
	// Enhance asks the prompt service for a prompt when Prompt is blank.
	Enhance  bool
	Steps    int
	Guidance *float64
}

// TryOnResult describes a stored result.
type TryOnResult struct {
	ID         string
	ResultName string
	Variant    string
	Cost       float64
	Outcome    generate.Outcome
	ModelType  string
	Analysis   string
	Elapsed    time.Duration
}

// TryOn selects a variant, records history, optionally enhances the prompt,
// generates, stores the result and reports the run to the tracker. Failed
// runs are reported too.
func (s *Service) TryOn(ctx context.Context, req TryOnRequest) (TryOnResult, error) {
	v, err := s.SelectVariant(req.Variant)
	if err != nil {
		return TryOnResult{}, err
	}
	if !s.Ready() {
		return TryOnResult{}, ErrNotReady("pipeline not loaded")
	}
	if s.deps.Outputs == nil {
		return TryOnResult{}, ErrNotReady("output storage not configured")
	}

	id := uuid.NewString()
	log := s.log.With().Str("generation_id", id).Str("variant", v.Name).Logger()
	if h := s.deps.History; h != nil {
		if err := h.CreateGeneration(ctx, store.Generation{
			ID:          id,
			PersonName:  req.PersonName,
			GarmentName: req.GarmentName,
			Variant:     v.Name,
			Cost:        v.Cost,
		}); err != nil {
			return TryOnResult{}, fmt.Errorf("create history record: %w", err)
		}
	}

	text := req.Prompt
	var analysis string
	if strings.TrimSpace(text) == "" && req.Enhance {
		text, analysis = s.enhance(ctx, req.Garment)
	}

	greq := generate.Request{Subject: req.Person.Image, Garment: req.Garment.Image, Prompt: text, Steps: req.Steps, Guidance: *s.cfg.DefaultGuidance}
	if req.Guidance != nil {
		greq.Guidance = *req.Guidance
	}

	out, err := s.Generate(ctx, greq)
	elapsed := out.Elapsed
	if attributable(err) {
		status := "completed"
		if err != nil {
			status = "failed"
		}
		generationDuration.WithLabelValues(v.Name, out.Backend.String(), s.modelType(), status).Observe(elapsed.Seconds())
		if _, rerr := s.RecordOutcome(ctx, v.Name, elapsed); rerr != nil {
			log.Error().Err(rerr).Msg("recording variant outcome")
		}
	}
	if err != nil {
		log.Error().Str("event", "tryon_failed").Dur("elapsed", elapsed).Err(err).Msg("try-on failed")
		s.failHistory(ctx, id, err, elapsed)
		return TryOnResult{}, err
	}

	name, err := s.deps.Outputs.Save(out.Image)
	if err != nil {
		s.failHistory(ctx, id, err, elapsed)
		return TryOnResult{}, fmt.Errorf("store result: %w", err)
	}
	if h := s.deps.History; h != nil {
		if err := h.CompleteGeneration(ctx, id, name, out.Backend.String(), out.Prompt, elapsed.Seconds()); err != nil {
			log.Error().Err(err).Msg("completing history record")
		}
	}
	log.Info().Str("event", "tryon").Str("backend", out.Backend.String()).Bool("downgraded", out.Downgraded).
		Dur("elapsed", elapsed).Str("result", name).Msg("try-on finished")
	return TryOnResult{
		ID:         id,
		ResultName: name,
		Variant:    v.Name,
		Cost:       v.Cost,
		Outcome:    out,
		ModelType:  s.modelType(),
		Analysis:   analysis,
		Elapsed:    elapsed,
	}, nil
}

// enhance returns a generated prompt and the garment analysis it came from.
// Any failure yields an empty prompt so the default applies.
func (s *Service) enhance(ctx context.Context, garment imageio.Decoded) (string, string) {
	e := s.deps.Enhancer
	if !e.Available(ctx) {
		return "", ""
	}
	analysis, err := e.AnalyzeGarment(ctx, garment.Raw, garment.MIME())
	if err != nil || strings.TrimSpace(analysis) == "" {
		s.log.Warn().Str("event", "enhance_skipped").Err(err).Msg("garment analysis failed")
		return "", ""
	}
	return e.GeneratePrompt(ctx, analysis, prompt.Options{}), analysis
}

// AnalyzeGarment runs garment analysis, prompt generation and, when asked,
// styling tips.
func (s *Service) AnalyzeGarment(ctx context.Context, garment imageio.Decoded, opts prompt.Options, withStyling bool) (string, string, *prompt.Styling, error) {
	e := s.deps.Enhancer
	if !e.Available(ctx) {
		return "", "", nil, ErrNotReady(prompt.ErrUnavailable.Error())
	}
	analysis, err := e.AnalyzeGarment(ctx, garment.Raw, garment.MIME())
	if err != nil {
		return "", "", nil, err
	}
	text := e.GeneratePrompt(ctx, analysis, opts)
	if !withStyling {
		return analysis, text, nil, nil
	}
	st, err := e.SuggestStyling(ctx, analysis)
	if err != nil {
		s.log.Warn().Err(err).Msg("styling suggestions failed")
		return analysis, text, nil, nil
	}
	return analysis, text, &st, nil
}

func (s *Service) failHistory(ctx context.Context, id string, cause error, elapsed time.Duration) {
	if h := s.deps.History; h != nil {
		if err := h.FailGeneration(context.WithoutCancel(ctx), id, cause.Error(), elapsed.Seconds()); err != nil {
			s.log.Error().Err(err).Str("generation_id", id).Msg("failing history record")
		}
	}
}

func (s *Service) modelType() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.handle == nil {
		return ""
	}
	return s.handle.ModelType().String()
}
