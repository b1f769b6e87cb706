package service

import (
	"context"
	"errors"

	"fitroom/internal/store"
)

// Generations lists history, newest first. limit <= 0 means no limit.
func (s *Service) Generations(ctx context.Context, limit int) ([]store.Generation, error) {
	h := s.deps.History
	if h == nil {
		return nil, ErrHistoryDisabled
	}
	return h.ListGenerations(ctx, limit)
}

// Generation returns one history record.
func (s *Service) Generation(ctx context.Context, id string) (store.Generation, error) {
	h := s.deps.History
	if h == nil {
		return store.Generation{}, ErrHistoryDisabled
	}
	return h.GetGeneration(ctx, id)
}

// RateGeneration stores a user rating.
func (s *Service) RateGeneration(ctx context.Context, id string, rating int) error {
	h := s.deps.History
	if h == nil {
		return ErrHistoryDisabled
	}
	return h.RateGeneration(ctx, id, rating)
}

// DeleteGeneration removes a record and its result image.
func (s *Service) DeleteGeneration(ctx context.Context, id string) error {
	h := s.deps.History
	if h == nil {
		return ErrHistoryDisabled
	}
	g, err := h.GetGeneration(ctx, id)
	if err != nil {
		return err
	}
	if err := h.DeleteGeneration(ctx, id); err != nil {
		return err
	}
	if g.ResultImagePath != "" && s.deps.Outputs != nil {
		if err := s.deps.Outputs.Remove(g.ResultImagePath); err != nil {
			s.log.Warn().Err(err).Str("generation_id", id).Msg("removing result image")
		}
	}
	return nil
}

// IsNotFound reports whether err means a missing history record.
func IsNotFound(err error) bool { return errors.Is(err, store.ErrNotFound) }
