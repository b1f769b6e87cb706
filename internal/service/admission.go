package service

import (
	"context"
	"time"
)

// beginGeneration reserves a queue slot and then the single in-flight slot.
// Returns a release func to be deferred.
func (s *Service) beginGeneration(ctx context.Context) (func(), error) {
	if s.closing.Load() {
		return func() {}, tooBusyError{reason: "shutting down"}
	}
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}

	timer := time.NewTimer(s.cfg.MaxWait)
	defer timer.Stop()
	select {
	case s.queueCh <- struct{}{}:
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-timer.C:
		return func() {}, tooBusyError{reason: "queue full"}
	}

	acquired := false
	defer func() {
		if !acquired {
			<-s.queueCh
		}
	}()
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}
	timer2 := time.NewTimer(s.cfg.MaxWait)
	defer timer2.Stop()
	select {
	case s.genCh <- struct{}{}:
		acquired = true
		return func() { <-s.genCh; <-s.queueCh }, nil
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-timer2.C:
		return func() {}, tooBusyError{reason: "timed out waiting for generation slot"}
	}
}

// exclusive takes the in-flight slot without a queue reservation, used to
// swap the handle between runs.
func (s *Service) exclusive(ctx context.Context) (func(), error) {
	select {
	case s.genCh <- struct{}{}:
		return func() { <-s.genCh }, nil
	case <-ctx.Done():
		return func() {}, ctx.Err()
	}
}
