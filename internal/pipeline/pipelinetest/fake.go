// Package pipelinetest provides an in-memory Materializer for tests.
package pipelinetest

import (
	"context"
	"image"
	"image/color"
	"sync"

	"fitroom/internal/backend"
	"fitroom/internal/pipeline"
)

// Call records one Invoke.
type Call struct {
	Backend backend.Kind
	Inputs  pipeline.Inputs
}

// Materializer is a scripted pipeline.Materializer. Zero value works: every
// model type materializes and every Invoke returns a solid image the size of
// the input.
type Materializer struct {
	mu sync.Mutex
	// Fail maps a model type to the error its materialization returns.
	Fail map[pipeline.ModelType]error
	// SlicingErr is returned by EnableAttentionSlicing.
	SlicingErr error
	// InvokeErr, when set, decides the error for each Invoke given the
	// pipeline's current backend and the 1-based call number.
	InvokeErr func(kind backend.Kind, n int) error
	// MoveErr is returned by MoveTo.
	MoveErr error
	// BeforeMaterialize, when set, runs at the start of every Materialize.
	BeforeMaterialize func(req pipeline.MaterializeRequest)

	requests []pipeline.MaterializeRequest
	calls    []Call
	slicing  int
	moves    []backend.Kind
	closed   int
}

func (m *Materializer) Materialize(_ context.Context, req pipeline.MaterializeRequest) (pipeline.Pipeline, error) {
	m.mu.Lock()
	hook := m.BeforeMaterialize
	m.mu.Unlock()
	if hook != nil {
		hook(req)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if err := m.Fail[req.ModelType]; err != nil {
		return nil, err
	}
	return &fakePipeline{m: m, kind: req.Backend}, nil
}

// Requests returns every materialization request in order.
func (m *Materializer) Requests() []pipeline.MaterializeRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]pipeline.MaterializeRequest(nil), m.requests...)
}

// Calls returns every Invoke in order.
func (m *Materializer) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// SlicingEnabled counts EnableAttentionSlicing calls.
func (m *Materializer) SlicingEnabled() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slicing
}

// Moves lists MoveTo targets in order.
func (m *Materializer) Moves() []backend.Kind {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]backend.Kind(nil), m.moves...)
}

// Closed counts closed pipelines.
func (m *Materializer) Closed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

type fakePipeline struct {
	m    *Materializer
	kind backend.Kind
}

func (p *fakePipeline) Invoke(ctx context.Context, in pipeline.Inputs) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.m.mu.Lock()
	p.m.calls = append(p.m.calls, Call{Backend: p.kind, Inputs: in})
	n := len(p.m.calls)
	fn := p.m.InvokeErr
	p.m.mu.Unlock()
	if fn != nil {
		if err := fn(p.kind, n); err != nil {
			return nil, err
		}
	}
	return Solid(in.Image.Bounds().Dx(), in.Image.Bounds().Dy(), color.RGBA{R: 200, G: 60, B: 90, A: 255}), nil
}

func (p *fakePipeline) MoveTo(_ context.Context, kind backend.Kind) error {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	if p.m.MoveErr != nil {
		return p.m.MoveErr
	}
	p.m.moves = append(p.m.moves, kind)
	p.kind = kind
	return nil
}

func (p *fakePipeline) EnableAttentionSlicing(context.Context) error {
	p.m.mu.Lock()
	defer p.m.mu.Unlock()
	if p.m.SlicingErr != nil {
		return p.m.SlicingErr
	}
	p.m.slicing++
	return nil
}

func (p *fakePipeline) Close() error {
	p.m.mu.Lock()
	p.m.closed++
	p.m.mu.Unlock()
	return nil
}

// Solid returns a w x h image filled with c.
func Solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}
