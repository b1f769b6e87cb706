package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"fitroom/internal/backend"
	"fitroom/internal/events"
	"fitroom/internal/registry"
)

// Loader materializes pipelines with a single fallback to Secondary. It keeps
// no cache; every Load is an independent attempt.
type Loader struct {
	mat     Materializer
	catalog *registry.Catalog
	log     zerolog.Logger
	pub     events.Publisher
}

// LoaderOption customizes a Loader.
type LoaderOption func(*Loader)

func WithLogger(l zerolog.Logger) LoaderOption { return func(ld *Loader) { ld.log = l } }

func WithPublisher(p events.Publisher) LoaderOption {
	return func(ld *Loader) {
		if p != nil {
			ld.pub = p
		}
	}
}

// NewLoader returns a loader. A nil catalog resolves every type to its default
// remote.
func NewLoader(m Materializer, catalog *registry.Catalog, opts ...LoaderOption) *Loader {
	if catalog == nil {
		catalog, _ = registry.NewCatalog("", nil)
	}
	ld := &Loader{mat: m, catalog: catalog, log: zerolog.Nop(), pub: events.Nop()}
	for _, o := range opts {
		o(ld)
	}
	return ld
}

// Catalog returns the catalog sources are resolved against.
func (l *Loader) Catalog() *registry.Catalog { return l.catalog }

// Load materializes mt on kind. If that fails and mt is not already the
// secondary type, Secondary is tried exactly once. On MPS, attention slicing
// is enabled before the handle is returned; failing to enable it fails that
// attempt.
func (ld *Loader) Load(ctx context.Context, mt ModelType, kind backend.Kind) (*Handle, error) {
	start := time.Now()
	h, primaryErr := ld.attempt(ctx, mt, kind)
	if primaryErr == nil {
		ld.log.Info().Str("event", "load").Str("model_type", mt.String()).Str("backend", kind.String()).
			Str("precision", string(kind.Precision())).Dur("elapsed", time.Since(start)).Msg("pipeline loaded")
		return h, nil
	}
	if mt == Secondary {
		return nil, &loadError{requested: mt, kind: kind, primary: primaryErr}
	}

	ld.log.Warn().Str("event", "load_fallback").Str("model_type", mt.String()).Str("fallback", Secondary.String()).
		Str("backend", kind.String()).Err(primaryErr).Msg("primary model failed to load; falling back")
	ld.pub.Publish(events.Event{Name: "load_fallback", Subject: mt.String(), Fields: map[string]any{
		"fallback": Secondary.String(),
		"backend":  kind.String(),
		"error":    primaryErr.Error(),
	}})

	h, fallbackErr := ld.attempt(ctx, Secondary, kind)
	if fallbackErr != nil {
		return nil, &loadError{requested: mt, kind: kind, primary: primaryErr, fallback: fallbackErr}
	}
	h.requested = mt
	ld.log.Info().Str("event", "load").Str("model_type", Secondary.String()).Str("requested", mt.String()).
		Str("backend", kind.String()).Dur("elapsed", time.Since(start)).Msg("fallback pipeline loaded")
	return h, nil
}

func (ld *Loader) attempt(ctx context.Context, mt ModelType, kind backend.Kind) (*Handle, error) {
	if ld.mat == nil {
		return nil, fmt.Errorf("no materializer configured")
	}
	src, ok := ld.catalog.Resolve(mt.String())
	if !ok {
		return nil, fmt.Errorf("no source for model type %s", mt)
	}
	p, err := ld.mat.Materialize(ctx, MaterializeRequest{
		ModelType: mt,
		Source:    src,
		Backend:   kind,
		Precision: kind.Precision(),
	})
	if err != nil {
		return nil, err
	}
	if kind == backend.MPS {
		if err := p.EnableAttentionSlicing(ctx); err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("enable attention slicing: %w", err)
		}
	}
	return NewHandle(p, mt, kind), nil
}
