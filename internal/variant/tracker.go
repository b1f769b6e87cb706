package variant

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"fitroom/internal/events"
)

// Tracker owns the variant records. Updates to one variant are serialized by
// a per-name lock that spans compute, store write and in-memory commit; there
// is no lock across variants.
type Tracker struct {
	store Store
	log   zerolog.Logger
	pub   events.Publisher
	now   func() time.Time

	mu       sync.RWMutex // guards variants and locks maps
	variants map[string]Variant
	locks    map[string]*sync.Mutex
}

// Option customizes a Tracker.
type Option func(*Tracker)

func WithLogger(l zerolog.Logger) Option { return func(t *Tracker) { t.log = l } }

func WithPublisher(p events.Publisher) Option {
	return func(t *Tracker) {
		if p != nil {
			t.pub = p
		}
	}
}

func withClock(now func() time.Time) Option { return func(t *Tracker) { t.now = now } }

// NewTracker loads variants from store and inserts any missing seed.
func NewTracker(ctx context.Context, store Store, opts ...Option) (*Tracker, error) {
	if store == nil {
		store = NewMemoryStore()
	}
	t := &Tracker{
		store:    store,
		log:      zerolog.Nop(),
		pub:      events.Nop(),
		now:      time.Now,
		variants: map[string]Variant{},
		locks:    map[string]*sync.Mutex{},
	}
	for _, o := range opts {
		o(t)
	}
	existing, err := store.ListVariants(ctx)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	for _, v := range existing {
		t.variants[v.Name] = v
		t.locks[v.Name] = &sync.Mutex{}
	}
	for _, seed := range Seeds() {
		if _, ok := t.variants[seed.Name]; ok {
			continue
		}
		seed.UpdatedAt = t.now()
		if err := store.UpsertVariant(ctx, seed); err != nil {
			return nil, fmt.Errorf("seed variant %s: %w", seed.Name, err)
		}
		t.variants[seed.Name] = seed
		t.locks[seed.Name] = &sync.Mutex{}
	}
	return t, nil
}

// All returns every variant ordered by (paid, cost, name).
func (t *Tracker) All() []Variant {
	t.mu.RLock()
	out := make([]Variant, 0, len(t.variants))
	for _, v := range t.variants {
		out = append(out, v)
	}
	t.mu.RUnlock()
	sortVariants(out)
	return out
}

// ListAvailable returns enabled, non-blacklisted variants ordered by
// (paid, cost, name).
func (t *Tracker) ListAvailable() []Variant {
	all := t.All()
	out := all[:0]
	for _, v := range all {
		if v.Available() {
			out = append(out, v)
		}
	}
	return out
}

// Get returns a copy of the named variant.
func (t *Tracker) Get(name string) (Variant, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.variants[name]
	if !ok {
		return Variant{}, fmt.Errorf("%w: %s", ErrVariantNotFound, name)
	}
	return v, nil
}

// Select returns the named variant when it is available. An empty name picks
// the first available variant.
func (t *Tracker) Select(name string) (Variant, error) {
	if name == "" {
		avail := t.ListAvailable()
		if len(avail) == 0 {
			return Variant{}, ErrNoVariantAvailable
		}
		return avail[0], nil
	}
	v, err := t.Get(name)
	if err != nil {
		return Variant{}, err
	}
	if !v.Available() {
		return Variant{}, fmt.Errorf("%w: %s", ErrVariantUnavailable, name)
	}
	return v, nil
}

// RecordOutcome folds a run duration into the variant's average and
// blacklists it when the average exceeds its limit. A blacklisted variant
// stays blacklisted regardless of later samples.
func (t *Tracker) RecordOutcome(ctx context.Context, name string, seconds float64) (Variant, error) {
	return t.update(ctx, name, func(v *Variant) {
		v.AvgSeconds = keepWeight*v.AvgSeconds + sampleWeight*seconds
		limit := v.MaxSeconds
		if limit <= 0 {
			limit = DefaultMaxSeconds
		}
		if v.AvgSeconds > limit && !v.Blacklisted {
			v.Blacklisted = true
			v.BlacklistReason = fmt.Sprintf("average generation time %.1fs exceeded limit of %.0fs", v.AvgSeconds, limit)
		}
	})
}

// Reinstate clears the blacklist. It is the only way out of it.
func (t *Tracker) Reinstate(ctx context.Context, name string) (Variant, error) {
	return t.update(ctx, name, func(v *Variant) {
		v.Blacklisted = false
		v.BlacklistReason = ""
	})
}

// SetEnabled toggles whether the variant may be offered.
func (t *Tracker) SetEnabled(ctx context.Context, name string, enabled bool) (Variant, error) {
	return t.update(ctx, name, func(v *Variant) { v.Enabled = enabled })
}

func (t *Tracker) update(ctx context.Context, name string, mutate func(*Variant)) (Variant, error) {
	t.mu.RLock()
	lock, ok := t.locks[name]
	t.mu.RUnlock()
	if !ok {
		return Variant{}, fmt.Errorf("%w: %s", ErrVariantNotFound, name)
	}
	lock.Lock()
	defer lock.Unlock()

	t.mu.RLock()
	cur := t.variants[name]
	t.mu.RUnlock()

	next := cur
	mutate(&next)
	next.UpdatedAt = t.now()
	if err := t.store.UpsertVariant(ctx, next); err != nil {
		return cur, fmt.Errorf("persist variant %s: %w", name, err)
	}
	t.mu.Lock()
	t.variants[name] = next
	t.mu.Unlock()

	if next.Blacklisted && !cur.Blacklisted {
		t.log.Warn().Str("event", "blacklisted").Str("variant", name).Float64("avg_seconds", next.AvgSeconds).
			Str("reason", next.BlacklistReason).Msg("variant blacklisted")
		t.pub.Publish(events.Event{Name: "blacklisted", Subject: name, Fields: map[string]any{
			"avg_seconds": next.AvgSeconds,
			"reason":      next.BlacklistReason,
		}})
	}
	return next, nil
}

func sortVariants(vs []Variant) {
	sort.Slice(vs, func(i, j int) bool {
		a, b := vs[i], vs[j]
		if a.Paid != b.Paid {
			return !a.Paid
		}
		if a.Cost != b.Cost {
			return a.Cost < b.Cost
		}
		return a.Name < b.Name
	})
}
