// Package variant tracks the named generation variants offered to callers,
// smooths their observed latency and blacklists the ones that get too slow.
package variant

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Smoothing weights for the latency estimate.
const (
	keepWeight   = 0.8
	sampleWeight = 0.2
)

// DefaultMaxSeconds is the latency ceiling used when a variant sets none.
const DefaultMaxSeconds = 180.0

var (
	ErrVariantNotFound    = errors.New("variant not found")
	ErrVariantUnavailable = errors.New("variant unavailable")
	ErrNoVariantAvailable = errors.New("no variant available")
)

// Variant is one generation configuration.
type Variant struct {
	Name            string    `json:"name"`
	DisplayName     string    `json:"display_name"`
	Paid            bool      `json:"is_paid"`
	Cost            float64   `json:"cost_per_generation"`
	Enabled         bool      `json:"enabled"`
	AvgSeconds      float64   `json:"avg_generation_time"`
	MaxSeconds      float64   `json:"max_generation_time"`
	Blacklisted     bool      `json:"blacklisted"`
	BlacklistReason string    `json:"blacklist_reason,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Available reports whether v may be offered for new requests.
func (v Variant) Available() bool { return v.Enabled && !v.Blacklisted }

// Store persists variants. Implementations must make UpsertVariant durable
// before returning.
type Store interface {
	ListVariants(ctx context.Context) ([]Variant, error)
	UpsertVariant(ctx context.Context, v Variant) error
}

// Seeds is the starter set inserted when missing.
func Seeds() []Variant {
	return []Variant{
		{Name: "local", DisplayName: "Local (Free)", Cost: 0.00, Enabled: true, AvgSeconds: 45, MaxSeconds: DefaultMaxSeconds},
		{Name: "local_paid", DisplayName: "Local Premium", Paid: true, Cost: 0.50, Enabled: true, AvgSeconds: 30, MaxSeconds: DefaultMaxSeconds},
		{Name: "cloud_free", DisplayName: "Cloud Free", Cost: 0.00, Enabled: true, AvgSeconds: 60, MaxSeconds: DefaultMaxSeconds},
		{Name: "cloud_paid", DisplayName: "Cloud Premium", Paid: true, Cost: 1.00, Enabled: true, AvgSeconds: 20, MaxSeconds: DefaultMaxSeconds},
	}
}

// memoryStore is an in-process Store used when no database is configured.
type memoryStore struct {
	mu   sync.Mutex
	rows map[string]Variant
}

// NewMemoryStore returns a non-durable Store.
func NewMemoryStore() Store { return &memoryStore{rows: map[string]Variant{}} }

func (s *memoryStore) ListVariants(context.Context) ([]Variant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Variant, 0, len(s.rows))
	for _, v := range s.rows {
		out = append(out, v)
	}
	return out, nil
}

func (s *memoryStore) UpsertVariant(_ context.Context, v Variant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[v.Name] = v
	return nil
}
