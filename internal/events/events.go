// Package events carries lifecycle notifications (load fallbacks, downgrades,
// blacklistings) from the core to whoever wants them.
package events

import (
	"sort"

	"github.com/rs/zerolog"
)

// Event is a named lifecycle event. Subject is the model type or variant the
// event is about; Fields carries optional key/values.
type Event struct {
	Name    string
	Subject string
	Fields  map[string]any
}

// Publisher receives events. Implementations should be lightweight and
// non-blocking; Publish must not panic.
type Publisher interface {
	Publish(Event)
}

type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// Nop returns a publisher that drops events.
func Nop() Publisher { return noopPublisher{} }

// LogPublisher writes every event as one structured log line.
type LogPublisher struct {
	Log zerolog.Logger
}

func (p LogPublisher) Publish(e Event) {
	ev := p.Log.Info().Str("event", e.Name)
	if e.Subject != "" {
		ev = ev.Str("subject", e.Subject)
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ev = ev.Interface(k, e.Fields[k])
	}
	ev.Send()
}

// Fanout publishes to every non-nil publisher in order.
type Fanout []Publisher

func (f Fanout) Publish(e Event) {
	for _, p := range f {
		if p != nil {
			p.Publish(e)
		}
	}
}
