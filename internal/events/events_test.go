package events

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestMemoryPublisherRecordsInOrder(t *testing.T) {
	p := NewMemoryPublisher()
	p.Publish(Event{Name: "load_fallback", Subject: "idm-vton"})
	p.Publish(Event{Name: "downgrade", Subject: "sd-inpaint"})
	p.Publish(Event{Name: "load_fallback", Subject: "ootd"})

	all := p.Events()
	if len(all) != 3 || all[1].Name != "downgrade" {
		t.Fatalf("unexpected events: %+v", all)
	}
	if got := p.Named("load_fallback"); len(got) != 2 || got[1].Subject != "ootd" {
		t.Fatalf("unexpected filtered events: %+v", got)
	}
	// returned slice is a copy
	all[0].Name = "mutated"
	if p.Events()[0].Name != "load_fallback" {
		t.Fatalf("Events must return a copy")
	}
}

func TestLogPublisherWritesFields(t *testing.T) {
	var buf bytes.Buffer
	p := LogPublisher{Log: zerolog.New(&buf)}
	p.Publish(Event{Name: "blacklisted", Subject: "cloud_free", Fields: map[string]any{"avg_seconds": 190.5}})
	out := buf.String()
	for _, want := range []string{`"event":"blacklisted"`, `"subject":"cloud_free"`, `"avg_seconds":190.5`} {
		if !strings.Contains(out, want) {
			t.Fatalf("log line %q missing %s", out, want)
		}
	}
}

func TestFanoutSkipsNil(t *testing.T) {
	a, b := NewMemoryPublisher(), NewMemoryPublisher()
	Fanout{a, nil, b, Nop()}.Publish(Event{Name: "x"})
	if len(a.Events()) != 1 || len(b.Events()) != 1 {
		t.Fatalf("fanout did not reach every publisher")
	}
}
