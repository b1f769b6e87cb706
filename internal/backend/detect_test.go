package backend

import (
	"context"
	"testing"
)

func probe(v bool) Probe { return func(context.Context) bool { return v } }

func TestDetectOrderAndCPULast(t *testing.T) {
	cases := []struct {
		name    string
		unified bool
		cuda    bool
		want    []Kind
	}{
		{"none", false, false, []Kind{CPU}},
		{"cuda only", false, true, []Kind{CUDA, CPU}},
		{"mps only", true, false, []Kind{MPS, CPU}},
		{"both", true, true, []Kind{MPS, CUDA, CPU}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d := NewDetector(WithUnifiedMemoryProbe(probe(c.unified)), WithDiscreteProbe(probe(c.cuda)))
			got := d.Detect(context.Background())
			if len(got) != len(c.want) {
				t.Fatalf("got %v, want %v", got, c.want)
			}
			seen := map[Kind]bool{}
			for i := range got {
				if got[i] != c.want[i] {
					t.Fatalf("got %v, want %v", got, c.want)
				}
				if seen[got[i]] {
					t.Fatalf("duplicate backend in %v", got)
				}
				seen[got[i]] = true
			}
			if got[len(got)-1] != CPU {
				t.Fatalf("cpu must be last: %v", got)
			}
		})
	}
}

func TestDetectNilProbes(t *testing.T) {
	d := NewDetector(WithUnifiedMemoryProbe(nil), WithDiscreteProbe(nil))
	got := d.Detect(context.Background())
	if len(got) != 1 || got[0] != CPU {
		t.Fatalf("got %v", got)
	}
}

func TestSelect(t *testing.T) {
	d := NewDetector(WithUnifiedMemoryProbe(probe(false)), WithDiscreteProbe(probe(true)))
	ctx := context.Background()
	for _, pref := range []string{"", "auto", " AUTO "} {
		k, err := d.Select(ctx, pref)
		if err != nil || k != CUDA {
			t.Fatalf("Select(%q) = %v, %v", pref, k, err)
		}
	}
	k, err := d.Select(ctx, "mps")
	if err != nil || k != MPS {
		t.Fatalf("explicit override: %v, %v", k, err)
	}
	if _, err := d.Select(ctx, "tpu"); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestPolicies(t *testing.T) {
	if MPS.Precision() != Full || CUDA.Precision() != Half || CPU.Precision() != Full {
		t.Fatalf("unexpected precision policy")
	}
	if MPS.MaxEdge() != 384 || CUDA.MaxEdge() != 512 || CPU.MaxEdge() != 512 {
		t.Fatalf("unexpected edge caps")
	}
}
