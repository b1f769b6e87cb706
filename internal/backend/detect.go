package backend

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Probe reports whether a backend is usable on this host.
type Probe func(ctx context.Context) bool

// Detector ranks the backends available on the host. Preference is policy,
// not measurement: unified memory first, then the discrete accelerator, then CPU.
type Detector struct {
	unifiedMemory Probe
	discrete      Probe
	log           zerolog.Logger
}

// Option customizes a Detector.
type Option func(*Detector)

// WithUnifiedMemoryProbe replaces the MPS probe.
func WithUnifiedMemoryProbe(p Probe) Option { return func(d *Detector) { d.unifiedMemory = p } }

// WithDiscreteProbe replaces the CUDA probe.
func WithDiscreteProbe(p Probe) Option { return func(d *Detector) { d.discrete = p } }

// WithLogger sets the logger used for probe results.
func WithLogger(l zerolog.Logger) Option { return func(d *Detector) { d.log = l } }

// NewDetector returns a Detector using host probes unless overridden.
func NewDetector(opts ...Option) *Detector {
	d := &Detector{
		unifiedMemory: probeAppleSilicon,
		discrete:      probeCUDA,
		log:           zerolog.Nop(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Detect returns the available backends, most preferred first. CPU is always
// present and always last, so the result is never empty.
func (d *Detector) Detect(ctx context.Context) []Kind {
	out := make([]Kind, 0, 3)
	if d.unifiedMemory != nil && d.unifiedMemory(ctx) {
		out = append(out, MPS)
	}
	if d.discrete != nil && d.discrete(ctx) {
		out = append(out, CUDA)
	}
	out = append(out, CPU)
	d.log.Debug().Str("event", "detect").Strs("backends", kindStrings(out)).Msg("backend detection")
	return out
}

// Select resolves a configured preference. Empty or "auto" picks the most
// preferred detected backend; an explicit kind is an operator override and is
// returned as-is.
func (d *Detector) Select(ctx context.Context, preference string) (Kind, error) {
	p := strings.ToLower(strings.TrimSpace(preference))
	if p == "" || p == Auto {
		return d.Detect(ctx)[0], nil
	}
	return Parse(p)
}

func kindStrings(ks []Kind) []string {
	out := make([]string, len(ks))
	for i, k := range ks {
		out[i] = string(k)
	}
	return out
}

func probeAppleSilicon(context.Context) bool {
	return runtime.GOOS == "darwin" && runtime.GOARCH == "arm64"
}

func probeCUDA(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "nvidia-smi", "--query-gpu=name", "--format=csv,noheader")
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		// Containers without the CLI still expose the device node.
		_, statErr := os.Stat("/dev/nvidia0")
		return statErr == nil
	}
	return strings.TrimSpace(stdout.String()) != ""
}
