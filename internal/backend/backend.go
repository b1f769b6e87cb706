// Package backend describes the compute targets a pipeline can run on and
// detects which of them the host offers.
package backend

import (
	"fmt"
	"strings"
)

// Kind identifies a compute backend. The set is closed.
type Kind string

const (
	// CUDA is a discrete high-throughput accelerator (NVIDIA).
	CUDA Kind = "cuda"
	// MPS is a unified-memory accelerator (Apple Silicon, Metal Performance Shaders).
	MPS Kind = "mps"
	// CPU is always available and is the floor for downgrades.
	CPU Kind = "cpu"
)

// Auto asks Select to pick the most preferred detected backend.
const Auto = "auto"

// Precision is the numeric precision a pipeline is materialized with.
type Precision string

const (
	Full Precision = "float32"
	Half Precision = "float16"
)

// Edge caps applied to input images before inference.
const (
	unifiedMemoryMaxEdge = 384
	defaultMaxEdge       = 512
)

// Precision returns the precision policy for k. Half precision is numerically
// unstable on MPS, so only CUDA runs in float16.
func (k Kind) Precision() Precision {
	if k == CUDA {
		return Half
	}
	return Full
}

// MaxEdge returns the longest image edge fed to a pipeline on k.
func (k Kind) MaxEdge() int {
	if k == MPS {
		return unifiedMemoryMaxEdge
	}
	return defaultMaxEdge
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case CUDA, MPS, CPU:
		return true
	}
	return false
}

// Description is a human-friendly label used in logs and status output.
func (k Kind) Description() string {
	switch k {
	case CUDA:
		return "NVIDIA CUDA"
	case MPS:
		return "Apple Silicon (MPS)"
	case CPU:
		return "CPU"
	}
	return string(k)
}

func (k Kind) String() string { return string(k) }

// Parse converts a config or flag value into a Kind.
func Parse(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("unknown backend %q (want cuda|mps|cpu|auto)", s)
	}
	return k, nil
}
