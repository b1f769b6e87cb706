package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"fitroom/internal/config"
)

func TestApplyFlagsOnlyChanged(t *testing.T) {
	fs := pflag.NewFlagSet("t", pflag.ContinueOnError)
	fs.String("addr", ":8000", "")
	fs.String("backend", "auto", "")
	fs.Int("max-queue-depth", 8, "")
	fs.Bool("cors", false, "")
	if err := fs.Parse([]string{"--backend", "cpu", "--max-queue-depth", "2", "--cors"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg := config.Default()
	cfg.Addr = ":9999"
	applyFlags(fs, &cfg)
	if cfg.Addr != ":9999" {
		t.Fatalf("unset flag overrode config: %q", cfg.Addr)
	}
	if cfg.Backend != "cpu" || cfg.MaxQueueDepth != 2 || !cfg.CORSEnabled {
		t.Fatalf("flags not applied: %+v", cfg)
	}
}

func TestHTTPLogLevel(t *testing.T) {
	cases := map[string]string{"debug": "debug", "warn": "error", "info": "info", "off": "off", "": "info"}
	for in, want := range cases {
		if got := httpLogLevel(in); got != want {
			t.Fatalf("httpLogLevel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestVariantsListCommand(t *testing.T) {
	db := filepath.Join(t.TempDir(), "fitroom.db")
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"variants", "list", "--db", db, "--env-file", "", "--log-level", "off"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("execute: %v", err)
	}
	for _, name := range []string{"local", "local_paid", "cloud_free", "cloud_paid"} {
		if !strings.Contains(out.String(), name) {
			t.Fatalf("missing %s in output:\n%s", name, out.String())
		}
	}

	root = newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"variants", "disable", "nope", "--db", db, "--env-file", "", "--log-level", "off"})
	if err := root.ExecuteContext(context.Background()); err == nil {
		t.Fatalf("expected error for unknown variant")
	}
}

func TestDetectCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"detect", "--env-file", "", "--log-level", "off"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out.String(), "cpu") || !strings.Contains(out.String(), "platform:") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}
