package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "addr: :9999\nmodels_dir: /tmp\nbackend: mps\nmax_wait: 2m\ncors_origins: [http://a, http://b]\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.ModelsDir != "/tmp" || cfg.Backend != "mps" || cfg.MaxWait.Duration != 2*time.Minute {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://b" {
		t.Fatalf("unexpected origins: %v", cfg.CORSOrigins)
	}
	if cfg.ModelType != "idm-vton" || cfg.DefaultSteps != 30 {
		t.Fatalf("absent keys must keep defaults: %+v", cfg)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"addr":":7070","worker_url":"http://w:1","worker_timeout":"90s","default_guidance":5.5}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.WorkerURL != "http://w:1" || cfg.WorkerTimeout.Duration != 90*time.Second || cfg.DefaultGuidance != 5.5 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "addr=\":8081\"\nmodel_type=\"sd-inpaint\"\nmax_queue_depth=3\nprompt_timeout=\"5s\"\ncors_enabled=true\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8081" || cfg.ModelType != "sd-inpaint" || cfg.MaxQueueDepth != 3 || cfg.PromptTimeout.Duration != 5*time.Second || !cfg.CORSEnabled {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
	if _, err := Load("/definitely/not/a/real/file-12345.yaml"); err == nil {
		t.Fatalf("expected error for nonexistent file")
	}
}

func TestLoadInvalidDocuments(t *testing.T) {
	d := t.TempDir()
	cases := map[string]string{
		"bad.yaml":     "addr: :8080\n: broken\n",
		"bad.json":     `{ "addr": ":8080", "models_dir": }`,
		"bad.toml":     "addr=:8080\nmodels_dir\n",
		"badwait.yaml": "max_wait: soon\n",
	}
	for name, body := range cases {
		if _, err := Load(writeTempFile(t, d, name, body)); err == nil {
			t.Fatalf("%s: expected parse error", name)
		}
	}
}

func TestValidate(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	bad := []func(*Config){
		func(c *Config) { c.Addr = "" },
		func(c *Config) { c.MaxQueueDepth = 0 },
		func(c *Config) { c.DefaultSteps = 0 },
		func(c *Config) { c.DefaultGuidance = -1 },
		func(c *Config) { c.LogFormat = "xml" },
		func(c *Config) { c.TryOnTimeout.Duration = -time.Second },
	}
	for i, mutate := range bad {
		c := Default()
		mutate(&c)
		if err := c.Validate(); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}
