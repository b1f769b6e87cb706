// Package config loads fitroomd settings from a file, the environment and an
// optional .env file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration written as a Go duration string ("10m") in
// every config format.
type Duration struct{ time.Duration }

func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Config holds runtime parameters for the service.
type Config struct {
	Addr      string `json:"addr" yaml:"addr" toml:"addr"`
	ModelsDir string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	// Backend is auto, cuda, mps or cpu.
	Backend   string `json:"backend" yaml:"backend" toml:"backend"`
	ModelType string `json:"model_type" yaml:"model_type" toml:"model_type"`

	WorkerURL     string   `json:"worker_url" yaml:"worker_url" toml:"worker_url"`
	WorkerTimeout Duration `json:"worker_timeout" yaml:"worker_timeout" toml:"worker_timeout"`

	DBPath    string `json:"db_path" yaml:"db_path" toml:"db_path"`
	OutputDir string `json:"output_dir" yaml:"output_dir" toml:"output_dir"`

	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format"`
	LogFile   string `json:"log_file" yaml:"log_file" toml:"log_file"`

	MaxQueueDepth   int      `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth"`
	MaxWait         Duration `json:"max_wait" yaml:"max_wait" toml:"max_wait"`
	DefaultSteps    int      `json:"default_steps" yaml:"default_steps" toml:"default_steps"`
	DefaultGuidance float64  `json:"default_guidance" yaml:"default_guidance" toml:"default_guidance"`

	OllamaURL     string   `json:"ollama_url" yaml:"ollama_url" toml:"ollama_url"`
	VisionModel   string   `json:"vision_model" yaml:"vision_model" toml:"vision_model"`
	TextModel     string   `json:"text_model" yaml:"text_model" toml:"text_model"`
	PromptTimeout Duration `json:"prompt_timeout" yaml:"prompt_timeout" toml:"prompt_timeout"`
	// LlamaModel is a GGUF path for the in-process enhancer (llama builds only).
	LlamaModel string `json:"llama_model" yaml:"llama_model" toml:"llama_model"`

	CORSEnabled bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	MaxBodyMB   int      `json:"max_body_mb" yaml:"max_body_mb" toml:"max_body_mb"`
	// TryOnTimeout bounds a whole /tryon request; 0 disables it.
	TryOnTimeout Duration `json:"tryon_timeout" yaml:"tryon_timeout" toml:"tryon_timeout"`
	FetchTimeout Duration `json:"fetch_timeout" yaml:"fetch_timeout" toml:"fetch_timeout"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:            ":8000",
		ModelsDir:       "~/.fitroom/models",
		Backend:         "auto",
		ModelType:       "idm-vton",
		WorkerURL:       "http://127.0.0.1:7860",
		WorkerTimeout:   Duration{15 * time.Minute},
		DBPath:          "~/.fitroom/fitroom.db",
		OutputDir:       "~/.fitroom/outputs",
		LogLevel:        "info",
		LogFormat:       "console",
		MaxQueueDepth:   8,
		MaxWait:         Duration{10 * time.Minute},
		DefaultSteps:    30,
		DefaultGuidance: 7.5,
		OllamaURL:       "http://localhost:11434",
		VisionModel:     "llava",
		TextModel:       "llama3.2",
		PromptTimeout:   Duration{30 * time.Second},
		CORSOrigins:     []string{"*"},
		MaxBodyMB:       20,
		FetchTimeout:    Duration{30 * time.Second},
	}
}

// Load reads a configuration file based on its extension on top of
// Default(). Keys absent from the file keep their defaults.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, errors.New("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	case ".toml":
		err = toml.Unmarshal(b, &cfg)
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	if err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that have no sensible fallback.
func (c Config) Validate() error {
	switch {
	case c.Addr == "":
		return errors.New("addr is required")
	case c.MaxQueueDepth < 1:
		return fmt.Errorf("max_queue_depth must be >= 1, got %d", c.MaxQueueDepth)
	case c.DefaultSteps < 1:
		return fmt.Errorf("default_steps must be >= 1, got %d", c.DefaultSteps)
	case c.DefaultGuidance < 0:
		return fmt.Errorf("default_guidance must be >= 0, got %g", c.DefaultGuidance)
	case c.TryOnTimeout.Duration < 0 || c.FetchTimeout.Duration < 0:
		return errors.New("tryon_timeout and fetch_timeout must be >= 0")
	case c.LogFormat != "console" && c.LogFormat != "json":
		return fmt.Errorf("log_format must be console or json, got %q", c.LogFormat)
	}
	return nil
}
