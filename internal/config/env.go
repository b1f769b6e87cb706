package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "FITROOM_"

// LoadDotEnv loads .env style files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides cfg with FITROOM_* variables found by lookup
// (os.LookupEnv when nil). FITROOM_MAX_QUEUE_DEPTH sets MaxQueueDepth and so on.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(key string) (string, bool) {
		v, ok := lookup(EnvPrefix + key)
		return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
	}
	strs := map[string]*string{
		"ADDR":         &cfg.Addr,
		"MODELS_DIR":   &cfg.ModelsDir,
		"BACKEND":      &cfg.Backend,
		"MODEL_TYPE":   &cfg.ModelType,
		"WORKER_URL":   &cfg.WorkerURL,
		"DB_PATH":      &cfg.DBPath,
		"OUTPUT_DIR":   &cfg.OutputDir,
		"LOG_LEVEL":    &cfg.LogLevel,
		"LOG_FORMAT":   &cfg.LogFormat,
		"LOG_FILE":     &cfg.LogFile,
		"OLLAMA_URL":   &cfg.OllamaURL,
		"VISION_MODEL": &cfg.VisionModel,
		"TEXT_MODEL":   &cfg.TextModel,
		"LLAMA_MODEL":  &cfg.LlamaModel,
	}
	for k, p := range strs {
		if v, ok := get(k); ok {
			*p = v
		}
	}
	ints := map[string]*int{
		"MAX_QUEUE_DEPTH": &cfg.MaxQueueDepth,
		"DEFAULT_STEPS":   &cfg.DefaultSteps,
		"MAX_BODY_MB":     &cfg.MaxBodyMB,
	}
	for k, p := range ints {
		if v, ok := get(k); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, k, err)
			}
			*p = n
		}
	}
	durs := map[string]*Duration{
		"WORKER_TIMEOUT": &cfg.WorkerTimeout,
		"MAX_WAIT":       &cfg.MaxWait,
		"PROMPT_TIMEOUT": &cfg.PromptTimeout,
		"TRYON_TIMEOUT":  &cfg.TryOnTimeout,
		"FETCH_TIMEOUT":  &cfg.FetchTimeout,
	}
	for k, p := range durs {
		if v, ok := get(k); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, k, err)
			}
			p.Duration = d
		}
	}
	if v, ok := get("DEFAULT_GUIDANCE"); ok {
		g, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%sDEFAULT_GUIDANCE: %w", EnvPrefix, err)
		}
		cfg.DefaultGuidance = g
	}
	if v, ok := get("CORS_ENABLED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sCORS_ENABLED: %w", EnvPrefix, err)
		}
		cfg.CORSEnabled = b
	}
	if v, ok := get("CORS_ORIGINS"); ok {
		cfg.CORSOrigins = SplitCSV(v)
	}
	return nil
}

// SplitCSV splits a comma-separated list, dropping empty entries.
func SplitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
