package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"fitroom/internal/common/fsutil"
	"fitroom/internal/config"
	"fitroom/internal/logging"
)

// app carries the resolved configuration into subcommands.
type app struct {
	cfg     config.Config
	log     zerolog.Logger
	closeFn func() error

	configPath string
	envFiles   []string
}

func newRootCmd() *cobra.Command {
	a := &app{cfg: config.Default()}
	root := &cobra.Command{
		Use:           "fitroomd",
		Short:         "Backend-adaptive virtual try-on server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.resolve(cmd.Flags())
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.closeFn != nil {
				return a.closeFn()
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Config file (.yaml, .yml, .json or .toml)")
	pf.StringSliceVar(&a.envFiles, "env-file", []string{".env"}, "dotenv files loaded before FITROOM_* variables")
	pf.String("db", a.cfg.DBPath, "SQLite database path")
	pf.String("log-level", a.cfg.LogLevel, "Log level: debug|info|warn|error|off")
	pf.String("log-format", a.cfg.LogFormat, "Log format: console|json")
	pf.String("log-file", "", "Also write JSON logs to this rotating file")

	root.AddCommand(newServeCmd(a), newDetectCmd(a), newVariantsCmd(a))
	return root
}

// resolve layers defaults, the config file, dotenv and FITROOM_* variables,
// then explicitly set flags.
func (a *app) resolve(fs *pflag.FlagSet) error {
	if a.configPath != "" {
		cfg, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}
	if err := config.LoadDotEnv(a.envFiles...); err != nil {
		return err
	}
	if err := config.ApplyEnv(&a.cfg, nil); err != nil {
		return err
	}
	applyFlags(fs, &a.cfg)
	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logFile, err := fsutil.ExpandHome(a.cfg.LogFile)
	if err != nil {
		return err
	}
	l, closeFn, err := logging.New(logging.Options{Level: a.cfg.LogLevel, Format: a.cfg.LogFormat, File: logFile})
	if err != nil {
		return err
	}
	a.log, a.closeFn = l, closeFn
	return nil
}

// applyFlags copies flags the user actually set onto cfg.
func applyFlags(fs *pflag.FlagSet, cfg *config.Config) {
	str := func(name string, dst *string) {
		if f := fs.Lookup(name); f != nil && f.Changed {
			*dst = f.Value.String()
		}
	}
	str("db", &cfg.DBPath)
	str("log-level", &cfg.LogLevel)
	str("log-format", &cfg.LogFormat)
	str("log-file", &cfg.LogFile)
	str("addr", &cfg.Addr)
	str("backend", &cfg.Backend)
	str("model-type", &cfg.ModelType)
	str("models-dir", &cfg.ModelsDir)
	str("worker-url", &cfg.WorkerURL)
	str("output-dir", &cfg.OutputDir)
	str("ollama-url", &cfg.OllamaURL)
	if f := fs.Lookup("max-queue-depth"); f != nil && f.Changed {
		if n, err := fs.GetInt("max-queue-depth"); err == nil {
			cfg.MaxQueueDepth = n
		}
	}
	if f := fs.Lookup("cors"); f != nil && f.Changed {
		if b, err := fs.GetBool("cors"); err == nil {
			cfg.CORSEnabled = b
		}
	}
}
