package main

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"fitroom/internal/backend"
	"fitroom/internal/common/fsutil"
	"fitroom/internal/config"
	"fitroom/internal/events"
	"fitroom/internal/httpapi"
	"fitroom/internal/outputs"
	"fitroom/internal/pipeline"
	"fitroom/internal/prompt"
	"fitroom/internal/registry"
	"fitroom/internal/service"
	"fitroom/internal/store"
	"fitroom/internal/variant"
	"fitroom/internal/worker"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Example: "  fitroomd serve --addr :8000 --backend auto\n" +
			"  fitroomd serve --config fitroom.yaml --worker-url http://gpu-box:7860",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), a.cfg, a.log)
		},
	}
	d := config.Default()
	f := cmd.Flags()
	f.String("addr", d.Addr, "HTTP listen address")
	f.String("backend", d.Backend, "Compute backend: auto|cuda|mps|cpu")
	f.String("model-type", d.ModelType, "Pipeline to load: idm-vton|sd-inpaint")
	f.String("models-dir", d.ModelsDir, "Directory holding <model-type>/ weight directories")
	f.String("worker-url", d.WorkerURL, "Diffusion worker base URL")
	f.String("output-dir", d.OutputDir, "Directory for result images")
	f.String("ollama-url", d.OllamaURL, "Prompt-enhancement service URL (empty disables)")
	f.Int("max-queue-depth", d.MaxQueueDepth, "Queued generations before 429")
	f.Bool("cors", d.CORSEnabled, "Enable CORS for cors_origins")
	return cmd
}

// stack is the wired service and what must be released with it.
type stack struct {
	svc     *service.Service
	catalog *registry.Catalog
	closers []func()
}

func (st *stack) close() {
	for i := len(st.closers) - 1; i >= 0; i-- {
		st.closers[i]()
	}
}

// buildStack wires store, tracker, loader, enhancer and service. One
// publisher, wrapped with the domain metrics, is shared by every component
// that emits events.
func buildStack(ctx context.Context, cfg config.Config, log zerolog.Logger) (*stack, error) {
	st := &stack{}
	fail := func(err error) (*stack, error) {
		st.close()
		return nil, err
	}
	db, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	st.closers = append(st.closers, func() { _ = db.Close() })

	pub := service.MetricsPublisher(events.LogPublisher{Log: log})
	tracker, err := variant.NewTracker(ctx, db, variant.WithLogger(log), variant.WithPublisher(pub))
	if err != nil {
		return fail(err)
	}
	if st.catalog, err = registry.NewCatalog(cfg.ModelsDir, nil); err != nil {
		return fail(err)
	}
	outDir, err := fsutil.ExpandHome(cfg.OutputDir)
	if err != nil {
		return fail(err)
	}
	outs, err := outputs.NewStore(outDir)
	if err != nil {
		return fail(err)
	}
	modelType, err := pipeline.ParseModelType(cfg.ModelType)
	if err != nil {
		return fail(err)
	}

	wc := worker.NewClient(cfg.WorkerURL, worker.WithRequestTimeout(cfg.WorkerTimeout.Duration), worker.WithLogger(log))
	if err := wc.Health(ctx); err != nil {
		log.Warn().Str("event", "worker_unreachable").Str("url", cfg.WorkerURL).Err(err).Msg("diffusion worker health check failed")
	}
	enhancer, closeEnhancer := buildEnhancer(cfg, log)
	st.closers = append(st.closers, closeEnhancer)

	guidance := cfg.DefaultGuidance
	st.svc, err = service.New(service.Config{
		ModelType:       modelType,
		Backend:         cfg.Backend,
		MaxQueueDepth:   cfg.MaxQueueDepth,
		MaxWait:         cfg.MaxWait.Duration,
		DefaultSteps:    cfg.DefaultSteps,
		DefaultGuidance: &guidance,
	}, service.Deps{
		Detector:  backend.NewDetector(backend.WithLogger(log)),
		Loader:    pipeline.NewLoader(wc, st.catalog, pipeline.WithLogger(log), pipeline.WithPublisher(pub)),
		Tracker:   tracker,
		History:   db,
		Outputs:   outs,
		Enhancer:  enhancer,
		Publisher: pub,
		Logger:    log,
	})
	if err != nil {
		return fail(err)
	}
	return st, nil
}

// configureHTTP applies the HTTP-layer settings from cfg.
func configureHTTP(cfg config.Config, log zerolog.Logger) {
	httpapi.SetLogger(log)
	httpapi.SetDefaultLogLevel(httpLogLevel(cfg.LogLevel))
	httpapi.SetMaxUploadBytes(int64(cfg.MaxBodyMB) << 20)
	httpapi.SetTryOnTimeout(cfg.TryOnTimeout.Duration)
	httpapi.SetFetchClient(&http.Client{Timeout: cfg.FetchTimeout.Duration})
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSOrigins,
		[]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		[]string{"Accept", "Content-Type", "X-Log-Level", "X-Request-Id"})
}

// serve wires the stack and blocks until ctx is canceled or the listener
// fails. A pipeline load failure is logged and leaves the server running
// but not ready.
func serve(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	st, err := buildStack(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()
	svc := st.svc
	configureHTTP(cfg, log)

	g, gctx := errgroup.WithContext(ctx)
	httpapi.SetBaseContext(gctx)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		log.Info().Str("event", "listen").Str("addr", cfg.Addr).Str("os", runtime.GOOS).Str("arch", runtime.GOARCH).
			Str("models_dir", st.catalog.Dir()).Str("worker", cfg.WorkerURL).Msg("fitroomd listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := svc.Start(gctx); err != nil {
			log.Error().Str("event", "startup_load_failed").Err(err).Msg("pipeline not loaded; serving in not-ready state")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Warn().Err(err).Msg("graceful shutdown error")
		}
		return svc.Close(sctx)
	})
	return g.Wait()
}

func openStore(cfg config.Config) (*store.DB, error) {
	p, err := fsutil.ExpandHome(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	return store.Open(p)
}

// buildEnhancer picks the in-process model when configured and compiled in,
// else the Ollama client, else Disabled.
func buildEnhancer(cfg config.Config, log zerolog.Logger) (prompt.Enhancer, func()) {
	if cfg.LlamaModel != "" && prompt.LocalBuilt {
		p, err := fsutil.ExpandHome(cfg.LlamaModel)
		if err == nil {
			l, lerr := prompt.NewLocal(p, 2048, runtime.NumCPU())
			if lerr == nil {
				log.Info().Str("event", "enhancer").Str("kind", "local").Str("model", p).Msg("prompt enhancer ready")
				return l, func() { _ = l.Close() }
			}
			err = lerr
		}
		log.Warn().Err(err).Msg("in-process prompt model unavailable; falling back to ollama")
	}
	if cfg.OllamaURL == "" {
		return prompt.Disabled{}, func() {}
	}
	c := prompt.NewClient(cfg.OllamaURL,
		prompt.WithVisionModel(cfg.VisionModel),
		prompt.WithTextModel(cfg.TextModel),
		prompt.WithTimeout(cfg.PromptTimeout.Duration),
		prompt.WithLogger(log))
	return c, func() {}
}

// httpLogLevel maps the process level to the per-request logging level.
func httpLogLevel(level string) string {
	switch level {
	case "debug", "error", "off":
		return level
	case "warn", "warning":
		return "error"
	}
	return "info"
}
