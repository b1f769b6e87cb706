package httpapi

import (
	"context"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fitroom/internal/imageio"
	"fitroom/internal/prompt"
	"fitroom/internal/registry"
	"fitroom/internal/service"
	"fitroom/internal/store"
	"fitroom/internal/variant"
	"fitroom/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
// *service.Service implements it.
type Service interface {
	Ready() bool
	Status() types.StatusResponse
	Device() string
	Enhancer() prompt.Enhancer
	Models() []registry.Source

	TryOn(ctx context.Context, req service.TryOnRequest) (service.TryOnResult, error)
	AnalyzeGarment(ctx context.Context, garment imageio.Decoded, opts prompt.Options, withStyling bool) (string, string, *prompt.Styling, error)
	OpenResult(name string) (*os.File, error)

	Variants() []variant.Variant
	ReinstateVariant(ctx context.Context, name string) (variant.Variant, error)
	SetVariantEnabled(ctx context.Context, name string, enabled bool) (variant.Variant, error)

	Generations(ctx context.Context, limit int) ([]store.Generation, error)
	Generation(ctx context.Context, id string) (store.Generation, error)
	RateGeneration(ctx context.Context, id string, rating int) error
	DeleteGeneration(ctx context.Context, id string) error
}

// NewMux builds the router.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	// Result images are already compressed; only JSON is worth it.
	r.Use(middleware.Compress(5, "application/json"))
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   corsAllowedOrigins,
			AllowedMethods:   corsAllowedMethods,
			AllowedHeaders:   corsAllowedHeaders,
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	h := &handlers{svc: svc}

	r.Get("/", h.root)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(svc.Status().State))
	})
	r.Get("/status", func(w http.ResponseWriter, r *http.Request) { writeJSON(w, http.StatusOK, svc.Status()) })
	r.Get("/models", h.models)

	r.Post("/tryon", h.tryOn)
	r.Post("/tryon/multiview", func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusNotImplemented, "multi-view try-on is not supported")
	})
	r.Post("/analyze-garment", h.analyzeGarment)
	r.Get("/outputs/{name}", h.output)

	r.Route("/variants", func(r chi.Router) {
		r.Get("/", h.variants)
		r.Post("/{name}/reinstate", h.reinstate)
		r.Put("/{name}/enabled", h.setEnabled)
		r.Post("/{name}/enabled", h.setEnabled)
	})

	r.Route("/generations", func(r chi.Router) {
		r.Get("/", h.generations)
		r.Get("/{id}", h.generation)
		r.Post("/{id}/rate", h.rate)
		r.Delete("/{id}", h.deleteGeneration)
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	MountSwagger(r)
	return r
}

type handlers struct {
	svc Service
}

func (h *handlers) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.RootResponse{
		Name:          "fitroom",
		Status:        "running",
		Device:        h.svc.Device(),
		ModelsLoaded:  h.svc.Ready(),
		PromptService: h.svc.Enhancer().Available(r.Context()),
	})
}

func (h *handlers) models(w http.ResponseWriter, r *http.Request) {
	src := h.svc.Models()
	out := make([]types.ModelSource, len(src))
	for i, s := range src {
		out[i] = types.ModelSource{ModelType: s.ModelType, Ref: s.Ref, Local: s.Local}
	}
	writeJSON(w, http.StatusOK, types.ModelsResponse{Models: out})
}
