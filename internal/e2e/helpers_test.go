package e2e

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"fitroom/internal/backend"
	"fitroom/internal/httpapi"
	"fitroom/internal/outputs"
	"fitroom/internal/pipeline"
	"fitroom/internal/registry"
	"fitroom/internal/service"
	"fitroom/internal/store"
	"fitroom/internal/variant"
	"fitroom/internal/worker"
)

// fakeWorker speaks the diffusion worker protocol and returns the subject
// image re-encoded as PNG.
type fakeWorker struct {
	mu        sync.Mutex
	next      int
	devices   map[string]string
	created   []string
	failTypes map[string]bool

	// unsupportedOn makes /generate fail with backend_unsupported_op on a device.
	unsupportedOn string
	delay         time.Duration
}

func newFakeWorker() *fakeWorker {
	return &fakeWorker{devices: map[string]string{}, failTypes: map[string]bool{}}
}

func (f *fakeWorker) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.HandleFunc("POST /v1/pipelines", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ModelType string `json:"model_type"`
			Device    string `json:"device"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		defer f.mu.Unlock()
		f.created = append(f.created, req.ModelType)
		if f.failTypes[req.ModelType] {
			writeWorkerError(w, http.StatusInternalServerError, "load_failed", "weights missing")
			return
		}
		f.next++
		id := fmt.Sprintf("p%d", f.next)
		f.devices[id] = req.Device
		_ = json.NewEncoder(w).Encode(map[string]string{"id": id})
	})
	mux.HandleFunc("POST /v1/pipelines/{id}/attention-slicing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /v1/pipelines/{id}/device", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Device string `json:"device"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		f.devices[r.PathValue("id")] = req.Device
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /v1/pipelines/{id}/generate", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		device := f.devices[r.PathValue("id")]
		unsupported, delay := f.unsupportedOn, f.delay
		f.mu.Unlock()
		if delay > 0 {
			time.Sleep(delay)
		}
		if unsupported != "" && device == unsupported {
			writeWorkerError(w, http.StatusUnprocessableEntity, worker.KindBackendUnsupported, "operator not implemented for "+device)
			return
		}
		var req struct {
			Image string `json:"image"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeWorkerError(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		raw, _ := base64.StdEncoding.DecodeString(req.Image)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(raw)
	})
	mux.HandleFunc("DELETE /v1/pipelines/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func writeWorkerError(w http.ResponseWriter, code int, kind, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg, "kind": kind})
}

type stack struct {
	srv *httptest.Server
	svc *service.Service
	db  *store.DB
}

// newStack wires the real HTTP API, service, store and worker client against
// a fake worker. unified selects whether the host reports an MPS device.
func newStack(t *testing.T, fw *fakeWorker, unified bool, cfg service.Config) stack {
	t.Helper()
	ctx := context.Background()
	ws := httptest.NewServer(fw.handler())
	t.Cleanup(ws.Close)

	dir := t.TempDir()
	db, err := store.Open(filepath.Join(dir, "fitroom.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	tracker, err := variant.NewTracker(ctx, db)
	if err != nil {
		t.Fatalf("tracker: %v", err)
	}
	outs, err := outputs.NewStore(filepath.Join(dir, "outputs"))
	if err != nil {
		t.Fatalf("outputs: %v", err)
	}
	catalog, err := registry.NewCatalog(filepath.Join(dir, "models"), nil)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	probe := func(v bool) backend.Probe { return func(context.Context) bool { return v } }
	svc, err := service.New(cfg, service.Deps{
		Detector: backend.NewDetector(backend.WithUnifiedMemoryProbe(probe(unified)), backend.WithDiscreteProbe(probe(false))),
		Loader:   pipeline.NewLoader(worker.NewClient(ws.URL, worker.WithRequestTimeout(10*time.Second)), catalog),
		Tracker:  tracker,
		History:  db,
		Outputs:  outs,
	})
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	_ = svc.Start(ctx)
	srv := httptest.NewServer(httpapi.NewMux(svc))
	t.Cleanup(srv.Close)
	return stack{srv: srv, svc: svc, db: db}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

// tryOnRequest builds a multipart try-on upload of a person and garment image.
func tryOnRequest(t *testing.T, baseURL string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, data := range map[string][]byte{"person_image": pngBytes(t, 120, 80), "garment_image": pngBytes(t, 60, 60)} {
		fw, err := mw.CreateFormFile(name, name+".png")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		_, _ = fw.Write(data)
	}
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	_ = mw.Close()
	req, err := http.NewRequest(http.MethodPost, baseURL+"/tryon", &body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func postTryOn(t *testing.T, baseURL string, fields map[string]string) *http.Response {
	t.Helper()
	resp, err := http.DefaultClient.Do(tryOnRequest(t, baseURL, fields))
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	return resp
}
