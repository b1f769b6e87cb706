package httpapi

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"fitroom/internal/backend"
	"fitroom/internal/generate"
	"fitroom/internal/imageio"
	"fitroom/internal/prompt"
	"fitroom/internal/registry"
	"fitroom/internal/service"
	"fitroom/internal/store"
	"fitroom/internal/variant"
	"fitroom/pkg/types"
)

type mockService struct {
	ready    bool
	status   types.StatusResponse
	variants []variant.Variant
	gens     []store.Generation

	tryOnReq service.TryOnRequest
	tryOnErr error
	rated    map[string]int
	deleted  []string
	histErr  error
	result   string
}

func (m *mockService) Ready() bool                  { return m.ready }
func (m *mockService) Status() types.StatusResponse { return m.status }
func (m *mockService) Device() string               { return "cpu" }
func (m *mockService) Enhancer() prompt.Enhancer    { return prompt.Disabled{} }
func (m *mockService) Models() []registry.Source {
	return []registry.Source{{ModelType: "idm-vton", Ref: "yisol/IDM-VTON"}}
}

func (m *mockService) TryOn(_ context.Context, req service.TryOnRequest) (service.TryOnResult, error) {
	m.tryOnReq = req
	if m.tryOnErr != nil {
		return service.TryOnResult{}, m.tryOnErr
	}
	return service.TryOnResult{
		ID:         "g1",
		ResultName: "result_00000000-0000-0000-0000-000000000000.jpg",
		Variant:    "local",
		ModelType:  "idm-vton",
		Outcome:    generate.Outcome{Backend: backend.CPU, Prompt: generate.DefaultPrompt},
	}, nil
}

func (m *mockService) AnalyzeGarment(context.Context, imageio.Decoded, prompt.Options, bool) (string, string, *prompt.Styling, error) {
	return "", "", nil, prompt.ErrUnavailable
}

func (m *mockService) OpenResult(name string) (*os.File, error) {
	if m.result == "" {
		return nil, os.ErrNotExist
	}
	return os.Open(m.result)
}

func (m *mockService) Variants() []variant.Variant { return m.variants }

func (m *mockService) ReinstateVariant(_ context.Context, name string) (variant.Variant, error) {
	for _, v := range m.variants {
		if v.Name == name {
			v.Blacklisted = false
			return v, nil
		}
	}
	return variant.Variant{}, variant.ErrVariantNotFound
}

func (m *mockService) SetVariantEnabled(_ context.Context, name string, enabled bool) (variant.Variant, error) {
	for _, v := range m.variants {
		if v.Name == name {
			v.Enabled = enabled
			return v, nil
		}
	}
	return variant.Variant{}, variant.ErrVariantNotFound
}

func (m *mockService) Generations(context.Context, int) ([]store.Generation, error) {
	return m.gens, m.histErr
}

func (m *mockService) Generation(_ context.Context, id string) (store.Generation, error) {
	for _, g := range m.gens {
		if g.ID == id {
			return g, nil
		}
	}
	return store.Generation{}, store.ErrNotFound
}

func (m *mockService) RateGeneration(_ context.Context, id string, rating int) error {
	if rating < 0 || rating > store.MaxRating {
		return store.ErrInvalidRating
	}
	if m.rated == nil {
		m.rated = map[string]int{}
	}
	m.rated[id] = rating
	return nil
}

func (m *mockService) DeleteGeneration(_ context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.White)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

// multipartRequest builds a POST with the given files and fields.
func multipartRequest(t *testing.T, path string, files map[string][]byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, data := range files {
		fw, err := mw.CreateFormFile(name, name+".png")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		_, _ = fw.Write(data)
	}
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}
