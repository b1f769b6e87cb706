// Package worker implements pipeline.Materializer against a diffusion worker
// process over HTTP. The worker hosts the model weights; this side only
// ships images and parameters.
package worker

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"fitroom/internal/backend"
	"fitroom/internal/pipeline"
)

// Error kinds reported by the worker in the JSON error body.
const (
	KindBackendUnsupported = "backend_unsupported_op"
	KindNotFound           = "not_found"
)

// Client talks to a worker's /v1/pipelines API.
type Client struct {
	baseURL    string
	reqTimeout time.Duration
	httpClient *http.Client
	log        zerolog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithRequestTimeout bounds each call; generation requests included.
func WithRequestTimeout(d time.Duration) Option { return func(c *Client) { c.reqTimeout = d } }

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.httpClient = h } }

func WithLogger(l zerolog.Logger) Option { return func(c *Client) { c.log = l } }

// NewClient returns a worker client for baseURL (e.g. http://127.0.0.1:7861).
func NewClient(baseURL string, opts ...Option) *Client {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          16,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		// Timeout=0: deadlines come from the request context.
		httpClient: &http.Client{Transport: tr, Timeout: 0},
		log:        zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type createRequest struct {
	ModelType string `json:"model_type"`
	Source    string `json:"source"`
	Local     bool   `json:"local"`
	Device    string `json:"device"`
	DType     string `json:"dtype"`
}

type createResponse struct {
	ID string `json:"id"`
}

type deviceRequest struct {
	Device string `json:"device"`
}

type generateRequest struct {
	Prompt        string  `json:"prompt"`
	Image         string  `json:"image"`
	GarmentImage  string  `json:"garment_image,omitempty"`
	MaskImage     string  `json:"mask_image,omitempty"`
	Steps         int     `json:"num_inference_steps"`
	GuidanceScale float64 `json:"guidance_scale"`
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// Health checks GET /healthz on the worker.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/healthz", nil, "")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Materialize asks the worker to build a pipeline.
func (c *Client) Materialize(ctx context.Context, req pipeline.MaterializeRequest) (pipeline.Pipeline, error) {
	body, err := json.Marshal(createRequest{
		ModelType: req.ModelType.String(),
		Source:    req.Source.Ref,
		Local:     req.Source.Local,
		Device:    req.Backend.String(),
		DType:     string(req.Precision),
	})
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, http.MethodPost, "/v1/pipelines", body, "application/json")
	if err != nil {
		return nil, fmt.Errorf("materialize %s: %w", req.ModelType, err)
	}
	defer resp.Body.Close()
	var out createResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("materialize %s: decode: %w", req.ModelType, err)
	}
	if out.ID == "" {
		return nil, fmt.Errorf("materialize %s: worker returned empty id", req.ModelType)
	}
	c.log.Debug().Str("event", "materialize").Str("pipeline_id", out.ID).Str("model_type", req.ModelType.String()).
		Str("device", req.Backend.String()).Msg("worker pipeline created")
	return &remotePipeline{c: c, id: out.ID, kind: req.Backend}, nil
}

// do sends one request and returns the response for 2xx statuses. Non-2xx
// responses are turned into errors; backend_unsupported_op becomes a
// backend runtime failure for the device in the path's pipeline.
func (c *Client) do(ctx context.Context, method, path string, body []byte, contentType string) (*http.Response, error) {
	if c.reqTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.reqTimeout)
		// cancel runs when the caller closes the body
		return c.send(ctx, cancel, method, path, body, contentType)
	}
	return c.send(ctx, func() {}, method, path, body, contentType)
}

func (c *Client) send(ctx context.Context, cancel context.CancelFunc, method, path string, body []byte, contentType string) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		cancel()
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		cancel()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer cancel()
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		return nil, decodeError(resp.Status, b)
	}
	resp.Body = cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

// statusError is a non-2xx worker response.
type statusError struct {
	status string
	kind   string
	msg    string
}

func (e *statusError) Error() string {
	if e.msg == "" {
		return "worker http error: " + e.status
	}
	return "worker http error: " + e.status + ": " + e.msg
}

func decodeError(status string, b []byte) error {
	var eb errorBody
	if err := json.Unmarshal(b, &eb); err != nil || (eb.Error == "" && eb.Kind == "") {
		return &statusError{status: status, msg: strings.TrimSpace(string(b))}
	}
	return &statusError{status: status, kind: eb.Kind, msg: eb.Error}
}

func errorKind(err error) string {
	var se *statusError
	if errors.As(err, &se) {
		return se.kind
	}
	return ""
}

type remotePipeline struct {
	c    *Client
	id   string
	kind backend.Kind
}

func (p *remotePipeline) path(suffix string) string { return "/v1/pipelines/" + p.id + suffix }

func (p *remotePipeline) Invoke(ctx context.Context, in pipeline.Inputs) (image.Image, error) {
	if in.Image == nil {
		return nil, errors.New("invoke: missing subject image")
	}
	req := generateRequest{Prompt: in.Prompt, Steps: in.Steps, GuidanceScale: in.Guidance}
	var err error
	if req.Image, err = encodePNG(in.Image); err != nil {
		return nil, err
	}
	if in.Garment != nil {
		if req.GarmentImage, err = encodePNG(in.Garment); err != nil {
			return nil, err
		}
	}
	if in.Mask != nil {
		if req.MaskImage, err = encodePNG(in.Mask); err != nil {
			return nil, err
		}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	resp, err := p.c.do(ctx, http.MethodPost, p.path("/generate"), body, "application/json")
	if err != nil {
		if errorKind(err) == KindBackendUnsupported {
			return nil, pipeline.ErrBackendRuntime(p.kind, err)
		}
		return nil, err
	}
	defer resp.Body.Close()
	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode worker image: %w", err)
	}
	p.c.log.Debug().Str("event", "invoke").Str("pipeline_id", p.id).Str("device", p.kind.String()).
		Dur("elapsed", time.Since(start)).Msg("worker generation finished")
	return img, nil
}

func (p *remotePipeline) MoveTo(ctx context.Context, kind backend.Kind) error {
	body, _ := json.Marshal(deviceRequest{Device: kind.String()})
	resp, err := p.c.do(ctx, http.MethodPost, p.path("/device"), body, "application/json")
	if err != nil {
		return err
	}
	resp.Body.Close()
	p.kind = kind
	return nil
}

func (p *remotePipeline) EnableAttentionSlicing(ctx context.Context) error {
	resp, err := p.c.do(ctx, http.MethodPost, p.path("/attention-slicing"), nil, "")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (p *remotePipeline) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	resp, err := p.c.do(ctx, http.MethodDelete, p.path(""), nil, "")
	if err != nil {
		if errorKind(err) == KindNotFound {
			return nil
		}
		return err
	}
	resp.Body.Close()
	return nil
}

func encodePNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
