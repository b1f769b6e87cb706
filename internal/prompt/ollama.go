package prompt

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/singleflight"
)

// Default models and per-call timeouts.
const (
	DefaultVisionModel = "llava"
	DefaultTextModel   = "llama3.2"

	analyzeTimeout = 30 * time.Second
	promptTimeout  = 15 * time.Second
	stylingTimeout = 20 * time.Second
	probeTimeout   = 2 * time.Second

	modelsCacheTTL = 30 * time.Second
	modelsKey      = "models"
)

// Client is an Enhancer over an Ollama server's OpenAI-compatible API.
type Client struct {
	api     *openai.Client
	vision  string
	text    string
	timeout time.Duration
	log     zerolog.Logger
	models  *ttlcache.Cache[string, []string]
	listSF  singleflight.Group
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

func WithVisionModel(m string) ClientOption {
	return func(c *Client) {
		if m != "" {
			c.vision = m
		}
	}
}

func WithTextModel(m string) ClientOption {
	return func(c *Client) {
		if m != "" {
			c.text = m
		}
	}
}

// WithTimeout replaces the per-call timeouts with d.
func WithTimeout(d time.Duration) ClientOption { return func(c *Client) { c.timeout = d } }

func WithLogger(l zerolog.Logger) ClientOption { return func(c *Client) { c.log = l } }

// NewClient returns a client for an Ollama server at baseURL
// (e.g. http://localhost:11434).
func NewClient(baseURL string, opts ...ClientOption) *Client {
	cfg := openai.DefaultConfig("ollama")
	cfg.BaseURL = strings.TrimRight(baseURL, "/") + "/v1"
	// Deadlines come from per-call contexts.
	cfg.HTTPClient = &http.Client{Timeout: 0}
	c := &Client{
		api:    openai.NewClientWithConfig(cfg),
		vision: DefaultVisionModel,
		text:   DefaultTextModel,
		log:    zerolog.Nop(),
		models: ttlcache.New[string, []string](
			ttlcache.WithTTL[string, []string](modelsCacheTTL),
			ttlcache.WithDisableTouchOnHit[string, []string](),
		),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		d = c.timeout
	}
	return context.WithTimeout(ctx, d)
}

// Available reports whether the server lists its models.
func (c *Client) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	_, err := c.Models(ctx)
	return err == nil
}

// Models lists the server's models. Successful answers are cached briefly.
func (c *Client) Models(ctx context.Context) ([]string, error) {
	if it := c.models.Get(modelsKey); it != nil {
		return it.Value(), nil
	}
	// Concurrent probes share one round trip.
	v, err, _ := c.listSF.Do(modelsKey, func() (any, error) {
		list, err := c.api.ListModels(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]string, 0, len(list.Models))
		for _, m := range list.Models {
			out = append(out, m.ID)
		}
		c.models.Set(modelsKey, out, ttlcache.DefaultTTL)
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return v.([]string), nil
}

// AnalyzeGarment asks the vision model for a structured garment description.
func (c *Client) AnalyzeGarment(ctx context.Context, img []byte, mime string) (string, error) {
	if len(img) == 0 {
		return "", errors.New("empty garment image")
	}
	if mime == "" {
		mime = http.DetectContentType(img)
	}
	ctx, cancel := c.withTimeout(ctx, analyzeTimeout)
	defer cancel()
	dataURL := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img)
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.vision,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: analysisInstruction},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL, Detail: openai.ImageURLDetailAuto}},
			},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("analyze garment: %w", err)
	}
	return strings.TrimSpace(firstContent(resp)), nil
}

// GeneratePrompt asks the text model for a try-on prompt.
func (c *Client) GeneratePrompt(ctx context.Context, analysis string, opts Options) string {
	ctx, cancel := c.withTimeout(ctx, promptTimeout)
	defer cancel()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.text,
		Messages:    []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: promptInstruction(analysis, opts)}},
		Temperature: 0.7,
		TopP:        0.9,
	})
	if err != nil {
		c.log.Warn().Str("event", "prompt_fallback").Err(err).Msg("prompt generation failed")
		return FallbackPrompt(analysis)
	}
	p := CleanPrompt(firstContent(resp))
	if p == "" {
		return FallbackPrompt(analysis)
	}
	return p
}

// SuggestStyling asks the text model for styling tips.
func (c *Client) SuggestStyling(ctx context.Context, analysis string) (Styling, error) {
	ctx, cancel := c.withTimeout(ctx, stylingTimeout)
	defer cancel()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.text,
		Messages: []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: stylingInstruction(analysis)}},
	})
	if err != nil {
		return Styling{}, fmt.Errorf("suggest styling: %w", err)
	}
	return ParseStyling(firstContent(resp)), nil
}

func firstContent(resp openai.ChatCompletionResponse) string {
	if len(resp.Choices) == 0 {
		return ""
	}
	return resp.Choices[0].Message.Content
}
