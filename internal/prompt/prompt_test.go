package prompt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanPrompt(t *testing.T) {
	cases := map[string]string{
		"Prompt: a man in a red jacket":              "a man in a red jacket",
		"Here's the prompt: \"woman, denim jacket\"": "woman, denim jacket",
		"here is the prompt: 'x'":                    "x",
		"  plain prompt  ":                           "plain prompt",
		"The prompt: fine":                           "fine",
	}
	for in, want := range cases {
		assert.Equal(t, want, CleanPrompt(in), in)
	}
}

func TestFallbackPrompt(t *testing.T) {
	assert.Equal(t,
		"A person wearing red hoodie, photorealistic, high quality, detailed, proper fit, natural lighting, professional photo",
		FallbackPrompt(" red hoodie "))
}

func TestParseStyling(t *testing.T) {
	answer := `Some intro
COMBINATIONS: dark jeans
  white sneakers
OCCASIONS: weekend
ACCESSORIES: watch

cap`
	s := ParseStyling(answer)
	assert.Equal(t, "dark jeans white sneakers", s.Combinations)
	assert.Equal(t, "weekend", s.Occasions)
	assert.Equal(t, "watch cap", s.Accessories)
	assert.True(t, ParseStyling("nothing structured").Empty())
}

// fakeOllama serves the OpenAI-compatible subset the client uses.
type fakeOllama struct {
	listCalls atomic.Int32
	lastReq   atomic.Value // openai.ChatCompletionRequest

	mu    sync.Mutex
	reply string
	fail  bool
}

func (f *fakeOllama) set(reply string, fail bool) {
	f.mu.Lock()
	f.reply, f.fail = reply, fail
	f.mu.Unlock()
}

func (f *fakeOllama) server(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		f.listCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ModelsList{Models: []openai.Model{{ID: "llava:latest"}, {ID: "llama3.2:latest"}}})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		f.lastReq.Store(req)
		f.mu.Lock()
		reply, fail := f.reply, f.fail
		f.mu.Unlock()
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]string{"message": "model not loaded", "type": "server_error"}})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: reply}}}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientModelsCached(t *testing.T) {
	f := &fakeOllama{}
	c := NewClient(f.server(t).URL)
	ctx := context.Background()

	assert.True(t, c.Available(ctx))
	models, err := c.Models(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"llava:latest", "llama3.2:latest"}, models)
	assert.Equal(t, int32(1), f.listCalls.Load())
}

func TestClientUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := NewClient(srv.URL)
	assert.False(t, c.Available(context.Background()))
	_, err := c.Models(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, FallbackPrompt("blue shirt"), c.GeneratePrompt(context.Background(), "blue shirt", Options{}))
}

func TestClientAnalyzeGarmentSendsImage(t *testing.T) {
	f := &fakeOllama{reply: "  TYPE: hoodie\nCOLOR: grey  "}
	c := NewClient(f.server(t).URL, WithVisionModel("llama3.2-vision"))

	got, err := c.AnalyzeGarment(context.Background(), []byte("\x89PNG\r\n\x1a\nfake"), "")
	require.NoError(t, err)
	assert.Equal(t, "TYPE: hoodie\nCOLOR: grey", got)

	req := f.lastReq.Load().(openai.ChatCompletionRequest)
	assert.Equal(t, "llama3.2-vision", req.Model)
	require.Len(t, req.Messages, 1)
	parts := req.Messages[0].MultiContent
	require.Len(t, parts, 2)
	assert.Contains(t, parts[0].Text, "TYPE:")
	require.NotNil(t, parts[1].ImageURL)
	assert.True(t, strings.HasPrefix(parts[1].ImageURL.URL, "data:image/png;base64,"))

	_, err = c.AnalyzeGarment(context.Background(), nil, "image/png")
	assert.Error(t, err)
}

func TestClientGeneratePromptCleansAndFallsBack(t *testing.T) {
	f := &fakeOllama{reply: `Here is the prompt: "a woman wearing a grey hoodie, soft light"`}
	c := NewClient(f.server(t).URL, WithTextModel("mistral"))
	ctx := context.Background()

	got := c.GeneratePrompt(ctx, "grey hoodie", Options{Style: "streetwear"})
	assert.Equal(t, "a woman wearing a grey hoodie, soft light", got)
	req := f.lastReq.Load().(openai.ChatCompletionRequest)
	assert.Equal(t, "mistral", req.Model)
	assert.InDelta(t, 0.7, req.Temperature, 1e-6)
	assert.InDelta(t, 0.9, req.TopP, 1e-6)
	assert.Contains(t, req.Messages[0].Content, "Style preference: streetwear")
	assert.Contains(t, req.Messages[0].Content, "At most 75 words")

	f.set(`""`, false)
	assert.Equal(t, FallbackPrompt("grey hoodie"), c.GeneratePrompt(ctx, "grey hoodie", Options{}))

	f.set("", true)
	assert.Equal(t, FallbackPrompt("grey hoodie"), c.GeneratePrompt(ctx, "grey hoodie", Options{}))
}

func TestClientSuggestStyling(t *testing.T) {
	f := &fakeOllama{reply: "COMBINATIONS: chinos\nOCCASIONS: office\nACCESSORIES: belt"}
	c := NewClient(f.server(t).URL)
	s, err := c.SuggestStyling(context.Background(), "oxford shirt")
	require.NoError(t, err)
	assert.Equal(t, Styling{Combinations: "chinos", Occasions: "office", Accessories: "belt"}, s)

	f.set("", true)
	_, err = c.SuggestStyling(context.Background(), "oxford shirt")
	assert.Error(t, err)
}

func TestDisabled(t *testing.T) {
	var e Enhancer = Disabled{}
	ctx := context.Background()
	assert.False(t, e.Available(ctx))
	_, err := e.AnalyzeGarment(ctx, []byte{1}, "")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, FallbackPrompt("x"), e.GeneratePrompt(ctx, "x", Options{}))
}
