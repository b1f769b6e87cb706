//go:build llama

package prompt

// rpath $ORIGIN so libllama.so is found next to the binary in ./bin.
/*
#cgo LDFLAGS: -Wl,-rpath,'$ORIGIN' -L${SRCDIR}/../../bin -lllama
*/
import "C"

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	llama "github.com/go-skynet/go-llama.cpp"
)

// LocalBuilt reports whether the in-process enhancer is compiled in.
const LocalBuilt = true

const localMaxTokens = 160

// Local is an Enhancer backed by an in-process GGUF text model. It has no
// vision model, so AnalyzeGarment is unsupported.
type Local struct {
	mu      sync.Mutex
	model   *llama.LLama
	name    string
	threads int
}

// NewLocal loads the model at modelPath.
func NewLocal(modelPath string, ctxSize, threads int) (*Local, error) {
	if strings.TrimSpace(modelPath) == "" {
		return nil, errors.New("model path is empty")
	}
	if ctxSize <= 0 {
		ctxSize = 2048
	}
	m, err := llama.New(modelPath, llama.SetContext(ctxSize))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", modelPath, err)
	}
	return &Local{model: m, name: filepath.Base(modelPath), threads: max(1, threads)}, nil
}

func (l *Local) Available(context.Context) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.model != nil
}

func (l *Local) Models(context.Context) ([]string, error) { return []string{l.name}, nil }

func (l *Local) AnalyzeGarment(context.Context, []byte, string) (string, error) {
	return "", fmt.Errorf("%w: local model has no vision support", ErrUnavailable)
}

func (l *Local) GeneratePrompt(ctx context.Context, analysis string, opts Options) string {
	out, err := l.predict(ctx, promptInstruction(analysis, opts), llama.SetTemperature(0.7), llama.SetTopP(0.9))
	if err != nil {
		return FallbackPrompt(analysis)
	}
	if p := CleanPrompt(out); p != "" {
		return p
	}
	return FallbackPrompt(analysis)
}

func (l *Local) SuggestStyling(ctx context.Context, analysis string) (Styling, error) {
	out, err := l.predict(ctx, stylingInstruction(analysis))
	if err != nil {
		return Styling{}, err
	}
	return ParseStyling(out), nil
}

func (l *Local) predict(ctx context.Context, text string, extra ...llama.PredictOption) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.model == nil {
		return "", ErrUnavailable
	}
	l.model.SetTokenCallback(func(string) bool { return ctx.Err() == nil })
	po := append([]llama.PredictOption{llama.SetTokens(localMaxTokens), llama.SetThreads(l.threads)}, extra...)
	out, err := l.model.Predict(text, po...)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	return out, nil
}

// Close frees the model.
func (l *Local) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.model != nil {
		l.model.Free()
		l.model = nil
	}
	return nil
}
