//go:build !llama

package prompt

import (
	"context"
	"errors"
)

// LocalBuilt reports whether the in-process enhancer is compiled in.
const LocalBuilt = false

var errLocalNotBuilt = errors.New("in-process prompt model not built; rebuild with -tags llama")

// Local is unavailable in builds without the llama tag.
type Local struct{}

// NewLocal always fails without the llama build tag.
func NewLocal(string, int, int) (*Local, error) { return nil, errLocalNotBuilt }

func (*Local) Available(context.Context) bool { return false }

func (*Local) Models(context.Context) ([]string, error) { return nil, errLocalNotBuilt }

func (*Local) AnalyzeGarment(context.Context, []byte, string) (string, error) {
	return "", errLocalNotBuilt
}

func (*Local) GeneratePrompt(_ context.Context, analysis string, _ Options) string {
	return FallbackPrompt(analysis)
}

func (*Local) SuggestStyling(context.Context, string) (Styling, error) {
	return Styling{}, errLocalNotBuilt
}

func (*Local) Close() error { return nil }
