// Package prompt enhances try-on prompts with help from a local language
// model: garment analysis with a vision model, prompt writing and styling
// tips with a text model. Every operation degrades to a deterministic answer
// when the model service is unavailable.
package prompt

import (
	"context"
	"errors"
	"strings"
)

// ErrUnavailable is returned when no model service can be reached.
var ErrUnavailable = errors.New("prompt service unavailable")

// Enhancer is the prompt-enhancement collaborator used by the try-on flow.
type Enhancer interface {
	// Available reports whether the model service answers.
	Available(ctx context.Context) bool
	// Models lists the model names the service offers.
	Models(ctx context.Context) ([]string, error)
	// AnalyzeGarment describes a garment image (raw encoded bytes).
	AnalyzeGarment(ctx context.Context, img []byte, mime string) (string, error)
	// GeneratePrompt writes a generation prompt from a garment analysis. It
	// never fails; on error it returns FallbackPrompt(analysis).
	GeneratePrompt(ctx context.Context, analysis string, opts Options) string
	// SuggestStyling returns styling tips for a garment analysis.
	SuggestStyling(ctx context.Context, analysis string) (Styling, error)
}

// Options tune prompt generation.
type Options struct {
	Person string
	Style  string
}

// Styling holds parsed styling tips.
type Styling struct {
	Combinations string `json:"combinations,omitempty"`
	Occasions    string `json:"occasions,omitempty"`
	Accessories  string `json:"accessories,omitempty"`
}

// Empty reports whether no section was parsed.
func (s Styling) Empty() bool {
	return s.Combinations == "" && s.Occasions == "" && s.Accessories == ""
}

var cleanPrefixes = []string{
	"prompt:",
	"here's the prompt:",
	"here is the prompt:",
	"the prompt:",
}

// CleanPrompt strips lead-in phrases and surrounding quotes from model output.
func CleanPrompt(p string) string {
	p = strings.TrimSpace(p)
	for _, prefix := range cleanPrefixes {
		if strings.HasPrefix(strings.ToLower(p), prefix) {
			p = strings.TrimSpace(p[len(prefix):])
		}
	}
	return strings.Trim(p, `"'`)
}

// FallbackPrompt is the deterministic prompt used when the model fails.
func FallbackPrompt(analysis string) string {
	return "A person wearing " + strings.TrimSpace(analysis) +
		", photorealistic, high quality, detailed, proper fit, natural lighting, professional photo"
}

// ParseStyling reads the COMBINATIONS/OCCASIONS/ACCESSORIES sections of a
// styling answer. Continuation lines are appended to the current section.
func ParseStyling(answer string) Styling {
	var (
		s   Styling
		cur *string
	)
	labels := []struct {
		label string
		dst   *string
	}{
		{"COMBINATIONS:", &s.Combinations},
		{"OCCASIONS:", &s.Occasions},
		{"ACCESSORIES:", &s.Accessories},
	}
	for _, line := range strings.Split(answer, "\n") {
		line = strings.TrimSpace(line)
		matched := false
		for _, l := range labels {
			if strings.HasPrefix(line, l.label) {
				cur = l.dst
				*cur = strings.TrimSpace(strings.TrimPrefix(line, l.label))
				matched = true
				break
			}
		}
		if !matched && cur != nil && line != "" {
			if *cur == "" {
				*cur = line
			} else {
				*cur += " " + line
			}
		}
	}
	return s
}

const analysisInstruction = `Analyze this garment in detail. Answer in this structure:

TYPE: (t-shirt/shirt/hoodie/jacket/trousers/skirt/dress/...)
COLOR: (main color and any secondary colors)
PATTERN: (solid/stripes/checks/print/...)
MATERIAL: (cotton/denim/leather/fleece/athletic/...)
STYLE: (casual/formal/sport/vintage/modern/...)
DETAILS: (collar/hood/buttons/zipper/...)

Be brief but precise.`

func promptInstruction(analysis string, opts Options) string {
	person := opts.Person
	if strings.TrimSpace(person) == "" {
		person = "a person"
	}
	var b strings.Builder
	b.WriteString("You are an expert at writing prompts for AI image generation.\n")
	b.WriteString("Write the best prompt for a virtual try-on model.\n\n")
	b.WriteString("INFORMATION:\n")
	b.WriteString("- Person: " + person + "\n")
	b.WriteString("- Garment: " + analysis + "\n")
	if s := strings.TrimSpace(opts.Style); s != "" {
		b.WriteString("- Style preference: " + s + "\n")
	}
	b.WriteString(`
The prompt must ensure:
1. Realistic fit of the garment on the body
2. Correct light and shadows
3. Preserved material texture
4. Anatomical correctness
5. A photorealistic result

FORMAT: Return only the prompt itself, without explanation or comments.
LANGUAGE: English
LENGTH: At most 75 words

PROMPT:`)
	return b.String()
}

func stylingInstruction(analysis string) string {
	return "Give styling advice for this garment:\n\nGARMENT: " + analysis + `

Answer in this format:

COMBINATIONS: (what it pairs well with)
OCCASIONS: (where and when to wear it)
ACCESSORIES: (recommended accessories)

Be brief and practical.`
}

// Disabled is an Enhancer for deployments without a model service.
type Disabled struct{}

func (Disabled) Available(context.Context) bool { return false }

func (Disabled) Models(context.Context) ([]string, error) { return nil, ErrUnavailable }

func (Disabled) SuggestStyling(context.Context, string) (Styling, error) {
	return Styling{}, ErrUnavailable
}

func (Disabled) AnalyzeGarment(context.Context, []byte, string) (string, error) {
	return "", ErrUnavailable
}

func (Disabled) GeneratePrompt(_ context.Context, analysis string, _ Options) string {
	return FallbackPrompt(analysis)
}
