package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/aktagon/llmkit/anthropic"
	"github.com/aktagon/llmkit/anthropic/types"
)

// Generator sends one prompt to a generative text backend and returns the
// raw response text. The text is untrusted.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

type LLMKitConfig struct {
	APIKey        string
	Model         string
	FallbackModel string
	MaxTokens     int
	Temperature   float64
}

// LLMKitGenerator talks to Anthropic through llmkit. When the primary model
// fails and a fallback model is configured, the prompt is retried once on
// the fallback.
type LLMKitGenerator struct {
	cfg LLMKitConfig
}

func NewLLMKitGenerator(cfg LLMKitConfig) (*LLMKitGenerator, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.Model = strings.TrimSpace(cfg.Model)
	cfg.FallbackModel = strings.TrimSpace(cfg.FallbackModel)
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("AI_API_KEY is required for the %s source", NameLLMSearch)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("AI_MODEL is required for the %s source", NameLLMSearch)
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2000
	}
	return &LLMKitGenerator{cfg: cfg}, nil
}

func (g *LLMKitGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	text, err := g.prompt(ctx, g.cfg.Model, systemPrompt, userPrompt)
	if err == nil {
		return text, nil
	}
	if g.cfg.FallbackModel == "" || g.cfg.FallbackModel == g.cfg.Model || ctx.Err() != nil {
		return "", err
	}

	text, fallbackErr := g.prompt(ctx, g.cfg.FallbackModel, systemPrompt, userPrompt)
	if fallbackErr != nil {
		return "", fmt.Errorf("%v; fallback: %w", err, fallbackErr)
	}
	return text, nil
}

type generation struct {
	text string
	err  error
}

// llmkit takes no context, so the call runs in a goroutine and is abandoned
// when ctx ends.
func (g *LLMKitGenerator) prompt(ctx context.Context, model, systemPrompt, userPrompt string) (string, error) {
	done := make(chan generation, 1)
	go func() {
		settings := types.RequestSettings{
			Model:       model,
			MaxTokens:   g.cfg.MaxTokens,
			Temperature: g.cfg.Temperature,
		}
		response, err := anthropic.PromptWithSettings(systemPrompt, userPrompt, "", g.cfg.APIKey, settings)
		if err != nil {
			done <- generation{err: fmt.Errorf("model %s: %w", model, err)}
			return
		}
		if len(response.Content) == 0 {
			done <- generation{err: fmt.Errorf("model %s: no content in response", model)}
			return
		}
		done <- generation{text: response.Content[0].Text}
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("model %s: %w", model, ctx.Err())
	case out := <-done:
		return out.text, out.err
	}
}
