// Package llm wraps the text generation backends behind one interface.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	DefaultGeminiModel = "gemini-2.0-flash-lite"
	DefaultOpenAIModel = openai.GPT4oMini
)

var ErrEmptyResponse = errors.New("empty response from LLM")

// Generator turns a prompt into free-form text.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Close() error
}

// Factory builds a Generator for one request using the caller's API key.
type Factory func(ctx context.Context, apiKey string) (Generator, error)

type Config struct {
	Provider string
	Model    string
	// BaseURL overrides the OpenAI endpoint; unused for Gemini.
	BaseURL string
}

func NewFactory(cfg Config) (Factory, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderGemini:
		model := cfg.Model
		if model == "" {
			model = DefaultGeminiModel
		}
		return func(ctx context.Context, apiKey string) (Generator, error) {
			return NewGemini(ctx, apiKey, model)
		}, nil
	case ProviderOpenAI:
		model := cfg.Model
		if model == "" {
			model = DefaultOpenAIModel
		}
		return func(_ context.Context, apiKey string) (Generator, error) {
			if apiKey == "" {
				return nil, errors.New("missing OpenAI API key")
			}
			return NewOpenAI(apiKey, model, cfg.BaseURL), nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}
