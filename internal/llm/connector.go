package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Provider names as they appear in logs, metrics, and errors.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// DefaultOllamaURL is used when no local base URL is configured.
const DefaultOllamaURL = "http://localhost:11434"

// Completer produces text for a single prompt against one backend.
type Completer interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// langchainCompleter adapts a langchaingo model to the Completer interface.
type langchainCompleter struct {
	name        string
	model       llms.Model
	temperature float64
}

func (c *langchainCompleter) Name() string {
	return c.name
}

// Complete calls the model with a single prompt. An empty completion is an
// error: the debate engine has no use for a silent turn.
func (c *langchainCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt, llms.WithTemperature(c.temperature))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("empty response from %s", c.name)
	}
	return out, nil
}

// NewRemoteCompleter builds the credentialed cloud backend. Only
// OpenAI-compatible endpoints are supported; BaseURL points the client at
// proxies or compatible gateways.
func NewRemoteCompleter(apiKey, model, baseURL string, temperature float64) (Completer, error) {
	opts := []openai.Option{
		openai.WithModel(model),
		openai.WithToken(apiKey),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}

	m, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create remote model: %w", err)
	}

	log.Debug().
		Str("provider", ProviderOpenAI).
		Str("model", model).
		Msg("Created remote completer")

	return &langchainCompleter{name: ProviderOpenAI, model: m, temperature: temperature}, nil
}

// NewLocalCompleter builds the Ollama backend that ships with the
// deployment and needs no credential.
func NewLocalCompleter(baseURL, model string, temperature float64) (Completer, error) {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}

	m, err := ollama.New(
		ollama.WithServerURL(baseURL),
		ollama.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create local model: %w", err)
	}

	log.Debug().
		Str("provider", ProviderOllama).
		Str("model", model).
		Str("base_url", baseURL).
		Msg("Created local completer")

	return &langchainCompleter{name: ProviderOllama, model: m, temperature: temperature}, nil
}
