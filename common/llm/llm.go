package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Provider constants for LLM provider selection.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Contract violations. The call itself succeeded but the model's answer is unusable.
var (
	ErrNoChoices       = errors.New("llm returned zero choices")
	ErrEmptyContent    = errors.New("llm returned choice without content")
	ErrInvalidResponse = errors.New("llm response does not match schema")
)

// Client sends a single schema-constrained chat request and decodes the answer into result.
type Client interface {
	Chat(ctx context.Context, req Request, result any) (*Response, error)
	Model() string
}

type Request struct {
	SystemPrompt string
	UserPrompt   string
	SchemaName   string
	Schema       any
	MaxTokens    int
	Temperature  *float64 // nil = model default, explicit 0 = deterministic
}

type Response struct {
	Content          string // raw model output that was decoded
	FinishReason     string
	PromptTokens     int
	CompletionTokens int
}

// Config holds LLM client configuration.
type Config struct {
	Provider   string // "openai" or "anthropic"
	APIKey     string // Required: API key for the provider
	BaseURL    string // Optional: custom API endpoint (any OpenAI-compatible server works)
	Model      string
	MaxRetries int // SDK-level retries on transport errors; 0 disables
}

// New creates a Client for cfg.Provider. Defaults to OpenAI if no provider is specified.
func New(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	provider := cfg.Provider
	if provider == "" {
		provider = ProviderOpenAI
	}

	switch provider {
	case ProviderOpenAI:
		return newOpenAIClient(cfg), nil
	case ProviderAnthropic:
		return newAnthropicClient(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}

// IsContractViolation reports whether err means the model answered but broke the response contract.
func IsContractViolation(err error) bool {
	return errors.Is(err, ErrNoChoices) ||
		errors.Is(err, ErrEmptyContent) ||
		errors.Is(err, ErrInvalidResponse)
}

func GenerateSchema[T any]() any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

func Temp(t float64) *float64 {
	return &t
}
