package provider

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/louisbranch/council.space/internal/platform/config"
)

// Config holds the connection settings for one provider family.
type Config struct {
	APIKey  string
	BaseURL string
}

// registryEnv maps provider credentials from the environment. Key names match
// what the provider vendors themselves document, not the service prefix.
type registryEnv struct {
	OpenAIAPIKey      string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL     string `env:"OPENAI_BASE_URL"`
	AnthropicAPIKey   string `env:"ANTHROPIC_API_KEY"`
	AnthropicBaseURL  string `env:"ANTHROPIC_BASE_URL"`
	GoogleAPIKey      string `env:"GOOGLE_API_KEY"`
	GeminiBaseURL     string `env:"GEMINI_BASE_URL"`
	PerplexityAPIKey  string `env:"PERPLEXITY_API_KEY"`
	PerplexityBaseURL string `env:"PERPLEXITY_BASE_URL"`
	OpenRouterAPIKey  string `env:"OPENROUTER_API_KEY"`
	OpenRouterBaseURL string `env:"OPENROUTER_BASE_URL"`
}

// Registry resolves provider identifiers to cached clients.
//
// Clients are constructed lazily, cached per family, and read-only after
// construction, so one registry is safely shared across concurrent rounds.
type Registry struct {
	mu         sync.Mutex
	configs    map[ID]Config
	clients    map[ID]Client
	httpClient *http.Client
}

// NewRegistry creates a registry from explicit per-provider configs.
func NewRegistry(configs map[ID]Config) *Registry {
	if configs == nil {
		configs = map[ID]Config{}
	}
	return &Registry{
		configs: configs,
		clients: map[ID]Client{},
	}
}

// NewRegistryFromEnv creates a registry configured from environment variables.
// Providers without an API key stay unconfigured rather than erroring; role
// validation decides later whether that is fatal.
func NewRegistryFromEnv() (*Registry, error) {
	var envCfg registryEnv
	if err := config.ParseEnv(&envCfg); err != nil {
		return nil, err
	}

	configs := map[ID]Config{}
	if envCfg.OpenAIAPIKey != "" {
		configs[OpenAI] = Config{APIKey: envCfg.OpenAIAPIKey, BaseURL: envCfg.OpenAIBaseURL}
	}
	if envCfg.AnthropicAPIKey != "" {
		configs[Anthropic] = Config{APIKey: envCfg.AnthropicAPIKey, BaseURL: envCfg.AnthropicBaseURL}
	}
	if envCfg.GoogleAPIKey != "" {
		configs[Gemini] = Config{APIKey: envCfg.GoogleAPIKey, BaseURL: envCfg.GeminiBaseURL}
	}
	if envCfg.PerplexityAPIKey != "" {
		configs[Perplexity] = Config{APIKey: envCfg.PerplexityAPIKey, BaseURL: envCfg.PerplexityBaseURL}
	}
	if envCfg.OpenRouterAPIKey != "" {
		configs[OpenRouter] = Config{APIKey: envCfg.OpenRouterAPIKey, BaseURL: envCfg.OpenRouterBaseURL}
	}
	return NewRegistry(configs), nil
}

// SetHTTPClient overrides the HTTP client used by newly built provider
// clients. Intended for tests; call before the first Client resolution.
func (r *Registry) SetHTTPClient(httpClient *http.Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.httpClient = httpClient
}

// Configured reports whether a provider family has credentials.
func (r *Registry) Configured(id ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.configs[id]
	return ok
}

// Client returns the cached client for a provider family, building it on
// first use.
func (r *Registry) Client(id ID) (Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if client, ok := r.clients[id]; ok {
		return client, nil
	}

	cfg, ok := r.configs[id]
	if !ok {
		return nil, fmt.Errorf("provider %q is not configured; set %s", id, EnvVar(id))
	}

	var client Client
	switch id {
	case OpenAI:
		client = NewOpenAI(cfg.APIKey, cfg.BaseURL, r.httpClient)
	case Anthropic:
		client = NewAnthropic(cfg.APIKey, cfg.BaseURL, r.httpClient)
	case Gemini:
		client = NewGemini(cfg.APIKey, cfg.BaseURL, r.httpClient)
	case Perplexity:
		client = NewPerplexity(cfg.APIKey, cfg.BaseURL, r.httpClient)
	case OpenRouter:
		client = NewOpenRouter(cfg.APIKey, cfg.BaseURL, r.httpClient)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, id)
	}

	r.clients[id] = client
	return client, nil
}

// ValidateModelID checks that a provider:model identifier parses and that its
// provider family has credentials.
func (r *Registry) ValidateModelID(modelID string) error {
	id, _, err := ParseModelID(modelID)
	if err != nil {
		return err
	}
	if !r.Configured(id) {
		return fmt.Errorf("provider %q for model %q is not configured; set %s", id, modelID, EnvVar(id))
	}
	return nil
}

// EnvVar returns the credential environment variable for a provider family.
func EnvVar(id ID) string {
	if id == Gemini {
		return "GOOGLE_API_KEY"
	}
	return strings.ToUpper(string(id)) + "_API_KEY"
}
