package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"

	contractx "github.com/tanpawarit/Chative-Commerce-Router/agent/contract"
	geminix "github.com/tanpawarit/Chative-Commerce-Router/pkg/gemini"
	openrouterx "github.com/tanpawarit/Chative-Commerce-Router/pkg/openrouter"
)

const (
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
)

type Config struct {
	Provider           string        `envconfig:"PROVIDER" split_words:"true" default:"openrouter"`
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.2"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`
	GeminiAPIKey       string        `envconfig:"GEMINI_API_KEY" split_words:"true"`
	GeminiBaseURL      string        `envconfig:"GEMINI_BASE_URL" split_words:"true"`
	EmbeddingModel     string        `envconfig:"EMBEDDING_MODEL" split_words:"true"`

	IntentModel              string  `envconfig:"INTENT_MODEL" split_words:"true"`
	SearchModel              string  `envconfig:"SEARCH_MODEL" split_words:"true"`
	CartModel                string  `envconfig:"CART_MODEL" split_words:"true"`
	CommunicationModel       string  `envconfig:"COMMUNICATION_MODEL" split_words:"true"`
	MemoryModel              string  `envconfig:"MEMORY_MODEL" split_words:"true"`
	IntentTemperature        float32 `envconfig:"INTENT_TEMPERATURE" split_words:"true" default:"-1"`
	SearchTemperature        float32 `envconfig:"SEARCH_TEMPERATURE" split_words:"true" default:"-1"`
	CartTemperature          float32 `envconfig:"CART_TEMPERATURE" split_words:"true" default:"-1"`
	CommunicationTemperature float32 `envconfig:"COMMUNICATION_TEMPERATURE" split_words:"true" default:"-1"`
	MemoryTemperature        float32 `envconfig:"MEMORY_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	switch c.provider() {
	case ProviderOpenRouter:
		if strings.TrimSpace(c.APIKey) == "" {
			return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
		}
	case ProviderGemini:
		if strings.TrimSpace(c.GeminiAPIKey) == "" {
			return fmt.Errorf("%w: gemini api key is required", contractx.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown llm provider %q", contractx.ErrValidation, c.Provider)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

func (c Config) provider() string {
	p := strings.ToLower(strings.TrimSpace(c.Provider))
	if p == "" {
		return ProviderOpenRouter
	}
	return p
}

// Resolve returns the model name and temperature for one agent, applying its overrides.
func (c Config) Resolve(agentType contractx.AgentType) (string, float32) {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	var override string
	var overrideTemp float32 = -1
	switch agentType {
	case contractx.AgentTypeIntent:
		override, overrideTemp = c.IntentModel, c.IntentTemperature
	case contractx.AgentTypeSearch:
		override, overrideTemp = c.SearchModel, c.SearchTemperature
	case contractx.AgentTypeCart:
		override, overrideTemp = c.CartModel, c.CartTemperature
	case contractx.AgentTypeCommunication:
		override, overrideTemp = c.CommunicationModel, c.CommunicationTemperature
	case contractx.AgentTypeMemory:
		override, overrideTemp = c.MemoryModel, c.MemoryTemperature
	}
	if v := strings.TrimSpace(override); v != "" {
		modelName = v
	}
	if overrideTemp >= 0 {
		temp = overrideTemp
	}
	return modelName, temp
}

func (c Config) OpenRouterFor(agentType contractx.AgentType) openrouterx.Config {
	modelName, temp := c.Resolve(agentType)
	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}

func (c Config) GeminiFor(agentType contractx.AgentType) geminix.Config {
	modelName, temp := c.Resolve(agentType)
	return geminix.Config{
		APIKey:      strings.TrimSpace(c.GeminiAPIKey),
		BaseURL:     strings.TrimSpace(c.GeminiBaseURL),
		Model:       modelName,
		MaxTokens:   c.MaxCompletionToken,
		Temperature: temp,
	}
}

// ModelFor builds the chat model for one agent using the configured provider.
func (c Config) ModelFor(ctx context.Context, agentType contractx.AgentType) (einomodel.BaseChatModel, error) {
	switch c.provider() {
	case ProviderGemini:
		cfg := c.GeminiFor(agentType)
		return cfg.New(ctx)
	case ProviderOpenRouter:
		cfg := c.OpenRouterFor(agentType)
		return cfg.New(ctx)
	default:
		return nil, fmt.Errorf("%w: unknown llm provider %q", contractx.ErrValidation, c.Provider)
	}
}
