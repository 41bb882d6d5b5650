package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"
)

type Config struct {
	APIKey         string  `envconfig:"API_KEY" split_words:"true"`
	BaseURL        string  `envconfig:"BASE_URL" split_words:"true"`
	Model          string  `envconfig:"MODEL" split_words:"true" default:"gemini-2.5-flash"`
	MaxTokens      int     `envconfig:"MAX_TOKENS" split_words:"true" default:"2000"`
	Temperature    float32 `envconfig:"TEMPERATURE" split_words:"true" default:"0.2"`
	ThinkingBudget int32   `envconfig:"THINKING_BUDGET" split_words:"true" default:"0"`
}

func (c *Config) New(ctx context.Context) (model.BaseChatModel, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(c.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if c.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = c.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	temp := c.Temperature
	maxTokens := c.MaxTokens
	conf := &gemini.Config{
		Client:      client,
		Model:       strings.TrimSpace(c.Model),
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	}
	if c.ThinkingBudget > 0 {
		conf.ThinkingConfig = &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  genai.Ptr(c.ThinkingBudget),
		}
	}

	m, err := gemini.NewChatModel(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("gemini: create chat model: %w", err)
	}
	return m, nil
}
