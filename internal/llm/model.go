package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"github.com/d00mkeeps/ibhackathon/config"
)

const (
	defaultOpenAIModel   = "gpt-4o-mini"
	defaultDeepSeekModel = "deepseek-chat"
	requestTimeout       = 5 * time.Minute
)

// NewChatModel builds the streaming chat model for the configured provider.
func NewChatModel(ctx context.Context, cfg *config.Config) (model.BaseChatModel, error) {
	if err := cfg.RequireCredentials(); err != nil {
		return nil, err
	}

	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		modelName := cfg.LLMModel
		if modelName == "" {
			modelName = defaultOpenAIModel
		}
		mcfg := &openai.ChatModelConfig{
			BaseURL: cfg.LLMBaseURL,
			APIKey:  cfg.OpenAIAPIKey,
			Model:   modelName,
			Timeout: requestTimeout,
		}
		if cfg.LLMMaxTokens > 0 {
			maxTokens := cfg.LLMMaxTokens
			mcfg.MaxTokens = &maxTokens
		}
		cm, err := openai.NewChatModel(ctx, mcfg)
		if err != nil {
			return nil, fmt.Errorf("create openai chat model: %w", err)
		}
		return cm, nil

	case config.ProviderDeepSeek:
		modelName := cfg.LLMModel
		if modelName == "" {
			modelName = defaultDeepSeekModel
		}
		cm, err := deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
			APIKey:    cfg.DeepSeekAPIKey,
			BaseURL:   cfg.LLMBaseURL,
			Model:     modelName,
			MaxTokens: cfg.LLMMaxTokens,
			Timeout:   requestTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("create deepseek chat model: %w", err)
		}
		return cm, nil
	}
	return nil, fmt.Errorf("%w: unknown llm provider %q", config.ErrConfiguration, cfg.LLMProvider)
}
