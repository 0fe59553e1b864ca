// Package llm 提供场景脚本工作流使用的 ChatModel 工厂
package llm

import (
	"context"
	"fmt"
	"sync"

	"z-scene-ai-api/internal/config"
	apperrors "z-scene-ai-api/pkg/errors"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
)

// EinoFactory 按 provider 名惰性构建并缓存 ChatModel。
// 场景周期可以按请求指定 provider，未指定时落到配置的默认值。
type EinoFactory struct {
	llmCfg *config.LLMConfig

	mu    sync.RWMutex
	cache map[string]model.BaseChatModel
}

func NewEinoFactory(cfg *config.Config) *EinoFactory {
	return &EinoFactory{
		llmCfg: &cfg.LLM,
		cache:  make(map[string]model.BaseChatModel),
	}
}

// Get 返回 name 对应的 ChatModel，name 为空取默认 provider
func (f *EinoFactory) Get(ctx context.Context, name string) (model.BaseChatModel, error) {
	if name == "" {
		name = f.llmCfg.DefaultProvider
	}

	f.mu.RLock()
	cached, ok := f.cache[name]
	f.mu.RUnlock()
	if ok {
		return cached, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if cached, ok := f.cache[name]; ok {
		return cached, nil
	}

	providerCfg, ok := f.llmCfg.Providers[name]
	if !ok {
		return nil, apperrors.New(apperrors.CodeLLMProviderError, "llm provider error").
			WithDetail(fmt.Sprintf("provider %s is not configured", name))
	}

	temperature := float32(providerCfg.Temperature)
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:      providerCfg.APIKey,
		BaseURL:     providerCfg.BaseURL,
		Model:       providerCfg.Model,
		MaxTokens:   &providerCfg.MaxTokens,
		Temperature: &temperature,
		Timeout:     providerCfg.Timeout,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeLLMProviderError, "llm provider error").
			WithDetail(fmt.Sprintf("failed to build chat model for %s", name))
	}

	f.cache[name] = chatModel
	return chatModel, nil
}
