// Package provider 提供各平台模型客户端
// 一个平台一个构造函数，统一通过 Client 接口暴露流式对话和向量化能力
package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/ashwinyue/ask-ai/internal/config"
	"github.com/ashwinyue/ask-ai/internal/model"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/embedding"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// StreamParams 一次流式补全的入参
type StreamParams struct {
	SystemMessage string
	UserMessage   string
	Memory        []*schema.Message
}

// Client 模型平台客户端
// StreamComplete 返回的 StreamReader 按提供方产出顺序逐块交付
type Client interface {
	Descriptor() *model.AiModel
	StreamComplete(ctx context.Context, params StreamParams) (*schema.StreamReader[*schema.Message], error)
	Embed(ctx context.Context, text string) ([]float64, error)
}

// chatClient 基于 eino ChatModel 的客户端实现
// 所有平台都走 OpenAI 兼容接口，仅接入点和凭证不同
type chatClient struct {
	desc      *model.AiModel
	chatModel einomodel.ChatModel
	embedder  embedding.Embedder
}

// New 根据模型描述构造对应平台的客户端
// embedder 为共享向量化器，可以为 nil（此时 Embed 返回错误）
func New(ctx context.Context, desc *model.AiModel, cfg *config.Config, embedder embedding.Embedder) (Client, error) {
	var pc config.PlatformConfig

	switch desc.Platform {
	case model.PlatformOpenAI:
		pc = cfg.AI.OpenAI
	case model.PlatformDashScope:
		pc = cfg.AI.DashScope
	case model.PlatformDeepSeek:
		pc = cfg.AI.DeepSeek
	case model.PlatformOllama:
		pc = cfg.AI.Ollama
	default:
		return nil, fmt.Errorf("unsupported platform: %s", desc.Platform)
	}

	if pc.APIKey == "" && desc.Platform != model.PlatformOllama {
		return nil, fmt.Errorf("api_key is required for platform: %s", desc.Platform)
	}

	cmCfg := &openai.ChatModelConfig{
		APIKey:  pc.APIKey,
		BaseURL: pc.BaseURL,
		Model:   desc.Name,
	}
	if pc.Timeout > 0 {
		cmCfg.Timeout = time.Duration(pc.Timeout) * time.Second
	}

	chatModel, err := openai.NewChatModel(ctx, cmCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model for %s: %w", desc.Name, err)
	}

	return &chatClient{
		desc:      desc,
		chatModel: chatModel,
		embedder:  embedder,
	}, nil
}

// Descriptor 返回模型描述
func (c *chatClient) Descriptor() *model.AiModel {
	return c.desc
}

// StreamComplete 发起流式补全
func (c *chatClient) StreamComplete(ctx context.Context, params StreamParams) (*schema.StreamReader[*schema.Message], error) {
	messages := make([]*schema.Message, 0, len(params.Memory)+2)
	if params.SystemMessage != "" {
		messages = append(messages, &schema.Message{Role: schema.System, Content: params.SystemMessage})
	}
	messages = append(messages, params.Memory...)
	messages = append(messages, &schema.Message{Role: schema.User, Content: params.UserMessage})

	return c.chatModel.Stream(ctx, messages)
}

// Embed 向量化文本
func (c *chatClient) Embed(ctx context.Context, text string) ([]float64, error) {
	if c.embedder == nil {
		return nil, fmt.Errorf("no embedder configured for model %s", c.desc.Name)
	}

	vectors, err := c.embedder.EmbedStrings(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed failed: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vector")
	}
	return vectors[0], nil
}
