// Package service 装配全部业务服务
package service

import (
	"context"
	"log"
	"time"

	"github.com/ashwinyue/ask-ai/internal/config"
	"github.com/ashwinyue/ask-ai/internal/model"
	"github.com/ashwinyue/ask-ai/internal/repository"
	"github.com/ashwinyue/ask-ai/internal/service/cost"
	"github.com/ashwinyue/ask-ai/internal/service/memory"
	modelsvc "github.com/ashwinyue/ask-ai/internal/service/model"
	"github.com/ashwinyue/ask-ai/internal/service/provider"
	"github.com/ashwinyue/ask-ai/internal/service/registry"
	"github.com/ashwinyue/ask-ai/internal/service/retrieval"
	"github.com/ashwinyue/ask-ai/internal/service/search"
	"github.com/ashwinyue/ask-ai/internal/service/stream"
	"github.com/cloudwego/eino-ext/components/embedding/dashscope"
	openaiemb "github.com/cloudwego/eino-ext/components/embedding/openai"
	"github.com/cloudwego/eino/components/embedding"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
)

// Services 服务集合
type Services struct {
	Config *config.Config

	Registry     *registry.Registry
	Models       *modelsvc.Service
	Coordinator  *stream.Coordinator
	Composer     *retrieval.Composer
	Orchestrator *search.Orchestrator
	Memory       *memory.Manager
	Accountant   *cost.Accountant

	Embedder embedding.Embedder
}

// NewServices 创建所有服务
// 外部基础设施（embedding、ES）缺失时记日志降级，不阻止启动
func NewServices(repo *repository.Repositories, cfg *config.Config, redisClient *redis.Client) (*Services, error) {
	ctx := context.Background()

	embedder := newEmbedder(ctx, cfg)

	esStore := newVectorStore(ctx, cfg, embedder)
	var vector retrieval.VectorStore
	if esStore != nil {
		vector = esStore
	}

	reg := registry.New()
	factory := func(ctx context.Context, desc *model.AiModel) (provider.Client, error) {
		return provider.New(ctx, desc, cfg, embedder)
	}
	models := modelsvc.NewService(repo.Model, reg, factory)
	if err := models.Init(ctx); err != nil {
		return nil, err
	}

	coordinator := stream.NewCoordinator(reg, cfg.Stream.MaxWorkers, cfg.Stream.QueueSize)

	composer := retrieval.NewComposer(vector, nil,
		cfg.Retrieval.PromptOverhead,
		cfg.Retrieval.AvgSegmentTokens,
		cfg.Retrieval.MaxResultsCap)

	engines := search.NewEngines(cfg.Search.DefaultEngine)
	if ddg, err := search.NewDuckDuckGoEngine(ctx, cfg.Search.MaxResults); err != nil {
		log.Printf("Warning: failed to create duckduckgo engine: %v", err)
	} else {
		engines.Register(ddg)
	}

	proxyURL := ""
	if cfg.Proxy.Enable {
		proxyURL = cfg.Proxy.GetURL()
	}
	fetcher := search.NewFetcher(proxyURL, 30*time.Second)

	memoryMgr := memory.NewManager(redisClient)
	accountant := cost.NewAccountant(repo.Usage)

	orchestrator := search.NewOrchestrator(
		engines, reg, coordinator, composer, vector, fetcher,
		repo.SearchRecord, accountant, memoryMgr,
		cfg.Retrieval.MinScore)

	return &Services{
		Config:       cfg,
		Registry:     reg,
		Models:       models,
		Coordinator:  coordinator,
		Composer:     composer,
		Orchestrator: orchestrator,
		Memory:       memoryMgr,
		Accountant:   accountant,
		Embedder:     embedder,
	}, nil
}

// newEmbedder 创建 Embedding 器
func newEmbedder(ctx context.Context, cfg *config.Config) embedding.Embedder {
	embCfg := cfg.AI.Embedding

	if embCfg.APIKey == "" {
		log.Printf("Warning: embedding api_key is empty, vector features disabled")
		return nil
	}

	modelName := embCfg.Model
	if modelName == "" {
		modelName = "text-embedding-v3"
	}

	switch embCfg.Provider {
	case "openai":
		embConfig := &openaiemb.EmbeddingConfig{
			APIKey:  embCfg.APIKey,
			BaseURL: embCfg.BaseURL,
			Model:   modelName,
		}
		if embCfg.Timeout > 0 {
			embConfig.Timeout = time.Duration(embCfg.Timeout) * time.Second
		}
		if embCfg.Dimensions > 0 {
			embConfig.Dimensions = &embCfg.Dimensions
		}
		embedder, err := openaiemb.NewEmbedder(ctx, embConfig)
		if err != nil {
			log.Printf("Warning: failed to create openai embedder: %v", err)
			return nil
		}
		return embedder

	case "alibaba", "qwen", "dashscope", "":
		embConfig := &dashscope.EmbeddingConfig{
			APIKey: embCfg.APIKey,
			Model:  modelName,
		}
		if embCfg.Timeout > 0 {
			embConfig.Timeout = time.Duration(embCfg.Timeout) * time.Second
		}
		if embCfg.Dimensions > 0 {
			embConfig.Dimensions = &embCfg.Dimensions
		}
		embedder, err := dashscope.NewEmbedder(ctx, embConfig)
		if err != nil {
			log.Printf("Warning: failed to create dashscope embedder: %v", err)
			return nil
		}
		return embedder

	default:
		log.Printf("Warning: unsupported embedding provider: %s", embCfg.Provider)
		return nil
	}
}

// newVectorStore 创建 ES 向量存储，缺配置或失败时返回 nil
func newVectorStore(ctx context.Context, cfg *config.Config, embedder embedding.Embedder) *retrieval.ESVectorStore {
	if embedder == nil {
		return nil
	}

	esCfg := cfg.Elastic
	if esCfg.Host == "" {
		log.Printf("Warning: elasticsearch host not configured")
		return nil
	}

	esClient, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{esCfg.Host},
		Username:  esCfg.Username,
		Password:  esCfg.Password,
	})
	if err != nil {
		log.Printf("Warning: failed to create es client: %v", err)
		return nil
	}

	indexName := esCfg.IndexPrefix + "_search_segments"

	store, err := retrieval.NewESVectorStore(ctx, esClient, indexName, embedder)
	if err != nil {
		log.Printf("Warning: failed to create vector store: %v", err)
		return nil
	}

	if err := store.EnsureIndex(ctx, cfg.AI.Embedding.Dimensions); err != nil {
		log.Printf("Warning: failed to ensure vector index: %v", err)
	}

	return store
}
