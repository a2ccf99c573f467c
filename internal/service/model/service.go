// Package model 提供模型配置管理服务
// 配置变更落库后按平台整体重载注册表，保证注册表与数据库一致
package model

import (
	"context"
	"fmt"
	"log"

	"github.com/ashwinyue/ask-ai/internal/model"
	"github.com/ashwinyue/ask-ai/internal/repository"
	"github.com/ashwinyue/ask-ai/internal/service/provider"
	"github.com/ashwinyue/ask-ai/internal/service/registry"
)

// ClientFactory 按模型描述构建平台客户端
type ClientFactory func(ctx context.Context, desc *model.AiModel) (provider.Client, error)

// Service 模型服务
type Service struct {
	repo     repository.ModelStore
	registry *registry.Registry
	factory  ClientFactory
}

// NewService 创建模型服务
func NewService(repo repository.ModelStore, reg *registry.Registry, factory ClientFactory) *Service {
	return &Service{
		repo:     repo,
		registry: reg,
		factory:  factory,
	}
}

// Init 从数据库加载全部文本模型并初始化注册表
func (s *Service) Init(ctx context.Context) error {
	for _, platform := range model.AllPlatforms {
		if err := s.reloadPlatform(ctx, platform); err != nil {
			return fmt.Errorf("init platform %s: %w", platform, err)
		}
	}
	log.Printf("model registry initialized, %d models loaded", s.registry.Len())
	return nil
}

// CreateModel 创建模型并重载所属平台
func (s *Service) CreateModel(ctx context.Context, m *model.AiModel) error {
	if err := s.repo.Create(ctx, m); err != nil {
		return fmt.Errorf("create model: %w", err)
	}
	return s.reloadPlatform(ctx, m.Platform)
}

// UpdateModel 更新模型并重载所属平台
func (s *Service) UpdateModel(ctx context.Context, m *model.AiModel) error {
	old, err := s.repo.GetByID(ctx, m.ID)
	if err != nil {
		return fmt.Errorf("get model: %w", err)
	}
	if err := s.repo.Update(ctx, m); err != nil {
		return fmt.Errorf("update model: %w", err)
	}
	// 平台变更时旧平台也要重载，否则旧客户端残留
	if old.Platform != m.Platform {
		if err := s.reloadPlatform(ctx, old.Platform); err != nil {
			return err
		}
	}
	return s.reloadPlatform(ctx, m.Platform)
}

// DeleteModel 删除模型并从注册表移除
func (s *Service) DeleteModel(ctx context.Context, id string) error {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get model: %w", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete model: %w", err)
	}
	s.registry.Remove(m.Name)
	return nil
}

// GetModelByID 根据 ID 获取模型
func (s *Service) GetModelByID(ctx context.Context, id string) (*model.AiModel, error) {
	return s.repo.GetByID(ctx, id)
}

// ListModels 列出模型
func (s *Service) ListModels(ctx context.Context, modelType *model.ModelType) ([]*model.AiModel, error) {
	return s.repo.List(ctx, modelType)
}

// reloadPlatform 从数据库重建某平台的客户端集合并整体替换
// 单个模型构建失败只跳过该模型，不影响同平台其他模型
func (s *Service) reloadPlatform(ctx context.Context, platform string) error {
	textType := model.ModelTypeText
	all, err := s.repo.List(ctx, &textType)
	if err != nil {
		return fmt.Errorf("list models: %w", err)
	}

	var clients []provider.Client
	for _, m := range all {
		if m.Platform != platform {
			continue
		}
		c, err := s.factory(ctx, m)
		if err != nil {
			log.Printf("Warning: failed to build client for model %s: %v", m.Name, err)
			continue
		}
		clients = append(clients, c)
	}

	s.registry.ReloadPlatform(platform, clients)
	return nil
}
