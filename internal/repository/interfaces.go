// Package repository 定义数据访问接口
// 接口抽象使依赖注入和单元测试成为可能
package repository

import (
	"context"

	"github.com/ashwinyue/ask-ai/internal/model"
)

// ModelStore AI 模型描述数据访问接口
type ModelStore interface {
	Create(ctx context.Context, m *model.AiModel) error
	GetByID(ctx context.Context, id string) (*model.AiModel, error)
	GetByName(ctx context.Context, name string) (*model.AiModel, error)
	List(ctx context.Context, modelType *model.ModelType) ([]*model.AiModel, error)
	Update(ctx context.Context, m *model.AiModel) error
	Delete(ctx context.Context, id string) error
}

// SearchRecordStore 搜索记录数据访问接口
type SearchRecordStore interface {
	Save(ctx context.Context, rec *model.SearchRecord) error
	UpdateByUUID(ctx context.Context, rec *model.SearchRecord) error
	GetByUUID(ctx context.Context, uuid string) (*model.SearchRecord, error)
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]*model.SearchRecord, int64, error)
}

// UsageStore 用户用量数据访问接口
type UsageStore interface {
	IncrementUsage(ctx context.Context, userID string, day int, requests, tokens, draws int, isFree bool) error
	GetByUserAndDay(ctx context.Context, userID string, day int) (*model.UserDayCost, error)
}

var (
	_ ModelStore        = (*ModelRepository)(nil)
	_ SearchRecordStore = (*SearchRecordRepository)(nil)
	_ UsageStore        = (*UsageRepository)(nil)
)
