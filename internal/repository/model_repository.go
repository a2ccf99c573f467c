// Package repository 提供模型数据访问层
package repository

import (
	"context"

	"github.com/ashwinyue/ask-ai/internal/model"
	"gorm.io/gorm"
)

// ModelRepository 模型数据访问
type ModelRepository struct {
	db *gorm.DB
}

// NewModelRepository 创建模型仓库
func NewModelRepository(db *gorm.DB) *ModelRepository {
	return &ModelRepository{db: db}
}

// Create 创建模型
func (r *ModelRepository) Create(ctx context.Context, m *model.AiModel) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// GetByID 根据 ID 获取模型
func (r *ModelRepository) GetByID(ctx context.Context, id string) (*model.AiModel, error) {
	var m model.AiModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetByName 根据名称获取模型
func (r *ModelRepository) GetByName(ctx context.Context, name string) (*model.AiModel, error) {
	var m model.AiModel
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// List 列出模型，按创建时间升序，保证注册顺序稳定
func (r *ModelRepository) List(ctx context.Context, modelType *model.ModelType) ([]*model.AiModel, error) {
	var models []*model.AiModel
	query := r.db.WithContext(ctx).Model(&model.AiModel{})

	if modelType != nil {
		query = query.Where("type = ?", *modelType)
	}

	err := query.Order("created_at ASC").Find(&models).Error
	return models, err
}

// Update 更新模型
func (r *ModelRepository) Update(ctx context.Context, m *model.AiModel) error {
	return r.db.WithContext(ctx).Save(m).Error
}

// Delete 删除模型
func (r *ModelRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&model.AiModel{}, "id = ?", id).Error
}
