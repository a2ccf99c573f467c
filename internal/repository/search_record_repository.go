// Package repository 提供搜索记录数据访问层
package repository

import (
	"context"

	"github.com/ashwinyue/ask-ai/internal/model"
	"gorm.io/gorm"
)

// SearchRecordRepository 搜索记录数据访问
type SearchRecordRepository struct {
	db *gorm.DB
}

// NewSearchRecordRepository 创建搜索记录仓库
func NewSearchRecordRepository(db *gorm.DB) *SearchRecordRepository {
	return &SearchRecordRepository{db: db}
}

// Save 保存搜索记录
func (r *SearchRecordRepository) Save(ctx context.Context, rec *model.SearchRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

// UpdateByUUID 按 uuid 就地更新已有记录，不会新增行
func (r *SearchRecordRepository) UpdateByUUID(ctx context.Context, rec *model.SearchRecord) error {
	return r.db.WithContext(ctx).
		Model(&model.SearchRecord{}).
		Where("uuid = ?", rec.UUID).
		Updates(map[string]interface{}{
			"engine_resp":   rec.EngineResp,
			"prompt":        rec.Prompt,
			"answer":        rec.Answer,
			"prompt_tokens": rec.PromptTokens,
			"answer_tokens": rec.AnswerTokens,
		}).Error
}

// GetByUUID 根据 uuid 获取搜索记录
func (r *SearchRecordRepository) GetByUUID(ctx context.Context, uuid string) (*model.SearchRecord, error) {
	var rec model.SearchRecord
	err := r.db.WithContext(ctx).Where("uuid = ?", uuid).First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListByUser 列出用户的搜索记录
func (r *SearchRecordRepository) ListByUser(ctx context.Context, userID string, offset, limit int) ([]*model.SearchRecord, int64, error) {
	var records []*model.SearchRecord
	var total int64

	query := r.db.WithContext(ctx).Model(&model.SearchRecord{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&records).Error
	return records, total, err
}
