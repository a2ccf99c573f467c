// Package repository 提供用户用量数据访问层
package repository

import (
	"context"

	"github.com/ashwinyue/ask-ai/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UsageRepository 用户用量数据访问
type UsageRepository struct {
	db *gorm.DB
}

// NewUsageRepository 创建用量仓库
func NewUsageRepository(db *gorm.DB) *UsageRepository {
	return &UsageRepository{db: db}
}

// IncrementUsage 累加 (user, day) 计数，首次使用时插入新行
// 通过 ON CONFLICT 在数据库侧原子累加，避免并发丢失更新
func (r *UsageRepository) IncrementUsage(ctx context.Context, userID string, day int, requests, tokens, draws int, isFree bool) error {
	row := &model.UserDayCost{
		UserID:       userID,
		Day:          day,
		RequestTimes: requests,
		Tokens:       tokens,
		DrawTimes:    draws,
		IsFree:       isFree,
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "day"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"request_times": gorm.Expr("user_day_costs.request_times + ?", requests),
			"tokens":        gorm.Expr("user_day_costs.tokens + ?", tokens),
			"draw_times":    gorm.Expr("user_day_costs.draw_times + ?", draws),
			"is_free":       isFree,
		}),
	}).Create(row).Error
}

// GetByUserAndDay 获取用户某天的用量
func (r *UsageRepository) GetByUserAndDay(ctx context.Context, userID string, day int) (*model.UserDayCost, error) {
	var cost model.UserDayCost
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND day = ?", userID, day).
		First(&cost).Error
	if err != nil {
		return nil, err
	}
	return &cost, nil
}
