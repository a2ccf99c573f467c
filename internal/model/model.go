// Package model 提供数据模型
package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ModelType 模型类型
type ModelType string

const (
	ModelTypeText  ModelType = "text"  // 对话模型
	ModelTypeImage ModelType = "image" // 文生图模型
)

// ModelPlatform 模型所属平台
const (
	PlatformOpenAI    = "openai"
	PlatformDashScope = "dashscope"
	PlatformDeepSeek  = "deepseek"
	PlatformOllama    = "ollama"
)

// AllPlatforms 已支持的平台，顺序即初始化顺序
var AllPlatforms = []string{PlatformDeepSeek, PlatformOpenAI, PlatformDashScope, PlatformOllama}

// AiModel AI 模型描述
// name 是全局唯一键，平台重新加载时以 platform 为单位整体替换
type AiModel struct {
	ID             string         `json:"id" gorm:"type:varchar(36);primaryKey"`
	Name           string         `json:"name" gorm:"type:varchar(255);uniqueIndex;not null"`
	Title          string         `json:"title" gorm:"type:varchar(255)"`
	Platform       string         `json:"platform" gorm:"type:varchar(50);not null"`
	Type           ModelType      `json:"type" gorm:"type:varchar(50);not null;default:'text'"`
	IsEnable       bool           `json:"is_enable" gorm:"default:false"`
	IsFree         bool           `json:"is_free" gorm:"default:false"`
	MaxInputTokens int            `json:"max_input_tokens" gorm:"default:8192"`
	Remark         string         `json:"remark" gorm:"type:text"`
	CreatedAt      int64          `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      int64          `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt      gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// BeforeCreate GORM 钩子，创建前生成 UUID
func (m *AiModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

// TableName 指定表名
func (AiModel) TableName() string {
	return "ai_models"
}
