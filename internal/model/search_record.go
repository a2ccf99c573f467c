package model

import (
	"database/sql/driver"
	"encoding/json"

	"gorm.io/gorm"
)

// WebPage 搜索引擎返回的单条结果
// Content 在详细搜索时会被替换为抓取到的正文纯文本
type WebPage struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Content string `json:"content,omitempty"`
}

// SearchEngineResp 搜索引擎响应，整体以 JSON 存库
type SearchEngineResp struct {
	Items []WebPage `json:"items"`
}

// Value 实现 driver.Valuer 接口
func (r SearchEngineResp) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// Scan 实现 sql.Scanner 接口
func (r *SearchEngineResp) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(b, r)
}

// SearchRecord 一次搜索问答记录
// 引擎返回结果后立即创建，生成完成后就地更新，同一 uuid 只有一行
type SearchRecord struct {
	UUID         string           `json:"uuid" gorm:"type:varchar(36);primaryKey"`
	Question     string           `json:"question" gorm:"type:text;not null"`
	EngineResp   SearchEngineResp `json:"engine_resp" gorm:"type:json"`
	Prompt       string           `json:"prompt" gorm:"type:text"`
	Answer       string           `json:"answer" gorm:"type:text"`
	PromptTokens int              `json:"prompt_tokens" gorm:"default:0"`
	AnswerTokens int              `json:"answer_tokens" gorm:"default:0"`
	UserID       string           `json:"user_id" gorm:"type:varchar(36);index;not null"`
	ModelID      string           `json:"model_id" gorm:"type:varchar(36)"`
	CreatedAt    int64            `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    int64            `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt    gorm.DeletedAt   `json:"deleted_at,omitempty" gorm:"index"`
}

// TableName 指定表名
func (SearchRecord) TableName() string {
	return "search_records"
}
