package model

// UserDayCost 用户单日使用量计数
// (user_id, day) 唯一，计数只增不减，新的一天新起一行
type UserDayCost struct {
	ID           uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID       string `json:"user_id" gorm:"type:varchar(36);uniqueIndex:idx_user_day;not null"`
	Day          int    `json:"day" gorm:"uniqueIndex:idx_user_day;not null"` // yyyymmdd
	RequestTimes int    `json:"request_times" gorm:"default:0"`
	Tokens       int    `json:"tokens" gorm:"default:0"`
	DrawTimes    int    `json:"draw_times" gorm:"default:0"`
	IsFree       bool   `json:"is_free" gorm:"default:true"`
	CreatedAt    int64  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    int64  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (UserDayCost) TableName() string {
	return "user_day_costs"
}
