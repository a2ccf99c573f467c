package model

// AllModels 用于数据库自动迁移
var AllModels = []interface{}{
	&AiModel{},
	&SearchRecord{},
	&UserDayCost{},
}
