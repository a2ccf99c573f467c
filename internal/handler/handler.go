// Package handler 提供 HTTP 处理器
package handler

import (
	"github.com/ashwinyue/ask-ai/internal/service"
)

// Handlers 处理器集合
type Handlers struct {
	Search *SearchHandler
	Model  *ModelHandler
}

// NewHandlers 创建所有处理器
func NewHandlers(svc *service.Services) *Handlers {
	return &Handlers{
		Search: NewSearchHandler(svc),
		Model:  NewModelHandler(svc.Models),
	}
}
