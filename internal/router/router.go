// Package router 设置 HTTP 路由
package router

import (
	"github.com/ashwinyue/ask-ai/internal/handler"
	"github.com/ashwinyue/ask-ai/internal/middleware"
	"github.com/gin-gonic/gin"
)

// SetupRouter 设置路由
func SetupRouter(h *handler.Handlers) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.UserMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1
	v1 := r.Group("/api/v1")
	{
		// Search 搜索问答
		search := v1.Group("/search")
		{
			search.POST("", h.Search.Search)
			search.POST("/stop", h.Search.StopSearch)
			search.GET("/records", h.Search.ListRecords)
			search.GET("/records/:uuid", h.Search.GetRecord)
		}

		// Model 模型管理
		models := v1.Group("/models")
		{
			models.POST("", h.Model.CreateModel)
			models.GET("", h.Model.ListModels)
			models.GET("/:id", h.Model.GetModel)
			models.PUT("/:id", h.Model.UpdateModel)
			models.DELETE("/:id", h.Model.DeleteModel)
		}
	}

	return r
}
