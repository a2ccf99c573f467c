package handler

import (
	"net/http"

	dataModel "github.com/ashwinyue/ask-ai/internal/model"
	"github.com/ashwinyue/ask-ai/internal/service/model"
	"github.com/gin-gonic/gin"
)

// ModelHandler 模型管理处理器
type ModelHandler struct {
	svc *model.Service
}

// NewModelHandler 创建模型处理器
func NewModelHandler(svc *model.Service) *ModelHandler {
	return &ModelHandler{svc: svc}
}

// CreateModelRequest 创建模型请求
type CreateModelRequest struct {
	Name           string              `json:"name" binding:"required"`
	Title          string              `json:"title"`
	Platform       string              `json:"platform" binding:"required"`
	Type           dataModel.ModelType `json:"type"`
	IsEnable       bool                `json:"is_enable"`
	IsFree         bool                `json:"is_free"`
	MaxInputTokens int                 `json:"max_input_tokens"`
	Remark         string              `json:"remark"`
}

// UpdateModelRequest 更新模型请求
type UpdateModelRequest struct {
	Title          *string `json:"title"`
	IsEnable       *bool   `json:"is_enable"`
	IsFree         *bool   `json:"is_free"`
	MaxInputTokens *int    `json:"max_input_tokens"`
	Remark         *string `json:"remark"`
}

// CreateModel 创建模型
func (h *ModelHandler) CreateModel(c *gin.Context) {
	var req CreateModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	m := &dataModel.AiModel{
		Name:           req.Name,
		Title:          req.Title,
		Platform:       req.Platform,
		Type:           req.Type,
		IsEnable:       req.IsEnable,
		IsFree:         req.IsFree,
		MaxInputTokens: req.MaxInputTokens,
		Remark:         req.Remark,
	}
	if m.Type == "" {
		m.Type = dataModel.ModelTypeText
	}

	if err := h.svc.CreateModel(c.Request.Context(), m); err != nil {
		errorResponse(c, err)
		return
	}
	created(c, m)
}

// ListModels 列出模型
func (h *ModelHandler) ListModels(c *gin.Context) {
	var modelType *dataModel.ModelType
	if t := c.Query("type"); t != "" {
		mt := dataModel.ModelType(t)
		modelType = &mt
	}

	models, err := h.svc.ListModels(c.Request.Context(), modelType)
	if err != nil {
		errorResponse(c, err)
		return
	}
	success(c, models)
}

// GetModel 获取模型
func (h *ModelHandler) GetModel(c *gin.Context) {
	m, err := h.svc.GetModelByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, Response{Code: -1, Message: "model not found"})
		return
	}
	success(c, m)
}

// UpdateModel 更新模型
func (h *ModelHandler) UpdateModel(c *gin.Context) {
	var req UpdateModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	m, err := h.svc.GetModelByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, Response{Code: -1, Message: "model not found"})
		return
	}

	if req.Title != nil {
		m.Title = *req.Title
	}
	if req.IsEnable != nil {
		m.IsEnable = *req.IsEnable
	}
	if req.IsFree != nil {
		m.IsFree = *req.IsFree
	}
	if req.MaxInputTokens != nil {
		m.MaxInputTokens = *req.MaxInputTokens
	}
	if req.Remark != nil {
		m.Remark = *req.Remark
	}

	if err := h.svc.UpdateModel(c.Request.Context(), m); err != nil {
		errorResponse(c, err)
		return
	}
	success(c, m)
}

// DeleteModel 删除模型
func (h *ModelHandler) DeleteModel(c *gin.Context) {
	if err := h.svc.DeleteModel(c.Request.Context(), c.Param("id")); err != nil {
		errorResponse(c, err)
		return
	}
	success(c, gin.H{"deleted": true})
}
