package handler

import (
	"errors"
	"net/http"

	"github.com/ashwinyue/ask-ai/internal/middleware"
	"github.com/ashwinyue/ask-ai/internal/service"
	"github.com/ashwinyue/ask-ai/internal/service/search"
	"github.com/ashwinyue/ask-ai/internal/service/stream"
	"github.com/gin-gonic/gin"
)

// SearchHandler 搜索问答处理器
type SearchHandler struct {
	svc *service.Services
}

// NewSearchHandler 创建搜索处理器
func NewSearchHandler(svc *service.Services) *SearchHandler {
	return &SearchHandler{svc: svc}
}

// SearchRequest 搜索问答请求
type SearchRequest struct {
	Question   string `json:"question" binding:"required"`
	EngineName string `json:"engine_name"`
	ModelName  string `json:"model_name"`
	Brief      bool   `json:"brief"`
}

// Search 搜索问答（流式）
// 事件按 source-links、message...、done 顺序推送
func (h *SearchHandler) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	userID, _ := middleware.GetUserID(c)

	ch, err := h.svc.Orchestrator.Search(c.Request.Context(), &search.Request{
		UserID:     userID,
		Question:   req.Question,
		EngineName: req.EngineName,
		ModelName:  req.ModelName,
		Brief:      req.Brief,
	})
	if err != nil {
		if errors.Is(err, stream.ErrAlreadyStreaming) {
			c.JSON(http.StatusConflict, Response{Code: -1, Message: err.Error()})
			return
		}
		errorResponse(c, err)
		return
	}

	// 设置 SSE 响应头
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("Transfer-Encoding", "chunked")

	// 客户端断开时停止转发，生产方按取消标记自行结束
	clientGone := c.Request.Context().Done()
	for event := range ch.Events() {
		select {
		case <-clientGone:
			ch.Cancel()
			return
		default:
			c.SSEvent(string(event.Type), event.Data)
			c.Writer.Flush()
		}
	}
}

// StopSearch 停止当前用户的流式回答
func (h *SearchHandler) StopSearch(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	if !h.svc.Orchestrator.Stop(userID) {
		c.JSON(http.StatusNotFound, Response{Code: -1, Message: "no active stream"})
		return
	}
	success(c, gin.H{"stopped": true})
}

// GetRecord 查询单条搜索记录
func (h *SearchHandler) GetRecord(c *gin.Context) {
	rec, err := h.svc.Orchestrator.GetRecord(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		c.JSON(http.StatusNotFound, Response{Code: -1, Message: "record not found"})
		return
	}
	success(c, rec)
}

// ListRecords 分页查询当前用户的搜索记录
func (h *SearchHandler) ListRecords(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	page, size := getPagination(c)

	records, total, err := h.svc.Orchestrator.ListRecords(c.Request.Context(), userID, (page-1)*size, size)
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, PaginationData{
		Items:    records,
		Total:    total,
		Page:     page,
		PageSize: size,
	})
}
