package search

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ashwinyue/ask-ai/internal/model"
	duckduckgov2 "github.com/cloudwego/eino-ext/components/tool/duckduckgo/v2"
	einotool "github.com/cloudwego/eino/components/tool"
)

const engineDuckDuckGo = "duckduckgo"

// DuckDuckGoEngine 基于 eino duckduckgo 工具的搜索引擎
type DuckDuckGoEngine struct {
	tool einotool.InvokableTool
}

// NewDuckDuckGoEngine 创建 DuckDuckGo 引擎
func NewDuckDuckGoEngine(ctx context.Context, maxResults int) (*DuckDuckGoEngine, error) {
	if maxResults <= 0 {
		maxResults = 10
	}

	searchTool, err := duckduckgov2.NewTextSearchTool(ctx, &duckduckgov2.Config{
		ToolName:   "web_search",
		ToolDesc:   "Search the web using DuckDuckGo.",
		MaxResults: maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create duckduckgo tool: %w", err)
	}

	return &DuckDuckGoEngine{tool: searchTool}, nil
}

// NewEngineFromTool 从已有工具构造引擎，测试时注入假工具
func NewEngineFromTool(tool einotool.InvokableTool) *DuckDuckGoEngine {
	return &DuckDuckGoEngine{tool: tool}
}

// Name 返回引擎名
func (e *DuckDuckGoEngine) Name() string {
	return engineDuckDuckGo
}

// Search 执行搜索
func (e *DuckDuckGoEngine) Search(ctx context.Context, query string) ([]model.WebPage, error) {
	args, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, err
	}

	raw, err := e.tool.InvokableRun(ctx, string(args))
	if err != nil {
		return nil, fmt.Errorf("duckduckgo search failed: %w", err)
	}

	return parseSearchOutput(raw)
}

// parseSearchOutput 解析搜索工具的 JSON 输出
func parseSearchOutput(raw string) ([]model.WebPage, error) {
	var resp struct {
		Message string `json:"message"`
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
			Summary     string `json:"summary"`
		} `json:"results"`
	}
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse search output: %w", err)
	}

	pages := make([]model.WebPage, 0, len(resp.Results))
	for _, r := range resp.Results {
		snippet := r.Description
		if snippet == "" {
			snippet = r.Summary
		}
		pages = append(pages, model.WebPage{
			Title:   r.Title,
			Link:    r.URL,
			Snippet: snippet,
		})
	}
	return pages, nil
}
