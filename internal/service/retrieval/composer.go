// Package retrieval 提供向量与图谱检索合成
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// ErrRetrievalUnavailable 检索存储不可用
// 调用方应退化为无背景提示词，而不是让整个请求失败
var ErrRetrievalUnavailable = errors.New("retrieval store unavailable")

// Segment 检索到的一段上下文
type Segment struct {
	SourceID string  `json:"source_id"`
	Text     string  `json:"text"`
	Score    float64 `json:"score"`
}

// VectorStore 向量存储协作方
type VectorStore interface {
	Ingest(ctx context.Context, text string, metadata map[string]interface{}) error
	Retrieve(ctx context.Context, query string, filter map[string]string, maxResults int, minScore float64) ([]Segment, error)
}

// GraphStore 图谱存储协作方，从匹配实体出发做关联扩展
type GraphStore interface {
	Traverse(ctx context.Context, seedEntities []string) ([]Segment, error)
}

// Composer 检索合成器
type Composer struct {
	vector VectorStore
	graph  GraphStore

	promptOverhead   int
	avgSegmentTokens int
	maxResultsCap    int
}

// NewComposer 创建检索合成器，graph 可以为 nil
func NewComposer(vector VectorStore, graph GraphStore, promptOverhead, avgSegmentTokens, maxResultsCap int) *Composer {
	if promptOverhead <= 0 {
		promptOverhead = 512
	}
	if avgSegmentTokens <= 0 {
		avgSegmentTokens = 400
	}
	if maxResultsCap <= 0 {
		maxResultsCap = 10
	}
	return &Composer{
		vector:           vector,
		graph:            graph,
		promptOverhead:   promptOverhead,
		avgSegmentTokens: avgSegmentTokens,
		maxResultsCap:    maxResultsCap,
	}
}

// MaxResults 按模型输入预算推导检索条数，夹在 [1, cap] 内
func (c *Composer) MaxResults(maxInputTokens int) int {
	n := (maxInputTokens - c.promptOverhead) / c.avgSegmentTokens
	if n < 1 {
		n = 1
	}
	if n > c.maxResultsCap {
		n = c.maxResultsCap
	}
	return n
}

// Retrieve 执行检索合成
// 向量命中按相似度降序在前，图谱命中按遍历顺序追加在后，
// 按 SourceID 去重且向量命中优先
func (c *Composer) Retrieve(ctx context.Context, query string, filter map[string]string, maxInputTokens int, minScore float64, includeGraph bool) ([]Segment, error) {
	if c.vector == nil {
		return nil, ErrRetrievalUnavailable
	}

	maxResults := c.MaxResults(maxInputTokens)

	vectorHits, err := c.vector.Retrieve(ctx, query, filter, maxResults, minScore)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrievalUnavailable, err)
	}

	seen := make(map[string]bool, len(vectorHits))
	merged := make([]Segment, 0, len(vectorHits))
	for _, seg := range vectorHits {
		if seg.SourceID != "" && seen[seg.SourceID] {
			continue
		}
		seen[seg.SourceID] = true
		merged = append(merged, seg)
	}

	if includeGraph && c.graph != nil {
		graphHits, err := c.graph.Traverse(ctx, []string{query})
		if err != nil {
			// 图谱失败只降级，不影响向量命中
			log.Printf("Warning: graph traverse failed: %v", err)
			return merged, nil
		}
		for _, seg := range graphHits {
			if seg.SourceID != "" && seen[seg.SourceID] {
				continue
			}
			seen[seg.SourceID] = true
			merged = append(merged, seg)
		}
	}

	return merged, nil
}
