// Package search 提供搜索问答编排
package search

import (
	"context"
	"errors"
	"sync"

	"github.com/ashwinyue/ask-ai/internal/model"
)

// ErrNoSearchResults 搜索引擎没有返回任何结果
var ErrNoSearchResults = errors.New("search engine returned no results")

// Engine 搜索引擎协作方
type Engine interface {
	Name() string
	Search(ctx context.Context, query string) ([]model.WebPage, error)
}

// Engines 按名称注册的搜索引擎集合
type Engines struct {
	mu          sync.RWMutex
	engines     map[string]Engine
	defaultName string
}

// NewEngines 创建引擎集合
func NewEngines(defaultName string) *Engines {
	return &Engines{
		engines:     make(map[string]Engine),
		defaultName: defaultName,
	}
}

// Register 注册引擎
func (e *Engines) Register(engine Engine) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.engines[engine.Name()] = engine
}

// Get 按名称获取引擎，名称为空或未注册时返回默认引擎
func (e *Engines) Get(name string) (Engine, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if name != "" {
		if engine, ok := e.engines[name]; ok {
			return engine, true
		}
	}
	engine, ok := e.engines[e.defaultName]
	return engine, ok
}
