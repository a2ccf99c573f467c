// Package registry 提供模型客户端注册表（策略模式）
// 按名称分发到对应平台客户端，找不到时按注册顺序选择兜底模型
package registry

import (
	"errors"
	"log"
	"sync"

	"github.com/ashwinyue/ask-ai/internal/service/provider"
)

// ErrNoEnabledModel 没有任何可用模型，属于配置错误，调用方不应重试
var ErrNoEnabledModel = errors.New("no enabled model available")

// Registry 名称到客户端的注册表
// 读多写少：每次请求都会查询，仅管理端变更配置时写入
type Registry struct {
	mu      sync.RWMutex
	order   []string // 注册顺序，兜底选择按此顺序扫描
	clients map[string]provider.Client
}

// New 创建注册表
func New() *Registry {
	return &Registry{
		clients: make(map[string]provider.Client),
	}
}

// Register 注册客户端，同名覆盖且保持原有顺序位置
func (r *Registry) Register(c provider.Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.add(c)
}

func (r *Registry) add(c provider.Client) {
	name := c.Descriptor().Name
	if _, ok := r.clients[name]; !ok {
		r.order = append(r.order, name)
	}
	r.clients[name] = c
}

// Remove 按名称移除
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remove(name)
}

func (r *Registry) remove(name string) {
	if _, ok := r.clients[name]; !ok {
		return
	}
	delete(r.clients, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// ClearByPlatform 移除某平台下的全部客户端
func (r *Registry) ClearByPlatform(platform string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearPlatform(platform)
}

func (r *Registry) clearPlatform(platform string) {
	for _, name := range r.names() {
		if r.clients[name].Descriptor().Platform == platform {
			r.remove(name)
		}
	}
}

// ReloadPlatform 整体替换某平台的客户端集合
// 清除和重新注册在同一个临界区内完成，读方不会看到半空的平台
func (r *Registry) ReloadPlatform(platform string, clients []provider.Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.clearPlatform(platform)
	for _, c := range clients {
		log.Printf("register llm model: %s (platform %s)", c.Descriptor().Name, platform)
		r.add(c)
	}
}

// LookupByName 按名称查找客户端
// 名称为空或不存在时按注册顺序兜底：先找可用且免费的，再找任一可用的
func (r *Registry) LookupByName(name string) (provider.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name != "" {
		if c, ok := r.clients[name]; ok {
			return c, nil
		}
	}

	c, err := r.firstEnabled()
	if err != nil {
		return nil, err
	}
	log.Printf("Warning: model %q not found, falling back to %s", name, c.Descriptor().Name)
	return c, nil
}

// LookupByID 按描述 ID 查找，之后行为同 LookupByName
func (r *Registry) LookupByID(id string) (provider.Client, error) {
	r.mu.RLock()
	name := ""
	for _, n := range r.order {
		if r.clients[n].Descriptor().ID == id {
			name = n
			break
		}
	}
	r.mu.RUnlock()

	return r.LookupByName(name)
}

// firstEnabled 兜底选择，调用方需持有读锁
func (r *Registry) firstEnabled() (provider.Client, error) {
	var firstEnabled provider.Client
	for _, name := range r.order {
		c := r.clients[name]
		desc := c.Descriptor()
		if !desc.IsEnable {
			continue
		}
		if desc.IsFree {
			return c, nil
		}
		if firstEnabled == nil {
			firstEnabled = c
		}
	}
	if firstEnabled != nil {
		return firstEnabled, nil
	}
	return nil, ErrNoEnabledModel
}

// names 返回注册顺序的副本，调用方需持有锁
func (r *Registry) names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len 返回当前注册数量
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
