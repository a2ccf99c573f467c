// Package memory 提供会话记忆
// 以 redis 为主存储，进程内缓存加速热会话；redis 缺席时退化为纯内存
package memory

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"
)

const (
	// 会话在 Redis 中的过期时间（24小时）
	memoryTTL = 24 * time.Hour
	// Redis key 前缀
	memoryKeyPrefix = "memory:"
	// 每个会话保留的最大消息数
	maxMessages = 20
)

// Manager 会话记忆管理器
type Manager struct {
	mu    sync.RWMutex
	cache map[string][]*schema.Message
	redis *redis.Client
}

// messageData 消息数据（用于 Redis 存储）
type messageData struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewManager 创建记忆管理器，redisClient 可以为 nil
func NewManager(redisClient *redis.Client) *Manager {
	return &Manager{
		cache: make(map[string][]*schema.Message),
		redis: redisClient,
	}
}

// Load 加载会话历史消息
func (m *Manager) Load(ctx context.Context, key string) []*schema.Message {
	m.mu.RLock()
	msgs, ok := m.cache[key]
	m.mu.RUnlock()
	if ok {
		return msgs
	}

	if m.redis != nil {
		if msgs := m.loadFromRedis(ctx, key); msgs != nil {
			m.mu.Lock()
			m.cache[key] = msgs
			m.mu.Unlock()
			return msgs
		}
	}

	return nil
}

// Append 追加一轮问答并裁剪到最大长度
func (m *Manager) Append(ctx context.Context, key, question, answer string) {
	m.mu.Lock()
	msgs := append(m.cache[key],
		&schema.Message{Role: schema.User, Content: question},
		&schema.Message{Role: schema.Assistant, Content: answer},
	)
	if len(msgs) > maxMessages {
		msgs = msgs[len(msgs)-maxMessages:]
	}
	m.cache[key] = msgs
	m.mu.Unlock()

	if m.redis != nil {
		m.saveToRedis(ctx, key, msgs)
	}
}

// Clear 清空会话
func (m *Manager) Clear(ctx context.Context, key string) {
	m.mu.Lock()
	delete(m.cache, key)
	m.mu.Unlock()

	if m.redis != nil {
		if err := m.redis.Del(ctx, memoryKeyPrefix+key).Err(); err != nil {
			log.Printf("Warning: failed to delete memory %s: %v", key, err)
		}
	}
}

func (m *Manager) loadFromRedis(ctx context.Context, key string) []*schema.Message {
	data, err := m.redis.Get(ctx, memoryKeyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("Warning: failed to load memory %s: %v", key, err)
		}
		return nil
	}

	var stored []messageData
	if err := json.Unmarshal(data, &stored); err != nil {
		log.Printf("Warning: corrupt memory %s: %v", key, err)
		return nil
	}

	msgs := make([]*schema.Message, 0, len(stored))
	for _, md := range stored {
		msgs = append(msgs, &schema.Message{Role: roleToSchema(md.Role), Content: md.Content})
	}
	return msgs
}

func (m *Manager) saveToRedis(ctx context.Context, key string, msgs []*schema.Message) {
	stored := make([]messageData, 0, len(msgs))
	for _, msg := range msgs {
		stored = append(stored, messageData{Role: string(msg.Role), Content: msg.Content})
	}

	data, err := json.Marshal(stored)
	if err != nil {
		log.Printf("Warning: failed to marshal memory %s: %v", key, err)
		return
	}

	if err := m.redis.Set(ctx, memoryKeyPrefix+key, data, memoryTTL).Err(); err != nil {
		log.Printf("Warning: failed to save memory %s: %v", key, err)
	}
}

// roleToSchema 将字符串角色转换为 schema.RoleType
func roleToSchema(role string) schema.RoleType {
	switch role {
	case "system":
		return schema.System
	case "assistant":
		return schema.Assistant
	default:
		return schema.User
	}
}
