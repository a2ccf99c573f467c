// Package stream 提供流式补全协调器
// 每个用户同一时刻至多一条打开的输出通道，块按到达顺序交付
package stream

import (
	"sync"
)

// EventType 输出事件类型
type EventType string

const (
	// EventSourceLinks 来源链接事件，总是先于第一个回答块发出
	EventSourceLinks EventType = "source-links"
	// EventMessage 增量回答块
	EventMessage EventType = "message"
	// EventNoAnswer 搜索无结果的终止事件
	EventNoAnswer EventType = "no-answer"
	// EventDone 正常结束
	EventDone EventType = "done"
	// EventError 异常结束
	EventError EventType = "error"
)

// Event 推送给客户端的单个事件
type Event struct {
	Type EventType   `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Channel 面向单个用户的有序推送通道
// 关闭是终态且幂等；取消只停止转发，不强行中断生产方
type Channel struct {
	userID string
	events chan Event

	cancelOnce sync.Once
	cancelled  chan struct{}

	mu      sync.Mutex
	closed  bool
	onClose func()
}

func newChannel(userID string, buffer int, onClose func()) *Channel {
	return &Channel{
		userID:    userID,
		events:    make(chan Event, buffer),
		cancelled: make(chan struct{}),
		onClose:   onClose,
	}
}

// UserID 返回通道所属用户
func (c *Channel) UserID() string {
	return c.userID
}

// Events 返回消费端通道，Close 后被关闭
func (c *Channel) Events() <-chan Event {
	return c.events
}

// Send 推送一个事件，通道已关闭或已取消时返回 false
// 只允许当前持有通道的生产方调用
func (c *Channel) Send(evt Event) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.mu.Unlock()

	select {
	case c.events <- evt:
		return true
	case <-c.cancelled:
		return false
	}
}

// Cancel 请求停止转发，幂等
func (c *Channel) Cancel() {
	c.cancelOnce.Do(func() {
		close(c.cancelled)
	})
}

// IsCancelled 查询取消标记
func (c *Channel) IsCancelled() bool {
	select {
	case <-c.cancelled:
		return true
	default:
		return false
	}
}

// Close 终止通道，幂等
// 只允许当前持有通道的生产方调用
func (c *Channel) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	close(c.events)
	if c.onClose != nil {
		c.onClose()
	}
}
