// Package cost 提供用户用量计数
package cost

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ashwinyue/ask-ai/internal/repository"
)

// Accountant 用量计数器
// 同一 (user, day) 键的累加串行化，保证并发计数不丢失
type Accountant struct {
	store repository.UsageStore

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewAccountant 创建计数器
func NewAccountant(store repository.UsageStore) *Accountant {
	return &Accountant{
		store: store,
		locks: make(map[string]*sync.Mutex),
	}
}

// AppendCostToUser 累加一次请求的 token 消耗
func (a *Accountant) AppendCostToUser(ctx context.Context, userID string, tokens int, isFree bool) error {
	day := Today()
	return a.increment(ctx, userID, day, 1, tokens, 0, isFree)
}

// AppendDrawToUser 累加绘图次数
func (a *Accountant) AppendDrawToUser(ctx context.Context, userID string, times int, isFree bool) error {
	day := Today()
	return a.increment(ctx, userID, day, 0, 0, times, isFree)
}

func (a *Accountant) increment(ctx context.Context, userID string, day int, requests, tokens, draws int, isFree bool) error {
	lock := a.lockFor(userID, day)
	lock.Lock()
	defer lock.Unlock()

	if err := a.store.IncrementUsage(ctx, userID, day, requests, tokens, draws, isFree); err != nil {
		return fmt.Errorf("failed to append cost for user %s: %w", userID, err)
	}
	return nil
}

// lockFor 返回 (user, day) 对应的互斥锁，没有则创建
func (a *Accountant) lockFor(userID string, day int) *sync.Mutex {
	key := fmt.Sprintf("%s:%d", userID, day)

	a.mu.Lock()
	defer a.mu.Unlock()

	lock, ok := a.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		a.locks[key] = lock
	}
	return lock
}

// Today 返回当天的 yyyymmdd 表示
func Today() int {
	now := time.Now()
	return now.Year()*10000 + int(now.Month())*100 + now.Day()
}
