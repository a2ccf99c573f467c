package stream

import (
	"context"
	"errors"
	"io"
	"log"
	"runtime"
	"strings"
	"sync"

	"github.com/ashwinyue/ask-ai/internal/service/provider"
	"github.com/ashwinyue/ask-ai/internal/service/registry"
	"github.com/cloudwego/eino/schema"
)

// ErrAlreadyStreaming 该用户已有一条打开的通道
var ErrAlreadyStreaming = errors.New("user already has an active stream")

// hardWorkerCap 工作池大小上限
const hardWorkerCap = 64

// CompleteFunc 生成成功后触发一次，早于通道关闭
type CompleteFunc func(answer string, promptTokens, answerTokens int)

// Coordinator 流式补全协调器
// 每条流作为一个任务在有界工作池上执行，池满时排队而不是无限起协程
type Coordinator struct {
	registry *registry.Registry

	mu       sync.Mutex
	channels map[string]*Channel

	tasks     chan func()
	closeOnce sync.Once
}

// NewCoordinator 创建协调器并启动工作池
// maxWorkers <= 0 时取 GOMAXPROCS*2
func NewCoordinator(reg *registry.Registry, maxWorkers, queueSize int) *Coordinator {
	if maxWorkers <= 0 {
		maxWorkers = runtime.GOMAXPROCS(0) * 2
	}
	if maxWorkers > hardWorkerCap {
		maxWorkers = hardWorkerCap
	}
	if queueSize <= 0 {
		queueSize = maxWorkers * 4
	}

	co := &Coordinator{
		registry: reg,
		channels: make(map[string]*Channel),
		tasks:    make(chan func(), queueSize),
	}

	for i := 0; i < maxWorkers; i++ {
		go co.worker()
	}

	return co
}

func (co *Coordinator) worker() {
	for task := range co.tasks {
		task()
	}
}

// Open 为用户打开输出通道
// 检查和创建在同一临界区内完成，两个并发 Open 恰好一个成功
func (co *Coordinator) Open(userID string) (*Channel, error) {
	co.mu.Lock()
	defer co.mu.Unlock()

	if _, ok := co.channels[userID]; ok {
		return nil, ErrAlreadyStreaming
	}

	ch := newChannel(userID, 64, func() { co.release(userID) })
	co.channels[userID] = ch
	return ch, nil
}

func (co *Coordinator) release(userID string) {
	co.mu.Lock()
	defer co.mu.Unlock()
	delete(co.channels, userID)
}

// Cancel 取消用户当前打开的通道，没有打开的通道时返回 false
func (co *Coordinator) Cancel(userID string) bool {
	co.mu.Lock()
	ch, ok := co.channels[userID]
	co.mu.Unlock()

	if !ok {
		return false
	}
	ch.Cancel()
	return true
}

// Start 把一次流式补全任务提交到工作池
// 池满时阻塞排队。通道的所有权移交给任务，任务负责关闭
func (co *Coordinator) Start(ctx context.Context, ch *Channel, modelName string, params provider.StreamParams, onComplete CompleteFunc) {
	co.tasks <- func() {
		co.run(ctx, ch, modelName, params, onComplete)
	}
}

// Shutdown 停止接收新任务
func (co *Coordinator) Shutdown() {
	co.closeOnce.Do(func() {
		close(co.tasks)
	})
}

func (co *Coordinator) run(ctx context.Context, ch *Channel, modelName string, params provider.StreamParams, onComplete CompleteFunc) {
	client, err := co.registry.LookupByName(modelName)
	if err != nil {
		ch.Send(Event{Type: EventError, Data: err.Error()})
		ch.Close()
		return
	}

	sr, err := client.StreamComplete(ctx, params)
	if err != nil {
		log.Printf("stream complete failed, model %s: %v", modelName, err)
		ch.Send(Event{Type: EventError, Data: err.Error()})
		ch.Close()
		return
	}
	defer sr.Close()

	var answer strings.Builder
	var promptTokens, answerTokens int

	for {
		// 取消后不再转发，底层调用留给提供方自行结束
		if ch.IsCancelled() {
			ch.Close()
			return
		}

		msg, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Printf("provider stream error, model %s: %v", modelName, err)
			ch.Send(Event{Type: EventError, Data: err.Error()})
			ch.Close()
			return
		}

		if msg.Content != "" {
			if !ch.Send(Event{Type: EventMessage, Data: msg.Content}) {
				ch.Close()
				return
			}
			answer.WriteString(msg.Content)
		}

		if msg.ResponseMeta != nil && msg.ResponseMeta.Usage != nil {
			promptTokens = msg.ResponseMeta.Usage.PromptTokens
			answerTokens = msg.ResponseMeta.Usage.CompletionTokens
		}
	}

	// 提供方未返回用量时退化为估算
	if promptTokens == 0 {
		promptTokens = estimateTokens(params.SystemMessage) + estimateTokens(params.UserMessage) + estimateMessages(params.Memory)
	}
	if answerTokens == 0 {
		answerTokens = estimateTokens(answer.String())
	}

	if onComplete != nil {
		onComplete(answer.String(), promptTokens, answerTokens)
	}

	ch.Send(Event{Type: EventDone})
	ch.Close()
}

// estimateTokens 粗略 token 估算，约 4 字符 1 token
func estimateTokens(s string) int {
	if s == "" {
		return 0
	}
	n := len([]rune(s))
	return n/4 + 1
}

func estimateMessages(msgs []*schema.Message) int {
	total := 0
	for _, m := range msgs {
		total += estimateTokens(m.Content)
	}
	return total
}
