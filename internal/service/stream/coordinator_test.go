package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ashwinyue/ask-ai/internal/model"
	"github.com/ashwinyue/ask-ai/internal/service/provider"
	"github.com/ashwinyue/ask-ai/internal/service/registry"
	"github.com/cloudwego/eino/schema"
)

// stubClient 测试用客户端，流内容由 streamFn 控制
type stubClient struct {
	desc     *model.AiModel
	streamFn func(ctx context.Context) (*schema.StreamReader[*schema.Message], error)
}

func (s *stubClient) Descriptor() *model.AiModel {
	return s.desc
}

func (s *stubClient) StreamComplete(ctx context.Context, params provider.StreamParams) (*schema.StreamReader[*schema.Message], error) {
	return s.streamFn(ctx)
}

func (s *stubClient) Embed(ctx context.Context, text string) ([]float64, error) {
	return nil, errors.New("not implemented")
}

func newTestCoordinator(stub *stubClient) *Coordinator {
	reg := registry.New()
	if stub != nil {
		reg.Register(stub)
	}
	return NewCoordinator(reg, 2, 4)
}

func chunkStream(chunks ...string) func(ctx context.Context) (*schema.StreamReader[*schema.Message], error) {
	return func(ctx context.Context) (*schema.StreamReader[*schema.Message], error) {
		msgs := make([]*schema.Message, 0, len(chunks))
		for _, c := range chunks {
			msgs = append(msgs, &schema.Message{Role: schema.Assistant, Content: c})
		}
		return schema.StreamReaderFromArray(msgs), nil
	}
}

func collectEvents(t *testing.T, ch *Channel) []Event {
	t.Helper()
	var events []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case evt, ok := <-ch.Events():
			if !ok {
				return events
			}
			events = append(events, evt)
		case <-timeout:
			t.Fatal("timed out waiting for events")
		}
	}
}

// ========== Open 测试 ==========

func TestOpen_SecondOpenFails(t *testing.T) {
	co := newTestCoordinator(nil)
	defer co.Shutdown()

	ch, err := co.Open("u1")
	if err != nil {
		t.Fatalf("Open() unexpected error: %v", err)
	}

	if _, err := co.Open("u1"); !errors.Is(err, ErrAlreadyStreaming) {
		t.Errorf("second Open() err = %v, want ErrAlreadyStreaming", err)
	}

	// 其他用户不受影响
	if _, err := co.Open("u2"); err != nil {
		t.Errorf("Open() for other user unexpected error: %v", err)
	}

	ch.Close()
	if _, err := co.Open("u1"); err != nil {
		t.Errorf("Open() after Close unexpected error: %v", err)
	}
}

func TestOpen_ConcurrentExactlyOneWins(t *testing.T) {
	co := newTestCoordinator(nil)
	defer co.Shutdown()

	const n = 16
	var wg sync.WaitGroup
	var opened, rejected atomic.Int32

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := co.Open("u1"); err == nil {
				opened.Add(1)
			} else if errors.Is(err, ErrAlreadyStreaming) {
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()

	if opened.Load() != 1 {
		t.Errorf("opened = %d, want 1", opened.Load())
	}
	if rejected.Load() != n-1 {
		t.Errorf("rejected = %d, want %d", rejected.Load(), n-1)
	}
}

// ========== Start 测试 ==========

func TestStart_ChunksInOrderThenDone(t *testing.T) {
	stub := &stubClient{
		desc:     &model.AiModel{Name: "m", Type: model.ModelTypeText, IsEnable: true},
		streamFn: chunkStream("你", "好", "！"),
	}
	co := newTestCoordinator(stub)
	defer co.Shutdown()

	ch, err := co.Open("u1")
	if err != nil {
		t.Fatalf("Open() unexpected error: %v", err)
	}

	var completions atomic.Int32
	var gotAnswer string
	co.Start(context.Background(), ch, "m", provider.StreamParams{UserMessage: "hi"}, func(answer string, pt, at int) {
		completions.Add(1)
		gotAnswer = answer
	})

	events := collectEvents(t, ch)

	var chunks []string
	for _, evt := range events {
		if evt.Type == EventMessage {
			chunks = append(chunks, evt.Data.(string))
		}
	}
	if fmt.Sprint(chunks) != fmt.Sprint([]string{"你", "好", "！"}) {
		t.Errorf("chunks = %v, want [你 好 ！]", chunks)
	}
	if events[len(events)-1].Type != EventDone {
		t.Errorf("last event = %v, want done", events[len(events)-1].Type)
	}
	if completions.Load() != 1 {
		t.Errorf("completions = %d, want 1", completions.Load())
	}
	if gotAnswer != "你好！" {
		t.Errorf("answer = %q, want '你好！'", gotAnswer)
	}
}

func TestStart_UsageFromProvider(t *testing.T) {
	stub := &stubClient{
		desc: &model.AiModel{Name: "m", Type: model.ModelTypeText, IsEnable: true},
		streamFn: func(ctx context.Context) (*schema.StreamReader[*schema.Message], error) {
			return schema.StreamReaderFromArray([]*schema.Message{
				{Role: schema.Assistant, Content: "answer"},
				{Role: schema.Assistant, Content: "", ResponseMeta: &schema.ResponseMeta{
					Usage: &schema.TokenUsage{PromptTokens: 7, CompletionTokens: 3},
				}},
			}), nil
		},
	}
	co := newTestCoordinator(stub)
	defer co.Shutdown()

	ch, _ := co.Open("u1")

	var gotPT, gotAT int
	co.Start(context.Background(), ch, "m", provider.StreamParams{UserMessage: "q"}, func(answer string, pt, at int) {
		gotPT, gotAT = pt, at
	})
	collectEvents(t, ch)

	if gotPT != 7 || gotAT != 3 {
		t.Errorf("tokens = (%d, %d), want (7, 3)", gotPT, gotAT)
	}
}

func TestStart_TokenEstimateFallback(t *testing.T) {
	stub := &stubClient{
		desc:     &model.AiModel{Name: "m", Type: model.ModelTypeText, IsEnable: true},
		streamFn: chunkStream("some answer text"),
	}
	co := newTestCoordinator(stub)
	defer co.Shutdown()

	ch, _ := co.Open("u1")

	var gotPT, gotAT int
	co.Start(context.Background(), ch, "m", provider.StreamParams{UserMessage: "a question"}, func(answer string, pt, at int) {
		gotPT, gotAT = pt, at
	})
	collectEvents(t, ch)

	if gotPT <= 0 {
		t.Errorf("promptTokens = %d, want > 0", gotPT)
	}
	if gotAT <= 0 {
		t.Errorf("answerTokens = %d, want > 0", gotAT)
	}
}

func TestStart_MidStreamError(t *testing.T) {
	stub := &stubClient{
		desc: &model.AiModel{Name: "m", Type: model.ModelTypeText, IsEnable: true},
		streamFn: func(ctx context.Context) (*schema.StreamReader[*schema.Message], error) {
			sr, sw := schema.Pipe[*schema.Message](2)
			go func() {
				sw.Send(&schema.Message{Role: schema.Assistant, Content: "partial"}, nil)
				sw.Send(nil, errors.New("provider broke"))
				sw.Close()
			}()
			return sr, nil
		},
	}
	co := newTestCoordinator(stub)
	defer co.Shutdown()

	ch, _ := co.Open("u1")

	var completions atomic.Int32
	co.Start(context.Background(), ch, "m", provider.StreamParams{UserMessage: "q"}, func(answer string, pt, at int) {
		completions.Add(1)
	})
	events := collectEvents(t, ch)

	last := events[len(events)-1]
	if last.Type != EventError {
		t.Errorf("last event = %v, want error", last.Type)
	}
	for _, evt := range events {
		if evt.Type == EventDone {
			t.Error("done event should not be sent after mid-stream error")
		}
	}
	if completions.Load() != 0 {
		t.Errorf("completions = %d, want 0", completions.Load())
	}
}

func TestStart_UnknownModelNoFallback(t *testing.T) {
	co := newTestCoordinator(nil)
	defer co.Shutdown()

	ch, _ := co.Open("u1")

	co.Start(context.Background(), ch, "missing", provider.StreamParams{UserMessage: "q"}, nil)
	events := collectEvents(t, ch)

	if len(events) != 1 || events[0].Type != EventError {
		t.Errorf("events = %v, want single error event", events)
	}
}

// ========== Cancel 测试 ==========

func TestCancel_StopsForwarding(t *testing.T) {
	release := make(chan struct{})
	stub := &stubClient{
		desc: &model.AiModel{Name: "m", Type: model.ModelTypeText, IsEnable: true},
		streamFn: func(ctx context.Context) (*schema.StreamReader[*schema.Message], error) {
			sr, sw := schema.Pipe[*schema.Message](1)
			go func() {
				sw.Send(&schema.Message{Role: schema.Assistant, Content: "first"}, nil)
				<-release
				sw.Send(&schema.Message{Role: schema.Assistant, Content: "second"}, nil)
				sw.Close()
			}()
			return sr, nil
		},
	}
	co := newTestCoordinator(stub)
	defer co.Shutdown()

	ch, _ := co.Open("u1")

	var completions atomic.Int32
	co.Start(context.Background(), ch, "m", provider.StreamParams{UserMessage: "q"}, func(answer string, pt, at int) {
		completions.Add(1)
	})

	// 等第一个块到达后再取消
	evt := <-ch.Events()
	if evt.Type != EventMessage || evt.Data.(string) != "first" {
		t.Fatalf("first event = %+v, want message 'first'", evt)
	}

	if !co.Cancel("u1") {
		t.Fatal("Cancel() should find the active stream")
	}
	close(release)

	events := collectEvents(t, ch)
	for _, e := range events {
		if e.Type == EventDone {
			t.Error("done should not be sent after cancel")
		}
	}
	if completions.Load() != 0 {
		t.Errorf("completions = %d, want 0", completions.Load())
	}

	// 通道释放后可重新打开
	if _, err := co.Open("u1"); err != nil {
		t.Errorf("Open() after cancel unexpected error: %v", err)
	}
}

func TestCancel_NoActiveStream(t *testing.T) {
	co := newTestCoordinator(nil)
	defer co.Shutdown()

	if co.Cancel("nobody") {
		t.Error("Cancel() should return false without an active stream")
	}
}
