package registry

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ashwinyue/ask-ai/internal/model"
	"github.com/ashwinyue/ask-ai/internal/service/provider"
	"github.com/cloudwego/eino/schema"
)

// fakeClient 仅携带描述的客户端
type fakeClient struct {
	desc *model.AiModel
}

func (f *fakeClient) Descriptor() *model.AiModel {
	return f.desc
}

func (f *fakeClient) StreamComplete(ctx context.Context, params provider.StreamParams) (*schema.StreamReader[*schema.Message], error) {
	return schema.StreamReaderFromArray([]*schema.Message{
		{Role: schema.Assistant, Content: "ok"},
	}), nil
}

func (f *fakeClient) Embed(ctx context.Context, text string) ([]float64, error) {
	return []float64{0.1}, nil
}

func newFake(name, platform string, enable, free bool) *fakeClient {
	return &fakeClient{desc: &model.AiModel{
		ID:       name + "-id",
		Name:     name,
		Platform: platform,
		Type:     model.ModelTypeText,
		IsEnable: enable,
		IsFree:   free,
	}}
}

// ========== LookupByName 测试 ==========

func TestLookupByName_Exact(t *testing.T) {
	r := New()
	r.Register(newFake("gpt-4o", model.PlatformOpenAI, true, false))
	r.Register(newFake("qwen-plus", model.PlatformDashScope, true, true))

	c, err := r.LookupByName("qwen-plus")
	if err != nil {
		t.Fatalf("LookupByName() unexpected error: %v", err)
	}
	if c.Descriptor().Name != "qwen-plus" {
		t.Errorf("Name = %q, want 'qwen-plus'", c.Descriptor().Name)
	}
}

func TestLookupByName_FallbackPrefersFreeEnabled(t *testing.T) {
	r := New()
	r.Register(newFake("paid-first", model.PlatformOpenAI, true, false))
	r.Register(newFake("disabled-free", model.PlatformOpenAI, false, true))
	r.Register(newFake("free-enabled", model.PlatformDashScope, true, true))

	c, err := r.LookupByName("missing")
	if err != nil {
		t.Fatalf("LookupByName() unexpected error: %v", err)
	}
	if c.Descriptor().Name != "free-enabled" {
		t.Errorf("fallback = %q, want 'free-enabled'", c.Descriptor().Name)
	}
}

func TestLookupByName_FallbackToFirstEnabled(t *testing.T) {
	r := New()
	r.Register(newFake("disabled", model.PlatformOpenAI, false, true))
	r.Register(newFake("paid-a", model.PlatformOpenAI, true, false))
	r.Register(newFake("paid-b", model.PlatformDashScope, true, false))

	c, err := r.LookupByName("")
	if err != nil {
		t.Fatalf("LookupByName() unexpected error: %v", err)
	}
	if c.Descriptor().Name != "paid-a" {
		t.Errorf("fallback = %q, want 'paid-a'", c.Descriptor().Name)
	}
}

func TestLookupByName_Deterministic(t *testing.T) {
	r := New()
	r.Register(newFake("a", model.PlatformOpenAI, true, false))
	r.Register(newFake("b", model.PlatformOpenAI, true, false))

	for i := 0; i < 20; i++ {
		c, err := r.LookupByName("missing")
		if err != nil {
			t.Fatalf("LookupByName() unexpected error: %v", err)
		}
		if c.Descriptor().Name != "a" {
			t.Fatalf("iteration %d: fallback = %q, want 'a'", i, c.Descriptor().Name)
		}
	}
}

func TestLookupByName_NoEnabledModel(t *testing.T) {
	r := New()
	r.Register(newFake("disabled", model.PlatformOpenAI, false, false))

	_, err := r.LookupByName("anything")
	if !errors.Is(err, ErrNoEnabledModel) {
		t.Errorf("err = %v, want ErrNoEnabledModel", err)
	}
}

func TestLookupByName_Empty(t *testing.T) {
	r := New()

	_, err := r.LookupByName("")
	if !errors.Is(err, ErrNoEnabledModel) {
		t.Errorf("err = %v, want ErrNoEnabledModel", err)
	}
}

// ========== LookupByID 测试 ==========

func TestLookupByID(t *testing.T) {
	r := New()
	r.Register(newFake("gpt-4o", model.PlatformOpenAI, true, false))

	c, err := r.LookupByID("gpt-4o-id")
	if err != nil {
		t.Fatalf("LookupByID() unexpected error: %v", err)
	}
	if c.Descriptor().Name != "gpt-4o" {
		t.Errorf("Name = %q, want 'gpt-4o'", c.Descriptor().Name)
	}
}

// ========== Register / Remove 测试 ==========

func TestRegister_SameNameOverwrites(t *testing.T) {
	r := New()
	r.Register(newFake("m", model.PlatformOpenAI, false, false))
	r.Register(newFake("m", model.PlatformOpenAI, true, true))

	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}
	c, err := r.LookupByName("m")
	if err != nil {
		t.Fatalf("LookupByName() unexpected error: %v", err)
	}
	if !c.Descriptor().IsEnable {
		t.Error("overwritten client should be enabled")
	}
}

func TestRemove(t *testing.T) {
	r := New()
	r.Register(newFake("m", model.PlatformOpenAI, true, false))
	r.Remove("m")

	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
}

// ========== ReloadPlatform 测试 ==========

func TestReloadPlatform_ReplacesOnlyThatPlatform(t *testing.T) {
	r := New()
	r.Register(newFake("openai-a", model.PlatformOpenAI, true, false))
	r.Register(newFake("qwen-a", model.PlatformDashScope, true, false))

	r.ReloadPlatform(model.PlatformOpenAI, []provider.Client{
		newFake("openai-b", model.PlatformOpenAI, true, false),
	})

	if _, err := r.LookupByName("openai-b"); err != nil {
		t.Errorf("new client missing: %v", err)
	}
	if _, err := r.LookupByName("qwen-a"); err != nil {
		t.Errorf("other platform client should survive: %v", err)
	}
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}
	// 旧客户端精确查找不再命中，兜底仍可用
	c, err := r.LookupByName("openai-a")
	if err != nil {
		t.Fatalf("fallback unexpected error: %v", err)
	}
	if c.Descriptor().Name == "openai-a" {
		t.Error("stale client should be gone")
	}
}

func TestReloadPlatform_ClearAll(t *testing.T) {
	r := New()
	r.Register(newFake("openai-a", model.PlatformOpenAI, true, false))

	r.ReloadPlatform(model.PlatformOpenAI, nil)

	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
}

func TestReloadPlatform_ConcurrentLookup(t *testing.T) {
	r := New()
	r.Register(newFake("keep", model.PlatformDashScope, true, true))
	r.Register(newFake("swap", model.PlatformOpenAI, true, false))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c, err := r.LookupByName("keep")
				if err != nil {
					t.Errorf("LookupByName() unexpected error: %v", err)
					return
				}
				if c.Descriptor().Name != "keep" {
					t.Errorf("Name = %q, want 'keep'", c.Descriptor().Name)
					return
				}
			}
		}()
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				r.ReloadPlatform(model.PlatformOpenAI, []provider.Client{
					newFake("swap", model.PlatformOpenAI, true, false),
				})
			}
		}(i)
	}
	wg.Wait()
}
