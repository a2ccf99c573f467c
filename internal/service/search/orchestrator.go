package search

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/ashwinyue/ask-ai/internal/model"
	"github.com/ashwinyue/ask-ai/internal/repository"
	"github.com/ashwinyue/ask-ai/internal/service/cost"
	"github.com/ashwinyue/ask-ai/internal/service/memory"
	"github.com/ashwinyue/ask-ai/internal/service/provider"
	"github.com/ashwinyue/ask-ai/internal/service/registry"
	"github.com/ashwinyue/ask-ai/internal/service/retrieval"
	"github.com/ashwinyue/ask-ai/internal/service/stream"
	"github.com/google/uuid"
)

// fetchTopN 详细搜索时抓取正文的结果条数，其余条目直接用摘要
const fetchTopN = 2

// metadataKeySearchUUID 向量元数据中请求关联键的字段名
const metadataKeySearchUUID = "search_uuid"

// Request 一次搜索问答请求
type Request struct {
	UserID     string
	Question   string
	EngineName string
	ModelName  string
	Brief      bool
}

// Orchestrator 搜索问答编排器
// 引擎查询 → 并发抓取与向量化 → 组装提示词 → 流式生成 → 落库计量
type Orchestrator struct {
	engines     *Engines
	registry    *registry.Registry
	coordinator *stream.Coordinator
	composer    *retrieval.Composer
	vector      retrieval.VectorStore
	fetcher     PageFetcher
	records     repository.SearchRecordStore
	accountant  *cost.Accountant
	memory      *memory.Manager
	minScore    float64
}

// NewOrchestrator 创建编排器
func NewOrchestrator(
	engines *Engines,
	reg *registry.Registry,
	coordinator *stream.Coordinator,
	composer *retrieval.Composer,
	vector retrieval.VectorStore,
	fetcher PageFetcher,
	records repository.SearchRecordStore,
	accountant *cost.Accountant,
	memoryMgr *memory.Manager,
	minScore float64,
) *Orchestrator {
	return &Orchestrator{
		engines:     engines,
		registry:    reg,
		coordinator: coordinator,
		composer:    composer,
		vector:      vector,
		fetcher:     fetcher,
		records:     records,
		accountant:  accountant,
		memory:      memoryMgr,
		minScore:    minScore,
	}
}

// Search 打开用户通道并异步执行搜索问答
// 用户已有打开的通道时立即失败
func (o *Orchestrator) Search(ctx context.Context, req *Request) (*stream.Channel, error) {
	ch, err := o.coordinator.Open(req.UserID)
	if err != nil {
		return nil, err
	}

	go o.run(ctx, ch, req)
	return ch, nil
}

// Stop 取消用户当前打开的通道
func (o *Orchestrator) Stop(userID string) bool {
	return o.coordinator.Cancel(userID)
}

// GetRecord 按 uuid 查询搜索记录
func (o *Orchestrator) GetRecord(ctx context.Context, uuid string) (*model.SearchRecord, error) {
	return o.records.GetByUUID(ctx, uuid)
}

// ListRecords 分页查询用户的搜索记录
func (o *Orchestrator) ListRecords(ctx context.Context, userID string, offset, limit int) ([]*model.SearchRecord, int64, error) {
	return o.records.ListByUser(ctx, userID, offset, limit)
}

func (o *Orchestrator) run(ctx context.Context, ch *stream.Channel, req *Request) {
	engine, ok := o.engines.Get(req.EngineName)
	if !ok {
		log.Printf("Warning: no search engine registered for %q", req.EngineName)
		ch.Send(stream.Event{Type: stream.EventNoAnswer, Data: "no answer found"})
		ch.Close()
		return
	}

	items, err := engine.Search(ctx, req.Question)
	if err == nil && len(items) == 0 {
		err = ErrNoSearchResults
	}
	if err != nil {
		log.Printf("search engine %s failed: %v", engine.Name(), err)
		ch.Send(stream.Event{Type: stream.EventNoAnswer, Data: "no answer found"})
		ch.Close()
		return
	}

	// 没有任何可用模型属于配置错误，立即失败，不重试
	client, err := o.registry.LookupByName(req.ModelName)
	if err != nil {
		ch.Send(stream.Event{Type: stream.EventError, Data: err.Error()})
		ch.Close()
		return
	}
	desc := client.Descriptor()

	// 引擎结果已知即建档，生成完成后就地更新同一条记录
	searchUUID := uuid.New().String()
	rec := &model.SearchRecord{
		UUID:       searchUUID,
		Question:   req.Question,
		EngineResp: model.SearchEngineResp{Items: items},
		UserID:     req.UserID,
		ModelID:    desc.ID,
	}
	if err := o.records.Save(ctx, rec); err != nil {
		log.Printf("Warning: failed to save search record %s: %v", searchUUID, err)
	}

	// 来源链接必须先于第一个回答块
	if !ch.Send(stream.Event{Type: stream.EventSourceLinks, Data: items}) {
		ch.Close()
		return
	}

	var prompt string
	if req.Brief {
		prompt = o.briefPrompt(req.Question, items)
	} else {
		prompt = o.detailPrompt(ctx, searchUUID, engine.Name(), req.Question, desc.MaxInputTokens, items)
	}

	memoryKey := req.UserID + "-search"
	mem := o.memory.Load(ctx, memoryKey)

	onComplete := func(answer string, promptTokens, answerTokens int) {
		rec.EngineResp = model.SearchEngineResp{Items: items}
		rec.Prompt = prompt
		rec.Answer = answer
		rec.PromptTokens = promptTokens
		rec.AnswerTokens = answerTokens
		// 回答已经交付给用户，落库失败只记录不回滚
		if err := o.records.UpdateByUUID(ctx, rec); err != nil {
			log.Printf("Warning: failed to update search record %s: %v", searchUUID, err)
		}
		if err := o.accountant.AppendCostToUser(ctx, req.UserID, promptTokens+answerTokens, desc.IsFree); err != nil {
			log.Printf("Warning: failed to append cost for user %s: %v", req.UserID, err)
		}
		o.memory.Append(ctx, memoryKey, req.Question, answer)
	}

	o.coordinator.Start(ctx, ch, desc.Name, provider.StreamParams{
		UserMessage: prompt,
		Memory:      mem,
	}, onComplete)
}

// briefPrompt 简略模式：直接拼接全部摘要，不经过检索
func (o *Orchestrator) briefPrompt(question string, items []model.WebPage) string {
	var b strings.Builder
	for _, item := range items {
		b.WriteString(item.Snippet)
		b.WriteString("\n\n")
	}
	return retrieval.BuildPrompt(question, strings.TrimSpace(b.String()))
}

// detailPrompt 详细模式：并发富化全部条目后按请求 uuid 过滤检索
func (o *Orchestrator) detailPrompt(ctx context.Context, searchUUID, engineName, question string, maxInputTokens int, items []model.WebPage) string {
	o.enrich(ctx, searchUUID, engineName, items)

	segments, err := o.composer.Retrieve(ctx, question,
		map[string]string{metadataKeySearchUUID: searchUUID},
		maxInputTokens, o.minScore, false)
	if err != nil {
		// 检索不可用退化为无背景提示词，请求继续
		log.Printf("Warning: retrieval unavailable for %s: %v", searchUUID, err)
		return retrieval.BuildPrompt(question, "")
	}

	return retrieval.BuildPrompt(question, retrieval.ComposeContext(segments))
}

// enrich 并发抓取和向量化全部条目并等待全部完成
// 单条失败只降级该条为摘要，不中断其余条目，也不终止请求
func (o *Orchestrator) enrich(ctx context.Context, searchUUID, engineName string, items []model.WebPage) {
	var wg sync.WaitGroup
	for i := range items {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			item := &items[i]
			content := item.Snippet
			if i < fetchTopN {
				fetched, err := o.fetcher.Fetch(ctx, item.Link)
				if err != nil {
					log.Printf("Warning: failed to fetch %s, using snippet: %v", item.Link, err)
				} else {
					content = fetched
					item.Content = fetched
				}
			}

			if content == "" || o.vector == nil {
				return
			}
			err := o.vector.Ingest(ctx, content, map[string]interface{}{
				"engine_name":         engineName,
				metadataKeySearchUUID: searchUUID,
			})
			if err != nil {
				log.Printf("Warning: failed to ingest item %d for %s: %v", i, searchUUID, err)
			}
		}(i)
	}
	wg.Wait()
}
