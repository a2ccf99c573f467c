package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/cloudwego/eino-ext/components/indexer/es8"
	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/schema"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"
)

const (
	contentField = "content"
	vectorField  = "content_vector"
)

// ESVectorStore 基于 Elasticsearch 的向量存储
// 写入走 eino es8 indexer（内部完成向量化），检索用带元数据过滤的
// script_score 余弦相似度查询
type ESVectorStore struct {
	client   *elasticsearch.Client
	indexer  *es8.Indexer
	embedder embedding.Embedder
	index    string
}

// NewESVectorStore 创建 ES 向量存储
func NewESVectorStore(ctx context.Context, client *elasticsearch.Client, index string, embedder embedding.Embedder) (*ESVectorStore, error) {
	indexer, err := es8.NewIndexer(ctx, &es8.IndexerConfig{
		Client:    client,
		Index:     index,
		BatchSize: 10,
		Embedding: embedder,
		DocumentToFields: func(ctx context.Context, doc *schema.Document) (map[string]es8.FieldValue, error) {
			return documentToFields(doc), nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create es8 indexer: %w", err)
	}

	return &ESVectorStore{
		client:   client,
		indexer:  indexer,
		embedder: embedder,
		index:    index,
	}, nil
}

// documentToFields 把文档转换为 ES 字段，内容字段向量化，元数据原样存储
func documentToFields(doc *schema.Document) map[string]es8.FieldValue {
	fields := make(map[string]es8.FieldValue)

	fields[contentField] = es8.FieldValue{
		Value:    doc.Content,
		EmbedKey: vectorField,
	}

	for k, v := range doc.MetaData {
		fields[k] = es8.FieldValue{Value: v}
	}

	return fields
}

// Ingest 向量化并写入一段文本
func (s *ESVectorStore) Ingest(ctx context.Context, text string, metadata map[string]interface{}) error {
	doc := &schema.Document{
		ID:       uuid.New().String(),
		Content:  text,
		MetaData: metadata,
	}

	if _, err := s.indexer.Store(ctx, []*schema.Document{doc}); err != nil {
		return fmt.Errorf("failed to index document: %w", err)
	}
	return nil
}

// Retrieve 相似度检索，filter 中的键值按 term 精确过滤
func (s *ESVectorStore) Retrieve(ctx context.Context, query string, filter map[string]string, maxResults int, minScore float64) ([]Segment, error) {
	vectors, err := s.embedder.EmbedStrings(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vector")
	}

	body, err := json.Marshal(buildVectorQuery(vectors[0], filter, maxResults, minScore))
	if err != nil {
		return nil, err
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("es search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("es search error: %s", res.String())
	}

	return parseSearchHits(res.Body)
}

// buildVectorQuery 组装 script_score 余弦相似度查询
// cosineSimilarity 结果平移 +1.0 保证非负，解析时再移回
func buildVectorQuery(vector []float64, filter map[string]string, maxResults int, minScore float64) map[string]interface{} {
	filters := make([]interface{}, 0, len(filter))
	for k, v := range filter {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{k: v},
		})
	}

	var base interface{} = map[string]interface{}{"match_all": map[string]interface{}{}}
	if len(filters) > 0 {
		base = map[string]interface{}{
			"bool": map[string]interface{}{"filter": filters},
		}
	}

	q := map[string]interface{}{
		"size": maxResults,
		"query": map[string]interface{}{
			"script_score": map[string]interface{}{
				"query": base,
				"script": map[string]interface{}{
					"source": fmt.Sprintf("cosineSimilarity(params.query_vector, '%s') + 1.0", vectorField),
					"params": map[string]interface{}{"query_vector": vector},
				},
			},
		},
	}
	if minScore > 0 {
		q["min_score"] = minScore + 1.0
	}
	return q
}

// parseSearchHits 解析 ES 响应为片段列表
func parseSearchHits(body io.Reader) ([]Segment, error) {
	var resp struct {
		Hits struct {
			Hits []struct {
				ID     string  `json:"_id"`
				Score  float64 `json:"_score"`
				Source struct {
					Content string `json:"content"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode es response: %w", err)
	}

	segments := make([]Segment, 0, len(resp.Hits.Hits))
	for _, hit := range resp.Hits.Hits {
		segments = append(segments, Segment{
			SourceID: hit.ID,
			Text:     hit.Source.Content,
			Score:    hit.Score - 1.0,
		})
	}
	return segments, nil
}

// EnsureIndex 确保索引和向量映射存在
func (s *ESVectorStore) EnsureIndex(ctx context.Context, dimensions int) error {
	res, err := s.client.Indices.Exists(
		[]string{s.index},
		s.client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to check index: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	if dimensions <= 0 {
		dimensions = 1024
	}

	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				contentField: map[string]interface{}{"type": "text"},
				vectorField: map[string]interface{}{
					"type": "dense_vector",
					"dims": dimensions,
				},
				"search_uuid": map[string]interface{}{"type": "keyword"},
				"engine_name": map[string]interface{}{"type": "keyword"},
			},
		},
	}

	body, err := json.Marshal(mapping)
	if err != nil {
		return err
	}

	createRes, err := s.client.Indices.Create(
		s.index,
		s.client.Indices.Create.WithContext(ctx),
		s.client.Indices.Create.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		return fmt.Errorf("failed to create index: %s", createRes.String())
	}
	return nil
}
