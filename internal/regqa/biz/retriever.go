package biz

import (
	"context"
	"fmt"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/regqa/internal/pkg/qa/normalize"
	"github.com/kart-io/regqa/internal/regqa/store"
	"github.com/kart-io/regqa/pkg/llm"
	"github.com/kart-io/regqa/pkg/tracing"
)

// RetrieverConfig 检索器配置。
type RetrieverConfig struct {
	// TopK 相似度检索返回的候选条数。
	TopK int

	// SearchTimeout 向量检索分支的总预算，包含问题嵌入与相似度检索。
	SearchTimeout time.Duration
}

// Retriever 负责向量检索分支：问题嵌入与带元数据过滤的相似度搜索。
type Retriever struct {
	embedder llm.EmbeddingProvider
	store    store.VectorStore
	config   *RetrieverConfig
}

// NewRetriever 创建检索器实例。
func NewRetriever(embedder llm.EmbeddingProvider, vectorStore store.VectorStore, config *RetrieverConfig) *Retriever {
	if config == nil {
		config = &RetrieverConfig{}
	}
	if config.TopK <= 0 {
		config.TopK = 12
	}
	if config.SearchTimeout <= 0 {
		config.SearchTimeout = 30 * time.Second
	}
	return &Retriever{
		embedder: embedder,
		store:    vectorStore,
		config:   config,
	}
}

// Retrieve 将问题嵌入后在向量索引中检索法规条文。
// 检索范围由省份、资产与文档类别过滤约束，空结果是正常结果。
func (r *Retriever) Retrieve(ctx context.Context, q normalize.Query) ([]store.SearchResult, error) {
	if r.embedder == nil || r.store == nil {
		return nil, fmt.Errorf("向量检索分支未配置")
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.SearchTimeout)
	defer cancel()

	ctx, span := tracing.StartSpan(ctx, "regqa", "query.retrieve")
	defer span.End()
	tracing.AddSpanAttributes(ctx, tracing.Int(tracing.RetrievalTopK, r.config.TopK))

	embedding, err := r.embedder.EmbedSingle(ctx, q.Question)
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, fmt.Errorf("问题嵌入失败: %w", err)
	}

	filter := store.Filter{
		Province: q.Province,
		Asset:    q.Asset,
		DocClass: q.DocClass,
	}
	results, err := r.store.Search(ctx, embedding, filter, r.config.TopK)
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, fmt.Errorf("向量检索失败: %w", err)
	}

	tracing.AddSpanAttributes(ctx, tracing.Int(tracing.RetrievalHitCount, len(results)))

	logger.Debugw("向量检索完成",
		"question", q.Question,
		"province", q.Province,
		"asset", q.Asset,
		"doc_class", q.DocClass,
		"hits", len(results))

	return results, nil
}
