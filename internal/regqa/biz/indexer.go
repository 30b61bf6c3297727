package biz

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/regqa/internal/model"
	"github.com/kart-io/regqa/internal/pkg/qa/normalize"
	"github.com/kart-io/regqa/internal/regqa/store"
	"github.com/kart-io/regqa/pkg/llm"
	"github.com/kart-io/regqa/pkg/utils/errors"
	"github.com/kart-io/regqa/pkg/validator"
)

// embedBatchSize 一次嵌入请求携带的文本数量上限。
const embedBatchSize = 32

// Indexer 负责法规分块的校验、嵌入补全与入库。
type Indexer struct {
	store    store.VectorStore
	embedder llm.EmbeddingProvider
}

// NewIndexer 创建索引器实例。
func NewIndexer(vectorStore store.VectorStore, embedder llm.EmbeddingProvider) *Indexer {
	return &Indexer{
		store:    vectorStore,
		embedder: embedder,
	}
}

// IngestChunks 校验分块、为缺失向量的分块补全嵌入并写入向量索引。
//
// 校验失败的分块计入 Rejected 并跳过，不影响其余分块；全部分块
// 都无效时返回 ErrChunkInvalid。写入按 ID 幂等，重复提交安全。
func (x *Indexer) IngestChunks(ctx context.Context, payloads []model.ChunkPayload) (*model.IngestResult, error) {
	result := &model.IngestResult{Total: len(payloads)}
	if len(payloads) == 0 {
		return result, nil
	}

	chunks := make([]store.Chunk, 0, len(payloads))
	for i := range payloads {
		p := &payloads[i]
		if err := validateChunk(p); err != nil {
			result.Rejected++
			logger.Warnw("分块校验失败，已拒绝", "chunk_id", p.ID, "error", err)
			continue
		}
		chunks = append(chunks, store.Chunk{
			ID:            p.ID,
			Text:          normalize.CleanText(p.Text),
			Title:         strings.TrimSpace(p.Title),
			Province:      p.Province,
			Asset:         p.Asset,
			DocClass:      p.DocClass,
			EffectiveDate: p.EffectiveDate,
			SourceURL:     strings.TrimSpace(p.SourceURL),
			Embedding:     p.Embedding,
		})
	}

	if len(chunks) == 0 {
		return result, errors.ErrChunkInvalid.WithMessages(
			fmt.Sprintf("all %d chunks failed validation", len(payloads)),
			fmt.Sprintf("全部 %d 条分块校验失败", len(payloads)),
		)
	}

	if err := x.embedMissing(ctx, chunks); err != nil {
		return result, errors.ErrIngestFailed.WithCause(err)
	}

	accepted, err := x.store.UpsertChunks(ctx, chunks)
	result.Accepted = accepted
	if err != nil {
		return result, errors.ErrIngestFailed.WithCause(err)
	}

	logger.Infow("分块入库完成",
		"total", result.Total,
		"accepted", result.Accepted,
		"rejected", result.Rejected)
	return result, nil
}

// Stats 返回向量索引统计信息。
func (x *Indexer) Stats(ctx context.Context) (*model.IndexStats, error) {
	stats, err := x.store.Stats(ctx)
	if err != nil {
		return nil, errors.ErrIndexStats.WithCause(err)
	}
	return &model.IndexStats{
		Collection: stats.Collection,
		RowCount:   stats.RowCount,
	}, nil
}

// embedMissing 为未携带向量的分块批量生成嵌入。
func (x *Indexer) embedMissing(ctx context.Context, chunks []store.Chunk) error {
	var texts []string
	var missing []int
	for i := range chunks {
		if len(chunks[i].Embedding) == 0 {
			texts = append(texts, chunks[i].Text)
			missing = append(missing, i)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	if x.embedder == nil {
		return fmt.Errorf("%d 条分块缺少向量且未配置嵌入模型", len(missing))
	}

	for start := 0; start < len(texts); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}

		embeddings, err := x.embedder.Embed(ctx, texts[start:end])
		if err != nil {
			return fmt.Errorf("分块嵌入失败: %w", err)
		}
		if len(embeddings) != end-start {
			return fmt.Errorf("嵌入数量 %d 与文本数量 %d 不符", len(embeddings), end-start)
		}
		for j, emb := range embeddings {
			chunks[missing[start+j]].Embedding = emb
		}
	}

	return nil
}

// validateChunk 校验单条分块：必填字段、维度闭集、日期与链接格式。
func validateChunk(p *model.ChunkPayload) error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("id 不能为空")
	}
	// 分块 ID 会成为向量库主键与缓存键的组成部分，限制字符表
	if err := validator.Var(p.ID, validator.TagChunkID); err != nil {
		return fmt.Errorf("id 只能包含字母、数字、冒号、下划线和连字符，实际为 %q", p.ID)
	}
	if normalize.CleanText(p.Text) == "" {
		return fmt.Errorf("text 不能为空")
	}
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("title 不能为空")
	}
	// 标题会原样出现在引用条目里，拒绝带注入特征的内容
	if err := validator.Var(p.Title, validator.TagSafeString); err != nil {
		return fmt.Errorf("title 包含不安全内容")
	}
	if normalize.ProvinceName(p.Province) == "" {
		return fmt.Errorf("province 必须为 %v 之一，实际为 %q", normalize.Provinces(), p.Province)
	}
	if normalize.AssetName(p.Asset) == "" {
		return fmt.Errorf("asset 必须为 %v 之一，实际为 %q", normalize.Assets(), p.Asset)
	}
	if !slices.Contains(normalize.DocClasses(), p.DocClass) {
		return fmt.Errorf("doc_class 必须为 %v 之一，实际为 %q", normalize.DocClasses(), p.DocClass)
	}
	if p.EffectiveDate != "" {
		if _, err := time.Parse("2006-01-02", p.EffectiveDate); err != nil {
			return fmt.Errorf("effective_date 须为 YYYY-MM-DD 格式，实际为 %q", p.EffectiveDate)
		}
	}
	if p.SourceURL != "" && !strings.HasPrefix(p.SourceURL, "http://") && !strings.HasPrefix(p.SourceURL, "https://") {
		return fmt.Errorf("source_url 须为 http(s) 链接，实际为 %q", p.SourceURL)
	}
	return nil
}
