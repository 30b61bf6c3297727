package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/kart-io/logger"
	"github.com/milvus-io/milvus/client/v2/entity"

	"github.com/kart-io/regqa/internal/pkg/qa/textutil"
	"github.com/kart-io/regqa/pkg/component/milvus"
)

// 写入批次大小与标量字段的字符数上限。
// 超长字段截断写入，避免单条超长文本拖垮整批。
const (
	upsertBatchSize  = 100
	maxMetaFieldSize = 1000
)

// chunkFields 集合中除主键与向量外的标量字段。
var chunkFields = []string{"text", "title", "province", "asset", "doc_class", "effective_date", "source_url"}

// MilvusStore 实现基于 Milvus 的向量存储。
type MilvusStore struct {
	client     *milvus.Client
	collection string
	dimension  int
}

// NewMilvusStore 创建 Milvus 存储实例。
func NewMilvusStore(client *milvus.Client, collection string, dimension int) *MilvusStore {
	return &MilvusStore{
		client:     client,
		collection: collection,
		dimension:  dimension,
	}
}

// EnsureCollection 创建法规分块集合，已存在时不做任何操作。
func (s *MilvusStore) EnsureCollection(ctx context.Context) error {
	schema := &milvus.CollectionSchema{
		Name:        s.collection,
		Description: "法规条文分块向量索引",
		Dimension:   s.dimension,
		MetaFields: []milvus.MetaField{
			{Name: "text", DataType: entity.FieldTypeVarChar, MaxLen: 4096},
			{Name: "title", DataType: entity.FieldTypeVarChar, MaxLen: 1024},
			{Name: "province", DataType: entity.FieldTypeVarChar, MaxLen: 16},
			{Name: "asset", DataType: entity.FieldTypeVarChar, MaxLen: 16},
			{Name: "doc_class", DataType: entity.FieldTypeVarChar, MaxLen: 32},
			{Name: "effective_date", DataType: entity.FieldTypeVarChar, MaxLen: 32},
			{Name: "source_url", DataType: entity.FieldTypeVarChar, MaxLen: 1024},
		},
	}
	return s.client.CreateCollection(ctx, schema)
}

// UpsertChunks 分批写入分块。失败的批次记录日志后跳过，
// 仅在上下文取消时提前返回。
func (s *MilvusStore) UpsertChunks(ctx context.Context, chunks []Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	total := 0
	for i, batch := range splitChunks(chunks, upsertBatchSize) {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		data := buildUpsertData(batch)
		if err := s.client.Upsert(ctx, s.collection, data); err != nil {
			logger.Warnw("分块批次写入失败，跳过该批次",
				"collection", s.collection,
				"batch", i,
				"batch_size", len(batch),
				"error", err)
			continue
		}
		total += len(batch)
	}

	return total, nil
}

// Search 执行带元数据过滤的向量相似度检索。
func (s *MilvusStore) Search(ctx context.Context, embedding []float32, filter Filter, topK int) ([]SearchResult, error) {
	results, err := s.client.Search(ctx, s.collection, embedding, topK, buildFilterExpr(filter), chunkFields)
	if err != nil {
		return nil, fmt.Errorf("milvus 检索失败: %w", err)
	}

	searchResults := make([]SearchResult, 0, len(results))
	for _, r := range results {
		sr := SearchResult{Score: scoreFromDistance(r.Distance)}
		sr.ID = r.ID
		sr.Text = stringMeta(r.Metadata, "text")
		sr.Title = stringMeta(r.Metadata, "title")
		sr.Province = stringMeta(r.Metadata, "province")
		sr.Asset = stringMeta(r.Metadata, "asset")
		sr.DocClass = stringMeta(r.Metadata, "doc_class")
		sr.EffectiveDate = stringMeta(r.Metadata, "effective_date")
		sr.SourceURL = stringMeta(r.Metadata, "source_url")
		searchResults = append(searchResults, sr)
	}

	return searchResults, nil
}

// DeleteChunks 按 ID 删除分块。
func (s *MilvusStore) DeleteChunks(ctx context.Context, ids []string) error {
	if err := s.client.DeleteByIDs(ctx, s.collection, ids); err != nil {
		return fmt.Errorf("milvus 删除分块失败: %w", err)
	}
	return nil
}

// Stats 返回集合统计信息。
func (s *MilvusStore) Stats(ctx context.Context) (Stats, error) {
	count, err := s.client.GetCollectionStats(ctx, s.collection)
	if err != nil {
		return Stats{}, fmt.Errorf("获取集合统计失败: %w", err)
	}
	return Stats{Collection: s.collection, RowCount: count}, nil
}

// Close 关闭 Milvus 连接。
func (s *MilvusStore) Close() error {
	return s.client.Close()
}

// splitChunks 将分块切分为至多 size 条的连续批次。
func splitChunks(chunks []Chunk, size int) [][]Chunk {
	if len(chunks) == 0 || size <= 0 {
		return nil
	}

	batches := make([][]Chunk, 0, (len(chunks)+size-1)/size)
	for start := 0; start < len(chunks); start += size {
		end := start + size
		if end > len(chunks) {
			end = len(chunks)
		}
		batches = append(batches, chunks[start:end])
	}
	return batches
}

// buildUpsertData 将分块转换为列式写入数据，标量字段截断到长度上限。
func buildUpsertData(batch []Chunk) *milvus.UpsertData {
	data := &milvus.UpsertData{
		IDs:        make([]string, len(batch)),
		Embeddings: make([][]float32, len(batch)),
		Metadata:   make(map[string][]any, len(chunkFields)),
	}
	for _, field := range chunkFields {
		data.Metadata[field] = make([]any, len(batch))
	}

	for i, chunk := range batch {
		data.IDs[i] = chunk.ID
		data.Embeddings[i] = chunk.Embedding
		data.Metadata["text"][i] = textutil.TruncateString(chunk.Text, maxMetaFieldSize)
		data.Metadata["title"][i] = textutil.TruncateString(chunk.Title, maxMetaFieldSize)
		data.Metadata["province"][i] = chunk.Province
		data.Metadata["asset"][i] = chunk.Asset
		data.Metadata["doc_class"][i] = chunk.DocClass
		data.Metadata["effective_date"][i] = textutil.TruncateString(chunk.EffectiveDate, 32)
		data.Metadata["source_url"][i] = textutil.TruncateString(chunk.SourceURL, maxMetaFieldSize)
	}

	return data
}

// buildFilterExpr 构建 Milvus 过滤表达式，例如
// province == 'gd' and asset == 'solar'。空字段不参与过滤。
func buildFilterExpr(f Filter) string {
	clauses := make([]string, 0, 3)
	if f.Province != "" {
		clauses = append(clauses, fmt.Sprintf("province == '%s'", f.Province))
	}
	if f.Asset != "" {
		clauses = append(clauses, fmt.Sprintf("asset == '%s'", f.Asset))
	}
	if f.DocClass != "" {
		clauses = append(clauses, fmt.Sprintf("doc_class == '%s'", f.DocClass))
	}
	return strings.Join(clauses, " and ")
}

// scoreFromDistance 将余弦距离转换为相似度得分。
func scoreFromDistance(distance float32) float32 {
	return 1 - distance
}

// stringMeta 读取字符串元数据字段，缺失或类型不符时返回空串。
func stringMeta(meta map[string]any, key string) string {
	if v, ok := meta[key].(string); ok {
		return v
	}
	return ""
}

// 确保 MilvusStore 实现了 VectorStore 接口。
var _ VectorStore = (*MilvusStore)(nil)
