package store

import "context"

// Chunk 表示一条法规条文分块及其元数据。
type Chunk struct {
	// ID 分块唯一标识，写入时按此幂等覆盖。
	ID string `json:"id"`

	// Text 条文原文片段。
	Text string `json:"text"`

	// Title 法规文件标题，如 广东省新能源发电项目并网管理办法。
	Title string `json:"title"`

	// Province 适用省份代码（gd、sd、nm）。
	Province string `json:"province"`

	// Asset 适用资产类型代码（solar、coal、wind）。
	Asset string `json:"asset"`

	// DocClass 文档类别（grid、land、rail 等）。
	DocClass string `json:"doc_class"`

	// EffectiveDate 生效日期，格式 YYYY-MM-DD。
	EffectiveDate string `json:"effective_date"`

	// SourceURL 官方来源链接。
	SourceURL string `json:"source_url"`

	// Embedding 条文向量，维度须与集合一致。
	Embedding []float32 `json:"embedding"`
}

// Filter 检索的元数据过滤条件，多个非空字段之间取交集。
type Filter struct {
	Province string
	Asset    string
	DocClass string
}

// SearchResult 表示一条检索命中。
type SearchResult struct {
	Chunk

	// Score 相似度得分，取值为 1 减余弦距离，越大越相似。
	Score float32
}

// Stats 集合统计信息。
type Stats struct {
	Collection string `json:"collection"`
	RowCount   int64  `json:"row_count"`
}

// VectorStore 定义向量存储接口。
type VectorStore interface {
	// EnsureCollection 创建集合与索引，集合已存在时不做任何操作。
	EnsureCollection(ctx context.Context) error

	// UpsertChunks 批量写入分块，按 ID 幂等覆盖已有条目。
	// 单个批次写入失败时记录日志并跳过，不中断整体写入；
	// 返回成功写入的分块数。
	UpsertChunks(ctx context.Context, chunks []Chunk) (int, error)

	// Search 执行带元数据过滤的向量相似度检索。
	// 空结果是正常结果而非错误。
	Search(ctx context.Context, embedding []float32, filter Filter, topK int) ([]SearchResult, error)

	// DeleteChunks 按 ID 删除分块，ID 不存在时不报错。
	DeleteChunks(ctx context.Context, ids []string) error

	// Stats 返回集合统计信息。
	Stats(ctx context.Context) (Stats, error)

	// Close 关闭底层连接。
	Close() error
}
