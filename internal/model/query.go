package model

// Query resolution modes, reported in the mode field of every
// terminal response.
const (
	// ModePerplexityQA means the answer came from web-grounded QA.
	ModePerplexityQA = "perplexity_qa"

	// ModeVertexRAG means the answer was composed from the vector index.
	ModeVertexRAG = "vertex_rag"

	// ModeCSEFallback means retrieval failed and the response is a
	// refusal carrying discovered document links as tips.
	ModeCSEFallback = "cse_fallback"
)

// QueryRequest represents a regulation question scoped to a province,
// an asset type and a document class.
//
// validate 标签只做形状门禁（字母表、长度），取值闭集由业务层的
// normalize 负责裁决。
type QueryRequest struct {
	Province string `json:"province" binding:"required" validate:"required,region"`
	Asset    string `json:"asset" binding:"required" validate:"required,facet"`
	DocClass string `json:"doc_class" binding:"required" validate:"required,facet"`
	Question string `json:"question" binding:"required" validate:"required,max=2000"`
	Language string `json:"lang,omitempty" validate:"omitempty,oneof=zh-CN en"`
}

// Citation represents one cited source of an answer.
type Citation struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// QueryResult represents a terminal query response. Refusals are valid
// results, not errors: Refusal is true and Tips carries official
// document links worth checking manually.
type QueryResult struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations,omitempty"`
	Mode      string     `json:"mode"`
	Topic     string     `json:"topic,omitempty"`
	Refusal   bool       `json:"refusal,omitempty"`
	Tips      []string   `json:"tips,omitempty"`
	TraceID   string     `json:"trace_id"`
	ElapsedMS int64      `json:"elapsed_ms"`
}

// ChunkPayload represents one regulation chunk submitted for indexing.
type ChunkPayload struct {
	ID            string    `json:"id" binding:"required"`
	Text          string    `json:"text" binding:"required"`
	Title         string    `json:"title" binding:"required"`
	Province      string    `json:"province" binding:"required"`
	Asset         string    `json:"asset" binding:"required"`
	DocClass      string    `json:"doc_class" binding:"required"`
	EffectiveDate string    `json:"effective_date,omitempty"`
	SourceURL     string    `json:"source_url,omitempty"`
	Embedding     []float32 `json:"embedding,omitempty"`
}

// IngestChunksRequest represents a chunk ingestion request.
type IngestChunksRequest struct {
	Chunks []ChunkPayload `json:"chunks" binding:"required"`
}

// IngestResult reports how an ingestion request was processed.
type IngestResult struct {
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
	Total    int `json:"total"`
}

// IndexStats reports vector index and cache statistics.
type IndexStats struct {
	Collection string                 `json:"collection"`
	RowCount   int64                  `json:"row_count"`
	Cache      map[string]interface{} `json:"cache,omitempty"`
}
