package errors

import "net/http"

// 查询解析服务代码: 20 (业务服务范围 20-79)
// 错误码格式: AABBCCC
// - AA: 20 (查询解析服务)
// - BB: 类别代码
// - CCC: 序号

var (
	// 请求参数错误 (类别 01)
	ErrQueryValidation = Register(New(MakeCode(ServiceQuery, CategoryRequest, 1), http.StatusBadRequest, "Invalid query parameters", "查询参数无效"))
	ErrQuestionEmpty   = Register(New(MakeCode(ServiceQuery, CategoryRequest, 2), http.StatusBadRequest, "Question is empty after normalization", "规范化后问题内容为空"))
	ErrChunkInvalid    = Register(New(MakeCode(ServiceQuery, CategoryRequest, 3), http.StatusBadRequest, "Invalid document chunk payload", "文档分块数据无效"))

	// 查询相关错误
	ErrQueryTimeout = Register(New(MakeCode(ServiceQuery, CategoryTimeout, 1), http.StatusRequestTimeout, "Query timeout", "查询超时"))
	ErrQueryFailed  = Register(New(MakeCode(ServiceQuery, CategoryInternal, 1), http.StatusInternalServerError, "Query resolution failed", "查询解析失败"))

	// 索引相关错误
	ErrIngestFailed     = Register(New(MakeCode(ServiceQuery, CategoryInternal, 2), http.StatusInternalServerError, "Chunk ingestion failed", "文档分块入库失败"))
	ErrIndexStats       = Register(New(MakeCode(ServiceQuery, CategoryInternal, 3), http.StatusInternalServerError, "Index statistics unavailable", "索引统计信息不可用"))
	ErrIndexUnavailable = Register(New(MakeCode(ServiceQuery, CategoryDatabase, 1), http.StatusServiceUnavailable, "Vector index unavailable", "向量索引不可用"))

	// 上游服务错误 (类别 10 - Network)
	ErrUpstreamMalformed  = Register(New(MakeCode(ServiceQuery, CategoryNetwork, 1), http.StatusBadGateway, "Malformed upstream response", "上游响应格式错误"))
	ErrBackendUnavailable = Register(New(MakeCode(ServiceQuery, CategoryNetwork, 2), http.StatusServiceUnavailable, "Retrieval backend unavailable", "检索后端不可用"))
)
