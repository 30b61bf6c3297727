// Package metrics 提供查询解析服务的业务指标收集。
package metrics

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// QueryMetrics 查询解析服务业务指标。
type QueryMetrics struct {
	// 查询指标
	queriesTotal       uint64 // 总查询次数
	queriesCacheHits   uint64 // 缓存命中次数
	queriesCacheMisses uint64 // 缓存未命中次数
	queriesErrors      uint64 // 查询错误次数
	refusalsTotal      uint64 // 拒答次数

	// 回答来源指标
	answersWebQA    uint64 // 联网问答回答次数
	answersVector   uint64 // 向量检索回答次数
	answersFallback uint64 // 发现式兜底回答次数

	// 联网问答指标
	webQATotal       uint64  // 联网问答调用次数
	webQADuration    float64 // 联网问答总耗时（秒）
	webQAErrors      uint64  // 联网问答失败次数
	secondaryLookups uint64  // 引用全部被过滤后的二次检索次数

	// 向量检索指标
	vectorSearchTotal    uint64  // 向量检索次数
	vectorSearchDuration float64 // 向量检索总耗时（秒）
	vectorSearchErrors   uint64  // 向量检索失败次数

	// 重排指标
	rerankTotal    uint64 // 重排调用次数
	rerankDegrades uint64 // 重排失败降级次数

	// 发现式检索指标
	discoveryTotal  uint64 // 发现式检索次数
	discoveryErrors uint64 // 发现式检索失败次数

	// 索引指标
	chunksIndexed  uint64 // 已入库分块数
	chunksRejected uint64 // 校验拒绝分块数
	indexErrors    uint64 // 入库错误次数

	startTime  time.Time
	durationMu sync.Mutex
}

// globalQueryMetrics 全局查询指标实例。
var (
	globalQueryMetrics *QueryMetrics
	queryMetricsOnce   sync.Once
)

// GetQueryMetrics 获取全局查询指标实例。
func GetQueryMetrics() *QueryMetrics {
	queryMetricsOnce.Do(func() {
		globalQueryMetrics = &QueryMetrics{
			startTime: time.Now(),
		}
	})
	return globalQueryMetrics
}

// RecordQuery 记录查询。
func (m *QueryMetrics) RecordQuery(cacheHit bool, err error) {
	atomic.AddUint64(&m.queriesTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.queriesErrors, 1)
		return
	}
	if cacheHit {
		atomic.AddUint64(&m.queriesCacheHits, 1)
	} else {
		atomic.AddUint64(&m.queriesCacheMisses, 1)
	}
}

// RecordRefusal 记录一次拒答。
func (m *QueryMetrics) RecordRefusal() {
	atomic.AddUint64(&m.refusalsTotal, 1)
}

// RecordAnswer 记录回答来源。mode 取值为
// perplexity_qa、vertex_rag 或 cse_fallback。
func (m *QueryMetrics) RecordAnswer(mode string) {
	switch mode {
	case "perplexity_qa":
		atomic.AddUint64(&m.answersWebQA, 1)
	case "vertex_rag":
		atomic.AddUint64(&m.answersVector, 1)
	case "cse_fallback":
		atomic.AddUint64(&m.answersFallback, 1)
	}
}

// RecordWebQA 记录联网问答调用。
func (m *QueryMetrics) RecordWebQA(duration time.Duration, err error) {
	atomic.AddUint64(&m.webQATotal, 1)
	if err != nil {
		atomic.AddUint64(&m.webQAErrors, 1)
		return
	}

	m.durationMu.Lock()
	m.webQADuration += duration.Seconds()
	m.durationMu.Unlock()
}

// RecordSecondaryLookup 记录一次仅查文件链接的二次检索。
func (m *QueryMetrics) RecordSecondaryLookup() {
	atomic.AddUint64(&m.secondaryLookups, 1)
}

// RecordVectorSearch 记录向量检索。
func (m *QueryMetrics) RecordVectorSearch(duration time.Duration, err error) {
	atomic.AddUint64(&m.vectorSearchTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.vectorSearchErrors, 1)
		return
	}

	m.durationMu.Lock()
	m.vectorSearchDuration += duration.Seconds()
	m.durationMu.Unlock()
}

// RecordRerank 记录重排调用，degraded 表示重排失败并退回原始排序。
func (m *QueryMetrics) RecordRerank(degraded bool) {
	atomic.AddUint64(&m.rerankTotal, 1)
	if degraded {
		atomic.AddUint64(&m.rerankDegrades, 1)
	}
}

// RecordDiscovery 记录发现式检索。
func (m *QueryMetrics) RecordDiscovery(err error) {
	atomic.AddUint64(&m.discoveryTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.discoveryErrors, 1)
	}
}

// RecordIndexing 记录入库操作。
func (m *QueryMetrics) RecordIndexing(accepted, rejected int, err error) {
	if err != nil {
		atomic.AddUint64(&m.indexErrors, 1)
		return
	}
	if accepted > 0 {
		atomic.AddUint64(&m.chunksIndexed, uint64(accepted))
	}
	if rejected > 0 {
		atomic.AddUint64(&m.chunksRejected, uint64(rejected))
	}
}

// Export 导出 Prometheus 格式指标。
func (m *QueryMetrics) Export(namespace, subsystem string) string {
	var sb strings.Builder
	prefix := namespace
	if subsystem != "" {
		prefix = prefix + "_" + subsystem
	}

	writeCounter := func(name, help string, value uint64) {
		sb.WriteString(fmt.Sprintf("# HELP %s_%s %s\n", prefix, name, help))
		sb.WriteString(fmt.Sprintf("# TYPE %s_%s counter\n", prefix, name))
		sb.WriteString(fmt.Sprintf("%s_%s %d\n", prefix, name, value))
		sb.WriteString("\n")
	}
	writeGauge := func(name, help string, value float64) {
		sb.WriteString(fmt.Sprintf("# HELP %s_%s %s\n", prefix, name, help))
		sb.WriteString(fmt.Sprintf("# TYPE %s_%s gauge\n", prefix, name))
		sb.WriteString(fmt.Sprintf("%s_%s %.4f\n", prefix, name, value))
		sb.WriteString("\n")
	}
	writeDuration := func(name, help string, seconds float64) {
		sb.WriteString(fmt.Sprintf("# HELP %s_%s %s\n", prefix, name, help))
		sb.WriteString(fmt.Sprintf("# TYPE %s_%s counter\n", prefix, name))
		sb.WriteString(fmt.Sprintf("%s_%s %.6f\n", prefix, name, seconds))
		sb.WriteString("\n")
	}

	// 查询指标
	writeCounter("queries_total", "Total number of resolved queries.", atomic.LoadUint64(&m.queriesTotal))
	writeCounter("queries_cache_hits_total", "Number of cache hits.", atomic.LoadUint64(&m.queriesCacheHits))
	writeCounter("queries_cache_misses_total", "Number of cache misses.", atomic.LoadUint64(&m.queriesCacheMisses))
	writeCounter("queries_errors_total", "Number of query errors.", atomic.LoadUint64(&m.queriesErrors))
	writeCounter("refusals_total", "Number of refusal responses.", atomic.LoadUint64(&m.refusalsTotal))

	// 缓存命中率
	cacheHits := atomic.LoadUint64(&m.queriesCacheHits)
	cacheMisses := atomic.LoadUint64(&m.queriesCacheMisses)
	total := cacheHits + cacheMisses
	cacheHitRate := 0.0
	if total > 0 {
		cacheHitRate = float64(cacheHits) / float64(total)
	}
	writeGauge("cache_hit_rate", "Cache hit rate (0-1).", cacheHitRate)

	// 回答来源指标
	writeCounter("answers_webqa_total", "Answers produced by web QA.", atomic.LoadUint64(&m.answersWebQA))
	writeCounter("answers_vector_total", "Answers produced by vector retrieval.", atomic.LoadUint64(&m.answersVector))
	writeCounter("answers_fallback_total", "Answers produced by discovery fallback.", atomic.LoadUint64(&m.answersFallback))

	m.durationMu.Lock()
	webQADuration := m.webQADuration
	vectorDuration := m.vectorSearchDuration
	m.durationMu.Unlock()

	// 联网问答指标
	writeCounter("webqa_total", "Total number of web QA calls.", atomic.LoadUint64(&m.webQATotal))
	writeDuration("webqa_duration_seconds_total", "Total web QA duration.", webQADuration)
	writeCounter("webqa_errors_total", "Number of web QA errors.", atomic.LoadUint64(&m.webQAErrors))
	writeCounter("webqa_secondary_lookups_total", "Number of URLs-only secondary lookups.", atomic.LoadUint64(&m.secondaryLookups))

	// 向量检索指标
	writeCounter("vector_search_total", "Total number of vector searches.", atomic.LoadUint64(&m.vectorSearchTotal))
	writeDuration("vector_search_duration_seconds_total", "Total vector search duration.", vectorDuration)
	writeCounter("vector_search_errors_total", "Number of vector search errors.", atomic.LoadUint64(&m.vectorSearchErrors))

	// 重排指标
	writeCounter("rerank_total", "Total number of rerank calls.", atomic.LoadUint64(&m.rerankTotal))
	writeCounter("rerank_degrades_total", "Number of rerank degradations.", atomic.LoadUint64(&m.rerankDegrades))

	// 发现式检索指标
	writeCounter("discovery_total", "Total number of discovery lookups.", atomic.LoadUint64(&m.discoveryTotal))
	writeCounter("discovery_errors_total", "Number of discovery errors.", atomic.LoadUint64(&m.discoveryErrors))

	// 索引指标
	writeCounter("chunks_indexed_total", "Total chunks ingested.", atomic.LoadUint64(&m.chunksIndexed))
	writeCounter("chunks_rejected_total", "Total chunks rejected by validation.", atomic.LoadUint64(&m.chunksRejected))
	writeCounter("index_errors_total", "Number of ingestion errors.", atomic.LoadUint64(&m.indexErrors))

	// 运行时间
	sb.WriteString(fmt.Sprintf("# HELP %s_uptime_seconds Service uptime in seconds.\n", prefix))
	sb.WriteString(fmt.Sprintf("# TYPE %s_uptime_seconds gauge\n", prefix))
	sb.WriteString(fmt.Sprintf("%s_uptime_seconds %.2f\n", prefix, time.Since(m.startTime).Seconds()))
	sb.WriteString("\n")

	return sb.String()
}

// Stats 返回当前统计信息（用于 API）。
func (m *QueryMetrics) Stats() map[string]interface{} {
	m.durationMu.Lock()
	webQADuration := m.webQADuration
	vectorDuration := m.vectorSearchDuration
	m.durationMu.Unlock()

	cacheHits := atomic.LoadUint64(&m.queriesCacheHits)
	cacheMisses := atomic.LoadUint64(&m.queriesCacheMisses)
	cacheTotal := cacheHits + cacheMisses
	cacheHitRate := 0.0
	if cacheTotal > 0 {
		cacheHitRate = float64(cacheHits) / float64(cacheTotal)
	}

	webQATotal := atomic.LoadUint64(&m.webQATotal)
	avgWebQADuration := 0.0
	if webQATotal > 0 {
		avgWebQADuration = webQADuration / float64(webQATotal)
	}

	vectorTotal := atomic.LoadUint64(&m.vectorSearchTotal)
	avgVectorDuration := 0.0
	if vectorTotal > 0 {
		avgVectorDuration = vectorDuration / float64(vectorTotal)
	}

	return map[string]interface{}{
		"queries": map[string]interface{}{
			"total":          atomic.LoadUint64(&m.queriesTotal),
			"cache_hits":     cacheHits,
			"cache_misses":   cacheMisses,
			"cache_hit_rate": cacheHitRate,
			"errors":         atomic.LoadUint64(&m.queriesErrors),
			"refusals":       atomic.LoadUint64(&m.refusalsTotal),
		},
		"answers": map[string]interface{}{
			"perplexity_qa": atomic.LoadUint64(&m.answersWebQA),
			"vertex_rag":    atomic.LoadUint64(&m.answersVector),
			"cse_fallback":  atomic.LoadUint64(&m.answersFallback),
		},
		"webqa": map[string]interface{}{
			"total":               webQATotal,
			"total_duration_secs": webQADuration,
			"avg_duration_secs":   avgWebQADuration,
			"errors":              atomic.LoadUint64(&m.webQAErrors),
			"secondary_lookups":   atomic.LoadUint64(&m.secondaryLookups),
		},
		"vector_search": map[string]interface{}{
			"total":               vectorTotal,
			"total_duration_secs": vectorDuration,
			"avg_duration_secs":   avgVectorDuration,
			"errors":              atomic.LoadUint64(&m.vectorSearchErrors),
		},
		"rerank": map[string]interface{}{
			"total":    atomic.LoadUint64(&m.rerankTotal),
			"degrades": atomic.LoadUint64(&m.rerankDegrades),
		},
		"discovery": map[string]interface{}{
			"total":  atomic.LoadUint64(&m.discoveryTotal),
			"errors": atomic.LoadUint64(&m.discoveryErrors),
		},
		"indexing": map[string]interface{}{
			"chunks_indexed":  atomic.LoadUint64(&m.chunksIndexed),
			"chunks_rejected": atomic.LoadUint64(&m.chunksRejected),
			"errors":          atomic.LoadUint64(&m.indexErrors),
		},
		"uptime_seconds": time.Since(m.startTime).Seconds(),
	}
}

// Reset 重置所有指标（仅用于测试）。
func (m *QueryMetrics) Reset() {
	atomic.StoreUint64(&m.queriesTotal, 0)
	atomic.StoreUint64(&m.queriesCacheHits, 0)
	atomic.StoreUint64(&m.queriesCacheMisses, 0)
	atomic.StoreUint64(&m.queriesErrors, 0)
	atomic.StoreUint64(&m.refusalsTotal, 0)
	atomic.StoreUint64(&m.answersWebQA, 0)
	atomic.StoreUint64(&m.answersVector, 0)
	atomic.StoreUint64(&m.answersFallback, 0)
	atomic.StoreUint64(&m.webQATotal, 0)
	atomic.StoreUint64(&m.webQAErrors, 0)
	atomic.StoreUint64(&m.secondaryLookups, 0)
	atomic.StoreUint64(&m.vectorSearchTotal, 0)
	atomic.StoreUint64(&m.vectorSearchErrors, 0)
	atomic.StoreUint64(&m.rerankTotal, 0)
	atomic.StoreUint64(&m.rerankDegrades, 0)
	atomic.StoreUint64(&m.discoveryTotal, 0)
	atomic.StoreUint64(&m.discoveryErrors, 0)
	atomic.StoreUint64(&m.chunksIndexed, 0)
	atomic.StoreUint64(&m.chunksRejected, 0)
	atomic.StoreUint64(&m.indexErrors, 0)

	m.durationMu.Lock()
	m.webQADuration = 0
	m.vectorSearchDuration = 0
	m.startTime = time.Now()
	m.durationMu.Unlock()
}
