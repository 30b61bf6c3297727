package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordQuery(t *testing.T) {
	m := &QueryMetrics{startTime: time.Now()}

	m.RecordQuery(true, nil)
	m.RecordQuery(false, nil)
	m.RecordQuery(false, nil)
	m.RecordQuery(false, errors.New("检索失败"))

	stats := m.Stats()
	queries := stats["queries"].(map[string]interface{})
	assert.Equal(t, uint64(4), queries["total"])
	assert.Equal(t, uint64(1), queries["cache_hits"])
	assert.Equal(t, uint64(2), queries["cache_misses"])
	assert.Equal(t, uint64(1), queries["errors"])
	assert.InDelta(t, 1.0/3.0, queries["cache_hit_rate"].(float64), 1e-6)
}

func TestRecordAnswerByMode(t *testing.T) {
	m := &QueryMetrics{startTime: time.Now()}

	m.RecordAnswer("perplexity_qa")
	m.RecordAnswer("perplexity_qa")
	m.RecordAnswer("vertex_rag")
	m.RecordAnswer("cse_fallback")
	m.RecordAnswer("unknown_mode")

	answers := m.Stats()["answers"].(map[string]interface{})
	assert.Equal(t, uint64(2), answers["perplexity_qa"])
	assert.Equal(t, uint64(1), answers["vertex_rag"])
	assert.Equal(t, uint64(1), answers["cse_fallback"])
}

func TestRecordBackends(t *testing.T) {
	m := &QueryMetrics{startTime: time.Now()}

	m.RecordWebQA(200*time.Millisecond, nil)
	m.RecordWebQA(0, errors.New("上游超时"))
	m.RecordSecondaryLookup()
	m.RecordVectorSearch(50*time.Millisecond, nil)
	m.RecordRerank(false)
	m.RecordRerank(true)
	m.RecordDiscovery(nil)
	m.RecordRefusal()

	stats := m.Stats()

	webqa := stats["webqa"].(map[string]interface{})
	assert.Equal(t, uint64(2), webqa["total"])
	assert.Equal(t, uint64(1), webqa["errors"])
	assert.Equal(t, uint64(1), webqa["secondary_lookups"])
	assert.InDelta(t, 0.2, webqa["total_duration_secs"].(float64), 1e-6)

	rerank := stats["rerank"].(map[string]interface{})
	assert.Equal(t, uint64(2), rerank["total"])
	assert.Equal(t, uint64(1), rerank["degrades"])

	queries := stats["queries"].(map[string]interface{})
	assert.Equal(t, uint64(1), queries["refusals"])
}

func TestRecordIndexing(t *testing.T) {
	m := &QueryMetrics{startTime: time.Now()}

	m.RecordIndexing(120, 3, nil)
	m.RecordIndexing(0, 0, errors.New("写入失败"))

	indexing := m.Stats()["indexing"].(map[string]interface{})
	assert.Equal(t, uint64(120), indexing["chunks_indexed"])
	assert.Equal(t, uint64(3), indexing["chunks_rejected"])
	assert.Equal(t, uint64(1), indexing["errors"])
}

func TestExportPrometheusFormat(t *testing.T) {
	m := &QueryMetrics{startTime: time.Now()}
	m.RecordQuery(false, nil)
	m.RecordAnswer("perplexity_qa")

	out := m.Export("regqa", "query")

	assert.Contains(t, out, "# HELP regqa_query_queries_total")
	assert.Contains(t, out, "# TYPE regqa_query_queries_total counter")
	assert.Contains(t, out, "regqa_query_queries_total 1")
	assert.Contains(t, out, "regqa_query_answers_webqa_total 1")
	assert.Contains(t, out, "# TYPE regqa_query_cache_hit_rate gauge")
	assert.Contains(t, out, "regqa_query_uptime_seconds")

	// 每个指标后保留空行分隔
	assert.True(t, strings.Contains(out, "\n\n"))
}

func TestReset(t *testing.T) {
	m := &QueryMetrics{startTime: time.Now()}
	m.RecordQuery(true, nil)
	m.RecordWebQA(time.Second, nil)
	m.Reset()

	stats := m.Stats()
	queries := stats["queries"].(map[string]interface{})
	assert.Equal(t, uint64(0), queries["total"])
	webqa := stats["webqa"].(map[string]interface{})
	assert.InDelta(t, 0.0, webqa["total_duration_secs"].(float64), 1e-9)
}

func TestGlobalInstance(t *testing.T) {
	first := GetQueryMetrics()
	second := GetQueryMetrics()
	require.Same(t, first, second)
}
