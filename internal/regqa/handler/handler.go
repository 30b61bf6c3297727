// Package handler provides HTTP handlers for the query service.
package handler

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/regqa/internal/model"
	"github.com/kart-io/regqa/internal/regqa/biz"
	"github.com/kart-io/regqa/internal/regqa/metrics"
	"github.com/kart-io/regqa/pkg/app"
	"github.com/kart-io/regqa/pkg/component/storage"
	"github.com/kart-io/regqa/pkg/middleware"
	"github.com/kart-io/regqa/pkg/pool"
	"github.com/kart-io/regqa/pkg/tracing"
	"github.com/kart-io/regqa/pkg/utils/errors"
	"github.com/kart-io/regqa/pkg/utils/response"
	"github.com/kart-io/regqa/pkg/validator"
)

// MetricsNamespace is the metrics export namespace.
const MetricsNamespace = "regqa"

// QAHandler handles query resolution HTTP requests.
type QAHandler struct {
	service      biz.Service
	storage      *storage.Manager
	queryTimeout time.Duration
}

// NewQAHandler creates a new QAHandler.
func NewQAHandler(service biz.Service, storageMgr *storage.Manager, queryTimeout time.Duration) *QAHandler {
	if queryTimeout <= 0 {
		queryTimeout = 90 * time.Second
	}
	return &QAHandler{
		service:      service,
		storage:      storageMgr,
		queryTimeout: queryTimeout,
	}
}

// Query resolves a regulation question.
//
// 成功回答与拒答都返回 200，响应体即规约的扁平 JSON 结构；
// 校验错误返回 400，链路超时返回 408。
func (h *QAHandler) Query(c *gin.Context) {
	var req model.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, errors.ErrQueryValidation.WithMessage(err.Error()))
		return
	}
	if verr := validator.StructWithLang(&req, reqLang(c, req.Language)); verr.HasErrors() {
		h.fail(c, errors.ErrQueryValidation.WithMessage(verr.Error()))
		return
	}

	// 整条检索链路的超时上限，各后端在其内部再细分预算
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.queryTimeout)
	defer cancel()

	ctx, span := tracing.StartSpan(ctx, MetricsNamespace, "query.resolve")
	defer span.End()
	tracing.AddSpanAttributes(ctx,
		tracing.String(tracing.QueryProvince, req.Province),
		tracing.String(tracing.QueryAsset, req.Asset),
		tracing.String(tracing.QueryDocClass, req.DocClass),
		tracing.String(tracing.HTTPRequestID, middleware.RequestIDFromGin(c)),
	)

	result, err := h.service.Query(ctx, &req)
	if err != nil {
		tracing.RecordError(ctx, err)
		if ctx.Err() == context.DeadlineExceeded {
			h.fail(c, errors.ErrQueryTimeout)
			return
		}
		h.fail(c, err)
		return
	}

	tracing.AddSpanAttributes(ctx,
		tracing.String(tracing.QueryTopic, result.Topic),
		tracing.String(tracing.QueryMode, result.Mode),
	)
	c.JSON(http.StatusOK, result)
}

// IngestChunks validates and upserts regulation chunks into the vector index.
func (h *QAHandler) IngestChunks(c *gin.Context) {
	var req model.IngestChunksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, errors.ErrChunkInvalid.WithMessage(err.Error()))
		return
	}

	ctx, span := tracing.StartSpan(c.Request.Context(), MetricsNamespace, "index.ingest")
	defer span.End()
	tracing.AddSpanAttributes(ctx, tracing.Int("index.chunk_count", len(req.Chunks)))

	result, err := h.service.IngestChunks(ctx, &req)
	if err != nil {
		tracing.RecordError(ctx, err)
		h.fail(c, err)
		return
	}

	h.writer(c).OK(result)
}

// IndexStats returns vector index and cache statistics.
func (h *QAHandler) IndexStats(c *gin.Context) {
	stats, err := h.service.IndexStats(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	h.writer(c).OK(stats)
}

// componentHealth is the per-component section of the health response.
type componentHealth struct {
	Healthy   bool   `json:"healthy"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// Healthz reports liveness and backing component ping states.
func (h *QAHandler) Healthz(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "ok"}

	if h.storage != nil && h.storage.Count() > 0 {
		components := make(map[string]componentHealth)
		for name, hs := range h.storage.HealthCheckAll(c.Request.Context()) {
			entry := componentHealth{
				Healthy:   hs.Healthy,
				LatencyMS: hs.Latency.Milliseconds(),
			}
			if hs.Error != nil {
				entry.Error = hs.Error.Error()
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
			}
			components[name] = entry
		}
		body["components"] = components
	}

	c.JSON(status, body)
}

// Metrics returns the query metrics snapshot. JSON by default, Prometheus
// text format with ?format=prometheus. Worker pool occupancy rides along
// in both formats.
func (h *QAHandler) Metrics(c *gin.Context) {
	m := metrics.GetQueryMetrics()

	if c.Query("format") == "prometheus" {
		c.String(http.StatusOK, m.Export(MetricsNamespace, "query")+poolMetricsText(MetricsNamespace))
		return
	}

	stats := m.Stats()
	if poolStats, err := pool.StatsGlobal(); err == nil {
		stats["worker_pools"] = poolStats
	}
	c.JSON(http.StatusOK, stats)
}

// Version returns build information.
func (h *QAHandler) Version(c *gin.Context) {
	c.JSON(http.StatusOK, app.GetVersionInfo())
}

func (h *QAHandler) writer(c *gin.Context) *response.Writer {
	return response.NewWriter(c).
		WithRequestID(middleware.RequestIDFromGin(c)).
		WithLang(response.NegotiateLang(c.GetHeader("Accept-Language"))).
		WithTimestamp()
}

func (h *QAHandler) fail(c *gin.Context, err error) {
	h.writer(c).Fail(err)
}

// reqLang negotiates the language for validation messages: the request
// body's lang field wins, then the Accept-Language header.
func reqLang(c *gin.Context, bodyLang string) string {
	if bodyLang != "" {
		return validator.MatchLang(bodyLang)
	}
	return validator.MatchLang(c.GetHeader("Accept-Language"))
}

// poolMetricsText renders worker pool occupancy in Prometheus text
// format. Returns "" when the global pools are not initialized.
func poolMetricsText(namespace string) string {
	stats, err := pool.StatsGlobal()
	if err != nil || len(stats) == 0 {
		return ""
	}

	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	write := func(metric, help, typ string, value func(pool.Info) int64) {
		fmt.Fprintf(&sb, "# HELP %s_%s %s\n", namespace, metric, help)
		fmt.Fprintf(&sb, "# TYPE %s_%s %s\n", namespace, metric, typ)
		for _, name := range names {
			fmt.Fprintf(&sb, "%s_%s{pool=%q} %d\n", namespace, metric, name, value(stats[name]))
		}
		sb.WriteString("\n")
	}

	write("pool_capacity", "Worker pool capacity.", "gauge",
		func(i pool.Info) int64 { return int64(i.Capacity) })
	write("pool_running", "Workers currently executing tasks.", "gauge",
		func(i pool.Info) int64 { return int64(i.Running) })
	write("pool_waiting", "Tasks waiting for a free worker.", "gauge",
		func(i pool.Info) int64 { return int64(i.Waiting) })
	write("pool_tasks_submitted_total", "Tasks accepted by the pool.", "counter",
		func(i pool.Info) int64 { return i.Submitted })
	write("pool_tasks_completed_total", "Tasks finished without panic.", "counter",
		func(i pool.Info) int64 { return i.Completed })
	write("pool_tasks_rejected_total", "Tasks rejected by a full pool.", "counter",
		func(i pool.Info) int64 { return i.Rejected })

	return sb.String()
}
