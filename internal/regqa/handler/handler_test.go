package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/regqa/internal/model"
	"github.com/kart-io/regqa/internal/regqa/handler"
	"github.com/kart-io/regqa/pkg/component/storage"
	"github.com/kart-io/regqa/pkg/pool"
	"github.com/kart-io/regqa/pkg/utils/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// envelope 统一失败/数据响应的信封结构。
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// fakeService 可注入结果的查询服务替身。
type fakeService struct {
	result    *model.QueryResult
	err       error
	ingest    *model.IngestResult
	ingestErr error
	stats     *model.IndexStats
	statsErr  error

	// block 为 true 时 Query 阻塞到 ctx 结束，用于触发链路超时。
	block bool
}

func (f *fakeService) Query(ctx context.Context, req *model.QueryRequest) (*model.QueryResult, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.result, f.err
}

func (f *fakeService) IngestChunks(ctx context.Context, req *model.IngestChunksRequest) (*model.IngestResult, error) {
	return f.ingest, f.ingestErr
}

func (f *fakeService) IndexStats(ctx context.Context) (*model.IndexStats, error) {
	return f.stats, f.statsErr
}

func postJSON(t *testing.T, h gin.HandlerFunc, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	c.Request = req

	h(c)
	return w
}

func getPath(t *testing.T, h gin.HandlerFunc, path string) *httptest.ResponseRecorder {
	t.Helper()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, path, nil)

	h(c)
	return w
}

func validQueryBody() string {
	return `{"province":"gd","asset":"solar","doc_class":"grid","question":"光伏项目并网验收需要哪些材料？"}`
}

func TestQueryHandlerSuccess(t *testing.T) {
	svc := &fakeService{
		result: &model.QueryResult{
			Answer:    "- 并网验收应在投运前完成。\n  （来源：《并网验收办法》）",
			Citations: []model.Citation{{Title: "并网验收办法", URL: "https://nea.gov.cn/a"}},
			Mode:      model.ModeVertexRAG,
			Topic:     "grid_connection",
		},
	}
	h := handler.NewQAHandler(svc, nil, time.Second)

	w := postJSON(t, h.Query, "/v1/query", validQueryBody(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var result model.QueryResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, model.ModeVertexRAG, result.Mode)
	assert.Equal(t, "grid_connection", result.Topic)
	assert.Len(t, result.Citations, 1)

	// 成功响应是扁平结构，不套信封
	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	_, hasCode := raw["code"]
	assert.False(t, hasCode, "成功响应不应携带 code 字段")
}

func TestQueryHandlerRefusalIsOK(t *testing.T) {
	svc := &fakeService{
		result: &model.QueryResult{
			Answer:  "暂时没有找到可引用的法规原文，建议查阅以下官方链接。",
			Mode:    model.ModeCSEFallback,
			Refusal: true,
			Tips:    []string{"https://drc.gd.gov.cn/zcfg/1.html"},
		},
	}
	h := handler.NewQAHandler(svc, nil, time.Second)

	w := postJSON(t, h.Query, "/v1/query", validQueryBody(), nil)
	require.Equal(t, http.StatusOK, w.Code, "拒答是合法结果，应返回 200")

	var result model.QueryResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Refusal)
	assert.NotEmpty(t, result.Tips)
}

func TestQueryHandlerMalformedJSON(t *testing.T) {
	h := handler.NewQAHandler(&fakeService{}, nil, time.Second)

	w := postJSON(t, h.Query, "/v1/query", `{"province":`, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, errors.ErrQueryValidation.Code, env.Code)
}

func TestQueryHandlerShapeGate(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"省份大写", `{"province":"GD","asset":"solar","doc_class":"grid","question":"q"}`},
		{"资产含汉字", `{"province":"gd","asset":"太阳能","doc_class":"grid","question":"q"}`},
		{"类别含空白", `{"province":"gd","asset":"solar","doc_class":"grid rules","question":"q"}`},
		{"语言不受支持", `{"province":"gd","asset":"solar","doc_class":"grid","question":"q","lang":"jp"}`},
		{"问题超长", fmt.Sprintf(`{"province":"gd","asset":"solar","doc_class":"grid","question":%q}`, strings.Repeat("验", 2001))},
	}

	h := handler.NewQAHandler(&fakeService{}, nil, time.Second)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, h.Query, "/v1/query", tt.body, nil)
			require.Equal(t, http.StatusBadRequest, w.Code)

			var env envelope
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
			assert.Equal(t, errors.ErrQueryValidation.Code, env.Code)
		})
	}
}

func TestQueryHandlerShapeGateLanguage(t *testing.T) {
	h := handler.NewQAHandler(&fakeService{}, nil, time.Second)
	badProvince := `{"province":"GD","asset":"solar","doc_class":"grid","question":"q"}`

	t.Run("默认英文", func(t *testing.T) {
		w := postJSON(t, h.Query, "/v1/query", badProvince, nil)
		var env envelope
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
		assert.Contains(t, env.Message, "province")
		assert.Contains(t, env.Message, "province code")
	})

	t.Run("按请求头切中文", func(t *testing.T) {
		w := postJSON(t, h.Query, "/v1/query", badProvince,
			map[string]string{"Accept-Language": "zh-CN,zh;q=0.9"})
		var env envelope
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
		assert.Contains(t, env.Message, "拼音简码")
	})
}

func TestQueryHandlerServiceError(t *testing.T) {
	t.Run("参数校验失败映射400", func(t *testing.T) {
		svc := &fakeService{err: errors.ErrQueryValidation.WithMessage("province: unknown")}
		h := handler.NewQAHandler(svc, nil, time.Second)

		w := postJSON(t, h.Query, "/v1/query", validQueryBody(), nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("内部失败映射500", func(t *testing.T) {
		svc := &fakeService{err: errors.ErrQueryFailed.WithMessage("chain exhausted")}
		h := handler.NewQAHandler(svc, nil, time.Second)

		w := postJSON(t, h.Query, "/v1/query", validQueryBody(), nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestQueryHandlerTimeout(t *testing.T) {
	svc := &fakeService{block: true}
	h := handler.NewQAHandler(svc, nil, 30*time.Millisecond)

	w := postJSON(t, h.Query, "/v1/query", validQueryBody(), nil)
	require.Equal(t, http.StatusRequestTimeout, w.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, errors.ErrQueryTimeout.Code, env.Code)
}

func TestIngestHandler(t *testing.T) {
	t.Run("入库成功", func(t *testing.T) {
		svc := &fakeService{ingest: &model.IngestResult{Accepted: 2, Rejected: 0, Total: 2}}
		h := handler.NewQAHandler(svc, nil, time.Second)

		body := `{"chunks":[{"id":"c1","text":"t","title":"办法","province":"gd","asset":"solar","doc_class":"grid"},
			{"id":"c2","text":"t","title":"办法","province":"sd","asset":"wind","doc_class":"land"}]}`
		w := postJSON(t, h.IngestChunks, "/v1/index/chunks", body, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var env envelope
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
		assert.Equal(t, 0, env.Code)

		var result model.IngestResult
		require.NoError(t, json.Unmarshal(env.Data, &result))
		assert.Equal(t, 2, result.Accepted)
	})

	t.Run("缺少chunks字段", func(t *testing.T) {
		h := handler.NewQAHandler(&fakeService{}, nil, time.Second)

		w := postJSON(t, h.IngestChunks, "/v1/index/chunks", `{}`, nil)
		require.Equal(t, http.StatusBadRequest, w.Code)

		var env envelope
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
		assert.Equal(t, errors.ErrChunkInvalid.Code, env.Code)
	})

	t.Run("入库失败映射500", func(t *testing.T) {
		svc := &fakeService{ingestErr: errors.ErrIngestFailed.WithMessage("milvus down")}
		h := handler.NewQAHandler(svc, nil, time.Second)

		body := `{"chunks":[{"id":"c1","text":"t","title":"办法","province":"gd","asset":"solar","doc_class":"grid"}]}`
		w := postJSON(t, h.IngestChunks, "/v1/index/chunks", body, nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestIndexStatsHandler(t *testing.T) {
	svc := &fakeService{stats: &model.IndexStats{Collection: "regulation_chunks", RowCount: 42}}
	h := handler.NewQAHandler(svc, nil, time.Second)

	w := getPath(t, h.IndexStats, "/v1/index/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))

	var stats model.IndexStats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, int64(42), stats.RowCount)
}

// fakeStorageClient 模拟一个可注入健康状态的存储组件。
type fakeStorageClient struct {
	name    string
	pingErr error
}

func (f *fakeStorageClient) Name() string                   { return f.name }
func (f *fakeStorageClient) Ping(ctx context.Context) error { return f.pingErr }
func (f *fakeStorageClient) Close() error                   { return nil }

func TestHealthzHandler(t *testing.T) {
	t.Run("无组件时仅报告存活", func(t *testing.T) {
		h := handler.NewQAHandler(&fakeService{}, nil, time.Second)

		w := getPath(t, h.Healthz, "/healthz")
		require.Equal(t, http.StatusOK, w.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "ok", body["status"])
	})

	t.Run("组件全部健康", func(t *testing.T) {
		mgr := storage.NewManager()
		mgr.MustRegister("milvus", &fakeStorageClient{name: "milvus"})
		h := handler.NewQAHandler(&fakeService{}, mgr, time.Second)

		w := getPath(t, h.Healthz, "/healthz")
		require.Equal(t, http.StatusOK, w.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "ok", body["status"])
		assert.Contains(t, body, "components")
	})

	t.Run("组件异常时降级", func(t *testing.T) {
		mgr := storage.NewManager()
		mgr.MustRegister("milvus", &fakeStorageClient{name: "milvus"})
		mgr.MustRegister("redis", &fakeStorageClient{name: "redis", pingErr: fmt.Errorf("connection refused")})
		h := handler.NewQAHandler(&fakeService{}, mgr, time.Second)

		w := getPath(t, h.Healthz, "/healthz")
		require.Equal(t, http.StatusServiceUnavailable, w.Code)

		var body struct {
			Status     string `json:"status"`
			Components map[string]struct {
				Healthy bool   `json:"healthy"`
				Error   string `json:"error"`
			} `json:"components"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "degraded", body.Status)
		assert.False(t, body.Components["redis"].Healthy)
		assert.Contains(t, body.Components["redis"].Error, "connection refused")
		assert.True(t, body.Components["milvus"].Healthy)
	})
}

func TestMetricsHandler(t *testing.T) {
	h := handler.NewQAHandler(&fakeService{}, nil, time.Second)

	t.Run("默认JSON", func(t *testing.T) {
		w := getPath(t, h.Metrics, "/v1/metrics")
		require.Equal(t, http.StatusOK, w.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	})

	t.Run("Prometheus文本", func(t *testing.T) {
		w := getPath(t, h.Metrics, "/v1/metrics?format=prometheus")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "regqa_query")
	})

	t.Run("协程池指标", func(t *testing.T) {
		pool.ResetGlobal()
		require.NoError(t, pool.InitGlobal())
		defer pool.ResetGlobal()

		w := getPath(t, h.Metrics, "/v1/metrics?format=prometheus")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "regqa_pool_capacity")
		assert.Contains(t, w.Body.String(), `pool="background"`)
	})
}

func TestVersionHandler(t *testing.T) {
	h := handler.NewQAHandler(&fakeService{}, nil, time.Second)

	w := getPath(t, h.Version, "/version")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body)
}
