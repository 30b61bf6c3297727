package biz

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/regqa/internal/model"
	"github.com/kart-io/regqa/internal/pkg/qa/domains"
	"github.com/kart-io/regqa/internal/pkg/qa/normalize"
	"github.com/kart-io/regqa/internal/regqa/metrics"
	"github.com/kart-io/regqa/pkg/discovery"
	"github.com/kart-io/regqa/pkg/pool"
	"github.com/kart-io/regqa/pkg/utils/errors"
	"github.com/kart-io/regqa/pkg/utils/id"
	"github.com/kart-io/regqa/pkg/websearch"
)

// cacheWriteTimeout 异步缓存写入的超时时间。
const cacheWriteTimeout = 5 * time.Second

// Service 查询解析服务接口。
type Service interface {
	// Query 解析一次法规问答查询。拒答是合法结果而非错误。
	Query(ctx context.Context, req *model.QueryRequest) (*model.QueryResult, error)

	// IngestChunks 校验并将法规分块写入向量索引。
	IngestChunks(ctx context.Context, req *model.IngestChunksRequest) (*model.IngestResult, error)

	// IndexStats 返回向量索引与缓存统计信息。
	IndexStats(ctx context.Context) (*model.IndexStats, error)
}

// ServiceConfig 服务装配配置。未配置的检索后端在运行期自动跳过。
type ServiceConfig struct {
	WebQA     *WebQA
	Retriever *Retriever
	Reranker  *Reranker
	Composer  *Composer
	Indexer   *Indexer
	Cache     *QueryCache
	Discovery discovery.Discoverer
	Filter    *domains.Filter
}

// QueryService 组合各检索后端实现查询解析。
//
// 后端按固定顺序串行尝试：缓存、联网问答、向量检索、发现式兜底，
// 不做并发竞速。前一后端产出通过校验的回答即终止链路。
type QueryService struct {
	webqa     *WebQA
	retriever *Retriever
	reranker  *Reranker
	composer  *Composer
	indexer   *Indexer
	cache     *QueryCache
	discovery discovery.Discoverer
	filter    *domains.Filter
	metrics   *metrics.QueryMetrics
}

// NewQueryService 创建查询解析服务实例。
func NewQueryService(config *ServiceConfig) *QueryService {
	filter := config.Filter
	if filter == nil {
		filter = domains.NewFilter()
	}
	return &QueryService{
		webqa:     config.WebQA,
		retriever: config.Retriever,
		reranker:  config.Reranker,
		composer:  config.Composer,
		indexer:   config.Indexer,
		cache:     config.Cache,
		discovery: config.Discovery,
		filter:    filter,
		metrics:   metrics.GetQueryMetrics(),
	}
}

// Query 解析一次法规问答查询。
func (s *QueryService) Query(ctx context.Context, req *model.QueryRequest) (*model.QueryResult, error) {
	start := time.Now()
	traceID := id.NewULID()

	q, err := normalize.Normalize(normalize.Query{
		Province: req.Province,
		Asset:    req.Asset,
		DocClass: req.DocClass,
		Question: req.Question,
		Language: req.Language,
	})
	if err != nil {
		s.metrics.RecordQuery(false, err)
		return nil, err
	}

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, q); err == nil && cached != nil {
			s.metrics.RecordQuery(true, nil)
			cached.TraceID = traceID
			cached.ElapsedMS = time.Since(start).Milliseconds()
			return cached, nil
		}
	}

	topic := s.filter.InferTopic(q.Question, q.Asset, q.DocClass)
	allowlist := s.filter.Allowlist(topic, q.Province)

	logger.Infow("开始解析查询",
		"trace_id", traceID,
		"province", q.Province,
		"asset", q.Asset,
		"doc_class", q.DocClass,
		"topic", topic,
		"allowlist_size", len(allowlist))

	cacheable := true
	result := s.tryWebQA(ctx, q, topic, allowlist)
	if result == nil {
		result = s.tryVectorSearch(ctx, q)
	}
	if result == nil {
		result = s.refuse(ctx, q, topic, allowlist)
		// 拒答不写缓存，后端恢复后同一问题应立即重新检索
		cacheable = false
	}

	result.Topic = topic
	result.TraceID = traceID
	result.ElapsedMS = time.Since(start).Milliseconds()

	s.metrics.RecordQuery(false, nil)
	s.metrics.RecordAnswer(result.Mode)
	if result.Refusal {
		s.metrics.RecordRefusal()
	}

	if cacheable && s.cache != nil {
		s.cacheAsync(q, result)
	}

	return result, nil
}

// IngestChunks 校验并将法规分块写入向量索引。
func (s *QueryService) IngestChunks(ctx context.Context, req *model.IngestChunksRequest) (*model.IngestResult, error) {
	if s.indexer == nil {
		return nil, errors.ErrIndexUnavailable
	}

	result, err := s.indexer.IngestChunks(ctx, req.Chunks)
	if err != nil {
		s.metrics.RecordIndexing(0, 0, err)
		return result, err
	}

	s.metrics.RecordIndexing(result.Accepted, result.Rejected, nil)

	// 新条文入库后已缓存的回答可能过期，整体失效
	if s.cache != nil && result.Accepted > 0 {
		if cerr := s.cache.Clear(ctx); cerr != nil {
			logger.Warnw("入库后清理查询缓存失败", "error", cerr.Error())
		}
	}

	return result, nil
}

// IndexStats 返回向量索引与缓存统计信息。
func (s *QueryService) IndexStats(ctx context.Context) (*model.IndexStats, error) {
	if s.indexer == nil {
		return nil, errors.ErrIndexUnavailable
	}

	stats, err := s.indexer.Stats(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if cacheStats, err := s.cache.GetStats(ctx); err == nil {
			stats.Cache = cacheStats
		}
	}

	return stats, nil
}

// tryWebQA 尝试联网问答分支。
// 后端不可用、调用失败或回答未通过校验时返回 nil，由调用方切换
// 到下一个后端。
func (s *QueryService) tryWebQA(ctx context.Context, q normalize.Query, topic string, allowlist []string) *model.QueryResult {
	if s.webqa == nil {
		return nil
	}

	begin := time.Now()
	answer, err := s.webqa.Answer(ctx, q, topic, allowlist)
	if err != nil {
		if stderrors.Is(err, websearch.ErrUnavailable) {
			logger.Debugw("联网问答后端不可用，切换到向量检索", "question", q.Question)
			return nil
		}
		s.metrics.RecordWebQA(time.Since(begin), err)
		logger.Warnw("联网问答失败，切换到向量检索", "question", q.Question, "error", err)
		return nil
	}
	s.metrics.RecordWebQA(time.Since(begin), nil)
	if answer.UsedSecondary {
		s.metrics.RecordSecondaryLookup()
	}

	if err := validateAnswer(answer.Answer, answer.Citations); err != nil {
		logger.Warnw("联网问答回答未通过校验，切换到向量检索", "question", q.Question, "error", err)
		return nil
	}

	return &model.QueryResult{
		Answer:    answer.Answer,
		Citations: answer.Citations,
		Mode:      model.ModePerplexityQA,
	}
}

// tryVectorSearch 尝试向量检索分支。
// 索引无匹配或组装结果未通过校验时返回 nil。
func (s *QueryService) tryVectorSearch(ctx context.Context, q normalize.Query) *model.QueryResult {
	if s.retriever == nil || s.composer == nil {
		return nil
	}

	begin := time.Now()
	results, err := s.retriever.Retrieve(ctx, q)
	s.metrics.RecordVectorSearch(time.Since(begin), err)
	if err != nil {
		logger.Warnw("向量检索失败，进入发现式兜底", "question", q.Question, "error", err)
		return nil
	}
	if len(results) == 0 {
		logger.Infow("向量索引无匹配条文",
			"question", q.Question,
			"province", q.Province,
			"doc_class", q.DocClass)
		return nil
	}

	if s.reranker != nil {
		var outcome RerankOutcome
		results, outcome = s.reranker.Rerank(ctx, q.Question, results)
		if outcome != RerankSkipped {
			s.metrics.RecordRerank(outcome == RerankDegraded)
		}
	}

	composed := s.composer.Compose(q, results)
	if composed == nil {
		logger.Warnw("检索命中无法组装回答", "question", q.Question, "hits", len(results))
		return nil
	}
	if err := validateAnswer(composed.Answer, composed.Citations); err != nil {
		logger.Warnw("组装回答未通过校验，进入发现式兜底", "question", q.Question, "error", err)
		return nil
	}

	return &model.QueryResult{
		Answer:    composed.Answer,
		Citations: composed.Citations,
		Mode:      model.ModeVertexRAG,
	}
}

// refuse 构建携带官方链接提示的拒答，链接来自站点受限的发现式检索。
func (s *QueryService) refuse(ctx context.Context, q normalize.Query, topic string, allowlist []string) *model.QueryResult {
	var tips []string
	if s.discovery != nil {
		items, err := s.discovery.Discover(ctx, &discovery.Request{
			Question: scopedQuestion(q),
			Domains:  allowlist,
		})
		switch {
		case stderrors.Is(err, discovery.ErrUnavailable):
			logger.Debugw("发现后端不可用，返回无提示拒答", "question", q.Question)
		case err != nil:
			s.metrics.RecordDiscovery(err)
			logger.Warnw("发现式检索失败", "question", q.Question, "error", err)
		default:
			s.metrics.RecordDiscovery(nil)
			for _, item := range items {
				tips = append(tips, item.URL)
			}
		}
	}

	logger.Infow("检索后端均无可用回答，返回拒答",
		"question", q.Question,
		"topic", topic,
		"tips", len(tips))

	return &model.QueryResult{
		Answer:  refusalMessage(q.Language, len(tips) > 0),
		Mode:    model.ModeCSEFallback,
		Refusal: true,
		Tips:    tips,
	}
}

// refusalMessage 按请求语言返回拒答文案。
func refusalMessage(language string, hasTips bool) string {
	if language == normalize.LanguageEN {
		if hasTips {
			return "No citable regulation text was found from the allowed official sources. The links below may contain the documents you need."
		}
		return "No citable regulation text was found from the allowed official sources. Please refine the question or try again later."
	}
	if hasTips {
		return "未能在允许的官方来源中检索到可引用的法规条文，以下官方链接可能包含所需文件。"
	}
	return "未能在允许的官方来源中检索到可引用的法规条文，请调整问题后重试。"
}

// cacheAsync 通过后台协程池异步写缓存，池不可用时降级为直接
// 创建 goroutine。缓存副本不携带本次请求的跟踪信息。
func (s *QueryService) cacheAsync(q normalize.Query, result *model.QueryResult) {
	copied := *result
	copied.TraceID = ""
	copied.ElapsedMS = 0

	task := func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorw("缓存写入任务 panic", "panic", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), cacheWriteTimeout)
		defer cancel()
		if err := s.cache.Set(ctx, q, &copied); err != nil {
			logger.Warnw("查询结果写入缓存失败", "question", q.Question, "error", err)
		}
	}

	if err := pool.SubmitToType(pool.BackgroundPool, task); err != nil {
		logger.Warnw("提交缓存任务到协程池失败，降级为直接创建 goroutine", "error", err)
		go task()
	}
}

// 确保 QueryService 实现了 Service 接口。
var _ Service = (*QueryService)(nil)
