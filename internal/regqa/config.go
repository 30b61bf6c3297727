// Package regqa provides the query service server implementation.
package regqa

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/regqa/internal/pkg/qa/domains"
	"github.com/kart-io/regqa/internal/regqa/biz"
	"github.com/kart-io/regqa/internal/regqa/handler"
	"github.com/kart-io/regqa/internal/regqa/router"
	"github.com/kart-io/regqa/internal/regqa/store"
	"github.com/kart-io/regqa/pkg/app"
	"github.com/kart-io/regqa/pkg/component/milvus"
	"github.com/kart-io/regqa/pkg/component/redis"
	"github.com/kart-io/regqa/pkg/component/storage"
	"github.com/kart-io/regqa/pkg/discovery"
	"github.com/kart-io/regqa/pkg/discovery/cse"
	"github.com/kart-io/regqa/pkg/llm"

	// 导入 LLM 供应商以自动注册
	_ "github.com/kart-io/regqa/pkg/llm/deepseek"
	_ "github.com/kart-io/regqa/pkg/llm/gemini"
	_ "github.com/kart-io/regqa/pkg/llm/huggingface"
	_ "github.com/kart-io/regqa/pkg/llm/ollama"
	_ "github.com/kart-io/regqa/pkg/llm/openai"
	_ "github.com/kart-io/regqa/pkg/llm/siliconflow"

	"github.com/kart-io/regqa/pkg/middleware"
	cacheopts "github.com/kart-io/regqa/pkg/options/cache"
	discoveryopts "github.com/kart-io/regqa/pkg/options/discovery"
	httpopts "github.com/kart-io/regqa/pkg/options/http"
	jwtopts "github.com/kart-io/regqa/pkg/options/jwt"
	llmopts "github.com/kart-io/regqa/pkg/options/llm"
	logopts "github.com/kart-io/regqa/pkg/options/logger"
	middlewareopts "github.com/kart-io/regqa/pkg/options/middleware"
	milvusopts "github.com/kart-io/regqa/pkg/options/milvus"
	retrievalopts "github.com/kart-io/regqa/pkg/options/retrieval"
	websearchopts "github.com/kart-io/regqa/pkg/options/websearch"
	"github.com/kart-io/regqa/pkg/pool"
	"github.com/kart-io/regqa/pkg/tracing"
	"github.com/kart-io/regqa/pkg/websearch"
	"github.com/kart-io/regqa/pkg/websearch/perplexity"
)

// Name is the name of the application.
const Name = "regqa"

// Config contains application-related configurations.
type Config struct {
	HTTPOptions      *httpopts.Options
	LogOptions       *logopts.Options
	JWTOptions       *jwtopts.Options
	MilvusOptions    *milvusopts.Options
	EmbeddingOptions *llmopts.ProviderOptions
	ChatOptions      *llmopts.ProviderOptions
	WebSearchOptions *websearchopts.Options
	DiscoveryOptions *discoveryopts.Options
	RetrievalOptions *retrievalopts.Options
	CacheOptions     *cacheopts.Options
	TraceOptions     *tracing.Options
	RecoveryOptions  *middlewareopts.RecoveryOptions
	RequestIDOptions *middlewareopts.RequestIDOptions
	LoggerOptions    *middlewareopts.LoggerOptions
	CORSOptions      *middlewareopts.CORSOptions
	ShutdownTimeout  time.Duration
}

// NewServer initializes and returns a new Server instance.
//
// 检索后端按可降级原则装配：Milvus 连接失败阻止启动（索引是
// 本服务的立身之本），而 Redis、LLM 密钥、联网检索等外部依赖
// 缺失时只关闭对应分支，服务继续以剩余能力运行。
func (cfg *Config) NewServer(ctx context.Context) (*Server, error) {
	printBanner(cfg)

	// 1. 初始化日志
	cfg.LogOptions.AddInitialField("service.name", Name)
	cfg.LogOptions.AddInitialField("service.version", app.GetVersion())
	if err := cfg.LogOptions.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting query service...")

	// 2. 初始化链路追踪
	if cfg.TraceOptions == nil {
		cfg.TraceOptions = tracing.NewOptions()
	}
	cfg.TraceOptions.ServiceName = Name
	cfg.TraceOptions.ServiceVersion = app.GetVersion()
	traceProvider, err := tracing.NewProvider(cfg.TraceOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if cfg.TraceOptions.Enabled {
		logger.Infow("Tracing initialized",
			"exporter", string(cfg.TraceOptions.ExporterType),
			"endpoint", cfg.TraceOptions.Endpoint,
		)
	}

	// 3. 初始化协程池（健康检查探测与缓存回写走池化 goroutine）
	if err := pool.InitGlobal(); err != nil {
		return nil, fmt.Errorf("failed to initialize worker pools: %w", err)
	}

	// 4. 初始化 Milvus 客户端与向量存储。存储组件注册进管理器，
	// 健康检查探测与失败回收、停机关闭都统一走管理器
	storageMgr := storage.NewManager()
	milvusClient, err := milvus.New(cfg.MilvusOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize milvus: %w", err)
	}
	storageMgr.MustRegister("milvus", milvusClient)

	vectorStore := store.NewMilvusStore(milvusClient, cfg.MilvusOptions.Collection, cfg.MilvusOptions.Dimension)
	if err := vectorStore.EnsureCollection(ctx); err != nil {
		_ = storageMgr.CloseAll()
		return nil, fmt.Errorf("failed to ensure collection: %w", err)
	}
	logger.Infow("Vector store initialized",
		"collection", cfg.MilvusOptions.Collection,
		"dimension", cfg.MilvusOptions.Dimension,
	)

	// 5. 初始化 Redis（查询缓存与嵌入缓存共用连接，连接失败降级运行）
	var redisClient *redis.Client
	var queryCache *biz.QueryCache
	if cfg.CacheOptions.Enabled && cfg.CacheOptions.Redis != nil {
		redisClient, err = redis.NewWithContext(ctx, cfg.CacheOptions.Redis)
		if err != nil {
			logger.Warnw("failed to connect to redis, cache will be disabled", "error", err.Error())
			redisClient = nil
		} else {
			storageMgr.MustRegister("redis", redisClient)
			queryCache = biz.NewQueryCache(redisClient.Client(), &biz.QueryCacheConfig{
				Enabled:   true,
				TTL:       cfg.CacheOptions.TTL,
				KeyPrefix: cfg.CacheOptions.KeyPrefix,
			})
			logger.Infow("Redis cache initialized",
				"addr", cfg.CacheOptions.Redis.Addr(),
				"ttl", cfg.CacheOptions.TTL,
			)
		}
	} else {
		logger.Info("Cache is disabled")
	}

	// 6. 初始化 LLM 供应商（密钥缺失按分支不可用降级，不阻止启动）
	var embedder llm.EmbeddingProvider
	if base, perr := llm.NewEmbeddingProvider(cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.ToConfigMap()); perr != nil {
		logger.Warnw("embedding provider unavailable, vector retrieval disabled",
			"provider", cfg.EmbeddingOptions.Provider,
			"known_providers", llm.ListProviders(),
			"error", perr.Error(),
		)
	} else {
		embedder = llm.NewResilientEmbeddingProvider(base, nil, nil)
		if redisClient != nil && cfg.CacheOptions.EmbeddingEnabled {
			embCacheCfg := llm.DefaultEmbeddingCacheConfig()
			embCacheCfg.TTL = cfg.CacheOptions.EmbeddingTTL
			// 键前缀带上供应商与模型，换模型后不会读到旧向量
			embCacheCfg.KeyPrefix = fmt.Sprintf("emb:%s:%s:", cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.Model)
			embedder = llm.NewCachedEmbeddingProvider(embedder, redisClient.Client(), embCacheCfg)
		}
		logger.Infow("Embedding provider initialized",
			"provider", cfg.EmbeddingOptions.Provider,
			"model", cfg.EmbeddingOptions.Model,
			"cached", redisClient != nil && cfg.CacheOptions.EmbeddingEnabled,
		)
	}

	var chat llm.ChatProvider
	if base, perr := llm.NewChatProvider(cfg.ChatOptions.Provider, cfg.ChatOptions.ToConfigMap()); perr != nil {
		logger.Warnw("chat provider unavailable, rerank disabled",
			"provider", cfg.ChatOptions.Provider,
			"known_providers", llm.ListProviders(),
			"error", perr.Error(),
		)
	} else {
		chat = llm.NewResilientChatProvider(base, nil, nil)
		logger.Infow("Chat provider initialized",
			"provider", cfg.ChatOptions.Provider,
			"model", cfg.ChatOptions.Model,
		)
	}

	// 7. 初始化联网检索与文件发现客户端
	var searchClient websearch.Client
	if cfg.WebSearchOptions.APIKey == "" {
		logger.Warn("web search api key not configured, web answering disabled")
	} else {
		searchClient = perplexity.New(cfg.WebSearchOptions.ToPerplexityConfig())
		logger.Infow("Web search client initialized", "model", cfg.WebSearchOptions.Model)
	}

	var discoverer discovery.Discoverer
	if cfg.DiscoveryOptions.APIKey == "" || cfg.DiscoveryOptions.EngineID == "" {
		logger.Warn("document discovery not configured, discovery disabled")
	} else {
		discoverer = cse.New(cfg.DiscoveryOptions.ToCSEConfig())
		logger.Info("Document discovery client initialized")
	}

	// 8. 加载域名许可表
	filter, err := domains.NewFilterFromFile(cfg.RetrievalOptions.DomainTablePath)
	if err != nil {
		_ = storageMgr.CloseAll()
		return nil, fmt.Errorf("failed to load domain table: %w", err)
	}
	if cfg.RetrievalOptions.DomainTableWatch && cfg.RetrievalOptions.DomainTablePath != "" {
		if werr := filter.Watch(); werr != nil {
			logger.Warnw("failed to watch domain table, hot reload disabled", "error", werr.Error())
		} else {
			logger.Infow("Domain table watch started", "path", cfg.RetrievalOptions.DomainTablePath)
		}
	}

	// 9. 组装业务层
	var webQA *biz.WebQA
	if searchClient != nil {
		webQA = biz.NewWebQA(searchClient, filter, &biz.WebQAConfig{
			Timeout: cfg.WebSearchOptions.Timeout,
		})
	}

	var retriever *biz.Retriever
	var indexer *biz.Indexer
	if embedder != nil {
		retriever = biz.NewRetriever(embedder, vectorStore, &biz.RetrieverConfig{
			TopK:          cfg.RetrievalOptions.TopK,
			SearchTimeout: cfg.RetrievalOptions.SearchTimeout,
		})
		indexer = biz.NewIndexer(vectorStore, embedder)
	}

	var reranker *biz.Reranker
	if chat != nil && cfg.RetrievalOptions.Rerank != nil {
		reranker = biz.NewReranker(chat, &biz.RerankerConfig{
			Enabled: cfg.RetrievalOptions.Rerank.Enabled,
			TopK:    cfg.RetrievalOptions.Rerank.TopK,
		})
	}

	qaService := biz.NewQueryService(&biz.ServiceConfig{
		WebQA:     webQA,
		Retriever: retriever,
		Reranker:  reranker,
		Composer:  biz.NewComposer(filter),
		Indexer:   indexer,
		Cache:     queryCache,
		Discovery: discoverer,
		Filter:    filter,
	})
	logger.Infow("Query service initialized",
		"web_qa", webQA != nil,
		"vector_retrieval", retriever != nil,
		"rerank", reranker != nil,
		"discovery", discoverer != nil,
		"cache", queryCache != nil,
	)

	// 10. 初始化 Handler 与路由
	qaHandler := handler.NewQAHandler(qaService, storageMgr, cfg.HTTPOptions.RequestTimeout)

	gin.SetMode(cfg.HTTPOptions.Mode)
	engine := gin.New()
	engine.Use(
		middleware.RecoveryWithConfig(cfg.recoveryConfig()),
		middleware.RequestIDWithConfig(cfg.requestIDConfig()),
		middleware.LoggerWithConfig(cfg.loggerConfig()),
	)
	if cfg.CORSOptions != nil && len(cfg.CORSOptions.AllowOrigins) > 0 {
		engine.Use(middleware.CORSWithConfig(cfg.CORSOptions.ToCORSConfig()))
	}
	if cfg.HTTPOptions.RequestTimeout > 0 {
		engine.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
			Timeout:   cfg.HTTPOptions.RequestTimeout,
			SkipPaths: []string{"/healthz", "/v1/metrics"},
		}))
	}
	router.Register(engine, qaHandler, cfg.JWTOptions)

	// 11. 初始化 HTTP 服务器
	srv := &http.Server{
		Addr:         cfg.HTTPOptions.Addr,
		Handler:      engine,
		ReadTimeout:  cfg.HTTPOptions.ReadTimeout,
		WriteTimeout: cfg.HTTPOptions.WriteTimeout,
		IdleTimeout:  cfg.HTTPOptions.IdleTimeout,
	}

	logger.Info("Query service is ready")
	return &Server{
		srv:             srv,
		shutdownTimeout: cfg.ShutdownTimeout,
		closers: []func(){
			filter.Close,
			func() { _ = storageMgr.CloseAll() },
			func() { _ = pool.CloseGlobalTimeout(5 * time.Second) },
			func() {
				// 停机前冲刷未导出的 span
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = traceProvider.Shutdown(flushCtx)
			},
		},
	}, nil
}

func (cfg *Config) recoveryConfig() middleware.RecoveryConfig {
	if cfg.RecoveryOptions != nil {
		return cfg.RecoveryOptions.ToRecoveryConfig()
	}
	return middleware.DefaultRecoveryConfig
}

func (cfg *Config) requestIDConfig() middleware.RequestIDConfig {
	if cfg.RequestIDOptions != nil {
		return cfg.RequestIDOptions.ToRequestIDConfig()
	}
	return middleware.DefaultRequestIDConfig
}

func (cfg *Config) loggerConfig() middleware.LoggerConfig {
	if cfg.LoggerOptions != nil {
		return cfg.LoggerOptions.ToLoggerConfig()
	}
	return middleware.DefaultLoggerConfig
}

func printBanner(cfg *Config) {
	fmt.Printf("Starting %s...\n", Name)
	fmt.Printf("  Embedding: %s (%s)\n", cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.Model)
	fmt.Printf("  Chat: %s (%s)\n", cfg.ChatOptions.Provider, cfg.ChatOptions.Model)
	fmt.Printf("  Listen: %s\n", cfg.HTTPOptions.Addr)
}
