// Package perplexity 提供 Perplexity 检索问答客户端实现。
// Perplexity 的 chat/completions 接口在生成回答的同时执行实时联网检索，
// 支持按域名与时效过滤检索范围，并返回结构化引用来源，
// 适合限定官方网站来源的政策法规问答。
package perplexity

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kart-io/regqa/pkg/resilience"
	"github.com/kart-io/regqa/pkg/utils/httpclient"
	"github.com/kart-io/regqa/pkg/utils/json"
	"github.com/kart-io/regqa/pkg/websearch"
)

// ClientName 是 Perplexity 客户端的名称标识符
const ClientName = "perplexity"

// defaultSystemPrompt 约束回答贴近官方原文，减少生成内容里的杜撰来源。
const defaultSystemPrompt = "你是中国能源项目政策法规问答助手。请依据官方政府网站的检索结果回答问题，" +
	"优先引用法规原文条款，注明文件名称与发布机构。检索结果无法支撑的内容不要编造。"

// urlsOnlyPrompt 用于兜底查询，只要链接不要正文。
const urlsOnlyPrompt = "你是政策文件检索助手。仅列出与问题最相关的官方文件链接，" +
	"每行一个完整 URL，不要输出任何解释或其他文字。"

// urlsOnlyMaxTokens 兜底查询的输出上限，链接列表不需要长回答。
const urlsOnlyMaxTokens = 512

// Config Perplexity 客户端配置。
type Config struct {
	// APIKey API 密钥。
	// 为空时客户端视为不可用，所有调用返回 websearch.ErrUnavailable。
	APIKey string `json:"api_key" mapstructure:"api_key"`

	// BaseURL API 基础地址。
	BaseURL string `json:"base_url" mapstructure:"base_url"`

	// Model 检索问答模型。
	Model string `json:"model" mapstructure:"model"`

	// Timeout 单次 HTTP 请求超时时间，重试由 Retry 策略控制。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxTokens 回答长度上限。
	MaxTokens int `json:"max_tokens" mapstructure:"max_tokens"`

	// Temperature 采样温度。取低值使回答稳定、贴近检索到的原文。
	Temperature float64 `json:"temperature" mapstructure:"temperature"`

	// Recency 默认检索时效过滤，政策法规场景按年过滤。
	Recency string `json:"recency" mapstructure:"recency"`

	// Retry 控制对 429/408/5xx 与超时错误的重试，为 nil 时使用默认策略。
	// 其余 4xx 错误立即失败不重试。
	Retry *resilience.RetryConfig `json:"-" mapstructure:"-"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() *Config {
	return &Config{
		BaseURL:     "https://api.perplexity.ai",
		Model:       "sonar",
		Timeout:     60 * time.Second,
		MaxTokens:   1024,
		Temperature: 0.2,
		Recency:     "year",
	}
}

// Client Perplexity 检索问答客户端。
type Client struct {
	config     *Config
	httpClient *httpclient.Client
}

// New 创建 Perplexity 客户端。
// APIKey 缺失不是构造错误：客户端照常创建，调用时返回
// websearch.ErrUnavailable，由上层降级处理。
func New(config *Config) *Client {
	def := DefaultConfig()
	if config == nil {
		config = def
	}
	if config.BaseURL == "" {
		config.BaseURL = def.BaseURL
	}
	if config.Model == "" {
		config.Model = def.Model
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = def.MaxTokens
	}
	if config.Temperature <= 0 {
		config.Temperature = def.Temperature
	}
	if config.Recency == "" {
		config.Recency = def.Recency
	}
	if config.Retry == nil {
		config.Retry = resilience.DefaultRetryConfig()
	}

	return &Client{
		config: config,
		// HTTP 层不重试，重试统一由 resilience 策略控制
		httpClient: httpclient.NewClient(config.Timeout, 0),
	}
}

// Name 返回客户端名称。
func (c *Client) Name() string {
	return ClientName
}

// chatMessage Perplexity chat API 消息。
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest Perplexity chat API 请求体。
type chatRequest struct {
	Model                  string        `json:"model"`
	Messages               []chatMessage `json:"messages"`
	MaxTokens              int           `json:"max_tokens,omitempty"`
	Temperature            float64       `json:"temperature,omitempty"`
	SearchDomainFilter     []string      `json:"search_domain_filter,omitempty"`
	SearchRecencyFilter    string        `json:"search_recency_filter,omitempty"`
	ReturnRelatedQuestions bool          `json:"return_related_questions,omitempty"`
}

// chatResponse Perplexity chat API 响应体。
type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Created int64  `json:"created"`
	Choices []struct {
		Index        int         `json:"index"`
		FinishReason string      `json:"finish_reason"`
		Message      chatMessage `json:"message"`
	} `json:"choices"`
	Citations     []string `json:"citations"`
	SearchResults []struct {
		Title string `json:"title"`
		URL   string `json:"url"`
		Date  string `json:"date"`
	} `json:"search_results"`
	RelatedQuestions []string `json:"related_questions"`
	Usage            struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Ask 执行一次带域名过滤的检索问答。
// 引用来源为结构化引用与正文提取 URL 的合并结果，是否允许采信由调用方
// 按域名白名单再行过滤。
func (c *Client) Ask(ctx context.Context, req *websearch.Request) (*websearch.Result, error) {
	if c.config.APIKey == "" {
		return nil, websearch.ErrUnavailable
	}
	if req == nil || strings.TrimSpace(req.Question) == "" {
		return nil, fmt.Errorf("perplexity: 问题不能为空")
	}

	systemPrompt := req.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}
	recency := req.Recency
	if recency == "" {
		recency = c.config.Recency
	}

	chatReq := &chatRequest{
		Model: c.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: req.Question},
		},
		MaxTokens:              c.config.MaxTokens,
		Temperature:            c.config.Temperature,
		SearchDomainFilter:     req.Domains,
		SearchRecencyFilter:    recency,
		ReturnRelatedQuestions: true,
	}

	resp, err := c.complete(ctx, chatReq)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("perplexity: 未返回响应内容")
	}

	answer := resp.Choices[0].Message.Content
	result := &websearch.Result{
		Answer:           answer,
		Citations:        websearch.MergeCitations(resp.Citations, answer),
		RelatedQuestions: resp.RelatedQuestions,
	}
	for _, sr := range resp.SearchResults {
		result.SearchResults = append(result.SearchResults, websearch.SearchResult{
			Title: sr.Title,
			URL:   sr.URL,
			Date:  sr.Date,
		})
	}

	return result, nil
}

// FindDocumentURLs 执行仅返回文件链接的二次检索。
func (c *Client) FindDocumentURLs(ctx context.Context, question string, domains []string) ([]string, error) {
	if c.config.APIKey == "" {
		return nil, websearch.ErrUnavailable
	}
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("perplexity: 问题不能为空")
	}

	chatReq := &chatRequest{
		Model: c.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: urlsOnlyPrompt},
			{Role: "user", Content: question},
		},
		MaxTokens:           urlsOnlyMaxTokens,
		Temperature:         c.config.Temperature,
		SearchDomainFilter:  domains,
		SearchRecencyFilter: c.config.Recency,
	}

	resp, err := c.complete(ctx, chatReq)
	if err != nil {
		return nil, err
	}

	var answer string
	if len(resp.Choices) > 0 {
		answer = resp.Choices[0].Message.Content
	}

	return websearch.MergeCitations(resp.Citations, answer), nil
}

// complete 发送请求并在可重试错误（429/408/5xx/超时）上按策略重试。
func (c *Client) complete(ctx context.Context, chatReq *chatRequest) (*chatResponse, error) {
	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}

	var chatResp chatResponse
	err = resilience.RetryWithBackoff(ctx, c.config.Retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("创建请求失败: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

		chatResp = chatResponse{}
		return c.httpClient.DoJSON(req, &chatResp)
	})
	if err != nil {
		return nil, err
	}

	return &chatResp, nil
}

var _ websearch.Client = (*Client)(nil)
