// Package cse 提供基于 Google Custom Search JSON API 的文件发现实现。
// 通过 site: 限定条件将检索范围收窄到允许的官方域名，
// 返回文件标题、链接与摘要。
package cse

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kart-io/regqa/pkg/discovery"
	"github.com/kart-io/regqa/pkg/resilience"
	"github.com/kart-io/regqa/pkg/utils/httpclient"
)

// ClientName 是 Google CSE 客户端的名称标识符
const ClientName = "google_cse"

// Config Google CSE 客户端配置。
type Config struct {
	// APIKey API 密钥。
	// 与 EngineID 任一为空时客户端视为不可用，调用返回 discovery.ErrUnavailable。
	APIKey string `json:"api_key" mapstructure:"api_key"`

	// EngineID 自定义搜索引擎 ID（cx 参数）。
	EngineID string `json:"engine_id" mapstructure:"engine_id"`

	// BaseURL API 基础地址。
	BaseURL string `json:"base_url" mapstructure:"base_url"`

	// Timeout 单次 HTTP 请求超时时间，重试由 Retry 策略控制。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxSiteClauses 查询串中 site: 限定条件的数量上限。
	// 限定条件过多会超出查询长度限制并稀释检索质量。
	MaxSiteClauses int `json:"max_site_clauses" mapstructure:"max_site_clauses"`

	// NumResults 默认返回条数，API 单页上限为 10。
	NumResults int `json:"num_results" mapstructure:"num_results"`

	// Language 结果语言过滤（lr 参数），为空时不过滤。
	Language string `json:"language" mapstructure:"language"`

	// Retry 控制对 429/408/5xx 与超时错误的重试，为 nil 时使用默认策略。
	Retry *resilience.RetryConfig `json:"-" mapstructure:"-"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() *Config {
	return &Config{
		BaseURL:        "https://www.googleapis.com/customsearch/v1",
		Timeout:        30 * time.Second,
		MaxSiteClauses: 8,
		NumResults:     8,
		Language:       "lang_zh-CN",
	}
}

// Client Google CSE 文件发现客户端。
type Client struct {
	config     *Config
	httpClient *httpclient.Client
}

// New 创建 Google CSE 客户端。
// 凭证缺失不是构造错误：客户端照常创建，调用时返回
// discovery.ErrUnavailable，由上层继续拒答流程。
func New(config *Config) *Client {
	def := DefaultConfig()
	if config == nil {
		config = def
	}
	if config.BaseURL == "" {
		config.BaseURL = def.BaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if config.MaxSiteClauses <= 0 {
		config.MaxSiteClauses = def.MaxSiteClauses
	}
	if config.NumResults <= 0 {
		config.NumResults = def.NumResults
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

// searchResponse Google CSE API 响应体（仅保留用到的字段）。
type searchResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
	SearchInformation struct {
		TotalResults string `json:"totalResults"`
	} `json:"searchInformation"`
}

// Discover 执行一次站点受限的文件检索。
func (c *Client) Discover(ctx context.Context, req *discovery.Request) ([]discovery.Item, error) {
	if c.config.APIKey == "" || c.config.EngineID == "" {
		return nil, discovery.ErrUnavailable
	}
	if req == nil || strings.TrimSpace(req.Question) == "" {
		return nil, fmt.Errorf("cse: 检索词不能为空")
	}

	num := req.Limit
	if num <= 0 {
		num = c.config.NumResults
	}
	// API 单页上限
	if num > 10 {
		num = 10
	}

	params := url.Values{}
	params.Set("key", c.config.APIKey)
	params.Set("cx", c.config.EngineID)
	params.Set("q", c.buildQuery(req.Question, req.Domains))
	params.Set("num", strconv.Itoa(num))
	if c.config.Language != "" {
		params.Set("lr", c.config.Language)
	}

	requestURL := c.config.BaseURL + "?" + params.Encode()

	var searchResp searchResponse
	err := resilience.RetryWithBackoff(ctx, c.config.Retry, func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return fmt.Errorf("创建请求失败: %w", err)
		}

		searchResp = searchResponse{}
		return c.httpClient.DoJSON(httpReq, &searchResp)
	})
	if err != nil {
		return nil, err
	}

	// 无结果是正常结果
	items := make([]discovery.Item, 0, len(searchResp.Items))
	for _, it := range searchResp.Items {
		if it.Link == "" {
			continue
		}
		items = append(items, discovery.Item{
			Title:   it.Title,
			URL:     it.Link,
			Snippet: it.Snippet,
		})
	}

	return items, nil
}

// buildQuery 拼接检索词与 site: 限定条件，域名数量超过上限时取前若干个。
// 允许列表按权威度排序，截断保留的是国家级与主题机构域名。
func (c *Client) buildQuery(question string, domains []string) string {
	if len(domains) == 0 {
		return question
	}
	if len(domains) > c.config.MaxSiteClauses {
		domains = domains[:c.config.MaxSiteClauses]
	}

	clauses := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		clauses = append(clauses, "site:"+d)
	}
	if len(clauses) == 0 {
		return question
	}

	return question + " " + strings.Join(clauses, " OR ")
}

var _ discovery.Discoverer = (*Client)(nil)
