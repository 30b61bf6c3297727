package biz

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/regqa/internal/model"
	"github.com/kart-io/regqa/internal/pkg/qa/domains"
	"github.com/kart-io/regqa/internal/pkg/qa/normalize"
	"github.com/kart-io/regqa/pkg/websearch"
)

// WebQAConfig 联网问答配置。
type WebQAConfig struct {
	// Timeout 联网问答分支的总预算，包含可能的二次检索。
	Timeout time.Duration

	// MaxCitations 回答携带的引用条数上限。
	MaxCitations int
}

// WebQAAnswer 联网问答分支的结果。
type WebQAAnswer struct {
	Answer    string
	Citations []model.Citation
	Related   []string

	// UsedSecondary 表示结构化引用全部被白名单过滤，
	// 引用来自仅查文件链接的二次检索。
	UsedSecondary bool
}

// WebQA 负责联网问答分支：域名受限检索、引用白名单过滤与启发式排序。
type WebQA struct {
	client websearch.Client
	filter *domains.Filter
	config *WebQAConfig
}

// NewWebQA 创建联网问答实例。client 为 nil 时分支视为不可用。
func NewWebQA(client websearch.Client, filter *domains.Filter, config *WebQAConfig) *WebQA {
	if config == nil {
		config = &WebQAConfig{}
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if config.MaxCitations <= 0 {
		config.MaxCitations = 6
	}
	return &WebQA{
		client: client,
		filter: filter,
		config: config,
	}
}

// Answer 执行一次域名受限的联网问答。
//
// 上游返回的引用逐条对照白名单过滤；全部被过滤时追加一次仅查
// 文件链接的二次检索，仍无可信来源则返回错误，由调用方切换到
// 下一个检索后端。
func (w *WebQA) Answer(ctx context.Context, q normalize.Query, topic string, allowlist []string) (*WebQAAnswer, error) {
	if w.client == nil {
		return nil, websearch.ErrUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, w.config.Timeout)
	defer cancel()

	question := scopedQuestion(q)
	res, err := w.client.Ask(ctx, &websearch.Request{
		Question: question,
		Domains:  allowlist,
	})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(res.Answer) == "" {
		return nil, fmt.Errorf("联网问答返回空回答")
	}

	kept := filterAllowed(res.Citations, allowlist)
	usedSecondary := false
	if len(kept) == 0 {
		logger.Infow("结构化引用全部被白名单过滤，执行二次检索",
			"question", q.Question,
			"dropped", len(res.Citations))
		usedSecondary = true

		urls, err := w.client.FindDocumentURLs(ctx, question, allowlist)
		if err != nil {
			return nil, fmt.Errorf("文件链接二次检索失败: %w", err)
		}
		kept = filterAllowed(urls, allowlist)
		if len(kept) == 0 {
			return nil, fmt.Errorf("引用来源均不在域名白名单内")
		}
	}

	return &WebQAAnswer{
		Answer:        res.Answer,
		Citations:     w.rankCitations(kept, res.SearchResults, topic, q.Province),
		Related:       res.RelatedQuestions,
		UsedSecondary: usedSecondary,
	}, nil
}

// scopedQuestion 在问题前拼接省份与资产类型名称，收窄检索范围。
func scopedQuestion(q normalize.Query) string {
	return normalize.ProvinceName(q.Province) + normalize.AssetName(q.Asset) + "项目：" + q.Question
}

// filterAllowed 保留命中白名单的 URL，维持输入顺序。
func filterAllowed(urls []string, allowlist []string) []string {
	kept := make([]string, 0, len(urls))
	for _, u := range urls {
		if domains.MatchesDomain(u, allowlist) {
			kept = append(kept, u)
		}
	}
	return kept
}

// rankCitations 按 URL 启发式得分排序引用并截断到上限。
// 得分相同的条目保持首次出现顺序。
func (w *WebQA) rankCitations(urls []string, searchResults []websearch.SearchResult, topic, province string) []model.Citation {
	titles := make(map[string]string, len(searchResults))
	for _, sr := range searchResults {
		if sr.Title != "" {
			titles[sr.URL] = sr.Title
		}
	}

	nowYear := time.Now().Year()
	scores := make([]int, len(urls))
	idx := make([]int, len(urls))
	for i, u := range urls {
		scores[i] = w.filter.ScoreURL(u, topic, province, nowYear)
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] > scores[idx[b]]
	})

	limit := w.config.MaxCitations
	if limit > len(idx) {
		limit = len(idx)
	}

	citations := make([]model.Citation, 0, limit)
	for _, i := range idx[:limit] {
		citations = append(citations, model.Citation{
			Title: citationTitle(titles, urls[i]),
			URL:   urls[i],
		})
	}
	return citations
}

// citationTitle 取结构化来源的标题，缺失时退回到 URL 主机名。
func citationTitle(titles map[string]string, rawURL string) string {
	if title, ok := titles[rawURL]; ok {
		return title
	}
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	return rawURL
}
