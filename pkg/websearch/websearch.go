// Package websearch 定义检索增强问答客户端的通用接口与数据结构。
//
// 与 pkg/llm 的区别：pkg/llm 面向纯生成与嵌入，websearch 面向带实时联网检索
// 的问答服务，回答同时携带结构化引用来源。具体实现位于子包（如 perplexity）。
//
// 基本用法示例：
//
//	client := perplexity.New(&perplexity.Config{APIKey: "your-api-key"})
//
//	result, err := client.Ask(ctx, &websearch.Request{
//	    Question: "广东光伏项目并网验收需要哪些资料？",
//	    Domains:  []string{"nea.gov.cn", "gd.gov.cn"},
//	})
//	if errors.Is(err, websearch.ErrUnavailable) {
//	    // 凭证缺失，降级到其他检索路径
//	}
package websearch

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

// ErrUnavailable 表示检索后端未配置或凭证缺失。
// 调用方应将其视为后端不可用并降级到其他检索路径，而不是对外报错。
var ErrUnavailable = errors.New("检索后端不可用")

// Request 一次检索问答请求。
type Request struct {
	// Question 用户问题，作为 user 消息发送。
	Question string

	// SystemPrompt 覆盖默认系统提示词，为空时由实现提供默认值。
	SystemPrompt string

	// Domains 允许的来源域名列表，实现将其下发给检索侧过滤。
	Domains []string

	// Recency 检索时效过滤（如 "year"），为空时由实现提供默认值。
	Recency string
}

// SearchResult 检索后端返回的一条结构化来源。
type SearchResult struct {
	Title string
	URL   string
	Date  string
}

// Result 一次检索问答的结果。
type Result struct {
	// Answer 生成的回答正文。
	Answer string

	// Citations 合并去重后的引用 URL。结构化引用保持后端返回顺序在前，
	// 仅出现在正文中的 URL 追加在尾部。
	Citations []string

	// SearchResults 带标题的结构化来源，条目数可能少于 Citations。
	SearchResults []SearchResult

	// RelatedQuestions 后端建议的相关问题，可用于拒答时的提示。
	RelatedQuestions []string
}

// Client 检索问答客户端接口。
type Client interface {
	// Ask 执行一次带域名过滤的检索问答。
	Ask(ctx context.Context, req *Request) (*Result, error)

	// FindDocumentURLs 执行仅返回文件链接的二次检索，
	// 用于回答引用全部被过滤后的兜底查询。
	FindDocumentURLs(ctx context.Context, question string, domains []string) ([]string, error)

	// Name 返回客户端名称。
	Name() string
}

// urlPattern 匹配正文中的链接。中文标点不是合法 URL 字符，直接作为右边界。
var urlPattern = regexp.MustCompile(`https?://[^\s<>"'()（）【】《》，。；：！？]+`)

// ExtractURLs 从自由文本中提取 URL，去除尾随英文标点，按首次出现顺序去重。
func ExtractURLs(text string) []string {
	matches := urlPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	urls := make([]string, 0, len(matches))
	for _, m := range matches {
		u := strings.TrimRight(m, ".,;:!?")
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}
	return urls
}

// MergeCitations 合并结构化引用与正文中提取的 URL。
// 结构化引用在前，正文新增的 URL 追加在后，整体按首次出现顺序去重。
func MergeCitations(structured []string, answer string) []string {
	seen := make(map[string]struct{}, len(structured))
	merged := make([]string, 0, len(structured))

	for _, u := range structured {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		merged = append(merged, u)
	}

	for _, u := range ExtractURLs(answer) {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		merged = append(merged, u)
	}

	return merged
}
