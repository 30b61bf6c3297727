// Package discovery 定义文件发现客户端的通用接口与数据结构。
//
// 文件发现是检索链路的最后兜底：联网问答与向量检索都拿不到结果时，
// 用站点受限的搜索引擎查询官方文件链接，返回给调用方用于兜底回答
// 或拒答提示。具体实现位于子包（如 cse）。
package discovery

import (
	"context"
	"errors"
)

// ErrUnavailable 表示发现后端未配置或凭证缺失。
// 调用方应将其视为后端不可用并继续拒答流程，而不是对外报错。
var ErrUnavailable = errors.New("发现后端不可用")

// Request 一次文件发现请求。
type Request struct {
	// Question 检索词，通常为用户问题拼接省份与资产类型名称。
	Question string

	// Domains 允许的来源域名列表，实现将其转换为站点限定条件。
	Domains []string

	// Limit 返回条数上限，0 时由实现提供默认值。
	Limit int
}

// Item 一条发现结果。
type Item struct {
	Title   string
	URL     string
	Snippet string
}

// Discoverer 文件发现客户端接口。
type Discoverer interface {
	// Discover 执行一次站点受限的文件检索。空结果是正常结果而非错误。
	Discover(ctx context.Context, req *Request) ([]Item, error)

	// Name 返回客户端名称。
	Name() string
}
