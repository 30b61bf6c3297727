package biz

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/regqa/internal/pkg/qa/textutil"
	"github.com/kart-io/regqa/internal/regqa/store"
	"github.com/kart-io/regqa/pkg/llm"
	"github.com/kart-io/regqa/pkg/utils/json"
)

// RerankOutcome 重排结果状态。
type RerankOutcome int

const (
	// RerankSkipped 重排未执行（未启用、无模型或候选数不超过保留数）。
	RerankSkipped RerankOutcome = iota
	// RerankApplied 重排成功并按新顺序返回。
	RerankApplied
	// RerankDegraded 重排失败，返回原始顺序。
	RerankDegraded
)

// RerankerConfig 重排器配置。
type RerankerConfig struct {
	// Enabled 是否启用 LLM 重排。重排引入一次额外的模型调用，默认关闭。
	Enabled bool

	// TopK 重排后保留的候选条数。
	TopK int
}

// rerankPromptMaxRunes 单条候选在提示词中的长度上限。
const rerankPromptMaxRunes = 500

// rerankSystemPrompt 约束模型只输出 JSON 评分数组。
const rerankSystemPrompt = "你是法规条文相关性评审助手。请根据问题对下列条文逐条打分，" +
	"分值为 1 到 10 的整数，10 表示与问题最相关。" +
	"只输出一个 JSON 数组，数组长度与条文数量一致，不要输出任何其他文字。"

// Reranker 使用 LLM 对检索候选重排。
//
// 排序键为（模型评分，检索得分，分块 ID），与候选的输入顺序无关，
// 相同候选集合以任意顺序输入都会产生相同的输出顺序。
type Reranker struct {
	chat   llm.ChatProvider
	config *RerankerConfig
}

// NewReranker 创建重排器实例。
func NewReranker(chat llm.ChatProvider, config *RerankerConfig) *Reranker {
	if config == nil {
		config = &RerankerConfig{Enabled: false, TopK: 5}
	}
	if config.TopK <= 0 {
		config.TopK = 5
	}
	return &Reranker{
		chat:   chat,
		config: config,
	}
}

// Rerank 对候选条文重排并截断到保留数。
// 任何失败都不中断查询链路：记录日志后按原始顺序返回。
func (r *Reranker) Rerank(ctx context.Context, question string, results []store.SearchResult) ([]store.SearchResult, RerankOutcome) {
	if !r.config.Enabled || r.chat == nil || len(results) <= r.config.TopK {
		return results, RerankSkipped
	}

	raw, err := r.chat.Generate(ctx, r.buildPrompt(question, results), rerankSystemPrompt)
	if err != nil {
		logger.Warnw("重排调用失败，保持原始顺序", "error", err)
		return results, RerankDegraded
	}

	scores, err := parseRerankScores(raw, len(results))
	if err != nil {
		logger.Warnw("重排评分解析失败，保持原始顺序", "error", err, "raw", textutil.TruncateString(raw, 200))
		return results, RerankDegraded
	}

	ranked := sortByScores(results, scores)
	if len(ranked) > r.config.TopK {
		ranked = ranked[:r.config.TopK]
	}
	return ranked, RerankApplied
}

// buildPrompt 构建逐条打分的用户提示词。
func (r *Reranker) buildPrompt(question string, results []store.SearchResult) string {
	var sb strings.Builder
	sb.WriteString("问题：")
	sb.WriteString(question)
	sb.WriteString("\n\n条文：\n")
	for i, res := range results {
		sb.WriteString(fmt.Sprintf("[%d] %s\n", i+1, textutil.TruncateString(res.Text, rerankPromptMaxRunes)))
	}
	return sb.String()
}

// parseRerankScores 从模型输出中解析评分数组。
// 容忍代码块围栏与数组前后的解释性文字，评分裁剪到 [1, 10]。
func parseRerankScores(raw string, expected int) ([]float64, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("输出中未找到 JSON 数组")
	}

	var scores []float64
	if err := json.Unmarshal([]byte(raw[start:end+1]), &scores); err != nil {
		return nil, fmt.Errorf("解析评分数组失败: %w", err)
	}
	if len(scores) != expected {
		return nil, fmt.Errorf("评分数量 %d 与条文数量 %d 不符", len(scores), expected)
	}

	for i, s := range scores {
		if s < 1 {
			scores[i] = 1
		} else if s > 10 {
			scores[i] = 10
		}
	}
	return scores, nil
}

// sortByScores 按（模型评分降序，检索得分降序，ID 升序)排列候选。
func sortByScores(results []store.SearchResult, scores []float64) []store.SearchResult {
	idx := make([]int, len(results))
	for i := range idx {
		idx[i] = i
	}

	sort.Slice(idx, func(a, b int) bool {
		i, j := idx[a], idx[b]
		if scores[i] != scores[j] {
			return scores[i] > scores[j]
		}
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	ranked := make([]store.SearchResult, len(results))
	for out, in := range idx {
		ranked[out] = results[in]
	}
	return ranked
}
