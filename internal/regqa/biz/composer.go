package biz

import (
	"fmt"
	"strings"

	"github.com/kart-io/regqa/internal/model"
	"github.com/kart-io/regqa/internal/pkg/qa/domains"
	"github.com/kart-io/regqa/internal/pkg/qa/normalize"
	"github.com/kart-io/regqa/internal/pkg/qa/textutil"
	"github.com/kart-io/regqa/internal/regqa/store"
)

// 组装参数：关键词数量、候选条数、每条候选的片段数、
// 片段长度区间与回答的引述条数上限。
const (
	maxKeywords      = 8
	maxCandidates    = 5
	maxSpansPerChunk = 2
	minSpanRunes     = 20
	maxSpanRunes     = 120
	maxBullets       = 4
)

// minCJKRatio 回答中汉字占非空白字符的比例下限。
// 法规回答以条文原文为主体，低于该比例说明正文偏离了引述。
const minCJKRatio = 0.3

// ComposedAnswer 向量检索分支组装出的回答。
type ComposedAnswer struct {
	Answer    string
	Citations []model.Citation
}

// Composer 将检索命中组装为带引用的条文式回答。
// 回答的每一条引述都是条文原文的连续片段，不做改写。
type Composer struct {
	filter *domains.Filter
}

// NewComposer 创建组装器实例。
func NewComposer(filter *domains.Filter) *Composer {
	return &Composer{filter: filter}
}

// Compose 从候选条文中截取原文片段组装回答。
//
// 先提取问题关键词，再在前几条候选中截取围绕关键词的原文片段；
// 关键词未命中的候选退回到条文开头片段。引用按来源链接去重。
// 无可用片段时返回 nil。
func (c *Composer) Compose(q normalize.Query, results []store.SearchResult) *ComposedAnswer {
	if len(results) == 0 {
		return nil
	}

	keywords := textutil.ExtractKeywords(q.Question, c.filter.RegulatoryTerms(), maxKeywords)

	limit := maxCandidates
	if limit > len(results) {
		limit = len(results)
	}

	bullets := make([]string, 0, maxBullets)
	citations := make([]model.Citation, 0, limit)
	seenURL := make(map[string]bool, limit)

	for _, r := range results[:limit] {
		if len(bullets) >= maxBullets {
			break
		}
		if strings.TrimSpace(r.Text) == "" || strings.TrimSpace(r.Title) == "" {
			continue
		}

		spans := textutil.ExtractSpans(r.Text, keywords, maxSpansPerChunk, minSpanRunes, maxSpanRunes)
		if len(spans) == 0 {
			// 关键词未命中时退回到条文开头片段
			spans = []string{textutil.TruncateString(strings.TrimSpace(r.Text), maxSpanRunes)}
		}

		used := false
		for _, span := range spans {
			if len(bullets) >= maxBullets {
				break
			}
			bullets = append(bullets, formatBullet(span, r.Title, r.EffectiveDate))
			used = true
		}

		if used && r.SourceURL != "" && !seenURL[r.SourceURL] {
			seenURL[r.SourceURL] = true
			citations = append(citations, model.Citation{Title: r.Title, URL: r.SourceURL})
		}
	}

	if len(bullets) == 0 {
		return nil
	}

	return &ComposedAnswer{
		Answer:    strings.Join(bullets, "\n"),
		Citations: citations,
	}
}

// formatBullet 生成单条引述。片段后以全角括号标注文件标题与生效日期。
func formatBullet(span, title, effectiveDate string) string {
	ref := "《" + title + "》"
	if effectiveDate != "" {
		ref += "，生效：" + effectiveDate
	}
	return " • " + span + "〔" + ref + "〕"
}

// validateAnswer 校验终端回答：正文非空、汉字占比达标、引用完整。
// 校验失败的回答不对外返回，由调用方切换到下一个检索后端。
func validateAnswer(answer string, citations []model.Citation) error {
	if strings.TrimSpace(answer) == "" {
		return fmt.Errorf("回答内容为空")
	}
	if ratio := textutil.CJKRatio(answer); ratio < minCJKRatio {
		return fmt.Errorf("回答汉字占比 %.2f 低于下限 %.2f", ratio, minCJKRatio)
	}
	if len(citations) == 0 {
		return fmt.Errorf("回答缺少引用来源")
	}
	for _, cit := range citations {
		if strings.TrimSpace(cit.Title) == "" || strings.TrimSpace(cit.URL) == "" {
			return fmt.Errorf("引用来源缺少标题或链接")
		}
	}
	return nil
}
