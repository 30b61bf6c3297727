// Package textutil 提供问答链路的文本处理工具函数：关键词提取、
// 引述片段截取与 CJK 字符统计。
package textutil

import (
	"crypto/md5"
	"encoding/hex"
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// CosineSimilarity 计算两个向量的余弦相似度。
// 返回值范围为 [-1, 1]，1 表示完全相同，-1 表示完全相反。
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// HashString 计算字符串的 MD5 哈希值。
func HashString(s string) string {
	hash := md5.Sum([]byte(s))
	return hex.EncodeToString(hash[:])
}

// TruncateString 截断字符串到指定的最大 Unicode 字符数。
func TruncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen])
}

// CJKRatio 计算字符串中汉字占非空白字符的比例，范围 [0, 1]。
func CJKRatio(s string) float64 {
	var cjk, total int
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.Is(unicode.Han, r) {
			cjk++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(cjk) / float64(total)
}

// ExtractKeywords 从问题文本中提取至多 max 个关键词。
// 先按词典顺序收集命中的监管术语，再从剔除术语后的剩余文本中
// 补充长度 ≥2 的连续字词（按出现顺序），全程去重。
func ExtractKeywords(text string, dictionary []string, max int) []string {
	if text == "" || max <= 0 {
		return nil
	}

	seen := make(map[string]bool)
	keywords := make([]string, 0, max)
	remaining := text

	for _, term := range dictionary {
		if len(keywords) >= max {
			return keywords
		}
		if term == "" || seen[term] || !strings.Contains(text, term) {
			continue
		}
		seen[term] = true
		keywords = append(keywords, term)
		remaining = strings.ReplaceAll(remaining, term, " ")
	}

	for _, token := range splitTokens(remaining) {
		if len(keywords) >= max {
			break
		}
		if utf8.RuneCountInString(token) < 2 || seen[token] {
			continue
		}
		seen[token] = true
		keywords = append(keywords, token)
	}

	return keywords
}

// splitTokens 将文本切分为连续的汉字/字母/数字序列。
func splitTokens(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// ExtractSpans 在文本中截取围绕关键词命中的引述片段。
// 每个片段都是原文的连续子串：以命中位置为中心扩展到句读边界，
// 不足 minRunes 时继续跨界补足，最长不超过 maxRunes。片段之间
// 不重叠，至多返回 maxSpans 个；未命中任何关键词时返回空切片。
func ExtractSpans(text string, keywords []string, maxSpans, minRunes, maxRunes int) []string {
	if text == "" || maxSpans <= 0 {
		return nil
	}

	runes := []rune(text)
	if maxRunes <= 0 || maxRunes > len(runes) {
		maxRunes = len(runes)
	}
	if minRunes > maxRunes {
		minRunes = maxRunes
	}

	var spans []string
	var taken [][2]int

	for _, kw := range keywords {
		if len(spans) >= maxSpans {
			break
		}
		if kw == "" {
			continue
		}
		idx := strings.Index(text, kw)
		if idx < 0 {
			continue
		}

		hitStart := utf8.RuneCountInString(text[:idx])
		hitEnd := hitStart + utf8.RuneCountInString(kw)
		start, end := expandSpan(runes, hitStart, hitEnd, minRunes, maxRunes)

		if overlaps(taken, start, end) {
			continue
		}
		taken = append(taken, [2]int{start, end})
		spans = append(spans, string(runes[start:end]))
	}

	return spans
}

// expandSpan 从命中区间向两侧扩展到句读边界，保证最小片段长度。
func expandSpan(runes []rune, hitStart, hitEnd, minRunes, maxRunes int) (int, int) {
	n := len(runes)
	start, end := hitStart, hitEnd

	for start > 0 && end-start < maxRunes && !isSentenceBoundary(runes[start-1]) {
		start--
	}
	for end < n && end-start < maxRunes && !isSentenceBoundary(runes[end]) {
		end++
	}
	// 保留句末标点
	if end < n && end-start < maxRunes && isSentenceBoundary(runes[end]) {
		end++
	}

	// 句子过短时跨界补足最小长度
	for end-start < minRunes {
		switch {
		case end < n:
			end++
		case start > 0:
			start--
		default:
			return start, end
		}
	}

	return start, end
}

func isSentenceBoundary(r rune) bool {
	switch r {
	case '。', '；', '！', '？', '\n', ';', '!', '?':
		return true
	}
	return false
}

func overlaps(taken [][2]int, start, end int) bool {
	for _, t := range taken {
		if start < t[1] && end > t[0] {
			return true
		}
	}
	return false
}

var jsonArrayRegex = regexp.MustCompile(`\[[\s\S]*\]`)

// ExtractJSONArray 从自由文本中提取首个 JSON 数组子串。
// 模型输出常在数组前后附带说明文字，截取后交由调用方反序列化。
func ExtractJSONArray(s string) (string, bool) {
	match := jsonArrayRegex.FindString(s)
	return match, match != ""
}
