// Package normalize 提供查询请求的校验与清洗。
//
// Normalize 是纯函数：不访问网络与全局状态，相同输入恒产生相同输出。
// 校验失败时一次性列出全部非法字段，而不是在首个错误处停止。
package normalize

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/kart-io/regqa/pkg/utils/errors"
)

// 省份、资产与文档类别的合法取值。
const (
	ProvinceGuangdong     = "gd"
	ProvinceShandong      = "sd"
	ProvinceInnerMongolia = "nm"

	AssetSolar = "solar"
	AssetCoal  = "coal"
	AssetWind  = "wind"

	LanguageZH = "zh-CN"
	LanguageEN = "en"
)

// provinceNames 省份代码到中文名称的映射。
var provinceNames = map[string]string{
	ProvinceGuangdong:     "广东",
	ProvinceShandong:      "山东",
	ProvinceInnerMongolia: "内蒙古",
}

// assetNames 资产代码到中文名称的映射。
var assetNames = map[string]string{
	AssetSolar: "光伏",
	AssetCoal:  "煤电",
	AssetWind:  "风电",
}

// docClasses 文档类别闭集。
var docClasses = map[string]bool{
	"grid":          true,
	"land":          true,
	"rail":          true,
	"environmental": true,
	"safety":        true,
	"pricing":       true,
	"general":       true,
}

var languages = map[string]bool{
	LanguageZH: true,
	LanguageEN: true,
}

// Query 查询请求。Normalize 返回的实例中 Question 已完成清洗，
// Language 已填充默认值。
type Query struct {
	Province string
	Asset    string
	DocClass string
	Question string
	Language string
}

// ProvinceName 返回省份代码对应的中文名称，未知代码返回空串。
func ProvinceName(code string) string {
	return provinceNames[code]
}

// AssetName 返回资产代码对应的中文名称，未知代码返回空串。
func AssetName(code string) string {
	return assetNames[code]
}

// Provinces 返回全部合法省份代码。
func Provinces() []string {
	return []string{ProvinceGuangdong, ProvinceShandong, ProvinceInnerMongolia}
}

// Assets 返回全部合法资产代码。
func Assets() []string {
	return []string{AssetSolar, AssetCoal, AssetWind}
}

// DocClasses 返回全部合法文档类别。
func DocClasses() []string {
	return []string{"grid", "land", "rail", "environmental", "safety", "pricing", "general"}
}

// fieldError 单个字段的校验失败信息。
type fieldError struct {
	field    string
	reasonEN string
	reasonZH string
}

// Normalize 校验并清洗查询请求。
//
// 校验：province/asset/doc_class 必须属于各自的闭集，question 清洗后
// 不得为空，language 缺省为 zh-CN。清洗：去除首尾空白，压缩连续空白
// 与重复标点，汉字保持原样。
func Normalize(q Query) (Query, error) {
	var fieldErrs []fieldError

	if _, ok := provinceNames[q.Province]; !ok {
		fieldErrs = append(fieldErrs, fieldError{
			field:    "province",
			reasonEN: fmt.Sprintf("must be one of %v, got %q", Provinces(), q.Province),
			reasonZH: fmt.Sprintf("必须为 %v 之一，实际为 %q", Provinces(), q.Province),
		})
	}

	if _, ok := assetNames[q.Asset]; !ok {
		fieldErrs = append(fieldErrs, fieldError{
			field:    "asset",
			reasonEN: fmt.Sprintf("must be one of %v, got %q", Assets(), q.Asset),
			reasonZH: fmt.Sprintf("必须为 %v 之一，实际为 %q", Assets(), q.Asset),
		})
	}

	if !docClasses[q.DocClass] {
		fieldErrs = append(fieldErrs, fieldError{
			field:    "doc_class",
			reasonEN: fmt.Sprintf("must be one of %v, got %q", DocClasses(), q.DocClass),
			reasonZH: fmt.Sprintf("必须为 %v 之一，实际为 %q", DocClasses(), q.DocClass),
		})
	}

	question := CleanText(q.Question)
	if question == "" {
		fieldErrs = append(fieldErrs, fieldError{
			field:    "question",
			reasonEN: "must not be empty",
			reasonZH: "不能为空",
		})
	}

	language := q.Language
	if language == "" {
		language = LanguageZH
	}
	if !languages[language] {
		fieldErrs = append(fieldErrs, fieldError{
			field:    "lang",
			reasonEN: fmt.Sprintf("must be %q or %q, got %q", LanguageZH, LanguageEN, q.Language),
			reasonZH: fmt.Sprintf("必须为 %q 或 %q，实际为 %q", LanguageZH, LanguageEN, q.Language),
		})
	}

	if len(fieldErrs) > 0 {
		return Query{}, validationError(fieldErrs)
	}

	return Query{
		Province: q.Province,
		Asset:    q.Asset,
		DocClass: q.DocClass,
		Question: question,
		Language: language,
	}, nil
}

// validationError 将全部字段错误汇总为一个 Errno。
func validationError(fieldErrs []fieldError) error {
	en := make([]string, 0, len(fieldErrs))
	zh := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		en = append(en, fe.field+": "+fe.reasonEN)
		zh = append(zh, fe.field+": "+fe.reasonZH)
	}
	return errors.ErrQueryValidation.WithMessages(
		"invalid query: "+strings.Join(en, "; "),
		"查询参数无效："+strings.Join(zh, "；"),
	)
}

// CleanText 清洗文本：去除首尾空白，连续空白压缩为单个空格，
// 同一标点的连续重复压缩为一个，汉字不做任何改写。
func CleanText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))

	var prev rune = -1
	prevSpace := false

	for _, r := range s {
		if unicode.IsSpace(r) {
			if prevSpace {
				continue
			}
			b.WriteRune(' ')
			prevSpace = true
			prev = ' '
			continue
		}
		prevSpace = false

		if r == prev && (unicode.IsPunct(r) || unicode.IsSymbol(r)) {
			continue
		}
		b.WriteRune(r)
		prev = r
	}

	return b.String()
}
