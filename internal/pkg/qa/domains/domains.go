// Package domains 维护监管域名表并提供主题推断、白名单构建与
// URL 启发式打分。
//
// 域名表与关键词词典内置默认值，可由 YAML 文件覆盖并支持热加载。
// 白名单同时约束联网问答与发现式兜底两条检索链路，是引用真实性的
// 第一道关口。
package domains

import (
	"net/url"
	"slices"
	"strings"
	"sync"
)

// 主题取值。
const (
	TopicGridConnection = "grid_connection"
	TopicLandSurvey     = "land_survey"
	TopicRailFreight    = "rail_freight"
	TopicRenewables     = "renewables"
	TopicGeneral        = "general"
)

// 白名单上限，受外部搜索 API 的域名过滤参数限制。
const maxAllowlistSize = 20

// 主题机构与省级域名各自的最大条目数。
const maxSectionSize = 5

// TopicRule 主题推断规则。规则按顺序求值，首个命中者胜出。
type TopicRule struct {
	Topic      string   `yaml:"topic"`
	Keywords   []string `yaml:"keywords"`
	DocClasses []string `yaml:"doc_classes"`
	Assets     []string `yaml:"assets"`
}

// Tables 域名与词典数据表。
type Tables struct {
	NationalRegulators []string            `yaml:"national_regulators"`
	TopicAgencies      map[string][]string `yaml:"topic_agencies"`
	ProvinceDomains    map[string][]string `yaml:"province_domains"`
	TopicRules         []TopicRule         `yaml:"topic_rules"`
	RegulatoryTerms    []string            `yaml:"regulatory_terms"`
}

// defaultTables 返回内置数据表。
func defaultTables() *Tables {
	return &Tables{
		NationalRegulators: []string{
			"nea.gov.cn",  // 国家能源局
			"ndrc.gov.cn", // 国家发展和改革委员会
			"gov.cn",      // 中国政府网
			"mee.gov.cn",  // 生态环境部
			"mnr.gov.cn",  // 自然资源部
		},
		TopicAgencies: map[string][]string{
			TopicGridConnection: {"sgcc.com.cn", "csg.cn"},
			TopicLandSurvey:     {"mnr.gov.cn", "forestry.gov.cn"},
			TopicRailFreight:    {"nra.gov.cn", "mot.gov.cn", "china-railway.com.cn"},
			TopicRenewables:     {"nea.gov.cn", "cnrec.org.cn"},
		},
		ProvinceDomains: map[string][]string{
			"gd": {"gd.gov.cn", "drc.gd.gov.cn"},
			"sd": {"shandong.gov.cn", "nyj.shandong.gov.cn"},
			"nm": {"nmg.gov.cn", "nyj.nmg.gov.cn"},
		},
		TopicRules: []TopicRule{
			{
				Topic:      TopicGridConnection,
				Keywords:   []string{"并网", "接入系统", "接网", "电网", "消纳", "调度", "上网"},
				DocClasses: []string{"grid"},
			},
			{
				Topic:      TopicLandSurvey,
				Keywords:   []string{"用地", "土地", "征地", "勘测", "测绘", "用海", "林地"},
				DocClasses: []string{"land"},
			},
			{
				Topic:      TopicRailFreight,
				Keywords:   []string{"铁路", "货运", "运输", "专用线", "运力"},
				DocClasses: []string{"rail"},
			},
			{
				Topic:    TopicRenewables,
				Keywords: []string{"光伏", "风电", "新能源", "可再生能源", "绿电"},
				Assets:   []string{"solar", "wind"},
			},
		},
		RegulatoryTerms: []string{
			"并网验收", "接入系统", "并网", "核准", "备案",
			"用地预审", "征地", "环境影响评价", "环评", "水土保持",
			"安全设施", "竣工验收", "上网电价", "电价", "补贴",
			"消纳", "铁路专用线", "运输", "验收", "许可",
		},
	}
}

// Filter 带可热加载数据表的域名过滤器。并发安全。
type Filter struct {
	mu     sync.RWMutex
	tables *Tables

	path    string
	watchMu sync.Mutex
	done    chan struct{}
}

// NewFilter 创建使用内置数据表的过滤器。
func NewFilter() *Filter {
	return &Filter{tables: defaultTables()}
}

// snapshot 返回当前数据表的引用。表在加载后只读，持有引用是安全的。
func (f *Filter) snapshot() *Tables {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.tables
}

// InferTopic 基于问题文本、资产类型与文档类别推断主题。
// 按规则顺序求值，首个命中者胜出；无命中时返回 general。
func (f *Filter) InferTopic(question, asset, docClass string) string {
	t := f.snapshot()

	for _, rule := range t.TopicRules {
		for _, kw := range rule.Keywords {
			if kw != "" && strings.Contains(question, kw) {
				return rule.Topic
			}
		}
		if slices.Contains(rule.DocClasses, docClass) {
			return rule.Topic
		}
		if slices.Contains(rule.Assets, asset) {
			return rule.Topic
		}
	}

	return TopicGeneral
}

// Allowlist 构建有序域名白名单：国家级监管机构 + 主题机构（至多 5 个）
// + 省级域名（至多 5 个），按首次出现去重，总数硬上限 20。
func (f *Filter) Allowlist(topic, province string) []string {
	t := f.snapshot()

	out := make([]string, 0, maxAllowlistSize)
	seen := make(map[string]bool, maxAllowlistSize)

	add := func(domains []string, limit int) {
		added := 0
		for _, d := range domains {
			if len(out) >= maxAllowlistSize || (limit > 0 && added >= limit) {
				return
			}
			d = strings.ToLower(strings.TrimSpace(d))
			if d == "" || seen[d] {
				continue
			}
			seen[d] = true
			out = append(out, d)
			added++
		}
	}

	add(t.NationalRegulators, 0)
	add(t.TopicAgencies[topic], maxSectionSize)
	add(t.ProvinceDomains[province], maxSectionSize)

	return out
}

// RegulatoryTerms 返回监管术语词典（按优先级排序）。
func (f *Filter) RegulatoryTerms() []string {
	return f.snapshot().RegulatoryTerms
}

// provinceDomains 返回省级域名表。
func (f *Filter) provinceDomains(province string) []string {
	return f.snapshot().ProvinceDomains[province]
}

// MatchesDomain 判断 URL 的主机名是否命中白名单中的某个域：
// 精确相等，或以 ".域名" 结尾（子域匹配）。
func MatchesDomain(rawURL string, allowlist []string) bool {
	host := hostOf(rawURL)
	if host == "" {
		return false
	}
	for _, domain := range allowlist {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain == "" {
			continue
		}
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// hostOf 提取 URL 的小写主机名（去端口）。解析失败返回空串。
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
