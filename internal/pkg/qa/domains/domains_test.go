package domains_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/regqa/internal/pkg/qa/domains"
)

func TestInferTopic(t *testing.T) {
	f := domains.NewFilter()

	tests := []struct {
		name     string
		question string
		asset    string
		docClass string
		expected string
	}{
		{"并网关键词", "光伏项目并网验收流程", "solar", "general", domains.TopicGridConnection},
		{"用地关键词", "风电项目用地预审手续", "wind", "general", domains.TopicLandSurvey},
		{"铁路关键词", "煤炭铁路运输能力要求", "coal", "general", domains.TopicRailFreight},
		{"新能源关键词", "风电项目补贴政策", "wind", "pricing", domains.TopicRenewables},
		{"文档类别兜底", "验收材料有哪些", "coal", "grid", domains.TopicGridConnection},
		{"资产类型兜底", "项目备案流程", "wind", "general", domains.TopicRenewables},
		{"默认兜底", "机组改造要求", "coal", "safety", domains.TopicGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, f.InferTopic(tt.question, tt.asset, tt.docClass))
		})
	}
}

func TestAllowlistOrderAndDedup(t *testing.T) {
	f := domains.NewFilter()

	t.Run("国家级机构在前", func(t *testing.T) {
		list := f.Allowlist(domains.TopicGridConnection, "gd")
		require.GreaterOrEqual(t, len(list), 5)
		assert.Equal(t, "nea.gov.cn", list[0])
		assert.Contains(t, list, "sgcc.com.cn")
		assert.Contains(t, list, "gd.gov.cn")
	})

	t.Run("主题机构与国家级重复时只保留一次", func(t *testing.T) {
		// renewables 的主题机构包含 nea.gov.cn，与国家级条目重复
		list := f.Allowlist(domains.TopicRenewables, "sd")
		seen := make(map[string]int)
		for _, d := range list {
			seen[d]++
		}
		assert.Equal(t, 1, seen["nea.gov.cn"])
		assert.Contains(t, list, "cnrec.org.cn")
	})

	t.Run("未知主题与省份只有国家级条目", func(t *testing.T) {
		list := f.Allowlist(domains.TopicGeneral, "")
		assert.Len(t, list, 5)
	})
}

func TestAllowlistHardCap(t *testing.T) {
	// 通过 YAML 覆盖塞入超量条目，验证总数硬上限与分段上限
	dir := t.TempDir()
	path := filepath.Join(dir, "domains.yaml")

	yaml := "national_regulators:\n"
	for i := 0; i < 30; i++ {
		yaml += "  - n" + string(rune('a'+i%26)) + string(rune('0'+i/26)) + ".gov.cn\n"
	}
	yaml += "province_domains:\n  gd:\n"
	for i := 0; i < 8; i++ {
		yaml += "    - p" + string(rune('a'+i)) + ".gd.gov.cn\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	f, err := domains.NewFilterFromFile(path)
	require.NoError(t, err)

	t.Run("总数硬上限 20", func(t *testing.T) {
		list := f.Allowlist(domains.TopicGeneral, "gd")
		assert.Len(t, list, 20)
	})

	t.Run("省级分段上限 5", func(t *testing.T) {
		// 默认国家级 5 条 + 省级 8 条中的前 5 条
		content := "province_domains:\n  gd:\n"
		for i := 0; i < 8; i++ {
			content += "    - p" + string(rune('a'+i)) + ".gd.gov.cn\n"
		}
		path2 := filepath.Join(dir, "province.yaml")
		require.NoError(t, os.WriteFile(path2, []byte(content), 0o644))

		f2, err := domains.NewFilterFromFile(path2)
		require.NoError(t, err)
		assert.Len(t, f2.Allowlist(domains.TopicGeneral, "gd"), 10)
	})
}

func TestMatchesDomain(t *testing.T) {
	allowlist := []string{"gd.gov.cn", "nea.gov.cn"}

	tests := []struct {
		name    string
		url     string
		matched bool
	}{
		{"精确匹配", "http://nea.gov.cn/zhengce/content_1.htm", true},
		{"子域后缀匹配", "https://drc.gd.gov.cn/zfxxgk/content_123.html", true},
		{"带端口", "http://nea.gov.cn:8080/a", true},
		{"伪装后缀域名", "http://gd.gov.cn.evil.com/x", false},
		{"前缀拼接域名", "http://wwwnea.gov.cn/a", false},
		{"不在白名单", "http://example.com/a", false},
		{"非法 URL", "://bad", false},
		{"空白名单", "http://nea.gov.cn/a", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list := allowlist
			if tt.name == "空白名单" {
				list = nil
			}
			assert.Equal(t, tt.matched, domains.MatchesDomain(tt.url, list))
		})
	}
}

func TestScoreURL(t *testing.T) {
	f := domains.NewFilter()
	const nowYear = 2025

	t.Run("政策文档特征加分", func(t *testing.T) {
		score := f.ScoreURL("http://nea.gov.cn/zhengce/content_5620236.htm", domains.TopicGeneral, "", nowYear)
		assert.Equal(t, 3, score)
	})

	t.Run("新闻页减分", func(t *testing.T) {
		score := f.ScoreURL("http://nea.gov.cn/xwzx/2019-01/a.html", domains.TopicGeneral, "", nowYear)
		assert.Equal(t, -2, score)
	})

	t.Run("主题提示词与省域名加分", func(t *testing.T) {
		score := f.ScoreURL("http://gd.gov.cn/solar/plan.pdf", domains.TopicRenewables, "gd", nowYear)
		// .pdf +3、solar +2、省域名 +2
		assert.Equal(t, 7, score)
	})

	t.Run("年份越新加分越高", func(t *testing.T) {
		recent := f.ScoreURL("http://nea.gov.cn/zhengce/2025-06/content_1.htm", domains.TopicGeneral, "", nowYear)
		older := f.ScoreURL("http://nea.gov.cn/zhengce/2022-06/content_1.htm", domains.TopicGeneral, "", nowYear)
		stale := f.ScoreURL("http://nea.gov.cn/zhengce/2015-06/content_1.htm", domains.TopicGeneral, "", nowYear)
		assert.Equal(t, 5, recent)
		assert.Equal(t, 4, older)
		assert.Equal(t, 3, stale)
	})

	t.Run("未来年份不加分", func(t *testing.T) {
		score := f.ScoreURL("http://nea.gov.cn/zhengce/2099-01/content_1.htm", domains.TopicGeneral, "", nowYear)
		assert.Equal(t, 3, score)
	})

	t.Run("文档页得分高于新闻页", func(t *testing.T) {
		doc := f.ScoreURL("http://nea.gov.cn/zfxxgk/2025-01/content_9.htm", domains.TopicGridConnection, "gd", nowYear)
		news := f.ScoreURL("http://nea.gov.cn/xwzx/2025-01/launch.html", domains.TopicGridConnection, "gd", nowYear)
		assert.Greater(t, doc, news)
	})

	t.Run("非法 URL 记零分", func(t *testing.T) {
		assert.Equal(t, 0, f.ScoreURL("://bad", domains.TopicGeneral, "gd", nowYear))
	})
}

func TestRegulatoryTerms(t *testing.T) {
	f := domains.NewFilter()
	terms := f.RegulatoryTerms()
	assert.NotEmpty(t, terms)
	assert.Contains(t, terms, "并网验收")
}

func TestNewFilterFromFileOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "domains.yaml")

	content := `national_regulators:
  - example.gov.cn
regulatory_terms:
  - 自定义术语
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	f, err := domains.NewFilterFromFile(path)
	require.NoError(t, err)

	t.Run("覆盖的字段生效", func(t *testing.T) {
		assert.Equal(t, []string{"example.gov.cn"}, f.Allowlist(domains.TopicGeneral, ""))
		assert.Equal(t, []string{"自定义术语"}, f.RegulatoryTerms())
	})

	t.Run("未覆盖的字段保留默认值", func(t *testing.T) {
		list := f.Allowlist(domains.TopicGeneral, "gd")
		assert.Contains(t, list, "gd.gov.cn")
	})
}

func TestNewFilterFromFileErrors(t *testing.T) {
	t.Run("文件不存在", func(t *testing.T) {
		_, err := domains.NewFilterFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})

	t.Run("非法 YAML", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("national_regulators: {{"), 0o644))
		_, err := domains.NewFilterFromFile(path)
		assert.Error(t, err)
	})
}

func TestWatchLifecycle(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "domains.yaml")
	require.NoError(t, os.WriteFile(path, []byte("regulatory_terms:\n  - 验收\n"), 0o644))

	f, err := domains.NewFilterFromFile(path)
	require.NoError(t, err)

	require.NoError(t, f.Watch())
	// 重复启动应是幂等的
	require.NoError(t, f.Watch())

	f.Close()
	f.Close() // 重复关闭应是安全的
}
