package biz

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/regqa/internal/model"
	"github.com/kart-io/regqa/internal/pkg/qa/domains"
	"github.com/kart-io/regqa/internal/regqa/store"
)

func composerChunk(id, text, title, date, sourceURL string, score float32) store.SearchResult {
	return store.SearchResult{
		Chunk: store.Chunk{
			ID:            id,
			Text:          text,
			Title:         title,
			EffectiveDate: date,
			SourceURL:     sourceURL,
		},
		Score: score,
	}
}

// bulletSpans 解析回答中每条引述的片段部分。
func bulletSpans(t *testing.T, answer string) []string {
	t.Helper()
	var spans []string
	for _, line := range strings.Split(answer, "\n") {
		require.True(t, strings.HasPrefix(line, " • "), "引述行应以列表符开头: %q", line)
		idx := strings.Index(line, "〔")
		require.Greater(t, idx, 0, "引述行应携带来源标注: %q", line)
		spans = append(spans, strings.TrimPrefix(line[:idx], " • "))
	}
	return spans
}

func TestComposerQuotesSourceText(t *testing.T) {
	text := "风电项目建设用地应当依法办理用地预审手续。申请用地预审时，" +
		"应当提交项目核准或者备案文件、土地利用总体规划符合性审查意见" +
		"以及节约集约用地论证材料。"
	composer := NewComposer(domains.NewFilter())

	q := testQuery("广东风电项目用地预审需要提交哪些材料")
	composed := composer.Compose(q, []store.SearchResult{
		composerChunk("chunk-1", text, "广东省风电项目用地管理办法", "2024-01-01",
			"https://gd.gov.cn/zhengce/content_1.html", 0.9),
	})
	require.NotNil(t, composed)

	spans := bulletSpans(t, composed.Answer)
	require.NotEmpty(t, spans)
	for _, span := range spans {
		assert.Contains(t, text, span, "引述片段必须逐字摘自条文原文")
	}
	assert.Contains(t, composed.Answer, "〔《广东省风电项目用地管理办法》，生效：2024-01-01〕")

	require.Len(t, composed.Citations, 1)
	assert.Equal(t, "广东省风电项目用地管理办法", composed.Citations[0].Title)
	assert.Equal(t, "https://gd.gov.cn/zhengce/content_1.html", composed.Citations[0].URL)
}

func TestComposerBulletCap(t *testing.T) {
	composer := NewComposer(domains.NewFilter())

	results := make([]store.SearchResult, 0, 5)
	for i := 0; i < 5; i++ {
		results = append(results, composerChunk(
			fmt.Sprintf("chunk-%d", i),
			fmt.Sprintf("光伏项目并网验收应当在并网投运前完成，第%d号文件明确了涉网保护与调度通信设备的验收范围。", i+1),
			fmt.Sprintf("并网验收办法第%d号", i+1),
			"2023-06-01",
			fmt.Sprintf("https://nea.gov.cn/zhengce/content_%d.html", i+1),
			0.9,
		))
	}

	composed := composer.Compose(testQuery("并网验收"), results)
	require.NotNil(t, composed)

	spans := bulletSpans(t, composed.Answer)
	assert.Len(t, spans, 4, "引述最多 4 条")
	for _, c := range composed.Citations {
		assert.NotEqual(t, "https://nea.gov.cn/zhengce/content_5.html", c.URL,
			"未引用的条文不应出现在引用列表中")
	}
}

func TestComposerDedupCitations(t *testing.T) {
	composer := NewComposer(domains.NewFilter())
	sharedURL := "https://nea.gov.cn/zhengce/content_9.html"

	composed := composer.Compose(testQuery("并网验收"), []store.SearchResult{
		composerChunk("chunk-1", "光伏项目并网验收应当在并网投运前完成，由电网企业组织实施。",
			"并网验收办法", "2023-06-01", sharedURL, 0.9),
		composerChunk("chunk-2", "并网验收不合格的项目不得正式投入运行，应当限期整改后重新申请。",
			"并网验收办法", "2023-06-01", sharedURL, 0.8),
	})
	require.NotNil(t, composed)

	spans := bulletSpans(t, composed.Answer)
	assert.GreaterOrEqual(t, len(spans), 2)
	require.Len(t, composed.Citations, 1, "同一来源文件只保留一条引用")
	assert.Equal(t, sharedURL, composed.Citations[0].URL)
}

func TestComposerSkipsIncompleteChunks(t *testing.T) {
	composer := NewComposer(domains.NewFilter())

	composed := composer.Compose(testQuery("并网验收"), []store.SearchResult{
		composerChunk("chunk-1", "   ", "并网验收办法", "", "https://nea.gov.cn/a", 0.9),
		composerChunk("chunk-2", "并网验收应当在投运前完成。", "", "", "https://nea.gov.cn/b", 0.8),
		composerChunk("chunk-3", "光伏项目并网验收应当在并网投运前完成，由电网企业组织实施。",
			"并网验收办法", "2023-06-01", "https://nea.gov.cn/c", 0.7),
	})
	require.NotNil(t, composed)

	require.Len(t, composed.Citations, 1, "缺正文或缺标题的条文应跳过")
	assert.Equal(t, "https://nea.gov.cn/c", composed.Citations[0].URL)
}

func TestComposerFallbackWithoutKeywordHit(t *testing.T) {
	composer := NewComposer(domains.NewFilter())

	t.Run("短条文整段引述", func(t *testing.T) {
		text := "铁路专用线的货物运能应当满足矿区生产需要，具体方案由承运企业商定。"
		composed := composer.Compose(testQuery("并网验收"), []store.SearchResult{
			composerChunk("chunk-1", text, "铁路专用线管理办法", "", "https://nra.gov.cn/a", 0.9),
		})
		require.NotNil(t, composed)

		spans := bulletSpans(t, composed.Answer)
		require.Len(t, spans, 1)
		assert.Equal(t, text, spans[0], "关键词未命中时整段引述开头片段")
	})

	t.Run("长条文截断到片段上限", func(t *testing.T) {
		text := strings.Repeat("电", 150)
		composed := composer.Compose(testQuery("用地预审"), []store.SearchResult{
			composerChunk("chunk-1", text, "某管理办法", "", "https://nra.gov.cn/b", 0.9),
		})
		require.NotNil(t, composed)

		spans := bulletSpans(t, composed.Answer)
		require.Len(t, spans, 1)
		assert.Equal(t, strings.Repeat("电", 120), spans[0])
	})
}

func TestComposerEmptyResults(t *testing.T) {
	composer := NewComposer(domains.NewFilter())

	assert.Nil(t, composer.Compose(testQuery("并网验收"), nil))
	assert.Nil(t, composer.Compose(testQuery("并网验收"), []store.SearchResult{
		composerChunk("chunk-1", "", "", "", "", 0.9),
	}), "无可用条文时不产出回答")
}

func TestComposerBulletFormat(t *testing.T) {
	t.Run("带生效日期", func(t *testing.T) {
		bullet := formatBullet("并网验收应当在投运前完成", "并网验收办法", "2023-06-01")
		assert.Equal(t, " • 并网验收应当在投运前完成〔《并网验收办法》，生效：2023-06-01〕", bullet)
	})

	t.Run("无生效日期", func(t *testing.T) {
		bullet := formatBullet("并网验收应当在投运前完成", "并网验收办法", "")
		assert.Equal(t, " • 并网验收应当在投运前完成〔《并网验收办法》〕", bullet)
	})
}

func TestValidateAnswer(t *testing.T) {
	citations := []model.Citation{{Title: "并网验收办法", URL: "https://nea.gov.cn/a"}}

	t.Run("合格回答", func(t *testing.T) {
		answer := " • 光伏项目并网验收应当在并网投运前完成〔《并网验收办法》〕"
		assert.NoError(t, validateAnswer(answer, citations))
	})

	t.Run("空回答", func(t *testing.T) {
		assert.Error(t, validateAnswer("  \n ", citations))
	})

	t.Run("汉字占比不足", func(t *testing.T) {
		err := validateAnswer("grid connection acceptance must be completed before operation", citations)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "汉字占比")
	})

	t.Run("引用缺失", func(t *testing.T) {
		assert.Error(t, validateAnswer("光伏项目并网验收应当在投运前完成。", nil))
	})

	t.Run("引用字段不全", func(t *testing.T) {
		assert.Error(t, validateAnswer("光伏项目并网验收应当在投运前完成。", []model.Citation{
			{Title: "", URL: "https://nea.gov.cn/a"},
		}))
		assert.Error(t, validateAnswer("光伏项目并网验收应当在投运前完成。", []model.Citation{
			{Title: "并网验收办法", URL: ""},
		}))
	})
}
