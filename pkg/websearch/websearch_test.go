package websearch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractURLs(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "中文句号作为边界",
			text: "详见 https://www.nea.gov.cn/policy/2024.html。该文件已生效。",
			want: []string{"https://www.nea.gov.cn/policy/2024.html"},
		},
		{
			name: "中文括号与书名号作为边界",
			text: "（来源：https://drc.gd.gov.cn/snyj/content.html）引用《办法》",
			want: []string{"https://drc.gd.gov.cn/snyj/content.html"},
		},
		{
			name: "去除尾随英文标点",
			text: "see https://www.gov.cn/zhengce/content.htm, and more",
			want: []string{"https://www.gov.cn/zhengce/content.htm"},
		},
		{
			name: "多个链接按出现顺序",
			text: "先看 https://a.gov.cn/1 再看 https://b.gov.cn/2",
			want: []string{"https://a.gov.cn/1", "https://b.gov.cn/2"},
		},
		{
			name: "重复链接只保留首个",
			text: "https://a.gov.cn/1 与 https://a.gov.cn/1 相同",
			want: []string{"https://a.gov.cn/1"},
		},
		{
			name: "markdown 链接",
			text: "参考 [通知](https://www.nea.gov.cn/notice.html) 全文",
			want: []string{"https://www.nea.gov.cn/notice.html"},
		},
		{
			name: "无链接",
			text: "并网验收需要提交验收申请表。",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractURLs(tt.text))
		})
	}
}

func TestMergeCitations(t *testing.T) {
	t.Run("结构化引用在前正文链接在后", func(t *testing.T) {
		structured := []string{"https://a.gov.cn/1", "https://b.gov.cn/2"}
		answer := "另见 https://c.gov.cn/3。"

		got := MergeCitations(structured, answer)
		assert.Equal(t, []string{"https://a.gov.cn/1", "https://b.gov.cn/2", "https://c.gov.cn/3"}, got)
	})

	t.Run("正文重复的链接不追加", func(t *testing.T) {
		structured := []string{"https://a.gov.cn/1"}
		answer := "正文引用 https://a.gov.cn/1 与 https://b.gov.cn/2"

		got := MergeCitations(structured, answer)
		assert.Equal(t, []string{"https://a.gov.cn/1", "https://b.gov.cn/2"}, got)
	})

	t.Run("结构化引用去重并跳过空串", func(t *testing.T) {
		structured := []string{"https://a.gov.cn/1", "", "https://a.gov.cn/1"}

		got := MergeCitations(structured, "")
		assert.Equal(t, []string{"https://a.gov.cn/1"}, got)
	})

	t.Run("全空输入返回空列表", func(t *testing.T) {
		assert.Empty(t, MergeCitations(nil, "没有链接的回答。"))
	})
}
