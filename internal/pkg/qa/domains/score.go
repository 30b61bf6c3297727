package domains

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// 政策文档页与新闻页在政务网站 URL 路径中的常见特征。
var (
	docPathMarkers  = []string{"zhengce", "zcfg", "zfxxgk", "gkml", "tzgg", "fgwj", "content_", ".pdf"}
	newsPathMarkers = []string{"news", "xwzx", "xinwen", "dongtai", "xwfb", "media"}
)

// topicPathHints 主题在 URL 路径中的提示词（拼音或英文）。
var topicPathHints = map[string][]string{
	TopicGridConnection: {"grid", "dianwang", "bingwang", "jieru"},
	TopicLandSurvey:     {"land", "yongdi", "tudi", "zygh"},
	TopicRailFreight:    {"rail", "tielu", "huoyun", "yunshu"},
	TopicRenewables:     {"solar", "wind", "guangfu", "fengdian", "xinnengyuan"},
}

// 年份须有非数字边界，避免把公文编号中的数字串误判为年份。
var yearInPath = regexp.MustCompile(`(?:^|[^0-9])(20\d{2})(?:[^0-9]|$)`)

// ScoreURL 对候选 URL 打启发式分，用于筛选最可能是正式文件的链接：
//
//	+3 路径含政策文档特征（政策库、政府信息公开、PDF 等）
//	-2 路径含新闻页特征
//	+2 路径含当前主题的提示词
//	+2 主机名命中查询省份的省级域名
//	+2/+1 路径中的年份距 nowYear 不超过 1/3 年
//
// 解析失败的 URL 记 0 分。
func (f *Filter) ScoreURL(rawURL, topic, province string, nowYear int) int {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return 0
	}

	path := strings.ToLower(u.Path)
	score := 0

	for _, marker := range docPathMarkers {
		if strings.Contains(path, marker) {
			score += 3
			break
		}
	}
	for _, marker := range newsPathMarkers {
		if strings.Contains(path, marker) {
			score -= 2
			break
		}
	}

	for _, hint := range topicPathHints[topic] {
		if strings.Contains(path, hint) {
			score += 2
			break
		}
	}

	if MatchesDomain(rawURL, f.provinceDomains(province)) {
		score += 2
	}

	if m := yearInPath.FindStringSubmatch(u.Path); len(m) == 2 {
		if year, err := strconv.Atoi(m[1]); err == nil && year <= nowYear+1 {
			switch diff := nowYear - year; {
			case diff <= 1:
				score += 2
			case diff <= 3:
				score++
			}
		}
	}

	return score
}
