package knowledge

import (
	"regexp"
	"strings"
)

// QAPair 问答对
type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// qaLinePattern 整行必须是两个双引号字段，字段内不支持逗号和引号转义
var qaLinePattern = regexp.MustCompile(`^"(.+?)","(.+?)"$`)

// ParseQACSV 解析两列问答CSV。第一行是表头，不匹配格式的行直接跳过。
func ParseQACSV(content string) []QAPair {
	lines := strings.Split(content, "\n")
	pairs := make([]QAPair, 0, len(lines))

	for i := 1; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		match := qaLinePattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		pairs = append(pairs, QAPair{Question: match[1], Answer: match[2]})
	}

	return pairs
}

// ComposeQAText 组装用于向量化的问答文本
func ComposeQAText(question, answer string) string {
	return "질문: " + question + "\n답변: " + answer
}
