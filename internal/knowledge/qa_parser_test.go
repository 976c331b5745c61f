package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseQACSV(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []QAPair
	}{
		{
			name: "rows in file order",
			content: "question,answer\n" +
				"\"배송은 얼마나 걸리나요?\",\"2-3일 소요됩니다.\"\n" +
				"\"환불 가능한가요?\",\"7일 이내 가능합니다.\"\n" +
				"\"포인트 확인\",\"마이페이지에서 확인하세요.\"",
			want: []QAPair{
				{Question: "배송은 얼마나 걸리나요?", Answer: "2-3일 소요됩니다."},
				{Question: "환불 가능한가요?", Answer: "7일 이내 가능합니다."},
				{Question: "포인트 확인", Answer: "마이페이지에서 확인하세요."},
			},
		},
		{
			name:    "header only",
			content: "question,answer\n",
			want:    []QAPair{},
		},
		{
			name:    "empty input",
			content: "",
			want:    []QAPair{},
		},
		{
			name: "malformed rows are skipped",
			content: "question,answer\n" +
				"\"missing close\",\"answer\n" +
				"unquoted,row\n" +
				"\"ok\",\"fine\"\n" +
				"\"only one field\"\n",
			want: []QAPair{{Question: "ok", Answer: "fine"}},
		},
		{
			name:    "crlf and blank lines",
			content: "q,a\r\n\r\n\"q1\",\"a1\"\r\n   \r\n\"q2\",\"a2\"\r\n",
			want: []QAPair{
				{Question: "q1", Answer: "a1"},
				{Question: "q2", Answer: "a2"},
			},
		},
		{
			name:    "first line is always treated as header",
			content: "\"q0\",\"a0\"\n\"q1\",\"a1\"",
			want:    []QAPair{{Question: "q1", Answer: "a1"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseQACSV(tt.content))
		})
	}
}

func TestComposeQAText(t *testing.T) {
	assert.Equal(t, "질문: 배송비는?\n답변: 무료입니다.", ComposeQAText("배송비는?", "무료입니다."))
}
