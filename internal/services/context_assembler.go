package services

import (
	"fmt"
	"strings"
)

// DefaultAssistantName 默认客服名称
const DefaultAssistantName = "키위마켓"

const promptTemplate = `당신은 %s 고객 지원 AI 챗봇입니다.
사용자의 질문에 친절하고 정확하게 답변해주세요.

[참고 정보]
%s

[사용자 질문]
%s

[답변 지침]
1. 참고 정보를 바탕으로 정확하게 답변하세요
2. 참고 정보에 없는 내용은 추측하지 말고 "확인이 필요합니다"라고 답변하세요
3. 친절하고 이해하기 쉽게 설명하세요
4. 답변은 질문과 같은 언어로 작성하세요
5. 필요시 단계별로 설명하세요

답변:`

// ContextAssembler 把检索结果拼接为生成模型的参考上下文
type ContextAssembler struct {
	assistantName string
}

// NewContextAssembler 创建上下文拼接器
func NewContextAssembler(assistantName string) *ContextAssembler {
	if strings.TrimSpace(assistantName) == "" {
		assistantName = DefaultAssistantName
	}
	return &ContextAssembler{assistantName: assistantName}
}

// BuildContext 按检索顺序编号，问答条目渲染为 "[n] Q: ...\nA: ..."，其余渲染为 "[n] content"。
// 空条目跳过，编号仍取其检索位置。
func (a *ContextAssembler) BuildContext(sources []SearchResult) string {
	parts := make([]string, 0, len(sources))
	for i, src := range sources {
		if rendered := renderSource(i+1, src); rendered != "" {
			parts = append(parts, rendered)
		}
	}
	return strings.Join(parts, "\n\n")
}

// BuildPrompt 组装完整提示词
func (a *ContextAssembler) BuildPrompt(question, context string) string {
	return fmt.Sprintf(promptTemplate, a.assistantName, context, question)
}

func renderSource(n int, src SearchResult) string {
	if src.Question != "" && src.Answer != "" {
		return fmt.Sprintf("[%d] Q: %s\nA: %s", n, src.Question, src.Answer)
	}
	if src.Content != "" {
		return fmt.Sprintf("[%d] %s", n, src.Content)
	}
	return ""
}
