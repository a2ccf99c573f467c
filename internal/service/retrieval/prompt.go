package retrieval

import (
	"fmt"
	"strings"
)

// promptTemplate RAG 提示词模板
const promptTemplate = `Answer the question based on the context below.

Context:
%s

Question:
%s`

// ComposeContext 把检索片段拼接为提示词上下文
func ComposeContext(segments []Segment) string {
	if len(segments) == 0 {
		return ""
	}

	var b strings.Builder
	for i, seg := range segments {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(seg.Text)
	}
	return b.String()
}

// BuildPrompt 组装最终用户消息
// context 为空时退化为不带背景的原始问题
func BuildPrompt(question, context string) string {
	if context == "" {
		return question
	}
	return fmt.Sprintf(promptTemplate, context, question)
}
