package summarize

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/apierr"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/chunk"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/logger"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/model"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/retry"
)

const systemPrompt = `You are an expert research assistant. You summarize source documents faithfully.
Only state facts that appear in the provided text. Do not invent URLs, dates or sources.
Write plain prose paragraphs without markdown headings.`

// Completer 文本补全接口，由 llm.Client 实现
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Summarizer 为单个来源生成摘要，超预算的正文先分块
type Summarizer struct {
	llm     Completer
	chunker chunk.Chunker
	policy  retry.Policy
}

// New 创建 Summarizer
func New(llm Completer, chunker chunk.Chunker, policy retry.Policy) *Summarizer {
	return &Summarizer{llm: llm, chunker: chunker, policy: policy}
}

// Result 摘要结果
type Result struct {
	Summary string
	Chunks  int
	// Warning 非空表示发生了分块 (TokenBudgetExceeded，不致命)
	Warning error
}

// Summarize 对 topic 相关的来源正文生成摘要。分块时逐块请求摘要并按顺序拼接。
func (s *Summarizer) Summarize(ctx context.Context, topic string, src *model.Source, text string) (*Result, error) {
	chunks := s.chunker.Split(text)
	if len(chunks) == 0 {
		return nil, apierr.Permanent("summarize", fmt.Errorf("no content for %s", src.URL))
	}

	res := &Result{Chunks: len(chunks)}
	if len(chunks) > 1 {
		res.Warning = apierr.TokenBudget("summarize",
			fmt.Errorf("%s split into %d chunks of at most %d tokens", src.URL, len(chunks), s.chunker.MaxTokens))
		logger.Log.Warnf("来源正文超出 token 预算，切分为 %d 块 [%s]", len(chunks), src.URL)
	}

	parts := make([]string, 0, len(chunks))
	for i, c := range chunks {
		prompt := buildPrompt(topic, src, c.Text, i+1, len(chunks))
		policy := s.policy
		policy.OnRetry = func(err error, wait time.Duration) {
			logger.Log.Warnf("摘要失败，%v 后重试 [%s 第 %d 块]: %v", wait, src.URL, i+1, err)
		}
		summary, err := retry.DoValue(ctx, policy, func(ctx context.Context) (string, error) {
			return s.llm.Complete(ctx, systemPrompt, prompt)
		})
		if err != nil {
			return nil, err
		}
		parts = append(parts, strings.TrimSpace(summary))
	}

	res.Summary = strings.Join(parts, chunk.Joiner)
	return res, nil
}

func buildPrompt(topic string, src *model.Source, text string, part, total int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Research topic: %s\n", topic)
	fmt.Fprintf(&sb, "Source title: %s\nSource URL: %s\n", src.Title, src.URL)
	if total > 1 {
		fmt.Fprintf(&sb, "This is part %d of %d of the source document.\n", part, total)
	}
	sb.WriteString("\nSummarize the information in the text below that is relevant to the research topic ")
	sb.WriteString("in 100-250 words. Keep key facts, names, dates and figures.\n\n")
	sb.WriteString("Text:\n")
	sb.WriteString(text)
	return sb.String()
}
