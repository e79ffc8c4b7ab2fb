package compose

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/apierr"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/chunk"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/logger"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/model"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/retry"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/urlnorm"
)

// JSONCompleter 结构化补全接口，由 llm.Client 实现
type JSONCompleter interface {
	CompleteJSON(ctx context.Context, system, user string, out any) error
}

// Output 模型需要返回的 JSON 结构
type Output struct {
	Title        string          `json:"title"`
	Introduction string          `json:"introduction"`
	Sections     []model.Section `json:"sections"`
	Conclusion   string          `json:"conclusion"`
	Sources      []CitedSource   `json:"sources"`
}

// CitedSource 模型引用的来源
type CitedSource struct {
	URL     string `json:"url"`
	Excerpt string `json:"excerpt"`
}

// validate 检查模型输出是否完整，不完整时交给重试策略重新生成
func (o *Output) validate() error {
	var missing []string
	if strings.TrimSpace(o.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(o.Introduction) == "" {
		missing = append(missing, "introduction")
	}
	if len(o.Sections) == 0 {
		missing = append(missing, "sections")
	}
	for i, s := range o.Sections {
		if strings.TrimSpace(s.Heading) == "" || strings.TrimSpace(s.Body) == "" {
			missing = append(missing, fmt.Sprintf("sections[%d]", i))
		}
	}
	if strings.TrimSpace(o.Conclusion) == "" {
		missing = append(missing, "conclusion")
	}
	if len(missing) > 0 {
		return apierr.Transient("compose", fmt.Errorf("incomplete report, missing %s", strings.Join(missing, ", ")))
	}
	return nil
}

// Composer 把来源摘要组装成报告
type Composer struct {
	llm       JSONCompleter
	policy    retry.Policy
	maxTokens int
}

// New 创建 Composer，maxTokens 为所有摘要合计的 token 预算，<= 0 表示不限制
func New(llm JSONCompleter, policy retry.Policy, maxTokens int) *Composer {
	return &Composer{llm: llm, policy: policy, maxTokens: maxTokens}
}

// Compose 生成报告。sources 为已摘要的可用来源，按抓取顺序排列。
// 报告的来源列表即 sources 本身；模型给出的引用片段覆盖搜索摘要，模型编造的 URL 被丢弃并记入 warnings。
// 重试耗尽后返回 Fatal 错误。
func (c *Composer) Compose(ctx context.Context, topic string, sources []model.Source, now time.Time) (*model.Report, []string, error) {
	if len(sources) == 0 {
		return nil, nil, apierr.Fatal("compose", errors.New("no usable sources"))
	}

	var warnings []string
	summaries, truncated := c.budget(sources)
	if truncated {
		warning := apierr.TokenBudget("compose", fmt.Errorf("source summaries truncated to fit %d tokens", c.maxTokens))
		warnings = append(warnings, warning.Error())
		logger.Log.Warn(warning.Error())
	}

	prompt := buildPrompt(topic, sources, summaries, now)
	policy := c.policy
	policy.OnRetry = func(err error, wait time.Duration) {
		logger.Log.Warnf("报告生成失败，%v 后重试: %v", wait, err)
	}

	out, err := retry.DoValue(ctx, policy, func(ctx context.Context) (*Output, error) {
		var o Output
		if err := c.llm.CompleteJSON(ctx, systemPrompt, prompt, &o); err != nil {
			return nil, err
		}
		if err := o.validate(); err != nil {
			return nil, err
		}
		return &o, nil
	})
	if err != nil {
		return nil, warnings, apierr.Fatal("compose", err)
	}

	report := &model.Report{
		Title:        strings.TrimSpace(out.Title),
		GeneratedAt:  now,
		Introduction: strings.TrimSpace(out.Introduction),
		Conclusion:   strings.TrimSpace(out.Conclusion),
	}
	for _, s := range out.Sections {
		report.Sections = append(report.Sections, model.Section{
			Heading: strings.TrimSpace(s.Heading),
			Body:    strings.TrimSpace(s.Body),
		})
	}

	citations, invented := matchCitations(out.Sources, sources)
	for _, u := range invented {
		msg := fmt.Sprintf("removed invalid source url %s", u)
		warnings = append(warnings, msg)
		logger.Log.Warnf("丢弃模型编造的来源 URL: %s", u)
	}
	for i, src := range sources {
		cited := src
		cited.RawContent = ""
		cited.ExtractedText = ""
		if excerpt, ok := citations[i]; ok {
			cited.Snippet = excerpt
		}
		report.Sources = append(report.Sources, cited)
	}

	return report, warnings, nil
}

// budget 按预算截断摘要；超预算时每个来源平均分配 token
func (c *Composer) budget(sources []model.Source) ([]string, bool) {
	summaries := make([]string, len(sources))
	total := 0
	for i, s := range sources {
		summaries[i] = s.Summary
		total += chunk.CountTokens(s.Summary)
	}
	if c.maxTokens <= 0 || total <= c.maxTokens {
		return summaries, false
	}

	per := c.maxTokens / len(sources)
	truncated := false
	for i := range summaries {
		if t, cut := chunk.Truncate(summaries[i], per); cut {
			summaries[i] = t + " …"
			truncated = true
		}
	}
	return summaries, truncated
}

// matchCitations 把模型引用的 URL 对应到来源下标；返回无法对应的 URL
func matchCitations(cited []CitedSource, sources []model.Source) (map[int]string, []string) {
	index := make(map[string]int, len(sources))
	for i, s := range sources {
		if n, err := urlnorm.Normalize(s.URL); err == nil {
			index[n] = i
		}
	}

	out := make(map[int]string)
	var invented []string
	for _, c := range cited {
		n, err := urlnorm.Normalize(c.URL)
		i, ok := index[n]
		if err != nil || !ok {
			invented = append(invented, c.URL)
			continue
		}
		if excerpt := strings.TrimSpace(c.Excerpt); excerpt != "" {
			if _, seen := out[i]; !seen {
				out[i] = excerpt
			}
		}
	}
	return out, invented
}
