// Package report 把报告渲染为 markdown 文件，并能从文件中读回结构
package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/model"
)

// TimestampLayout 报告中生成时间的格式
const TimestampLayout = "2006-01-02 15:04:05"

// ExcerptWidth 来源引用片段的最大显示宽度
const ExcerptWidth = 300

const (
	headingIntroduction = "Introduction"
	headingConclusion   = "Conclusion"
	headingSources      = "Sources"
)

// Render 按固定顺序渲染报告: 标题、生成时间、引言、正文各节、结论、来源列表
func Render(r *model.Report) string {
	md := []string{
		fmt.Sprintf("# %s\n", escapeInline(singleLine(r.Title))),
		fmt.Sprintf("*Generated on %s*\n", r.GeneratedAt.Format(TimestampLayout)),
		fmt.Sprintf("## %s\n", headingIntroduction),
		fmt.Sprintf("%s\n", strings.TrimSpace(r.Introduction)),
	}

	for _, section := range r.Sections {
		md = append(md, fmt.Sprintf("## %s\n", escapeInline(singleLine(section.Heading))))
		md = append(md, fmt.Sprintf("%s\n", strings.TrimSpace(section.Body)))
	}

	md = append(md, fmt.Sprintf("## %s\n", headingConclusion))
	md = append(md, fmt.Sprintf("%s\n", strings.TrimSpace(r.Conclusion)))

	md = append(md, fmt.Sprintf("## %s\n", headingSources))
	for i, source := range r.Sources {
		marker := strconv.Itoa(i+1) + ". "
		item := fmt.Sprintf("%s[%s](%s)\n", marker, escapeLinkText(singleLine(source.Title)), linkDestination(source.URL))
		if excerpt := Excerpt(source.Snippet); excerpt != "" {
			// 引用块缩进到列表项内容列，否则 10. 之后的引用会脱离列表项
			item += fmt.Sprintf("%s> %s\n", strings.Repeat(" ", len(marker)), escapeInline(excerpt))
		}
		md = append(md, item)
	}

	return strings.Join(md, "\n")
}

// Excerpt 把片段压成一行并按显示宽度截断
func Excerpt(s string) string {
	s = singleLine(s)
	if s == "" {
		return ""
	}
	return runewidth.Truncate(s, ExcerptWidth, "…")
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func escapeLinkText(s string) string {
	if s == "" {
		return "Untitled"
	}
	return escapeInline(s)
}

// inlineEscaper 转义会被解析成行内标记的 ASCII 标点
var inlineEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	"*", `\*`,
	"_", `\_`,
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
	">", `\>`,
	"!", `\!`,
	"&", `\&`,
	"~", `\~`,
)

func escapeInline(s string) string {
	return inlineEscaper.Replace(s)
}

func linkDestination(u string) string {
	if strings.ContainsAny(u, " ()<>") {
		return "<" + strings.NewReplacer("<", "%3C", ">", "%3E").Replace(u) + ">"
	}
	return u
}
