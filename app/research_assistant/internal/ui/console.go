// Package ui 命令行输出: 彩色状态行与报告预览
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/engine"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/model"
)

var (
	errorColor   = lipgloss.Color("#e53935")
	warningColor = lipgloss.Color("#FFC107")
	successColor = lipgloss.Color("#8BC34A")
	infoColor    = lipgloss.Color("#00BCD4")
)

// Console 把运行进度写到终端
type Console struct {
	out     io.Writer
	err     lipgloss.Style
	warn    lipgloss.Style
	ok      lipgloss.Style
	info    lipgloss.Style
	heading lipgloss.Style
}

// NewConsole 创建 Console
func NewConsole(out io.Writer) *Console {
	return &Console{
		out:     out,
		err:     lipgloss.NewStyle().Foreground(errorColor).Bold(true),
		warn:    lipgloss.NewStyle().Foreground(warningColor),
		ok:      lipgloss.NewStyle().Foreground(successColor).Bold(true),
		info:    lipgloss.NewStyle().Foreground(infoColor),
		heading: lipgloss.NewStyle().Foreground(infoColor).Bold(true).Underline(true),
	}
}

func (c *Console) Info(format string, args ...any) {
	fmt.Fprintln(c.out, c.info.Render(fmt.Sprintf(format, args...)))
}

func (c *Console) Warn(format string, args ...any) {
	fmt.Fprintln(c.out, c.warn.Render(fmt.Sprintf(format, args...)))
}

func (c *Console) Error(format string, args ...any) {
	fmt.Fprintln(c.out, c.err.Render(fmt.Sprintf(format, args...)))
}

func (c *Console) Success(format string, args ...any) {
	fmt.Fprintln(c.out, c.ok.Render(fmt.Sprintf(format, args...)))
}

// Progress 渲染一条进度事件，作为 engine.RunOptions.ProgressCallback 使用
func (c *Console) Progress(p engine.Progress) {
	switch p.State {
	case engine.StateIdle:
		return
	case engine.StateSearching:
		c.Info("[%3d%%] Searching the web...", p.Percent)
	case engine.StateFetching, engine.StateSummarizing:
		line := fmt.Sprintf("[%3d%%] %s source %d/%d: %s", p.Percent, stateVerb(p.State), p.Index, p.Total, p.Source)
		if strings.HasPrefix(p.Message, "skipped") {
			c.Warn("%s (%s)", line, p.Message)
			return
		}
		if p.Message == "done" {
			return
		}
		c.Info("%s", line)
	case engine.StateComposing:
		c.Info("[%3d%%] Composing report from %d sources...", p.Percent, p.Total)
	case engine.StateDone:
		c.Success("[100%%] Report saved to %s", p.Message)
	case engine.StateFailed:
		c.Error("Research failed: %s", p.Message)
	}
}

func stateVerb(s engine.State) string {
	if s == engine.StateFetching {
		return "Fetching"
	}
	return "Summarizing"
}

// Summary 输出运行汇总: 跳过的来源与警告
func (c *Console) Summary(res *model.RunResult) {
	if res == nil {
		return
	}
	if len(res.Skipped) > 0 {
		fmt.Fprintln(c.out, c.heading.Render("Skipped sources"))
		for _, s := range res.Skipped {
			c.Warn("  - %s [%s/%s]: %s", s.URL, s.Stage, s.Kind, s.Reason)
		}
	}
	if len(res.Warnings) > 0 {
		fmt.Fprintln(c.out, c.heading.Render("Warnings"))
		for _, w := range res.Warnings {
			c.Warn("  - %s", w)
		}
	}
}

// Preview 用 glamour 渲染 markdown 报告，wrap 为换行宽度
func Preview(markdown string, wrap int) (string, error) {
	if wrap <= 0 {
		wrap = 80
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return "", err
	}
	return renderer.Render(markdown)
}
