package report

import (
	"errors"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/model"
)

// Parsed 从 markdown 读回的报告结构
type Parsed struct {
	Title       string
	GeneratedAt time.Time
	// Headings 全部二级标题，按出现顺序，包括 Introduction/Conclusion/Sources
	Headings []string
	Sources  []model.Source
}

// Sections 返回正文各节标题 (不含引言、结论、来源)
func (p *Parsed) Sections() []string {
	var out []string
	for _, h := range p.Headings {
		switch h {
		case headingIntroduction, headingConclusion, headingSources:
			continue
		}
		out = append(out, h)
	}
	return out
}

// Parse 解析 Render 生成的 markdown
func Parse(source []byte) (*Parsed, error) {
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	p := &Parsed{}
	var current string
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			title := inlineText(node, source)
			if node.Level == 1 && p.Title == "" {
				p.Title = title
				continue
			}
			if node.Level == 2 {
				current = title
				p.Headings = append(p.Headings, title)
			}
		case *ast.Paragraph:
			if current == "" && p.GeneratedAt.IsZero() {
				p.GeneratedAt = parseGenerated(inlineText(node, source))
			}
		case *ast.List:
			if current == headingSources {
				p.Sources = append(p.Sources, parseSources(node, source)...)
			}
		}
	}

	if p.Title == "" {
		return nil, errors.New("report has no title")
	}
	found := false
	for _, h := range p.Headings {
		if h == headingSources {
			found = true
			break
		}
	}
	if !found {
		return nil, errors.New("report has no sources section")
	}
	return p, nil
}

func parseGenerated(s string) time.Time {
	s = strings.TrimSpace(strings.TrimPrefix(s, "Generated on"))
	t, err := time.ParseInLocation(TimestampLayout, s, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseSources(list *ast.List, source []byte) []model.Source {
	var out []model.Source
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		var src model.Source
		_ = ast.Walk(item, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
			if !entering {
				return ast.WalkContinue, nil
			}
			switch node := n.(type) {
			case *ast.Link:
				if src.URL == "" {
					src.URL = string(node.Destination)
					src.Title = inlineText(node, source)
				}
				return ast.WalkSkipChildren, nil
			case *ast.Blockquote:
				src.Snippet = strings.TrimSpace(inlineText(node, source))
				return ast.WalkSkipChildren, nil
			}
			return ast.WalkContinue, nil
		})
		if src.URL != "" {
			out = append(out, src)
		}
	}
	return out
}

// inlineText 拼接节点下的全部文本，软换行按空格处理
func inlineText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := c.(type) {
		case *ast.Text:
			sb.Write(util.UnescapePunctuations(node.Segment.Value(source)))
			if node.SoftLineBreak() || node.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(node.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
