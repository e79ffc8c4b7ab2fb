package compose

import (
	"fmt"
	"strings"
	"time"

	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/model"
)

const systemPrompt = `You are an expert research assistant. Your task is to create detailed,
well-structured research reports on any given topic. You are a JSON generator: output only JSON.

CRITICAL SOURCE REQUIREMENTS:
1. You MUST ONLY use URLs that are EXACTLY as they appear in the provided sources.
2. DO NOT modify, generate, or create any URLs.
3. DO NOT use future dates or hypothetical sources.
4. If the sources do not support a section, make it shorter or combine sections.`

const schemaPrompt = `Return the report strictly in this JSON format, without markdown code fences:
{
  "title": "A clear, engaging report title",
  "introduction": "Markdown. A comprehensive introduction that outlines the scope.",
  "sections": [
    {"heading": "Section heading", "body": "Markdown body with inline hyperlinks to the sources"}
  ],
  "conclusion": "Markdown. Meaningful conclusions drawn from the sections.",
  "sources": [
    {"url": "one of the source URLs above, copied exactly", "excerpt": "A relevant quote or summary from that source"}
  ]
}
Organize the body into logical sections based on the available sources.`

func buildPrompt(topic string, sources []model.Source, summaries []string, now time.Time) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Create a detailed research report about: %s\n", topic)
	fmt.Fprintf(&sb, "Current system time: %s\n\n", now.Format("2006-01-02 15:04:05"))
	sb.WriteString("Sources:\n\n")
	for i, s := range sources {
		fmt.Fprintf(&sb, "Source %d:\nTitle: %s\nURL: %s\nSummary: %s\n\n", i+1, s.Title, s.URL, summaries[i])
	}
	sb.WriteString(schemaPrompt)
	return sb.String()
}
