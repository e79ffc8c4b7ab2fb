package ui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/engine"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/model"
)

func TestConsole_Progress(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.Progress(engine.Progress{State: engine.StateIdle})
	assert.Empty(t, buf.String())

	events := []engine.Progress{
		{State: engine.StateSearching, Percent: 5},
		{State: engine.StateFetching, Index: 1, Total: 2, Source: "https://en.wikipedia.org/wiki/Telescope", Percent: 10},
		{State: engine.StateSummarizing, Index: 1, Total: 2, Source: "https://en.wikipedia.org/wiki/Telescope", Percent: 27, Message: "done"},
		{State: engine.StateFetching, Index: 2, Total: 2, Source: "https://blocked.example.org/", Percent: 45, Message: "skipped: unsupported site"},
		{State: engine.StateComposing, Total: 1, Percent: 85},
		{State: engine.StateDone, Percent: 100, Message: "reports/research_report_20240501_123000.md"},
	}
	for _, p := range events {
		c.Progress(p)
	}

	out := buf.String()
	assert.Contains(t, out, "Searching the web")
	assert.Contains(t, out, "Fetching source 1/2: https://en.wikipedia.org/wiki/Telescope")
	assert.NotContains(t, out, "Summarizing source 1/2")
	assert.Contains(t, out, "skipped: unsupported site")
	assert.Contains(t, out, "Composing report from 1 sources")
	assert.Contains(t, out, "Report saved to reports/research_report_20240501_123000.md")
}

func TestConsole_Summary(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.Summary(nil)
	assert.Empty(t, buf.String())

	c.Summary(&model.RunResult{
		Skipped:  []model.SkippedSource{{URL: "https://blocked.example.org/", Stage: "fetch", Kind: "permanent", Reason: "403"}},
		Warnings: []string{"source https://en.wikipedia.org/wiki/Telescope split into 3 chunks"},
	})
	out := buf.String()
	assert.Contains(t, out, "Skipped sources")
	assert.Contains(t, out, "https://blocked.example.org/ [fetch/permanent]: 403")
	assert.Contains(t, out, "Warnings")
	assert.Contains(t, out, "split into 3 chunks")
}

func TestPreview(t *testing.T) {
	out, err := Preview("# Telescopes\n\nThe telescope was invented in 1608.\n", 0)
	require.NoError(t, err)
	assert.Contains(t, out, "Telescopes")
	assert.Contains(t, out, "1608")
}
