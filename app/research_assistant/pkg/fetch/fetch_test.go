package fetch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/apierr"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/extract"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/model"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/retry"
)

type result struct {
	text string
	err  error
}

// fakeExtractor 按格式依次返回预设结果，最后一个结果重复使用
type fakeExtractor struct {
	mu      sync.Mutex
	results map[extract.Format][]result
	calls   []extract.Request
}

func (f *fakeExtractor) Extract(ctx context.Context, req *extract.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, *req)
	rs := f.results[req.Format]
	if len(rs) == 0 {
		return "", apierr.Permanent("fake", errors.New("no result"))
	}
	r := rs[0]
	if len(rs) > 1 {
		f.results[req.Format] = rs[1:]
	}
	return r.text, r.err
}

func opts() Options {
	return Options{
		Format:         extract.FormatMarkdown,
		FallbackFormat: extract.FormatText,
		MinContent:     50,
		Policy:         retry.Policy{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond},
	}
}

func permanent(msg string) error { return apierr.Permanent("fake", errors.New(msg)) }

func TestFetch_InvalidURL(t *testing.T) {
	primary := &fakeExtractor{}
	_, _, err := New(primary, nil, opts()).Fetch(context.Background(), &model.Source{URL: "ftp://example.com/x"})
	assert.True(t, apierr.Is(err, apierr.KindValidation))
	assert.Empty(t, primary.calls)
}

func TestFetch_UsesRawContentFromSearch(t *testing.T) {
	primary := &fakeExtractor{}
	raw := strings.Repeat("raw content ", 10)
	text, normalized, err := New(primary, nil, opts()).Fetch(context.Background(), &model.Source{URL: "http://www.example.com/a", RawContent: raw})
	require.NoError(t, err)
	assert.Equal(t, strings.TrimSpace(raw), text)
	assert.Equal(t, "https://example.com/a", normalized)
	assert.Empty(t, primary.calls)
}

func TestFetch_ShortRawContentStillExtracts(t *testing.T) {
	primary := &fakeExtractor{results: map[extract.Format][]result{
		extract.FormatMarkdown: {{text: "# Page\n\nfull body"}},
	}}
	text, _, err := New(primary, nil, opts()).Fetch(context.Background(), &model.Source{URL: "example.com/a", RawContent: "short"})
	require.NoError(t, err)
	assert.Equal(t, "# Page\n\nfull body", text)
	require.Len(t, primary.calls, 1)
	assert.Equal(t, "https://example.com/a", primary.calls[0].URL)
}

func TestFetch_FallsBackToTextFormat(t *testing.T) {
	primary := &fakeExtractor{results: map[extract.Format][]result{
		extract.FormatMarkdown: {{err: permanent("markdown unsupported")}},
		extract.FormatText:     {{text: "plain body"}},
	}}
	text, _, err := New(primary, nil, opts()).Fetch(context.Background(), &model.Source{URL: "https://example.com/"})
	require.NoError(t, err)
	assert.Equal(t, "plain body", text)
	assert.Len(t, primary.calls, 2)
}

func TestFetch_FallsBackToReadability(t *testing.T) {
	primary := &fakeExtractor{results: map[extract.Format][]result{
		extract.FormatMarkdown: {{err: permanent("unsupported site")}},
		extract.FormatText:     {{err: permanent("unsupported site")}},
	}}
	local := &fakeExtractor{results: map[extract.Format][]result{
		extract.FormatText: {{text: "readable body"}},
	}}
	text, _, err := New(primary, local, opts()).Fetch(context.Background(), &model.Source{URL: "https://example.com/"})
	require.NoError(t, err)
	assert.Equal(t, "readable body", text)
	assert.Len(t, local.calls, 1)
}

func TestFetch_RetriesTransient(t *testing.T) {
	primary := &fakeExtractor{results: map[extract.Format][]result{
		extract.FormatMarkdown: {
			{err: apierr.Transient("fake", errors.New("429"))},
			{text: "after retry"},
		},
	}}
	text, _, err := New(primary, nil, opts()).Fetch(context.Background(), &model.Source{URL: "https://example.com/"})
	require.NoError(t, err)
	assert.Equal(t, "after retry", text)
	assert.Len(t, primary.calls, 2)
}

func TestFetch_AllFailIsPermanent(t *testing.T) {
	primary := &fakeExtractor{results: map[extract.Format][]result{
		extract.FormatMarkdown: {{err: apierr.Transient("fake", errors.New("503"))}},
		extract.FormatText:     {{err: permanent("unsupported site")}},
	}}
	local := &fakeExtractor{results: map[extract.Format][]result{
		extract.FormatText: {{err: permanent("no readable content")}},
	}}
	_, normalized, err := New(primary, local, opts()).Fetch(context.Background(), &model.Source{URL: "example.com"})
	require.Error(t, err)
	assert.Equal(t, "https://example.com/", normalized)
	assert.True(t, apierr.Is(err, apierr.KindPermanent))
	assert.Contains(t, err.Error(), "primary")
	assert.Contains(t, err.Error(), "readability")
	// markdown 重试 2 次，text 不重试
	assert.Len(t, primary.calls, 3)
}

func TestFetch_EmptyContentIsFailure(t *testing.T) {
	primary := &fakeExtractor{results: map[extract.Format][]result{
		extract.FormatMarkdown: {{text: "   "}},
		extract.FormatText:     {{text: ""}},
	}}
	_, _, err := New(primary, nil, opts()).Fetch(context.Background(), &model.Source{URL: "https://example.com/"})
	assert.True(t, apierr.Is(err, apierr.KindPermanent))
}
