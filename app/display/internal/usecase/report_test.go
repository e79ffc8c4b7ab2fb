package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/research_assistant/app/display/internal/domain"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/apierr"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/engine"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/model"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/report"
)

// mockReportRepo 模拟报告仓库
type mockReportRepo struct{}

func (m *mockReportRepo) ListReports(ctx context.Context) ([]*domain.ReportSummary, error) {
	return []*domain.ReportSummary{{Name: "research_report_20240501_123000.md", Size: 42}}, nil
}

func (m *mockReportRepo) GetReport(ctx context.Context, name string) (*domain.ReportDetail, error) {
	return &domain.ReportDetail{Name: name, Title: "Test Report"}, nil
}

type mockRunRepo struct{}

func (m *mockRunRepo) ListRuns(ctx context.Context, limit int) ([]*domain.Run, error) {
	return []*domain.Run{{ID: "r1", Topic: "telescope", Status: "done"}}, nil
}

func TestReportUseCase_List(t *testing.T) {
	uc := NewReportUseCase(&mockReportRepo{}, nil, log.DefaultLogger)

	reports, err := uc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "research_report_20240501_123000.md", reports[0].Name)

	detail, err := uc.Get(context.Background(), "x.md")
	require.NoError(t, err)
	assert.Equal(t, "Test Report", detail.Title)
}

func TestReportUseCase_Runs(t *testing.T) {
	runs, err := NewReportUseCase(&mockReportRepo{}, nil, log.DefaultLogger).Runs(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)

	runs, err = NewReportUseCase(&mockReportRepo{}, &mockRunRepo{}, log.DefaultLogger).Runs(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "telescope", runs[0].Topic)
}

// fakeRunner 把固定报告写入目录
type fakeRunner struct {
	dir    string
	err    error
	topics []string
}

func (f *fakeRunner) Run(ctx context.Context, opts engine.RunOptions) (*model.RunResult, error) {
	f.topics = append(f.topics, opts.Topic)
	if f.err != nil {
		return nil, f.err
	}
	rep := &model.Report{
		Title:        "Telescopes",
		GeneratedAt:  time.Date(2024, 5, 1, 12, 30, 0, 0, time.Local),
		Introduction: "Intro.",
		Sections:     []model.Section{{Heading: "History", Body: "Body."}},
		Conclusion:   "End.",
		Sources:      []model.Source{{Title: "Telescope", URL: "https://en.wikipedia.org/wiki/Telescope"}},
	}
	path, err := report.Save(f.dir, rep)
	if err != nil {
		return nil, err
	}
	return &model.RunResult{
		RunID:   "run-1",
		Topic:   opts.Topic,
		Report:  rep,
		Path:    path,
		Skipped: []model.SkippedSource{{URL: "https://blocked.example.org/", Stage: "fetch", Kind: "permanent", Reason: "unsupported site"}},
	}, nil
}

func TestResearchUseCase(t *testing.T) {
	runner := &fakeRunner{dir: t.TempDir()}
	uc := NewResearchUseCase(func(ctx context.Context) (Runner, error) { return runner, nil }, 1, log.DefaultLogger)

	res, err := uc.Research(context.Background(), "telescope")
	require.NoError(t, err)
	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, "Telescopes", res.Title)
	assert.Equal(t, "research_report_20240501_123000.md", res.File)
	assert.Contains(t, res.Markdown, "# Telescopes")
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "fetch", res.Skipped[0].Stage)
	assert.NotNil(t, res.Warnings)
	assert.Equal(t, []string{"telescope"}, runner.topics)

	content, err := os.ReadFile(filepath.Join(runner.dir, res.File))
	require.NoError(t, err)
	assert.Equal(t, string(content), res.Markdown)
}

func TestResearchUseCase_Errors(t *testing.T) {
	fatal := apierr.Fatal("run", errors.New("no usable sources"))
	uc := NewResearchUseCase(func(ctx context.Context) (Runner, error) {
		return &fakeRunner{err: fatal}, nil
	}, 1, log.DefaultLogger)
	_, err := uc.Research(context.Background(), "telescope")
	assert.ErrorIs(t, err, fatal)

	initErr := errors.New("bad config")
	uc = NewResearchUseCase(func(ctx context.Context) (Runner, error) { return nil, initErr }, 1, log.DefaultLogger)
	_, err = uc.Research(context.Background(), "telescope")
	assert.ErrorIs(t, err, initErr)
}

func TestResearchUseCase_WaitsForSlot(t *testing.T) {
	uc := NewResearchUseCase(func(ctx context.Context) (Runner, error) {
		return &fakeRunner{dir: t.TempDir()}, nil
	}, 1, log.DefaultLogger)
	uc.slots <- struct{}{}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := uc.Research(ctx, "telescope")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
