package data

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/research_assistant/app/display/internal/domain"
	"github.com/iWorld-y/research_assistant/app/display/internal/repo"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/report"
)

type reportRepo struct {
	dir string
	log *log.Helper
}

// NewReportRepo 基于报告目录的仓库
func NewReportRepo(data *Data, logger log.Logger) repo.ReportRepo {
	return &reportRepo{
		dir: data.dir,
		log: log.NewHelper(logger),
	}
}

func (r *reportRepo) ListReports(ctx context.Context) ([]*domain.ReportSummary, error) {
	files, err := report.List(r.dir)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.ReportSummary, 0, len(files))
	for _, f := range files {
		out = append(out, &domain.ReportSummary{Name: f.Name, Size: f.Size, ModTime: f.ModTime})
	}
	return out, nil
}

func (r *reportRepo) GetReport(ctx context.Context, name string) (*domain.ReportDetail, error) {
	if !report.IsReportFile(name) {
		return nil, repo.ErrNotFound
	}
	content, err := os.ReadFile(filepath.Join(r.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, repo.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	detail := &domain.ReportDetail{Name: name, Markdown: string(content)}
	parsed, err := report.Parse(content)
	if err != nil {
		// 文件被手工修改过，仍然返回原文
		r.log.Warnf("failed to parse report %s: %v", name, err)
		return detail, nil
	}
	detail.Title = parsed.Title
	detail.GeneratedAt = parsed.GeneratedAt
	detail.Sections = parsed.Sections()
	for _, s := range parsed.Sources {
		detail.Sources = append(detail.Sources, domain.Source{Title: s.Title, URL: s.URL, Excerpt: s.Snippet})
	}
	return detail, nil
}
