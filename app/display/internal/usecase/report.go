package usecase

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/research_assistant/app/display/internal/domain"
	"github.com/iWorld-y/research_assistant/app/display/internal/repo"
)

// ReportUseCase 报告业务逻辑
type ReportUseCase struct {
	repo repo.ReportRepo
	runs repo.RunRepo
	log  *log.Helper
}

// NewReportUseCase 创建报告业务逻辑实例，runs 可为 nil
func NewReportUseCase(repo repo.ReportRepo, runs repo.RunRepo, logger log.Logger) *ReportUseCase {
	return &ReportUseCase{repo: repo, runs: runs, log: log.NewHelper(logger)}
}

// List 列出报告摘要
func (uc *ReportUseCase) List(ctx context.Context) ([]*domain.ReportSummary, error) {
	return uc.repo.ListReports(ctx)
}

// Get 按文件名获取报告详情
func (uc *ReportUseCase) Get(ctx context.Context, name string) (*domain.ReportDetail, error) {
	return uc.repo.GetReport(ctx, name)
}

// Runs 最近的运行记录，未启用数据库时返回空列表
func (uc *ReportUseCase) Runs(ctx context.Context, limit int) ([]*domain.Run, error) {
	if uc.runs == nil {
		return []*domain.Run{}, nil
	}
	return uc.runs.ListRuns(ctx, limit)
}
