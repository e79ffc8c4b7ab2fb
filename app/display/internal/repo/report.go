package repo

import (
	"context"
	"errors"

	"github.com/iWorld-y/research_assistant/app/display/internal/domain"
)

// ErrNotFound 报告不存在
var ErrNotFound = errors.New("not found")

// ReportRepo 报告仓库接口
type ReportRepo interface {
	// ListReports 列出报告，最新在前
	ListReports(ctx context.Context) ([]*domain.ReportSummary, error)
	// GetReport 按文件名读取报告
	GetReport(ctx context.Context, name string) (*domain.ReportDetail, error)
}

// RunRepo 运行记录仓库接口，未配置数据库时为空
type RunRepo interface {
	ListRuns(ctx context.Context, limit int) ([]*domain.Run, error)
}
