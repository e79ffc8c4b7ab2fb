package data

import (
	"context"

	"github.com/iWorld-y/research_assistant/app/display/internal/domain"
	"github.com/iWorld-y/research_assistant/app/display/internal/repo"
)

type runRepo struct {
	data *Data
}

// NewRunRepo 运行记录仓库，未连接数据库时返回 nil
func NewRunRepo(data *Data) repo.RunRepo {
	if data.store == nil {
		return nil
	}
	return &runRepo{data: data}
}

func (r *runRepo) ListRuns(ctx context.Context, limit int) ([]*domain.Run, error) {
	records, err := r.data.store.ListRuns(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Run, 0, len(records))
	for _, rec := range records {
		out = append(out, &domain.Run{
			ID:           rec.ID,
			Topic:        rec.Topic,
			Status:       rec.Status,
			Title:        rec.Title,
			File:         rec.ReportPath,
			SourceCount:  rec.SourceCount,
			SkippedCount: rec.SkippedCount,
			Error:        rec.Error,
			StartedAt:    rec.StartedAt,
		})
	}
	return out, nil
}
