package usecase

import (
	"context"
	"os"
	"path/filepath"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/research_assistant/app/display/internal/domain"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/engine"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/model"
)

// Runner 执行一次研究运行，由 engine.Engine 实现
type Runner interface {
	Run(ctx context.Context, opts engine.RunOptions) (*model.RunResult, error)
}

// RunnerFactory 每次运行创建独立的 Runner，运行之间不共享状态
type RunnerFactory func(ctx context.Context) (Runner, error)

// ResearchUseCase 研究运行业务逻辑
type ResearchUseCase struct {
	newRunner RunnerFactory
	slots     chan struct{}
	log       *log.Helper
}

// NewResearchUseCase 创建实例，maxParallel 限制同时进行的运行数
func NewResearchUseCase(newRunner RunnerFactory, maxParallel int, logger log.Logger) *ResearchUseCase {
	if maxParallel <= 0 {
		maxParallel = 1
	}
	return &ResearchUseCase{
		newRunner: newRunner,
		slots:     make(chan struct{}, maxParallel),
		log:       log.NewHelper(logger),
	}
}

// Research 同步执行一次运行并返回报告原文。等待空闲名额时可被 ctx 取消
func (uc *ResearchUseCase) Research(ctx context.Context, topic string) (*domain.ResearchResult, error) {
	select {
	case uc.slots <- struct{}{}:
		defer func() { <-uc.slots }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	runner, err := uc.newRunner(ctx)
	if err != nil {
		return nil, err
	}

	res, err := runner.Run(ctx, engine.RunOptions{
		Topic: topic,
		ProgressCallback: func(p engine.Progress) {
			uc.log.Debugf("research [%s] %s %d/%d %s", topic, p.State, p.Index, p.Total, p.Source)
		},
	})
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(res.Path)
	if err != nil {
		return nil, err
	}

	out := &domain.ResearchResult{
		RunID:    res.RunID,
		Title:    res.Report.Title,
		File:     filepath.Base(res.Path),
		Markdown: string(content),
		Skipped:  make([]domain.SkippedSource, 0, len(res.Skipped)),
		Warnings: res.Warnings,
	}
	if out.Warnings == nil {
		out.Warnings = []string{}
	}
	for _, s := range res.Skipped {
		out.Skipped = append(out.Skipped, domain.SkippedSource{URL: s.URL, Stage: s.Stage, Kind: s.Kind, Reason: s.Reason})
	}
	uc.log.Infof("research [%s] finished: %s", topic, out.File)
	return out, nil
}
