package server

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/research_assistant/app/display/internal/usecase"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/config"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/engine"
)

// NewRunnerFactory 每次请求用配置副本创建独立的引擎，recorder 可为 nil
func NewRunnerFactory(c *config.Config, recorder engine.Recorder, logger log.Logger) usecase.RunnerFactory {
	helper := log.NewHelper(logger)
	return func(ctx context.Context) (usecase.Runner, error) {
		cfg := *c
		eng, err := engine.NewFromConfig(ctx, &cfg, recorder)
		if err != nil {
			helper.Errorf("failed to init engine: %v", err)
			return nil, err
		}
		return eng, nil
	}
}
