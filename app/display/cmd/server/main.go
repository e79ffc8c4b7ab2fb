package main

import (
	"context"
	"flag"
	"os"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"

	"github.com/iWorld-y/research_assistant/app/display/internal/data"
	"github.com/iWorld-y/research_assistant/app/display/internal/server"
	"github.com/iWorld-y/research_assistant/app/display/internal/service"
	"github.com/iWorld-y/research_assistant/app/display/internal/usecase"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/config"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/engine"
	raLogger "github.com/iWorld-y/research_assistant/app/research_assistant/pkg/logger"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	// Name 是服务的名称
	Name string = "display"
	// Version 是服务的版本号
	Version string
	// flagconf 是配置文件的路径命令行参数
	flagconf string
	// flagparallel 同时进行的研究运行数
	flagparallel int

	id, _ = os.Hostname()
)

func init() {
	flag.StringVar(&flagconf, "conf", "configs/config.yaml", "config path, eg: -conf config.yaml")
	flag.IntVar(&flagparallel, "parallel", 2, "max concurrent research runs")
}

func main() {
	flag.Parse()
	// 初始化日志记录器，包含时间戳、调用者信息、服务ID等上下文
	logger := log.With(log.NewStdLogger(os.Stdout),
		"ts", log.DefaultTimestamp,
		"caller", log.DefaultCaller,
		"service.id", id,
		"service.name", Name,
		"service.version", Version,
	)

	cfg, err := config.Load(flagconf)
	if err != nil {
		panic(err)
	}

	// 引擎内部日志
	if err := raLogger.InitLogger(cfg.Log.Level, cfg.Log.File, os.Stderr); err != nil {
		log.NewHelper(logger).Errorf("failed to init engine logger: %v", err)
	}

	app, cleanup, err := initApp(context.Background(), cfg, logger)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	if err := app.Run(); err != nil {
		panic(err)
	}
}

// initApp 手工组装依赖: data -> usecase -> service -> server
func initApp(ctx context.Context, cfg *config.Config, logger log.Logger) (*kratos.App, func(), error) {
	d, cleanup, err := data.NewData(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	var recorder engine.Recorder
	if store := d.Store(); store != nil {
		recorder = store
	}

	ucReport := usecase.NewReportUseCase(data.NewReportRepo(d, logger), data.NewRunRepo(d), logger)
	ucResearch := usecase.NewResearchUseCase(server.NewRunnerFactory(cfg, recorder, logger), flagparallel, logger)
	svc := service.NewDisplayService(ucReport, ucResearch, logger)
	hs := server.NewHTTPServer(cfg.Server, svc, logger)

	return newApp(logger, hs), cleanup, nil
}

func newApp(logger log.Logger, hs *http.Server) *kratos.App {
	return kratos.New(
		kratos.ID(id),
		kratos.Name(Name),
		kratos.Version(Version),
		kratos.Metadata(map[string]string{}),
		kratos.Logger(logger),
		kratos.Server(hs),
	)
}
