package data

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/config"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/storage"
)

// Data 数据源: 报告目录与可选的运行记录数据库
type Data struct {
	dir   string
	store *storage.Storage
}

// NewData 打开数据源。数据库连接失败时只记日志，报告目录仍可用
func NewData(ctx context.Context, c *config.Config, logger log.Logger) (*Data, func(), error) {
	helper := log.NewHelper(logger)
	d := &Data{dir: c.Output.Dir}

	if c.DB.Host != "" {
		store, err := storage.NewStorage(ctx, c.DB)
		if err != nil {
			helper.Errorf("failed to connect database, run history disabled: %v", err)
		} else {
			d.store = store
		}
	}

	cleanup := func() {
		helper.Info("closing the data resources")
		if d.store != nil {
			d.store.Close()
		}
	}
	return d, cleanup, nil
}

// Store 运行记录存储，未启用时为 nil
func (d *Data) Store() *storage.Storage {
	return d.store
}
