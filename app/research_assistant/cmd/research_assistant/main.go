package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iWorld-y/research_assistant/app/research_assistant/internal/ui"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/config"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/engine"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/logger"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/report"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/storage"
)

func main() {
	if err := rootCMD().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCMD() *cobra.Command {
	var (
		configPath string
		topic      string
		preview    bool
	)

	root := &cobra.Command{
		Use:           "research_assistant [topic]",
		Short:         "Search the web on a topic and write a cited markdown report",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			console := ui.NewConsole(cmd.OutOrStdout())

			if topic == "" {
				topic = strings.Join(args, " ")
			}
			if strings.TrimSpace(topic) == "" {
				t, err := promptTopic(cmd.InOrStdin(), cmd.OutOrStdout())
				if err != nil {
					console.Error("Failed to read topic: %v", err)
					return err
				}
				topic = t
			}

			err := research(cmd.Context(), configPath, topic, preview, console)
			if err != nil {
				console.Error("%v", err)
			}
			return err
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "config file path")
	root.Flags().StringVarP(&topic, "topic", "t", "", "research topic (prompted when empty)")
	root.Flags().BoolVar(&preview, "preview", true, "render the report in the terminal when done")

	root.AddCommand(reportsCMD(&configPath), historyCMD(&configPath))
	return root
}

func promptTopic(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Enter your research topic: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func research(ctx context.Context, configPath, topic string, preview bool, console *ui.Console) error {
	// 1. 加载配置
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("无法加载配置: %w", err)
	}

	// 2. 初始化日志
	if err := logger.InitLogger(cfg.Log.Level, cfg.Log.File, os.Stderr); err != nil {
		return fmt.Errorf("无法初始化日志: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. 运行记录数据库，可选
	var recorder engine.Recorder
	if cfg.DB.Host != "" {
		store, err := storage.NewStorage(ctx, cfg.DB)
		if err != nil {
			logger.Log.Errorf("无法连接数据库: %v. 将仅生成报告文件。", err)
		} else {
			defer store.Close()
			recorder = store
			logger.Log.Info("已成功连接到数据库")
		}
	}

	eng, err := engine.NewFromConfig(ctx, cfg, recorder)
	if err != nil {
		return err
	}

	console.Info("Researching: %s", topic)
	res, err := eng.Run(ctx, engine.RunOptions{
		Topic:            topic,
		ProgressCallback: console.Progress,
	})
	console.Summary(res)
	if err != nil {
		return err
	}

	if preview {
		data, err := os.ReadFile(res.Path)
		if err != nil {
			return err
		}
		out, err := ui.Preview(string(data), 100)
		if err != nil {
			console.Warn("Preview unavailable: %v", err)
			return nil
		}
		fmt.Print(out)
	}
	return nil
}

func reportsCMD(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reports",
		Short: "List saved reports, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadLenient(*configPath)
			if err != nil {
				return err
			}
			files, err := report.List(cfg.Output.Dir)
			if err != nil {
				return err
			}
			console := ui.NewConsole(cmd.OutOrStdout())
			if len(files) == 0 {
				console.Warn("No reports in %s", cfg.Output.Dir)
				return nil
			}
			for _, f := range files {
				console.Info("%s  %s  %d bytes", f.ModTime.Format(report.TimestampLayout), f.Name, f.Size)
			}
			return nil
		},
	}
}

func historyCMD(configPath *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs recorded in the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadLenient(*configPath)
			if err != nil {
				return err
			}
			if cfg.DB.Host == "" {
				return errors.New("database is not configured")
			}
			store, err := storage.NewStorage(cmd.Context(), cfg.DB)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			console := ui.NewConsole(cmd.OutOrStdout())
			for _, r := range runs {
				line := fmt.Sprintf("%s  %-6s  %s  sources=%d skipped=%d", r.StartedAt.Format(report.TimestampLayout), r.Status, r.Topic, r.SourceCount, r.SkippedCount)
				switch r.Status {
				case storage.StatusFailed:
					console.Error("%s  %s", line, r.Error)
				case storage.StatusDone:
					console.Success("%s  %s", line, r.ReportPath)
				default:
					console.Info("%s", line)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	return cmd
}

// loadLenient 只读子命令不需要 API Key
func loadLenient(path string) (*config.Config, error) {
	cfg, err := config.LoadConfig(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}
