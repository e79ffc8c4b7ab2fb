package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/config"
)

// 运行状态
const (
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

const schema = `
CREATE TABLE IF NOT EXISTS research_runs (
	id            UUID PRIMARY KEY,
	topic         TEXT NOT NULL,
	status        TEXT NOT NULL,
	report_path   TEXT NOT NULL DEFAULT '',
	report_title  TEXT NOT NULL DEFAULT '',
	source_count  INT NOT NULL DEFAULT 0,
	skipped_count INT NOT NULL DEFAULT 0,
	error         TEXT NOT NULL DEFAULT '',
	started_at    TIMESTAMPTZ NOT NULL,
	finished_at   TIMESTAMPTZ
)`

// Storage 运行记录存储，只记录不读取其他运行的数据
type Storage struct {
	db *sql.DB
}

// RunSummary 一次运行的结束状态
type RunSummary struct {
	Status       string
	ReportPath   string
	ReportTitle  string
	SourceCount  int
	SkippedCount int
	Error        string
}

// RunRecord 已记录的运行
type RunRecord struct {
	ID           string    `json:"id"`
	Topic        string    `json:"topic"`
	Status       string    `json:"status"`
	ReportPath   string    `json:"report_path"`
	Title        string    `json:"title"`
	SourceCount  int       `json:"source_count"`
	SkippedCount int       `json:"skipped_count"`
	Error        string    `json:"error,omitempty"`
	StartedAt    time.Time `json:"started_at"`
}

// DSN 根据配置拼接连接串
func DSN(cfg config.DBConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name)
}

// NewStorage 连接数据库并初始化表结构
func NewStorage(ctx context.Context, cfg config.DBConfig) (*Storage, error) {
	db, err := sql.Open("postgres", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Storage{db: db}, nil
}

// Close 关闭连接
func (s *Storage) Close() error {
	return s.db.Close()
}

// StartRun 记录一次运行开始
func (s *Storage) StartRun(ctx context.Context, runID, topic string, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO research_runs (id, topic, status, started_at) VALUES ($1, $2, $3, $4)`,
		runID, topic, StatusRunning, startedAt)
	return err
}

// FinishRun 记录一次运行结束
func (s *Storage) FinishRun(ctx context.Context, runID string, sum RunSummary, finishedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE research_runs
		 SET status = $2, report_path = $3, report_title = $4, source_count = $5, skipped_count = $6, error = $7, finished_at = $8
		 WHERE id = $1`,
		runID, sum.Status, sum.ReportPath, sum.ReportTitle, sum.SourceCount, sum.SkippedCount, sum.Error, finishedAt)
	return err
}

// ListRuns 按开始时间倒序列出最近的运行，供 Web 界面展示
func (s *Storage) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, topic, status, report_path, report_title, source_count, skipped_count, error, started_at
		 FROM research_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.Topic, &r.Status, &r.ReportPath, &r.Title, &r.SourceCount, &r.SkippedCount, &r.Error, &r.StartedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
