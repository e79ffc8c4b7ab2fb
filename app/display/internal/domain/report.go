package domain

import "time"

// Source 报告引用的来源
type Source struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Excerpt string `json:"excerpt,omitempty"`
}

// ReportSummary 报告文件摘要信息
type ReportSummary struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// ReportDetail 报告详情，Markdown 为文件原文
type ReportDetail struct {
	Name        string    `json:"name"`
	Title       string    `json:"title"`
	GeneratedAt time.Time `json:"generated_at"`
	Sections    []string  `json:"sections"`
	Sources     []Source  `json:"sources"`
	Markdown    string    `json:"markdown"`
}

// SkippedSource 运行中被跳过的来源
type SkippedSource struct {
	URL    string `json:"url"`
	Stage  string `json:"stage"`
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

// ResearchResult 一次研究运行的结果
type ResearchResult struct {
	RunID    string          `json:"run_id"`
	Title    string          `json:"title"`
	File     string          `json:"file"`
	Markdown string          `json:"markdown"`
	Skipped  []SkippedSource `json:"skipped"`
	Warnings []string        `json:"warnings"`
}

// Run 数据库中的运行记录
type Run struct {
	ID           string    `json:"id"`
	Topic        string    `json:"topic"`
	Status       string    `json:"status"`
	Title        string    `json:"title"`
	File         string    `json:"file"`
	SourceCount  int       `json:"source_count"`
	SkippedCount int       `json:"skipped_count"`
	Error        string    `json:"error,omitempty"`
	StartedAt    time.Time `json:"started_at"`
}
