package model

import "time"

// Source 一条搜索结果及其抽取、摘要后的内容
type Source struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	Snippet       string `json:"snippet,omitempty"`     // 搜索 API 给出的摘要，渲染时作为引用片段
	RawContent    string `json:"-"`                     // 搜索 API 可选返回的原始正文
	ExtractedText string `json:"-"`                     // 抽取 API 返回的正文
	Summary       string `json:"summary,omitempty"`     // LLM 生成的摘要
	ChunkCount    int    `json:"chunk_count,omitempty"` // 摘要时切成的块数
}

// Section 报告正文的一节
type Section struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

// Report 一次运行产出的研究报告，组装后不再修改
type Report struct {
	Title        string    `json:"title"`
	GeneratedAt  time.Time `json:"generated_at"`
	Introduction string    `json:"introduction"`
	Sections     []Section `json:"sections"`
	Conclusion   string    `json:"conclusion"`
	Sources      []Source  `json:"sources"`
}

// SkippedSource 因永久失败被跳过的来源
type SkippedSource struct {
	URL    string `json:"url"`
	Title  string `json:"title"`
	Stage  string `json:"stage"` // fetch / summarize
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

// RunResult 一次运行交给调用方的结果
type RunResult struct {
	RunID    string          `json:"run_id"`
	Topic    string          `json:"topic"`
	Report   *Report         `json:"report"`
	Path     string          `json:"path"`
	Skipped  []SkippedSource `json:"skipped,omitempty"`
	Warnings []string        `json:"warnings,omitempty"`
}
