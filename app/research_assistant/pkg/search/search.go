package search

import (
	"context"
	"errors"
	"strings"

	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/apierr"
)

// Depth 搜索深度
type Depth string

const (
	DepthBasic    Depth = "basic"
	DepthAdvanced Depth = "advanced"
)

// Searcher 定义通用的搜索接口
type Searcher interface {
	Search(ctx context.Context, req *Request) (*Response, error)
}

// Request 通用搜索请求
type Request struct {
	Query             string
	Depth             Depth
	MaxResults        int
	IncludeRawContent bool
}

// Validate 检查请求，主题为空返回 Validation 错误
func (r *Request) Validate() error {
	if r == nil || strings.TrimSpace(r.Query) == "" {
		return apierr.Validation("search", errors.New("empty query"))
	}
	switch r.Depth {
	case "", DepthBasic, DepthAdvanced:
	default:
		return apierr.Validation("search", errors.New("unknown search depth: "+string(r.Depth)))
	}
	if r.MaxResults < 0 {
		return apierr.Validation("search", errors.New("max results must not be negative"))
	}
	return nil
}

// Response 通用搜索响应，结果按相关度排序
type Response struct {
	Results []Result
}

// Result 单条搜索结果
type Result struct {
	Title         string
	URL           string
	Content       string // snippet
	RawContent    string
	Score         float64
	PublishedDate string
}
