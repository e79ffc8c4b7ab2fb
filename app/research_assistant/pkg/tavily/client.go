package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/apierr"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/extract"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/search"
)

const defaultBaseURL = "https://api.tavily.com"

// Client Tavily API 客户端，同时提供搜索与正文抽取
type Client struct {
	apiKey       string
	baseURL      string
	client       *http.Client
	extractDepth string
}

// Option 客户端选项
type Option func(*Client)

// WithBaseURL 覆盖 API 地址，空字符串忽略
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient 指定 http.Client，nil 忽略
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithExtractDepth 抽取深度 basic 或 advanced，空字符串忽略
func WithExtractDepth(depth string) Option {
	return func(c *Client) {
		if depth != "" {
			c.extractDepth = depth
		}
	}
}

// NewClient 创建一个新的 Tavily 客户端
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:       apiKey,
		baseURL:      defaultBaseURL,
		client:       http.DefaultClient,
		extractDepth: "basic",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ensure Client implements search.Searcher and extract.Extractor
var (
	_ search.Searcher   = (*Client)(nil)
	_ extract.Extractor = (*Client)(nil)
)

// SearchRequest Tavily 搜索请求参数
type SearchRequest struct {
	Query             string   `json:"query"`
	SearchDepth       string   `json:"search_depth,omitempty"` // basic or advanced
	Topic             string   `json:"topic,omitempty"`        // general or news
	MaxResults        int      `json:"max_results,omitempty"`
	IncludeRawContent bool     `json:"include_raw_content,omitempty"`
	IncludeAnswer     bool     `json:"include_answer,omitempty"`
	IncludeDomains    []string `json:"include_domains,omitempty"`
	ExcludeDomains    []string `json:"exclude_domains,omitempty"`
}

// SearchResponse Tavily 搜索响应
type SearchResponse struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
	Answer  string         `json:"answer"`
}

// SearchResult 单个搜索结果
type SearchResult struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	RawContent    string  `json:"raw_content"`
	Score         float64 `json:"score"`
	PublishedDate string  `json:"published_date"`
}

// ExtractRequest Tavily 抽取请求参数
type ExtractRequest struct {
	URLs         []string `json:"urls"`
	ExtractDepth string   `json:"extract_depth,omitempty"` // basic or advanced
	Format       string   `json:"format,omitempty"`        // markdown or text
}

// ExtractResponse Tavily 抽取响应
type ExtractResponse struct {
	Results       []ExtractResult `json:"results"`
	FailedResults []FailedResult  `json:"failed_results"`
}

// ExtractResult 单个抽取成功的页面
type ExtractResult struct {
	URL        string `json:"url"`
	RawContent string `json:"raw_content"`
}

// FailedResult 抽取失败的页面
type FailedResult struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// Search implements search.Searcher
func (c *Client) Search(ctx context.Context, req *search.Request) (*search.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	tavilyReq := SearchRequest{
		Query:             req.Query,
		SearchDepth:       string(req.Depth),
		MaxResults:        req.MaxResults,
		IncludeRawContent: req.IncludeRawContent,
	}

	resp, err := c.doSearch(ctx, tavilyReq)
	if err != nil {
		return nil, err
	}

	results := make([]search.Result, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, search.Result{
			Title:         r.Title,
			URL:           r.URL,
			Content:       r.Content,
			RawContent:    r.RawContent,
			Score:         r.Score,
			PublishedDate: r.PublishedDate,
		})
	}

	return &search.Response{Results: results}, nil
}

// doSearch 执行搜索 (Internal)
func (c *Client) doSearch(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	// 设置默认值
	if req.SearchDepth == "" {
		req.SearchDepth = "basic"
	}
	if req.MaxResults == 0 {
		req.MaxResults = 5
	}
	if req.Topic == "" {
		req.Topic = "general"
	}

	var searchResp SearchResponse
	if err := c.post(ctx, "tavily search", "/search", req, &searchResp); err != nil {
		return nil, err
	}
	return &searchResp, nil
}

// Extract implements extract.Extractor
func (c *Client) Extract(ctx context.Context, req *extract.Request) (string, error) {
	const op = "tavily extract"
	if err := req.Validate(); err != nil {
		return "", err
	}
	format := req.Format
	if format == "" {
		format = extract.FormatMarkdown
	}

	var resp ExtractResponse
	err := c.post(ctx, op, "/extract", ExtractRequest{
		URLs:         []string{req.URL},
		ExtractDepth: c.extractDepth,
		Format:       string(format),
	}, &resp)
	if err != nil {
		return "", err
	}

	for _, r := range resp.Results {
		if content := strings.TrimSpace(r.RawContent); content != "" {
			return content, nil
		}
	}
	if len(resp.FailedResults) > 0 {
		return "", apierr.Permanent(op, fmt.Errorf("unsupported site %s: %s", req.URL, resp.FailedResults[0].Error))
	}
	return "", apierr.Permanent(op, errors.New("empty extraction result for "+req.URL))
}

// post 发送 JSON 请求并解析响应，错误按 apierr 分类
func (c *Client) post(ctx context.Context, op, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return apierr.Validation(op, fmt.Errorf("marshal request failed: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return apierr.Validation(op, fmt.Errorf("create request failed: %w", err))
	}

	httpReq.Header.Add("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Add("Content-Type", "application/json")

	res, err := c.client.Do(httpReq)
	if err != nil {
		return apierr.FromTransport(op, fmt.Errorf("request failed: %w", err))
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return apierr.Transient(op, fmt.Errorf("read body failed: %w", err))
	}

	if res.StatusCode != http.StatusOK {
		return apierr.FromStatus(op, res.StatusCode, string(data))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return apierr.Permanent(op, fmt.Errorf("unmarshal response failed: %w", err))
	}
	return nil
}
