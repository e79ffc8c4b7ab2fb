// Package searxng 自建 SearXNG 实例的搜索客户端
package searxng

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/apierr"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/logger"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/search"
)

const userAgent = "Mozilla/5.0 (compatible; research_assistant/1.0)"

// Client SearXNG JSON API 客户端
type Client struct {
	endpoint   string
	categories string
	language   string
	hc         *http.Client
}

// Option 客户端选项
type Option func(*Client)

// WithTimeout 请求超时，<=0 时忽略
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.hc = &http.Client{Timeout: d}
		}
	}
}

// WithHTTPClient 替换底层 http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.hc = hc
		}
	}
}

// WithCategories 搜索分类，逗号分隔
func WithCategories(categories string) Option {
	return func(c *Client) {
		if categories != "" {
			c.categories = categories
		}
	}
}

// WithLanguage 结果语言，如 en、zh-CN
func WithLanguage(lang string) Option {
	return func(c *Client) {
		c.language = lang
	}
}

// NewClient baseURL 为实例根地址，请求发往 <baseURL>/search
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		endpoint:   strings.TrimRight(baseURL, "/") + "/search",
		categories: "general",
		hc:         &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ search.Searcher = (*Client)(nil)

type response struct {
	Query               string     `json:"query"`
	Results             []result   `json:"results"`
	UnresponsiveEngines [][]string `json:"unresponsive_engines"`
}

type result struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	PublishedDate string  `json:"publishedDate"`
	Score         float64 `json:"score"`
}

// Search 执行搜索。SearXNG 没有搜索深度的概念，也不返回原文
func (c *Client) Search(ctx context.Context, req *search.Request) (*search.Response, error) {
	const op = "searxng search"
	if err := req.Validate(); err != nil {
		return nil, err
	}

	u, err := url.Parse(c.endpoint)
	if err != nil || u.Host == "" {
		return nil, apierr.Validation(op, fmt.Errorf("invalid base URL %q", c.endpoint))
	}
	q := url.Values{}
	q.Set("q", req.Query)
	q.Set("format", "json")
	q.Set("categories", c.categories)
	if c.language != "" {
		q.Set("language", c.language)
	}
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, apierr.Validation(op, err)
	}
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return nil, apierr.FromTransport(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, apierr.FromStatus(op, resp.StatusCode, string(body))
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, apierr.Permanent(op, fmt.Errorf("decode response: %w", err))
	}

	// 所有引擎都超时或被限流时，空结果可以重试
	if len(body.Results) == 0 && len(body.UnresponsiveEngines) > 0 {
		return nil, apierr.Transient(op, errors.New("all engines unresponsive: "+unresponsive(body.UnresponsiveEngines)))
	}
	if len(body.UnresponsiveEngines) > 0 {
		logger.Log.Debugf("searxng: unresponsive engines %s", unresponsive(body.UnresponsiveEngines))
	}

	return &search.Response{Results: convert(body.Results, req.MaxResults)}, nil
}

func convert(in []result, limit int) []search.Result {
	out := make([]search.Result, 0, len(in))
	for _, r := range in {
		if limit > 0 && len(out) >= limit {
			break
		}
		if r.URL == "" {
			continue
		}
		out = append(out, search.Result{
			Title:         r.Title,
			URL:           r.URL,
			Content:       r.Content,
			Score:         r.Score,
			PublishedDate: r.PublishedDate,
		})
	}
	return out
}

func unresponsive(engines [][]string) string {
	names := make([]string, 0, len(engines))
	for _, e := range engines {
		names = append(names, strings.Join(e, ": "))
	}
	return strings.Join(names, ", ")
}
