package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"

	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/apierr"
)

// Format 抽取结果格式
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// Extractor 定义通用的正文抽取接口。
// 站点不支持时返回 Permanent 错误，网络或限流问题返回 Transient 错误。
type Extractor interface {
	Extract(ctx context.Context, req *Request) (string, error)
}

// Request 抽取请求
type Request struct {
	URL    string
	Format Format
}

// Validate 检查请求
func (r *Request) Validate() error {
	if r == nil || strings.TrimSpace(r.URL) == "" {
		return apierr.Validation("extract", errors.New("empty url"))
	}
	switch r.Format {
	case "", FormatMarkdown, FormatText:
	default:
		return apierr.Validation("extract", fmt.Errorf("unknown format: %s", r.Format))
	}
	return nil
}

// ReadabilityExtractor 直接抓取网页并用 readability 提取正文，作为抽取 API 的最后降级手段。
// 只能输出纯文本，忽略请求中的 Format。
type ReadabilityExtractor struct {
	client *http.Client
}

// NewReadabilityExtractor 创建本地抽取器，timeout 为 0 时使用 30 秒
func NewReadabilityExtractor(timeout time.Duration) *ReadabilityExtractor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ReadabilityExtractor{client: &http.Client{Timeout: timeout}}
}

// Ensure ReadabilityExtractor implements Extractor
var _ Extractor = (*ReadabilityExtractor)(nil)

// Extract implements Extractor
func (e *ReadabilityExtractor) Extract(ctx context.Context, req *Request) (string, error) {
	const op = "readability extract"
	if err := req.Validate(); err != nil {
		return "", err
	}
	pageURL, err := url.Parse(req.URL)
	if err != nil {
		return "", apierr.Validation(op, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return "", apierr.Validation(op, fmt.Errorf("create request failed: %w", err))
	}
	// 添加 User-Agent 避免被简单的反爬虫策略拦截
	httpReq.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	res, err := e.client.Do(httpReq)
	if err != nil {
		return "", apierr.FromTransport(op, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", apierr.FromStatus(op, res.StatusCode, http.StatusText(res.StatusCode))
	}
	if ct := res.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return "", apierr.Permanent(op, fmt.Errorf("unsupported content type %q", ct))
	}

	article, err := readability.FromReader(res.Body, pageURL)
	if err != nil {
		return "", apierr.Permanent(op, fmt.Errorf("parse article failed: %w", err))
	}
	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return "", apierr.Permanent(op, errors.New("no readable content"))
	}
	return text, nil
}
