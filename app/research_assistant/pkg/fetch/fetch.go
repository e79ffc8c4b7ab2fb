// Package fetch 为单个来源取得正文: 抽取 API 主模式 -> 降级模式 -> 本地 readability
package fetch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/apierr"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/extract"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/logger"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/model"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/retry"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/urlnorm"
)

// Options Fetcher 配置
type Options struct {
	Format         extract.Format
	FallbackFormat extract.Format
	// MinContent 搜索结果自带原文长度达到该值时直接使用
	MinContent int
	Policy     retry.Policy
}

// Fetcher 内容抓取器
type Fetcher struct {
	primary  extract.Extractor
	fallback extract.Extractor // 可为空
	opts     Options
}

// New 创建 Fetcher，fallback 为空时不启用本地抓取
func New(primary, fallback extract.Extractor, opts Options) *Fetcher {
	if opts.Format == "" {
		opts.Format = extract.FormatMarkdown
	}
	if opts.FallbackFormat == "" {
		opts.FallbackFormat = extract.FormatText
	}
	return &Fetcher{primary: primary, fallback: fallback, opts: opts}
}

// attempt 一种抽取方式
type attempt struct {
	name      string
	extractor extract.Extractor
	format    extract.Format
}

// Fetch 返回来源正文与规范化后的 URL。
// 所有方式都失败时返回 Permanent 错误 (URL 非法时返回 Validation 错误)，调用方应跳过该来源。
func (f *Fetcher) Fetch(ctx context.Context, src *model.Source) (text string, normalized string, err error) {
	const op = "fetch"
	normalized, err = urlnorm.Normalize(src.URL)
	if err != nil {
		return "", "", err
	}

	if raw := strings.TrimSpace(src.RawContent); raw != "" && f.opts.MinContent > 0 && len(raw) >= f.opts.MinContent {
		logger.Log.Debugf("使用搜索结果自带原文 [%s] (%d 字节)", normalized, len(raw))
		return raw, normalized, nil
	}

	attempts := []attempt{
		{name: "primary", extractor: f.primary, format: f.opts.Format},
	}
	if f.opts.FallbackFormat != f.opts.Format {
		attempts = append(attempts, attempt{name: "fallback-format", extractor: f.primary, format: f.opts.FallbackFormat})
	}
	if f.fallback != nil {
		attempts = append(attempts, attempt{name: "readability", extractor: f.fallback, format: extract.FormatText})
	}

	var errs []error
	for _, a := range attempts {
		req := &extract.Request{URL: normalized, Format: a.format}
		policy := f.opts.Policy
		policy.OnRetry = func(err error, wait time.Duration) {
			logger.Log.Warnf("抽取失败，%v 后重试 [%s/%s]: %v", wait, a.name, normalized, err)
		}
		content, err := retry.DoValue(ctx, policy, func(ctx context.Context) (string, error) {
			return a.extractor.Extract(ctx, req)
		})

		switch apierr.KindOf(err) {
		case apierr.KindUnknown:
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", a.name, err))
				continue
			}
			if strings.TrimSpace(content) == "" {
				errs = append(errs, fmt.Errorf("%s: empty content", a.name))
				continue
			}
			return content, normalized, nil
		case apierr.KindValidation:
			return "", normalized, err
		case apierr.KindTransient, apierr.KindPermanent, apierr.KindTokenBudgetExceeded, apierr.KindFatal:
			if ctx.Err() != nil {
				return "", normalized, apierr.Permanent(op, ctx.Err())
			}
			logger.Log.Warnf("抽取方式 [%s] 失败 [%s]: %v", a.name, normalized, err)
			errs = append(errs, fmt.Errorf("%s: %w", a.name, err))
		}
	}

	return "", normalized, apierr.Permanent(op, errors.Join(errs...))
}
