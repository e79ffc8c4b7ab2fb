// Package llm 封装对话模型调用: 限流、错误分类、JSON 输出清洗
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"

	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/apierr"
	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/config"
)

// Client LLM 客户端
type Client struct {
	chatModel model.BaseChatModel
	limiter   *rate.Limiter
}

// NewChatModel 根据配置初始化 OpenAI 兼容的对话模型
func NewChatModel(ctx context.Context, cfg config.LLMConfig) (model.BaseChatModel, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		Timeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("init chat model failed: %w", err)
	}
	return chatModel, nil
}

// NewLimiter 按 RPM/QPS 创建限流器，RPM 为 0 时不限流
func NewLimiter(cfg config.ConcurrencyConfig) *rate.Limiter {
	if cfg.RPM <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	burst := cfg.QPS
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(float64(cfg.RPM)/60.0), burst)
}

// NewClient 创建客户端，limiter 为空时不限流
func NewClient(cm model.BaseChatModel, limiter *rate.Limiter) *Client {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &Client{chatModel: cm, limiter: limiter}
}

// Complete 发送 system + user 两条消息，返回模型文本
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	const op = "llm complete"
	if err := c.limiter.Wait(ctx); err != nil {
		return "", apierr.Permanent(op, err)
	}

	messages := []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(user),
	}

	resp, err := c.chatModel.Generate(ctx, messages)
	if err != nil {
		return "", classify(op, err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", apierr.Transient(op, errors.New("empty completion"))
	}
	return strings.TrimSpace(resp.Content), nil
}

// CompleteJSON 与 Complete 相同，但把输出解析到 out。
// 解析失败视为 Transient，交给调用方的重试策略重新生成。
func (c *Client) CompleteJSON(ctx context.Context, system, user string, out any) error {
	content, err := c.Complete(ctx, system, user)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(CleanJSON(content)), out); err != nil {
		return apierr.Transient("llm decode", fmt.Errorf("json unmarshal: %w", err))
	}
	return nil
}

// CleanJSON 去掉模型常见的 ```json 代码块包裹
func CleanJSON(content string) string {
	cleanContent := strings.TrimSpace(content)
	cleanContent = strings.TrimPrefix(cleanContent, "```json")
	cleanContent = strings.TrimPrefix(cleanContent, "```")
	cleanContent = strings.TrimSuffix(cleanContent, "```")
	cleanContent = strings.TrimSpace(cleanContent)
	// 模型偶尔会在 JSON 前后加说明文字
	if start, end := strings.Index(cleanContent, "{"), strings.LastIndex(cleanContent, "}"); start > 0 && end > start {
		cleanContent = cleanContent[start : end+1]
	}
	return cleanContent
}

// classify 对模型调用错误分类: 限流、超时、5xx 可重试
func classify(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return apierr.Permanent(op, err)
	}
	msg := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		strings.Contains(msg, "429"),
		strings.Contains(msg, "too many requests"),
		strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "status code: 5"),
		strings.Contains(msg, "connection reset"):
		return apierr.Transient(op, err)
	default:
		return apierr.Permanent(op, err)
	}
}
