// Package retry 提供带退避的有限重试策略
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/iWorld-y/research_assistant/app/research_assistant/pkg/apierr"
)

// Policy 重试策略: 最多尝试 MaxAttempts 次，只重试 Transient 错误
type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// OnRetry 每次准备重试时回调，可为空
	OnRetry func(err error, wait time.Duration)
}

// DefaultPolicy 默认策略
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     10 * time.Second,
	}
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialBackoff
	if eb.InitialInterval <= 0 {
		eb.InitialInterval = time.Millisecond
	}
	eb.MaxInterval = p.MaxBackoff
	if eb.MaxInterval < eb.InitialInterval {
		eb.MaxInterval = eb.InitialInterval
	}
	eb.MaxElapsedTime = 0
	eb.RandomizationFactor = 0

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(attempts-1)), ctx)
}

// Do 执行 op，Transient 错误按策略退避重试，其余错误立即返回
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	wrapped := func() error {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if apierr.KindOf(err) != apierr.KindTransient {
			return backoff.Permanent(err)
		}
		return err
	}

	var notify backoff.Notify
	if p.OnRetry != nil {
		notify = p.OnRetry
	}
	return backoff.RetryNotify(wrapped, p.backOff(ctx), notify)
}

// DoValue 与 Do 相同，但返回 op 产生的值
func DoValue[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := p.Do(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
