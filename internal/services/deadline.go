package services

import (
	"context"
	"time"

	"github.com/kiwimarket/backend-go/internal/metrics"
)

// 外部依赖标签
const (
	depEmbedding  = "embedding"
	depIndex      = "index"
	depGeneration = "generation"
)

// callContext 为单次外部调用设置超时，timeout<=0时只继承父context
func callContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// external 执行一次带超时的外部调用并记录耗时
func external(ctx context.Context, timeout time.Duration, dependency, operation string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	callCtx, cancel := callContext(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := fn(callCtx)
	metrics.ObserveExternal(dependency, operation, start)
	return err
}
