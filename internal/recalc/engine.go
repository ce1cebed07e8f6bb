// Package recalc 重算引擎：把产物中的公式求值并回写缓存值。
// 生成器只写公式文本，验证读取的是缓存值，两者之间必须有一次重算。
package recalc

import (
	"context"
	"time"

	"veristat/internal/model"
)

// Engine 重算引擎。对同一产物文件的并发重算由调用方串行化。
type Engine interface {
	// Recalc 原地重算 path 指向的工作簿
	Recalc(ctx context.Context, path string) error
}

// WithRetry 失败重试包装：首次失败后重试一次，
// 仍失败则以 EngineError 上抛。重试间隔固定。
type WithRetry struct {
	Inner Engine
	Pause time.Duration
}

// Recalc 执行重算，至多两次尝试
func (r *WithRetry) Recalc(ctx context.Context, path string) error {
	err := r.Inner.Recalc(ctx, path)
	if err == nil {
		return nil
	}
	if r.Pause > 0 {
		select {
		case <-ctx.Done():
			return &model.EngineError{Attempts: 1, Err: ctx.Err()}
		case <-time.After(r.Pause):
		}
	}
	if err = r.Inner.Recalc(ctx, path); err == nil {
		return nil
	}
	return &model.EngineError{Attempts: 2, Err: err}
}
