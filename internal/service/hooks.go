package service

import (
	"context"

	"coinforge/pkg/logger"

	"go.uber.org/zap"
)

// runHooks executes post-commit side effects (notifications, badge checks,
// activity fan-out). Each hook is fault-isolated: a panic is logged and the
// remaining hooks still run. Nothing here can fail the operation that
// already committed.
func runHooks(ctx context.Context, hooks ...func(context.Context)) {
	for _, h := range hooks {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Logger().Error("post-commit hook panicked", zap.Any("panic", rec))
				}
			}()
			h(ctx)
		}()
	}
}
