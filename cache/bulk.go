package cache

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// cacheOp is a single lifecycle action applied to a cache during bulk
// teardown.
type cacheOp struct {
	name string
	fn   func(ctx context.Context, c Cache) error
}

var (
	opClear = cacheOp{name: "clear", fn: func(ctx context.Context, c Cache) error { return c.Clear(ctx) }}
	opClose = cacheOp{name: "close", fn: func(_ context.Context, c Cache) error { return c.Close() }}
)

// bulkRun applies ops to every cache, in order per cache. It is strictly
// best effort: a failure, panic included, is logged at Debug level and
// never stops the sweep, so one broken entry cannot shield the rest from
// teardown.
func bulkRun(ctx context.Context, logger *zap.Logger, caches []Cache, ops ...cacheOp) {
	for _, c := range caches {
		for _, op := range ops {
			if err := runOp(ctx, op, c); err != nil {
				logger.Debug("cache teardown step failed",
					zap.String("cache", c.Name()),
					zap.String("op", op.name),
					zap.Error(err))
			}
		}
	}
}

func runOp(ctx context.Context, op cacheOp, c Cache) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in cache %s: %v", op.name, r)
		}
	}()
	return op.fn(ctx, c)
}
