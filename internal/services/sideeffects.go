package services

import (
	"context"

	"go.uber.org/zap"
)

// sideEffect is a best-effort post-commit task. Effects are independent: each
// failure is logged and skipped, never surfaced to the primary response.
type sideEffect struct {
	name string
	run  func(ctx context.Context) error
}

func runSideEffects(ctx context.Context, lg *zap.SugaredLogger, effects []sideEffect) {
	for _, e := range effects {
		if err := e.run(ctx); err != nil {
			lg.Warnw("side effect failed", "effect", e.name, "error", err)
		}
	}
}
