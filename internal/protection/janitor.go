package protection

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/lead-pipeline/internal/store"
)

// Purge removes activity older than store.Retention.
func (g *Gate) Purge(ctx context.Context) (int, error) {
	return g.store.Purge(ctx, g.nowFunc().Add(-store.Retention))
}

// StartJanitor purges stale client activity every interval until ctx is
// done. It returns immediately; the loop runs in its own goroutine.
func (g *Gate) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := g.Purge(ctx)
				if err != nil {
					zap.L().Warn("protection: purge activity failed", zap.Error(err))
					continue
				}
				if n > 0 {
					zap.L().Debug("protection: purged activity", zap.Int("removed", n))
				}
			}
		}
	}()
}
