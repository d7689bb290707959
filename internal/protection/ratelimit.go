package protection

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sells-group/lead-pipeline/internal/store"
)

type rateBlock struct {
	reason     string
	retryAfter int
}

type rateWindow struct {
	name     string
	span     time.Duration
	limit    int
	cooldown time.Duration
}

func (g *Gate) windows() []rateWindow {
	return []rateWindow{
		{name: "minute", span: time.Minute, limit: g.cfg.PerMinute, cooldown: g.cfg.MinuteCooldown},
		{name: "hour", span: time.Hour, limit: g.cfg.PerHour, cooldown: g.cfg.HourCooldown},
		{name: "day", span: 24 * time.Hour, limit: g.cfg.PerDay, cooldown: g.cfg.DayCooldown},
	}
}

// admission is what the gate learned from one atomic store call.
type admission struct {
	block   rateBlock
	blocked bool
	// recent counts earlier messages inside MinMessageInterval; -1 when
	// timing is disabled.
	recent int
}

// admit checks the minute, hour and day ceilings in order and, when none
// has been reached, records the request in the same store call. The
// message-interval count rides along so timing sees the same snapshot.
func (g *Gate) admit(ctx context.Context, clientID string, now time.Time) (admission, error) {
	var (
		windows []store.Window
		rate    []rateWindow
	)
	if g.cfg.RateLimitEnabled {
		rate = g.windows()
		for _, w := range rate {
			windows = append(windows, store.Window{Since: now.Add(-w.span), Limit: w.limit})
		}
	}
	interval := -1
	if g.cfg.TimingEnabled {
		interval = len(windows)
		windows = append(windows, store.Window{Since: now.Add(-g.cfg.MinMessageInterval)})
	}

	res := admission{recent: -1}
	if len(windows) == 0 {
		return res, nil
	}

	a, err := g.store.Admit(ctx, clientID, now, windows)
	if err != nil {
		return res, err
	}
	if !a.Admitted() {
		w := rate[a.Rejected]
		res.blocked = true
		res.block = rateBlock{
			reason:     fmt.Sprintf("rate limit: more than %d requests per %s", w.limit, w.name),
			retryAfter: int(math.Ceil(w.cooldown.Seconds())),
		}
		return res, nil
	}
	if interval >= 0 {
		res.recent = a.Counts[interval]
	}
	return res, nil
}
