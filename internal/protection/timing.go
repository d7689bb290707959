package protection

import (
	"fmt"
	"time"
)

// checkSubmitDelay flags a message sent too soon after the page loaded.
func checkSubmitDelay(minDelay time.Duration, pageLoadedAt, now time.Time) (finding, bool) {
	if pageLoadedAt.IsZero() {
		return finding{}, false
	}
	elapsed := now.Sub(pageLoadedAt)
	if elapsed >= minDelay {
		return finding{}, false
	}
	return finding{
		layer:      "timing",
		reason:     fmt.Sprintf("submitted %.1fs after page load (min %.1fs)", elapsed.Seconds(), minDelay.Seconds()),
		confidence: ConfidenceHigh,
	}, true
}

// checkMessageInterval flags a client with an earlier message less than
// MinMessageInterval ago. recent is counted before the current request is
// recorded.
func (g *Gate) checkMessageInterval(recent int) (finding, bool) {
	if recent <= 0 {
		return finding{}, false
	}
	return finding{
		layer:      "timing",
		reason:     fmt.Sprintf("messages less than %.1fs apart", g.cfg.MinMessageInterval.Seconds()),
		confidence: ConfidenceHigh,
	}, true
}
