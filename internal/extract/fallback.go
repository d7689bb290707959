package extract

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/lead-pipeline/internal/model"
)

// Fallback tries Primary and falls back to Secondary when Primary errors
// or finds nothing. When Primary succeeds, Secondary's fields fill the
// gaps it left.
type Fallback struct {
	Primary   Extractor
	Secondary Extractor
}

// NewFallback composes two extractors. A nil primary makes the fallback
// behave exactly like secondary.
func NewFallback(primary, secondary Extractor) *Fallback {
	return &Fallback{Primary: primary, Secondary: secondary}
}

// Extract implements Extractor.
func (f *Fallback) Extract(ctx context.Context, message string, history []model.ChatTurn) (*model.LeadInfo, error) {
	if f.Primary == nil {
		return f.Secondary.Extract(ctx, message, history)
	}

	primary, err := f.Primary.Extract(ctx, message, history)
	if err != nil || primary.IsEmpty() {
		if err != nil {
			zap.L().Warn("extract: primary extractor failed, using fallback", zap.Error(err))
		}
		return f.Secondary.Extract(ctx, message, history)
	}

	secondary, err := f.Secondary.Extract(ctx, message, history)
	if err == nil {
		primary.Merge(secondary)
	}
	return primary, nil
}
