// Package extract derives a structured lead record from a chat message and
// its history. Two strategies share the Extractor contract: a synchronous
// heuristic (regex and keyword lookup) and a model-assisted extractor that
// asks the language model to fill a fixed tool schema. Fallback composes
// them.
package extract

import (
	"context"

	"github.com/sells-group/lead-pipeline/internal/model"
)

// Extractor turns a message plus conversation history into a LeadInfo.
//
// Implementations always return a non-nil record. A non-nil error means the
// strategy could not produce information; the accompanying record is then
// empty (service set to the default category) and callers should treat it
// as "no structured info available".
type Extractor interface {
	Extract(ctx context.Context, message string, history []model.ChatTurn) (*model.LeadInfo, error)
}
