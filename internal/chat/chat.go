// Package chat runs one visitor message through the lead pipeline:
// protection, reply generation, extraction, qualification and CRM sync.
package chat

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-pipeline/internal/model"
)

// Malformed input. These are the only errors HandleChatTurn returns.
var (
	ErrEmptyMessage   = eris.New("chat: message is required")
	ErrInvalidHistory = eris.New("chat: history contains an invalid turn")

	errEmptyReply = eris.New("chat: empty reply")
)

// Stage is the terminal state a request reached.
type Stage string

const (
	StageBlocked           Stage = "blocked"
	StageLeadSyncSkipped   Stage = "lead_sync_skipped"
	StageLeadSyncAttempted Stage = "lead_sync_attempted"
)

// Request is one inbound chat turn.
type Request struct {
	Message string
	History []model.ChatTurn
	// ClientID keys rate limiting, see protection.ClientID.
	ClientID     string
	FormFields   map[string]string
	PageLoadedAt time.Time
}

// Response is the outcome of a chat turn. Reply is always set unless the
// request was blocked.
type Response struct {
	RequestID         string          `json:"requestId"`
	Reply             string          `json:"reply"`
	StructuredInfo    *model.LeadInfo `json:"structuredInfo,omitempty"`
	LeadCreated       bool            `json:"leadCreated"`
	LeadError         string          `json:"leadError,omitempty"`
	Blocked           bool            `json:"blocked,omitempty"`
	Reasons           []string        `json:"reasons,omitempty"`
	RetryAfterSeconds int             `json:"retryAfterSeconds,omitempty"`

	Stage         Stage                     `json:"-"`
	FallbackUsed  bool                      `json:"-"`
	Verdict       model.ProtectionVerdict   `json:"-"`
	Qualification model.QualificationResult `json:"-"`
	Sync          *model.CrmSyncResult      `json:"-"`
}

func validate(req Request) error {
	if strings.TrimSpace(req.Message) == "" {
		return ErrEmptyMessage
	}
	for i, t := range req.History {
		if !t.Role.Valid() {
			return eris.Wrapf(ErrInvalidHistory, "turn %d has role %q", i, t.Role)
		}
	}
	return nil
}
