// Package protection screens inbound chat messages for bots and abuse.
//
// A Gate runs four independently toggled layers: rate limiting, honeypot
// fields, timing heuristics and content patterns. Only rate limiting can
// block a request outright; the other layers mark it suspicious, which
// keeps the reply flowing but suppresses lead creation.
package protection

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/lead-pipeline/internal/model"
	"github.com/sells-group/lead-pipeline/internal/store"
)

// Confidence grades how strongly a finding indicates a bot.
type Confidence int

const (
	ConfidenceLow Confidence = iota
	ConfidenceHigh
)

// finding is a single suspicion raised by a layer.
type finding struct {
	layer      string
	reason     string
	confidence Confidence
}

// Request is the part of an inbound chat request the gate inspects.
type Request struct {
	Message string
	// FormFields holds hidden form inputs, keyed by field name.
	FormFields map[string]string
	// PageLoadedAt is when the chat page was rendered; zero if unknown.
	PageLoadedAt time.Time
	// ReceivedAt defaults to the gate clock when zero.
	ReceivedAt time.Time
}

// Gate evaluates requests against the enabled protection layers.
type Gate struct {
	cfg      Config
	store    store.ClientActivityStore
	patterns *patternDetector
	nowFunc  func() time.Time
}

// NewGate creates a Gate. Zero thresholds in cfg fall back to defaults.
func NewGate(cfg Config, st store.ClientActivityStore) *Gate {
	cfg = cfg.withDefaults()
	if st == nil {
		st = store.NewMemory()
	}
	return &Gate{
		cfg:      cfg,
		store:    st,
		patterns: newPatternDetector(cfg),
		nowFunc:  time.Now,
	}
}

// Config returns the gate's effective configuration.
func (g *Gate) Config() Config {
	return g.cfg
}

// Evaluate runs every enabled layer and returns the verdict. It never
// fails: store errors are logged and the affected check is skipped.
func (g *Gate) Evaluate(ctx context.Context, req Request, clientID string) model.ProtectionVerdict {
	now := req.ReceivedAt
	if now.IsZero() {
		now = g.nowFunc()
	}

	var findings []finding
	adm, err := g.admit(ctx, clientID, now)
	switch {
	case err != nil:
		zap.L().Warn("protection: activity check failed, allowing request",
			zap.String("client_id", clientID),
			zap.Error(err),
		)
	case adm.blocked:
		zap.L().Warn("protection: rate limit exceeded",
			zap.String("client_id", clientID),
			zap.String("reason", adm.block.reason),
			zap.Int("retry_after_seconds", adm.block.retryAfter),
		)
		return blockedVerdict(adm.block)
	default:
		if f, ok := g.checkMessageInterval(adm.recent); ok {
			findings = append(findings, f)
		}
	}

	if g.cfg.HoneypotEnabled {
		if f, ok := checkHoneypot(g.cfg.HoneypotFields, req.FormFields); ok {
			findings = append(findings, f)
		}
	}
	if g.cfg.TimingEnabled {
		if f, ok := checkSubmitDelay(g.cfg.MinSubmitDelay, req.PageLoadedAt, now); ok {
			findings = append(findings, f)
		}
	}
	if g.cfg.PatternEnabled {
		findings = append(findings, g.patterns.detect(req.Message)...)
	}

	v := verdictFromFindings(findings)
	if v.Suspicious {
		zap.L().Info("protection: suspicious request",
			zap.String("client_id", clientID),
			zap.Strings("reasons", v.Reasons),
			zap.Bool("require_verification", v.Actions.RequireVerification),
		)
	}
	return v
}

func blockedVerdict(b rateBlock) model.ProtectionVerdict {
	return model.ProtectionVerdict{
		Allowed:           false,
		Blocked:           true,
		Reasons:           []string{b.reason},
		RetryAfterSeconds: b.retryAfter,
		Actions: model.VerdictActions{
			AllowReply:        false,
			AllowLeadCreation: false,
		},
	}
}

func verdictFromFindings(findings []finding) model.ProtectionVerdict {
	v := model.ProtectionVerdict{
		Allowed: true,
		Actions: model.VerdictActions{
			AllowReply:        true,
			AllowLeadCreation: true,
		},
	}
	for _, f := range findings {
		v.Suspicious = true
		v.Reasons = append(v.Reasons, f.layer+": "+f.reason)
		if f.confidence == ConfidenceHigh {
			v.Actions.RequireVerification = true
		}
	}
	if v.Suspicious {
		v.Actions.AllowLeadCreation = false
	}
	return v
}
