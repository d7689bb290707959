package chat

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/lead-pipeline/internal/crmsync"
	"github.com/sells-group/lead-pipeline/internal/extract"
	"github.com/sells-group/lead-pipeline/internal/journal"
	"github.com/sells-group/lead-pipeline/internal/metrics"
	"github.com/sells-group/lead-pipeline/internal/model"
	"github.com/sells-group/lead-pipeline/internal/protection"
	"github.com/sells-group/lead-pipeline/internal/qualify"
	"github.com/sells-group/lead-pipeline/internal/transform"
)

const (
	defaultReplyTimeout   = 20 * time.Second
	defaultJournalTimeout = 5 * time.Second
)

// Deps are the collaborators of a Pipeline. Nil fields get safe defaults:
// a gate with every layer off, the fallback reply, the heuristic
// extractor, and no CRM sync or journal.
type Deps struct {
	Gate         *protection.Gate
	Replier      ReplyGenerator
	Extractor    extract.Extractor
	Transformer  *transform.Transformer
	Orchestrator *crmsync.Orchestrator
	Journal      journal.Journal
	Metrics      *metrics.Metrics
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithCompany sets the business named in the fallback reply.
func WithCompany(c Company) Option {
	return func(p *Pipeline) { p.company = c }
}

// WithReplyTimeout bounds reply generation including retries.
func WithReplyTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.replyTimeout = d
		}
	}
}

// WithJournalTimeout bounds the journal write.
func WithJournalTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.journalTimeout = d
		}
	}
}

// WithRequestIDs overrides request id generation.
func WithRequestIDs(next func() string) Option {
	return func(p *Pipeline) { p.newID = next }
}

// Pipeline handles chat turns end to end.
type Pipeline struct {
	deps           Deps
	company        Company
	replyTimeout   time.Duration
	journalTimeout time.Duration
	newID          func() string
	now            func() time.Time
}

// NewPipeline creates a Pipeline.
func NewPipeline(deps Deps, opts ...Option) *Pipeline {
	if deps.Gate == nil {
		deps.Gate = protection.NewGate(protection.Config{}, nil)
	}
	if deps.Extractor == nil {
		deps.Extractor = extract.NewHeuristic(nil)
	}
	if deps.Transformer == nil {
		deps.Transformer = transform.New()
	}
	if deps.Journal == nil {
		deps.Journal = journal.Nop{}
	}

	p := &Pipeline{
		deps:           deps,
		replyTimeout:   defaultReplyTimeout,
		journalTimeout: defaultJournalTimeout,
		newID:          uuid.NewString,
		now:            time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// HandleChatTurn runs one message through the pipeline. Only malformed
// input produces an error; every downstream failure is absorbed into the
// response so the visitor always gets a reply.
func (p *Pipeline) HandleChatTurn(ctx context.Context, req Request) (*Response, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	resp := &Response{RequestID: p.newID()}
	log := zap.L().With(
		zap.String("request_id", resp.RequestID),
		zap.String("client_id", req.ClientID),
	)

	resp.Verdict = p.deps.Gate.Evaluate(ctx, protection.Request{
		Message:      req.Message,
		FormFields:   req.FormFields,
		PageLoadedAt: req.PageLoadedAt,
	}, req.ClientID)
	p.deps.Metrics.Verdict(resp.Verdict.Outcome())

	if resp.Verdict.Blocked || !resp.Verdict.Actions.AllowReply {
		resp.Stage = StageBlocked
		resp.Blocked = true
		resp.Reasons = resp.Verdict.Reasons
		resp.RetryAfterSeconds = resp.Verdict.RetryAfterSeconds
		return resp, nil
	}

	reply, fallback := p.reply(ctx, log, req)
	resp.Reply = reply.Text
	resp.FallbackUsed = fallback

	info := p.extract(ctx, log, req)
	if reply.StructuredInfo != nil {
		merged := *reply.StructuredInfo
		merged.Normalize()
		merged.Merge(info)
		info = &merged
	}
	resp.StructuredInfo = info

	resp.Qualification = qualify.ShouldCreateLead(info)
	p.deps.Metrics.Qualification(resp.Qualification.Qualified)

	switch {
	case !resp.Qualification.Qualified:
		resp.Stage = StageLeadSyncSkipped
		return resp, nil
	case !resp.Verdict.Actions.AllowLeadCreation:
		log.Info("chat: lead creation suppressed", zap.Strings("reasons", resp.Verdict.Reasons))
		resp.Stage = StageLeadSyncSkipped
		return resp, nil
	case p.deps.Orchestrator == nil:
		log.Info("chat: qualified lead not synced, no crm configured")
		resp.Stage = StageLeadSyncSkipped
		return resp, nil
	}

	resp.Stage = StageLeadSyncAttempted
	payloads := p.deps.Transformer.Transform(info, req.Message)
	result := p.deps.Orchestrator.Sync(ctx, payloads.Contact, payloads.Deal, payloads.Ticket)
	resp.Sync = &result
	resp.LeadCreated = result.Success
	if len(result.Errors) > 0 {
		resp.LeadError = strings.Join(result.Errors, "; ")
	}

	log.Info("chat: lead sync finished",
		zap.String("outcome", string(result.Outcome())),
		zap.Bool("success", result.Success),
		zap.Int("errors", len(result.Errors)),
	)

	p.record(ctx, log, resp.RequestID, payloads.Contact, info, result)
	return resp, nil
}

// reply returns the generated reply, or the fallback reply when the
// generator is missing, fails, times out or returns nothing.
func (p *Pipeline) reply(ctx context.Context, log *zap.Logger, req Request) (*Reply, bool) {
	fallback := &Reply{Text: FallbackReply(p.company)}
	if p.deps.Replier == nil {
		p.deps.Metrics.FallbackReply()
		return fallback, true
	}

	ctx, cancel := context.WithTimeout(ctx, p.replyTimeout)
	defer cancel()

	start := time.Now()
	r, err := p.deps.Replier.Generate(ctx, req.Message, req.History)
	if err == nil && (r == nil || strings.TrimSpace(r.Text) == "") {
		err = errEmptyReply
	}
	p.deps.Metrics.Reply(time.Since(start), err)
	if err != nil {
		log.Warn("chat: reply generation failed, using fallback", zap.Error(err))
		p.deps.Metrics.FallbackReply()
		return fallback, true
	}
	return r, false
}

// extract always yields a record; extractor errors are logged.
func (p *Pipeline) extract(ctx context.Context, log *zap.Logger, req Request) *model.LeadInfo {
	info, err := p.deps.Extractor.Extract(ctx, req.Message, req.History)
	if err != nil {
		log.Warn("chat: extraction failed", zap.Error(err))
	}
	if info == nil {
		info = model.NewLeadInfo()
		info.SourceMessage = req.Message
	}
	return info
}

// record writes the journal entry. It outlives the caller's context so a
// disconnect does not lose the audit trail of an already created lead.
func (p *Pipeline) record(ctx context.Context, log *zap.Logger, requestID string, contact transform.ContactPayload, info *model.LeadInfo, result model.CrmSyncResult) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.journalTimeout)
	defer cancel()

	err := p.deps.Journal.Record(ctx, journal.Entry{
		RequestID: requestID,
		Name:      strings.TrimSpace(contact.FirstName + " " + contact.LastName),
		Email:     info.Email,
		Service:   info.ServiceRequested,
		Result:    result,
		At:        p.now(),
	})
	if err != nil {
		log.Warn("chat: journal write failed", zap.Error(err))
	}
}
