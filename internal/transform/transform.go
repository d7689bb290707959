// Package transform maps a qualified lead record into independent CRM
// payloads for a Contact, a Deal and a Ticket.
package transform

import (
	"strings"
	"time"

	"github.com/sells-group/lead-pipeline/internal/model"
)

const (
	// DefaultAssignedTeam is the routing tag attached to every ticket.
	DefaultAssignedTeam = "sales"
	// DefaultLeadSource is recorded on contacts and deals.
	DefaultLeadSource = "Website Chat"
)

// Payloads groups the three CRM payloads built from one lead.
type Payloads struct {
	Contact ContactPayload `json:"contact"`
	Deal    DealPayload    `json:"deal"`
	Ticket  TicketPayload  `json:"ticket"`
}

// Option configures a Transformer.
type Option func(*Transformer)

// WithClock overrides the time source used for close-date estimation.
func WithClock(now func() time.Time) Option {
	return func(t *Transformer) {
		if now != nil {
			t.now = now
		}
	}
}

// WithAssignedTeam sets the ticket routing tag.
func WithAssignedTeam(team string) Option {
	return func(t *Transformer) {
		if team != "" {
			t.assignedTeam = team
		}
	}
}

// WithLeadSource sets the lead source recorded on contacts and deals.
func WithLeadSource(source string) Option {
	return func(t *Transformer) {
		if source != "" {
			t.leadSource = source
		}
	}
}

// Transformer builds CRM payloads. It is stateless apart from its options
// and safe for concurrent use.
type Transformer struct {
	now          func() time.Time
	assignedTeam string
	leadSource   string
}

// New creates a Transformer.
func New(opts ...Option) *Transformer {
	t := &Transformer{
		now:          time.Now,
		assignedTeam: DefaultAssignedTeam,
		leadSource:   DefaultLeadSource,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Transform builds the three payloads. rawMessage is the visitor's original
// message; it backs the ticket and deal descriptions when no project
// description was extracted. A nil info is treated as an empty record.
func (t *Transformer) Transform(info *model.LeadInfo, rawMessage string) Payloads {
	if info == nil {
		info = model.NewLeadInfo()
	}

	first, last := ContactName(info.FirstName, info.LastName, info.Email)
	service := info.ServiceRequested
	if service == "" {
		service = model.ServiceGeneralInquiry
	}

	description := strings.TrimSpace(info.ProjectDescription)
	if description == "" {
		description = strings.TrimSpace(rawMessage)
	}

	return Payloads{
		Contact: ContactPayload{
			FirstName:  first,
			LastName:   last,
			Email:      info.Email,
			Phone:      info.Phone,
			Company:    info.Company,
			Website:    info.Website,
			Service:    service,
			Keywords:   info.ConversationKeywords,
			LeadSource: t.leadSource,
		},
		Deal: DealPayload{
			Name:        DealName(string(info.ServiceRequested)),
			Amount:      NormalizeBudget(info.BudgetRange),
			CloseDate:   EstimateCloseDate(info.Timeline, t.now()),
			Stage:       DealStageProspecting,
			Service:     service,
			BudgetRange: info.BudgetRange,
			Timeline:    info.Timeline,
			Description: description,
			LeadSource:  t.leadSource,
		},
		Ticket: TicketPayload{
			Subject:      ticketSubject(service, first, last),
			Description:  description,
			Priority:     TicketPriorityHigh,
			Status:       TicketStatusNew,
			Origin:       TicketOriginChat,
			AssignedTeam: t.assignedTeam,
			Email:        info.Email,
			Name:         strings.TrimSpace(first + " " + last),
		},
	}
}

func ticketSubject(service model.ServiceCategory, first, last string) string {
	return "Chat lead: " + service.Label() + " (" + strings.TrimSpace(first+" "+last) + ")"
}
