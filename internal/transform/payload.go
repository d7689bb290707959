package transform

import (
	"strconv"
	"time"

	"github.com/sells-group/lead-pipeline/internal/model"
)

// Fixed values for pipeline-created records.
const (
	DealStageProspecting = "Prospecting"
	TicketPriorityHigh   = "HIGH"
	TicketStatusNew      = "New"
	TicketOriginChat     = "Chat"
)

// closeDateLayout is the Salesforce date format.
const closeDateLayout = "2006-01-02"

// Associations links a payload to its Contact once the Contact exists.
type Associations struct {
	ContactID string `json:"contactId,omitempty"`
}

// ContactPayload is the CRM Contact record.
type ContactPayload struct {
	FirstName  string                `json:"firstName"`
	LastName   string                `json:"lastName"`
	Email      string                `json:"email,omitempty"`
	Phone      string                `json:"phone,omitempty"`
	Company    string                `json:"company,omitempty"`
	Website    string                `json:"website,omitempty"`
	Service    model.ServiceCategory `json:"service"`
	Keywords   string                `json:"keywords,omitempty"`
	LeadSource string                `json:"leadSource"`
}

// Fields renders the payload with Salesforce Contact field names.
func (p ContactPayload) Fields() map[string]any {
	f := map[string]any{
		"FirstName":           p.FirstName,
		"LastName":            p.LastName,
		"LeadSource":          p.LeadSource,
		"Service_Interest__c": p.Service.Label(),
	}
	setIf(f, "Email", p.Email)
	setIf(f, "Phone", p.Phone)
	setIf(f, "Company__c", p.Company)
	setIf(f, "Website__c", p.Website)
	setIf(f, "Conversation_Keywords__c", p.Keywords)
	return f
}

// DealPayload is the CRM Deal (Salesforce Opportunity) record.
type DealPayload struct {
	Name         string                `json:"name"`
	Amount       string                `json:"amount"`
	CloseDate    time.Time             `json:"closeDate"`
	Stage        string                `json:"stage"`
	Service      model.ServiceCategory `json:"service"`
	BudgetRange  string                `json:"budgetRange,omitempty"`
	Timeline     string                `json:"timeline,omitempty"`
	Description  string                `json:"description,omitempty"`
	LeadSource   string                `json:"leadSource"`
	Associations Associations          `json:"associations"`
}

// CloseDateISO returns the close date as an RFC 3339 timestamp.
func (p DealPayload) CloseDateISO() string {
	return p.CloseDate.UTC().Format(time.RFC3339)
}

// WithContact returns a copy associated with contactID.
func (p DealPayload) WithContact(contactID string) DealPayload {
	p.Associations.ContactID = contactID
	return p
}

// Fields renders the payload with Salesforce Opportunity field names. The
// contact association is a separate OpportunityContactRole record and is
// not part of the fields.
func (p DealPayload) Fields() map[string]any {
	amount, _ := strconv.ParseFloat(p.Amount, 64)
	f := map[string]any{
		"Name":       p.Name,
		"StageName":  p.Stage,
		"CloseDate":  p.CloseDate.Format(closeDateLayout),
		"Amount":     amount,
		"LeadSource": p.LeadSource,
		"Service__c": p.Service.Label(),
	}
	setIf(f, "Description", p.Description)
	setIf(f, "Budget_Range__c", p.BudgetRange)
	setIf(f, "Timeline__c", p.Timeline)
	return f
}

// TicketPayload is the CRM Ticket (Salesforce Case) record.
type TicketPayload struct {
	Subject      string       `json:"subject"`
	Description  string       `json:"description"`
	Priority     string       `json:"priority"`
	Status       string       `json:"status"`
	Origin       string       `json:"origin"`
	AssignedTeam string       `json:"assignedTeam"`
	Email        string       `json:"email,omitempty"`
	Name         string       `json:"name,omitempty"`
	Associations Associations `json:"associations"`
}

// WithContact returns a copy associated with contactID.
func (p TicketPayload) WithContact(contactID string) TicketPayload {
	p.Associations.ContactID = contactID
	return p
}

// salesforcePriority maps pipeline priorities to Case picklist values.
var salesforcePriority = map[string]string{
	TicketPriorityHigh: "High",
	"MEDIUM":           "Medium",
	"LOW":              "Low",
}

// Fields renders the payload with Salesforce Case field names. Cases carry
// the contact link directly in ContactId.
func (p TicketPayload) Fields() map[string]any {
	priority, ok := salesforcePriority[p.Priority]
	if !ok {
		priority = p.Priority
	}
	f := map[string]any{
		"Subject":          p.Subject,
		"Description":      p.Description,
		"Priority":         priority,
		"Status":           p.Status,
		"Origin":           p.Origin,
		"Assigned_Team__c": p.AssignedTeam,
	}
	setIf(f, "SuppliedEmail", p.Email)
	setIf(f, "SuppliedName", p.Name)
	setIf(f, "ContactId", p.Associations.ContactID)
	return f
}

func setIf(m map[string]any, key, value string) {
	if value != "" {
		m[key] = value
	}
}
