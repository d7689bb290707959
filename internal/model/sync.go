package model

// CrmObject is a record created in the CRM.
type CrmObject struct {
	Type       string         `json:"type"`
	ID         string         `json:"id"`
	Properties map[string]any `json:"properties,omitempty"`
}

// SyncOutcome classifies how much of a lead made it into the CRM.
type SyncOutcome string

const (
	SyncNone        SyncOutcome = "none"
	SyncContactOnly SyncOutcome = "contact_only"
	SyncPartial     SyncOutcome = "partial"
	SyncComplete    SyncOutcome = "complete"
)

// CrmSyncResult is the outcome of one CRM sync. Success is true only when
// the contact and at least one of deal/ticket were created; inspect the
// individual objects (or Outcome) to tell a contact-only sync from nothing.
type CrmSyncResult struct {
	Contact  *CrmObject `json:"contact"`
	Deal     *CrmObject `json:"deal"`
	Ticket   *CrmObject `json:"ticket"`
	Success  bool       `json:"success"`
	Errors   []string   `json:"errors"`
	Warnings []string   `json:"warnings,omitempty"`
}

// Outcome reports which objects were created.
func (r *CrmSyncResult) Outcome() SyncOutcome {
	if r == nil || r.Contact == nil {
		return SyncNone
	}
	switch {
	case r.Deal != nil && r.Ticket != nil:
		return SyncComplete
	case r.Deal != nil || r.Ticket != nil:
		return SyncPartial
	default:
		return SyncContactOnly
	}
}
