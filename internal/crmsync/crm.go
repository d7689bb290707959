// Package crmsync writes a lead into the CRM: the Contact first, then the
// Deal and Ticket concurrently, aggregating partial failures.
package crmsync

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-pipeline/pkg/salesforce"
)

// ObjectType names a CRM object kind.
type ObjectType string

const (
	ObjectContact ObjectType = "contact"
	ObjectDeal    ObjectType = "deal"
	ObjectTicket  ObjectType = "ticket"
)

// label is the capitalized name used in error messages.
func (o ObjectType) label() string {
	switch o {
	case ObjectContact:
		return "Contact"
	case ObjectDeal:
		return "Deal"
	case ObjectTicket:
		return "Ticket"
	default:
		return string(o)
	}
}

// CRM is the object API the orchestrator writes to.
type CRM interface {
	// Create stores one object and returns its external id.
	Create(ctx context.Context, object ObjectType, fields map[string]any) (string, error)
	// Associate links a deal to a contact after both exist.
	Associate(ctx context.Context, dealID, contactID string) error
}

// SalesforceCRM maps CRM objects onto Salesforce: Contact, Opportunity for
// deals, Case for tickets and OpportunityContactRole for the deal link.
type SalesforceCRM struct {
	client salesforce.Client
}

// NewSalesforceCRM creates a CRM backed by Salesforce.
func NewSalesforceCRM(client salesforce.Client) *SalesforceCRM {
	return &SalesforceCRM{client: client}
}

// Create implements CRM.
func (s *SalesforceCRM) Create(ctx context.Context, object ObjectType, fields map[string]any) (string, error) {
	switch object {
	case ObjectContact:
		return salesforce.CreateContact(ctx, s.client, fields)
	case ObjectDeal:
		return salesforce.CreateOpportunity(ctx, s.client, fields)
	case ObjectTicket:
		return salesforce.CreateCase(ctx, s.client, fields)
	default:
		return "", eris.Errorf("crmsync: unknown object type %q", object)
	}
}

// Associate implements CRM.
func (s *SalesforceCRM) Associate(ctx context.Context, dealID, contactID string) error {
	_, err := salesforce.LinkOpportunityContact(ctx, s.client, dealID, contactID)
	return err
}
