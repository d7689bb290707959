package salesforce

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
)

// SObject names written by the pipeline.
const (
	SObjectContact                = "Contact"
	SObjectOpportunity            = "Opportunity"
	SObjectCase                   = "Case"
	SObjectOpportunityContactRole = "OpportunityContactRole"
	defaultOpportunityContactRole = "Decision Maker"
)

// CreateContact creates a new Contact record and returns the new Salesforce ID.
func CreateContact(ctx context.Context, c Client, fields map[string]any) (string, error) {
	if fields["LastName"] == nil || fields["LastName"] == "" {
		return "", eris.New("sf: contact LastName is required")
	}
	id, err := c.InsertOne(ctx, SObjectContact, fields)
	if err != nil {
		return "", eris.Wrap(err, "sf: create contact")
	}
	return id, nil
}

// CreateOpportunity creates a new Opportunity record and returns the new
// Salesforce ID.
func CreateOpportunity(ctx context.Context, c Client, fields map[string]any) (string, error) {
	for _, f := range []string{"Name", "StageName", "CloseDate"} {
		if fields[f] == nil || fields[f] == "" {
			return "", eris.New(fmt.Sprintf("sf: opportunity %s is required", f))
		}
	}
	id, err := c.InsertOne(ctx, SObjectOpportunity, fields)
	if err != nil {
		return "", eris.Wrap(err, "sf: create opportunity")
	}
	return id, nil
}

// CreateCase creates a new Case record and returns the new Salesforce ID.
func CreateCase(ctx context.Context, c Client, fields map[string]any) (string, error) {
	if fields["Subject"] == nil || fields["Subject"] == "" {
		return "", eris.New("sf: case Subject is required")
	}
	id, err := c.InsertOne(ctx, SObjectCase, fields)
	if err != nil {
		return "", eris.Wrap(err, "sf: create case")
	}
	return id, nil
}

// LinkOpportunityContact creates an OpportunityContactRole tying a Contact
// to an Opportunity and returns the role's Salesforce ID.
func LinkOpportunityContact(ctx context.Context, c Client, opportunityID, contactID string) (string, error) {
	if opportunityID == "" || contactID == "" {
		return "", eris.New("sf: opportunity id and contact id are required")
	}
	id, err := c.InsertOne(ctx, SObjectOpportunityContactRole, map[string]any{
		"OpportunityId": opportunityID,
		"ContactId":     contactID,
		"Role":          defaultOpportunityContactRole,
		"IsPrimary":     true,
	})
	if err != nil {
		return "", eris.Wrap(err, fmt.Sprintf("sf: link opportunity %s to contact %s", opportunityID, contactID))
	}
	return id, nil
}
