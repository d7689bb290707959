// Package model holds the records passed between the chat pipeline stages.
package model

import "strings"

// ServiceCategory is the service a visitor is interested in.
type ServiceCategory string

const (
	ServiceWebDevelopment ServiceCategory = "web-development"
	ServiceNetworking     ServiceCategory = "networking"
	ServiceITServices     ServiceCategory = "it-services"
	ServiceAISolutions    ServiceCategory = "ai-solutions"
	ServiceGeneralInquiry ServiceCategory = "general-inquiry"
)

// ServiceCategories lists every category, default last.
var ServiceCategories = []ServiceCategory{
	ServiceWebDevelopment,
	ServiceNetworking,
	ServiceITServices,
	ServiceAISolutions,
	ServiceGeneralInquiry,
}

var serviceLabels = map[ServiceCategory]string{
	ServiceWebDevelopment: "Web Development",
	ServiceNetworking:     "Networking",
	ServiceITServices:     "IT Services",
	ServiceAISolutions:    "AI Solutions",
	ServiceGeneralInquiry: "General Inquiry",
}

// Label returns the human-readable name of the category.
func (s ServiceCategory) Label() string {
	if l, ok := serviceLabels[s]; ok {
		return l
	}
	return string(s)
}

// IsDefault reports whether s is the general-inquiry fallback.
func (s ServiceCategory) IsDefault() bool {
	return s == ServiceGeneralInquiry
}

// ParseService maps a slug or label (any case) to a category. Unknown or
// empty input yields ServiceGeneralInquiry.
func ParseService(v string) ServiceCategory {
	norm := strings.ToLower(strings.TrimSpace(v))
	if norm == "" {
		return ServiceGeneralInquiry
	}
	for _, c := range ServiceCategories {
		if norm == string(c) || norm == strings.ToLower(c.Label()) {
			return c
		}
	}
	switch strings.NewReplacer("_", "-", " ", "-").Replace(norm) {
	case "web-development", "website", "web-design", "e-commerce", "ecommerce":
		return ServiceWebDevelopment
	case "networking", "network":
		return ServiceNetworking
	case "it-services", "it-support", "cybersecurity", "managed-it":
		return ServiceITServices
	case "ai-solutions", "ai", "machine-learning", "automation":
		return ServiceAISolutions
	}
	return ServiceGeneralInquiry
}

// LeadInfo is the structured record extracted from a conversation.
type LeadInfo struct {
	Email                string          `json:"email,omitempty"`
	FirstName            string          `json:"firstName,omitempty"`
	LastName             string          `json:"lastName,omitempty"`
	Phone                string          `json:"phone,omitempty"`
	Company              string          `json:"company,omitempty"`
	Website              string          `json:"website,omitempty"`
	ServiceRequested     ServiceCategory `json:"serviceRequested"`
	BudgetRange          string          `json:"budgetRange,omitempty"`
	Timeline             string          `json:"timeline,omitempty"`
	ProjectDescription   string          `json:"projectDescription,omitempty"`
	ConversationKeywords string          `json:"conversationKeywords,omitempty"`

	// SourceMessage is the raw message the record was extracted from.
	SourceMessage string `json:"-"`
}

// NewLeadInfo returns an empty record with the default service category.
func NewLeadInfo() *LeadInfo {
	return &LeadInfo{ServiceRequested: ServiceGeneralInquiry}
}

// Normalize trims every field and canonicalizes the service category.
func (l *LeadInfo) Normalize() {
	if l == nil {
		return
	}
	for _, f := range []*string{
		&l.Email, &l.FirstName, &l.LastName, &l.Phone, &l.Company, &l.Website,
		&l.BudgetRange, &l.Timeline, &l.ProjectDescription, &l.ConversationKeywords,
	} {
		*f = strings.TrimSpace(*f)
	}
	l.Email = strings.ToLower(l.Email)
	l.ServiceRequested = ParseService(string(l.ServiceRequested))
}

// IsEmpty reports whether no field beyond the default service was found.
func (l *LeadInfo) IsEmpty() bool {
	if l == nil {
		return true
	}
	return l.Email == "" && l.FirstName == "" && l.LastName == "" && l.Phone == "" &&
		l.Company == "" && l.Website == "" && l.BudgetRange == "" && l.Timeline == "" &&
		l.ProjectDescription == "" && l.ConversationKeywords == "" &&
		(l.ServiceRequested == "" || l.ServiceRequested.IsDefault())
}

// Merge fills empty fields of l from other. A non-default service in other
// replaces a default one in l.
func (l *LeadInfo) Merge(other *LeadInfo) {
	if l == nil || other == nil {
		return
	}
	fill := func(dst *string, src string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = src
		}
	}
	fill(&l.Email, other.Email)
	fill(&l.FirstName, other.FirstName)
	fill(&l.LastName, other.LastName)
	fill(&l.Phone, other.Phone)
	fill(&l.Company, other.Company)
	fill(&l.Website, other.Website)
	fill(&l.BudgetRange, other.BudgetRange)
	fill(&l.Timeline, other.Timeline)
	fill(&l.ProjectDescription, other.ProjectDescription)
	fill(&l.ConversationKeywords, other.ConversationKeywords)
	fill(&l.SourceMessage, other.SourceMessage)
	if (l.ServiceRequested == "" || l.ServiceRequested.IsDefault()) && other.ServiceRequested != "" {
		l.ServiceRequested = other.ServiceRequested
	}
	if l.ServiceRequested == "" {
		l.ServiceRequested = ServiceGeneralInquiry
	}
}
