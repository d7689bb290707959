// Package qualify decides whether an extracted lead record is worth a CRM
// record.
package qualify

import (
	"strings"

	"github.com/sells-group/lead-pipeline/internal/model"
)

// ShouldCreateLead evaluates info against the qualification rule:
//
//	(email AND (service OR description OR indicators)) OR (service AND contact)
//
// Any service value counts as interest, including the default category.
// A nil record is never qualified.
func ShouldCreateLead(info *model.LeadInfo) model.QualificationResult {
	if info == nil {
		return model.QualificationResult{}
	}

	r := model.QualificationResult{
		HasEmail:              present(info.Email),
		HasServiceInterest:    present(string(info.ServiceRequested)),
		HasProjectDescription: hasDescription(info),
		HasContactInfo:        present(info.FirstName) || present(info.LastName) || present(info.Company),
		HasLeadIndicators: present(info.BudgetRange) || present(info.Timeline) || present(info.Company) ||
			present(info.Phone) || present(info.FirstName) || present(info.LastName),
	}

	r.Qualified = (r.HasEmail && (r.HasServiceInterest || r.HasProjectDescription || r.HasLeadIndicators)) ||
		(r.HasServiceInterest && r.HasContactInfo)
	return r
}

func present(s string) bool {
	return strings.TrimSpace(s) != ""
}

// hasDescription rejects a description that merely echoes the raw message.
func hasDescription(info *model.LeadInfo) bool {
	desc := strings.TrimSpace(info.ProjectDescription)
	if desc == "" {
		return false
	}
	return !strings.EqualFold(desc, strings.TrimSpace(info.SourceMessage))
}
