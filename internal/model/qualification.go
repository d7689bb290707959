package model

// QualificationResult records the qualification decision and the evidence
// it was based on.
type QualificationResult struct {
	Qualified             bool `json:"qualified"`
	HasEmail              bool `json:"hasEmail"`
	HasServiceInterest    bool `json:"hasServiceInterest"`
	HasProjectDescription bool `json:"hasProjectDescription"`
	HasContactInfo        bool `json:"hasContactInfo"`
	HasLeadIndicators     bool `json:"hasLeadIndicators"`
}
