package model

// VerdictActions are the per-action permissions granted for a request.
type VerdictActions struct {
	AllowReply          bool `json:"allowReply"`
	AllowLeadCreation   bool `json:"allowLeadCreation"`
	RequireVerification bool `json:"requireVerification"`
}

// ProtectionVerdict is the outcome of evaluating one inbound request.
type ProtectionVerdict struct {
	Allowed           bool           `json:"allowed"`
	Blocked           bool           `json:"blocked"`
	Suspicious        bool           `json:"suspicious"`
	Reasons           []string       `json:"reasons,omitempty"`
	Actions           VerdictActions `json:"actions"`
	RetryAfterSeconds int            `json:"retryAfterSeconds,omitempty"`
}

// Outcome returns "blocked", "suspicious" or "allowed".
func (v ProtectionVerdict) Outcome() string {
	switch {
	case v.Blocked:
		return "blocked"
	case v.Suspicious:
		return "suspicious"
	default:
		return "allowed"
	}
}
