package dto

// AuditVerifyResponse represents the result of verifying the audit log's
// hash chain.
type AuditVerifyResponse struct {
	// Valid indicates whether the whole chain verified.
	Valid bool `json:"valid"`

	// Events is the number of events verified.
	Events int `json:"events"`

	// Error describes the first break in the chain, if any.
	Error string `json:"error,omitempty"`
}
