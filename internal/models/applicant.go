// internal/models/applicant.go
package models

// VerificationStatus is the admin review outcome for a signal record.
type VerificationStatus string

const (
	StatusVerified   VerificationStatus = "Verified"
	StatusUnverified VerificationStatus = "Unverified"
	StatusFraudulent VerificationStatus = "Fraudulent"
)

type Applicant struct {
	ID        string `json:"id"`
	FullName  string `json:"fullName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	SMSOptIn  bool   `json:"smsOptIn"`
	Status    string `json:"status"` // "pending", "verified", "rejected"
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// SignalRecord is one category of aggregated applicant signals as stored in
// applicant_signals, after admin review.
type SignalRecord struct {
	ApplicantID string                 `json:"applicantId"`
	Category    string                 `json:"category"`
	Status      VerificationStatus     `json:"status"`
	Metrics     map[string]interface{} `json:"metrics"`
	VerifiedAt  string                 `json:"verifiedAt,omitempty"`
	VerifiedBy  string                 `json:"verifiedBy,omitempty"`
}
