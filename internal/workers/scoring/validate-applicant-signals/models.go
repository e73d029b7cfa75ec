// internal/workers/scoring/validate-applicant-signals/models.go
package validateapplicantsignals

import "encoding/json"

// Signals stays raw so a payload that is not an object surfaces as a
// validation error rather than a parse error.
type Input struct {
	ApplicantID string          `json:"applicantId"`
	Signals     json.RawMessage `json:"signals"`
}

type Output struct {
	ApplicantID      string                 `json:"applicantId"`
	IsValid          bool                   `json:"isValid"`
	ValidatedSignals map[string]interface{} `json:"validatedSignals"`
	ValidationErrors []ValidationError      `json:"validationErrors"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
