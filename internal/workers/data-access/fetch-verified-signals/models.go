// internal/workers/data-access/fetch-verified-signals/models.go
package fetchverifiedsignals

type Input struct {
	ApplicantID string `json:"applicantId"`
}

type Output struct {
	ApplicantID     string                 `json:"applicantId"`
	VerifiedSignals map[string]interface{} `json:"verifiedSignals"`
	SignalCount     int                    `json:"signalCount"`
	FromCache       bool                   `json:"fromCache"`
}
