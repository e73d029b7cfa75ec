// internal/workers/notification/send-score-notification/models.go
package sendscorenotification

type Input struct {
	ApplicantID   string                 `json:"applicantId"`
	ScoreRecordID string                 `json:"scoreRecordId,omitempty"`
	ScaledScore   int                    `json:"scaledScore"`
	RiskLevel     string                 `json:"riskLevel"`
	Suggestions   []string               `json:"suggestions,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

type Output struct {
	NotificationID string   `json:"notificationId"`
	Status         string   `json:"status"` // "sent", "failed", "disabled"
	Channels       []string `json:"channels"`
	SentAt         string   `json:"sentAt"` // ISO 8601
}

// Notification types
const (
	TypeScoreReady  = "score_ready"
	TypeScoreReview = "score_review"
)

// Statuses
const (
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
)
