// internal/workers/audit/index-score-event/models.go
package indexscoreevent

import "tidescore-workers/internal/models"

type Input struct {
	ApplicantID   string            `json:"applicantId"`
	ScoreRecordID string            `json:"scoreRecordId,omitempty"`
	ScaledScore   int               `json:"scaledScore"`
	RiskLevel     string            `json:"riskLevel"`
	ModelVersion  string            `json:"modelVersion"`
	Breakdown     models.Breakdown  `json:"breakdown,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

type Output struct {
	EventID   string `json:"eventId"`
	Index     string `json:"index"`
	IndexedAt string `json:"indexedAt"` // ISO 8601
}
