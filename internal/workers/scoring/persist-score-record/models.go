// internal/workers/scoring/persist-score-record/models.go
package persistscorerecord

import "tidescore-workers/internal/models"

type Input struct {
	ApplicantID  string              `json:"applicantId"`
	ScoreResult  *models.ScoreResult `json:"scoreResult"`
	ModelVersion string              `json:"modelVersion"`
}

type Output struct {
	ScoreRecordID string `json:"scoreRecordId"`
	ApplicantID   string `json:"applicantId"`
	Status        string `json:"status"`
	CreatedAt     string `json:"createdAt"`
}
