// internal/workers/scoring/calculate-tidescore/models.go
package calculatetidescore

import (
	"encoding/json"

	"tidescore-workers/internal/models"
)

// VerifiedSignals stays raw so structurally invalid payloads reach the
// engine and come back as SCORE_INPUT_INVALID instead of a parse error.
type Input struct {
	ApplicantID     string          `json:"applicantId"`
	VerifiedSignals json.RawMessage `json:"verifiedSignals"`
}

type Output struct {
	ApplicantID  string              `json:"applicantId"`
	ScoreResult  *models.ScoreResult `json:"scoreResult"`
	ModelVersion string              `json:"modelVersion"`
	FromCache    bool                `json:"fromCache"`
}
