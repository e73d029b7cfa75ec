// internal/workers/scoring/persist-score-record/handler.go
package persistscorerecord

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	cerrors "tidescore-workers/internal/common/errors"
	"tidescore-workers/internal/common/logger"
	"tidescore-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "persist-score-record"
)

var (
	ErrMissingApplicantID   = errors.New("MISSING_APPLICANT_ID")
	ErrMissingScoreResult   = errors.New("MISSING_SCORE_RESULT")
	ErrDatabaseInsertFailed = errors.New("DATABASE_INSERT_FAILED")
)

type Handler struct {
	config *Config
	db     *sql.DB
	logger logger.Logger
	errs   *cerrors.ErrorHandler
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		db:     db,
		logger: scoped,
		errs:   cerrors.NewErrorHandler(scoped),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errs.HandleJobError(context.Background(), client, job, cerrors.NewParseError(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errs.HandleJobError(context.Background(), client, job, h.classify(err))
		return
	}

	h.completeJob(client, job, output)
}

// classify maps execute errors onto the shared error taxonomy.
func (h *Handler) classify(err error) *cerrors.StandardError {
	switch {
	case errors.Is(err, ErrDatabaseInsertFailed):
		return cerrors.NewDatabaseInsertFailedError(err)
	case errors.Is(err, ErrMissingApplicantID):
		return cerrors.NewMissingApplicantIDError()
	case errors.Is(err, ErrMissingScoreResult):
		return cerrors.NewMissingScoreResultError()
	}
	return cerrors.NewDatabaseInsertFailedError(err)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil || input.ApplicantID == "" {
		return nil, ErrMissingApplicantID
	}
	if input.ScoreResult == nil {
		return nil, ErrMissingScoreResult
	}

	// One record per applicant, model version and calendar day. Covers
	// re-delivered jobs and same-day re-runs that produced a different
	// score from fresher signals.
	var existingID, existingCreatedAt string
	err := h.db.QueryRowContext(ctx, `
		SELECT id, created_at FROM score_records
		WHERE applicant_id = $1 AND model_version = $2
		AND created_at::date = CURRENT_DATE
		ORDER BY created_at DESC LIMIT 1`,
		input.ApplicantID, input.ModelVersion,
	).Scan(&existingID, &existingCreatedAt)
	if err == nil {
		h.logger.Info("score record already exists", map[string]interface{}{
			"applicantId":   input.ApplicantID,
			"scoreRecordId": existingID,
		})
		return &Output{
			ScoreRecordID: existingID,
			ApplicantID:   input.ApplicantID,
			Status:        "duplicate",
			CreatedAt:     existingCreatedAt,
		}, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("%w: duplicate check failed: %v", ErrDatabaseInsertFailed, err)
	}

	record := models.ScoreRecord{
		ID:           uuid.New().String(),
		ApplicantID:  input.ApplicantID,
		ScaledScore:  input.ScoreResult.ScaledScore,
		RiskLevel:    input.ScoreResult.RiskLevel,
		ModelVersion: input.ModelVersion,
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
	}

	breakdownJSON, err := json.Marshal(input.ScoreResult.Breakdown)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal breakdown: %v", ErrDatabaseInsertFailed, err)
	}
	suggestionsJSON, err := json.Marshal(input.ScoreResult.Suggestions)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal suggestions: %v", ErrDatabaseInsertFailed, err)
	}

	_, err = h.db.ExecContext(ctx, `
		INSERT INTO score_records (
			id, applicant_id, model_version, scaled_score, risk_level,
			breakdown, suggestions, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		record.ID,
		record.ApplicantID,
		record.ModelVersion,
		record.ScaledScore,
		string(record.RiskLevel),
		breakdownJSON,
		suggestionsJSON,
		record.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: insert failed: %v", ErrDatabaseInsertFailed, err)
	}

	// Audit entry is non-critical, log and continue on failure.
	auditDetailsJSON, err := json.Marshal(map[string]interface{}{
		"applicantId":  record.ApplicantID,
		"modelVersion": record.ModelVersion,
		"scaledScore":  record.ScaledScore,
		"riskLevel":    record.RiskLevel,
	})
	if err != nil {
		h.logger.Warn("failed to marshal audit log details", map[string]interface{}{
			"error": err,
		})
		auditDetailsJSON = []byte("{}")
	}

	_, err = h.db.ExecContext(ctx, `
		INSERT INTO audit_log (event_type, resource_type, resource_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		"score_record_created",
		"score_record",
		record.ID,
		auditDetailsJSON,
		record.CreatedAt,
	)
	if err != nil {
		h.logger.Warn("audit log insert failed", map[string]interface{}{
			"error":         err,
			"scoreRecordId": record.ID,
		})
	}

	h.logger.Info("score record persisted", map[string]interface{}{
		"scoreRecordId": record.ID,
		"applicantId":   record.ApplicantID,
		"scaledScore":   record.ScaledScore,
		"riskLevel":     record.RiskLevel,
	})

	return &Output{
		ScoreRecordID: record.ID,
		ApplicantID:   record.ApplicantID,
		Status:        "created",
		CreatedAt:     record.CreatedAt,
	}, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
