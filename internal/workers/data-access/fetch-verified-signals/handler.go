// internal/workers/data-access/fetch-verified-signals/handler.go
package fetchverifiedsignals

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	cerrors "tidescore-workers/internal/common/errors"
	"tidescore-workers/internal/common/logger"
	"tidescore-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"
)

const (
	TaskType = "fetch-verified-signals"
)

var (
	ErrMissingApplicantID   = errors.New("MISSING_APPLICANT_ID")
	ErrApplicantNotFound    = errors.New("APPLICANT_NOT_FOUND")
	ErrQueryExecutionFailed = errors.New("QUERY_EXECUTION_FAILED")
	ErrQueryTimeout         = errors.New("QUERY_TIMEOUT")
)

type Handler struct {
	config *Config
	db     *sql.DB
	redis  *redis.Client
	logger logger.Logger
	errs   *cerrors.ErrorHandler
}

func NewHandler(config *Config, db *sql.DB, redisClient *redis.Client, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		db:     db,
		redis:  redisClient,
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
		h.errs.HandleJobError(context.Background(), client, job, h.classify(&input, err))
		return
	}

	h.completeJob(client, job, output)
}

// classify maps execute errors onto the shared error taxonomy, which
// decides the BPMN error code and retry budget.
func (h *Handler) classify(input *Input, err error) *cerrors.StandardError {
	switch {
	case errors.Is(err, ErrQueryTimeout):
		return cerrors.NewQueryTimeoutError("fetch applicant signals")
	case errors.Is(err, ErrApplicantNotFound):
		return cerrors.NewApplicantNotFoundError(input.ApplicantID)
	case errors.Is(err, ErrMissingApplicantID):
		return cerrors.NewMissingApplicantIDError()
	}
	return cerrors.NewQueryExecutionFailedError("fetch applicant signals", err)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil || input.ApplicantID == "" {
		return nil, ErrMissingApplicantID
	}

	cacheKey := fmt.Sprintf("signals:applicant:%s", input.ApplicantID)
	if h.cacheUsable() {
		if cached, err := h.redis.Get(ctx, cacheKey).Result(); err == nil {
			var signals map[string]interface{}
			if err := json.Unmarshal([]byte(cached), &signals); err == nil {
				h.logger.Debug("signals served from cache", map[string]interface{}{
					"applicantId": input.ApplicantID,
				})
				return &Output{
					ApplicantID:     input.ApplicantID,
					VerifiedSignals: signals,
					SignalCount:     len(signals),
					FromCache:       true,
				}, nil
			}
		}
	}

	if err := h.checkApplicantExists(ctx, input.ApplicantID); err != nil {
		return nil, err
	}

	signals, err := h.fetchSignals(ctx, input.ApplicantID)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, ErrQueryTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrQueryExecutionFailed, err)
	}

	h.logger.Info("signals fetched", map[string]interface{}{
		"applicantId": input.ApplicantID,
		"signalCount": len(signals),
	})

	if h.cacheUsable() {
		if data, err := json.Marshal(signals); err == nil {
			if err := h.redis.Set(ctx, cacheKey, data, h.config.CacheTTL).Err(); err != nil {
				h.logger.Warn("failed to cache signals", map[string]interface{}{
					"applicantId": input.ApplicantID,
					"error":       err,
				})
			}
		}
	}

	return &Output{
		ApplicantID:     input.ApplicantID,
		VerifiedSignals: signals,
		SignalCount:     len(signals),
	}, nil
}

func (h *Handler) checkApplicantExists(ctx context.Context, applicantID string) error {
	var id string
	err := h.db.QueryRowContext(ctx, `
		SELECT id FROM applicants WHERE id = $1`, applicantID).Scan(&id)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: %s", ErrApplicantNotFound, applicantID)
	}
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return ErrQueryTimeout
		}
		return fmt.Errorf("%w: %v", ErrQueryExecutionFailed, err)
	}
	return nil
}

// fetchSignals returns one object per category: the stored metrics plus
// the verification status. Categories with no record are simply absent,
// which the scoring engine treats as unverified.
func (h *Handler) fetchSignals(ctx context.Context, applicantID string) (map[string]interface{}, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT category, status, metrics
		FROM applicant_signals
		WHERE applicant_id = $1`, applicantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	signals := make(map[string]interface{})
	for rows.Next() {
		rec := models.SignalRecord{ApplicantID: applicantID}
		var metricsRaw []byte
		if err := rows.Scan(&rec.Category, &rec.Status, &metricsRaw); err != nil {
			return nil, err
		}

		if len(metricsRaw) > 0 {
			if err := json.Unmarshal(metricsRaw, &rec.Metrics); err != nil {
				return nil, fmt.Errorf("decode metrics for %s: %v", rec.Category, err)
			}
		}

		record := make(map[string]interface{}, len(rec.Metrics)+1)
		for k, v := range rec.Metrics {
			record[k] = v
		}
		record["status"] = string(rec.Status)
		signals[rec.Category] = record
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return signals, nil
}

func (h *Handler) cacheUsable() bool {
	return h.config.CacheEnabled && h.redis != nil
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
