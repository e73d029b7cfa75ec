// internal/workers/scoring/calculate-tidescore/handler.go
package calculatetidescore

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"

	cerrors "tidescore-workers/internal/common/errors"
	"tidescore-workers/internal/common/logger"
	"tidescore-workers/internal/common/metrics"
	"tidescore-workers/internal/models"
	"tidescore-workers/internal/scoring"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"
)

const (
	TaskType = "calculate-tidescore"
)

var (
	ErrScoreInputInvalid  = errors.New("SCORE_INPUT_INVALID")
	ErrMissingApplicantID = errors.New("MISSING_APPLICANT_ID")
)

type Handler struct {
	config *Config
	engine *scoring.Engine
	redis  *redis.Client
	logger logger.Logger
	errs   *cerrors.ErrorHandler
}

func NewHandler(config *Config, engine *scoring.Engine, redisClient *redis.Client, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		engine: engine,
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
		h.errs.HandleJobError(context.Background(), client, job, h.classify(err))
		return
	}

	h.completeJob(client, job, output)
}

// classify maps execute errors onto the shared error taxonomy.
func (h *Handler) classify(err error) *cerrors.StandardError {
	switch {
	case errors.Is(err, ErrScoreInputInvalid):
		return cerrors.NewScoreInputInvalidError(err.Error())
	case errors.Is(err, ErrMissingApplicantID):
		return cerrors.NewMissingApplicantIDError()
	}
	return cerrors.NewScoreCalculationFailedError(err)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil || input.ApplicantID == "" {
		return nil, ErrMissingApplicantID
	}

	cacheKey := ""
	if h.cacheUsable() {
		cacheKey = h.cacheKey(input)
		if cached, err := h.redis.Get(ctx, cacheKey).Result(); err == nil {
			var result models.ScoreResult
			if err := json.Unmarshal([]byte(cached), &result); err == nil {
				h.logger.Debug("score served from cache", map[string]interface{}{
					"applicantId": input.ApplicantID,
				})
				return &Output{
					ApplicantID:  input.ApplicantID,
					ScoreResult:  &result,
					ModelVersion: h.engine.ModelVersion(),
					FromCache:    true,
				}, nil
			}
		}
	}

	raw, err := decodeSignals(input.VerifiedSignals)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScoreInputInvalid, err)
	}

	result, err := h.engine.Score(raw)
	if err != nil {
		if errors.Is(err, scoring.ErrInvalidSignals) {
			return nil, fmt.Errorf("%w: %v", ErrScoreInputInvalid, err)
		}
		return nil, err
	}

	metrics.ScoresComputed.WithLabelValues(string(result.RiskLevel), h.engine.ModelVersion()).Inc()
	metrics.ScoreDistribution.WithLabelValues(h.engine.ModelVersion()).Observe(float64(result.ScaledScore))

	h.logger.Info("score calculated", map[string]interface{}{
		"applicantId":  input.ApplicantID,
		"scaledScore":  result.ScaledScore,
		"riskLevel":    result.RiskLevel,
		"modelVersion": h.engine.ModelVersion(),
	})

	if cacheKey != "" {
		if data, err := json.Marshal(result); err == nil {
			if err := h.redis.Set(ctx, cacheKey, data, h.config.CacheTTL).Err(); err != nil {
				h.logger.Warn("failed to cache score result", map[string]interface{}{
					"applicantId": input.ApplicantID,
					"error":       err,
				})
			}
		}
	}

	return &Output{
		ApplicantID:  input.ApplicantID,
		ScoreResult:  result,
		ModelVersion: h.engine.ModelVersion(),
	}, nil
}

// decodeSignals turns the raw payload into the engine input. A missing
// payload means no verified categories, which is valid and scores at the
// bottom of the range.
func decodeSignals(data json.RawMessage) (interface{}, error) {
	if len(data) == 0 {
		return map[string]interface{}{}, nil
	}
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return map[string]interface{}{}, nil
	}
	return raw, nil
}

func (h *Handler) cacheUsable() bool {
	return h.config.CacheEnabled && h.redis != nil
}

// The engine is deterministic, so keying on applicant, model version and a
// digest of the signals makes cached results always valid within the TTL.
func (h *Handler) cacheKey(input *Input) string {
	digest := sha256.Sum256(input.VerifiedSignals)
	return fmt.Sprintf("score:%s:%s:%x", input.ApplicantID, h.engine.ModelVersion(), digest[:8])
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
