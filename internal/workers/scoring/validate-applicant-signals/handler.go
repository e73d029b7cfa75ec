// internal/workers/scoring/validate-applicant-signals/handler.go
package validateapplicantsignals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	cerrors "tidescore-workers/internal/common/errors"
	"tidescore-workers/internal/common/logger"
	"tidescore-workers/internal/common/metrics"
	"tidescore-workers/internal/scoring"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/xeipuuv/gojsonschema"
)

const (
	TaskType = "validate-applicant-signals"
)

var (
	ErrSignalsValidationFailed = errors.New("SIGNALS_VALIDATION_FAILED")
	ErrMissingApplicantID      = errors.New("MISSING_APPLICANT_ID")
)

type Handler struct {
	config *Config
	logger logger.Logger
	errs   *cerrors.ErrorHandler
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
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
	case errors.Is(err, ErrSignalsValidationFailed):
		return cerrors.NewSignalsValidationFailedError(err.Error())
	case errors.Is(err, ErrMissingApplicantID):
		return cerrors.NewMissingApplicantIDError()
	}
	return cerrors.NewBusinessRuleError("signal validation failed", err.Error())
}

func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	if input == nil || input.ApplicantID == "" {
		return nil, ErrMissingApplicantID
	}

	signals, validationErrors := h.validateSignals(input.Signals)

	if len(validationErrors) > 0 {
		metrics.ValidationErrors.WithLabelValues(TaskType).Add(float64(len(validationErrors)))
		h.logger.Warn("signals validation failed", map[string]interface{}{
			"applicantId": input.ApplicantID,
			"errorCount":  len(validationErrors),
			"errors":      validationErrors,
		})
		return nil, fmt.Errorf("%w: %d validation errors", ErrSignalsValidationFailed, len(validationErrors))
	}

	h.logger.Info("signals validated", map[string]interface{}{
		"applicantId": input.ApplicantID,
		"categories":  len(signals),
	})

	return &Output{
		ApplicantID:      input.ApplicantID,
		IsValid:          true,
		ValidatedSignals: signals,
		ValidationErrors: []ValidationError{},
	}, nil
}

// validateSignals checks the payload shape and each known category
// against its schema. Unknown categories pass through untouched so a
// newer model version can score fields this worker predates.
func (h *Handler) validateSignals(data json.RawMessage) (map[string]interface{}, []ValidationError) {
	if len(data) == 0 {
		return nil, []ValidationError{{
			Field:   "signals",
			Code:    "MISSING_REQUIRED",
			Message: "signals payload is required",
		}}
	}

	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, []ValidationError{{
			Field:   "signals",
			Code:    "INVALID_FORMAT",
			Message: fmt.Sprintf("signals payload is not valid JSON: %v", err),
		}}
	}

	signals, ok := raw.(map[string]interface{})
	if !ok {
		return nil, []ValidationError{{
			Field:   "signals",
			Code:    "INVALID_TYPE",
			Message: "signals payload must be a JSON object",
		}}
	}

	var validationErrors []ValidationError
	for category, schema := range categorySchemas {
		record, present := signals[category]
		if !present || record == nil {
			continue
		}
		validationErrors = append(validationErrors, validateCategory(category, record, schema)...)
	}

	// Deterministic ordering for logs and tests.
	sort.SliceStable(validationErrors, func(i, j int) bool {
		return validationErrors[i].Field < validationErrors[j].Field
	})

	return signals, validationErrors
}

func validateCategory(category string, record interface{}, schema map[string]interface{}) []ValidationError {
	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(record),
	)
	if err != nil {
		return []ValidationError{{
			Field:   category,
			Code:    "INVALID_FORMAT",
			Message: fmt.Sprintf("schema validation error: %v", err),
		}}
	}
	if result.Valid() {
		return nil
	}

	errs := make([]ValidationError, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		field := category
		if desc.Field() != "(root)" {
			field = category + "." + desc.Field()
		}
		errs = append(errs, ValidationError{
			Field:   field,
			Code:    errorCodeForSchemaType(desc.Type()),
			Message: desc.Description(),
		})
	}
	return errs
}

func errorCodeForSchemaType(schemaType string) string {
	switch schemaType {
	case "required":
		return "MISSING_REQUIRED"
	case "invalid_type":
		return "INVALID_TYPE"
	default:
		return "INVALID_FORMAT"
	}
}

// Aggregator feeds sometimes send amounts as formatted strings, so
// numeric metrics accept both.
var numericMetric = map[string]interface{}{
	"type": []string{"number", "string"},
}

var statusMetric = map[string]interface{}{
	"type": "string",
	"enum": []string{"Verified", "Unverified", "Fraudulent"},
}

var booleanMetric = map[string]interface{}{
	"type": "boolean",
}

var categorySchemas = map[string]map[string]interface{}{
	scoring.CategoryPersonal: {
		"type": "object",
		"properties": map[string]interface{}{
			"employment_verified": booleanMetric,
			"employment_status":   map[string]interface{}{"type": "string"},
			"residency_verified":  booleanMetric,
			"education_level":     map[string]interface{}{"type": "string"},
		},
	},
	scoring.CategoryAirtime: {
		"type": "object",
		"properties": map[string]interface{}{
			"status":        statusMetric,
			"spend_month_1": numericMetric,
			"spend_month_2": numericMetric,
			"spend_month_3": numericMetric,
		},
	},
	scoring.CategoryBills: {
		"type": "object",
		"properties": map[string]interface{}{
			"status":               statusMetric,
			"rent_verified":        booleanMetric,
			"electricity_verified": booleanMetric,
			"water_verified":       booleanMetric,
			"internet_verified":    booleanMetric,
			"dstv_verified":        booleanMetric,
		},
	},
	scoring.CategoryP2P: {
		"type": "object",
		"properties": map[string]interface{}{
			"status":                         statusMetric,
			"unique_verified_counterparties": numericMetric,
			"total_value":                    numericMetric,
			"consistent_across_months":       booleanMetric,
		},
	},
	scoring.CategoryBank: {
		"type": "object",
		"properties": map[string]interface{}{
			"status":                    statusMetric,
			"consistent_deposit_months": numericMetric,
			"avg_monthly_balance":       numericMetric,
			"no_negative_flags":         booleanMetric,
		},
	},
	scoring.CategoryGuarantors: {
		"type": "object",
		"properties": map[string]interface{}{
			"guarantor_1_verified":     booleanMetric,
			"guarantor_1_relationship": map[string]interface{}{"type": "string"},
			"guarantor_2_verified":     booleanMetric,
			"guarantor_2_relationship": map[string]interface{}{"type": "string"},
		},
	},
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
