// internal/workers/audit/index-score-event/handler.go
package indexscoreevent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	cerrors "tidescore-workers/internal/common/errors"
	"tidescore-workers/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
)

const (
	TaskType = "index-score-event"
)

var (
	ErrMissingApplicantID = errors.New("MISSING_APPLICANT_ID")
	ErrEventIndexFailed   = errors.New("EVENT_INDEX_FAILED")
	ErrIndexTimeout       = errors.New("INDEX_TIMEOUT")
)

type Handler struct {
	config *Config
	client *elasticsearch.Client
	logger logger.Logger
	errs   *cerrors.ErrorHandler
}

func NewHandler(config *Config, client *elasticsearch.Client, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		client: client,
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
	case errors.Is(err, ErrIndexTimeout):
		return cerrors.NewIndexTimeoutError(h.config.EventIndex)
	case errors.Is(err, ErrMissingApplicantID):
		return cerrors.NewMissingApplicantIDError()
	}
	return cerrors.NewEventIndexFailedError(h.config.EventIndex, err)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil || input.ApplicantID == "" {
		return nil, ErrMissingApplicantID
	}

	eventID := uuid.New().String()
	indexedAt := time.Now().UTC().Format(time.RFC3339)

	doc := map[string]interface{}{
		"eventId":       eventID,
		"eventType":     "score_computed",
		"applicantId":   input.ApplicantID,
		"scoreRecordId": input.ScoreRecordID,
		"scaledScore":   input.ScaledScore,
		"riskLevel":     input.RiskLevel,
		"modelVersion":  input.ModelVersion,
		"timestamp":     indexedAt,
	}
	if len(input.Breakdown) > 0 {
		doc["breakdown"] = input.Breakdown
	}
	for k, v := range input.Metadata {
		doc[k] = v
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal event: %v", ErrEventIndexFailed, err)
	}

	req := esapi.IndexRequest{
		Index:      h.config.EventIndex,
		DocumentID: eventID,
		Body:       bytes.NewReader(body),
	}

	res, err := req.Do(ctx, h.client)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, ErrIndexTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrEventIndexFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrEventIndexFailed, res.String())
	}

	h.logger.Info("score event indexed", map[string]interface{}{
		"eventId":     eventID,
		"applicantId": input.ApplicantID,
		"index":       h.config.EventIndex,
	})

	return &Output{
		EventID:   eventID,
		Index:     h.config.EventIndex,
		IndexedAt: indexedAt,
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
