// internal/workers/notification/send-score-notification/handler.go
package sendscorenotification

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	cerrors "tidescore-workers/internal/common/errors"
	"tidescore-workers/internal/common/logger"
	"tidescore-workers/internal/common/validation"
	"tidescore-workers/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "send-score-notification"
)

var (
	ErrNotificationSendFailed = errors.New("NOTIFICATION_SEND_FAILED")
	ErrMissingApplicantID     = errors.New("MISSING_APPLICANT_ID")
)

// Interfaces over the AWS clients so tests can swap them out.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Handler struct {
	config      *Config
	db          *sql.DB
	logger      logger.Logger
	errs        *cerrors.ErrorHandler
	sesClient   SESService
	snsClient   SNSService
	templateMap map[string]models.NotificationTemplate
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) (*Handler, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(config.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:      config,
		db:          db,
		logger:      scoped,
		errs:        cerrors.NewErrorHandler(scoped),
		sesClient:   ses.NewFromConfig(awsCfg),
		snsClient:   sns.NewFromConfig(awsCfg),
		templateMap: loadTemplates(),
	}, nil
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
	if errors.Is(err, ErrMissingApplicantID) {
		return cerrors.NewMissingApplicantIDError()
	}
	return cerrors.NewNotificationSendFailedError("notification", err)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil || input.ApplicantID == "" {
		return nil, ErrMissingApplicantID
	}

	notification := models.Notification{
		ID:          uuid.New().String(),
		ApplicantID: input.ApplicantID,
		Status:      StatusDisabled,
		SentAt:      time.Now().UTC().Format(time.RFC3339),
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	}

	applicant, err := h.getApplicantContact(ctx, input.ApplicantID)
	if err != nil {
		h.logger.Warn("applicant contact not found", map[string]interface{}{
			"applicantId": input.ApplicantID,
		})
		return &Output{
			NotificationID: notification.ID,
			Status:         StatusDisabled,
			Channels:       []string{},
			SentAt:         notification.SentAt,
		}, nil
	}

	notification.Type = TypeScoreReady
	if highRisk(input.RiskLevel) {
		notification.Type = TypeScoreReview
	}
	template := h.templateMap[notification.Type]

	notification.Payload = map[string]interface{}{
		"applicantId":   input.ApplicantID,
		"fullName":      applicant.FullName,
		"scaledScore":   input.ScaledScore,
		"riskLevel":     input.RiskLevel,
		"scoreRecordId": input.ScoreRecordID,
		"suggestions":   formatSuggestions(input.Suggestions),
	}
	for k, v := range input.Metadata {
		notification.Payload[k] = v
	}

	subject := renderTemplate(template.Subject, notification.Payload)
	body := renderTemplate(template.Body, notification.Payload)

	channels := []string{}

	if h.config.EmailEnabled && validation.ValidateEmail(applicant.Email) {
		if err := h.sendEmail(ctx, applicant.Email, subject, body); err != nil {
			h.logger.Error("email send failed", map[string]interface{}{
				"error": err,
				"email": applicant.Email,
			})
			return &Output{NotificationID: notification.ID, Status: StatusFailed, Channels: channels, SentAt: notification.SentAt}, nil
		}
		channels = append(channels, "email")
	}

	// SMS goes out when the applicant opted in, or unconditionally for
	// high risk results that need a human follow up.
	if h.config.SMSEnabled && validation.ValidatePhone(applicant.Phone) && (applicant.SMSOptIn || highRisk(input.RiskLevel)) {
		if err := h.sendSMS(ctx, applicant.Phone, body); err != nil {
			h.logger.Error("SMS send failed", map[string]interface{}{
				"error": err,
				"phone": applicant.Phone,
			})
			return &Output{NotificationID: notification.ID, Status: StatusFailed, Channels: channels, SentAt: notification.SentAt}, nil
		}
		channels = append(channels, "sms")
	}

	notification.Channel = strings.Join(channels, ",")
	if len(channels) > 0 {
		notification.Status = StatusSent
	}

	h.logger.Info("score notification processed", map[string]interface{}{
		"applicantId":    notification.ApplicantID,
		"notificationId": notification.ID,
		"type":           notification.Type,
		"status":         notification.Status,
		"channels":       channels,
	})

	return &Output{
		NotificationID: notification.ID,
		Status:         notification.Status,
		Channels:       channels,
		SentAt:         notification.SentAt,
	}, nil
}

func (h *Handler) getApplicantContact(ctx context.Context, applicantID string) (*models.Applicant, error) {
	applicant := models.Applicant{ID: applicantID}
	err := h.db.QueryRowContext(ctx, `
		SELECT full_name, email, phone, sms_opt_in
		FROM applicants WHERE id = $1`, applicantID).
		Scan(&applicant.FullName, &applicant.Email, &applicant.Phone, &applicant.SMSOptIn)
	if err != nil {
		return nil, err
	}
	return &applicant, nil
}

func highRisk(riskLevel string) bool {
	return riskLevel == string(models.RiskHigh) || riskLevel == string(models.RiskVeryHigh)
}

func formatSuggestions(suggestions []string) string {
	if len(suggestions) == 0 {
		return ""
	}
	return "- " + strings.Join(suggestions, "\n- ")
}

func (h *Handler) sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := h.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
				Html: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(h.config.FromEmail),
	})
	return err
}

func (h *Handler) sendSMS(ctx context.Context, to, message string) error {
	_, err := h.snsClient.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
	})
	return err
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

// Placeholder substitution with leftover placeholders stripped.
func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl

	for k, v := range data {
		placeholder := "{{" + k + "}}"
		value := ""
		if s, ok := v.(string); ok {
			value = s
		} else if i, ok := v.(int); ok {
			value = fmt.Sprintf("%d", i)
		} else if v != nil {
			value = fmt.Sprintf("%v", v)
		}
		result = strings.ReplaceAll(result, placeholder, value)
	}

	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		end += start + 2
		result = result[:start] + result[end:]
	}

	return result
}

func loadTemplates() map[string]models.NotificationTemplate {
	return map[string]models.NotificationTemplate{
		TypeScoreReady: {
			ID:      "score-ready-v1",
			Type:    TypeScoreReady,
			Subject: "Your TideScore Is Ready",
			Body:    "Hello {{fullName}}, your TideScore is {{scaledScore}} ({{riskLevel}} risk).\n\nWays to improve your score:\n{{suggestions}}",
			Version: "v1",
		},
		TypeScoreReview: {
			ID:      "score-review-v1",
			Type:    TypeScoreReview,
			Subject: "Your TideScore Needs Attention",
			Body:    "Hello {{fullName}}, your TideScore is {{scaledScore}} ({{riskLevel}} risk). A few verified signals would strengthen your profile:\n{{suggestions}}",
			Version: "v1",
		},
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
