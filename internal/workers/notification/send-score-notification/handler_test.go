// internal/workers/notification/send-score-notification/handler_test.go
package sendscorenotification

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "tidescore-workers/internal/common/errors"
	"tidescore-workers/internal/common/logger"
)

type MockSESService struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

func (m *MockSESService) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	return m.SendEmailFunc(ctx, params, optFns...)
}

type MockSNSService struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func (m *MockSNSService) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	return m.PublishFunc(ctx, params, optFns...)
}

func createTestConfig() *Config {
	return &Config{
		EmailEnabled: true,
		SMSEnabled:   true,
		FromEmail:    "scores@tidescore.example",
		AWSRegion:    "eu-west-1",
		Timeout:      30 * time.Second,
	}
}

func createTestInput() *Input {
	return &Input{
		ApplicantID:   "applicant-001",
		ScoreRecordID: "record-001",
		ScaledScore:   601,
		RiskLevel:     "Moderate",
		Suggestions:   []string{"Link a bank account with regular deposits."},
	}
}

func expectContactLookup(mock sqlmock.Sqlmock, smsOptIn bool) {
	mock.ExpectQuery(`SELECT full_name, email, phone, sms_opt_in FROM applicants WHERE id = \$1`).
		WithArgs("applicant-001").
		WillReturnRows(sqlmock.NewRows([]string{"full_name", "email", "phone", "sms_opt_in"}).
			AddRow("Ada Obi", "ada@example.com", "+2348012345678", smsOptIn))
}

func newMockedHandler(t *testing.T, db *sql.DB, mockSES *MockSESService, mockSNS *MockSNSService) *Handler {
	t.Helper()
	return &Handler{
		config:      createTestConfig(),
		db:          db,
		logger:      logger.NewTestLogger(t),
		sesClient:   mockSES,
		snsClient:   mockSNS,
		templateMap: loadTemplates(),
	}
}

func TestHandler_Execute_EmailSent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectContactLookup(mock, false)

	var sentSubject, sentBody string
	mockSES := &MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			assert.Equal(t, "ada@example.com", params.Destination.ToAddresses[0])
			assert.Equal(t, "scores@tidescore.example", *params.Source)
			sentSubject = *params.Message.Subject.Data
			sentBody = *params.Message.Body.Text.Data
			return &ses.SendEmailOutput{}, nil
		},
	}
	mockSNS := &MockSNSService{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			t.Fatal("SMS must not be sent without opt-in for moderate risk")
			return nil, nil
		},
	}

	handler := newMockedHandler(t, db, mockSES, mockSNS)
	output, err := handler.Execute(context.Background(), createTestInput())

	require.NoError(t, err)
	assert.Equal(t, StatusSent, output.Status)
	assert.Equal(t, []string{"email"}, output.Channels)
	assert.NotEmpty(t, output.NotificationID)

	assert.Equal(t, "Your TideScore Is Ready", sentSubject)
	assert.Contains(t, sentBody, "Ada Obi")
	assert.Contains(t, sentBody, "601")
	assert.Contains(t, sentBody, "Moderate")
	assert.Contains(t, sentBody, "Link a bank account")
	assert.False(t, strings.Contains(sentBody, "{{"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_HighRiskSendsSMS(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectContactLookup(mock, false)

	mockSES := &MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			assert.Equal(t, "Your TideScore Needs Attention", *params.Message.Subject.Data)
			return &ses.SendEmailOutput{}, nil
		},
	}
	smsSent := false
	mockSNS := &MockSNSService{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			smsSent = true
			assert.Equal(t, "+2348012345678", *params.PhoneNumber)
			return &sns.PublishOutput{}, nil
		},
	}

	handler := newMockedHandler(t, db, mockSES, mockSNS)

	input := createTestInput()
	input.ScaledScore = 340
	input.RiskLevel = "Very High"

	output, err := handler.Execute(context.Background(), input)
	require.NoError(t, err)

	assert.True(t, smsSent)
	assert.Equal(t, StatusSent, output.Status)
	assert.Equal(t, []string{"email", "sms"}, output.Channels)
}

func TestHandler_Execute_SMSOptIn(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectContactLookup(mock, true)

	mockSES := &MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return &ses.SendEmailOutput{}, nil
		},
	}
	mockSNS := &MockSNSService{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			return &sns.PublishOutput{}, nil
		},
	}

	handler := newMockedHandler(t, db, mockSES, mockSNS)
	output, err := handler.Execute(context.Background(), createTestInput())

	require.NoError(t, err)
	assert.Equal(t, []string{"email", "sms"}, output.Channels)
}

func TestHandler_Execute_ApplicantNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT full_name, email, phone, sms_opt_in FROM applicants WHERE id = \$1`).
		WithArgs("applicant-001").
		WillReturnError(sql.ErrNoRows)

	handler := newMockedHandler(t, db, &MockSESService{}, &MockSNSService{})
	output, err := handler.Execute(context.Background(), createTestInput())

	require.NoError(t, err)
	assert.Equal(t, StatusDisabled, output.Status)
	assert.Empty(t, output.Channels)
	assert.NotEmpty(t, output.NotificationID)
}

func TestHandler_Execute_EmailFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectContactLookup(mock, false)

	mockSES := &MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return nil, errors.New("ses throttled")
		},
	}

	handler := newMockedHandler(t, db, mockSES, &MockSNSService{})
	output, err := handler.Execute(context.Background(), createTestInput())

	require.NoError(t, err)
	assert.Equal(t, StatusFailed, output.Status)
}

func TestHandler_Execute_AllChannelsDisabled(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectContactLookup(mock, true)

	handler := newMockedHandler(t, db, &MockSESService{}, &MockSNSService{})
	handler.config.EmailEnabled = false
	handler.config.SMSEnabled = false

	output, err := handler.Execute(context.Background(), createTestInput())

	require.NoError(t, err)
	assert.Equal(t, StatusDisabled, output.Status)
	assert.Empty(t, output.Channels)
}

func TestHandler_Execute_MissingApplicantID(t *testing.T) {
	handler := newMockedHandler(t, nil, &MockSESService{}, &MockSNSService{})

	output, err := handler.Execute(context.Background(), &Input{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingApplicantID)
	assert.Nil(t, output)

	stdErr := handler.classify(err)
	assert.Equal(t, cerrors.ErrCodeMissingApplicantID, stdErr.Code)
	assert.False(t, stdErr.Retryable)
}

func TestRenderTemplate(t *testing.T) {
	result := renderTemplate(
		"Hello {{fullName}}, score {{scaledScore}}, missing {{unknown}} end.",
		map[string]interface{}{"fullName": "Ada Obi", "scaledScore": 601},
	)
	assert.Equal(t, "Hello Ada Obi, score 601, missing  end.", result)
}
