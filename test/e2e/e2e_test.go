// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tidescore-workers/internal/common/config"
	"tidescore-workers/internal/common/database"
	"tidescore-workers/internal/common/logger"
	"tidescore-workers/internal/models"
	"tidescore-workers/internal/scoring"

	indexscoreevent "tidescore-workers/internal/workers/audit/index-score-event"
	fetchverifiedsignals "tidescore-workers/internal/workers/data-access/fetch-verified-signals"
	sendscorenotification "tidescore-workers/internal/workers/notification/send-score-notification"
	calculatetidescore "tidescore-workers/internal/workers/scoring/calculate-tidescore"
	persistscorerecord "tidescore-workers/internal/workers/scoring/persist-score-record"
	validateapplicantsignals "tidescore-workers/internal/workers/scoring/validate-applicant-signals"
)

var (
	zeebeClient zbc.Client
	zapLog      *zap.Logger
)

const testApplicantID = "e2e-applicant-001"

func TestMain(m *testing.M) {
	if os.Getenv("E2E_TESTS") == "" {
		fmt.Println("E2E_TESTS not set, skipping e2e suite")
		os.Exit(0)
	}

	var err error
	zeebeClient, err = zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         "localhost:26500",
		UsePlaintextConnection: true,
	})
	if err != nil {
		panic(fmt.Sprintf("❌ Failed to connect to Zeebe: %v", err))
	}

	zapLog, _ = zap.NewProduction()

	code := m.Run()

	zeebeClient.Close()
	os.Exit(code)
}

func TestFullE2E(t *testing.T) {
	_, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	cfg, err := config.Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	t.Log("🚀 Starting FULL E2E Test with real services...")

	// 1. Check all external services are available
	assertAllServicesConnectivity(t, cfg)

	// 2. Create DB tables if needed and insert test data
	createDatabaseTables(t, cfg)

	// 3. Deploy all BPMN files
	deployAllBPMN(t, cfg, zapLog)

	// 4. Run all 6 workers against the real services, chained the way
	//    the tidescore-pipeline process runs them.
	testScorePipeline(t, cfg, zapLog)

	t.Log("✅ ALL TESTS PASSED — Full E2E workflow successful!")
}

func assertAllServicesConnectivity(t *testing.T, cfg *config.Config) {
	t.Log("🔍 Checking service connectivity...")

	// 🔧 FORCE LOCALHOST FOR E2E TESTS
	cfg.Database.Postgres.Host = "localhost"
	cfg.Database.Redis.Address = "localhost:6379"
	cfg.Database.Elasticsearch.URL = "http://localhost:9200"

	// --- PostgreSQL ---
	db, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err, "❌ PostgreSQL connection failed")
	assert.NoError(t, db.Ping(context.Background()), "❌ PostgreSQL ping failed")
	db.Close()
	t.Log("✅ PostgreSQL connected")

	// --- Redis ---
	rdb, err := database.NewRedis(cfg.Database.Redis)
	require.NoError(t, err, "❌ Redis client creation failed")
	assert.NoError(t, rdb.Ping(context.Background()), "❌ Redis ping failed")
	t.Log("✅ Redis connected")

	// --- Elasticsearch ---
	esURL := cfg.Database.Elasticsearch.GetURL()
	t.Logf("🔗 Elasticsearch URL: %s", esURL)

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{esURL},
	})
	require.NoError(t, err, "❌ Elasticsearch client creation failed")

	res, err := es.Info()
	require.NoError(t, err, "❌ Elasticsearch info request failed")
	assert.False(t, res.IsError(), "❌ Elasticsearch returned error")
	res.Body.Close()
	t.Log("✅ Elasticsearch connected")

	// --- Zeebe ---
	_, err = zeebeClient.NewTopologyCommand().Send(context.Background())
	assert.NoError(t, err, "❌ Zeebe topology request failed")
	t.Log("✅ Zeebe connected")
}

// ==========================
// 2. Database Tables Setup + Test Data
// ==========================
func createDatabaseTables(t *testing.T, cfg *config.Config) {
	t.Log("🔧 Creating database tables and inserting test data...")

	dbClient, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err)
	defer dbClient.Close()

	db := dbClient.GetDB()

	queries := []string{
		`CREATE TABLE IF NOT EXISTS applicants (
			id VARCHAR(255) PRIMARY KEY,
			full_name VARCHAR(255) NOT NULL,
			email VARCHAR(255),
			phone VARCHAR(50),
			sms_opt_in BOOLEAN DEFAULT false,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS applicant_signals (
			id SERIAL PRIMARY KEY,
			applicant_id VARCHAR(255) REFERENCES applicants(id),
			category VARCHAR(100) NOT NULL,
			status VARCHAR(50) NOT NULL,
			metrics JSONB,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(applicant_id, category)
		)`,
		`CREATE TABLE IF NOT EXISTS score_records (
			id VARCHAR(255) PRIMARY KEY,
			applicant_id VARCHAR(255) NOT NULL,
			model_version VARCHAR(50) NOT NULL,
			scaled_score INTEGER NOT NULL,
			risk_level VARCHAR(50) NOT NULL,
			breakdown JSONB,
			suggestions JSONB,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS audit_log (
			id SERIAL PRIMARY KEY,
			event_type VARCHAR(100),
			resource_type VARCHAR(100),
			resource_id VARCHAR(255),
			details JSONB,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, query := range queries {
		_, err := db.ExecContext(context.Background(), query)
		if err != nil {
			t.Logf("Warning: Failed to create table: %v", err)
		}
	}

	testData := []string{
		fmt.Sprintf(`INSERT INTO applicants (id, full_name, email, phone, sms_opt_in)
		 VALUES ('%s', 'Adaeze Okafor', 'adaeze@example.com', '+2348012345678', true)
		 ON CONFLICT (id) DO NOTHING`, testApplicantID),
		fmt.Sprintf(`INSERT INTO applicant_signals (applicant_id, category, status, metrics)
		 VALUES ('%s', 'Airtime & Data', 'Verified',
		 '{"spend_month_1": 12000, "spend_month_2": 14500, "spend_month_3": 11000}')
		 ON CONFLICT (applicant_id, category) DO NOTHING`, testApplicantID),
		fmt.Sprintf(`INSERT INTO applicant_signals (applicant_id, category, status, metrics)
		 VALUES ('%s', 'Bill Payments', 'Verified',
		 '{"electricity_verified": true, "rent_verified": true, "internet_verified": true}')
		 ON CONFLICT (applicant_id, category) DO NOTHING`, testApplicantID),
		fmt.Sprintf(`INSERT INTO applicant_signals (applicant_id, category, status, metrics)
		 VALUES ('%s', 'Bank Activity', 'Verified',
		 '{"avg_monthly_inflow": 250000, "months_active": 18, "no_negative_flags": true}')
		 ON CONFLICT (applicant_id, category) DO NOTHING`, testApplicantID),
		fmt.Sprintf(`INSERT INTO applicant_signals (applicant_id, category, status, metrics)
		 VALUES ('%s', 'Guarantors', 'Verified',
		 '{"guarantor_1_verified": true, "guarantor_2_verified": true}')
		 ON CONFLICT (applicant_id, category) DO NOTHING`, testApplicantID),
	}

	for _, query := range testData {
		_, err := db.ExecContext(context.Background(), query)
		if err != nil {
			t.Logf("Warning: Failed to insert test data: %v", err)
		}
	}

	t.Log("✅ Database tables created/verified with test data")
}

// ==========================
// 3. Deploy All BPMN Files
// ==========================
func deployAllBPMN(t *testing.T, _ *config.Config, _ *zap.Logger) {
	t.Log("🏗️ Deploying BPMN files...")

	client := zeebeClient

	possiblePaths := []string{
		"bpmn",
		"../bpmn",
		"../../bpmn",
		"./bpmn",
	}

	var bpmnDir string
	var files []os.DirEntry
	var err error

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			files, err = os.ReadDir(path)
			if err == nil {
				bpmnDir = path
				t.Logf("📁 Found BPMN directory: %s", bpmnDir)
				break
			}
		}
	}

	if bpmnDir == "" {
		t.Log("⚠️ BPMN directory not found in any expected location, skipping deployment")
		return
	}

	require.NoError(t, err, "❌ Cannot read BPMN directory")

	bpmnCount := 0
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(f.Name()), ".bpmn") {
			continue
		}

		path := fmt.Sprintf("%s/%s", bpmnDir, f.Name())
		t.Logf("📄 Deploying BPMN: %s", path)

		_, err := client.NewDeployResourceCommand().AddResourceFile(path).Send(context.Background())
		if err != nil {
			t.Logf("⚠️ Failed to deploy BPMN %s: %v", f.Name(), err)
		} else {
			t.Logf("✅ Deployed: %s", f.Name())
			bpmnCount++
		}
	}

	if bpmnCount == 0 {
		t.Log("ℹ️ No BPMN files were successfully deployed")
	} else {
		t.Logf("✅ Successfully deployed %d BPMN files", bpmnCount)
	}
}

// ==========================
// 4. Pipeline: all 6 workers chained with real services
// ==========================
func testScorePipeline(t *testing.T, cfg *config.Config, zl *zap.Logger) {
	t.Log("🧪 Running the scoring pipeline end to end...")

	log := logger.NewZapAdapter(zl)
	ctx := context.Background()

	dbClient, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err)
	defer dbClient.Close()
	db := dbClient.GetDB()

	rdbClient, err := database.NewRedis(cfg.Database.Redis)
	require.NoError(t, err)
	defer rdbClient.Close()
	rdb := rdbClient.GetClient()

	esURL := cfg.Database.Elasticsearch.GetURL()
	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{esURL}})
	require.NoError(t, err)

	engine, err := scoring.New(scoring.DefaultModel())
	require.NoError(t, err)

	var (
		verified    map[string]interface{}
		scoreResult *models.ScoreResult
		recordID    string
	)

	t.Run("validate-applicant-signals", func(t *testing.T) {
		runValidateSignals(t, ctx, log)
	})

	t.Run("fetch-verified-signals", func(t *testing.T) {
		verified = runFetchSignals(t, ctx, db, rdb, log)
	})

	t.Run("calculate-tidescore", func(t *testing.T) {
		scoreResult = runCalculateScore(t, ctx, engine, rdb, log, verified)
	})

	t.Run("persist-score-record", func(t *testing.T) {
		recordID = runPersistRecord(t, ctx, db, engine.ModelVersion(), log, scoreResult)
	})

	t.Run("send-score-notification", func(t *testing.T) {
		runSendNotification(t, ctx, db, log, recordID, scoreResult)
	})

	t.Run("index-score-event", func(t *testing.T) {
		runIndexEvent(t, ctx, es, engine.ModelVersion(), log, recordID, scoreResult)
	})
}

func runValidateSignals(t *testing.T, ctx context.Context, log logger.Logger) {
	handler := validateapplicantsignals.NewHandler(&validateapplicantsignals.Config{
		Timeout: 10 * time.Second,
	}, log)

	signals := json.RawMessage(`{
		"Airtime & Data": {"status": "Verified", "spend_month_1": 12000, "spend_month_2": 14500, "spend_month_3": 11000},
		"Bill Payments": {"status": "Verified", "electricity_verified": true, "rent_verified": true},
		"Guarantors": {"status": "Verified", "guarantor_1_verified": true, "guarantor_2_verified": true}
	}`)

	result, err := handler.Execute(ctx, &validateapplicantsignals.Input{
		ApplicantID: testApplicantID,
		Signals:     signals,
	})
	require.NoError(t, err)
	assert.True(t, result.IsValid)
	assert.Empty(t, result.ValidationErrors)

	// Malformed payload must surface field-level errors, not succeed.
	_, err = handler.Execute(ctx, &validateapplicantsignals.Input{
		ApplicantID: testApplicantID,
		Signals:     json.RawMessage(`{"Guarantors": {"status": "maybe"}}`),
	})
	assert.ErrorIs(t, err, validateapplicantsignals.ErrSignalsValidationFailed)
}

func runFetchSignals(t *testing.T, ctx context.Context, db *sql.DB, rdb *redis.Client, log logger.Logger) map[string]interface{} {
	handler := fetchverifiedsignals.NewHandler(&fetchverifiedsignals.Config{
		Timeout:      15 * time.Second,
		CacheEnabled: true,
		CacheTTL:     2 * time.Minute,
	}, db, rdb, log)

	result, err := handler.Execute(ctx, &fetchverifiedsignals.Input{ApplicantID: testApplicantID})
	require.NoError(t, err)
	assert.Equal(t, testApplicantID, result.ApplicantID)
	assert.GreaterOrEqual(t, result.SignalCount, 4, "seed data has 4 signal categories")

	// Second call should come from the Redis cache.
	cached, err := handler.Execute(ctx, &fetchverifiedsignals.Input{ApplicantID: testApplicantID})
	require.NoError(t, err)
	assert.True(t, cached.FromCache)

	// Unknown applicants are a terminal business error.
	_, err = handler.Execute(ctx, &fetchverifiedsignals.Input{ApplicantID: "no-such-applicant"})
	assert.ErrorIs(t, err, fetchverifiedsignals.ErrApplicantNotFound)

	return result.VerifiedSignals
}

func runCalculateScore(t *testing.T, ctx context.Context, engine *scoring.Engine, rdb *redis.Client, log logger.Logger, verified map[string]interface{}) *models.ScoreResult {
	require.NotNil(t, verified, "fetch step must run first")

	handler := calculatetidescore.NewHandler(&calculatetidescore.Config{
		Timeout:      10 * time.Second,
		CacheEnabled: false,
	}, engine, rdb, log)

	raw, err := json.Marshal(verified)
	require.NoError(t, err)

	result, err := handler.Execute(ctx, &calculatetidescore.Input{
		ApplicantID:     testApplicantID,
		VerifiedSignals: raw,
	})
	require.NoError(t, err)
	require.NotNil(t, result.ScoreResult)

	assert.GreaterOrEqual(t, result.ScoreResult.ScaledScore, 300)
	assert.LessOrEqual(t, result.ScoreResult.ScaledScore, 850)
	assert.NotEmpty(t, result.ScoreResult.RiskLevel)
	assert.Equal(t, engine.ModelVersion(), result.ModelVersion)

	return result.ScoreResult
}

func runPersistRecord(t *testing.T, ctx context.Context, db *sql.DB, modelVersion string, log logger.Logger, scoreResult *models.ScoreResult) string {
	require.NotNil(t, scoreResult, "calculate step must run first")

	handler := persistscorerecord.NewHandler(&persistscorerecord.Config{
		Timeout: 10 * time.Second,
	}, db, log)

	input := &persistscorerecord.Input{
		ApplicantID:  testApplicantID,
		ScoreResult:  scoreResult,
		ModelVersion: modelVersion,
	}

	result, err := handler.Execute(ctx, input)
	require.NoError(t, err)
	assert.NotEmpty(t, result.ScoreRecordID)

	// Re-delivery of the same job must not create a second record.
	again, err := handler.Execute(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, "duplicate", again.Status)
	assert.Equal(t, result.ScoreRecordID, again.ScoreRecordID)

	return result.ScoreRecordID
}

func runSendNotification(t *testing.T, ctx context.Context, db *sql.DB, log logger.Logger, recordID string, scoreResult *models.ScoreResult) {
	require.NotNil(t, scoreResult, "calculate step must run first")

	// Channels stay disabled so the test never reaches AWS.
	handler, err := sendscorenotification.NewHandler(&sendscorenotification.Config{
		EmailEnabled: false,
		SMSEnabled:   false,
		Timeout:      30 * time.Second,
	}, db, log)
	require.NoError(t, err)

	result, err := handler.Execute(ctx, &sendscorenotification.Input{
		ApplicantID:   testApplicantID,
		ScoreRecordID: recordID,
		ScaledScore:   scoreResult.ScaledScore,
		RiskLevel:     string(scoreResult.RiskLevel),
		Suggestions:   scoreResult.Suggestions,
	})
	require.NoError(t, err)
	assert.Equal(t, sendscorenotification.StatusDisabled, result.Status)
	assert.Empty(t, result.Channels)
}

func runIndexEvent(t *testing.T, ctx context.Context, es *elasticsearch.Client, modelVersion string, log logger.Logger, recordID string, scoreResult *models.ScoreResult) {
	require.NotNil(t, scoreResult, "calculate step must run first")

	handler := indexscoreevent.NewHandler(&indexscoreevent.Config{
		EventIndex: "tidescore-events-e2e",
		Timeout:    15 * time.Second,
	}, es, log)

	result, err := handler.Execute(ctx, &indexscoreevent.Input{
		ApplicantID:   testApplicantID,
		ScoreRecordID: recordID,
		ScaledScore:   scoreResult.ScaledScore,
		RiskLevel:     string(scoreResult.RiskLevel),
		ModelVersion:  modelVersion,
		Breakdown:     scoreResult.Breakdown,
		Metadata:      map[string]string{"source": "e2e"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.EventID)
	assert.Equal(t, "tidescore-events-e2e", result.Index)
}

// ==========================
// Benchmark Tests
// ==========================
func BenchmarkHandler_CalculateTideScore(b *testing.B) {
	engine, err := scoring.New(scoring.DefaultModel())
	if err != nil {
		b.Fatal(err)
	}

	handler := calculatetidescore.NewHandler(&calculatetidescore.Config{
		Timeout:      10 * time.Second,
		CacheEnabled: false,
	}, engine, nil, logger.NewStructured("error", "json"))

	input := &calculatetidescore.Input{
		ApplicantID: testApplicantID,
		VerifiedSignals: json.RawMessage(`{
			"Airtime & Data": {"status": "Verified", "spend_month_1": 12000, "spend_month_2": 14500, "spend_month_3": 11000},
			"Bank Activity": {"status": "Verified", "avg_monthly_inflow": 250000, "months_active": 18, "no_negative_flags": true},
			"Guarantors": {"status": "Verified", "guarantor_1_verified": true, "guarantor_2_verified": true}
		}`),
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		handler.Execute(context.Background(), input)
	}
}

func BenchmarkHandler_ValidateApplicantSignals(b *testing.B) {
	handler := validateapplicantsignals.NewHandler(&validateapplicantsignals.Config{
		Timeout: 10 * time.Second,
	}, logger.NewStructured("error", "json"))

	input := &validateapplicantsignals.Input{
		ApplicantID: testApplicantID,
		Signals: json.RawMessage(`{
			"Airtime & Data": {"status": "Verified", "spend_month_1": 12000, "spend_month_2": 14500, "spend_month_3": 11000},
			"Bill Payments": {"status": "Verified", "electricity_verified": true, "rent_verified": true}
		}`),
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		handler.Execute(context.Background(), input)
	}
}
