// internal/scoring/evaluators_test.go
package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateAirtime(t *testing.T) {
	tests := []struct {
		name     string
		metrics  map[string]interface{}
		expected int
	}{
		{
			name:     "empty record",
			metrics:  map[string]interface{}{},
			expected: 0,
		},
		{
			name: "unverified scores zero regardless of spend",
			metrics: map[string]interface{}{
				"status":        "Unverified",
				"spend_month_1": 20000,
				"spend_month_2": 20000,
				"spend_month_3": 20000,
			},
			expected: 0,
		},
		{
			name: "fraudulent scores zero",
			metrics: map[string]interface{}{
				"status":        "Fraudulent",
				"spend_month_1": 20000,
				"spend_month_2": 20000,
				"spend_month_3": 20000,
			},
			expected: 0,
		},
		{
			name: "high consistent spend",
			metrics: map[string]interface{}{
				"status":        "Verified",
				"spend_month_1": 16000,
				"spend_month_2": 15000,
				"spend_month_3": 15500,
			},
			expected: 100,
		},
		{
			name: "high average but one dead month loses consistency",
			metrics: map[string]interface{}{
				"status":        "Verified",
				"spend_month_1": 30000,
				"spend_month_2": 16000,
				"spend_month_3": 500,
			},
			expected: 80,
		},
		{
			name: "comma formatted strings parse",
			metrics: map[string]interface{}{
				"status":        "Verified",
				"spend_month_1": "10,500",
				"spend_month_2": "11,000",
				"spend_month_3": "9,800",
			},
			expected: 80,
		},
		{
			name: "negative spend clamps to zero",
			metrics: map[string]interface{}{
				"status":        "Verified",
				"spend_month_1": -5000,
				"spend_month_2": 3000,
				"spend_month_3": 3000,
			},
			expected: 15,
		},
		{
			name: "malformed spend values degrade to zero",
			metrics: map[string]interface{}{
				"status":        "Verified",
				"spend_month_1": "a lot",
				"spend_month_2": nil,
				"spend_month_3": 7000,
			},
			expected: 15,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, evaluateAirtime(tt.metrics))
		})
	}
}

func TestEvaluateBills(t *testing.T) {
	tests := []struct {
		name     string
		metrics  map[string]interface{}
		expected int
	}{
		{
			name: "single non-anchor bill",
			metrics: map[string]interface{}{
				"status":        "Verified",
				"dstv_verified": true,
			},
			expected: 15,
		},
		{
			name: "single anchor bill earns bonus",
			metrics: map[string]interface{}{
				"status":               "Verified",
				"electricity_verified": "Yes",
			},
			expected: 30,
		},
		{
			name: "three bills with rent",
			metrics: map[string]interface{}{
				"status":            "Verified",
				"rent_verified":     true,
				"water_verified":    true,
				"internet_verified": true,
			},
			expected: 75,
		},
		{
			name: "all five bills",
			metrics: map[string]interface{}{
				"status":               "Verified",
				"electricity_verified": true,
				"dstv_verified":        true,
				"internet_verified":    true,
				"water_verified":       true,
				"rent_verified":        true,
			},
			expected: 100,
		},
		{
			name: "unverified status gates everything",
			metrics: map[string]interface{}{
				"status":               "Unverified",
				"electricity_verified": true,
				"rent_verified":        true,
			},
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, evaluateBills(tt.metrics))
		})
	}
}

func TestEvaluateP2P(t *testing.T) {
	tests := []struct {
		name     string
		metrics  map[string]interface{}
		expected int
	}{
		{
			name: "minimal activity",
			metrics: map[string]interface{}{
				"status":                         "Verified",
				"unique_verified_counterparties": 1,
			},
			expected: 10,
		},
		{
			name: "counterparties as float from JSON",
			metrics: map[string]interface{}{
				"status":                         "Verified",
				"unique_verified_counterparties": 8.0,
				"total_value":                    55000.0,
			},
			expected: 70,
		},
		{
			name: "maxed out",
			metrics: map[string]interface{}{
				"status":                         "Verified",
				"unique_verified_counterparties": 12,
				"total_value":                    250000,
				"consistent_across_months":       true,
			},
			expected: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, evaluateP2P(tt.metrics))
		})
	}
}

func TestEvaluateBank(t *testing.T) {
	tests := []struct {
		name     string
		metrics  map[string]interface{}
		expected int
	}{
		{
			name: "deposits only",
			metrics: map[string]interface{}{
				"status":                    "Verified",
				"consistent_deposit_months": 4,
			},
			expected: 30,
		},
		{
			name: "clean account with strong balance",
			metrics: map[string]interface{}{
				"status":                    "Verified",
				"consistent_deposit_months": 5,
				"avg_monthly_balance":       100000,
				"no_negative_flags":         true,
			},
			expected: 100,
		},
		{
			name: "negative flags cost the bonus",
			metrics: map[string]interface{}{
				"status":                    "Verified",
				"consistent_deposit_months": 5,
				"avg_monthly_balance":       100000,
				"no_negative_flags":         false,
			},
			expected: 75,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, evaluateBank(tt.metrics))
		})
	}
}

func TestEvaluatePersonal(t *testing.T) {
	tests := []struct {
		name     string
		metrics  map[string]interface{}
		expected int
	}{
		{
			name: "unverified employment earns nothing for status",
			metrics: map[string]interface{}{
				"employment_verified": false,
				"employment_status":   "full-time",
			},
			expected: 0,
		},
		{
			name: "verified but unrecognized status gets floor points",
			metrics: map[string]interface{}{
				"employment_verified": true,
				"employment_status":   "gig work",
			},
			expected: 10,
		},
		{
			name: "full profile",
			metrics: map[string]interface{}{
				"employment_verified": "Yes",
				"employment_status":   "Full-Time",
				"residency_verified":  "Yes",
				"education_level":     "University",
			},
			expected: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, evaluatePersonal(tt.metrics))
		})
	}
}

func TestEvaluateGuarantors(t *testing.T) {
	tests := []struct {
		name     string
		metrics  map[string]interface{}
		expected int
	}{
		{
			name:     "no guarantors",
			metrics:  map[string]interface{}{},
			expected: 0,
		},
		{
			name: "one verified weak relationship",
			metrics: map[string]interface{}{
				"guarantor_1_verified":     true,
				"guarantor_1_relationship": "friend",
			},
			expected: 30,
		},
		{
			name: "one verified strong relationship",
			metrics: map[string]interface{}{
				"guarantor_1_verified":     true,
				"guarantor_1_relationship": "employer",
			},
			expected: 45,
		},
		{
			name: "unverified guarantor relationship ignored",
			metrics: map[string]interface{}{
				"guarantor_1_verified":     false,
				"guarantor_1_relationship": "family",
				"guarantor_2_verified":     true,
				"guarantor_2_relationship": "spouse",
			},
			expected: 45,
		},
		{
			name: "both verified both strong",
			metrics: map[string]interface{}{
				"guarantor_1_verified":     true,
				"guarantor_1_relationship": "parent",
				"guarantor_2_verified":     true,
				"guarantor_2_relationship": "employer",
			},
			expected: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, evaluateGuarantors(tt.metrics))
		})
	}
}
