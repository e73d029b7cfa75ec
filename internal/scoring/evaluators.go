// internal/scoring/evaluators.go
package scoring

import (
	"encoding/json"
	"strconv"
	"strings"
)

// An evaluator maps one category's metrics record to a sub-score in [0,100].
// Evaluators never error: malformed metric values degrade to their zero
// value and an empty record scores zero.
type evaluator func(metrics map[string]interface{}) int

func evaluatorFor(category string) (evaluator, bool) {
	switch category {
	case CategoryPersonal:
		return evaluatePersonal, true
	case CategoryAirtime:
		return evaluateAirtime, true
	case CategoryBills:
		return evaluateBills, true
	case CategoryP2P:
		return evaluateP2P, true
	case CategoryBank:
		return evaluateBank, true
	case CategoryGuarantors:
		return evaluateGuarantors, true
	}
	return nil, false
}

func evaluatePersonal(m map[string]interface{}) int {
	score := 0
	if parseBool(m["employment_verified"]) {
		switch strings.ToLower(parseString(m["employment_status"])) {
		case "full-time", "full time", "employed":
			score += 50
		case "self-employed", "self employed", "business owner":
			score += 35
		case "part-time", "part time", "contract":
			score += 25
		default:
			score += 10
		}
	}
	if parseBool(m["residency_verified"]) {
		score += 25
	}
	switch strings.ToLower(parseString(m["education_level"])) {
	case "tertiary", "university", "polytechnic":
		score += 25
	case "secondary":
		score += 10
	}
	return clamp(score, 0, 100)
}

func evaluateAirtime(m map[string]interface{}) int {
	if !verified(m) {
		return 0
	}

	total := 0.0
	consistent := true
	for _, key := range []string{"spend_month_1", "spend_month_2", "spend_month_3"} {
		spend := parseFloat(m[key])
		if spend < 0 {
			spend = 0
		}
		total += spend
		if spend < 2000 {
			consistent = false
		}
	}
	avg := total / 3

	score := 0
	switch {
	case avg >= 15000:
		score = 80
	case avg >= 10000:
		score = 60
	case avg >= 5000:
		score = 40
	case avg >= 2000:
		score = 15
	}
	if consistent {
		score += 20
	}
	return clamp(score, 0, 100)
}

var billLines = []string{"electricity", "dstv", "internet", "water", "rent"}

func evaluateBills(m map[string]interface{}) int {
	if !verified(m) {
		return 0
	}

	count := 0
	anchor := false
	for _, line := range billLines {
		if !parseBool(m[line+"_verified"]) {
			continue
		}
		count++
		// Rent and electricity are address-bound, so they anchor identity.
		if line == "rent" || line == "electricity" {
			anchor = true
		}
	}

	score := 0
	switch {
	case count >= 4:
		score = 85
	case count == 3:
		score = 60
	case count == 2:
		score = 35
	case count == 1:
		score = 15
	}
	if anchor {
		score += 15
	}
	return clamp(score, 0, 100)
}

func evaluateP2P(m map[string]interface{}) int {
	if !verified(m) {
		return 0
	}

	score := 0
	switch cp := parseInt(m["unique_verified_counterparties"]); {
	case cp >= 8:
		score = 55
	case cp >= 5:
		score = 40
	case cp >= 3:
		score = 25
	case cp >= 1:
		score = 10
	}
	switch total := parseFloat(m["total_value"]); {
	case total >= 100000:
		score += 25
	case total >= 50000:
		score += 15
	case total >= 20000:
		score += 5
	}
	if parseBool(m["consistent_across_months"]) {
		score += 20
	}
	return clamp(score, 0, 100)
}

func evaluateBank(m map[string]interface{}) int {
	if !verified(m) {
		return 0
	}

	score := 0
	switch months := parseInt(m["consistent_deposit_months"]); {
	case months >= 5:
		score = 50
	case months >= 3:
		score = 30
	case months >= 1:
		score = 10
	}
	switch balance := parseFloat(m["avg_monthly_balance"]); {
	case balance >= 100000:
		score += 25
	case balance >= 50000:
		score += 15
	case balance >= 20000:
		score += 5
	}
	if parseBool(m["no_negative_flags"]) {
		score += 25
	}
	return clamp(score, 0, 100)
}

func evaluateGuarantors(m map[string]interface{}) int {
	verifiedCount := 0
	strong := 0
	for _, g := range []string{"guarantor_1", "guarantor_2"} {
		if !parseBool(m[g+"_verified"]) {
			continue
		}
		verifiedCount++
		switch strings.ToLower(parseString(m[g+"_relationship"])) {
		case "family", "parent", "sibling", "spouse", "employer":
			strong++
		}
	}

	score := 0
	switch verifiedCount {
	case 2:
		score = 70
	case 1:
		score = 30
	}
	score += strong * 15
	return clamp(score, 0, 100)
}

// verified gates a category on its admin review status. Anything other than
// "Verified" (including "Fraudulent" and a missing status) contributes
// nothing, so unreviewed data can never raise a score.
func verified(m map[string]interface{}) bool {
	return strings.EqualFold(parseString(m["status"]), "Verified")
}

func parseFloat(raw interface{}) float64 {
	switch v := raw.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
	case string:
		cleaned := strings.ReplaceAll(strings.TrimSpace(v), ",", "")
		if f, err := strconv.ParseFloat(cleaned, 64); err == nil {
			return f
		}
	}
	return 0
}

func parseInt(raw interface{}) int {
	return int(parseFloat(raw))
}

func parseBool(raw interface{}) bool {
	switch v := raw.(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "yes", "true", "y", "1":
			return true
		}
	case float64:
		return v != 0
	}
	return false
}

func parseString(raw interface{}) string {
	if s, ok := raw.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func clamp(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
