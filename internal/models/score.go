// internal/models/score.go
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RiskLevel is one of the ordered risk buckets a scaled score falls into.
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskModerate RiskLevel = "Moderate"
	RiskHigh     RiskLevel = "High"
	RiskVeryHigh RiskLevel = "Very High"
)

// CategoryScore is the per-category slice of a score breakdown.
type CategoryScore struct {
	Category string                 `json:"-"`
	SubScore int                    `json:"sub_score"`
	Metrics  map[string]interface{} `json:"metrics"`
}

// Breakdown keeps category entries in a fixed order. It marshals to a JSON
// object whose keys appear in that order, so two identical scoring runs
// produce byte-identical payloads.
type Breakdown []CategoryScore

type breakdownEntry struct {
	SubScore int                    `json:"sub_score"`
	Metrics  map[string]interface{} `json:"metrics"`
}

func (b Breakdown) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, cs := range b {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(cs.Category)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		entry, err := json.Marshal(breakdownEntry{SubScore: cs.SubScore, Metrics: cs.Metrics})
		if err != nil {
			return nil, err
		}
		buf.Write(entry)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON walks the object token by token so the original key order
// survives the round trip through process variables.
func (b *Breakdown) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("breakdown must be a JSON object")
	}

	out := Breakdown{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("breakdown key must be a string")
		}
		var entry breakdownEntry
		if err := dec.Decode(&entry); err != nil {
			return err
		}
		out = append(out, CategoryScore{Category: key, SubScore: entry.SubScore, Metrics: entry.Metrics})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*b = out
	return nil
}

func (b Breakdown) Get(category string) (CategoryScore, bool) {
	for _, cs := range b {
		if cs.Category == category {
			return cs, true
		}
	}
	return CategoryScore{}, false
}

// ScoreResult is the outbound scoring contract. Field names and shapes are
// consumed by downstream workers and the dashboard; changes must stay
// additive.
type ScoreResult struct {
	ScaledScore int       `json:"scaled_score"`
	RiskLevel   RiskLevel `json:"risk_level"`
	Breakdown   Breakdown `json:"breakdown"`
	Suggestions []string  `json:"suggestions"`
}

// ScoreRecord is the persisted form of a completed scoring run.
type ScoreRecord struct {
	ID           string    `json:"id"`
	ApplicantID  string    `json:"applicantId"`
	ScaledScore  int       `json:"scaledScore"`
	RiskLevel    RiskLevel `json:"riskLevel"`
	ModelVersion string    `json:"modelVersion"`
	CreatedAt    string    `json:"createdAt"`
}
