// internal/scoring/config.go
package scoring

import (
	"fmt"
	"math"

	"tidescore-workers/internal/models"
)

// Canonical category names. The order they appear in ModelConfig.Categories
// is the canonical order used for breakdowns and suggestion tie-breaks.
const (
	CategoryPersonal   = "Personal & Employment"
	CategoryAirtime    = "Airtime & Data"
	CategoryBills      = "Bill Payments"
	CategoryP2P        = "P2P Transactions"
	CategoryBank       = "Bank Activity"
	CategoryGuarantors = "Guarantors"
)

// CategoryConfig binds a category to its weight in the composite score.
type CategoryConfig struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

// RiskBand maps the lower bound of a scaled-score range to a risk level.
// Bands are listed highest first; the last band anchors at the scale minimum
// so every reachable score lands in exactly one band.
type RiskBand struct {
	MinScore int              `json:"minScore"`
	Level    models.RiskLevel `json:"level"`
}

// ModelConfig is the full set of tunables for one scoring model version.
// Nothing outside this struct influences a score, so any two engines built
// from equal configs produce identical results.
type ModelConfig struct {
	Version           string           `json:"version"`
	ScaleMin          int              `json:"scaleMin"`
	ScaleMax          int              `json:"scaleMax"`
	ImprovementCutoff int              `json:"improvementCutoff"`
	Categories        []CategoryConfig `json:"categories"`
	RiskBands         []RiskBand       `json:"riskBands"`
}

// DefaultModel returns the v1 production model.
func DefaultModel() ModelConfig {
	return ModelConfig{
		Version:           "tidescore-v1",
		ScaleMin:          300,
		ScaleMax:          850,
		ImprovementCutoff: 60,
		Categories: []CategoryConfig{
			{Name: CategoryPersonal, Weight: 0.07},
			{Name: CategoryAirtime, Weight: 0.16},
			{Name: CategoryBills, Weight: 0.23},
			{Name: CategoryP2P, Weight: 0.15},
			{Name: CategoryBank, Weight: 0.27},
			{Name: CategoryGuarantors, Weight: 0.12},
		},
		RiskBands: []RiskBand{
			{MinScore: 700, Level: models.RiskLow},
			{MinScore: 550, Level: models.RiskModerate},
			{MinScore: 425, Level: models.RiskHigh},
			{MinScore: 300, Level: models.RiskVeryHigh},
		},
	}
}

func (m ModelConfig) Validate() error {
	if m.Version == "" {
		return fmt.Errorf("model version is required")
	}
	if m.ScaleMax <= m.ScaleMin {
		return fmt.Errorf("scale max %d must exceed scale min %d", m.ScaleMax, m.ScaleMin)
	}
	if m.ImprovementCutoff < 0 || m.ImprovementCutoff > 100 {
		return fmt.Errorf("improvement cutoff %d out of range [0,100]", m.ImprovementCutoff)
	}

	if len(m.Categories) == 0 {
		return fmt.Errorf("at least one category is required")
	}
	seen := make(map[string]bool, len(m.Categories))
	sum := 0.0
	for _, c := range m.Categories {
		if c.Name == "" {
			return fmt.Errorf("category name is required")
		}
		if seen[c.Name] {
			return fmt.Errorf("duplicate category %q", c.Name)
		}
		seen[c.Name] = true
		if c.Weight <= 0 {
			return fmt.Errorf("category %q weight must be positive", c.Name)
		}
		sum += c.Weight
	}
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("category weights sum to %.6f, want 1.0", sum)
	}

	if len(m.RiskBands) == 0 {
		return fmt.Errorf("at least one risk band is required")
	}
	for i, b := range m.RiskBands {
		if b.Level == "" {
			return fmt.Errorf("risk band %d has no level", i)
		}
		if i > 0 && b.MinScore >= m.RiskBands[i-1].MinScore {
			return fmt.Errorf("risk bands must strictly descend")
		}
	}
	if m.RiskBands[0].MinScore > m.ScaleMax {
		return fmt.Errorf("top risk band starts above scale max")
	}
	if m.RiskBands[len(m.RiskBands)-1].MinScore != m.ScaleMin {
		return fmt.Errorf("lowest risk band must anchor at scale min %d", m.ScaleMin)
	}

	return nil
}
