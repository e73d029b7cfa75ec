// internal/scoring/engine.go
package scoring

import (
	"errors"
	"fmt"
	"math"

	"tidescore-workers/internal/models"
)

// ErrInvalidSignals marks structurally invalid input. It is distinct from
// merely incomplete input, which scores at the bottom of the range.
var ErrInvalidSignals = errors.New("invalid applicant signals")

// Engine computes TideScore results for one model version. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	model      ModelConfig
	evaluators []evaluator // index-aligned with model.Categories
}

func New(model ModelConfig) (*Engine, error) {
	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model config: %w", err)
	}

	evals := make([]evaluator, len(model.Categories))
	for i, c := range model.Categories {
		ev, ok := evaluatorFor(c.Name)
		if !ok {
			return nil, fmt.Errorf("invalid model config: no evaluator for category %q", c.Name)
		}
		evals[i] = ev
	}

	return &Engine{model: model, evaluators: evals}, nil
}

// Default returns an engine for DefaultModel.
func Default() *Engine {
	e, err := New(DefaultModel())
	if err != nil {
		panic(err)
	}
	return e
}

func (e *Engine) ModelVersion() string {
	return e.model.Version
}

func (e *Engine) Model() ModelConfig {
	return e.model
}

// Score evaluates one applicant's aggregated signals. The input must be a
// mapping of category name to metrics record; categories absent from the
// input evaluate against an empty record and score zero. Anything that is
// not such a mapping returns ErrInvalidSignals.
func (e *Engine) Score(raw interface{}) (*models.ScoreResult, error) {
	signals, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: expected an object of category records, got %T", ErrInvalidSignals, raw)
	}

	breakdown := make(models.Breakdown, 0, len(e.model.Categories))
	composite := 0.0
	for i, c := range e.model.Categories {
		metrics, err := categoryMetrics(signals, c.Name)
		if err != nil {
			return nil, err
		}
		sub := e.evaluators[i](metrics)
		composite += c.Weight * float64(sub)
		breakdown = append(breakdown, models.CategoryScore{
			Category: c.Name,
			SubScore: sub,
			Metrics:  metrics,
		})
	}

	scaled := e.scale(composite)
	return &models.ScoreResult{
		ScaledScore: scaled,
		RiskLevel:   e.classify(scaled),
		Breakdown:   breakdown,
		Suggestions: e.suggestions(breakdown),
	}, nil
}

func categoryMetrics(signals map[string]interface{}, name string) (map[string]interface{}, error) {
	raw, present := signals[name]
	if !present || raw == nil {
		return map[string]interface{}{}, nil
	}
	metrics, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: category %q is not an object", ErrInvalidSignals, name)
	}
	return metrics, nil
}

// scale maps the weighted composite in [0,100] onto the published range.
func (e *Engine) scale(composite float64) int {
	if composite < 0 {
		composite = 0
	}
	if composite > 100 {
		composite = 100
	}
	span := float64(e.model.ScaleMax - e.model.ScaleMin)
	return e.model.ScaleMin + int(math.Round(composite/100*span))
}

func (e *Engine) classify(scaled int) models.RiskLevel {
	for _, band := range e.model.RiskBands {
		if scaled >= band.MinScore {
			return band.Level
		}
	}
	// Validate anchors the last band at ScaleMin, so this is unreachable
	// for in-range scores.
	return e.model.RiskBands[len(e.model.RiskBands)-1].Level
}
