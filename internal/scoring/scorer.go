// Package scoring turns a lead's qualification signals into a 0-100 score
// and a Hot/Warm/Cold tier.
package scoring

import (
	"fmt"
	"math"

	"github.com/stwalsh4118/estatedesk/internal/models"
)

// Component weights and caps
const (
	signalWeight  = 0.4
	signalCap     = 40.0
	regionBonus   = 10.0
	propertyBonus = 10.0
	maxScore      = 100.0
)

// Canonical tier thresholds
const (
	DefaultHot  = 75
	DefaultWarm = 50
)

// Thresholds are the minimum scores for the Hot and Warm tiers.
type Thresholds struct {
	Hot  int
	Warm int
}

// DefaultThresholds returns the canonical 75/50 split.
func DefaultThresholds() Thresholds {
	return Thresholds{Hot: DefaultHot, Warm: DefaultWarm}
}

// Validate checks that Warm < Hot and both lie in 0-100.
func (t Thresholds) Validate() error {
	if t.Warm < 0 || t.Hot > int(maxScore) {
		return fmt.Errorf("thresholds must be within 0-100, got hot=%d warm=%d", t.Hot, t.Warm)
	}
	if t.Warm >= t.Hot {
		return fmt.Errorf("warm threshold %d must be below hot threshold %d", t.Warm, t.Hot)
	}
	return nil
}

// Signals are the optional inputs to the scorer. Missing values contribute zero.
type Signals struct {
	BudgetFit    *float64 `json:"budget_fit,omitempty"`
	Readiness    *float64 `json:"readiness,omitempty"`
	RegionMatch  *bool    `json:"region_match,omitempty"`
	PropertyCode *string  `json:"property_code,omitempty"`
}

// SignalsFromLead extracts the scoring inputs from a stored lead.
func SignalsFromLead(lead models.Lead) Signals {
	return Signals{
		BudgetFit:    lead.BudgetFit,
		Readiness:    lead.Readiness,
		RegionMatch:  lead.RegionMatch,
		PropertyCode: lead.PropertyCode,
	}
}

// Breakdown exposes each component's contribution next to the final result.
type Breakdown struct {
	models.ScoreResult
	Budget    float64 `json:"budget"`
	Readiness float64 `json:"readiness"`
	Region    float64 `json:"region"`
	Property  float64 `json:"property"`
}

// Scorer computes lead scores. The zero value is not useful; use New.
// A Scorer holds no mutable state and is safe for concurrent use.
type Scorer struct {
	thresholds Thresholds
}

// New creates a Scorer with the given tier thresholds.
func New(thresholds Thresholds) (Scorer, error) {
	if err := thresholds.Validate(); err != nil {
		return Scorer{}, err
	}
	return Scorer{thresholds: thresholds}, nil
}

// Default returns a Scorer using DefaultThresholds.
func Default() Scorer {
	return Scorer{thresholds: DefaultThresholds()}
}

// Thresholds returns the tier thresholds in use.
func (s Scorer) Thresholds() Thresholds {
	return s.thresholds
}

// Score returns the score and tier for the given signals.
func (s Scorer) Score(in Signals) models.ScoreResult {
	return s.Explain(in).ScoreResult
}

// ScoreLead scores a stored lead.
func (s Scorer) ScoreLead(lead models.Lead) models.ScoreResult {
	return s.Score(SignalsFromLead(lead))
}

// Explain returns the score together with its per-component breakdown.
func (s Scorer) Explain(in Signals) Breakdown {
	b := Breakdown{
		Budget:    weighted(in.BudgetFit),
		Readiness: weighted(in.Readiness),
	}
	if in.RegionMatch != nil && *in.RegionMatch {
		b.Region = regionBonus
	}
	if in.PropertyCode != nil && *in.PropertyCode != "" {
		b.Property = propertyBonus
	}

	raw := b.Budget + b.Readiness + b.Region + b.Property
	// the floor keeps negative inputs inside the 0-100 contract
	score := int(math.Round(math.Max(0, math.Min(raw, maxScore))))

	b.Score = score
	b.Label = s.Tier(score)
	return b
}

// Tier maps a score to its label.
func (s Scorer) Tier(score int) models.Tier {
	switch {
	case score >= s.thresholds.Hot:
		return models.TierHot
	case score >= s.thresholds.Warm:
		return models.TierWarm
	default:
		return models.TierCold
	}
}

func weighted(v *float64) float64 {
	if v == nil {
		return 0
	}
	return math.Min(*v*signalWeight, signalCap)
}
