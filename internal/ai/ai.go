// Package ai holds the provider-agnostic parts of model-backed ranking and query parsing.
package ai

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/spigell/candidate-scout/internal/intent"
	"github.com/spigell/candidate-scout/internal/sourcing"
)

const (
	// MaxFitScore is the upper bound of the model's fit scale.
	MaxFitScore = 100.0
	// ReasonKey is the raw_extras key holding the model's explanation.
	ReasonKey = "ai_reason"
)

// Assessment is a model verdict on one candidate of a ranking batch.
type Assessment struct {
	Index    int
	FitScore float64
	Reason   string
}

// Apply copies candidates and writes the assessments back onto them. Fit scores on the
// 0-100 scale become estimated_fit on the 0-10 scale. Candidates without a valid
// assessment keep their current score.
func Apply(candidates []sourcing.CandidateProfile, assessments []Assessment) []sourcing.CandidateProfile {
	out := make([]sourcing.CandidateProfile, len(candidates))
	copy(out, candidates)

	for _, a := range assessments {
		if a.Index < 0 || a.Index >= len(out) || math.IsNaN(a.FitScore) {
			continue
		}
		c := &out[a.Index]
		c.EstimatedFit = math.Max(0, math.Min(a.FitScore, MaxFitScore)) * sourcing.MaxFit / MaxFitScore

		extras := make(map[string]any, len(c.RawExtras)+1)
		for k, v := range c.RawExtras {
			extras[k] = v
		}
		if a.Reason != "" {
			extras[ReasonKey] = a.Reason
		}
		c.RawExtras = extras
	}
	return out
}

// FallbackParser tries Primary and uses Fallback when it fails.
type FallbackParser struct {
	Primary  intent.Parser
	Fallback intent.Parser
	Logger   *zap.Logger
}

func (p FallbackParser) Parse(ctx context.Context, text string) (intent.Intent, error) {
	fallback := p.Fallback
	if fallback == nil {
		fallback = intent.Heuristic{}
	}
	if p.Primary == nil {
		return fallback.Parse(ctx, text)
	}

	in, err := p.Primary.Parse(ctx, text)
	if err == nil && in.Request().Validate() == nil {
		return in, nil
	}

	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Warn("model query parsing failed, using keyword parser", zap.Error(err))
	return fallback.Parse(ctx, text)
}
