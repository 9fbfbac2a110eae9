package sourcing

import (
	"math"
	"strings"
)

const (
	titleMatchBonus = 2.0
	skillMatchBonus = 2.0
	seniorityBonus  = 1.0

	// SeniorYears is the experience threshold for the seniority bonus.
	SeniorYears = 5
	// SeniorFollowers is the follower/connection count treated as equivalent to SeniorYears.
	SeniorFollowers = 500
)

// Scorer assigns an estimated fit to a normalized candidate.
type Scorer interface {
	Score(c CandidateProfile, req SearchRequest) float64
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(c CandidateProfile, req SearchRequest) float64

func (f ScorerFunc) Score(c CandidateProfile, req SearchRequest) float64 { return f(c, req) }

// HeuristicScorer is the deterministic default scorer.
var HeuristicScorer Scorer = ScorerFunc(Score)

// Score computes the heuristic fit of c for req, always within [0, 10].
func Score(c CandidateProfile, req SearchRequest) float64 {
	score := DefaultFit

	keywords := strings.ToLower(strings.TrimSpace(req.Keywords))
	if keywords != "" && strings.Contains(strings.ToLower(c.Title), keywords) {
		score += titleMatchBonus
	}

	if total := len(req.Skills); total > 0 {
		matched := 0
		for _, skill := range req.Skills {
			if c.HasSkill(skill) {
				matched++
			}
		}
		score += math.Min(float64(matched)/float64(total)*skillMatchBonus, skillMatchBonus)
	}

	if c.ExperienceYears >= SeniorYears || c.Followers >= SeniorFollowers {
		score += seniorityBonus
	}

	return clamp(score)
}

func clamp(score float64) float64 {
	if math.IsNaN(score) {
		return DefaultFit
	}
	return math.Max(MinFit, math.Min(MaxFit, score))
}
