package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/candidate-scout/internal/ai"
	"github.com/spigell/candidate-scout/internal/logger"
	"github.com/spigell/candidate-scout/internal/sourcing"
	"github.com/spigell/candidate-scout/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

//go:embed rank_prompt.md
var rankPromptTemplate string

const (
	defaultMaxLogLength = 200
	// maxSummaryRunes bounds each candidate summary sent to the model.
	maxSummaryRunes = 300
)

// Ranker scores a batch of candidates in a single model call.
type Ranker struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewRanker(generator contentGenerator, maxLogLength int, log *zap.Logger) *Ranker {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Ranker{
		generator: generator,
		logger:    logger.WithCommonFields(log, Provider, generator.Model()),
		maxLogLen: maxLogLength,
	}
}

type promptCandidate struct {
	Index    int      `json:"index"`
	Name     string   `json:"name,omitempty"`
	Title    string   `json:"title,omitempty"`
	Location string   `json:"location,omitempty"`
	Skills   []string `json:"skills,omitempty"`
	Summary  string   `json:"summary,omitempty"`
	Source   string   `json:"source"`
	Years    int      `json:"experience_years,omitempty"`
}

// Rank implements sourcing.Ranker. The returned slice has the same length and order as the input.
func (r *Ranker) Rank(ctx context.Context, candidates []sourcing.CandidateProfile, req sourcing.SearchRequest) ([]sourcing.CandidateProfile, error) {
	if len(candidates) == 0 {
		return candidates, nil
	}

	payload := make([]promptCandidate, 0, len(candidates))
	for i, c := range candidates {
		payload = append(payload, promptCandidate{
			Index:    i,
			Name:     c.Name,
			Title:    c.Title,
			Location: c.Location,
			Skills:   c.Skills,
			Summary:  utils.TruncateRunes(c.Summary, maxSummaryRunes),
			Source:   c.Source,
			Years:    c.ExperienceYears,
		})
	}

	candidatesJSON, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal candidates payload: %w", err)
	}

	prompt := buildRankPrompt(req, string(candidatesJSON))
	r.logger.Debug("gemini rank request",
		zap.Int("candidates", len(candidates)),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, r.maxLogLen)),
	)

	raw, err := r.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("gemini rank response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, r.maxLogLen)),
	)

	assessments, err := parseRanking(raw)
	if err != nil {
		return nil, err
	}

	return ai.Apply(candidates, assessments), nil
}

func buildRankPrompt(req sourcing.SearchRequest, candidatesJSON string) string {
	template := rankPromptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Search: {{KEYWORDS}} {{LOCATION}} {{SKILLS}} {{LEVEL}}\n\nCandidates:\n{{CANDIDATES_JSON}}\n\nJSON Response:"
	}

	return strings.NewReplacer(
		"{{KEYWORDS}}", req.Keywords,
		"{{LOCATION}}", orNone(req.Location),
		"{{SKILLS}}", orNone(strings.Join(req.Skills, ", ")),
		"{{LEVEL}}", orNone(string(req.ExperienceLevel)),
		"{{CANDIDATES_JSON}}", candidatesJSON,
	).Replace(template)
}

func parseRanking(raw string) ([]ai.Assessment, error) {
	cleaned := extractJSON(raw)

	var items []map[string]any
	if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
		// Some answers wrap the array in an object.
		var wrapped map[string][]map[string]any
		if werr := json.Unmarshal([]byte(cleaned), &wrapped); werr != nil || len(wrapped) != 1 {
			return nil, fmt.Errorf("parse gemini ranking: %w", err)
		}
		for _, v := range wrapped {
			items = v
		}
	}

	out := make([]ai.Assessment, 0, len(items))
	for _, item := range items {
		index := coerceFloat(item["index"])
		score := coerceFloat(item["fit_score"])
		if math.IsNaN(index) || math.IsNaN(score) {
			continue
		}
		out = append(out, ai.Assessment{
			Index:    int(index),
			FitScore: score,
			Reason:   coerceString(item["reason"]),
		})
	}
	return out, nil
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "none"
	}
	return s
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case nil:
		return ""
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

func coerceStrings(v any) []string {
	switch val := v.(type) {
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s := coerceString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		var out []string
		for _, part := range strings.Split(val, ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
