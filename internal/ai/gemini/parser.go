package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/candidate-scout/internal/intent"
	"github.com/spigell/candidate-scout/internal/logger"
	"github.com/spigell/candidate-scout/internal/sourcing"
	"github.com/spigell/candidate-scout/internal/utils"
)

//go:embed intent_prompt.md
var intentPromptTemplate string

// maxQueryRunes bounds the recruiter text placed into the prompt.
const maxQueryRunes = 1000

// IntentParser asks the model to structure a recruiter's request.
type IntentParser struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewIntentParser(generator contentGenerator, maxLogLength int, log *zap.Logger) *IntentParser {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	return &IntentParser{
		generator: generator,
		logger:    logger.WithCommonFields(log, Provider, generator.Model()),
		maxLogLen: maxLogLength,
	}
}

// Parse implements intent.Parser. Trade detection and suggestions still come from
// the keyword tables so both parsers describe results the same way.
func (p *IntentParser) Parse(ctx context.Context, text string) (intent.Intent, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return intent.Intent{}, fmt.Errorf("%w: query text must not be empty", sourcing.ErrInvalidRequest)
	}

	prompt := strings.ReplaceAll(intentPromptTemplate, "{{QUERY}}", utils.TruncateRunes(text, maxQueryRunes))
	p.logger.Debug("gemini intent request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, p.maxLogLen)),
	)

	raw, err := p.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return intent.Intent{}, err
	}
	p.logger.Debug("gemini intent response", zap.String("response_preview", utils.TruncateForLog(raw, p.maxLogLen)))

	var data map[string]any
	if err := json.Unmarshal([]byte(extractJSON(raw)), &data); err != nil {
		return intent.Intent{}, fmt.Errorf("parse gemini intent: %w", err)
	}

	keywords := coerceString(data["keywords"])
	if keywords == "" {
		return intent.Intent{}, errors.New("gemini intent has no keywords")
	}

	level := sourcing.ParseLevel(coerceString(data["experience_level"]))
	if !level.Valid() {
		p.logger.Debug("dropping unknown experience level", zap.String("level", string(level)))
		level = ""
	}

	limit := coerceFloat(data["result_limit"])
	if math.IsNaN(limit) || limit < 0 {
		limit = 0
	}

	in := intent.Intent{
		Text:            text,
		Keywords:        strings.ToLower(keywords),
		Location:        coerceString(data["location"]),
		Skills:          coerceStrings(data["skills"]),
		Certifications:  coerceStrings(data["certifications"]),
		ExperienceLevel: level,
		ResultLimit:     int(limit),
	}
	if heuristic, err := intent.Parse(text); err == nil {
		in.Trade = heuristic.Trade
		in.Suggestions = heuristic.Suggestions
	}
	return in, nil
}
