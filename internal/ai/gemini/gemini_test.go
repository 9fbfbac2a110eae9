package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/candidate-scout/internal/ai"
	"github.com/spigell/candidate-scout/internal/sourcing"
)

type stubGenerator struct {
	response   string
	err        error
	lastPrompt string
}

func (s *stubGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	s.lastPrompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubGenerator) Model() string {
	return "stub-model"
}

func testCandidates() []sourcing.CandidateProfile {
	return []sourcing.CandidateProfile{
		{Source: "GitHub", Name: "Ann", Title: "PLC programmer", EstimatedFit: 6},
		{Source: "Indeed", Name: "Bo", Title: "Electrician", Location: "Tampa, FL", EstimatedFit: 7, Summary: strings.Repeat("x", 1000)},
	}
}

func TestRankerRank(t *testing.T) {
	stub := &stubGenerator{response: "```json\n[{\"index\": 1, \"fit_score\": 92, \"reason\": \"Licensed and local\"}, {\"index\": \"0\", \"fit_score\": \"40\"}]\n```"}
	ranker := NewRanker(stub, 0, zap.NewNop())

	req := sourcing.SearchRequest{Keywords: "electrician", Location: "Tampa", Skills: []string{"osha 30"}}
	ranked, err := ranker.Rank(context.Background(), testCandidates(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ranked) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(ranked))
	}
	if ranked[0].EstimatedFit != 4 || ranked[1].EstimatedFit != 9.2 {
		t.Fatalf("unexpected scores %v %v", ranked[0].EstimatedFit, ranked[1].EstimatedFit)
	}
	if ranked[1].RawExtras[ai.ReasonKey] != "Licensed and local" {
		t.Fatalf("expected reason to be stored, got %v", ranked[1].RawExtras)
	}

	for _, want := range []string{"- Role or keywords: electrician", "- Location: Tampa", "- Required skills and certifications: osha 30", "- Experience level: none", `"index": 1`} {
		if !strings.Contains(stub.lastPrompt, want) {
			t.Fatalf("prompt is missing %q: %s", want, stub.lastPrompt)
		}
	}
	if strings.Contains(stub.lastPrompt, strings.Repeat("x", maxSummaryRunes+1)) {
		t.Fatalf("expected summaries to be truncated in the prompt")
	}
}

func TestRankerErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		stub *stubGenerator
	}{
		{name: "generator error", stub: &stubGenerator{err: errors.New("quota")}},
		{name: "not json", stub: &stubGenerator{response: "I think Bo is great"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := NewRanker(tt.stub, 0, nil).Rank(context.Background(), testCandidates(), sourcing.SearchRequest{Keywords: "x"}); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestParseRankingWrappedObject(t *testing.T) {
	got, err := parseRanking(`{"candidates": [{"index": 0, "fit_score": 70, "reason": "ok"}, {"index": 1}]}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].FitScore != 70 {
		t.Fatalf("unexpected assessments %+v", got)
	}
}

func TestIntentParser(t *testing.T) {
	stub := &stubGenerator{response: `{"keywords": "Electrician", "location": "Tampa, FL", "skills": ["conduit"], "certifications": "OSHA 30, State License", "experience_level": "Senior", "result_limit": "15"}`}
	parser := NewIntentParser(stub, 0, zap.NewNop())

	got, err := parser.Parse(context.Background(), "need 15 senior licensed electricians around Tampa with osha 30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.Keywords != "electrician" || got.Location != "Tampa, FL" || got.ExperienceLevel != sourcing.LevelSenior || got.ResultLimit != 15 {
		t.Fatalf("unexpected intent %+v", got)
	}
	if strings.Join(got.Certifications, "|") != "OSHA 30|State License" {
		t.Fatalf("unexpected certifications %v", got.Certifications)
	}
	if got.Trade != "electrician" {
		t.Fatalf("expected trade from keyword tables, got %q", got.Trade)
	}
	if !strings.Contains(stub.lastPrompt, "need 15 senior licensed electricians") {
		t.Fatalf("expected query in prompt")
	}
}

func TestIntentParserRejectsEmptyKeywords(t *testing.T) {
	parser := NewIntentParser(&stubGenerator{response: `{"keywords": "", "experience_level": "guru"}`}, 0, nil)
	if _, err := parser.Parse(context.Background(), "hello"); err == nil {
		t.Fatalf("expected error for missing keywords")
	}
	if _, err := parser.Parse(context.Background(), " "); !errors.Is(err, sourcing.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}
