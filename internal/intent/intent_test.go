package intent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spigell/candidate-scout/internal/sourcing"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		text     string
		trade    string
		keywords string
		location string
		certs    []string
		level    sourcing.ExperienceLevel
		limit    int
	}{
		{
			name:     "full query",
			text:     "Find 10 senior electricians in Tampa, FL with OSHA 30",
			trade:    "electrician",
			keywords: "electrician",
			location: "Tampa, FL",
			certs:    []string{"OSHA 30"},
			level:    sourcing.LevelSenior,
			limit:    10,
		},
		{
			name:     "specific certification hides the generic one",
			text:     "experienced plumber near Austin with EPA 608 and 15+ years",
			trade:    "plumber",
			keywords: "plumber",
			location: "Austin",
			certs:    []string{"EPA 608"},
			level:    sourcing.LevelSenior,
		},
		{
			name:     "junior with count",
			text:     "junior welder, 3 candidates",
			trade:    "welder",
			keywords: "welder",
			level:    sourcing.LevelJunior,
			limit:    3,
		},
		{
			name:     "years imply level",
			text:     "carpenter with 12 years experience",
			trade:    "carpenter",
			keywords: "carpenter",
			level:    sourcing.LevelSenior,
		},
		{
			name:     "location stops at vocabulary",
			text:     "roofers in Miami OSHA 10 required",
			trade:    "roofer",
			keywords: "roofer",
			location: "Miami",
			certs:    []string{"OSHA 10"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Parse(tt.text)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Trade != tt.trade || got.Keywords != tt.keywords {
				t.Fatalf("unexpected trade/keywords %q/%q", got.Trade, got.Keywords)
			}
			if got.Location != tt.location {
				t.Fatalf("expected location %q, got %q", tt.location, got.Location)
			}
			if strings.Join(got.Certifications, ",") != strings.Join(tt.certs, ",") {
				t.Fatalf("expected certifications %v, got %v", tt.certs, got.Certifications)
			}
			if got.ExperienceLevel != tt.level {
				t.Fatalf("expected level %q, got %q", tt.level, got.ExperienceLevel)
			}
			if got.ResultLimit != tt.limit {
				t.Fatalf("expected limit %d, got %d", tt.limit, got.ResultLimit)
			}
			if err := got.Request().Validate(); err != nil {
				t.Fatalf("expected a valid request, got %v", err)
			}
		})
	}
}

func TestParseWithoutTradeKeepsCleanedText(t *testing.T) {
	got, err := Parse("need someone who knows solar panel installs in Denver")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Trade != "" || got.Location != "Denver" {
		t.Fatalf("unexpected intent %+v", got)
	}
	if !strings.Contains(got.Keywords, "solar panel") || strings.Contains(got.Keywords, "denver") {
		t.Fatalf("unexpected keywords %q", got.Keywords)
	}
	if len(got.Suggestions) == 0 || !strings.Contains(got.Suggestions[len(got.Suggestions)-1], "Mention the trade") {
		t.Fatalf("expected a narrowing suggestion, got %v", got.Suggestions)
	}
}

func TestParseEmpty(t *testing.T) {
	if _, err := (Heuristic{}).Parse(context.Background(), "  "); !errors.Is(err, sourcing.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestRequestMergesCertifications(t *testing.T) {
	req := Intent{
		Keywords:       "hvac technician",
		Skills:         []string{"EPA 608", "ductwork"},
		Certifications: []string{"epa 608", "OSHA 10"},
	}.Request()

	if strings.Join(req.Skills, "|") != "EPA 608|ductwork|OSHA 10" {
		t.Fatalf("unexpected skills %v", req.Skills)
	}
}

func TestTips(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text   string
		expect []string
	}{
		{text: "electricians in Tampa", expect: []string{"licensed"}},
		{text: "licensed electrician in Tampa"},
		{text: "hvac electrician", expect: []string{"licensed", "EPA certified"}},
		{text: "HVAC tech with EPA 608"},
		{text: "solar installer"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()
			got := Tips(tt.text)
			if len(got) != len(tt.expect) {
				t.Fatalf("expected %d tips, got %q", len(tt.expect), got)
			}
			for i, keyword := range tt.expect {
				if !strings.Contains(got[i], `"`+keyword+`"`) {
					t.Fatalf("expected tip %d to mention %q, got %q", i, keyword, got[i])
				}
			}
		})
	}
}
