package sourcing

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

const (
	// DefaultResultLimit is used when a request does not set result_limit.
	DefaultResultLimit = 20
	// DefaultFit is assigned to candidates that can not be scored.
	DefaultFit = 5.0

	MinFit = 0.0
	MaxFit = 10.0
)

// ExperienceLevel is the requested seniority band.
type ExperienceLevel string

const (
	LevelJunior    ExperienceLevel = "junior"
	LevelMid       ExperienceLevel = "mid"
	LevelSenior    ExperienceLevel = "senior"
	LevelExecutive ExperienceLevel = "executive"
)

// Valid reports whether the level is empty or one of the known bands.
func (l ExperienceLevel) Valid() bool {
	switch l {
	case "", LevelJunior, LevelMid, LevelSenior, LevelExecutive:
		return true
	default:
		return false
	}
}

// ParseLevel trims and lower-cases s. The result may still be invalid.
func ParseLevel(s string) ExperienceLevel {
	return ExperienceLevel(strings.ToLower(strings.TrimSpace(s)))
}

// SearchRequest is the structured input of an aggregation.
// It is passed by value to every provider and never modified after validation.
type SearchRequest struct {
	Keywords        string          `json:"job_title_or_keywords" mapstructure:"job_title_or_keywords"`
	Location        string          `json:"location,omitempty" mapstructure:"location"`
	Skills          []string        `json:"skills" mapstructure:"skills"`
	ExperienceLevel ExperienceLevel `json:"experience_level,omitempty" mapstructure:"experience_level"`
	ResultLimit     int             `json:"result_limit" mapstructure:"result_limit"`
}

// Validate checks the request and returns an error wrapping ErrInvalidRequest.
func (r SearchRequest) Validate() error {
	if strings.TrimSpace(r.Keywords) == "" {
		return fmt.Errorf("%w: job_title_or_keywords must not be empty", ErrInvalidRequest)
	}
	if r.ResultLimit < 0 {
		return fmt.Errorf("%w: result_limit must be positive, got %d", ErrInvalidRequest, r.ResultLimit)
	}
	if !ParseLevel(string(r.ExperienceLevel)).Valid() {
		return fmt.Errorf("%w: unknown experience_level %q", ErrInvalidRequest, r.ExperienceLevel)
	}
	return nil
}

// WithDefaults returns a trimmed copy of the request with the default limit applied.
// The skills slice is copied so providers can not share backing arrays.
func (r SearchRequest) WithDefaults() SearchRequest {
	out := SearchRequest{
		Keywords:        strings.TrimSpace(r.Keywords),
		Location:        strings.TrimSpace(r.Location),
		ExperienceLevel: ParseLevel(string(r.ExperienceLevel)),
		ResultLimit:     r.ResultLimit,
	}
	if out.ResultLimit == 0 {
		out.ResultLimit = DefaultResultLimit
	}
	out.Skills = make([]string, 0, len(r.Skills))
	for _, skill := range r.Skills {
		if skill = strings.TrimSpace(skill); skill != "" {
			out.Skills = append(out.Skills, skill)
		}
	}
	return out
}

// Key identifies the request for caching. Skill order and case are ignored.
func (r SearchRequest) Key() string {
	skills := make([]string, 0, len(r.Skills))
	for _, s := range r.Skills {
		skills = append(skills, strings.ToLower(strings.TrimSpace(s)))
	}
	sort.Strings(skills)

	return strings.Join([]string{
		strings.ToLower(strings.TrimSpace(r.Keywords)),
		strings.ToLower(strings.TrimSpace(r.Location)),
		strings.Join(skills, ","),
		strings.ToLower(string(r.ExperienceLevel)),
		fmt.Sprint(r.ResultLimit),
	}, "|")
}

// ProviderFit is an estimate supplied by the provider itself.
type ProviderFit struct {
	Score float64 `json:"score"`
	// Confident marks estimates that should be kept instead of the heuristic score.
	Confident bool `json:"confident"`
}

// CandidateProfile is the canonical record produced by the normalizer.
type CandidateProfile struct {
	Source       string         `json:"source"`
	Name         string         `json:"name,omitempty"`
	FirstName    string         `json:"first_name,omitempty"`
	LastName     string         `json:"last_name,omitempty"`
	Email        string         `json:"email,omitempty"`
	Phone        string         `json:"phone,omitempty"`
	Location     string         `json:"location,omitempty"`
	Title        string         `json:"title,omitempty"`
	Company      string         `json:"company,omitempty"`
	Skills       []string       `json:"skills"`
	Summary      string         `json:"summary,omitempty"`
	ProfileURL   string         `json:"profile_url,omitempty"`
	EstimatedFit float64        `json:"estimated_fit"`
	RawExtras    map[string]any `json:"raw_extras,omitempty"`

	ExperienceYears int          `json:"experience_years,omitempty"`
	Followers       int          `json:"followers,omitempty"`
	ProviderFit     *ProviderFit `json:"-"`
}

// HasSkill compares case-insensitively.
func (c CandidateProfile) HasSkill(skill string) bool {
	skill = strings.ToLower(strings.TrimSpace(skill))
	if skill == "" {
		return false
	}
	for _, s := range c.Skills {
		if s == skill {
			return true
		}
	}
	return false
}

// Record is a provider-specific raw record. Each provider package owns its own
// record type and converts it into a draft profile; Normalize finishes the job.
type Record interface {
	Candidate() CandidateProfile
}

// Provider wraps one external candidate source.
type Provider interface {
	Name() string
	Search(ctx context.Context, req SearchRequest) Result
}

// Result is the outcome of one provider call.
type Result struct {
	Records []Record
	// Err is nil for success-with-data and success-empty. Otherwise it wraps one of
	// the provider failure sentinels.
	Err error
}

// Succeeded reports whether the provider returned data or a clean empty response.
func (r Result) Succeeded() bool { return r.Err == nil }

// Records wraps a successful response.
func Records(records ...Record) Result {
	return Result{Records: records}
}

// Failure wraps a failed response.
func Failure(err error) Result {
	return Result{Err: err}
}

// AggregatedResult is the output of Aggregate.
type AggregatedResult struct {
	SearchID         string             `json:"search_id"`
	Candidates       []CandidateProfile `json:"candidates"`
	SourcesQueried   []string           `json:"sources_queried"`
	SourcesSucceeded []string           `json:"sources_succeeded"`
	TotalFound       int                `json:"total_found"`
	Failures         map[string]string  `json:"failures,omitempty"`
	Cached           bool               `json:"cached,omitempty"`
}

// Unavailable returns the sources that were queried but did not succeed.
func (r AggregatedResult) Unavailable() []string {
	ok := make(map[string]struct{}, len(r.SourcesSucceeded))
	for _, s := range r.SourcesSucceeded {
		ok[s] = struct{}{}
	}
	var out []string
	for _, s := range r.SourcesQueried {
		if _, found := ok[s]; !found {
			out = append(out, s)
		}
	}
	return out
}

func (r AggregatedResult) clone() AggregatedResult {
	out := r
	out.Candidates = make([]CandidateProfile, len(r.Candidates))
	for i, c := range r.Candidates {
		c.Skills = append([]string(nil), c.Skills...)
		if c.RawExtras != nil {
			extras := make(map[string]any, len(c.RawExtras))
			for k, v := range c.RawExtras {
				extras[k] = v
			}
			c.RawExtras = extras
		}
		out.Candidates[i] = c
	}
	out.SourcesQueried = append([]string(nil), r.SourcesQueried...)
	out.SourcesSucceeded = append([]string(nil), r.SourcesSucceeded...)
	if r.Failures != nil {
		out.Failures = make(map[string]string, len(r.Failures))
		for k, v := range r.Failures {
			out.Failures[k] = v
		}
	}
	return out
}
