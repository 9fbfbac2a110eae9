// Package peopledata queries a people-data person search endpoint.
package peopledata

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/candidate-scout/internal/providers/httpclient"
	"github.com/spigell/candidate-scout/internal/sourcing"
)

const (
	Name = "PeopleDataLabs"

	defaultBaseURL = "https://api.peopledatalabs.com"
	searchPath     = "/v5/person/search"
	maxSize        = 100
	// confidentLikelihood is the lowest match likelihood kept as a provider fit.
	confidentLikelihood = 8
)

type Config struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

type Provider struct {
	apiKey string
	client *httpclient.Client
	logger *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	key := strings.TrimSpace(cfg.APIKey)

	return &Provider{
		apiKey: key,
		logger: logger,
		client: httpclient.New(httpclient.Config{
			Name:       Name,
			BaseURL:    cfg.BaseURL,
			Auth:       httpclient.APIKey{Key: key},
			Timeout:    cfg.Timeout,
			Headers:    map[string]string{"Accept": "application/json"},
			HTTPClient: cfg.HTTPClient,
		}, logger),
	}
}

func (p *Provider) Name() string { return Name }

// Person is one hit of the person search.
type Person struct {
	FullName          string   `json:"full_name"`
	FirstName         string   `json:"first_name"`
	LastName          string   `json:"last_name"`
	WorkEmail         string   `json:"work_email"`
	PersonalEmails    []string `json:"personal_emails"`
	MobilePhone       string   `json:"mobile_phone"`
	LocationName      string   `json:"location_name"`
	JobTitle          string   `json:"job_title"`
	JobCompanyName    string   `json:"job_company_name"`
	Skills            []string `json:"skills"`
	LinkedinURL       string   `json:"linkedin_url"`
	Summary           string   `json:"summary"`
	YearsExperience   int      `json:"inferred_years_experience"`
	Industry          string   `json:"industry"`
	Likelihood        int      `json:"likelihood"`
	LinkedinConnected int      `json:"linkedin_connections"`
}

func (r Person) Candidate() sourcing.CandidateProfile {
	email := r.WorkEmail
	if email == "" && len(r.PersonalEmails) > 0 {
		email = r.PersonalEmails[0]
	}

	profileURL := r.LinkedinURL
	if profileURL != "" && !strings.HasPrefix(profileURL, "http") {
		profileURL = "https://" + profileURL
	}

	c := sourcing.CandidateProfile{
		Name:            r.FullName,
		FirstName:       r.FirstName,
		LastName:        r.LastName,
		Email:           email,
		Phone:           r.MobilePhone,
		Location:        r.LocationName,
		Title:           r.JobTitle,
		Company:         r.JobCompanyName,
		Skills:          r.Skills,
		Summary:         r.Summary,
		ProfileURL:      profileURL,
		ExperienceYears: r.YearsExperience,
		Followers:       r.LinkedinConnected,
	}
	if r.Industry != "" {
		c.RawExtras = map[string]any{"industry": r.Industry}
	}
	if r.Likelihood > 0 {
		c.ProviderFit = &sourcing.ProviderFit{
			Score:     float64(r.Likelihood),
			Confident: r.Likelihood >= confidentLikelihood,
		}
	}
	return c
}

func (p *Provider) Search(ctx context.Context, req sourcing.SearchRequest) sourcing.Result {
	if p.apiKey == "" {
		return httpclient.Missing(Name, "api key")
	}

	payload := map[string]any{
		"query": buildQuery(req),
		"size":  min(max(req.ResultLimit, 1), maxSize),
	}

	var body map[string]any
	if err := p.client.PostJSON(ctx, searchPath, payload, &body); err != nil {
		return sourcing.Failure(err)
	}

	items, err := httpclient.Items(body, "data")
	if err != nil {
		return sourcing.Failure(err)
	}

	var people []Person
	if err := httpclient.Decode(items, &people); err != nil {
		return sourcing.Failure(err)
	}

	p.logger.Debug("person search finished", zap.Int("hits", len(people)), zap.Any("total", body["total"]))

	records := make([]sourcing.Record, 0, len(people))
	for _, person := range people {
		records = append(records, person)
	}
	return sourcing.Records(records...)
}

// buildQuery renders the request as an Elasticsearch bool query.
func buildQuery(req sourcing.SearchRequest) map[string]any {
	must := []any{
		map[string]any{"match": map[string]any{"job_title": req.Keywords}},
	}
	if req.Location != "" {
		must = append(must, map[string]any{"match": map[string]any{"location_name": req.Location}})
	}

	boolQuery := map[string]any{"must": must}
	if len(req.Skills) > 0 {
		skills := make([]string, 0, len(req.Skills))
		for _, s := range req.Skills {
			skills = append(skills, strings.ToLower(s))
		}
		boolQuery["should"] = []any{map[string]any{"terms": map[string]any{"skills": skills}}}
	}
	if level := levelTerm(req.ExperienceLevel); level != "" {
		boolQuery["filter"] = []any{map[string]any{"term": map[string]any{"job_title_levels": level}}}
	}

	return map[string]any{"bool": boolQuery}
}

func levelTerm(level sourcing.ExperienceLevel) string {
	switch level {
	case sourcing.LevelJunior:
		return "entry"
	case sourcing.LevelSenior:
		return "senior"
	case sourcing.LevelExecutive:
		return "director"
	default:
		return ""
	}
}
