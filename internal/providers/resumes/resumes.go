// Package resumes searches a résumé database exposed through RapidAPI.
package resumes

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/candidate-scout/internal/providers/httpclient"
	"github.com/spigell/candidate-scout/internal/sourcing"
)

const (
	Name = "Indeed"

	DefaultHost     = "indeed12.p.rapidapi.com"
	defaultLocation = "USA"
	// pageSize is the fixed number of résumés per page on the remote side.
	pageSize  = 10
	maxSkills = 3
)

type Config struct {
	APIKey     string
	Host       string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

type Provider struct {
	apiKey string
	client *httpclient.Client
}

func New(cfg Config, logger *zap.Logger) *Provider {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://" + cfg.Host
	}
	key := strings.TrimSpace(cfg.APIKey)

	return &Provider{
		apiKey: key,
		client: httpclient.New(httpclient.Config{
			Name:       Name,
			BaseURL:    cfg.BaseURL,
			Auth:       httpclient.RapidAPI{Key: key, Host: cfg.Host},
			Timeout:    cfg.Timeout,
			HTTPClient: cfg.HTTPClient,
		}, logger),
	}
}

func (p *Provider) Name() string { return Name }

// Resume is one résumé summary.
type Resume struct {
	Name            string   `json:"name"`
	JobTitle        string   `json:"job_title"`
	Location        string   `json:"location"`
	Summary         string   `json:"summary"`
	Skills          []string `json:"skills"`
	YearsExperience int      `json:"years_experience"`
	LastUpdated     string   `json:"last_updated"`
	URL             string   `json:"url"`
}

func (r Resume) Candidate() sourcing.CandidateProfile {
	c := sourcing.CandidateProfile{
		Name:            r.Name,
		Title:           r.JobTitle,
		Location:        r.Location,
		Summary:         r.Summary,
		Skills:          r.Skills,
		ProfileURL:      r.URL,
		ExperienceYears: r.YearsExperience,
	}
	if r.LastUpdated != "" {
		c.RawExtras = map[string]any{"last_updated": r.LastUpdated}
	}
	return c
}

func (p *Provider) Search(ctx context.Context, req sourcing.SearchRequest) sourcing.Result {
	if p.apiKey == "" {
		return httpclient.Missing(Name, "RapidAPI key")
	}

	location := req.Location
	if location == "" {
		location = defaultLocation
	}

	var resumes []Resume
	pages := (req.ResultLimit + pageSize - 1) / pageSize
	for page := 1; page <= max(pages, 1); page++ {
		batch, err := p.page(ctx, query(req), location, page)
		if err != nil {
			if page == 1 {
				return sourcing.Failure(err)
			}
			break
		}
		resumes = append(resumes, batch...)
		if len(batch) < pageSize {
			break
		}
	}

	if len(resumes) > req.ResultLimit && req.ResultLimit > 0 {
		resumes = resumes[:req.ResultLimit]
	}

	records := make([]sourcing.Record, 0, len(resumes))
	for _, r := range resumes {
		records = append(records, r)
	}
	return sourcing.Records(records...)
}

func (p *Provider) page(ctx context.Context, q, location string, page int) ([]Resume, error) {
	params := url.Values{
		"query":    {q},
		"location": {location},
		"page":     {strconv.Itoa(page)},
	}

	var body map[string]any
	if err := p.client.GetJSON(ctx, "/resumes/search", params, &body); err != nil {
		return nil, err
	}

	items, err := httpclient.Items(body, "resumes")
	if err != nil {
		return nil, err
	}

	var out []Resume
	if err := httpclient.Decode(items, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func query(req sourcing.SearchRequest) string {
	parts := []string{req.Keywords}
	for i, skill := range req.Skills {
		if i == maxSkills {
			break
		}
		parts = append(parts, skill)
	}
	return strings.Join(parts, " ")
}
