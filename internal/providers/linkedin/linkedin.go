// Package linkedin searches public professional-network profiles through a RapidAPI scraper.
package linkedin

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
	Name = "LinkedIn"

	DefaultHost = "linkedin-profiles-and-company-data.p.rapidapi.com"
	maxLimit    = 50
)

type Config struct {
	APIKey string
	// Host is the RapidAPI host; BaseURL defaults to https://<Host>.
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

type Experience struct {
	Title    string `json:"title"`
	Company  string `json:"company"`
	Duration string `json:"duration"`
}

// Profile is one profile returned by the search.
type Profile struct {
	Name        string       `json:"name"`
	Headline    string       `json:"headline"`
	Location    string       `json:"location"`
	ProfileURL  string       `json:"profileUrl"`
	Summary     string       `json:"summary"`
	Skills      []string     `json:"skills"`
	Experience  []Experience `json:"experience"`
	Connections int          `json:"connections"`
}

func (r Profile) Candidate() sourcing.CandidateProfile {
	c := sourcing.CandidateProfile{
		Name:       r.Name,
		Title:      r.Headline,
		Location:   r.Location,
		ProfileURL: r.ProfileURL,
		Summary:    r.Summary,
		Skills:     r.Skills,
		Followers:  r.Connections,
	}

	if len(r.Experience) > 0 {
		current := r.Experience[0]
		c.Company = current.Company
		if c.Title == "" {
			c.Title = current.Title
		}
		c.RawExtras = map[string]any{"positions": len(r.Experience)}
	}
	return c
}

func (p *Provider) Search(ctx context.Context, req sourcing.SearchRequest) sourcing.Result {
	if p.apiKey == "" {
		return httpclient.Missing(Name, "RapidAPI key")
	}

	keywords := req.Keywords
	if req.Location != "" {
		keywords += " " + req.Location
	}
	params := url.Values{
		"keywords": {keywords},
		"limit":    {strconv.Itoa(min(max(req.ResultLimit, 1), maxLimit))},
	}

	var body map[string]any
	if err := p.client.GetJSON(ctx, "/profile-search", params, &body); err != nil {
		return sourcing.Failure(err)
	}

	items, err := httpclient.Items(body, "profiles")
	if err != nil {
		return sourcing.Failure(err)
	}

	var profiles []Profile
	if err := httpclient.Decode(items, &profiles); err != nil {
		return sourcing.Failure(err)
	}

	records := make([]sourcing.Record, 0, len(profiles))
	for _, profile := range profiles {
		records = append(records, profile)
	}
	return sourcing.Records(records...)
}
