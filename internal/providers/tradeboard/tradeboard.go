// Package tradeboard looks for tradespeople advertising availability on aggregated job boards.
package tradeboard

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/candidate-scout/internal/providers/httpclient"
	"github.com/spigell/candidate-scout/internal/sourcing"
	"github.com/spigell/candidate-scout/internal/utils"
)

const (
	Name = "JSearch"

	DefaultHost     = "jsearch.p.rapidapi.com"
	defaultLocation = "USA"
	// postsPerPage is the fixed page size of the remote side.
	postsPerPage    = 10
	maxPages        = 5
	maxDescription  = 500
	availableSignal = "available"
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
	logger *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://" + cfg.Host
	}
	key := strings.TrimSpace(cfg.APIKey)

	return &Provider{
		apiKey: key,
		logger: logger,
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

// Posting is a board post. Only posts whose description advertises availability are kept.
type Posting struct {
	ID          string `json:"job_id"`
	Description string `json:"job_description"`
	City        string `json:"job_city"`
	State       string `json:"job_state"`
	Country     string `json:"job_country"`
	PostedAt    string `json:"job_posted_at_datetime_utc"`
	ApplyLink   string `json:"job_apply_link"`
	GoogleLink  string `json:"job_google_link"`
	Publisher   string `json:"job_publisher"`

	trade string
}

func (r Posting) Candidate() sourcing.CandidateProfile {
	var place []string
	for _, part := range []string{r.City, r.State} {
		if part != "" {
			place = append(place, part)
		}
	}

	c := sourcing.CandidateProfile{
		Title:      titleCase(r.trade),
		Location:   strings.Join(place, ", "),
		Summary:    utils.TruncateRunes(r.Description, maxDescription),
		ProfileURL: utils.FirstNonEmpty(r.ApplyLink, r.GoogleLink),
		RawExtras:  map[string]any{"posted_date": r.PostedAt},
	}
	if r.Publisher != "" {
		c.RawExtras["publisher"] = r.Publisher
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
	pages := min(max((req.ResultLimit+postsPerPage-1)/postsPerPage, 1), maxPages)

	params := url.Values{
		"query":     {fmt.Sprintf("%s resume available hire %s", req.Keywords, location)},
		"page":      {"1"},
		"num_pages": {strconv.Itoa(pages)},
	}

	var body map[string]any
	if err := p.client.GetJSON(ctx, "/search", params, &body); err != nil {
		return sourcing.Failure(err)
	}

	items, err := httpclient.Items(body, "data")
	if err != nil {
		return sourcing.Failure(err)
	}

	var postings []Posting
	if err := httpclient.Decode(items, &postings); err != nil {
		return sourcing.Failure(err)
	}

	var records []sourcing.Record
	for _, posting := range postings {
		if !strings.Contains(strings.ToLower(posting.Description), availableSignal) {
			continue
		}
		posting.trade = req.Keywords
		records = append(records, posting)
	}

	p.logger.Debug("board search finished", zap.Int("postings", len(postings)), zap.Int("available", len(records)))
	return sourcing.Records(records...)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
