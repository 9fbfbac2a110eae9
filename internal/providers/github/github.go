// Package github searches code-host users whose language or bio matches the requested skills.
package github

import (
	"context"
	"fmt"
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
	Name = "GitHub"

	defaultBaseURL = "https://api.github.com"
	// maxQueries bounds the number of search calls per request.
	maxQueries = 2
	maxPerPage = 30
	// defaultMaxDetails bounds the number of profile lookups per request.
	defaultMaxDetails = 10
)

// tradeSkills maps trade keywords onto technical skills searchable on a code host.
// The first trade found in the keywords wins.
var tradeSkills = []struct {
	trade  string
	skills []string
}{
	{"electrician", []string{"arduino", "plc", "automation"}},
	{"hvac", []string{"building automation", "controls", "iot"}},
	{"technician", []string{"cad", "autocad", "revit"}},
}

type Config struct {
	Token      string
	BaseURL    string
	Timeout    time.Duration
	MaxDetails int
	HTTPClient *http.Client
}

type Provider struct {
	token      string
	maxDetails int
	client     *httpclient.Client
	logger     *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.MaxDetails <= 0 {
		cfg.MaxDetails = defaultMaxDetails
	}

	return &Provider{
		token:      strings.TrimSpace(cfg.Token),
		maxDetails: cfg.MaxDetails,
		logger:     logger,
		client: httpclient.New(httpclient.Config{
			Name:    Name,
			BaseURL: cfg.BaseURL,
			Auth:    httpclient.BearerToken{Token: strings.TrimSpace(cfg.Token), Scheme: "token"},
			Timeout: cfg.Timeout,
			Headers: map[string]string{
				"Accept":               "application/vnd.github+json",
				"X-GitHub-Api-Version": "2022-11-28",
			},
			HTTPClient: cfg.HTTPClient,
		}, logger),
	}
}

func (p *Provider) Name() string { return Name }

type searchResponse struct {
	TotalCount int        `json:"total_count"`
	Items      []userItem `json:"items"`
}

type userItem struct {
	Login     string `json:"login"`
	HTMLURL   string `json:"html_url"`
	AvatarURL string `json:"avatar_url"`
	URL       string `json:"url"`
}

type userDetail struct {
	Login       string `json:"login"`
	Name        string `json:"name"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	Email       string `json:"email"`
	Bio         string `json:"bio"`
	HTMLURL     string `json:"html_url"`
	PublicRepos int    `json:"public_repos"`
	Followers   int    `json:"followers"`
	Hireable    bool   `json:"hireable"`
}

// Record is one code-host user, optionally enriched with profile details.
type Record struct {
	Item   userItem
	Detail *userDetail
	Skill  string
}

func (r Record) Candidate() sourcing.CandidateProfile {
	c := sourcing.CandidateProfile{
		Name:       r.Item.Login,
		ProfileURL: r.Item.HTMLURL,
		Skills:     []string{r.Skill},
		RawExtras: map[string]any{
			"username":   r.Item.Login,
			"avatar_url": r.Item.AvatarURL,
		},
	}
	if d := r.Detail; d != nil {
		if d.Name != "" {
			c.Name = d.Name
		}
		if d.HTMLURL != "" {
			c.ProfileURL = d.HTMLURL
		}
		c.Email = d.Email
		c.Location = d.Location
		c.Company = strings.TrimPrefix(strings.TrimSpace(d.Company), "@")
		c.Summary = d.Bio
		c.Title = "Developer"
		c.Followers = d.Followers
		c.RawExtras["public_repos"] = d.PublicRepos
		c.RawExtras["hireable"] = d.Hireable
		c.RawExtras["activity_score"] = d.PublicRepos*2 + d.Followers
	}
	return c
}

func (p *Provider) Search(ctx context.Context, req sourcing.SearchRequest) sourcing.Result {
	if p.token == "" {
		return httpclient.Missing(Name, "token")
	}

	queries := buildQueries(req)
	perPage := min(max(req.ResultLimit/len(queries), 1), maxPerPage)

	var records []sourcing.Record
	seen := make(map[string]struct{})
	details := 0

	for _, q := range queries {
		var resp searchResponse
		params := url.Values{
			"q":        {q.query},
			"per_page": {strconv.Itoa(perPage)},
		}
		if err := p.client.GetJSON(ctx, "/search/users", params, &resp); err != nil {
			if len(records) > 0 {
				p.logger.Debug("keeping partial github results", zap.String("query", q.query), zap.Error(err))
				break
			}
			return sourcing.Failure(err)
		}

		for _, item := range resp.Items {
			if item.Login == "" {
				continue
			}
			if _, ok := seen[item.Login]; ok {
				continue
			}
			seen[item.Login] = struct{}{}

			record := Record{Item: item, Skill: q.skill}
			if details < p.maxDetails && ctx.Err() == nil {
				details++
				detail, err := p.user(ctx, item.Login)
				if err != nil {
					p.logger.Debug("fetching github user failed", zap.String("login", item.Login), zap.Error(err))
				} else {
					record.Detail = detail
				}
			}
			records = append(records, record)
		}
	}

	return sourcing.Records(records...)
}

func (p *Provider) user(ctx context.Context, login string) (*userDetail, error) {
	var detail userDetail
	if err := p.client.GetJSON(ctx, "/users/"+url.PathEscape(login), nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

type query struct {
	skill string
	query string
}

// buildQueries searches by skill-as-language. Without skills it maps known trades
// onto technical skills, and finally falls back to a bio search on the keywords.
func buildQueries(req sourcing.SearchRequest) []query {
	skills := req.Skills
	if len(skills) == 0 {
		lower := strings.ToLower(req.Keywords)
		for _, ts := range tradeSkills {
			if strings.Contains(lower, ts.trade) {
				skills = ts.skills
				break
			}
		}
	}

	location := ""
	if req.Location != "" {
		location = fmt.Sprintf(" location:%q", req.Location)
	}

	var out []query
	for _, skill := range skills {
		if len(out) == maxQueries {
			break
		}
		q := fmt.Sprintf("%s in:bio", quote(skill))
		if isLanguage(skill) {
			q = fmt.Sprintf("%s language:%s", quote(skill), quote(skill))
		}
		out = append(out, query{skill: skill, query: q + location})
	}

	if len(out) == 0 {
		out = append(out, query{
			skill: req.Keywords,
			query: fmt.Sprintf("%s in:bio", quote(req.Keywords)) + location,
		})
	}
	return out
}

func quote(s string) string {
	if strings.ContainsAny(s, " \t") {
		return strconv.Quote(s)
	}
	return s
}

// isLanguage reports whether the skill is usable as a language qualifier.
func isLanguage(skill string) bool {
	return skill != "" && !strings.ContainsAny(skill, " \t")
}
