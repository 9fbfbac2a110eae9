// Package xsearch finds people announcing they are looking for work in social media posts.
package xsearch

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
	"github.com/spigell/candidate-scout/internal/utils"
)

const (
	Name = "X"

	DefaultHost = "twitter-api45.p.rapidapi.com"
	maxCount    = 50
	maxPostText = 500
)

// seekingSignals are phrases a post must contain to count as a job seeker.
var seekingSignals = []string{
	"looking for", "seeking", "open to work", "available",
	"hire me", "need a job", "laid off", "#opentowork",
}

var bioTitles = []string{
	"Software Engineer", "Developer", "Designer", "Product Manager",
	"Data Scientist", "DevOps", "Full Stack", "Frontend", "Backend",
	"Machine Learning", "AI Engineer", "Cloud Architect", "SRE",
	"Electrician", "Plumber", "Carpenter", "Welder", "HVAC Technician",
}

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

type User struct {
	ID          string `json:"id_str"`
	Name        string `json:"name"`
	ScreenName  string `json:"screen_name"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Followers   int    `json:"followers_count"`
	Verified    bool   `json:"verified"`
	URL         string `json:"url"`
	Image       string `json:"profile_image_url_https"`
}

// Post is a search hit together with its author.
type Post struct {
	User      User   `json:"user"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`

	// skills is the subset of requested skills mentioned by the author.
	skills []string
	title  string
}

func (r Post) Candidate() sourcing.CandidateProfile {
	c := sourcing.CandidateProfile{
		Name:      r.User.Name,
		Title:     r.title,
		Location:  r.User.Location,
		Summary:   r.User.Description,
		Skills:    r.skills,
		Followers: r.User.Followers,
		RawExtras: map[string]any{
			"platform_id": r.User.ID,
			"username":    r.User.ScreenName,
			"post_text":   utils.TruncateRunes(r.Text, maxPostText),
			"verified":    r.User.Verified,
			"created_at":  r.CreatedAt,
		},
	}
	if r.User.ScreenName != "" {
		c.ProfileURL = "https://x.com/" + r.User.ScreenName
		c.RawExtras["x_handle"] = "@" + r.User.ScreenName
	}
	if r.User.URL != "" {
		c.RawExtras["website"] = r.User.URL
	}
	if r.User.Image != "" {
		c.RawExtras["profile_image"] = r.User.Image
	}
	return c
}

func (p *Provider) Search(ctx context.Context, req sourcing.SearchRequest) sourcing.Result {
	if p.apiKey == "" {
		return httpclient.Missing(Name, "RapidAPI key")
	}

	count := strconv.Itoa(min(max(req.ResultLimit, 1), maxCount))
	seen := make(map[string]struct{})
	var records []sourcing.Record

	for i, q := range buildQueries(req) {
		posts, err := p.search(ctx, q, count)
		if err != nil {
			if i == 0 {
				return sourcing.Failure(err)
			}
			p.logger.Debug("keeping partial post search results", zap.String("query", q), zap.Error(err))
			break
		}

		for _, post := range posts {
			if !isSeeking(post.Text) {
				continue
			}
			key := strings.ToLower(post.User.ScreenName)
			if key == "" {
				key = post.User.ID
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}

			post.skills = mentioned(req.Skills, post.User.Description+" "+post.Text)
			post.title = titleFromBio(post.User.Description, req.Keywords)
			records = append(records, post)
		}

		if len(records) >= req.ResultLimit {
			break
		}
	}

	return sourcing.Records(records...)
}

func (p *Provider) search(ctx context.Context, query, count string) ([]Post, error) {
	var body map[string]any
	if err := p.client.GetJSON(ctx, "/search.php", url.Values{"query": {query}, "count": {count}}, &body); err != nil {
		return nil, err
	}

	items, err := httpclient.Items(body, "results")
	if err != nil {
		return nil, err
	}

	var posts []Post
	if err := httpclient.Decode(items, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func buildQueries(req sourcing.SearchRequest) []string {
	queries := []string{
		fmt.Sprintf(`"%s" "looking for" OR "seeking" OR "open to work"`, req.Keywords),
		fmt.Sprintf(`"#OpenToWork" %s`, req.Keywords),
	}
	if req.Location != "" {
		queries = append(queries, fmt.Sprintf(`"%s" "%s" "available" OR "looking"`, req.Keywords, req.Location))
	}
	return queries
}

func isSeeking(text string) bool {
	lower := strings.ToLower(text)
	for _, signal := range seekingSignals {
		if strings.Contains(lower, signal) {
			return true
		}
	}
	return false
}

func mentioned(skills []string, text string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, skill := range skills {
		if strings.Contains(lower, strings.ToLower(skill)) {
			out = append(out, skill)
		}
	}
	return out
}

func titleFromBio(bio, keywords string) string {
	lower := strings.ToLower(bio)
	if keywords != "" && strings.Contains(lower, strings.ToLower(keywords)) {
		return keywords
	}
	for _, title := range bioTitles {
		if strings.Contains(lower, strings.ToLower(title)) {
			return title
		}
	}
	return ""
}
