// Package scrape turns a public résumé board page into candidate records using CSS selectors.
package scrape

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/spigell/candidate-scout/internal/logger"
	"github.com/spigell/candidate-scout/internal/providers/httpclient"
	"github.com/spigell/candidate-scout/internal/sourcing"
)

const DefaultName = "Scrape"

// Selectors locate candidate cards and their fields. Field selectors are relative to the card.
type Selectors struct {
	Card     string `mapstructure:"card"`
	Name     string `mapstructure:"name"`
	Title    string `mapstructure:"title"`
	Location string `mapstructure:"location"`
	Link     string `mapstructure:"link"`
	Summary  string `mapstructure:"summary"`
	Skills   string `mapstructure:"skills"`
}

// Config describes one board. URL may contain {keywords}, {location} and {limit} placeholders.
type Config struct {
	Name       string        `mapstructure:"name"`
	URL        string        `mapstructure:"url"`
	Selectors  Selectors     `mapstructure:"selectors"`
	Timeout    time.Duration `mapstructure:"timeout"`
	HTTPClient *http.Client  `mapstructure:"-"`
}

type Provider struct {
	name      string
	template  string
	selectors Selectors
	client    *httpclient.Client
	logger    *zap.Logger
}

func New(cfg Config, log *zap.Logger) *Provider {
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}

	return &Provider{
		name:      cfg.Name,
		template:  cfg.URL,
		selectors: cfg.Selectors,
		logger:    logger.WithSource(log, cfg.Name),
		client: httpclient.New(httpclient.Config{
			Name:       cfg.Name,
			Timeout:    cfg.Timeout,
			Headers:    map[string]string{"Accept": "text/html"},
			HTTPClient: cfg.HTTPClient,
		}, log),
	}
}

func (p *Provider) Name() string { return p.name }

// Card is one scraped candidate card.
type Card struct {
	Name     string
	Title    string
	Location string
	Link     string
	Summary  string
	Skills   []string
}

func (r Card) Candidate() sourcing.CandidateProfile {
	return sourcing.CandidateProfile{
		Name:       r.Name,
		Title:      r.Title,
		Location:   r.Location,
		ProfileURL: r.Link,
		Summary:    r.Summary,
		Skills:     r.Skills,
	}
}

func (p *Provider) Search(ctx context.Context, req sourcing.SearchRequest) sourcing.Result {
	if p.template == "" || p.selectors.Card == "" {
		return httpclient.Misconfigured(p.name, "url and selectors.card")
	}

	target := expand(p.template, req)
	body, err := p.client.Get(ctx, target, nil)
	if err != nil {
		return sourcing.Failure(err)
	}

	cards, err := p.parse(body, target)
	if err != nil {
		return sourcing.Failure(err)
	}
	if len(cards) > req.ResultLimit && req.ResultLimit > 0 {
		cards = cards[:req.ResultLimit]
	}

	records := make([]sourcing.Record, 0, len(cards))
	for _, card := range cards {
		records = append(records, card)
	}
	return sourcing.Records(records...)
}

func (p *Provider) parse(body []byte, pageURL string) ([]Card, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: parse html: %w", sourcing.ErrMalformedResponse, p.name, err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", sourcing.ErrMalformedResponse, p.name, err)
	}

	var cards []Card
	doc.Find(p.selectors.Card).Each(func(_ int, s *goquery.Selection) {
		card := Card{
			Name:     text(s, p.selectors.Name),
			Title:    text(s, p.selectors.Title),
			Location: text(s, p.selectors.Location),
			Summary:  text(s, p.selectors.Summary),
		}
		if p.selectors.Link != "" {
			if href, ok := s.Find(p.selectors.Link).First().Attr("href"); ok {
				if ref, err := base.Parse(strings.TrimSpace(href)); err == nil {
					card.Link = ref.String()
				}
			}
		}
		if p.selectors.Skills != "" {
			s.Find(p.selectors.Skills).Each(func(_ int, skill *goquery.Selection) {
				if v := strings.TrimSpace(skill.Text()); v != "" {
					card.Skills = append(card.Skills, v)
				}
			})
		}
		cards = append(cards, card)
	})

	p.logger.Debug("page scraped", zap.Int("cards", len(cards)))
	return cards, nil
}

func text(s *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.TrimSpace(s.Find(selector).First().Text())
}

func expand(template string, req sourcing.SearchRequest) string {
	return strings.NewReplacer(
		"{keywords}", url.QueryEscape(req.Keywords),
		"{location}", url.QueryEscape(req.Location),
		"{limit}", fmt.Sprint(req.ResultLimit),
	).Replace(template)
}
