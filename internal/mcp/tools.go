package mcp

import (
	"context"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/spigell/candidate-scout/internal/intent"
	"github.com/spigell/candidate-scout/internal/sourcing"
)

// SearchParams are the candidate_search arguments.
type SearchParams struct {
	Keywords        string   `json:"job_title_or_keywords" jsonschema:"Job title or keywords to search for"`
	Location        string   `json:"location,omitempty" jsonschema:"City, region or country"`
	Skills          []string `json:"skills,omitempty" jsonschema:"Skills or certifications the candidate should have"`
	ExperienceLevel string   `json:"experience_level,omitempty" jsonschema:"junior, mid, senior or executive"`
	ResultLimit     int      `json:"result_limit,omitempty" jsonschema:"Maximum number of candidates to return"`
}

func (p SearchParams) request() sourcing.SearchRequest {
	return sourcing.SearchRequest{
		Keywords:        p.Keywords,
		Location:        p.Location,
		Skills:          p.Skills,
		ExperienceLevel: sourcing.ParseLevel(p.ExperienceLevel),
		ResultLimit:     p.ResultLimit,
	}
}

// ParseParams are the parse_query arguments.
type ParseParams struct {
	Query string `json:"query" jsonschema:"Free-text description of the people to find"`
}

// ParseResult is returned by parse_query.
type ParseResult struct {
	Request sourcing.SearchRequest `json:"request"`
	Intent  intent.Intent          `json:"intent"`
	Hints   []string               `json:"hints,omitempty"`
}

const maxSimilarHints = 3

// Hints combines trade tips for the query text with similar past searches.
func Hints(text string, req sourcing.SearchRequest, history History) []string {
	hints := intent.Tips(text)
	if history != nil {
		hints = append(hints, history.Hints(req.Keywords, maxSimilarHints)...)
	}
	return hints
}

func registerTools(server *sdkmcp.Server, deps Deps, log *zap.Logger) {
	if deps.Searcher != nil {
		sdkmcp.AddTool(server, &sdkmcp.Tool{
			Name:        "candidate_search",
			Description: "Search every configured candidate source, merge duplicates and rank candidates by fit",
		}, candidateSearch(deps.Searcher, log))
	}

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "parse_query",
		Description: "Turn a free-text hiring request into a structured candidate search request",
	}, parseQuery(deps.Parser, deps.History))
}

func candidateSearch(searcher Searcher, log *zap.Logger) sdkmcp.ToolHandlerFor[SearchParams, sourcing.AggregatedResult] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, params SearchParams) (*sdkmcp.CallToolResult, sourcing.AggregatedResult, error) {
		result, err := searcher.Aggregate(ctx, params.request())
		if err != nil {
			log.Warn("candidate_search failed", zap.Error(err))
			return nil, sourcing.AggregatedResult{}, err
		}
		log.Info("candidate_search finished",
			zap.String("search_id", result.SearchID),
			zap.Int("candidates", len(result.Candidates)),
			zap.Strings("unavailable", result.Unavailable()),
		)
		return nil, result, nil
	}
}

func parseQuery(parser intent.Parser, history History) sdkmcp.ToolHandlerFor[ParseParams, ParseResult] {
	return func(ctx context.Context, _ *sdkmcp.CallToolRequest, params ParseParams) (*sdkmcp.CallToolResult, ParseResult, error) {
		in, err := parser.Parse(ctx, params.Query)
		if err != nil {
			return nil, ParseResult{}, err
		}
		req := in.Request()
		if err := req.Validate(); err != nil {
			return nil, ParseResult{}, fmt.Errorf("parsed request is not usable: %w", err)
		}
		return nil, ParseResult{Request: req, Intent: in, Hints: Hints(params.Query, req, history)}, nil
	}
}
