package github

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/candidate-scout/internal/sourcing"
)

func TestSearchFetchesUsersAndDetails(t *testing.T) {
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "token secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch {
		case r.URL.Path == "/search/users":
			queries = append(queries, r.URL.Query().Get("q"))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"total_count": 2,
				"items": []map[string]any{
					{"login": "octo", "html_url": "https://github.com/octo"},
					{"login": "cat", "html_url": "https://github.com/cat"},
				},
			})
		case r.URL.Path == "/users/octo":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"login":        "octo",
				"name":         "Octo Ruiz",
				"email":        "octo@example.com",
				"location":     "Austin, TX",
				"company":      "@acme",
				"bio":          "PLC programmer",
				"public_repos": 12,
				"followers":    600,
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p := New(Config{Token: "secret", BaseURL: srv.URL}, zap.NewNop())
	res := p.Search(context.Background(), sourcing.SearchRequest{
		Keywords:    "automation engineer",
		Skills:      []string{"go"},
		Location:    "Austin",
		ResultLimit: 10,
	})
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if len(res.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(res.Records))
	}
	if len(queries) != 1 || queries[0] != `go language:go location:"Austin"` {
		t.Fatalf("unexpected queries %q", queries)
	}

	first := res.Records[0].Candidate()
	if first.Name != "Octo Ruiz" || first.Email != "octo@example.com" || first.Company != "acme" {
		t.Fatalf("unexpected detailed candidate %+v", first)
	}
	if first.Followers != 600 {
		t.Fatalf("expected followers to be carried, got %d", first.Followers)
	}

	second := res.Records[1].Candidate()
	if second.Name != "cat" || second.ProfileURL != "https://github.com/cat" {
		t.Fatalf("expected failed detail lookup to keep the search item, got %+v", second)
	}
}

func TestSearchWithoutTokenSkipsIO(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	p := New(Config{BaseURL: srv.URL}, zap.NewNop())
	res := p.Search(context.Background(), sourcing.SearchRequest{Keywords: "welder", ResultLimit: 5})
	if !errors.Is(res.Err, sourcing.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", res.Err)
	}
	if calls.Load() != 0 {
		t.Fatalf("expected no requests, got %d", calls.Load())
	}
}

func TestSearchRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := New(Config{Token: "secret", BaseURL: srv.URL}, zap.NewNop())
	res := p.Search(context.Background(), sourcing.SearchRequest{Keywords: "welder", ResultLimit: 5})
	if !errors.Is(res.Err, sourcing.ErrRateLimited) {
		t.Fatalf("expected rate limited, got %v", res.Err)
	}
}

func TestBuildQueries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		request sourcing.SearchRequest
		expect  []string
	}{
		{
			name:    "skills capped at two",
			request: sourcing.SearchRequest{Keywords: "dev", Skills: []string{"go", "rust", "zig"}},
			expect:  []string{"go language:go", "rust language:rust"},
		},
		{
			name:    "multi word skill searches bio",
			request: sourcing.SearchRequest{Keywords: "dev", Skills: []string{"building automation"}},
			expect:  []string{`"building automation" in:bio`},
		},
		{
			name:    "trade mapped to technical skills",
			request: sourcing.SearchRequest{Keywords: "Master Electrician"},
			expect:  []string{"arduino language:arduino", "plc language:plc"},
		},
		{
			name:    "first listed trade wins",
			request: sourcing.SearchRequest{Keywords: "hvac technician"},
			expect:  []string{`"building automation" in:bio`, "controls language:controls"},
		},
		{
			name:    "electrician preferred over hvac",
			request: sourcing.SearchRequest{Keywords: "hvac electrician"},
			expect:  []string{"arduino language:arduino", "plc language:plc"},
		},
		{
			name:    "keywords fallback",
			request: sourcing.SearchRequest{Keywords: "roofer"},
			expect:  []string{"roofer in:bio"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var got []string
			for _, q := range buildQueries(tt.request) {
				got = append(got, q.query)
			}
			if strings.Join(got, "|") != strings.Join(tt.expect, "|") {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}
