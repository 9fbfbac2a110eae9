package linkedin

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/candidate-scout/internal/sourcing"
)

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-RapidAPI-Key") != "rapid" || r.Header.Get("X-RapidAPI-Host") != DefaultHost {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if r.URL.Query().Get("keywords") != "carpenter Denver" || r.URL.Query().Get("limit") != "3" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"profiles": [{
			"name": "Sam Ortiz",
			"headline": "",
			"location": "Denver, CO",
			"profileUrl": "https://www.linkedin.com/in/sortiz",
			"skills": ["Framing", "Finishing"],
			"connections": "512",
			"experience": [{"title": "Lead Carpenter", "company": "Front Range Builders"}]
		}]}`))
	}))
	defer srv.Close()

	p := New(Config{APIKey: "rapid", BaseURL: srv.URL}, zap.NewNop())
	res := p.Search(context.Background(), sourcing.SearchRequest{Keywords: "carpenter", Location: "Denver", ResultLimit: 3})
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if len(res.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(res.Records))
	}

	c := res.Records[0].Candidate()
	if c.Title != "Lead Carpenter" || c.Company != "Front Range Builders" {
		t.Fatalf("expected current position to fill title and company, got %+v", c)
	}
	if c.Followers != 512 {
		t.Fatalf("expected connections as follower proxy, got %d", c.Followers)
	}
}

func TestSearchFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		expect error
	}{
		{name: "forbidden", status: http.StatusForbidden, expect: sourcing.ErrUnauthenticated},
		{name: "quota", status: http.StatusTooManyRequests, expect: sourcing.ErrRateLimited},
		{name: "down", status: http.StatusInternalServerError, expect: sourcing.ErrTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			res := New(Config{APIKey: "rapid", BaseURL: srv.URL}, nil).
				Search(context.Background(), sourcing.SearchRequest{Keywords: "welder", ResultLimit: 1})
			if !errors.Is(res.Err, tt.expect) {
				t.Fatalf("expected %v, got %v", tt.expect, res.Err)
			}
		})
	}
}

func TestSearchWithoutKey(t *testing.T) {
	res := New(Config{}, nil).Search(context.Background(), sourcing.SearchRequest{Keywords: "welder"})
	if !errors.Is(res.Err, sourcing.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", res.Err)
	}
}
