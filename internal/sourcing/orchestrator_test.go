package sourcing

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type testRecord CandidateProfile

func (r testRecord) Candidate() CandidateProfile { return CandidateProfile(r) }

type stubProvider struct {
	name   string
	result Result
	delay  time.Duration
	panics bool
	calls  atomic.Int32
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Search(ctx context.Context, _ SearchRequest) Result {
	s.calls.Add(1)
	if s.panics {
		panic("boom")
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return Failure(fmt.Errorf("%w: %w", ErrTransient, ctx.Err()))
		}
	}
	return s.result
}

func records(profiles ...CandidateProfile) Result {
	out := make([]Record, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, testRecord(p))
	}
	return Records(out...)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestAggregateDedupesAcrossProviders(t *testing.T) {
	a := &stubProvider{name: "A", result: records(CandidateProfile{Name: "Alice", Email: "a@x.com", Title: "Electrician"})}
	b := &stubProvider{name: "B", result: records(CandidateProfile{Name: "Alicia", Email: "a@x.com"})}

	agg := New(WithProviders(a, b), WithLogger(zap.NewNop()))
	res, err := agg.Aggregate(context.Background(), SearchRequest{
		Keywords: "electrician",
		Skills:   []string{"licensed"},
		Location: "Tampa",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(res.Candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(res.Candidates))
	}
	if res.Candidates[0].Email != "a@x.com" || res.Candidates[0].Source != "A" {
		t.Fatalf("expected first-seen candidate from A, got %+v", res.Candidates[0])
	}
	if !contains(res.SourcesSucceeded, "A") || !contains(res.SourcesSucceeded, "B") {
		t.Fatalf("expected both sources to succeed, got %v", res.SourcesSucceeded)
	}
	if res.TotalFound != 1 {
		t.Fatalf("expected total_found 1, got %d", res.TotalFound)
	}
	if res.SearchID == "" {
		t.Fatalf("expected search id to be set")
	}
}

func TestAggregateAllProvidersUnauthenticated(t *testing.T) {
	providers := []Provider{
		&stubProvider{name: "GitHub", result: Failure(fmt.Errorf("%w: token is not configured", ErrUnauthenticated))},
		&stubProvider{name: "PeopleDataLabs", result: Failure(fmt.Errorf("%w: api key is not configured", ErrUnauthenticated))},
	}

	res, err := New(WithProviders(providers...)).Aggregate(context.Background(), SearchRequest{Keywords: "plumber"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(res.Candidates) != 0 {
		t.Fatalf("expected no candidates, got %d", len(res.Candidates))
	}
	if res.Candidates == nil {
		t.Fatalf("expected empty, non-nil candidates")
	}
	if len(res.SourcesQueried) != 2 {
		t.Fatalf("expected 2 queried sources, got %v", res.SourcesQueried)
	}
	if len(res.SourcesSucceeded) != 0 {
		t.Fatalf("expected no succeeded sources, got %v", res.SourcesSucceeded)
	}
	if res.TotalFound != 0 {
		t.Fatalf("expected total_found 0, got %d", res.TotalFound)
	}
	if res.Failures["GitHub"] != TagUnauthenticated {
		t.Fatalf("expected unauthenticated tag, got %q", res.Failures["GitHub"])
	}
}

func TestAggregateRejectsInvalidRequestBeforeDispatch(t *testing.T) {
	p := &stubProvider{name: "A", result: records(CandidateProfile{Name: "Bob"})}

	_, err := New(WithProviders(p)).Aggregate(context.Background(), SearchRequest{Keywords: "   "})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if p.calls.Load() != 0 {
		t.Fatalf("expected provider not to be called")
	}
}

func TestAggregatePartialFailureTolerance(t *testing.T) {
	providers := []Provider{
		&stubProvider{name: "ok", result: records(CandidateProfile{Name: "Carol", ProfileURL: "https://example.com/carol"})},
		&stubProvider{name: "empty", result: Records()},
		&stubProvider{name: "limited", result: Failure(ErrRateLimited)},
		&stubProvider{name: "broken", result: Failure(ErrMalformedResponse)},
		&stubProvider{name: "panics", panics: true},
	}

	res, err := New(WithProviders(providers...)).Aggregate(context.Background(), SearchRequest{Keywords: "welder"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(res.Candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(res.Candidates))
	}
	for _, name := range []string{"ok", "empty"} {
		if !contains(res.SourcesSucceeded, name) {
			t.Fatalf("expected %s to succeed, got %v", name, res.SourcesSucceeded)
		}
	}
	expected := map[string]string{
		"limited": TagRateLimited,
		"broken":  TagMalformedResponse,
		"panics":  TagTransient,
	}
	for name, tag := range expected {
		if res.Failures[name] != tag {
			t.Fatalf("expected %s to fail with %s, got %q", name, tag, res.Failures[name])
		}
	}
	if got := res.Unavailable(); len(got) != 3 {
		t.Fatalf("expected 3 unavailable sources, got %v", got)
	}
}

func TestAggregateRanksAndTruncates(t *testing.T) {
	p := &stubProvider{name: "A", result: records(
		CandidateProfile{Name: "Low", Title: "Painter"},
		CandidateProfile{Name: "High", Title: "Master Electrician", ExperienceYears: 12},
		CandidateProfile{Name: "Mid", Title: "Electrician"},
		CandidateProfile{Name: "Tie", Title: "Roofer"},
	)}

	res, err := New(WithProviders(p)).Aggregate(context.Background(), SearchRequest{Keywords: "electrician", ResultLimit: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.TotalFound != 4 {
		t.Fatalf("expected total_found 4, got %d", res.TotalFound)
	}
	if len(res.Candidates) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(res.Candidates))
	}

	names := []string{res.Candidates[0].Name, res.Candidates[1].Name, res.Candidates[2].Name}
	if names[0] != "High" || names[1] != "Mid" || names[2] != "Low" {
		t.Fatalf("unexpected order: %v", names)
	}
	for i := 1; i < len(res.Candidates); i++ {
		if res.Candidates[i].EstimatedFit > res.Candidates[i-1].EstimatedFit {
			t.Fatalf("candidates are not ranked: %v", res.Candidates)
		}
	}
}

func TestAggregateKeepsConfidentProviderFit(t *testing.T) {
	p := &stubProvider{name: "A", result: records(
		CandidateProfile{Name: "Scored", ProviderFit: &ProviderFit{Score: 9.5, Confident: true}},
		CandidateProfile{Name: "Guess", ProviderFit: &ProviderFit{Score: 9.5}},
	)}

	res, err := New(WithProviders(p)).Aggregate(context.Background(), SearchRequest{Keywords: "hvac"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Candidates[0].Name != "Scored" || res.Candidates[0].EstimatedFit != 9.5 {
		t.Fatalf("expected provider fit to be kept, got %+v", res.Candidates[0])
	}
	if res.Candidates[1].EstimatedFit != DefaultFit {
		t.Fatalf("expected heuristic score for low-confidence fit, got %v", res.Candidates[1].EstimatedFit)
	}
}

func TestAggregateProviderTimeout(t *testing.T) {
	slow := &stubProvider{name: "slow", delay: time.Second, result: records(CandidateProfile{Name: "Late"})}
	fast := &stubProvider{name: "fast", result: records(CandidateProfile{Name: "Quick"})}

	start := time.Now()
	res, err := New(WithProviders(slow, fast), WithProviderTimeout(50*time.Millisecond)).
		Aggregate(context.Background(), SearchRequest{Keywords: "mason"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("aggregation waited too long: %s", elapsed)
	}
	if res.Failures["slow"] != TagTransient {
		t.Fatalf("expected slow provider to time out, got %v", res.Failures)
	}
	if len(res.Candidates) != 1 || res.Candidates[0].Name != "Quick" {
		t.Fatalf("unexpected candidates: %+v", res.Candidates)
	}
}

// stubbornProvider blocks until released and never looks at ctx.
type stubbornProvider struct {
	release chan struct{}
}

func (s *stubbornProvider) Name() string { return "stubborn" }

func (s *stubbornProvider) Search(context.Context, SearchRequest) Result {
	<-s.release
	return records(CandidateProfile{Name: "Too Late"})
}

func TestAggregateAbandonsProviderIgnoringContext(t *testing.T) {
	stubborn := &stubbornProvider{release: make(chan struct{})}
	t.Cleanup(func() { close(stubborn.release) })
	fast := &stubProvider{name: "fast", result: records(CandidateProfile{Name: "Quick"})}

	start := time.Now()
	res, err := New(WithProviders(stubborn, fast), WithProviderTimeout(50*time.Millisecond)).
		Aggregate(context.Background(), SearchRequest{Keywords: "roofer"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("aggregation waited for the stubborn provider: %s", elapsed)
	}
	if res.Failures["stubborn"] != TagTransient {
		t.Fatalf("expected stubborn provider to time out, got %v", res.Failures)
	}
	if len(res.Candidates) != 1 || res.Candidates[0].Name != "Quick" {
		t.Fatalf("unexpected candidates: %+v", res.Candidates)
	}
}

func TestAggregateCancellation(t *testing.T) {
	core, observed := observer.New(zapcore.WarnLevel)
	slow := &stubProvider{name: "slow", delay: time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := New(WithProviders(slow), WithLogger(zap.New(core))).Aggregate(ctx, SearchRequest{Keywords: "glazier"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if observed.Len() != 0 {
		t.Fatalf("expected no warnings after cancellation, got %d", observed.Len())
	}
}

func TestAggregateUsesCache(t *testing.T) {
	p := &stubProvider{name: "A", result: records(CandidateProfile{Name: "Dora", Email: "dora@x.com"})}
	agg := New(WithProviders(p), WithCache(NewCache(4, time.Minute)))

	req := SearchRequest{Keywords: "Carpenter", Skills: []string{"Framing", "finishing"}}
	first, err := agg.Aggregate(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first.Candidates[0].Name = "mutated"

	second, err := agg.Aggregate(context.Background(), SearchRequest{Keywords: "carpenter ", Skills: []string{"finishing", "framing"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if p.calls.Load() != 1 {
		t.Fatalf("expected a single provider call, got %d", p.calls.Load())
	}
	if !second.Cached {
		t.Fatalf("expected cached result")
	}
	if second.Candidates[0].Name != "Dora" {
		t.Fatalf("cache entry was mutated: %+v", second.Candidates[0])
	}
	if second.SearchID != first.SearchID {
		t.Fatalf("expected cached search id %s, got %s", first.SearchID, second.SearchID)
	}
}

type stubRanker struct {
	scores []float64
	err    error
	seen   int
}

func (s *stubRanker) Rank(_ context.Context, candidates []CandidateProfile, _ SearchRequest) ([]CandidateProfile, error) {
	s.seen = len(candidates)
	if s.err != nil {
		return nil, s.err
	}
	out := make([]CandidateProfile, len(candidates))
	for i, c := range candidates {
		c.EstimatedFit = s.scores[i]
		out[i] = c
	}
	return out, nil
}

func TestAggregateRankerOverridesBatch(t *testing.T) {
	p := &stubProvider{name: "A", result: records(
		CandidateProfile{Name: "First", Title: "Electrician"},
		CandidateProfile{Name: "Second"},
		CandidateProfile{Name: "Third"},
	)}
	ranker := &stubRanker{scores: []float64{1, 11}}

	res, err := New(WithProviders(p), WithRanker(ranker, 2, time.Second)).
		Aggregate(context.Background(), SearchRequest{Keywords: "electrician"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ranker.seen != 2 {
		t.Fatalf("expected batch of 2, got %d", ranker.seen)
	}
	if res.Candidates[0].Name != "Second" || res.Candidates[0].EstimatedFit != MaxFit {
		t.Fatalf("expected clamped ranker score on top, got %+v", res.Candidates[0])
	}
	if res.Candidates[2].Name != "First" || res.Candidates[2].EstimatedFit != 1 {
		t.Fatalf("expected ranker to demote First, got %+v", res.Candidates[2])
	}
}

func TestAggregateRankerFailureKeepsHeuristic(t *testing.T) {
	p := &stubProvider{name: "A", result: records(CandidateProfile{Name: "Solo", Title: "Electrician"})}
	ranker := &stubRanker{err: errors.New("quota")}

	res, err := New(WithProviders(p), WithRanker(ranker, 0, 0)).
		Aggregate(context.Background(), SearchRequest{Keywords: "electrician"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Candidates[0].EstimatedFit != 7 {
		t.Fatalf("expected heuristic score 7, got %v", res.Candidates[0].EstimatedFit)
	}
}

type recorderStub struct {
	sources  map[string]error
	searches int
}

func (r *recorderStub) RecordSource(source string, _ int, err error) { r.sources[source] = err }

func (r *recorderStub) RecordSearch(string, SearchRequest, int) { r.searches++ }

func TestAggregateRecordsProvenance(t *testing.T) {
	rec := &recorderStub{sources: map[string]error{}}
	providers := []Provider{
		&stubProvider{name: "ok", result: Records()},
		&stubProvider{name: "bad", result: Failure(ErrTransient)},
	}

	if _, err := New(WithProviders(providers...), WithRecorder(rec)).Aggregate(context.Background(), SearchRequest{Keywords: "roofer"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(rec.sources) != 2 || rec.sources["ok"] != nil || !errors.Is(rec.sources["bad"], ErrTransient) {
		t.Fatalf("unexpected recorded sources: %v", rec.sources)
	}
	if rec.searches != 1 {
		t.Fatalf("expected one recorded search, got %d", rec.searches)
	}
}
