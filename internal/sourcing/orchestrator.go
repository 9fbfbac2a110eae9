package sourcing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultProviderTimeout = 10 * time.Second
	DefaultRankBatch       = 30
	DefaultRankTimeout     = 30 * time.Second
)

// Ranker re-scores a batch of candidates, usually with a language model.
// It must return one candidate per input, in the same order.
type Ranker interface {
	Rank(ctx context.Context, candidates []CandidateProfile, req SearchRequest) ([]CandidateProfile, error)
}

// Recorder receives per-search provenance. Implementations must be safe for concurrent use.
type Recorder interface {
	RecordSource(source string, candidates int, err error)
	RecordSearch(searchID string, req SearchRequest, totalFound int)
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithProviders sets the providers queried for every request.
func WithProviders(providers ...Provider) Option {
	return func(a *Aggregator) {
		a.providers = append(a.providers, providers...)
	}
}

// WithScorer replaces the heuristic scorer.
func WithScorer(scorer Scorer) Option {
	return func(a *Aggregator) {
		if scorer != nil {
			a.scorer = scorer
		}
	}
}

// WithRanker enables a batch ranking pass after heuristic scoring.
func WithRanker(ranker Ranker, batch int, timeout time.Duration) Option {
	return func(a *Aggregator) {
		a.ranker = ranker
		if batch > 0 {
			a.rankBatch = batch
		}
		if timeout > 0 {
			a.rankTimeout = timeout
		}
	}
}

// WithCache enables the response cache.
func WithCache(cache *Cache) Option {
	return func(a *Aggregator) {
		a.cache = cache
	}
}

// WithRecorder attaches a provenance recorder.
func WithRecorder(recorder Recorder) Option {
	return func(a *Aggregator) {
		a.recorder = recorder
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithProviderTimeout sets the per-provider call timeout.
func WithProviderTimeout(timeout time.Duration) Option {
	return func(a *Aggregator) {
		if timeout > 0 {
			a.timeout = timeout
		}
	}
}

// WithConcurrency bounds the number of providers queried at once.
func WithConcurrency(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithIDGenerator overrides search id generation.
func WithIDGenerator(gen func() string) Option {
	return func(a *Aggregator) {
		if gen != nil {
			a.newID = gen
		}
	}
}

// Aggregator fans a search request out to all providers and merges the answers.
// It holds no per-request state and may be shared between goroutines.
type Aggregator struct {
	providers   []Provider
	scorer      Scorer
	ranker      Ranker
	rankBatch   int
	rankTimeout time.Duration
	cache       *Cache
	recorder    Recorder
	logger      *zap.Logger
	timeout     time.Duration
	concurrency int
	newID       func() string
}

// New builds an Aggregator. Providers are queried in the order given.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		scorer:      HeuristicScorer,
		rankBatch:   DefaultRankBatch,
		rankTimeout: DefaultRankTimeout,
		logger:      zap.NewNop(),
		timeout:     DefaultProviderTimeout,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.concurrency <= 0 {
		a.concurrency = max(len(a.providers), 1)
	}
	return a
}

// Sources returns the configured provider names.
func (a *Aggregator) Sources() []string {
	names := make([]string, 0, len(a.providers))
	for _, p := range a.providers {
		names = append(names, p.Name())
	}
	return names
}

// Aggregate runs one search across all providers. Provider failures never fail the
// call; only ErrInvalidRequest or the context error are returned.
func (a *Aggregator) Aggregate(ctx context.Context, req SearchRequest) (AggregatedResult, error) {
	if err := req.Validate(); err != nil {
		return AggregatedResult{}, err
	}
	req = req.WithDefaults()

	if a.cache != nil {
		if res, ok := a.cache.Get(req); ok {
			a.logger.Info("serving search from cache",
				zap.String("search_id", res.SearchID),
				zap.String("keywords", req.Keywords),
			)
			res.Cached = true
			return res, nil
		}
	}

	searchID := a.newID()
	logger := a.logger.With(zap.String("search_id", searchID))
	logger.Info("starting aggregation",
		zap.String("keywords", req.Keywords),
		zap.String("location", req.Location),
		zap.Strings("skills", req.Skills),
		zap.Int("providers", len(a.providers)),
	)

	results, err := a.dispatch(ctx, req)
	if err != nil {
		logger.Debug("aggregation cancelled", zap.Error(err))
		return AggregatedResult{}, err
	}

	res := AggregatedResult{
		SearchID:         searchID,
		Candidates:       []CandidateProfile{},
		SourcesQueried:   make([]string, 0, len(a.providers)),
		SourcesSucceeded: make([]string, 0, len(a.providers)),
	}

	var flat []CandidateProfile
	raw := 0
	for i, p := range a.providers {
		name := p.Name()
		res.SourcesQueried = appendUnique(res.SourcesQueried, name)
		result := results[i]

		if !result.Succeeded() {
			tag := FailureTag(result.Err)
			if res.Failures == nil {
				res.Failures = make(map[string]string)
			}
			if _, seen := res.Failures[name]; !seen {
				res.Failures[name] = tag
			}
			logger.Warn("provider failed",
				zap.String("source", name),
				zap.String("failure", tag),
				zap.Error(result.Err),
			)
			a.record(name, 0, result.Err)
			continue
		}

		res.SourcesSucceeded = appendUnique(res.SourcesSucceeded, name)
		kept := 0
		for _, record := range result.Records {
			raw++
			candidate, ok := Normalize(record, name)
			if !ok {
				continue
			}
			kept++
			flat = append(flat, candidate)
		}
		logger.Debug("provider returned",
			zap.String("source", name),
			zap.Int("records", len(result.Records)),
			zap.Int("usable", kept),
		)
		a.record(name, kept, nil)
	}
	// A source queried twice under one name may have both failed and succeeded.
	for _, name := range res.SourcesSucceeded {
		delete(res.Failures, name)
	}
	logStep(logger, "normalize", newStep(raw, len(flat)))

	deduped := Dedupe(flat)
	logStep(logger, "dedupe", newStep(len(flat), len(deduped)))

	a.score(deduped, req)
	if a.ranker != nil && len(deduped) > 0 {
		a.rank(ctx, deduped, req, logger)
	}

	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].EstimatedFit > deduped[j].EstimatedFit
	})

	res.TotalFound = len(deduped)
	if len(deduped) > req.ResultLimit {
		deduped = deduped[:req.ResultLimit]
	}
	logStep(logger, "truncate", newStep(res.TotalFound, len(deduped)))
	res.Candidates = append(res.Candidates, deduped...)

	if unavailable := res.Unavailable(); len(unavailable) > 0 {
		logger.Info(fmt.Sprintf("%d of %d sources unavailable", len(unavailable), len(res.SourcesQueried)),
			zap.Strings("sources", unavailable),
		)
	}
	logger.Info("aggregation finished",
		zap.Int("total_found", res.TotalFound),
		zap.Int("returned", len(res.Candidates)),
		zap.Strings("sources_succeeded", res.SourcesSucceeded),
	)

	if a.recorder != nil {
		a.recorder.RecordSearch(searchID, req, res.TotalFound)
	}
	if a.cache != nil && len(res.SourcesSucceeded) > 0 {
		a.cache.Add(req, res)
	}

	return res, nil
}

// dispatch queries every provider concurrently. When ctx ends first, in-flight
// calls are abandoned and their results discarded.
func (a *Aggregator) dispatch(ctx context.Context, req SearchRequest) ([]Result, error) {
	results := make([]Result, len(a.providers))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		g := new(errgroup.Group)
		g.SetLimit(a.concurrency)
		for i, p := range a.providers {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				results[i] = a.call(ctx, p, req)
				return nil
			})
		}
		_ = g.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// call runs one provider under its own timeout. A provider that ignores ctx is
// abandoned when the timeout fires and its late result is dropped.
func (a *Aggregator) call(ctx context.Context, p Provider, req SearchRequest) Result {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	name := p.Name()
	out := make(chan Result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				out <- Failure(fmt.Errorf("%w: %s panicked: %v", ErrTransient, name, r))
			}
		}()
		out <- p.Search(ctx, req)
	}()

	select {
	case res := <-out:
		if res.Err == nil && len(res.Records) == 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Failure(fmt.Errorf("%w: %s: %w", ErrTransient, name, ctx.Err()))
		}
		return res
	case <-ctx.Done():
		return Failure(fmt.Errorf("%w: %s: %w", ErrTransient, name, ctx.Err()))
	}
}

func (a *Aggregator) score(candidates []CandidateProfile, req SearchRequest) {
	for i := range candidates {
		c := &candidates[i]
		if c.ProviderFit != nil && c.ProviderFit.Confident {
			c.EstimatedFit = clamp(c.ProviderFit.Score)
			continue
		}
		c.EstimatedFit = clamp(a.scorer.Score(*c, req))
	}
}

// rank sends the best heuristic candidates to the ranker and writes its scores back.
// Any ranker error keeps the heuristic scores.
func (a *Aggregator) rank(ctx context.Context, candidates []CandidateProfile, req SearchRequest, logger *zap.Logger) {
	idx := make([]int, len(candidates))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return candidates[idx[i]].EstimatedFit > candidates[idx[j]].EstimatedFit
	})
	if len(idx) > a.rankBatch {
		idx = idx[:a.rankBatch]
	}

	batch := make([]CandidateProfile, 0, len(idx))
	for _, i := range idx {
		batch = append(batch, candidates[i])
	}

	rctx, cancel := context.WithTimeout(ctx, a.rankTimeout)
	defer cancel()

	ranked, err := a.ranker.Rank(rctx, batch, req)
	if err == nil && len(ranked) != len(batch) {
		err = fmt.Errorf("ranker returned %d candidates for a batch of %d", len(ranked), len(batch))
	}
	if err != nil {
		if ctx.Err() != nil {
			logger.Debug("ranking abandoned", zap.Error(err))
			return
		}
		logger.Warn("ranking failed, keeping heuristic scores", zap.Error(err))
		return
	}

	for n, i := range idx {
		candidates[i] = ranked[n]
		candidates[i].EstimatedFit = clamp(ranked[n].EstimatedFit)
	}
	logger.Debug("ranking applied", zap.Int("ranked", len(idx)))
}

func (a *Aggregator) record(source string, candidates int, err error) {
	if a.recorder != nil {
		a.recorder.RecordSource(source, candidates, err)
	}
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
