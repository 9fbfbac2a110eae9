// Package importer saves aggregated candidates into the configured databases.
package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/candidate-scout/internal/sourcing"
)

// Outcome of saving one candidate into one sink.
type Outcome int

const (
	Imported Outcome = iota
	// Skipped means the sink already holds a candidate with the same key.
	Skipped
)

// ErrNoKey marks candidates that carry neither email, name nor profile url.
var ErrNoKey = errors.New("candidate has no identity key")

// Sink persists candidates one at a time.
type Sink interface {
	Name() string
	Save(ctx context.Context, key string, c sourcing.CandidateProfile) (Outcome, error)
}

// Report summarizes one sink run.
type Report struct {
	Sink     string   `json:"sink"`
	Total    int      `json:"total"`
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// Key is the de-duplication key a sink stores candidates under:
// the lower-cased email when present, otherwise the weak identity key.
func Key(c sourcing.CandidateProfile) string {
	if email := strings.ToLower(strings.TrimSpace(c.Email)); email != "" {
		return "email:" + email
	}
	return sourcing.IdentityKey(c)
}

type Pipeline struct {
	sinks  []Sink
	logger *zap.Logger
}

func New(logger *zap.Logger, sinks ...Sink) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{sinks: sinks, logger: logger}
}

// Sinks returns the configured sink names.
func (p *Pipeline) Sinks() []string {
	names := make([]string, 0, len(p.sinks))
	for _, s := range p.sinks {
		names = append(names, s.Name())
	}
	return names
}

// Import runs every candidate through every sink. Per-candidate failures are
// collected in the report; only context cancellation stops the run.
func (p *Pipeline) Import(ctx context.Context, candidates []sourcing.CandidateProfile) ([]Report, error) {
	reports := make([]Report, 0, len(p.sinks))

	for _, sink := range p.sinks {
		report := Report{Sink: sink.Name(), Total: len(candidates)}

		for _, c := range candidates {
			if err := ctx.Err(); err != nil {
				return reports, err
			}

			key := Key(c)
			if key == "" {
				report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", c.Source, ErrNoKey))
				continue
			}

			outcome, err := sink.Save(ctx, key, c)
			switch {
			case err != nil:
				if ctx.Err() != nil {
					return reports, ctx.Err()
				}
				report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", key, err))
			case outcome == Skipped:
				report.Skipped++
			default:
				report.Imported++
			}
		}

		p.logger.Info("import finished",
			zap.String("sink", report.Sink),
			zap.Int("total", report.Total),
			zap.Int("imported", report.Imported),
			zap.Int("skipped", report.Skipped),
			zap.Int("errors", len(report.Errors)),
		)
		reports = append(reports, report)
	}

	return reports, nil
}
