// Package neo4j stores imported candidates as a graph of Candidate, Skill,
// Company and Source nodes.
package neo4j

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/spigell/candidate-scout/internal/importer"
	"github.com/spigell/candidate-scout/internal/sourcing"
)

const SinkName = "neo4j"

const mergeCandidate = `
OPTIONAL MATCH (existing:Candidate {key: $key})
WITH existing IS NULL AS created
MERGE (c:Candidate {key: $key})
ON CREATE SET c.importedAt = datetime()
SET c.name = $name,
    c.email = $email,
    c.phone = $phone,
    c.location = $location,
    c.title = $title,
    c.summary = $summary,
    c.profileUrl = $profileUrl,
    c.estimatedFit = $estimatedFit
MERGE (src:Source {name: $source})
MERGE (c)-[:FOUND_ON]->(src)
FOREACH (skill IN $skills |
    MERGE (s:Skill {name: skill})
    MERGE (c)-[:HAS_SKILL]->(s))
FOREACH (company IN CASE WHEN $company <> '' THEN [$company] ELSE [] END |
    MERGE (co:Company {name: company})
    MERGE (c)-[:WORKS_AT]->(co))
RETURN created`

type Config struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// runner executes the merge and reports whether the candidate node was new.
type runner interface {
	run(ctx context.Context, query string, params map[string]any) (bool, error)
}

type Store struct {
	driver neo4j.DriverWithContext
	runner runner
	logger *zap.Logger
}

// Open creates the driver and verifies connectivity.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	if cfg.URI == "" {
		return nil, errors.New("neo4j: uri is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j: create driver: %w", err)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j: verify connectivity: %w", err)
	}

	return &Store{
		driver: driver,
		runner: sessionRunner{driver: driver, database: cfg.Database},
		logger: logger.With(zap.String("sink", SinkName)),
	}, nil
}

func (s *Store) Name() string { return SinkName }

// Save merges the candidate with its skills, company and source.
// Existing candidates are updated in place and reported as skipped.
func (s *Store) Save(ctx context.Context, key string, c sourcing.CandidateProfile) (importer.Outcome, error) {
	created, err := s.runner.run(ctx, mergeCandidate, params(key, c))
	if err != nil {
		return importer.Imported, err
	}
	if !created {
		s.logger.Debug("candidate merged into existing node", zap.String("key", key))
		return importer.Skipped, nil
	}
	return importer.Imported, nil
}

func (s *Store) Close(ctx context.Context) error {
	if s.driver != nil {
		return s.driver.Close(ctx)
	}
	return nil
}

func params(key string, c sourcing.CandidateProfile) map[string]any {
	skills := make([]any, 0, len(c.Skills))
	for _, skill := range c.Skills {
		skills = append(skills, skill)
	}
	return map[string]any{
		"key":          key,
		"source":       c.Source,
		"name":         c.Name,
		"email":        c.Email,
		"phone":        c.Phone,
		"location":     c.Location,
		"title":        c.Title,
		"company":      c.Company,
		"summary":      c.Summary,
		"profileUrl":   c.ProfileURL,
		"estimatedFit": c.EstimatedFit,
		"skills":       skills,
	}
}

type sessionRunner struct {
	driver   neo4j.DriverWithContext
	database string
}

func (r sessionRunner) run(ctx context.Context, query string, params map[string]any) (bool, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite, DatabaseName: r.database})
	defer session.Close(ctx)

	created, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, fmt.Errorf("run candidate merge: %w", err)
		}
		record, err := result.Single(ctx)
		if err != nil {
			return nil, fmt.Errorf("read candidate merge: %w", err)
		}
		value, _ := record.Get("created")
		flag, _ := value.(bool)
		return flag, nil
	})
	if err != nil {
		return false, err
	}
	return created.(bool), nil
}
