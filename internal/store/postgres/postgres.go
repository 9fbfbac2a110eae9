// Package postgres stores imported candidates in a relational database.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/spigell/candidate-scout/internal/importer"
	"github.com/spigell/candidate-scout/internal/sourcing"
)

const SinkName = "postgres"

//go:embed migrations/*.sql
var migrations embed.FS

const insertCandidate = `
INSERT INTO candidates (
    id, identity_key, source, name, email, phone, location, title, company,
    skills, summary, profile_url, estimated_fit, raw_extras
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (identity_key) DO NOTHING`

type Config struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max-conns"`
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store is an importer.Sink backed by a pgx pool.
type Store struct {
	pool   *pgxpool.Pool
	db     execer
	newID  func() uuid.UUID
	logger *zap.Logger
}

// Open connects, pings and applies the embedded migrations.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, errors.New("postgres: dsn is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	s := &Store{pool: pool, db: pool, newID: uuid.New, logger: logger.With(zap.String("sink", SinkName))}
	if err := s.migrate(); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	db := stdlib.OpenDB(*s.pool.Config().ConnConfig)
	defer db.Close()

	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("postgres: migration driver: %w", err)
	}
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("postgres: migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("postgres: migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	version, _, _ := m.Version()
	s.logger.Debug("schema ready", zap.Uint("version", version))
	return nil
}

func (s *Store) Name() string { return SinkName }

// Save inserts the candidate unless a row with the same key exists.
func (s *Store) Save(ctx context.Context, key string, c sourcing.CandidateProfile) (importer.Outcome, error) {
	tag, err := s.db.Exec(ctx, insertCandidate,
		s.newID().String(), key, c.Source, c.Name, strings.ToLower(c.Email), c.Phone,
		c.Location, c.Title, c.Company, skills(c.Skills), c.Summary, c.ProfileURL,
		c.EstimatedFit, c.RawExtras,
	)
	if err != nil {
		return importer.Imported, fmt.Errorf("insert candidate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		s.logger.Debug("candidate exists", zap.String("key", key))
		return importer.Skipped, nil
	}
	return importer.Imported, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func skills(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
