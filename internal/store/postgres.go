package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/preview-cli/internal/model"
)

// Pool is the subset of *pgxpool.Pool the ledger uses. pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool sizing.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres connects a pool and pings it.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = 4
	pgxCfg.MinConns = 1
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			pgxCfg.MaxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			pgxCfg.MinConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS preview_jobs (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	job_id        TEXT NOT NULL UNIQUE,
	url           TEXT NOT NULL,
	state         TEXT NOT NULL DEFAULT 'queued',
	outcome       TEXT NOT NULL DEFAULT 'pending',
	error_message TEXT NOT NULL DEFAULT '',
	template      TEXT NOT NULL DEFAULT '',
	polls         INTEGER NOT NULL DEFAULT 0,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_preview_jobs_outcome ON preview_jobs(outcome);
CREATE INDEX IF NOT EXISTS idx_preview_jobs_url ON preview_jobs(url);
CREATE INDEX IF NOT EXISTS idx_preview_jobs_created_at ON preview_jobs(created_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) RecordSubmitted(ctx context.Context, jobID, url string) (*model.JobRecord, error) {
	rec := newRecord(uuid.New().String(), jobID, url, time.Now().UTC())
	_, err := s.pool.Exec(ctx,
		`INSERT INTO preview_jobs (id, job_id, url, state, outcome, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.JobID, rec.URL, string(rec.State), rec.Outcome, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert job %s", jobID)
	}
	return rec, nil
}

func (s *PostgresStore) UpdateJob(ctx context.Context, jobID string, u JobUpdate) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE preview_jobs SET
			state = COALESCE(NULLIF($1, ''), state),
			outcome = COALESCE(NULLIF($2, ''), outcome),
			error_message = COALESCE(NULLIF($3, ''), error_message),
			template = COALESCE(NULLIF($4, ''), template),
			polls = GREATEST(polls, $5),
			updated_at = $6
		WHERE job_id = $7`,
		string(u.State), u.Outcome, u.ErrorMessage, u.Template, u.Polls, time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update job %s", jobID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: job %s", jobID)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, jobID string) (*model.JobRecord, error) {
	rec, err := scanJob(s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM preview_jobs WHERE job_id = $1`,
		jobID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: job %s", jobID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get job %s", jobID)
	}
	return rec, nil
}

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.JobRecord, error) {
	query := `SELECT ` + jobColumns + ` FROM preview_jobs WHERE true`
	args := []any{}
	argIdx := 1

	add := func(clause string, v any) {
		query += fmt.Sprintf(clause, argIdx)
		args = append(args, v)
		argIdx++
	}
	if filter.State != "" {
		add(` AND state = $%d`, string(filter.State))
	}
	if filter.Outcome != "" {
		add(` AND outcome = $%d`, filter.Outcome)
	}
	if filter.URL != "" {
		add(` AND url = $%d`, filter.URL)
	}
	if !filter.CreatedAfter.IsZero() {
		add(` AND created_at >= $%d`, filter.CreatedAfter.UTC())
	}
	query += ` ORDER BY created_at DESC`
	add(` LIMIT $%d`, filter.limit())
	if filter.Offset > 0 {
		add(` OFFSET $%d`, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list jobs")
	}
	defer rows.Close()

	var out []model.JobRecord
	for rows.Next() {
		rec, err := scanJob(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan job")
		}
		out = append(out, *rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list jobs iterate")
}

func (s *PostgresStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM preview_jobs WHERE created_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete jobs")
	}
	return int(tag.RowsAffected()), nil
}
