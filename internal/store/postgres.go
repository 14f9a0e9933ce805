package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/startup-research/internal/db"
	"github.com/sells-group/startup-research/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const postgresRunColumns = `id, companies, status, final_report, report_path, error, created_at, updated_at`

// queries holds the fixed statements issued by PostgresStore.
var queries = map[string]string{
	"insert_run":     `INSERT INTO runs (id, companies, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
	"get_run":        `SELECT ` + postgresRunColumns + ` FROM runs WHERE id = $1`,
	"list_outcomes":  `SELECT idx, company, judgment, retries, summary, final_score FROM company_outcomes WHERE run_id = $1 ORDER BY idx`,
	"company_chunks": `SELECT id, company, source, chunk_index, content, embedding FROM patent_chunks WHERE company = $1 ORDER BY source, chunk_index`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
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
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	companies    JSONB NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	final_report TEXT,
	report_path  TEXT,
	error        TEXT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS company_outcomes (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	idx         INTEGER NOT NULL,
	company     TEXT NOT NULL,
	judgment    TEXT NOT NULL,
	retries     INTEGER NOT NULL DEFAULT 0,
	summary     TEXT NOT NULL,
	final_score DOUBLE PRECISION,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (run_id, idx)
);

CREATE TABLE IF NOT EXISTS patent_chunks (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	company     TEXT NOT NULL,
	source      TEXT NOT NULL,
	chunk_index INTEGER NOT NULL,
	content     TEXT NOT NULL,
	embedding   BYTEA NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (company, source, chunk_index)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_patent_chunks_company ON patent_chunks(company);
`

// Ping checks connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

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

func (s *PostgresStore) CreateRun(ctx context.Context, companies []string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	companiesJSON, err := json.Marshal(companies)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal companies")
	}

	_, err = s.pool.Exec(ctx, queries["insert_run"],
		id, companiesJSON, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Companies: append([]string(nil), companies...),
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID, finalReport, reportPath string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, final_report = $2, report_path = $3, updated_at = $4 WHERE id = $5`,
		string(model.RunStatusComplete), finalReport, reportPath, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, cause error) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
		string(model.RunStatusFailed), causeText(cause), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	r, err := scanRun(s.pool.QueryRow(ctx, queries["get_run"], runID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT ` + postgresRunColumns + ` FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: list runs scan")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) SaveOutcome(ctx context.Context, runID string, o model.CompanyOutcome) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO company_outcomes (run_id, idx, company, judgment, retries, summary, final_score)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (run_id, idx) DO UPDATE SET
		   company = EXCLUDED.company,
		   judgment = EXCLUDED.judgment,
		   retries = EXCLUDED.retries,
		   summary = EXCLUDED.summary,
		   final_score = EXCLUDED.final_score`,
		runID, o.Index, o.Company, string(o.Judgment), o.Retries, o.Summary, o.FinalScore,
	)
	return eris.Wrapf(err, "postgres: save outcome %s/%d", runID, o.Index)
}

func (s *PostgresStore) ListOutcomes(ctx context.Context, runID string) ([]model.CompanyOutcome, error) {
	rows, err := s.pool.Query(ctx, queries["list_outcomes"], runID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list outcomes %s", runID)
	}
	defer rows.Close()

	var out []model.CompanyOutcome
	for rows.Next() {
		var o model.CompanyOutcome
		var judgment string
		if err := rows.Scan(&o.Index, &o.Company, &judgment, &o.Retries, &o.Summary, &o.FinalScore); err != nil {
			return nil, eris.Wrap(err, "postgres: scan outcome")
		}
		o.Judgment = model.Judgment(judgment)
		out = append(out, o)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list outcomes iterate")
}

var patentChunkUpsert = db.Upsert{
	Table:   "patent_chunks",
	Columns: []string{"id", "company", "source", "chunk_index", "content", "embedding"},
	Keys:    []string{"company", "source", "chunk_index"},
	Update:  []string{"content", "embedding"},
}

func (s *PostgresStore) UpsertPatentChunks(ctx context.Context, chunks []model.PatentChunk) (int64, error) {
	rows := make([][]any, 0, len(chunks))
	for _, c := range chunks {
		id := c.ID
		if id == "" {
			id = uuid.New().String()
		}
		rows = append(rows, []any{id, c.Company, c.Source, c.ChunkIndex, c.Content, EncodeVector(c.Embedding)})
	}
	n, err := patentChunkUpsert.Run(ctx, s.pool, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert patent chunks")
	}
	return n, nil
}

func (s *PostgresStore) SearchPatentChunks(ctx context.Context, company string, query []float32, k int) ([]model.ScoredChunk, error) {
	rows, err := s.pool.Query(ctx, queries["company_chunks"], company)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: query patent chunks for %s", company)
	}
	defer rows.Close()

	chunks, err := scanChunks(rows)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan patent chunks")
	}
	return topK(chunks, query, k), nil
}
