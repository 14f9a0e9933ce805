package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/startup-research/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	companies    TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	final_report TEXT,
	report_path  TEXT,
	error        TEXT,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS company_outcomes (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	idx         INTEGER NOT NULL,
	company     TEXT NOT NULL,
	judgment    TEXT NOT NULL,
	retries     INTEGER NOT NULL DEFAULT 0,
	summary     TEXT NOT NULL,
	final_score REAL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (run_id, idx)
);

CREATE TABLE IF NOT EXISTS patent_chunks (
	id          TEXT PRIMARY KEY,
	company     TEXT NOT NULL,
	source      TEXT NOT NULL,
	chunk_index INTEGER NOT NULL,
	content     TEXT NOT NULL,
	embedding   BLOB NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (company, source, chunk_index)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_patent_chunks_company ON patent_chunks(company);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, companies []string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	companiesJSON, err := json.Marshal(companies)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal companies")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, companies, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, string(companiesJSON), string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Companies: append([]string(nil), companies...),
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID, finalReport, reportPath string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, final_report = ?, report_path = ?, updated_at = ? WHERE id = ?`,
		string(model.RunStatusComplete), finalReport, reportPath, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, cause error) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(model.RunStatusFailed), causeText(cause), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, runID)
}

const sqliteRunColumns = `id, companies, status, final_report, report_path, error, created_at, updated_at`

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteRunColumns+` FROM runs WHERE id = ?`,
		runID,
	)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	return r, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT ` + sqliteRunColumns + ` FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: list runs scan")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) SaveOutcome(ctx context.Context, runID string, o model.CompanyOutcome) error {
	var score sql.NullFloat64
	if o.FinalScore != nil {
		score = sql.NullFloat64{Float64: *o.FinalScore, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO company_outcomes (run_id, idx, company, judgment, retries, summary, final_score)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (run_id, idx) DO UPDATE SET
		   company = excluded.company,
		   judgment = excluded.judgment,
		   retries = excluded.retries,
		   summary = excluded.summary,
		   final_score = excluded.final_score`,
		runID, o.Index, o.Company, string(o.Judgment), o.Retries, o.Summary, score,
	)
	return eris.Wrapf(err, "sqlite: save outcome %s/%d", runID, o.Index)
}

func (s *SQLiteStore) ListOutcomes(ctx context.Context, runID string) ([]model.CompanyOutcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, company, judgment, retries, summary, final_score FROM company_outcomes WHERE run_id = ? ORDER BY idx`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list outcomes %s", runID)
	}
	defer rows.Close() //nolint:errcheck

	var out []model.CompanyOutcome
	for rows.Next() {
		var o model.CompanyOutcome
		var judgment string
		var score sql.NullFloat64
		if err := rows.Scan(&o.Index, &o.Company, &judgment, &o.Retries, &o.Summary, &score); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan outcome")
		}
		o.Judgment = model.Judgment(judgment)
		if score.Valid {
			v := score.Float64
			o.FinalScore = &v
		}
		out = append(out, o)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list outcomes iterate")
}

func (s *SQLiteStore) UpsertPatentChunks(ctx context.Context, chunks []model.PatentChunk) (int64, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin patent upsert")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO patent_chunks (id, company, source, chunk_index, content, embedding)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (company, source, chunk_index) DO UPDATE SET
		   content = excluded.content,
		   embedding = excluded.embedding`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare patent upsert")
	}
	defer stmt.Close() //nolint:errcheck

	var n int64
	for _, c := range chunks {
		id := c.ID
		if id == "" {
			id = uuid.New().String()
		}
		if _, err := stmt.ExecContext(ctx, id, c.Company, c.Source, c.ChunkIndex, c.Content, EncodeVector(c.Embedding)); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert chunk %s#%d", c.Source, c.ChunkIndex)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit patent upsert")
	}
	return n, nil
}

func (s *SQLiteStore) SearchPatentChunks(ctx context.Context, company string, query []float32, k int) ([]model.ScoredChunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, company, source, chunk_index, content, embedding FROM patent_chunks WHERE company = ? ORDER BY source, chunk_index`,
		company,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: query patent chunks for %s", company)
	}
	defer rows.Close() //nolint:errcheck

	chunks, err := scanChunks(rows)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan patent chunks")
	}
	return topK(chunks, query, k), nil
}

func checkRowsAffected(res sql.Result, runID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var companiesJSON []byte
	var status string
	var finalReport, reportPath, errText sql.NullString

	err := row.Scan(&r.ID, &companiesJSON, &status, &finalReport, &reportPath, &errText, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(companiesJSON, &r.Companies); err != nil {
		return nil, eris.Wrap(err, "unmarshal companies")
	}
	r.Status = model.RunStatus(status)
	r.FinalReport = finalReport.String
	r.ReportPath = reportPath.String
	r.Error = errText.String
	return &r, nil
}

type rowIterator interface {
	scannable
	Next() bool
	Err() error
}

func scanChunks(rows rowIterator) ([]model.PatentChunk, error) {
	var chunks []model.PatentChunk
	for rows.Next() {
		var c model.PatentChunk
		var blob []byte
		if err := rows.Scan(&c.ID, &c.Company, &c.Source, &c.ChunkIndex, &c.Content, &blob); err != nil {
			return nil, err
		}
		vec, err := DecodeVector(blob)
		if err != nil {
			return nil, err
		}
		c.Embedding = vec
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}
