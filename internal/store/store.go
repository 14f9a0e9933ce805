// Package store persists evaluation runs, per-company outcomes and the
// patent chunk index. SQLite is the default backend; Postgres is used when
// store.driver is "postgres".
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/startup-research/internal/config"
	"github.com/sells-group/startup-research/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the evaluation pipeline.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, companies []string) (*model.Run, error)
	CompleteRun(ctx context.Context, runID, finalReport, reportPath string) error
	FailRun(ctx context.Context, runID string, cause error) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Outcomes
	SaveOutcome(ctx context.Context, runID string, outcome model.CompanyOutcome) error
	ListOutcomes(ctx context.Context, runID string) ([]model.CompanyOutcome, error)

	// Patent index
	UpsertPatentChunks(ctx context.Context, chunks []model.PatentChunk) (int64, error)
	SearchPatentChunks(ctx context.Context, company string, query []float32, k int) ([]model.ScoredChunk, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = eris.New("store: not found")

// Open connects to the configured backend and applies migrations.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		st  Store
		err error
	)
	switch cfg.Driver {
	case "sqlite", "":
		dsn := cfg.DatabaseURL
		if dsn == "" {
			dsn = "startup-research.db"
		}
		st, err = NewSQLite(dsn)
	case "postgres":
		st, err = NewPostgres(ctx, cfg.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("store: unsupported driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

func causeText(cause error) string {
	if cause == nil {
		return ""
	}
	return cause.Error()
}
