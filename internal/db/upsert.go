// Package db holds the Postgres bulk-write helper used by the store.
package db

import (
	"context"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Upsert describes a keyed bulk write into Table. Rows are COPYed into a
// transaction-scoped staging table and merged with INSERT ... ON CONFLICT.
type Upsert struct {
	Table   string
	Columns []string
	Keys    []string // unique constraint columns
	Update  []string // columns overwritten on conflict; nil means every non-key column
}

func (u Upsert) staging() string {
	return strings.ReplaceAll(u.Table, ".", "_") + "_staging"
}

func (u Upsert) updateColumns() []string {
	if u.Update != nil {
		return u.Update
	}
	var cols []string
	for _, c := range u.Columns {
		if !slices.Contains(u.Keys, c) {
			cols = append(cols, c)
		}
	}
	return cols
}

// statements returns the staging-table DDL and the merge statement.
func (u Upsert) statements() (create, merge string) {
	target := ident(u.Table)
	stage := pgx.Identifier{u.staging()}.Sanitize()
	create = "CREATE TEMP TABLE " + stage + " (LIKE " + target + " INCLUDING DEFAULTS) ON COMMIT DROP"

	cols := identList(u.Columns)
	merge = "INSERT INTO " + target + " (" + cols + ") SELECT " + cols + " FROM " + stage +
		" ON CONFLICT (" + identList(u.Keys) + ")"

	update := u.updateColumns()
	if len(update) == 0 {
		return create, merge + " DO NOTHING"
	}
	sets := make([]string, len(update))
	for i, c := range update {
		q := pgx.Identifier{c}.Sanitize()
		sets[i] = q + " = EXCLUDED." + q
	}
	return create, merge + " DO UPDATE SET " + strings.Join(sets, ", ")
}

// Run writes rows in one transaction and returns the affected row count.
func (u Upsert) Run(ctx context.Context, pool Pool, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(u.Columns) == 0 || len(u.Keys) == 0 {
		return 0, eris.Errorf("db: upsert %s: columns and keys are required", u.Table)
	}
	create, merge := u.statements()

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert %s: begin", u.Table)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, create); err != nil {
		return 0, eris.Wrapf(err, "db: upsert %s: create staging table", u.Table)
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{u.staging()}, u.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: upsert %s: copy %d rows", u.Table, len(rows))
	}
	tag, err := tx.Exec(ctx, merge)
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert %s: merge", u.Table)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrapf(err, "db: upsert %s: commit", u.Table)
	}
	return tag.RowsAffected(), nil
}

// ident quotes a possibly schema-qualified name.
func ident(name string) string {
	return pgx.Identifier(strings.SplitN(name, ".", 2)).Sanitize()
}

func identList(cols []string) string {
	q := make([]string, len(cols))
	for i, c := range cols {
		q[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(q, ", ")
}
