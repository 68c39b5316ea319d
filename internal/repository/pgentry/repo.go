// Package pgentry stores catalog entries in a pgvector table.
package pgentry

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/kailas-cloud/catalograg/internal/domain"
	"github.com/kailas-cloud/catalograg/internal/domain/catalog"
	"github.com/kailas-cloud/catalograg/internal/domain/search/filter"
	"github.com/kailas-cloud/catalograg/internal/domain/search/result"
)

const undefinedTable = "42P01"

// columns maps filterable metadata fields to table columns.
var columns = map[string]string{
	catalog.FieldID:       "record_id",
	catalog.FieldCategory: "category",
	catalog.FieldBrand:    "brand",
	catalog.FieldPrice:    "price",
	catalog.FieldLikes:    "likes_count",
	catalog.FieldIsNew:    "is_new",
}

// pool is the consumer interface over pgxpool.Pool (ISP).
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

// Repo implements usecase/index.Repository on PostgreSQL with pgvector.
type Repo struct {
	db    pool
	cfg   domain.IndexConfig
	table string
}

// New creates a repository storing entries in a table named after the collection.
func New(db pool, cfg domain.IndexConfig) *Repo {
	return &Repo{db: db, cfg: cfg, table: pgx.Identifier{cfg.Collection}.Sanitize()}
}

// EnsureIndex creates the entries table and its vector index when absent.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, createTableSQL(r.table, r.cfg.Dimensions)); err != nil {
		return fmt.Errorf("create table %s: %w", r.table, err)
	}
	if stmt := createIndexSQL(r.table, r.cfg); stmt != "" {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create vector index on %s: %w", r.table, err)
		}
	}
	return nil
}

// Upsert writes all entries in one transaction. Replaced rows keep their insertion sequence.
func (r *Repo) Upsert(ctx context.Context, entries []catalog.Entry) (err error) {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	stmt := upsertSQL(r.table)
	batch := &pgx.Batch{}
	for i := range entries {
		e := &entries[i]
		m := e.Metadata
		batch.Queue(stmt,
			e.ID, e.Name, e.DocumentText, m.ID, m.Category, m.Brand,
			m.Price, m.LikesCount, m.IsNew, pgvector.NewVector(e.Embedding),
		)
	}

	br := tx.SendBatch(ctx, batch)
	for i := range entries {
		if _, err = br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("upsert entry %s: %w", entries[i].ID, err)
		}
	}
	if err = br.Close(); err != nil {
		return fmt.Errorf("close upsert batch: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	return nil
}

// Search orders rows matching pred by cosine distance, ties by insertion sequence.
func (r *Repo) Search(
	ctx context.Context, vector []float32, pred filter.Predicate, limit int,
) ([]result.Candidate, error) {
	if limit <= 0 {
		return nil, nil
	}

	stmt, args, err := searchSQL(r.table, pred, limit)
	if err != nil {
		return nil, err
	}
	args = append([]any{pgvector.NewVector(vector)}, args...)

	rows, err := r.db.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", r.table, err)
	}
	defer rows.Close()

	var out []result.Candidate
	for rows.Next() {
		var c result.Candidate
		if err := rows.Scan(
			&c.ID, &c.Name, &c.Document,
			&c.Metadata.ID, &c.Metadata.Category, &c.Metadata.Brand,
			&c.Metadata.Price, &c.Metadata.LikesCount, &c.Metadata.IsNew,
			&c.Distance,
		); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating candidates: %w", err)
	}
	return result.Sanitize(out), nil
}

// Count returns the number of rows. A missing table counts as empty.
func (r *Repo) Count(ctx context.Context) (int, error) {
	var n int64
	err := r.db.QueryRow(ctx, "SELECT count(*) FROM "+r.table).Scan(&n)
	if err != nil {
		if isUndefinedTable(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("count %s: %w", r.table, err)
	}
	return int(n), nil
}

// DeleteAll empties the table, creating it first if needed.
func (r *Repo) DeleteAll(ctx context.Context) error {
	if err := r.EnsureIndex(ctx); err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, "TRUNCATE "+r.table); err != nil {
		return fmt.Errorf("truncate %s: %w", r.table, err)
	}
	return nil
}

// Ping checks database connectivity.
func (r *Repo) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == undefinedTable
}

func createTableSQL(table string, dims int) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id          TEXT PRIMARY KEY,
	seq         BIGSERIAL,
	name        TEXT NOT NULL DEFAULT '',
	document    TEXT NOT NULL DEFAULT '',
	record_id   TEXT NOT NULL DEFAULT '',
	category    TEXT NOT NULL DEFAULT '',
	brand       TEXT NOT NULL DEFAULT '',
	price       DOUBLE PRECISION NOT NULL DEFAULT 0,
	likes_count INTEGER NOT NULL DEFAULT 0,
	is_new      BOOLEAN NOT NULL DEFAULT FALSE,
	embedding   vector(%d) NOT NULL
)`, table, dims)
}

func createIndexSQL(table string, cfg domain.IndexConfig) string {
	if !strings.EqualFold(cfg.Algorithm, "hnsw") {
		return ""
	}
	idx := pgx.Identifier{cfg.Collection + "_embedding_idx"}.Sanitize()
	stmt := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (embedding vector_cosine_ops)", idx, table)
	if cfg.HNSWM > 0 && cfg.HNSWEFConstr > 0 {
		stmt += fmt.Sprintf(" WITH (m = %d, ef_construction = %d)", cfg.HNSWM, cfg.HNSWEFConstr)
	}
	return stmt
}

func upsertSQL(table string) string {
	return fmt.Sprintf(`INSERT INTO %s
	(id, name, document, record_id, category, brand, price, likes_count, is_new, embedding)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	document = EXCLUDED.document,
	record_id = EXCLUDED.record_id,
	category = EXCLUDED.category,
	brand = EXCLUDED.brand,
	price = EXCLUDED.price,
	likes_count = EXCLUDED.likes_count,
	is_new = EXCLUDED.is_new,
	embedding = EXCLUDED.embedding`, table)
}

// searchSQL builds the KNN statement. $1 is reserved for the query vector;
// the returned args start at $2.
func searchSQL(table string, pred filter.Predicate, limit int) (string, []any, error) {
	where, args, err := buildWhere(pred, 2)
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	b.WriteString("SELECT id, name, document, record_id, category, brand, price, likes_count, is_new, ")
	b.WriteString("embedding <=> $1 AS distance FROM ")
	b.WriteString(table)
	if where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(where)
	}
	args = append(args, limit)
	b.WriteString(" ORDER BY distance, seq LIMIT $")
	b.WriteString(strconv.Itoa(len(args) + 1))
	return b.String(), args, nil
}

// buildWhere translates a predicate into a parameterized conjunction starting at $first.
func buildWhere(pred filter.Predicate, first int) (string, []any, error) {
	var clauses []string
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(first+len(args)-1)
	}

	for _, c := range pred.Conditions() {
		col, ok := columns[c.Key()]
		if !ok {
			return "", nil, fmt.Errorf("%w: unknown filter field %q", domain.ErrInvalidInput, c.Key())
		}
		switch {
		case c.IsMatch():
			clauses = append(clauses, col+" = "+next(c.Match()))
		case c.IsRange():
			rng := c.Range()
			bound := func(op string, v *float64) {
				if v == nil {
					return
				}
				if col == "is_new" {
					clauses = append(clauses, "is_new::int "+op+" "+next(*v))
					return
				}
				clauses = append(clauses, col+" "+op+" "+next(*v))
			}
			bound(">", rng.GT())
			bound(">=", rng.GTE())
			bound("<", rng.LT())
			bound("<=", rng.LTE())
		}
	}
	return strings.Join(clauses, " AND "), args, nil
}
