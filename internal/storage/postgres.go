package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvector "github.com/pgvector/pgvector-go/pgx"
)

// upsertBatchSize bounds the statements queued per wire batch inside the
// upsert transaction.
const upsertBatchSize = 100

// PostgresStore is the retrieval store over a pgx connection pool.
type PostgresStore struct {
	pool      *pgxpool.Pool
	dimension int
}

// NewPostgresStore connects to Postgres and verifies connectivity with
// exponential backoff, failing fast when the database stays unreachable.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	store := &PostgresStore{pool: pool, dimension: VectorDimension}

	if err := store.healthCheckWithRetry(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return store, nil
}

// healthCheckWithRetry pings with exponential backoff. Initial interval
// 500ms, max interval 10s, max elapsed 30s.
func (s *PostgresStore) healthCheckWithRetry(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, backoff.WithContext(b, ctx))
}

// Health performs a single connectivity check.
func (s *PostgresStore) Health(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// EnsureSchema creates the vector extension, the legal_texts table, its
// citation uniqueness constraint and lookup indexes. Idempotent.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id bigserial PRIMARY KEY,
			text text NOT NULL,
			text_vector vector(%d) NOT NULL,
			text_hash varchar(64),
			code varchar(100) NOT NULL,
			section varchar(255) NOT NULL,
			sub_section varchar(500) NOT NULL,
			CONSTRAINT %s UNIQUE (code, section, sub_section)
		)`, TableName, s.dimension, ConstraintName),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS ix_legal_texts_code ON %s (code)`, TableName),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS ix_legal_texts_section ON %s (section)`, TableName),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS ix_legal_texts_text_hash ON %s (text_hash)`, TableName),
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%w: ensure schema: %v", ErrStorage, err)
		}
	}
	return nil
}

// UpsertBatch writes all units in one transaction, replacing text, vector
// and hash in place for any row whose citation already exists. The call is
// atomic: either every unit is applied or none is. Empty input is a no-op.
func (s *PostgresStore) UpsertBatch(ctx context.Context, units []*LegalText) error {
	if len(units) == 0 {
		return nil
	}
	for i, unit := range units {
		if len(unit.Vector) != s.dimension {
			return fmt.Errorf("%w: unit %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(unit.Vector), s.dimension)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrStorage, err)
	}
	defer tx.Rollback(ctx)

	sql := fmt.Sprintf(`INSERT INTO %s (text, text_vector, text_hash, code, section, sub_section)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT ON CONSTRAINT %s DO UPDATE
		SET text = EXCLUDED.text,
		    text_vector = EXCLUDED.text_vector,
		    text_hash = EXCLUDED.text_hash`, TableName, ConstraintName)

	// Queue in bounded wire batches; atomicity comes from the transaction,
	// not the batch size.
	for start := 0; start < len(units); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(units))

		batch := &pgx.Batch{}
		for _, unit := range units[start:end] {
			batch.Queue(sql,
				unit.Text,
				pgvector.NewVector(unit.Vector),
				HashText(unit.Text),
				unit.Code,
				unit.Section,
				unit.SubSection,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("%w: upsert batch %d-%d: %v", ErrStorage, start, end, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrStorage, err)
	}
	return nil
}

// Lookup returns units matching the filter, ordered by (section,
// sub_section) ascending. A zero-match result is an empty slice, never nil.
func (s *PostgresStore) Lookup(ctx context.Context, filter Filter) ([]*LegalText, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	var (
		conds []string
		args  []any
	)
	addCond := func(column, value string) {
		if value != "" {
			args = append(args, value)
			conds = append(conds, fmt.Sprintf("%s = $%d", column, len(args)))
		}
	}
	addCond("code", filter.Code)
	addCond("section", filter.Section)
	addCond("sub_section", filter.SubSection)

	sql := fmt.Sprintf(`SELECT id, text, code, section, sub_section, COALESCE(text_hash, '') FROM %s`, TableName)
	if len(conds) > 0 {
		sql += " WHERE " + strings.Join(conds, " AND ")
	}
	sql += " ORDER BY section, sub_section"

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: lookup: %v", ErrStorage, err)
	}
	defer rows.Close()

	results := []*LegalText{}
	for rows.Next() {
		var lt LegalText
		if err := rows.Scan(&lt.ID, &lt.Text, &lt.Code, &lt.Section, &lt.SubSection, &lt.TextHash); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrStorage, err)
		}
		results = append(results, &lt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: lookup: %v", ErrStorage, err)
	}
	return results, nil
}

// ListCodes returns the distinct codes present in the store, ascending.
func (s *PostgresStore) ListCodes(ctx context.Context) ([]string, error) {
	sql := fmt.Sprintf(`SELECT DISTINCT code FROM %s ORDER BY code`, TableName)

	rows, err := s.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("%w: list codes: %v", ErrStorage, err)
	}
	defer rows.Close()

	codes := []string{}
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrStorage, err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list codes: %v", ErrStorage, err)
	}
	return codes, nil
}

// CountByCode returns the number of stored units for a code.
func (s *PostgresStore) CountByCode(ctx context.Context, code string) (int, error) {
	sql := fmt.Sprintf(`SELECT count(*) FROM %s WHERE code = $1`, TableName)

	var count int
	if err := s.pool.QueryRow(ctx, sql, code).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count by code: %v", ErrStorage, err)
	}
	return count, nil
}

// SemanticSearch returns up to limit units of a code ordered by ascending
// cosine distance to the query vector. When cutoff is non-nil, rows whose
// distance exceeds it are excluded. An empty match set is a valid outcome.
func (s *PostgresStore) SemanticSearch(ctx context.Context, queryVector []float32, code string, limit int, cutoff *float64) ([]SearchResult, error) {
	if len(queryVector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(queryVector), s.dimension)
	}

	vec := pgvector.NewVector(queryVector)
	args := []any{code, vec}

	sql := fmt.Sprintf(`SELECT id, text, code, section, sub_section, COALESCE(text_hash, ''), text_vector <=> $2 AS distance
		FROM %s
		WHERE code = $1`, TableName)
	if cutoff != nil {
		args = append(args, *cutoff)
		sql += fmt.Sprintf(" AND text_vector <=> $2 <= $%d", len(args))
	}
	args = append(args, limit)
	sql += fmt.Sprintf(" ORDER BY distance LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: semantic search: %v", ErrStorage, err)
	}
	defer rows.Close()

	results := []SearchResult{}
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ID, &r.Text, &r.Code, &r.Section, &r.SubSection, &r.TextHash, &r.Distance); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrStorage, err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: semantic search: %v", ErrStorage, err)
	}
	return results, nil
}
