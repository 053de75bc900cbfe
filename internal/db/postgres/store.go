package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pgvector/pgvector-go"

	"github.com/kailas-cloud/rfprag/internal/db"
	"github.com/kailas-cloud/rfprag/internal/domain/search/filter"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Store queries a Postgres table with a pgvector column. KNNQuery.IndexName
// is the table name; the table is expected to have columns
// (id TEXT, embedding vector, metadata JSONB).
type Store struct {
	db *sql.DB
}

// Config holds pool settings.
type Config struct {
	DSN             string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// OpenDB opens a pgx-backed database/sql pool.
func OpenDB(cfg Config) (*sql.DB, error) {
	sqlDB, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 10
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxOpen)
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	} else {
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
	return sqlDB, nil
}

// NewStore wraps an open pool.
func NewStore(sqlDB *sql.DB) *Store {
	return &Store{db: sqlDB}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close closes the pool.
func (s *Store) Close() {
	_ = s.db.Close()
}

// WaitForReady polls Ping until the database responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for vector index: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}(\.[A-Za-z_][A-Za-z0-9_]{0,62})?$`)

// SearchKNN runs a cosine-distance nearest neighbour query with the filter
// applied in the WHERE clause. Keys and values are always bound parameters.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if !tableName.MatchString(q.IndexName) {
		return nil, fmt.Errorf("%w: invalid table name", db.ErrInvalidQuery)
	}

	query, args := buildQuery(q)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}
	defer func() { _ = rows.Close() }()

	var entries []db.SearchEntry
	for rows.Next() {
		var (
			id         string
			rawMeta    []byte
			similarity float64
		)
		if err := rows.Scan(&id, &rawMeta, &similarity); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		meta := map[string]any{}
		if len(rawMeta) > 0 {
			if err := json.Unmarshal(rawMeta, &meta); err != nil {
				return nil, fmt.Errorf("decode metadata for %s: %w", id, err)
			}
		}

		entries = append(entries, db.SearchEntry{
			Key:    id,
			Score:  math.Max(0, math.Min(1, similarity)),
			Fields: db.ProjectFields(db.FlattenFields(meta), q.ReturnFields),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}

	return &db.SearchResult{Total: len(entries), Entries: entries}, nil
}

// buildQuery renders the SELECT. $1 is the query vector, $2 the limit,
// filter keys and values follow in pairs.
func buildQuery(q *db.KNNQuery) (string, []any) {
	args := []any{pgvector.NewVector(q.Vector), q.K}
	where := whereClause(q.Filters, &args)

	var sb strings.Builder
	sb.WriteString("SELECT id, metadata, 1 - (embedding <=> $1) AS similarity FROM ")
	sb.WriteString(q.IndexName)
	if where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}
	sb.WriteString(" ORDER BY embedding <=> $1 LIMIT $2")
	return sb.String(), args
}

func whereClause(expr filter.Expression, args *[]any) string {
	if expr.IsEmpty() {
		return ""
	}

	bind := func(c filter.Condition) (string, string) {
		*args = append(*args, c.Key(), c.Match())
		n := len(*args)
		return "$" + strconv.Itoa(n-1), "$" + strconv.Itoa(n)
	}

	var parts []string
	for _, c := range expr.Must() {
		k, v := bind(c)
		parts = append(parts, fmt.Sprintf("metadata->>%s = %s", k, v))
	}
	if len(expr.Should()) > 0 {
		or := make([]string, 0, len(expr.Should()))
		for _, c := range expr.Should() {
			k, v := bind(c)
			or = append(or, fmt.Sprintf("metadata->>%s = %s", k, v))
		}
		parts = append(parts, "("+strings.Join(or, " OR ")+")")
	}
	for _, c := range expr.MustNot() {
		k, v := bind(c)
		parts = append(parts, fmt.Sprintf("metadata->>%s IS DISTINCT FROM %s", k, v))
	}
	return strings.Join(parts, " AND ")
}
