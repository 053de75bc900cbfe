package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kailas-cloud/rfprag/internal/db"
	"github.com/kailas-cloud/rfprag/internal/domain/search/filter"
)

func newStoreWithMock(t *testing.T) (*Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return NewStore(sqlDB), mock, func() { _ = sqlDB.Close() }
}

func TestSearchKNN_TenantFilterIsParameterized(t *testing.T) {
	s, mock, done := newStoreWithMock(t)
	defer done()

	tenant := "company-a' OR '1'='1"
	expr, _ := filter.ForTenant(tenant)

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT id, metadata, 1 - (embedding <=> $1) AS similarity FROM rfp_chunks WHERE metadata->>$3 = $4 ORDER BY embedding <=> $1 LIMIT $2",
	)).
		WithArgs(sqlmock.AnyArg(), 5, "tenant_id", tenant).
		WillReturnRows(sqlmock.NewRows([]string{"id", "metadata", "similarity"}))

	res, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "rfp_chunks",
		Filters:   expr,
		Vector:    []float32{0.1, 0.2},
		K:         5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 0 {
		t.Errorf("expected no rows, got %d", res.Total)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSearchKNN_ScansRows(t *testing.T) {
	s, mock, done := newStoreWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"id", "metadata", "similarity"}).
		AddRow("c-1", []byte(`{"tenant_id":"company-a","text":"hello","isPinned":true,"qualityScore":90}`), 0.87).
		AddRow("c-2", []byte(`{"tenant_id":"company-a","text":"far"}`), -0.4)

	mock.ExpectQuery("SELECT id, metadata").WillReturnRows(rows)

	res, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName:    "public.rfp_chunks",
		Vector:       []float32{1},
		K:            2,
		ReturnFields: []string{"tenant_id", "text", "isPinned", "qualityScore"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 2 {
		t.Fatalf("total = %d", res.Total)
	}
	first := res.Entries[0]
	if first.Key != "c-1" || first.Score != 0.87 {
		t.Errorf("first = %+v", first)
	}
	if first.Fields["isPinned"] != "true" || first.Fields["qualityScore"] != "90" {
		t.Errorf("fields = %v", first.Fields)
	}
	if res.Entries[1].Score != 0 {
		t.Errorf("negative similarity should clamp to 0, got %f", res.Entries[1].Score)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSearchKNN_RejectsBadTableName(t *testing.T) {
	s, _, done := newStoreWithMock(t)
	defer done()

	for _, name := range []string{"rfp_chunks; DROP TABLE x", "1abc", "a.b.c", "chunks\"--"} {
		_, err := s.SearchKNN(context.Background(), &db.KNNQuery{IndexName: name, Vector: []float32{1}, K: 1})
		if !errors.Is(err, db.ErrInvalidQuery) {
			t.Errorf("%q: expected ErrInvalidQuery, got %v", name, err)
		}
	}
}

func TestSearchKNN_QueryError(t *testing.T) {
	s, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, metadata").WillReturnError(errors.New("connection reset"))

	_, err := s.SearchKNN(context.Background(), &db.KNNQuery{IndexName: "rfp_chunks", Vector: []float32{1}, K: 1})
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpSelect {
		t.Fatalf("expected *db.Error with op %s, got %v", db.OpSelect, err)
	}
}

func TestBuildQuery_ShouldAndMustNot(t *testing.T) {
	m, _ := filter.NewMatch("tenant_id", "t1")
	s1, _ := filter.NewMatch("documentPurpose", "rfp_support")
	s2, _ := filter.NewMatch("documentPurpose", "company_info")
	n, _ := filter.NewMatch("category", "draft")
	expr, _ := filter.NewExpression([]filter.Condition{m}, []filter.Condition{s1, s2}, []filter.Condition{n})

	query, args := buildQuery(&db.KNNQuery{IndexName: "t", Filters: expr, Vector: []float32{1}, K: 3})

	want := "SELECT id, metadata, 1 - (embedding <=> $1) AS similarity FROM t WHERE " +
		"metadata->>$3 = $4 AND (metadata->>$5 = $6 OR metadata->>$7 = $8) AND metadata->>$9 IS DISTINCT FROM $10 " +
		"ORDER BY embedding <=> $1 LIMIT $2"
	if query != want {
		t.Errorf("query =\n%s\nwant\n%s", query, want)
	}
	if len(args) != 10 {
		t.Errorf("expected 10 args, got %d", len(args))
	}
}

func TestPing(t *testing.T) {
	s, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectPing().WillReturnError(errors.New("down"))

	err := s.Ping(context.Background())
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpPing {
		t.Fatalf("expected *db.Error with op PING, got %v", err)
	}
}
