package pinecone

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/kailas-cloud/rfprag/internal/db"
	"github.com/kailas-cloud/rfprag/internal/domain/search/filter"
)

func newTestStore(t *testing.T, h http.HandlerFunc) *Store {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	s, err := NewStore(Config{Host: srv.URL, APIKey: "pc-key", HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestNewStore_Validation(t *testing.T) {
	if _, err := NewStore(Config{APIKey: "k"}); err == nil {
		t.Error("expected error for missing host")
	}
	if _, err := NewStore(Config{Host: "h"}); err == nil {
		t.Error("expected error for missing api key")
	}
}

func TestNewStore_AddsScheme(t *testing.T) {
	s, err := NewStore(Config{Host: "idx.svc.pinecone.io/", APIKey: "k"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.baseURL != "https://idx.svc.pinecone.io" {
		t.Errorf("baseURL = %q", s.baseURL)
	}
}

func TestPing_Success(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/describe_index_stats" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Api-Key") != "pc-key" {
			t.Errorf("Api-Key header = %q", r.Header.Get("Api-Key"))
		}
		_, _ = w.Write([]byte(`{"dimension":1536,"totalVectorCount":10}`))
	})

	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Unauthorized(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	err := s.Ping(context.Background())
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpStats {
		t.Fatalf("expected *db.Error with op %s, got %v", db.OpStats, err)
	}
	if !errors.Is(err, db.ErrRejected) {
		t.Errorf("401 should be a rejection, got %v", err)
	}
}

func TestWaitForReady_Timeout(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	err := s.WaitForReady(context.Background(), 400*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestSearchKNN_RequestShape(t *testing.T) {
	var got map[string]any
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/query" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"matches":[]}`))
	})

	rfp, _ := filter.NewMatch("rfpId", "rfp-1")
	expr, _ := filter.ForTenant("company-a", rfp)

	_, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "rfp-chunks",
		Filters:   expr,
		Vector:    []float32{0.5, 0.25},
		K:         5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got["namespace"] != "rfp-chunks" {
		t.Errorf("namespace = %v", got["namespace"])
	}
	if got["topK"] != float64(5) {
		t.Errorf("topK = %v", got["topK"])
	}
	if got["includeMetadata"] != true {
		t.Errorf("includeMetadata = %v", got["includeMetadata"])
	}
	want := map[string]any{
		"tenant_id": map[string]any{"$eq": "company-a"},
		"rfpId":     map[string]any{"$eq": "rfp-1"},
	}
	if !reflect.DeepEqual(got["filter"], want) {
		t.Errorf("filter = %v, want %v", got["filter"], want)
	}
}

func TestSearchKNN_ParsesMatches(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"matches":[
			{"id":"c-1","score":0.91,"metadata":{"tenant_id":"company-a","text":"hello","isPinned":true,"qualityScore":85}},
			{"id":"c-2","score":1.3,"metadata":{"tenant_id":"company-a","text":"over"}}
		]}`))
	})

	res, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName:    "ns",
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
	if first.Key != "c-1" || first.Score != 0.91 {
		t.Errorf("first = %+v", first)
	}
	if first.Fields["isPinned"] != "true" || first.Fields["qualityScore"] != "85" {
		t.Errorf("fields = %v", first.Fields)
	}
	if res.Entries[1].Score != 1 {
		t.Errorf("score should clamp to 1, got %f", res.Entries[1].Score)
	}
}

func TestSearchKNN_StatusClassification(t *testing.T) {
	tests := []struct {
		status   int
		rejected bool
	}{
		{http.StatusBadRequest, true},
		{http.StatusNotFound, true},
		{http.StatusTooManyRequests, false},
		{http.StatusInternalServerError, false},
		{http.StatusServiceUnavailable, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			s := newTestStore(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"message":"namespace tenant-secret not found"}`))
			})

			_, err := s.SearchKNN(context.Background(), &db.KNNQuery{IndexName: "ns", Vector: []float32{1}, K: 1})
			if err == nil {
				t.Fatal("expected error")
			}
			if errors.Is(err, db.ErrRejected) != tt.rejected {
				t.Errorf("rejected = %v, want %v (%v)", !tt.rejected, tt.rejected, err)
			}
		})
	}
}

func TestSearchKNN_Validation(t *testing.T) {
	s := &Store{}
	_, err := s.SearchKNN(context.Background(), &db.KNNQuery{IndexName: "ns", K: 1})
	if !errors.Is(err, db.ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestRenderFilter(t *testing.T) {
	tenant, _ := filter.ForTenant("company-a")
	if got := renderFilter(tenant); !reflect.DeepEqual(got, map[string]any{
		"tenant_id": map[string]any{"$eq": "company-a"},
	}) {
		t.Errorf("tenant filter = %v", got)
	}

	if got := renderFilter(filter.Expression{}); got != nil {
		t.Errorf("empty expression should render nil, got %v", got)
	}

	a, _ := filter.NewMatch("category", "security")
	n, _ := filter.NewMatch("category", "draft")
	expr, _ := filter.NewExpression([]filter.Condition{a}, nil, []filter.Condition{n})
	got := renderFilter(expr)
	and, ok := got["$and"].([]map[string]any)
	if !ok || len(and) != 2 {
		t.Fatalf("overlapping keys should use $and, got %v", got)
	}

	s1, _ := filter.NewMatch("documentPurpose", "rfp_support")
	s2, _ := filter.NewMatch("documentPurpose", "company_info")
	expr, _ = filter.NewExpression(nil, []filter.Condition{s1, s2}, nil)
	or, ok := renderFilter(expr)["$or"].([]map[string]any)
	if !ok || len(or) != 2 {
		t.Errorf("should conditions should render $or, got %v", renderFilter(expr))
	}
}
