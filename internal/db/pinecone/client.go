package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kailas-cloud/rfprag/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// apiVersion pins the data-plane API revision.
const apiVersion = "2025-01"

// Config holds data-plane connection settings.
type Config struct {
	Host       string // index host, e.g. rfp-chunks-abc123.svc.us-east1-gcp.pinecone.io
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client // optional, mainly for tests
}

// Store queries a Pinecone index over its REST data plane.
// KNNQuery.IndexName is used as the namespace.
type Store struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewStore creates a Pinecone store.
func NewStore(cfg Config) (*Store, error) {
	host := strings.TrimRight(strings.TrimSpace(cfg.Host), "/")
	if host == "" {
		return nil, fmt.Errorf("host is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}

	return &Store{baseURL: host, apiKey: cfg.APIKey, httpClient: hc}, nil
}

// Ping checks the index is reachable and the key is accepted.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.post(ctx, db.OpStats, "/describe_index_stats", map[string]any{}, nil); err != nil {
		return err
	}
	return nil
}

// Close releases idle connections.
func (s *Store) Close() {
	s.httpClient.CloseIdleConnections()
}

// WaitForReady polls Ping until the index responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(250 * time.Millisecond)
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

func (s *Store) post(ctx context.Context, op, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s body: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Api-Key", s.apiKey)
	req.Header.Set("X-Pinecone-API-Version", apiVersion)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &db.Error{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &db.Error{Op: op, Err: statusErr(resp)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}

// statusErr keeps throttling and server faults retryable; other 4xx are rejections.
// The response body is deliberately not included.
func statusErr(resp *http.Response) error {
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return fmt.Errorf("status %s", resp.Status)
	}
	return fmt.Errorf("%w: status %s", db.ErrRejected, resp.Status)
}
