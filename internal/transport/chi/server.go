package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/rfprag/internal/domain"
	"github.com/kailas-cloud/rfprag/internal/domain/search/depth"
	"github.com/kailas-cloud/rfprag/internal/domain/search/request"
	"github.com/kailas-cloud/rfprag/internal/domain/search/result"
	logpkg "github.com/kailas-cloud/rfprag/internal/logger"
	healthuc "github.com/kailas-cloud/rfprag/internal/usecase/health"
	retrievaluc "github.com/kailas-cloud/rfprag/internal/usecase/retrieval"
	"github.com/kailas-cloud/rfprag/internal/version"
)

// RetrievePath is the retrieval route pattern.
const RetrievePath = "/v1/tenants/{tenant}/retrieve"

const maxBodyBytes = 4 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server is the HTTP boundary of the retrieval service.
type Server struct {
	retriever     retrievaluc.Retriever
	health        *healthuc.Service
	limiter       *TenantLimiter
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithTenantLimiter enables per-tenant rate limiting on the retrieval route.
func WithTenantLimiter(l *TenantLimiter) ServerOption {
	return func(s *Server) { s.limiter = l }
}

// NewServer creates an HTTP API server.
func NewServer(
	retriever retrievaluc.Retriever,
	health *healthuc.Service,
	logger *zap.Logger,
	opts ...ServerOption,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		retriever: retriever,
		health:    health,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidTenant, http.StatusBadRequest, ErrorCodeInvalidTenant),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, ErrorCodeVectorDimMismatch),
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, ErrorCodeRateLimited),
		sentinelHandler(domain.ErrProviderUnavailable, http.StatusBadGateway, ErrorCodeProviderUnavailable),
		sentinelHandler(context.DeadlineExceeded, http.StatusGatewayTimeout, ErrorCodeTimeout),
		sentinelHandler(context.Canceled, http.StatusGatewayTimeout, ErrorCodeTimeout),
	}
	return s
}

// Mount registers the routes on r.
func (s *Server) Mount(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	retrieve := r
	if s.limiter != nil {
		retrieve = r.With(s.limiter.Middleware)
	}
	retrieve.Post(RetrievePath, s.Retrieve)
}

// Retrieve handles POST /v1/tenants/{tenant}/retrieve.
func (s *Server) Retrieve(w http.ResponseWriter, r *http.Request) {
	var req RetrieveRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	out, err := s.retriever.Retrieve(r.Context(), req.Embedding, req.Category, tenantParam(r), request.Options{
		PinnedSourceRfpID: req.PinnedSourceRfpID,
		Depth:             depth.Depth(req.Depth),
	})
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	s.respond(w, r, http.StatusOK, retrieveToAPI(&out))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	s.respond(w, r, httpStatus, HealthResponse{
		Status:  string(report.Status),
		Checks:  checks,
		Version: version.Version,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// tenantParam returns the decoded {tenant} path segment, verbatim otherwise.
func tenantParam(r *http.Request) string {
	raw := chi.URLParam(r, "tenant")
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func retrieveToAPI(out *retrievaluc.Outcome) RetrieveResponse {
	results := make([]RankedResult, len(out.Results))
	for i := range out.Results {
		results[i] = rankedToAPI(&out.Results[i])
	}
	st := out.Stats
	return RetrieveResponse{
		Results: results,
		Stats: RetrievalStats{
			Total:          st.Total,
			Pinned:         st.Pinned,
			Support:        st.Support,
			Historical:     st.Historical,
			ForeignDropped: st.ForeignDropped,
			Deduplicated:   st.Deduplicated,
			Redacted:       st.Redacted,
		},
		Available: out.Available,
		Depth:     out.Depth,
	}
}

func rankedToAPI(r *result.Ranked) RankedResult {
	md := r.Metadata()
	b := r.Breakdown()

	var createdAt *time.Time
	if !md.CreatedAt.IsZero() {
		t := md.CreatedAt
		createdAt = &t
	}

	return RankedResult{
		ID:             r.ID(),
		Text:           r.Text(),
		Source:         string(r.Source()),
		Similarity:     r.Similarity(),
		CompositeScore: r.CompositeScore(),
		Metadata: ResultMetadata{
			DocumentID:      md.DocumentID,
			TenantID:        md.TenantID,
			Category:        md.Category,
			CreatedAt:       createdAt,
			DocumentPurpose: md.DocumentPurpose,
			RfpID:           md.RfpID,
			Source:          string(md.Source),
		},
		ScoreBreakdown: ScoreBreakdown{
			Semantic:      b.Semantic,
			Outcome:       b.Outcome,
			Recency:       b.Recency,
			Quality:       b.Quality,
			SourceBoost:   b.SourceBoost,
			CategoryBoost: b.CategoryBoost,
		},
	}
}

// internalErrorBody is sent when a response body cannot be encoded.
var internalErrorBody = []byte(`{"code":"internal_error","message":"internal error"}` + "\n")

// writeJSON encodes v before touching the response. On encoding failure it
// sends a 500 internal_error instead and returns the error.
func writeJSON(w http.ResponseWriter, status int, v any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write(internalErrorBody)
		return fmt.Errorf("encode response: %w", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
	return nil
}

// respond writes v and logs encoding failures with the request logger.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	if err := writeJSON(w, status, v); err != nil {
		logpkg.FromContext(r.Context(), s.logger).Error("response encoding failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	_ = writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	var ite *domain.InvalidTenantError
	if errors.As(err, &ite) {
		return ite.Error()
	}
	sentinels := []error{
		domain.ErrInvalidTenant,
		domain.ErrVectorDimMismatch,
		domain.ErrInvalidRequest,
		domain.ErrRateLimited,
		domain.ErrProviderUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return "request timed out"
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	log := logpkg.FromContext(ctx, s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
