package httpadapter

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/doc-classifier/internal/config"
	"github.com/kirillkom/doc-classifier/internal/core/domain"
	"github.com/kirillkom/doc-classifier/internal/core/ports"
	"github.com/kirillkom/doc-classifier/internal/observability/metrics"
)

const (
	userIDHeader    = "X-User-Id"
	userLoginHeader = "X-User-Login"

	multipartMemory = 32 << 20
)

// Services bundles the inbound ports served over HTTP.
type Services struct {
	Documents ports.DocumentClassifier
	Archives  ports.ArchiveClassifier
	Jobs      ports.ArchiveJobService
	Ratings   ports.RatingService
	Analytics ports.AnalyticsService
	Models    ports.ModelCatalog
	Operators ports.OperatorDirectory
}

type Router struct {
	cfg           config.Config
	services      Services
	metrics       *metrics.HTTPServerMetrics
	defaultLocale domain.Locale
}

func NewRouter(cfg config.Config, services Services, httpMetrics *metrics.HTTPServerMetrics) *Router {
	locale := domain.ParseLocale(cfg.DefaultLocale)
	if locale == "" {
		locale = domain.LocaleRU
	}
	return &Router{
		cfg:           cfg,
		services:      services,
		metrics:       httpMetrics,
		defaultLocale: locale,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	mux.HandleFunc("GET /v1/models", rt.listModels)
	mux.HandleFunc("POST /v1/documents/classify", rt.classifyDocument)
	mux.HandleFunc("POST /v1/archives/classify", rt.classifyArchive)
	mux.HandleFunc("POST /v1/archives/jobs", rt.enqueueArchive)
	mux.HandleFunc("GET /v1/archives/jobs/{id}", rt.getArchiveJob)
	mux.HandleFunc("GET /v1/archives/jobs/{id}/download", rt.downloadArchiveJob)
	mux.HandleFunc("POST /v1/classifications/{id}/rating", rt.submitRating)
	mux.HandleFunc("GET /v1/analytics", rt.analytics)
	mux.HandleFunc("GET /v1/analytics/export.xlsx", rt.exportAnalytics)

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, time.Duration(rt.cfg.APIBackpressureWaitMS)*time.Millisecond)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type modelsResponse struct {
	Document        []domain.ModelInfo `json:"document"`
	Archive         []domain.ModelInfo `json:"archive"`
	DefaultDocument string             `json:"default_document,omitempty"`
	DefaultArchive  string             `json:"default_archive,omitempty"`
}

func (rt *Router) listModels(w http.ResponseWriter, _ *http.Request) {
	catalog := rt.services.Models
	writeJSON(w, http.StatusOK, modelsResponse{
		Document:        nonNil(catalog.Models(domain.ModelScopeDocument)),
		Archive:         nonNil(catalog.Models(domain.ModelScopeArchive)),
		DefaultDocument: catalog.DefaultName(domain.ModelScopeDocument),
		DefaultArchive:  catalog.DefaultName(domain.ModelScopeArchive),
	})
}

// requestContext resolves the operator identity and display locale. The
// locale query parameter wins over Accept-Language.
func (rt *Router) requestContext(r *http.Request) domain.RequestContext {
	locale := domain.ParseLocale(r.URL.Query().Get("locale"))
	if locale == "" {
		locale = domain.ParseLocale(r.Header.Get("Accept-Language"))
	}
	if locale == "" {
		locale = rt.defaultLocale
	}
	return domain.RequestContext{
		UserID: strings.TrimSpace(r.Header.Get(userIDHeader)),
		Login:  strings.TrimSpace(r.Header.Get(userLoginHeader)),
		Locale: locale,
	}
}

// operator is requestContext for write endpoints: it rejects anonymous
// requests before any upload is read and remembers the operator login.
func (rt *Router) operator(w http.ResponseWriter, r *http.Request) (domain.RequestContext, bool) {
	req := rt.requestContext(r)
	if req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "header " + userIDHeader + " is required"})
		return req, false
	}
	if rt.services.Operators == nil {
		return req, true
	}
	if err := rt.services.Operators.RememberOperator(r.Context(), req); err != nil {
		if domain.IsKind(err, domain.ErrInvalidInput) {
			rt.writeError(w, r, err)
			return req, false
		}
		// The login only labels analytics rows; the request goes on.
		slog.Warn("remember_operator_failed",
			"request_id", requestIDFromContext(r.Context()),
			"user_id", req.UserID,
			"error", err,
		)
	}
	return req, true
}

func (rt *Router) maxUploadBytes() int64 {
	if rt.cfg.MaxUploadMB <= 0 {
		return 100 << 20
	}
	return int64(rt.cfg.MaxUploadMB) << 20
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "upload exceeds the size limit"})
		return
	}

	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
