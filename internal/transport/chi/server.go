package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docmatch/internal/domain"
	"github.com/kailas-cloud/docmatch/internal/domain/request"
	"github.com/kailas-cloud/docmatch/internal/domain/template"
	"github.com/kailas-cloud/docmatch/internal/logger"
	"github.com/kailas-cloud/docmatch/internal/metrics"
	healthuc "github.com/kailas-cloud/docmatch/internal/usecase/health"
	"github.com/kailas-cloud/docmatch/internal/version"
)

// Dispatcher admits match requests.
type Dispatcher interface {
	Submit(ctx context.Context, req request.Request) request.Submission
	QueueLen(ctx context.Context) (int64, error)
	Running() int
	Capacity() int
}

// OutcomeReader reads persisted match artifacts.
type OutcomeReader interface {
	Get(ctx context.Context, docID string) (json.RawMessage, error)
	GetMatches(ctx context.Context, docID string) (json.RawMessage, error)
	GetStats(ctx context.Context, docID string) (json.RawMessage, error)
}

// TemplateCache exposes cached templates and builds new ones.
type TemplateCache interface {
	Templates() []*template.Cached
	Build(ctx context.Context, t template.Template) (*template.Cached, bool, error)
	Ready() bool
}

// KVStore is the raw store used by the admin endpoints.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) (bool, error)
}

// Server serves the HTTP API.
type Server struct {
	dispatcher    Dispatcher
	outcomes      OutcomeReader
	templates     TemplateCache
	store         KVStore
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	dispatcher Dispatcher,
	outcomes OutcomeReader,
	templates TemplateCache,
	store KVStore,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	return &Server{
		dispatcher:    dispatcher,
		outcomes:      outcomes,
		templates:     templates,
		store:         store,
		health:        health,
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// Routes mounts every endpoint on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/match/async", s.SubmitMatch)
		r.Get("/match/{docID}", s.GetOutcome)
		r.Get("/match/{docID}/matches", s.GetMatches)
		r.Get("/match/{docID}/stats", s.GetStats)
		r.Get("/queue", s.GetQueue)

		r.Get("/templates", s.ListTemplates)
		r.Post("/templates", s.CreateTemplate)

		r.Post("/store/save", s.StoreSave)
		r.Get("/store/get", s.StoreGet)
		r.Delete("/store/delete", s.StoreDelete)
	})
}

// SubmitMatch handles POST /api/match/async.
func (s *Server) SubmitMatch(w http.ResponseWriter, r *http.Request) {
	var body MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(body.Body) == "" {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "body is required")
		return
	}
	if body.Doc == "" {
		body.Doc = uuid.NewString()
	}

	req, err := request.FromBody(body.ClientID, body.Doc, body.Body)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if !s.templates.Ready() {
		s.handleDomainError(w, domain.ErrTemplatesNotReady)
		return
	}

	sub := s.dispatcher.Submit(r.Context(), req)
	if sub.Status == request.Failed {
		logger.FromContextOr(r.Context(), s.logger).Error("Submission failed",
			zap.String("doc_id", req.DocID),
			zap.String("reason", sub.Reason),
		)
		writeError(w, http.StatusInternalServerError, ErrorCodeQueueFailed, "failed to queue request")
		return
	}

	writeJSON(w, http.StatusAccepted, MatchResponse{Status: string(sub.Status), Doc: req.DocID})
}

// GetOutcome handles GET /api/match/{docID}.
func (s *Server) GetOutcome(w http.ResponseWriter, r *http.Request) {
	s.writeArtifact(w, r, s.outcomes.Get)
}

// GetMatches handles GET /api/match/{docID}/matches.
func (s *Server) GetMatches(w http.ResponseWriter, r *http.Request) {
	s.writeArtifact(w, r, s.outcomes.GetMatches)
}

// GetStats handles GET /api/match/{docID}/stats.
func (s *Server) GetStats(w http.ResponseWriter, r *http.Request) {
	s.writeArtifact(w, r, s.outcomes.GetStats)
}

func (s *Server) writeArtifact(
	w http.ResponseWriter, r *http.Request,
	get func(ctx context.Context, docID string) (json.RawMessage, error),
) {
	body, err := get(r.Context(), chi.URLParam(r, "docID"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeRaw(w, http.StatusOK, body)
}

// GetQueue handles GET /api/queue.
func (s *Server) GetQueue(w http.ResponseWriter, r *http.Request) {
	n, err := s.dispatcher.QueueLen(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, QueueResponse{
		Length:   n,
		Running:  s.dispatcher.Running(),
		Capacity: s.dispatcher.Capacity(),
	})
}

// ListTemplates handles GET /api/templates.
func (s *Server) ListTemplates(w http.ResponseWriter, _ *http.Request) {
	cached := s.templates.Templates()
	items := make([]TemplateResponse, len(cached))
	for i, c := range cached {
		items[i] = templateToResponse(c)
	}
	writeJSON(w, http.StatusOK, items)
}

// CreateTemplate handles POST /api/templates.
func (s *Server) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var body TemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if body.ID == "" || len(body.Fields) == 0 {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "id and fields are required")
		return
	}
	if !s.templates.Ready() {
		s.handleDomainError(w, domain.ErrTemplatesNotReady)
		return
	}

	c, built, err := s.templates.Build(r.Context(), template.Template{ID: body.ID, Fields: body.Fields})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := templateToResponse(c)
	resp.Built = &built
	status := http.StatusOK
	if built {
		status = http.StatusCreated
	}
	writeJSON(w, status, resp)
}

// StoreSave handles POST /api/store/save?key=&value=.
func (s *Server) StoreSave(w http.ResponseWriter, r *http.Request) {
	var key, value string
	if err := runtime.BindQueryParameter("form", true, true, "key", r.URL.Query(), &key); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return
	}
	if err := runtime.BindQueryParameter("form", true, true, "value", r.URL.Query(), &value); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return
	}

	if err := s.store.Set(r.Context(), key, []byte(value)); err != nil {
		s.handleDomainError(w, errors.Join(domain.ErrStoreUnavailable, err))
		return
	}
	writeJSON(w, http.StatusOK, StoreValueResponse{Key: key, Value: value})
}

// StoreGet handles GET /api/store/get?key=.
func (s *Server) StoreGet(w http.ResponseWriter, r *http.Request) {
	key, ok := s.bindKey(w, r)
	if !ok {
		return
	}

	data, err := s.store.Get(r.Context(), key)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StoreValueResponse{Key: key, Value: string(data)})
}

// StoreDelete handles DELETE /api/store/delete?key=.
func (s *Server) StoreDelete(w http.ResponseWriter, r *http.Request) {
	key, ok := s.bindKey(w, r)
	if !ok {
		return
	}

	deleted, err := s.store.Del(r.Context(), key)
	if err != nil {
		s.handleDomainError(w, errors.Join(domain.ErrStoreUnavailable, err))
		return
	}
	writeJSON(w, http.StatusOK, StoreDeleteResponse{Key: key, Deleted: deleted})
}

func (s *Server) bindKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	var key string
	if err := runtime.BindQueryParameter("form", true, true, "key", r.URL.Query(), &key); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return "", false
	}
	return key, true
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

	writeJSON(w, httpStatus, HealthResponse{
		Status:  string(report.Status),
		Checks:  checks,
		Version: version.Version,
	})
}
