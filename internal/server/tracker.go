package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"tetra-tracker/internal/api"
	"tetra-tracker/internal/middleware"
	"tetra-tracker/internal/service"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

type Trends interface {
	Latest(ctx context.Context) (*service.LadderOverview, error)
	Compare(ctx context.Context, tier string) (*service.TierTrend, error)
}

type Histories interface {
	Lookup(ctx context.Context, playerID string) (*service.PlayerHistory, error)
}

type IngestControl interface {
	Trigger() error
}

type IngestStatus interface {
	Status() service.IngestionStatus
}

type TrackerServer struct {
	trends    Trends
	histories Histories
	trigger   IngestControl
	status    IngestStatus
	logger    zerolog.Logger
}

func NewTrackerServer(trends Trends, histories Histories, trigger IngestControl, status IngestStatus, logger zerolog.Logger) *TrackerServer {
	return &TrackerServer{
		trends:    trends,
		histories: histories,
		trigger:   trigger,
		status:    status,
		logger:    logger,
	}
}

// Handler returns the full HTTP surface wrapped in CORS, request ID and
// panic recovery.
func (s *TrackerServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tiers", s.getLadder)
	mux.HandleFunc("GET /api/tiers/{tier}", s.getTier)
	mux.HandleFunc("GET /api/players/{id}/history", s.getHistory)
	mux.HandleFunc("POST /api/ingest", s.postIngest)
	mux.HandleFunc("GET /healthz", s.getHealth)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{middleware.RequestIDHeader},
	})

	return middleware.RequestID(s.logger)(middleware.Recover(c.Handler(mux)))
}

func (s *TrackerServer) getLadder(w http.ResponseWriter, r *http.Request) {
	overview, err := s.trends.Latest(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (s *TrackerServer) getTier(w http.ResponseWriter, r *http.Request) {
	tier := strings.ToLower(r.PathValue("tier"))

	trend, err := s.trends.Compare(r.Context(), tier)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trend)
}

func (s *TrackerServer) getHistory(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "player id required"})
		return
	}

	h, err := s.histories.Lookup(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *TrackerServer) postIngest(w http.ResponseWriter, r *http.Request) {
	if err := s.trigger.Trigger(); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, s.status.Status())
}

type health struct {
	Status    string                  `json:"status"`
	Ingestion service.IngestionStatus `json:"ingestion"`
}

func (s *TrackerServer) getHealth(w http.ResponseWriter, r *http.Request) {
	st := s.status.Status()
	body := health{Status: "ok", Ingestion: st}
	if st.LastError != "" {
		body.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, body)
}

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *TrackerServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	logger := zerolog.Ctx(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	} else {
		logger.Debug().Err(err).Str("path", r.URL.Path).Msg("request rejected")
	}

	writeJSON(w, status, errorBody{Error: err.Error(), RequestID: middleware.GetRequestID(r.Context())})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrUnknownTier), errors.Is(err, service.ErrNoBatches):
		return http.StatusNotFound
	case errors.Is(err, service.ErrIngestionInProgress):
		return http.StatusConflict
	case errors.Is(err, api.ErrAPI):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
