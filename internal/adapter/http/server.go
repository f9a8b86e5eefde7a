package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/flowmap-core/internal/interaction"
	"github.com/couchcryptid/flowmap-core/internal/pipeline"
	"github.com/couchcryptid/flowmap-core/internal/session"
	"github.com/couchcryptid/flowmap-core/internal/state"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxBodyBytes = 1 << 20

// Session is the flow map session served by the API.
type Session interface {
	sharedobs.ReadinessChecker
	Handle(e interaction.Event) error
	Dispatch(a state.Action) error
	State() state.State
	Layers() (pipeline.LayerSpec, error)
	Diagnostics() (pipeline.Diagnostics, error)
	Search(query string, limit int) (pipeline.SearchBoxLocations, error)
	Share() string
}

// Server exposes health, readiness, metrics, and the session API.
type Server struct {
	httpServer *http.Server
	session    Session
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// session routes.
func NewServer(addr string, sess Session, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		session: sess,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(sess))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /events", s.handleEvent)
	mux.HandleFunc("POST /actions", s.handleAction)
	mux.HandleFunc("GET /state", s.handleState)
	mux.HandleFunc("GET /layers", s.handleLayers)
	mux.HandleFunc("GET /diagnostics", s.handleDiagnostics)
	mux.HandleFunc("GET /search", s.handleSearch)
	mux.HandleFunc("GET /share", s.handleShare)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	e, err := interaction.ParseEvent(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.session.Handle(e); err != nil {
		s.writeSessionError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, s.session.State())
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	a, err := state.ParseAction(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.session.Dispatch(a); err != nil {
		s.writeSessionError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, s.session.State())
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, s.session.State())
}

func (s *Server) handleLayers(w http.ResponseWriter, _ *http.Request) {
	spec, err := s.session.Layers()
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, spec)
}

type diagnosticsResponse struct {
	pipeline.Diagnostics
	OmittedFlows int      `json:"omitted_flows"`
	Messages     []string `json:"messages"`
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, _ *http.Request) {
	d, err := s.session.Diagnostics()
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	msgs := d.Messages()
	if msgs == nil {
		msgs = []string{}
	}
	sharedobs.WriteJSON(w, http.StatusOK, diagnosticsResponse{
		Diagnostics:  d,
		OmittedFlows: d.OmittedFlows(),
		Messages:     msgs,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	limit := pipeline.MaxSearchResults
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = min(n, pipeline.MaxSearchResults)
	}
	box, err := s.session.Search(r.URL.Query().Get("q"), limit)
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, box)
}

func (s *Server) handleShare(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, map[string]string{"query": s.session.Share()})
}

func (s *Server) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotReady), errors.Is(err, interaction.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, err)
	default:
		s.logger.Warn("session request rejected", "error", err)
		writeError(w, http.StatusBadRequest, err)
	}
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return nil, false
	}
	return body, true
}

func writeError(w http.ResponseWriter, status int, err error) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}
