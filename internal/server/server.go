// Package server exposes a playback session over HTTP and WebSocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/llehouerou/wavelet/internal/playback"
)

// Catalog resolves track ids for load requests.
type Catalog interface {
	Get(ctx context.Context, id int64) (playback.Track, error)
	List(ctx context.Context) ([]playback.Track, error)
}

// ErrNoCatalog is returned when a request needs a catalog and none is set.
var ErrNoCatalog = errors.New("no catalog configured")

// Options configures a Server.
type Options struct {
	Addr       string
	SendBuffer int // outbound messages queued per socket
	Logger     *zap.Logger
	// NotFound reports whether a catalog error means the id is unknown.
	NotFound func(error) bool
}

// Server serves the control API and WebSocket observers.
type Server struct {
	service  playback.Service
	catalog  Catalog
	router   *mux.Router
	httpSrv  *http.Server
	hub      *hub
	notFound func(error) bool
	logger   *zap.Logger
}

// New creates a server for service. catalog may be nil.
func New(service playback.Service, catalog Catalog, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("server")
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 16
	}
	notFound := opts.NotFound
	if notFound == nil {
		notFound = func(error) bool { return false }
	}

	s := &Server{
		service:  service,
		catalog:  catalog,
		router:   mux.NewRouter(),
		hub:      newHub(opts.SendBuffer, logger),
		notFound: notFound,
		logger:   logger,
	}
	s.routes()
	s.httpSrv = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.router.Use(s.logRequests)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/ws", s.handleWS).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/state", s.handleState).Methods(http.MethodGet)
	api.HandleFunc("/track", s.handleTrack).Methods(http.MethodGet)
	api.HandleFunc("/phase", s.handlePhase).Methods(http.MethodGet)
	api.HandleFunc("/elapsed", s.handleElapsed).Methods(http.MethodGet)
	api.HandleFunc("/catalog", s.handleCatalog).Methods(http.MethodGet)
	api.HandleFunc("/load", s.handleLoad).Methods(http.MethodPost)
	api.HandleFunc("/{command:start|pause|stop|toggle}", s.handleCommand).Methods(http.MethodPost)
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until Shutdown. It returns nil after a clean shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Info("listening", zap.String("addr", s.httpSrv.Addr))
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and disconnects every socket.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpSrv.Shutdown(ctx)
	s.hub.closeAll()
	return err
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("took", time.Since(start)))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "observers": s.hub.len()})
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Snapshot())
}

func (s *Server) handleTrack(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.service.CurrentTrack())
}

func (s *Server) handlePhase(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]playback.Phase{"phase": s.service.CurrentPhase()})
}

// ElapsedResponse is the body of GET /api/elapsed.
type ElapsedResponse struct {
	Elapsed   int    `json:"elapsed"`
	Formatted string `json:"formatted"`
}

func (s *Server) handleElapsed(w http.ResponseWriter, _ *http.Request) {
	e := s.service.CurrentElapsed()
	writeJSON(w, http.StatusOK, ElapsedResponse{Elapsed: e, Formatted: playback.FormatSeconds(e)})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		writeError(w, http.StatusServiceUnavailable, ErrNoCatalog)
		return
	}
	tracks, err := s.catalog.List(r.Context())
	if err != nil {
		s.logger.Error("list catalog", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if tracks == nil {
		tracks = []playback.Track{}
	}
	writeJSON(w, http.StatusOK, tracks)
}

// handleLoad accepts {"id":N} to load from the catalog, or a full track
// with a source.
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	var req playback.Track
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	t, status, err := s.resolve(r.Context(), req)
	if err != nil {
		writeError(w, status, err)
		return
	}
	s.service.LoadTrack(t)
	writeJSON(w, http.StatusOK, s.service.Snapshot())
}

func (s *Server) resolve(ctx context.Context, req playback.Track) (playback.Track, int, error) {
	if req.Duration < 0 {
		return playback.Track{}, http.StatusBadRequest, errors.New("duration must not be negative")
	}
	if req.Source != "" {
		return req, http.StatusOK, nil
	}
	if req.ID == 0 {
		return playback.Track{}, http.StatusBadRequest, errors.New("id or source required")
	}
	if s.catalog == nil {
		return playback.Track{}, http.StatusServiceUnavailable, ErrNoCatalog
	}
	t, err := s.catalog.Get(ctx, req.ID)
	if err != nil {
		if s.notFound(err) {
			return playback.Track{}, http.StatusNotFound, err
		}
		return playback.Track{}, http.StatusInternalServerError, err
	}
	return t, http.StatusOK, nil
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	s.apply(mux.Vars(r)["command"])
	writeJSON(w, http.StatusOK, s.service.Snapshot())
}

// apply runs a track-less command by name. It reports false for unknown names.
func (s *Server) apply(name string) bool {
	switch name {
	case "start":
		s.service.Start()
	case "pause":
		s.service.Pause()
	case "stop":
		s.service.Stop()
	case "toggle":
		s.service.Toggle()
	default:
		return false
	}
	return true
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
