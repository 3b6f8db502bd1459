package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"didacal/internal/build"
	"didacal/internal/config"
	appLog "didacal/internal/log"
	"didacal/internal/window"
)

// Server serves the most recently generated calendar.
//
// The workbook is read by Refresh, never on the request path; handlers only
// read the last snapshot.
type Server struct {
	cfg   *config.Config
	input string
	mux   *http.ServeMux

	// now is the clock used to decide "today". Tests replace it.
	now func() time.Time

	mu   sync.RWMutex
	snap *snapshot
}

// snapshot is the outcome of one refresh. Exactly one of result and err is
// set.
type snapshot struct {
	result    *build.Result
	err       error
	updatedAt time.Time
}

// NewServer constructs a Server for the workbook at input. No refresh is
// done until Refresh is called.
func NewServer(cfg *config.Config, input string) *Server {
	s := &Server{
		cfg:   cfg,
		input: input,
		mux:   http.NewServeMux(),
		now:   time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// Refresh re-reads the workbook and replaces the snapshot.
//
// An empty window replaces the snapshot, so the page disappears once the
// schedule runs out. Any other failure keeps a previous good snapshot and
// is returned to the caller.
func (s *Server) Refresh(ctx context.Context) error {
	today := s.now().In(s.cfg.Location())
	opts := build.OptionsFromConfig(s.cfg, s.input, today)

	res, err := build.Generate(ctx, opts)
	next := &snapshot{result: res, err: err, updatedAt: time.Now()}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case err == nil, errors.Is(err, window.ErrEmptyWindow):
		s.snap = next
		return nil
	case s.snap != nil && s.snap.result != nil:
		appLog.Error("refresh failed; keeping previous calendar", err, "input", s.input)
		return err
	default:
		s.snap = next
		return err
	}
}

func (s *Server) current() *snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="didacal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// StartServer refreshes once, schedules further refreshes on
// cfg.RefreshCron and serves on cfg.Listen until ctx is canceled.
func StartServer(ctx context.Context, cfg *config.Config, input string) error {
	s := NewServer(cfg, input)
	if err := s.Refresh(ctx); err != nil {
		appLog.Error("initial refresh failed", err, "input", input)
	}

	c := cron.New(cron.WithLocation(cfg.Location()))
	if _, err := c.AddFunc(cfg.RefreshCron, func() {
		if err := s.Refresh(ctx); err == nil {
			appLog.Debug("scheduled refresh done", "input", input)
		}
	}); err != nil {
		return err
	}
	c.Start()
	defer func() {
		<-c.Stop().Done()
	}()

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen, "refresh", cfg.RefreshCron)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /{$}", s.handlePage)
	s.mux.HandleFunc("GET /calendar.ics", s.handleICS)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// ready returns the current result, or writes the matching error response
// and returns nil.
func (s *Server) ready(w http.ResponseWriter) *build.Result {
	snap := s.current()
	switch {
	case snap == nil:
		http.Error(w, "calendar not generated yet", http.StatusServiceUnavailable)
	case errors.Is(snap.err, window.ErrEmptyWindow):
		http.Error(w, window.EmptyMessage, http.StatusNotFound)
	case snap.err != nil:
		http.Error(w, "failed to read schedule", http.StatusServiceUnavailable)
	default:
		return snap.result
	}
	return nil
}

func (s *Server) handlePage(w http.ResponseWriter, _ *http.Request) {
	res := s.ready(w)
	if res == nil {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.HTML)
}

func (s *Server) handleICS(w http.ResponseWriter, _ *http.Request) {
	res := s.ready(w)
	if res == nil {
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="didactics.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.ICS)
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	WindowStart string     `json:"window_start"`
	WindowEnd   string     `json:"window_end"`
	GeneratedAt time.Time  `json:"generated_at"`
	Events      []eventDTO `json:"events"`
}

// eventDTO is a JSON-friendly view of model.Event.
type eventDTO struct {
	Date      string `json:"date"`
	Time      string `json:"time"`
	Subject   string `json:"subject"`
	Lecturer  string `json:"lecturer,omitempty"`
	Setting   string `json:"setting"`
	Highlight string `json:"highlight,omitempty"`
	Break     bool   `json:"break"`
}

// handleEvents returns the events of the current window in page order.
func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	snap := s.current()
	if snap != nil && errors.Is(snap.err, window.ErrEmptyWindow) {
		writeError(w, http.StatusNotFound, window.EmptyMessage)
		return
	}
	if snap == nil || snap.err != nil {
		writeError(w, http.StatusServiceUnavailable, "calendar not available")
		return
	}

	res := snap.result
	dtos := make([]eventDTO, 0, len(res.Events))
	for _, ev := range res.Events {
		dtos = append(dtos, eventDTO{
			Date:      ev.Date.Format(time.DateOnly),
			Time:      ev.Time,
			Subject:   ev.Subject,
			Lecturer:  ev.Lecturer,
			Setting:   ev.Setting.String(),
			Highlight: ev.Highlight,
			Break:     ev.IsBreak(),
		})
	}

	appLog.Debug("api events request", "events", len(dtos), "generated_at", snap.updatedAt.Format(time.RFC3339))
	writeJSON(w, http.StatusOK, eventsResponse{
		WindowStart: res.Window.Start.Format(time.DateOnly),
		WindowEnd:   res.Window.End.Format(time.DateOnly),
		GeneratedAt: snap.updatedAt,
		Events:      dtos,
	})
}

// handleRefresh re-reads the workbook immediately.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.Refresh(r.Context()); err != nil {
		appLog.Error("manual refresh failed", err, "input", s.input)
		writeError(w, http.StatusInternalServerError, "refresh failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
