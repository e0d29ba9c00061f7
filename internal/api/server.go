// Package api provides the HTTP service that runs map generations.
// GET endpoints are public (read-only).
// POST and DELETE endpoints require a bearer token (admin control plane).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/talgya/zoneforge/internal/generator"
	"github.com/talgya/zoneforge/internal/persistence"
	"github.com/talgya/zoneforge/internal/template"
)

const (
	maxTemplateBytes = 1 << 20
	defaultListLimit = 50
	maxListLimit     = 500
)

// Server serves generation jobs and the map archive over HTTP.
type Server struct {
	Jobs      *JobManager
	DB        *persistence.DB // Optional; nil disables the archive endpoints
	Templates string          // Directory of named templates
	Port      int
	AdminKey  string // Bearer token for POST endpoints. Empty = POST disabled.

	// Submissions allowed per client per hour. Zero uses the default.
	SubmitRate int

	started time.Time
	limiter *RateLimiter
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	if s.started.IsZero() {
		s.started = time.Now()
	}
	rate := s.SubmitRate
	if rate <= 0 {
		rate = 60
	}
	if s.limiter != nil {
		s.limiter.Close()
	}
	s.limiter = NewRateLimiter(rate, time.Hour)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/archive", s.handleArchive)

		r.With(s.adminOnly, s.limiter.Middleware).Post("/maps", s.handleSubmit)
		r.With(s.adminOnly).Delete("/maps/{id}", s.handleDelete)
		r.Get("/maps/{id}", s.handleMap)
		r.Get("/maps/{id}/preview", s.handlePreview)
		r.Get("/maps/{id}/events", s.handleEvents)
	})
	return r
}

// Start begins serving the HTTP API in a goroutine and returns the server so
// the caller can shut it down.
func (s *Server) Start() *http.Server {
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "archive", s.DB != nil)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	return srv
}

// Close releases the router's background resources.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Close()
	}
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly requires bearer token auth on mutating requests.
func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodDelete {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no ZONEFORGE_ADMIN_KEY set)", http.StatusForbidden)
				return
			}

			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"name":    "zoneforge",
		"uptime":  time.Since(s.started).Round(time.Second).String(),
		"started": humanize.Time(s.started),
		"jobs":    s.Jobs.Counts(),
	}
	if s.DB != nil {
		if n, err := s.DB.CountMaps(); err == nil {
			status["archived_maps"] = n
		}
	}
	writeJSON(w, http.StatusOK, status)
}

// submitRequest is the body of POST /api/v1/maps. Exactly one of Template
// (an inline template document) and TemplateName must be set.
type submitRequest struct {
	Template     json.RawMessage `json:"template,omitempty"`
	TemplateName string          `json:"template_name,omitempty"`
	Size         int             `json:"size"`
	Seed         int64           `json:"seed,omitempty"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxTemplateBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}
	var req submitRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	tmpl, err := s.resolveTemplate(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := s.Jobs.Submit(JobRequest{Template: tmpl, Size: req.Size, Seed: req.Seed})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.Header().Set("Location", "/api/v1/maps/"+view.ID)
	writeJSON(w, http.StatusAccepted, view)
}

// resolveTemplate parses an inline template or loads a named one from the
// template directory.
func (s *Server) resolveTemplate(req submitRequest) (*template.Template, error) {
	switch {
	case len(req.Template) > 0 && req.TemplateName != "":
		return nil, errors.New("set either template or template_name, not both")
	case len(req.Template) > 0:
		return template.Parse(req.Template)
	case req.TemplateName != "":
		name := req.TemplateName
		if s.Templates == "" || filepath.Base(name) != name || strings.HasPrefix(name, ".") {
			return nil, fmt.Errorf("unknown template %q", name)
		}
		for _, ext := range []string{".lua", ".json"} {
			path := filepath.Join(s.Templates, name+ext)
			if _, err := os.Stat(path); err == nil {
				return template.LoadFile(path, req.Size)
			}
		}
		return nil, fmt.Errorf("unknown template %q", name)
	default:
		return nil, errors.New("missing template")
	}
}

// mapResponse is a finished or archived map without its tile grid.
type mapResponse struct {
	Job     *JobView                `json:"job,omitempty"`
	Archive *persistence.MapSummary `json:"archive,omitempty"`
	Zones   []generator.ZoneSummary `json:"zones,omitempty"`
	Objects any                     `json:"objects,omitempty"`
	Roads   int                     `json:"roads"`
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if view, ok := s.Jobs.Get(id); ok {
		resp := mapResponse{Job: &view}
		if res, ok := s.Jobs.Result(id); ok {
			resp.Zones = res.Zones
			resp.Objects = res.Objects
			resp.Roads = res.Roads
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	rec, err := s.archived(id)
	if err != nil {
		s.writeLookupError(w, err)
		return
	}
	zones, err := rec.Zones()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, mapResponse{
		Archive: &rec.MapSummary,
		Zones:   zones,
		Objects: rec.Objects(),
		Roads:   rec.Roads,
	})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var preview string
	if res, ok := s.Jobs.Result(id); ok {
		preview = res.ASCII()
	} else if view, ok := s.Jobs.Get(id); ok {
		writeError(w, http.StatusConflict, "map not ready: job is "+string(view.Status))
		return
	} else {
		rec, err := s.archived(id)
		if err != nil {
			s.writeLookupError(w, err)
			return
		}
		preview = rec.Preview
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, preview)
}

// handleEvents streams a job's phase changes over a websocket. Events seen
// before the client connected are replayed first; the socket is closed once
// the job finishes.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	backlog, events, cancel, err := s.Jobs.Subscribe(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	defer cancel()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		slog.Warn("websocket accept failed", "job", id, "error", err)
		return
	}
	defer conn.CloseNow()
	ctx := conn.CloseRead(r.Context())

	send := func(e JobEvent) error {
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		wctx, done := context.WithTimeout(ctx, 3*time.Second)
		defer done()
		return conn.Write(wctx, websocket.MessageText, data)
	}

	for _, e := range backlog {
		if err := send(e); err != nil {
			return
		}
	}
	for {
		select {
		case e, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "job finished")
				return
			}
			if err := send(e); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		writeError(w, http.StatusServiceUnavailable, "archive disabled")
		return
	}
	limit := defaultListLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, maxListLimit)
	}
	maps, err := s.DB.ListMaps(r.URL.Query().Get("template"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, maps)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		writeError(w, http.StatusServiceUnavailable, "archive disabled")
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.DB.DeleteMap(id); err != nil {
		s.writeLookupError(w, err)
		return
	}
	slog.Info("archived map deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) archived(id string) (*persistence.MapRecord, error) {
	if s.DB == nil {
		return nil, fmt.Errorf("map %s: %w", id, persistence.ErrNotFound)
	}
	return s.DB.GetMap(id)
}

func (s *Server) writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, persistence.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		slog.Warn("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
