// Package server exposes the routed commands and hooks over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/hashicorp/go-metrics"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"relay/internal/async"
	"relay/internal/connector"
	"relay/internal/pipelines"
	"relay/internal/slack"
	"relay/internal/webhook"
)

var (
	MetricRequestCount = []string{"relay", "http", "request", "count"}
	MetricRequestTime  = []string{"relay", "http", "request", "duration", "ms"}
)

const (
	DefaultReplyTimeout    = 10 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
)

// Server dispatches slash commands and hook deliveries to the catalog.
// Deferred deliveries run on the server's own scheduler so that shutdown
// can wait for them.
type Server struct {
	catalog *pipelines.Catalog
	rt      connector.Runtime
	group   async.Group
	sink    *metrics.InmemSink
	log     *logrus.Entry

	maxBody         int64
	replyTimeout    time.Duration
	shutdownTimeout time.Duration
}

type Option func(*Server)

// WithMetrics records request metrics into sink, passes it on to pipeline
// runs and serves its contents at /metrics.
func WithMetrics(sink *metrics.InmemSink) Option {
	return func(s *Server) { s.sink = sink }
}

func WithLogger(log *logrus.Entry) Option {
	return func(s *Server) { s.log = log }
}

// WithReplyTimeout bounds how long a request waits for its answer.
func WithReplyTimeout(d time.Duration) Option {
	return func(s *Server) { s.replyTimeout = d }
}

func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) { s.shutdownTimeout = d }
}

// WithMaxBody caps hook request bodies.
func WithMaxBody(n int64) Option {
	return func(s *Server) { s.maxBody = n }
}

// New creates a server for catalog. rt supplies the collaborators passed to
// every run; its scheduler is replaced with the server's.
func New(catalog *pipelines.Catalog, rt *connector.Runtime, opts ...Option) *Server {
	s := &Server{
		catalog:         catalog,
		log:             logrus.NewEntry(&logrus.Logger{Out: io.Discard}),
		maxBody:         webhook.DefaultMaxBody,
		replyTimeout:    DefaultReplyTimeout,
		shutdownTimeout: DefaultShutdownTimeout,
	}
	if rt != nil {
		s.rt = *rt
	}
	for _, opt := range opts {
		opt(s)
	}

	s.rt.Scheduler = &s.group
	if s.rt.Logger == nil {
		s.rt.Logger = s.log
	}
	if s.rt.Metrics == nil && s.sink != nil {
		s.rt.Metrics = s.sink
	}
	return s
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/routes", s.handleListRoutes).Methods(http.MethodGet)
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)
	r.HandleFunc("/slack/commands", s.handleCommand).Methods(http.MethodPost)
	r.HandleFunc("/hooks/{name}", s.handleHook).Methods(http.MethodPost)

	// Middleware registered with Use only wraps matched routes.
	r.NotFoundHandler = s.instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no route for %s", r.URL.Path))
	}))
	r.MethodNotAllowedHandler = s.instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}))
	r.Use(s.instrument)
	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully and waits for pending deferred deliveries.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.WithField("addr", addr).Info("listening")

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return xerrors.Errorf("serving: %w", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return xerrors.Errorf("shutting down: %w", err)
		}
	}

	s.log.Info("waiting for deferred deliveries")
	s.Wait()
	return nil
}

// Wait blocks until every deferred delivery started so far has finished.
func (s *Server) Wait() { s.group.Wait() }

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		// unmatched requests share one path label
		path := "unmatched"
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				path = tpl
			}
		}
		if s.sink != nil {
			labels := []metrics.Label{
				{Name: "path", Value: path},
				{Name: "status", Value: fmt.Sprint(rec.status)},
			}
			s.sink.IncrCounterWithLabels(MetricRequestCount, 1, labels)
			s.sink.AddSampleWithLabels(MetricRequestTime, float32(time.Since(start).Milliseconds()), labels)
		}
		s.log.WithFields(logrus.Fields{
			"request_id":  uuid.NewString(),
			"method":      r.Method,
			"path":        r.URL.Path,
			"route":       path,
			"status":      rec.status,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Debug("handled request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListRoutes(w http.ResponseWriter, r *http.Request) {
	type routeInfo struct {
		Kind        string   `json:"kind"`
		Name        string   `json:"name"`
		Path        string   `json:"path"`
		Pipelines   []string `json:"pipelines"`
		Description string   `json:"description,omitempty"`
	}

	routes := s.catalog.Routes
	infos := make([]routeInfo, 0, len(routes.Commands)+len(routes.Hooks))
	for _, c := range routes.Commands {
		infos = append(infos, routeInfo{
			Kind:        pipelines.KindCommand,
			Name:        c.Command,
			Path:        "/slack/commands",
			Pipelines:   c.Pipelines,
			Description: c.Description,
		})
	}
	for _, h := range routes.Hooks {
		infos = append(infos, routeInfo{
			Kind:        pipelines.KindHook,
			Name:        h.Name,
			Path:        "/hooks/" + h.Name,
			Pipelines:   []string{h.Pipeline},
			Description: h.Description,
		})
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.sink == nil {
		writeError(w, http.StatusNotFound, "metrics are disabled")
		return
	}
	data, err := s.sink.DisplayMetrics(w, r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body: "+err.Error())
		return
	}
	sc, err := slack.ParseSlashCommand(r.PostForm)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cmd, ok := s.catalog.Command(sc.Name())
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no command routed as %q", sc.Command))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.replyTimeout)
	defer cancel()
	resp, err := cmd.Run(ctx, &s.rt, sc).Await(ctx)
	if err != nil {
		writeError(w, http.StatusGatewayTimeout, "command did not answer in time")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHook(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	h, ok := s.catalog.Hook(name)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no hook routed as %q", name))
		return
	}

	d, err := webhook.FromRequest(name, r, s.maxBody)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.replyTimeout)
	defer cancel()
	reply, err := h.Handle(ctx, &s.rt, d).Await(ctx)
	if err != nil {
		writeError(w, http.StatusGatewayTimeout, "hook did not answer in time")
		return
	}
	writeJSON(w, reply.HTTPStatus(), reply)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
