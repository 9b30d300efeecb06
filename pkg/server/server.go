// Package server exposes a loaded photon over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/quatton/photon/pkg/photon"
	"github.com/quatton/photon/pkg/qerr"
	"github.com/quatton/photon/pkg/qlog"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	inst       *photon.Instance
	router     *chi.Mux
	api        huma.API
	metrics    *metrics
	log        *qlog.Logger
	requestLog bool
}

type Option func(*Server)

func WithLogger(log *qlog.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// WithRequestLog toggles chi's access log on stdout.
func WithRequestLog(on bool) Option {
	return func(s *Server) {
		s.requestLog = on
	}
}

type HealthOutput struct {
	Body struct {
		Status   string   `json:"status" example:"ok" doc:"Health status"`
		Name     string   `json:"name" doc:"Photon name"`
		Degraded []string `json:"degraded,omitempty" doc:"Routes that failed with missing dependencies"`
		Missing  []string `json:"missing_dependencies,omitempty" doc:"Declared dependencies that are not installed"`
	}
}

// New builds the router: one POST route per typed handler, mounted
// sub-applications, /healthz, /metrics and the huma documentation routes.
func New(inst *photon.Instance, opts ...Option) *Server {
	s := &Server{
		inst:       inst,
		router:     chi.NewMux(),
		metrics:    newMetrics(),
		log:        qlog.NewDiscard(),
		requestLog: true,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.requestLog {
		s.router.Use(middleware.Logger)
	}
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.metrics.middleware)

	config := huma.DefaultConfig(inst.Metadata.Name, "1.0.0")
	s.api = humachi.New(s.router, config)

	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/healthz",
		Summary:     "Health check",
		Tags:        []string{"Runtime"},
	}, func(ctx context.Context, input *struct{}) (*HealthOutput, error) {
		resp := &HealthOutput{}
		resp.Body.Status = "ok"
		resp.Body.Name = s.inst.Metadata.Name
		resp.Body.Degraded = s.inst.Degraded()
		resp.Body.Missing = s.inst.MissingDependencies()
		if len(resp.Body.Degraded) > 0 {
			resp.Body.Status = "degraded"
		}
		return resp, nil
	})

	s.router.Handle("/metrics", s.metrics.handler())

	for _, h := range inst.Handlers() {
		if h.IsMounted() {
			s.router.Mount(h.Path, http.StripPrefix(h.Path, h.Mount))
			continue
		}
		s.api.OpenAPI().AddOperation(photon.Operation(h))
		s.router.Post(h.Path, s.typed(h))
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

type errorBody struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

func (s *Server) typed(h photon.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Detail: err.Error(), Code: string(qerr.CodeValidation)})
			return
		}

		out, err := s.inst.Invoke(r.Context(), h.Path, body)
		if err != nil {
			status := http.StatusInternalServerError
			if qerr.IsValidation(err) {
				status = http.StatusUnprocessableEntity
			} else {
				s.log.Error("handler failed", "route", h.Path, "error", err)
			}
			writeJSON(w, status, errorBody{Detail: err.Error(), Code: string(qerr.CodeOf(err))})
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}

// Serve listens on port until ctx is cancelled, then shuts down gracefully.
// ready is called with the bound address once the listener is open.
func (s *Server) Serve(ctx context.Context, port int, ready func(addr string)) error {
	l, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return qerr.Newf(qerr.CodePortUnavailable, "listening on %d: %w", port, err)
	}
	return s.ServeListener(ctx, l, ready)
}

func (s *Server) ServeListener(ctx context.Context, l net.Listener, ready func(addr string)) error {
	srv := &http.Server{Handler: s.router, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(l)
	}()
	if ready != nil {
		ready(l.Addr().String())
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	}
}
