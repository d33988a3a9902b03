package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"animlab/internal/catalog"
	"animlab/internal/deps"
	"animlab/internal/jobs"
	"animlab/internal/logging"
	"animlab/internal/media"
	"animlab/internal/scene"
)

const shutdownTimeout = 10 * time.Second

// SceneService is the catalog surface used by the handlers.
type SceneService interface {
	List(ctx context.Context) ([]scene.Scene, error)
	Get(ctx context.Context, id int) (scene.Scene, error)
	Create(ctx context.Context, sc scene.Scene) (scene.Scene, error)
	Update(ctx context.Context, id int, patch scene.Patch) (scene.Scene, error)
	Delete(ctx context.Context, id int) error
	Search(ctx context.Context, query string) ([]scene.Scene, error)
	Stats(ctx context.Context) (catalog.Stats, error)
}

// JobDispatcher schedules background work.
type JobDispatcher interface {
	GenerateAudio(ctx context.Context, id int) (string, error)
	Render(ctx context.Context, req jobs.RenderRequest) (string, error)
}

// MediaLibrary locates produced files.
type MediaLibrary interface {
	ListVideos() ([]media.Video, error)
	ResolveVideo(name string) (string, error)
	ResolveAudio(name string) (string, error)
}

// Options configures cross-cutting behaviour.
type Options struct {
	// Token, when set, must be presented as a bearer token on every route
	// except the health check.
	Token          string
	AllowedOrigins []string
	// Dependencies reports external tool availability for the health check.
	Dependencies func() []deps.Status
}

// Server serves the HTTP API.
type Server struct {
	scenes  SceneService
	jobs    JobDispatcher
	media   MediaLibrary
	opts    Options
	logger  *slog.Logger
	handler http.Handler
}

// NewServer wires handlers and middleware.
func NewServer(scenes SceneService, dispatcher JobDispatcher, library MediaLibrary, opts Options, logger *slog.Logger) *Server {
	s := &Server{
		scenes: scenes,
		jobs:   dispatcher,
		media:  library,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "api"),
	}
	s.handler = s.requestLogging(s.cors(s.auth(s.routes())))
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api.HandleFunc("/scenes", s.handleListScenes).Methods(http.MethodGet)
	api.HandleFunc("/scenes", s.handleCreateScene).Methods(http.MethodPost)
	api.HandleFunc("/scenes/search/{query}", s.handleSearchScenes).Methods(http.MethodGet)
	api.HandleFunc("/scenes/{id:-?[0-9]+}", s.handleGetScene).Methods(http.MethodGet)
	api.HandleFunc("/scenes/{id:-?[0-9]+}", s.handleUpdateScene).Methods(http.MethodPut)
	api.HandleFunc("/scenes/{id:-?[0-9]+}", s.handleDeleteScene).Methods(http.MethodDelete)
	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)

	api.HandleFunc("/generate-audio/{id:-?[0-9]+}", s.handleGenerateAudio).Methods(http.MethodPost)
	api.HandleFunc("/render", s.handleRender).Methods(http.MethodPost)

	api.HandleFunc("/videos", s.handleListVideos).Methods(http.MethodGet)
	api.HandleFunc("/video/{filename}", s.handleVideo).Methods(http.MethodGet)
	api.HandleFunc("/audio/{filename}", s.handleAudio).Methods(http.MethodGet)
	return r
}

// Serve accepts connections on listener until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()
	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("api server shutdown incomplete", logging.Error(err))
		_ = srv.Close()
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api serve: %w", err)
	}
	s.logger.Info("api server stopped")
	return nil
}

// ListenAndServe binds addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	return s.Serve(ctx, listener)
}
