// Package api provides the HTTP server of Nmap Uplink: the REST API under
// /api/v1, the live event socket, the embedded web UI, Prometheus metrics
// and the Swagger documentation.
package api

import (
	"context"
	_ "embed"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/anstrom/uplink/docs/swagger" // registers the OpenAPI document
	apihandlers "github.com/anstrom/uplink/internal/api/handlers"
	"github.com/anstrom/uplink/internal/api/middleware"
	"github.com/anstrom/uplink/internal/config"
	"github.com/anstrom/uplink/internal/logging"
	"github.com/anstrom/uplink/internal/metrics"
)

// Server timeout constants.
const (
	serverShutdownTimeout = 30 * time.Second
	hubShutdownTimeout    = 5 * time.Second
	readHeaderTimeout     = 10 * time.Second
	idleTimeout           = 120 * time.Second
	systemMetricsInterval = 15 * time.Second
)

//go:embed web/index.html
var indexHTML []byte

// Server represents the API server.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	handler    http.Handler
	config     *config.Config
	handlers   *apihandlers.HandlerManager
	hub        *apihandlers.Hub
	logger     *logging.Logger
	registry   metrics.MetricsRegistry
	prom       *metrics.PrometheusMetrics

	// ctx bounds background work started by the server: the event hub,
	// rate limiter cleanup and system metric updates.
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new API server. deps.Session, deps.Visualizer and the other
// components must already be built; a hub is created when deps.Hub is nil.
func New(cfg *config.Config, deps apihandlers.Dependencies, prom *metrics.PrometheusMetrics) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if deps.Session == nil || deps.Visualizer == nil {
		return nil, fmt.Errorf("api server requires a scan session and a visualizer")
	}

	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}
	if deps.Registry == nil {
		deps.Registry = metrics.Default()
	}
	if deps.Hub == nil {
		deps.Hub = apihandlers.NewHub(logger, deps.Registry, prom)
	}
	deps.Config = cfg
	deps.Logger = logger

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		router:   mux.NewRouter(),
		config:   cfg,
		handlers: apihandlers.New(deps),
		hub:      deps.Hub,
		logger:   logger.WithComponent("api"),
		registry: deps.Registry,
		prom:     prom,
		ctx:      ctx,
		cancel:   cancel,
	}

	if cfg.API.CORS.Enabled {
		s.hub.SetCheckOrigin(s.allowedOrigin)
	}

	s.setupRoutes()
	s.handler = s.setupCORS(s.router)

	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(cfg.API.ListenAddr, strconv.Itoa(cfg.API.Port)),
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}
	return s, nil
}

// Start runs the event hub and serves until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	go s.hub.Run(s.ctx)
	if s.prom != nil {
		go s.prom.StartPeriodicUpdates(s.ctx, systemMetricsInterval)
	}

	s.logger.Info("Starting API server",
		"address", s.httpServer.Addr,
		"auth", s.config.API.APIKeyHash != "",
		"rate_limit", s.config.API.RateLimit.Enabled)

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("API server failed: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return s.Stop()
	case err := <-errChan:
		s.shutdownBackground()
		return err
	}
}

// Stop gracefully stops the API server and its background work.
func (s *Server) Stop() error {
	s.logger.Info("Stopping API server")

	ctx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(ctx)
	s.shutdownBackground()
	if err != nil {
		s.logger.Error("API server shutdown error", "error", err)
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("API server stopped successfully")
	return nil
}

func (s *Server) shutdownBackground() {
	s.handlers.Close()
	s.hub.Shutdown()
	select {
	case <-s.hub.Done():
	case <-time.After(hubShutdownTimeout):
		s.logger.Warn("Event hub did not stop in time")
	}
	s.cancel()
}

// setupRoutes configures all routes. Middleware is applied to the API
// subrouter only so the UI, docs and metrics stay reachable without a key.
func (s *Server) setupRoutes() {
	s.router.MethodNotAllowedHandler = http.HandlerFunc(apihandlers.MethodNotAllowed)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.MethodNotAllowedHandler = http.HandlerFunc(apihandlers.MethodNotAllowed)
	api.NotFoundHandler = http.HandlerFunc(apihandlers.NotFound)
	s.setupMiddleware(api)
	hm := s.handlers

	// Health and status endpoints
	api.HandleFunc("/liveness", hm.Liveness).Methods(http.MethodGet)
	api.HandleFunc("/health", hm.Health).Methods(http.MethodGet)
	api.HandleFunc("/status", hm.Status).Methods(http.MethodGet)
	api.HandleFunc("/version", hm.Version).Methods(http.MethodGet)

	// Scan form
	api.HandleFunc("/options", hm.GetOptions).Methods(http.MethodGet)
	api.HandleFunc("/options/describe", hm.DescribeOption).Methods(http.MethodGet)
	api.HandleFunc("/command", hm.PreviewCommand).Methods(http.MethodPost)

	// Scan session
	api.HandleFunc("/scan", hm.GetScanStatus).Methods(http.MethodGet)
	api.HandleFunc("/scan", hm.StartScan).Methods(http.MethodPost)
	api.HandleFunc("/scan/stop", hm.StopScan).Methods(http.MethodPost)
	api.HandleFunc("/scan/summary", hm.GetSummary).Methods(http.MethodGet)
	api.HandleFunc("/scan/xml", hm.GetXML).Methods(http.MethodGet)
	api.HandleFunc("/scan/report", hm.DownloadReport).Methods(http.MethodGet)
	api.HandleFunc("/scan/report", hm.SaveReport).Methods(http.MethodPost)

	// Presets
	api.HandleFunc("/presets", hm.ListPresets).Methods(http.MethodGet)
	api.HandleFunc("/presets", hm.CreatePreset).Methods(http.MethodPost)
	api.HandleFunc("/presets/{name}", hm.GetPreset).Methods(http.MethodGet)
	api.HandleFunc("/presets/{name}", hm.DeletePreset).Methods(http.MethodDelete)
	api.HandleFunc("/presets/{name}/scan", hm.StartPresetScan).Methods(http.MethodPost)

	// Follow-ups and alarm
	api.HandleFunc("/followups", hm.ListFollowups).Methods(http.MethodGet)
	api.HandleFunc("/followups", hm.RunFollowup).Methods(http.MethodPost)
	api.HandleFunc("/alarm", hm.GetAlarm).Methods(http.MethodGet)
	api.HandleFunc("/alarm/ack", hm.AcknowledgeAlarm).Methods(http.MethodPost)

	// Spider graph
	api.HandleFunc("/graph", hm.OpenGraph).Methods(http.MethodPost)
	api.HandleFunc("/graph", hm.CloseGraph).Methods(http.MethodDelete)
	api.HandleFunc("/graph/frame", hm.GetGraphFrame).Methods(http.MethodGet)
	api.HandleFunc("/graph/input", hm.GraphInput).Methods(http.MethodPost)
	api.HandleFunc("/graph/profile", hm.GetGraphProfile).Methods(http.MethodGet)

	// Scan history
	api.HandleFunc("/history", hm.ListHistory).Methods(http.MethodGet)
	api.HandleFunc("/history/{id}", hm.GetHistory).Methods(http.MethodGet)
	api.HandleFunc("/history/{id}/xml", hm.GetHistoryXML).Methods(http.MethodGet)

	// Schedules
	api.HandleFunc("/schedules", hm.ListSchedules).Methods(http.MethodGet)
	api.HandleFunc("/schedules", hm.CreateSchedule).Methods(http.MethodPost)
	api.HandleFunc("/schedules/{id}", hm.GetSchedule).Methods(http.MethodGet)
	api.HandleFunc("/schedules/{id}", hm.DeleteSchedule).Methods(http.MethodDelete)
	api.HandleFunc("/schedules/{id}/enable", hm.EnableSchedule).Methods(http.MethodPost)
	api.HandleFunc("/schedules/{id}/disable", hm.DisableSchedule).Methods(http.MethodPost)
	api.HandleFunc("/schedules/{id}/run", hm.RunSchedule).Methods(http.MethodPost)

	// Live events
	api.HandleFunc("/events", hm.Events).Methods(http.MethodGet)

	// Prometheus metrics
	if s.prom != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.prom.GetRegistry(), promhttp.HandlerOpts{}))
	}

	// Swagger documentation endpoints
	s.router.PathPrefix("/swagger/").Handler(httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("none"),
	))
	s.router.HandleFunc("/docs", s.redirectToSwagger).Methods(http.MethodGet)
	s.router.HandleFunc("/docs/", s.redirectToSwagger).Methods(http.MethodGet)

	// Web UI
	s.router.HandleFunc("/", s.serveUI).Methods(http.MethodGet)
	s.router.HandleFunc("/index.html", s.serveUI).Methods(http.MethodGet)
}

// setupMiddleware configures the middleware chain of the API subrouter.
func (s *Server) setupMiddleware(api *mux.Router) {
	cfg := s.config.API

	api.Use(middleware.Logging(s.logger))
	api.Use(middleware.Recovery(s.logger))
	api.Use(middleware.SecurityHeaders())
	api.Use(middleware.Metrics(s.registry, s.prom))
	if cfg.APIKeyHash != "" {
		api.Use(middleware.Authentication(cfg.APIKeyHash, s.logger))
	}
	if cfg.RateLimit.Enabled {
		api.Use(middleware.RateLimit(s.ctx, cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, s.logger))
	}
	api.Use(middleware.ContentType())
	api.Use(middleware.MaxBodySize(cfg.MaxRequestSize))
	api.Use(middleware.RequestTimeout(cfg.RequestTimeout))
}

func (s *Server) setupCORS(next http.Handler) http.Handler {
	cors := s.config.API.CORS
	if !cors.Enabled {
		return next
	}
	return handlers.CORS(
		handlers.AllowedOrigins(cors.AllowedOrigins),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-API-Key", "X-Request-ID"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
		handlers.ExposedHeaders([]string{"X-Request-ID", "Content-Disposition"}),
	)(next)
}

// allowedOrigin accepts same-origin event socket upgrades plus the CORS origins.
func (s *Server) allowedOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || origin == "http://"+r.Host || origin == "https://"+r.Host {
		return true
	}
	for _, allowed := range s.config.API.CORS.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (s *Server) serveUI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(indexHTML)
}

// redirectToSwagger redirects to the Swagger UI.
func (s *Server) redirectToSwagger(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/swagger/index.html", http.StatusMovedPermanently)
}

// Handler returns the root handler, CORS included.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// GetRouter returns the configured router.
func (s *Server) GetRouter() *mux.Router {
	return s.router
}

// GetAddress returns the server address.
func (s *Server) GetAddress() string {
	return s.httpServer.Addr
}

// Hub returns the event hub clients subscribe to.
func (s *Server) Hub() *apihandlers.Hub {
	return s.hub
}
