package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"mini-eventlog/internal/broker"
	"mini-eventlog/internal/config"
	"mini-eventlog/internal/metrics"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const (
	// LastSentHeader carries the ordinal of the last record in a read response.
	LastSentHeader = "X-Eventlog-Last-Sent"
	// RequestIDHeader carries the per-request ID assigned by the server.
	RequestIDHeader = "X-Request-Id"
)

// Server exposes a broker over HTTP.
type Server struct {
	broker     *broker.Broker
	config     *config.Config
	router     *mux.Router
	httpServer *http.Server
	listener   net.Listener
	errCh      chan error
}

// --- API Response Structs ---

type ProduceResponse struct {
	Topic   string `json:"topic"`
	Ordinal int    `json:"ordinal"`
}

type HealthResponse struct {
	Status     string `json:"status"`
	Topics     int    `json:"topics"`
	LoadErrors int    `json:"load_errors"`
	Uptime     string `json:"uptime"`
}

// New builds the router for b. Nothing is bound until Start.
func New(cfg *config.Config, b *broker.Broker) *Server {
	s := &Server{
		broker: b,
		config: cfg,
		router: mux.NewRouter(),
		errCh:  make(chan error, 1),
	}
	s.setupRoutes()
	return s
}

// setupRoutes defines all the API endpoints.
func (s *Server) setupRoutes() {
	s.router.Use(requestIDMiddleware, corsMiddleware)

	// Preflight for any path. A method matcher here would turn every
	// unknown path into a 405.
	s.router.MatcherFunc(isPreflight).HandlerFunc(s.handleCORS)

	// Record routes
	s.router.HandleFunc("/put/{topic}", s.handlePut).Methods(http.MethodPost, http.MethodPut)
	s.router.HandleFunc("/get/{topic}", s.handleGet).Methods(http.MethodGet)

	// Admin routes
	s.router.HandleFunc("/topics", s.handleTopics).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.RequestsTotal.WithLabelValues("unmatched", "404").Inc()
		w.WriteHeader(http.StatusNotFound)
	})
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start binds the listen address and serves in the background. Serve errors
// after a successful bind are delivered on Err.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.ListenAddr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddr(), err)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().
		Str("addr", ln.Addr().String()).
		Str("data_dir", s.config.DataDir).
		Msg("Event log server started")
	s.broker.Auditor().Log("started", map[string]any{
		"addr":     ln.Addr().String(),
		"data_dir": s.config.DataDir,
	})

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server failed")
			s.errCh <- err
		}
		close(s.errCh)
	}()
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Err is closed when the server stops serving; it carries the error if the
// server stopped for any reason other than Shutdown.
func (s *Server) Err() <-chan error {
	return s.errCh
}

// Shutdown stops accepting requests, waits for in-flight ones and stops the
// broker.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Initiating graceful shutdown...")
	var shutdownErr error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown error")
			shutdownErr = err
		}
	}
	if err := s.broker.Stop(); err != nil && shutdownErr == nil {
		shutdownErr = err
	}
	log.Info().Msg("Shutdown complete")
	return shutdownErr
}

// --- HTTP Handlers ---

func isPreflight(r *http.Request, _ *mux.RouteMatch) bool {
	return r.Method == http.MethodOptions
}

func (s *Server) handleCORS(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	topicName := mux.Vars(r)["topic"]

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusInternalServerError)
		return
	}

	ordinal, err := s.broker.Produce(topicName, body)
	if err != nil {
		status := broker.StatusCode(err)
		if status >= http.StatusInternalServerError {
			log.Error().Err(err).Str("topic", topicName).Msg("Append failed")
		}
		http.Error(w, err.Error(), status)
		return
	}

	writeJSON(w, http.StatusOK, &ProduceResponse{Topic: topicName, Ordinal: ordinal})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	topicName := mux.Vars(r)["topic"]

	window, err := s.broker.Consume(topicName, r.URL.Query().Get("from"))
	if err != nil {
		http.Error(w, err.Error(), broker.StatusCode(err))
		return
	}

	w.Header().Set(LastSentHeader, strconv.Itoa(window.Last))
	writeJSON(w, http.StatusOK, window.Records)
}

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.broker.Topics())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if len(s.broker.LoadErrors()) > 0 {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, &HealthResponse{
		Status:     status,
		Topics:     len(s.broker.Topics()),
		LoadErrors: len(s.broker.LoadErrors()),
		Uptime:     s.broker.Uptime().Round(time.Second).String(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to write response")
	}
}
