package observability

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/ports"
)

// Server exposes the operational surface: health probes, the metrics
// snapshot, the prometheus scrape endpoint, and the dead-letter listing.
type Server struct {
	port      int
	server    *http.Server
	logger    *slog.Logger
	metrics   ports.MetricsCollector
	queue     ports.QueueProvider
	registry  *prometheus.Registry
	topics    []string
	startTime time.Time
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime"`
}

type MetricsResponse struct {
	Timestamp   time.Time      `json:"timestamp"`
	Application interface{}    `json:"application"`
	Queues      map[string]any `json:"queues,omitempty"`
	Runtime     RuntimeInfo    `json:"runtime"`
}

type RuntimeInfo struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	HeapAlloc    uint64 `json:"heap_alloc_bytes"`
}

type QueueDepths struct {
	Depth           int `json:"depth"`
	DeadLetterDepth int `json:"dead_letter_depth"`
}

func NewServer(port int, metrics ports.MetricsCollector, queue ports.QueueProvider, registry *prometheus.Registry, topics []string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		port:      port,
		logger:    logger.With("component", "observability"),
		metrics:   metrics,
		queue:     queue,
		registry:  registry,
		topics:    topics,
		startTime: time.Now(),
	}
}

// Start serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/live", s.handleLive)
	mux.HandleFunc("/ready", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/deadletter", s.handleDeadLetter)
	if s.registry != nil {
		mux.Handle("/metrics/prometheus", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.withLogging(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting observability server", "port", s.port)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("observability server error", "error", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.logger.Info("shutting down observability server")
	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Uptime:    time.Since(s.startTime).String(),
	})
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("live"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := MetricsResponse{
		Timestamp: time.Now(),
		Runtime: RuntimeInfo{
			GoVersion:    runtime.Version(),
			NumGoroutine: runtime.NumGoroutine(),
			HeapAlloc:    m.HeapAlloc,
		},
	}
	if s.metrics != nil {
		response.Application = s.metrics.Snapshot()
	}
	if s.queue != nil && len(s.topics) > 0 {
		response.Queues = make(map[string]any, len(s.topics))
		for _, topic := range s.topics {
			depth, err := s.queue.Depth(topic)
			if err != nil {
				continue
			}
			dlqDepth, err := s.queue.DeadLetterDepth(topic)
			if err != nil {
				continue
			}
			response.Queues[topic] = QueueDepths{Depth: depth, DeadLetterDepth: dlqDepth}
		}
	}

	json.NewEncoder(w).Encode(response)
}

func (s *Server) handleDeadLetter(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("topic")
	if topic == "" {
		http.Error(w, "topic query parameter is required", http.StatusBadRequest)
		return
	}
	if s.queue == nil {
		http.Error(w, "queue not available", http.StatusServiceUnavailable)
		return
	}

	items, err := s.queue.DeadLetterItems(topic, 100)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(items)
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration", time.Since(start),
			"remote_addr", r.RemoteAddr,
		)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
