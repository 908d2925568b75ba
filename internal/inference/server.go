package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// DefaultPort is used when SAGEMAKER_BIND_TO_PORT is unset
const DefaultPort = 8080

// Request is the body of an invocation
type Request struct {
	ItemID json.RawMessage `json:"itemId"`
}

// Response is the body returned by an invocation
type Response struct {
	Rec   []int  `json:"rec"`
	Error string `json:"error,omitempty"`
}

// Server serves a model under the container contract: /ping and /invocations
type Server struct {
	model   *Model
	logger  *zap.Logger
	metrics *metrics
	router  *mux.Router
}

// NewServer creates a new server. Metrics are registered on reg.
func NewServer(model *Model, reg *prometheus.Registry, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		model:   model,
		logger:  logger,
		metrics: newMetrics(reg),
		router:  mux.NewRouter(),
	}

	s.router.HandleFunc("/ping", s.ping).Methods(http.MethodGet)
	s.router.HandleFunc("/invocations", s.invoke).Methods(http.MethodPost)
	s.router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Inference server listening", zap.String("addr", addr), zap.Int("items", s.model.Len()))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("inference server stopped: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) ping(w http.ResponseWriter, _ *http.Request) {
	if s.model == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) invoke(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	result := "ok"
	defer func() {
		s.metrics.invocations.WithLabelValues(result).Inc()
		s.metrics.latency.Observe(time.Since(start).Seconds())
	}()

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		result = "unsupported"
		http.Error(w, "This model only supports application/json input", http.StatusUnsupportedMediaType)
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		result = "bad_request"
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	item, err := parseItemID(req.ItemID)
	if err != nil {
		result = "bad_request"
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := Response{Rec: []int{}}
	if rec, ok := s.model.Recommend(item, MaxRecommendations); ok {
		resp.Rec = rec
	} else {
		result = "unknown_item"
		resp.Error = fmt.Sprintf("item %d not found in model", item)
	}

	s.logger.Debug("Invocation", zap.Int("item", item), zap.Ints("rec", resp.Rec))
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("Failed to write response", zap.Error(err))
	}
}

// parseItemID accepts an integer or a string holding one
func parseItemID(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, errors.New("itemId is required")
	}

	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("itemId must be an integer: %s", raw)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("itemId must be an integer: %q", s)
	}
	return n, nil
}
