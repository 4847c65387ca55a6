package rpc

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"stakepool/native/bank"
	"stakepool/native/rewards"
)

// Server exposes the pool engine over HTTP/JSON.
type Server struct {
	engine *rewards.Engine
	hub    *Hub
	logger *slog.Logger

	limitRPS   float64
	limitBurst int
	mu         sync.Mutex
	visitors   map[string]*rate.Limiter
}

// NewServer constructs the HTTP surface for the supplied engine. The hub must
// be the emitter wired into the engine so that the websocket stream observes
// every committed mutation.
func NewServer(engine *rewards.Engine, hub *Hub, logger *slog.Logger, limitRPS float64, limitBurst int) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if limitRPS <= 0 {
		limitRPS = 20
	}
	if limitBurst <= 0 {
		limitBurst = 40
	}
	return &Server{
		engine:     engine,
		hub:        hub,
		logger:     logger,
		limitRPS:   limitRPS,
		limitBurst: limitBurst,
		visitors:   make(map[string]*rate.Limiter),
	}
}

// Router assembles the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.logRequests)
	r.Use(s.rateLimit)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1/pool", func(r chi.Router) {
		r.Post("/stake", s.handleStake)
		r.Post("/unstake", s.handleUnstake)
		r.Post("/claim", s.handleClaim)
		r.Post("/settle", s.handleSettle)
		r.Get("/program", s.handleProgram)
		r.Get("/totals", s.handleTotals)
		r.Get("/participants/{addr}", s.handleParticipant)
		r.Get("/events", s.handleEvents)
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.status,
			"durationMs", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.visitorLimiter(clientID(r)).Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) visitorLimiter(id string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	limiter, ok := s.visitors[id]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(s.limitRPS), s.limitBurst)
		s.visitors[id] = limiter
	}
	return limiter
}

func clientID(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeEngineError maps engine sentinels onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, rewards.ErrInsufficientStake),
		errors.Is(err, rewards.ErrInsufficientClaimable):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, rewards.ErrTransferFailed),
		errors.Is(err, bank.ErrInsufficientBalance),
		errors.Is(err, bank.ErrInsufficientCustody):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, rewards.ErrInvalidConfig):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
