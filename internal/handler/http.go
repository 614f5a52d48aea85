package handler

import (
	"context"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/dotastats-bot/internal/domain"
)

const serviceName = "dotastats-bot"

// LeaderboardReader serves the quiz leaderboard
type LeaderboardReader interface {
	Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
}

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatusInfo describes how the process was started
type StatusInfo struct {
	Engine       string `json:"storage_engine"`
	RedisEnabled bool   `json:"redis_enabled"`
	KafkaEnabled bool   `json:"kafka_enabled"`
}

// Handler serves the status page, probes, metrics and the leaderboard API
type Handler struct {
	leaderboard LeaderboardReader
	store       Pinger
	info        StatusInfo
	startedAt   time.Time
	logger      *slog.Logger
}

// NewHandler creates a new HTTP handler. store is nil when the bot runs
// without storage.
func NewHandler(leaderboard LeaderboardReader, store Pinger, info StatusInfo, logger *slog.Logger) *Handler {
	return &Handler{
		leaderboard: leaderboard,
		store:       store,
		info:        info,
		startedAt:   time.Now(),
		logger:      logger,
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", h.StatusPage)
	r.Get("/health", h.HealthCheck)
	r.Get("/ping", h.Ping)
	r.Get("/ready", h.ReadyCheck)
	r.Get("/status", h.Status)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/leaderboard", h.GetLeaderboard)
	})

	return r
}

// requestLogger logs each request through the injected slog logger
func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeSuccess writes a successful JSON response
func (h *Handler) writeSuccess(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// writeError writes an error JSON response
func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, APIResponse{
		Success: false,
		Error:   err.Error(),
	})
}

var statusPage = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>Dota2 Bot Status</title>
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <style>
        body { font-family: sans-serif; background: #667eea; color: #fff; display: flex; justify-content: center; padding: 40px; }
        .container { background: rgba(255,255,255,0.1); border-radius: 20px; padding: 40px; max-width: 600px; width: 100%; }
        .status { border: 2px solid #4CAF50; color: #4CAF50; padding: 10px 20px; border-radius: 40px; display: inline-block; font-weight: bold; }
        a { color: #fff; }
    </style>
</head>
<body>
<div class="container">
    <h1>🤖 Dota2 Stats Bot</h1>
    <div class="status">✅ Bot is up and running</div>
    <p><strong>Uptime:</strong> {{.Uptime}}</p>
    <p><strong>Storage:</strong> {{.Engine}}</p>
    <p><strong>Features:</strong> profile, analysis, quiz, friends</p>
    <ul>
        <li><a href="/health">GET /health</a></li>
        <li><a href="/status">GET /status</a></li>
        <li><a href="/metrics">GET /metrics</a></li>
        <li><a href="/api/v1/leaderboard">GET /api/v1/leaderboard</a></li>
    </ul>
</div>
</body>
</html>
`))

// StatusPage renders the human-readable status page
func (h *Handler) StatusPage(w http.ResponseWriter, r *http.Request) {
	engine := h.info.Engine
	if h.store == nil {
		engine = "unavailable"
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := statusPage.Execute(w, map[string]string{
		"Uptime": time.Since(h.startedAt).Truncate(time.Second).String(),
		"Engine": engine,
	})
	if err != nil {
		h.logger.Error("failed to render status page", "error", err)
	}
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{
		"status":  "healthy",
		"service": serviceName,
	})
}

// Ping answers liveness pings
func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("pong"))
}

// ReadyCheck reports ready only when storage answers
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.writeError(w, http.StatusServiceUnavailable, domain.ErrStorageUnavailable)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("readiness check failed", "error", err)
		h.writeError(w, http.StatusServiceUnavailable, domain.ErrStorageUnavailable)
		return
	}

	h.writeSuccess(w, map[string]string{"status": "ready"})
}

type systemStatus struct {
	CPUPercent        float64 `json:"cpu_percent"`
	MemoryPercent     float64 `json:"memory_percent"`
	MemoryAvailableGB float64 `json:"memory_available_gb"`
}

// Status returns process and host details
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	hostname, _ := os.Hostname()

	var system systemStatus
	if vm, err := mem.VirtualMemoryWithContext(r.Context()); err == nil {
		system.MemoryPercent = vm.UsedPercent
		system.MemoryAvailableGB = float64(vm.Available) / (1 << 30)
	} else {
		h.logger.Debug("reading memory stats failed", "error", err)
	}
	if percents, err := cpu.PercentWithContext(r.Context(), 0, false); err == nil && len(percents) > 0 {
		system.CPUPercent = percents[0]
	}

	info := h.info
	if h.store == nil {
		info.Engine = "unavailable"
	}

	h.writeSuccess(w, map[string]interface{}{
		"status":         "running",
		"service":        serviceName,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"hostname":       hostname,
		"system":         system,
		"features":       info,
	})
}

// GetLeaderboard returns the top quiz scores
func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
			return
		}
		limit = l
	}

	entries, err := h.leaderboard.Leaderboard(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to get leaderboard", "error", err)
		if domain.IsUserFacing(err) {
			h.writeError(w, http.StatusServiceUnavailable, err)
			return
		}
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	h.writeSuccess(w, entries)
}
