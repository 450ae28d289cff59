package relay

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// RelayStatus is the part of the relay the health endpoints inspect.
type RelayStatus interface {
	IsHealthy() bool
	IsReady() bool
}

// BrokerStatus reports broker connectivity. It is optional.
type BrokerStatus interface {
	IsClosed() bool
}

type HealthHandler struct {
	relay     RelayStatus
	broker    BrokerStatus
	startTime time.Time
	version   string
	logger    *slog.Logger
}

func NewHealthHandler(relay RelayStatus, broker BrokerStatus, logger *slog.Logger) *HealthHandler {
	version := os.Getenv("APP_VERSION")
	if version == "" {
		version = "unknown"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{
		relay:     relay,
		broker:    broker,
		startTime: time.Now(),
		version:   version,
		logger:    logger,
	}
}

// HealthResponse follows Kubernetes health check conventions
type HealthResponse struct {
	Status    string           `json:"status"`
	Component string           `json:"component"`
	Timestamp string           `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Version   string           `json:"version"`
	Checks    map[string]Check `json:"checks"`
}

type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Routes mounts the checks under /health.
func (h *HealthHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.Health)
	mux.HandleFunc("/health/live", h.Live)
	mux.HandleFunc("/health/ready", h.Ready)
}

// Health is the liveness check. It fails only when the relay loop has died.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	checks := map[string]Check{"process": {Status: "UP"}}
	status, code := "UP", http.StatusOK
	if !h.relay.IsHealthy() {
		checks["relay"] = Check{Status: "DOWN", Message: "relay loop stopped"}
		status, code = "DOWN", http.StatusServiceUnavailable
	}
	h.write(w, code, status, checks)
}

// Live is an alias for Health
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	h.Health(w, r)
}

// Ready reports whether events are currently being forwarded.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	checks := make(map[string]Check)
	status, code := "UP", http.StatusOK

	if h.relay.IsReady() {
		checks["relay"] = Check{Status: "UP"}
	} else {
		checks["relay"] = Check{Status: "DOWN", Message: "storage unavailable or no recent activity"}
		status, code = "DOWN", http.StatusServiceUnavailable
	}

	if h.broker != nil {
		if h.broker.IsClosed() {
			checks["broker"] = Check{Status: "DOWN", Message: "Cannot connect to RabbitMQ"}
			status, code = "DOWN", http.StatusServiceUnavailable
		} else {
			checks["broker"] = Check{Status: "UP"}
		}
	}

	h.write(w, code, status, checks)
}

func (h *HealthHandler) write(w http.ResponseWriter, code int, status string, checks map[string]Check) {
	response := HealthResponse{
		Status:    status,
		Component: "room-event-relay",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Version:   h.version,
		Checks:    checks,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("health: failed to encode response", "error", err)
	}
}
