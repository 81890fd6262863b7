// health.go — обработчики health endpoints File Service.
// /health/live — процесс жив, /health/ready — хранилище доступно, /metrics — Prometheus.
package handlers

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bigkaa/goartstore/file-service/internal/config"
)

const serviceName = "file-service"

// ReadinessChecker — интерфейс проверки готовности зависимости.
type ReadinessChecker interface {
	// CheckReady возвращает статус ("ok", "fail") и сообщение.
	CheckReady() (status, message string)
}

// HealthHandler — обработчик health endpoints.
type HealthHandler struct {
	storage     ReadinessChecker
	backend     string
	promHandler http.Handler
}

// NewHealthHandler создаёт обработчик health endpoints.
// backend — имя драйвера хранилища для ответа readiness.
// storage может быть nil — readiness вернёт "fail".
func NewHealthHandler(storage ReadinessChecker, backend string) *HealthHandler {
	return &HealthHandler{
		storage:     storage,
		backend:     backend,
		promHandler: promhttp.Handler(),
	}
}

type healthCheckResult struct {
	Status  string `json:"status"`
	Backend string `json:"backend,omitempty"`
	Message string `json:"message,omitempty"`
}

type healthLiveResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Service   string `json:"service"`
}

type healthReadyResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Service   string `json:"service"`
	Checks    struct {
		Storage healthCheckResult `json:"storage"`
	} `json:"checks"`
}

// HealthLive — liveness probe. Возвращает 200 если процесс жив.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthLiveResponse{
		Status:    statusOK,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
		Service:   serviceName,
	})
}

// HealthReady — readiness probe. 200 если хранилище отвечает, иначе 503.
func (h *HealthHandler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	resp := healthReadyResponse{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
		Service:   serviceName,
	}

	if h.storage != nil {
		status, msg := h.storage.CheckReady()
		resp.Checks.Storage = healthCheckResult{Status: status, Backend: h.backend, Message: msg}
	} else {
		resp.Checks.Storage = healthCheckResult{Status: statusFail, Backend: h.backend, Message: "не инициализировано"}
	}
	resp.Status = resp.Checks.Storage.Status

	code := http.StatusOK
	if resp.Status != statusOK {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

// GetMetrics — Prometheus метрики.
func (h *HealthHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.promHandler.ServeHTTP(w, r)
}

const (
	statusOK   = "ok"
	statusFail = "fail"
)
