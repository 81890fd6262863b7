// handler.go — основной обработчик API, реализующий routes.ServerInterface.
// Объединяет health, OpenAPI и файловые обработчики.
package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/goartstore/file-service/internal/api/errors"
	"github.com/bigkaa/goartstore/file-service/internal/service"
)

// APIHandler — основной обработчик API File Service.
type APIHandler struct {
	files   *FilesHandler
	health  *HealthHandler
	openapi []byte
	logger  *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
// openapiJSON — контракт, отдаваемый на /api/openapi.json.
func NewAPIHandler(
	files *FilesHandler,
	health *HealthHandler,
	openapiJSON []byte,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		files:   files,
		health:  health,
		openapi: openapiJSON,
		logger:  logger.With(slog.String("component", "api_handler")),
	}
}

// --- Файловые endpoints ---

// UploadFile — POST /api/file/upload.
func (h *APIHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	h.files.UploadFile(w, r)
}

// DownloadFile — GET /api/file/download/{fileName}.
func (h *APIHandler) DownloadFile(w http.ResponseWriter, r *http.Request, fileName string) {
	h.files.DownloadFile(w, r, fileName)
}

// ViewFile — GET /api/file/view/{fileName}.
func (h *APIHandler) ViewFile(w http.ResponseWriter, r *http.Request, fileName string) {
	h.files.ViewFile(w, r, fileName)
}

// GetOpenAPI — OpenAPI-контракт в JSON.
func (h *APIHandler) GetOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.openapi)
}

// --- Health endpoints (делегируются в HealthHandler) ---

// HealthLive — liveness probe.
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe.
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики.
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// ParamError обрабатывает ошибки разбора path-параметров.
// Имя, которое не удалось разобрать, не может принадлежать ни одному файлу.
func (h *APIHandler) ParamError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Debug("Некорректный path-параметр",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	apierrors.Write(w, fmt.Errorf("%w: %v", service.ErrNotFound, err))
}

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
