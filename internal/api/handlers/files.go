// files.go — HTTP handlers файловых операций: upload, download, view.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	apierrors "github.com/bigkaa/goartstore/file-service/internal/api/errors"
	"github.com/bigkaa/goartstore/file-service/internal/domain/model"
	"github.com/bigkaa/goartstore/file-service/internal/service"
)

// multipartOverhead — запас на заголовки multipart сверх лимита файла.
const multipartOverhead = 1 << 20

// multipartMemory — сколько данных multipart держится в памяти, остальное во временных файлах.
const multipartMemory = 32 << 20

// FileService — операции сервисного слоя, нужные обработчикам.
type FileService interface {
	Upload(ctx context.Context, p service.UploadParams) (*model.UploadResult, error)
	Download(ctx context.Context, uniqueName string) (*model.FileContent, error)
	View(ctx context.Context, uniqueName string) (*model.FileContent, error)
}

// FilesHandler — обработчик файловых endpoints.
type FilesHandler struct {
	svc           FileService
	maxUploadSize int64
	logger        *slog.Logger
}

// NewFilesHandler создаёт обработчик файловых endpoints.
// maxUploadSize ограничивает тело запроса; 0 — без ограничения.
func NewFilesHandler(svc FileService, maxUploadSize int64, logger *slog.Logger) *FilesHandler {
	return &FilesHandler{
		svc:           svc,
		maxUploadSize: maxUploadSize,
		logger:        logger.With(slog.String("component", "files_handler")),
	}
}

// UploadFile обрабатывает POST /api/file/upload.
// Multipart form: file (обязательно).
func (h *FilesHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+multipartOverhead)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apierrors.Write(w, fmt.Errorf("%w: тело больше %d байт", service.ErrTooLarge, tooLarge.Limit))
			return
		}
		apierrors.ValidationError(w, fmt.Sprintf("Ошибка парсинга multipart: %s", err.Error()))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		apierrors.ValidationError(w, "Поле 'file' обязательно")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		apierrors.ValidationError(w, fmt.Sprintf("Ошибка чтения файла: %s", err.Error()))
		return
	}

	result, err := h.svc.Upload(r.Context(), service.UploadParams{
		Data:         data,
		OriginalName: header.Filename,
		ContentType:  header.Header.Get("Content-Type"),
		Size:         header.Size,
	})
	if err != nil {
		apierrors.Write(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// DownloadFile обрабатывает GET /api/file/download/{fileName}.
// Отдаёт файл как вложение под исходным именем.
func (h *FilesHandler) DownloadFile(w http.ResponseWriter, r *http.Request, fileName string) {
	content, err := h.svc.Download(r.Context(), fileName)
	if err != nil {
		apierrors.Write(w, err)
		return
	}

	name := content.OriginalName
	if name == "" {
		name = content.UniqueName
	}
	w.Header().Set("Content-Disposition", contentDisposition(name))
	h.writeContent(w, content)
}

// ViewFile обрабатывает GET /api/file/view/{fileName}.
// Отдаёт файл для отображения в браузере, только для разрешённых расширений.
func (h *FilesHandler) ViewFile(w http.ResponseWriter, r *http.Request, fileName string) {
	content, err := h.svc.View(r.Context(), fileName)
	if err != nil {
		apierrors.Write(w, err)
		return
	}

	w.Header().Set("X-Content-Type-Options", "nosniff")
	h.writeContent(w, content)
}

func (h *FilesHandler) writeContent(w http.ResponseWriter, content *model.FileContent) {
	w.Header().Set("Content-Type", content.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(content.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(content.Data); err != nil {
		h.logger.Warn("Ошибка отправки файла клиенту",
			slog.String("unique_name", content.UniqueName),
			slog.String("error", err.Error()),
		)
	}
}

var dispositionEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\r", "", "\n", "")

// contentDisposition формирует заголовок attachment.
// Для не-ASCII имён добавляется filename* в кодировке RFC 5987.
func contentDisposition(name string) string {
	v := fmt.Sprintf("attachment; filename=\"%s\"", dispositionEscaper.Replace(name))
	for i := 0; i < len(name); i++ {
		if name[i] >= 0x80 {
			return v + "; filename*=UTF-8''" + url.PathEscape(name)
		}
	}
	return v
}
