// files.go — FileService: загрузка, скачивание и просмотр файлов.
//
// Upload: валидация → выдача уникального имени → кодирование → сохранение записи.
// Download/View: поиск записи (через кэш) → проверка MIME-типа → декодирование.
// View дополнительно ограничен списком разрешённых расширений.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/url"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/file-service/internal/domain/model"
	"github.com/bigkaa/goartstore/file-service/internal/repository"
	"github.com/bigkaa/goartstore/file-service/internal/sizefmt"
)

// DefaultContentType — MIME-тип для загрузок без Content-Type.
const DefaultContentType = "application/octet-stream"

// UploadMessage — сообщение в ответе успешной загрузки, часть контракта API.
const UploadMessage = "File uploaded successfully"

// Режимы выдачи файла (лейбл метрик).
const (
	modeDownload = "download"
	modeView     = "view"
)

// viewableExtensions — расширения, для которых разрешён просмотр в браузере.
var viewableExtensions = map[string]struct{}{
	"jpg": {}, "jpeg": {}, "png": {}, "gif": {},
	"txt": {}, "md": {}, "pdf": {},
	"mp3": {}, "wav": {}, "ogg": {}, "mp4": {},
}

// Prometheus-метрики файловых операций.
var (
	uploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fs_uploads_total",
			Help: "Общее количество загрузок файлов по результату.",
		},
		[]string{"status"},
	)
	uploadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fs_upload_bytes_total",
		Help: "Суммарный объём успешно загруженных данных в байтах.",
	})
	retrievalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fs_retrievals_total",
			Help: "Общее количество выдач файлов по режиму и результату.",
		},
		[]string{"mode", "status"},
	)
)

// Allocator выдаёт уникальные имена.
type Allocator interface {
	Allocate(ctx context.Context, originalName string) (string, error)
}

// BlobCodec переводит данные в формат хранения и обратно.
type BlobCodec interface {
	Encode(data []byte) ([]byte, error)
	Decode(stored []byte) ([]byte, error)
}

// FileServiceOptions — параметры FileService.
type FileServiceOptions struct {
	// BaseURL — префикс ссылок download/view (без завершающего /).
	BaseURL string
	// MaxUploadSize — максимальный размер данных; 0 — без ограничения.
	MaxUploadSize int64
	// ConflictRetries — сколько раз повторить allocate+insert при конфликте уникальности.
	ConflictRetries int
}

// UploadParams — входные данные загрузки.
type UploadParams struct {
	Data         []byte
	OriginalName string
	ContentType  string
	// Size — заявленный клиентом размер, используется для fileSize в ответе.
	Size int64
}

// FileService — бизнес-логика файлового сервиса.
type FileService struct {
	repo      repository.FileRepository
	allocator Allocator
	codec     BlobCodec
	cache     *CacheService
	opts      FileServiceOptions
	logger    *slog.Logger
}

// NewFileService создаёт FileService.
// cache может быть nil — тогда каждый запрос идёт в хранилище.
func NewFileService(
	repo repository.FileRepository,
	allocator Allocator,
	codec BlobCodec,
	cache *CacheService,
	opts FileServiceOptions,
	logger *slog.Logger,
) *FileService {
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &FileService{
		repo:      repo,
		allocator: allocator,
		codec:     codec,
		cache:     cache,
		opts:      opts,
		logger:    logger.With(slog.String("component", "file_service")),
	}
}

// Upload сохраняет файл под новым уникальным именем.
func (s *FileService) Upload(ctx context.Context, p UploadParams) (*model.UploadResult, error) {
	result, err := s.upload(ctx, p)
	uploadsTotal.WithLabelValues(uploadStatus(err)).Inc()
	if err != nil {
		return nil, err
	}
	uploadBytesTotal.Add(float64(len(p.Data)))
	return result, nil
}

func (s *FileService) upload(ctx context.Context, p UploadParams) (*model.UploadResult, error) {
	if p.Size < 0 {
		return nil, fmt.Errorf("%w: отрицательный размер файла %d", ErrValidation, p.Size)
	}
	if s.opts.MaxUploadSize > 0 && int64(len(p.Data)) > s.opts.MaxUploadSize {
		return nil, fmt.Errorf("%w: %d байт при лимите %d", ErrTooLarge, len(p.Data), s.opts.MaxUploadSize)
	}

	contentType, err := normalizeContentType(p.ContentType)
	if err != nil {
		return nil, err
	}

	encoded, err := s.codec.Encode(p.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: кодирование данных: %v", ErrStorage, err)
	}

	record := &model.FileRecord{
		OriginalName: p.OriginalName,
		ContentType:  contentType,
		Size:         int64(len(p.Data)),
		Payload:      encoded,
	}

	for attempt := 0; ; attempt++ {
		name, err := s.allocator.Allocate(ctx, p.OriginalName)
		if err != nil {
			s.logger.Error("Ошибка выдачи уникального имени",
				slog.String("original_name", p.OriginalName),
				slog.String("error", err.Error()),
			)
			return nil, err
		}
		record.UniqueName = name

		err = s.repo.Save(ctx, record)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrConflict) && attempt < s.opts.ConflictRetries {
			s.logger.Warn("Имя занято конкурентной загрузкой, повтор",
				slog.String("unique_name", name),
				slog.Int("attempt", attempt+1),
			)
			continue
		}
		s.logger.Error("Ошибка сохранения файла",
			slog.String("unique_name", name),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: сохранение файла %s: %v", ErrStorage, name, err)
	}

	s.logger.Info("Файл загружен",
		slog.String("unique_name", record.UniqueName),
		slog.String("original_name", record.OriginalName),
		slog.String("content_type", record.ContentType),
		slog.Int64("size", record.Size),
	)

	return &model.UploadResult{
		Message:         UploadMessage,
		OriginalName:    p.OriginalName,
		UniqueName:      record.UniqueName,
		FileSize:        sizefmt.Format(p.Size),
		FileDownloadURL: s.DownloadURL(record.UniqueName),
		FileViewURL:     s.ViewURL(record.UniqueName),
	}, nil
}

// Download возвращает файл для скачивания.
func (s *FileService) Download(ctx context.Context, uniqueName string) (*model.FileContent, error) {
	content, err := s.retrieve(ctx, uniqueName, false)
	retrievalsTotal.WithLabelValues(modeDownload, retrievalStatus(err)).Inc()
	return content, err
}

// View возвращает файл для просмотра, если расширение в списке разрешённых.
func (s *FileService) View(ctx context.Context, uniqueName string) (*model.FileContent, error) {
	content, err := s.retrieve(ctx, uniqueName, true)
	retrievalsTotal.WithLabelValues(modeView, retrievalStatus(err)).Inc()
	return content, err
}

func (s *FileService) retrieve(ctx context.Context, uniqueName string, view bool) (*model.FileContent, error) {
	record, err := s.lookup(ctx, uniqueName)
	if err != nil {
		return nil, err
	}

	if view && !IsViewable(record.OriginalName) {
		return nil, &ViewNotPermittedError{
			UniqueName:  record.UniqueName,
			DownloadURL: s.DownloadURL(record.UniqueName),
		}
	}

	if _, _, err := mime.ParseMediaType(record.ContentType); err != nil {
		s.logger.Error("Некорректный MIME-тип в хранилище",
			slog.String("unique_name", record.UniqueName),
			slog.String("content_type", record.ContentType),
		)
		return nil, fmt.Errorf("%w: некорректный MIME-тип %q: %v", ErrStorage, record.ContentType, err)
	}

	data, err := s.codec.Decode(record.Payload)
	if err != nil {
		s.logger.Error("Ошибка декодирования файла",
			slog.String("unique_name", record.UniqueName),
			slog.Int64("size", record.Size),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: декодирование %s: %w", ErrStorage, record.UniqueName, err)
	}

	return &model.FileContent{
		UniqueName:   record.UniqueName,
		OriginalName: record.OriginalName,
		ContentType:  record.ContentType,
		Data:         data,
	}, nil
}

// lookup ищет запись в кэше, затем в хранилище. Промахи не кэшируются.
func (s *FileService) lookup(ctx context.Context, uniqueName string) (*model.FileRecord, error) {
	if uniqueName == "" {
		return nil, fmt.Errorf("%w: пустое имя", ErrNotFound)
	}

	if s.cache != nil {
		if record, ok := s.cache.Get(uniqueName); ok {
			return record, nil
		}
	}

	record, err := s.repo.FindByUniqueName(ctx, uniqueName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, uniqueName)
		}
		s.logger.Error("Ошибка чтения записи",
			slog.String("unique_name", uniqueName),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: чтение %s: %v", ErrStorage, uniqueName, err)
	}

	if s.cache != nil {
		s.cache.Set(record)
	}
	return record, nil
}

// DownloadURL возвращает абсолютную ссылку на скачивание.
func (s *FileService) DownloadURL(uniqueName string) string {
	return s.opts.BaseURL + "/api/file/download/" + url.PathEscape(uniqueName)
}

// ViewURL возвращает абсолютную ссылку на просмотр.
func (s *FileService) ViewURL(uniqueName string) string {
	return s.opts.BaseURL + "/api/file/view/" + url.PathEscape(uniqueName)
}

// IsViewable проверяет расширение исходного имени по списку разрешённых.
// Расширение — текст после последней точки, точка не должна быть последним символом.
func IsViewable(originalName string) bool {
	i := strings.LastIndex(originalName, ".")
	if i < 0 || i == len(originalName)-1 {
		return false
	}
	_, ok := viewableExtensions[strings.ToLower(originalName[i+1:])]
	return ok
}

// normalizeContentType подставляет тип по умолчанию и проверяет синтаксис.
func normalizeContentType(contentType string) (string, error) {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return DefaultContentType, nil
	}
	if _, _, err := mime.ParseMediaType(contentType); err != nil {
		return "", fmt.Errorf("%w: некорректный Content-Type %q", ErrValidation, contentType)
	}
	return contentType, nil
}

// uploadStatus — лейбл метрики по ошибке загрузки.
func uploadStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrTooLarge):
		return "too_large"
	case errors.Is(err, ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}

// retrievalStatus — лейбл метрики по ошибке выдачи.
func retrievalStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrViewNotPermitted):
		return "not_permitted"
	default:
		return "error"
	}
}
