package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/goartstore/file-service/internal/api/errors"
	"github.com/bigkaa/goartstore/file-service/internal/api/routes"
	"github.com/bigkaa/goartstore/file-service/internal/blob"
	"github.com/bigkaa/goartstore/file-service/internal/database"
	"github.com/bigkaa/goartstore/file-service/internal/domain/model"
	"github.com/bigkaa/goartstore/file-service/internal/repository"
	"github.com/bigkaa/goartstore/file-service/internal/service"
)

const testBaseURL = "http://files.test"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testDecodeLimit — лимит декодера в тестах, не связан с лимитом загрузки.
const testDecodeLimit = 64 << 20

// newTestRouter собирает полный стек поверх SQLite в памяти.
func newTestRouter(t *testing.T, maxUploadSize int64) http.Handler {
	t.Helper()

	db, err := database.OpenSQLite(context.Background(), ":memory:", discardLogger())
	if err != nil {
		t.Fatalf("OpenSQLite() вернул ошибку: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return newTestRouterOnDB(t, db, maxUploadSize)
}

// newTestRouterOnDB собирает стек поверх переданной базы.
func newTestRouterOnDB(t *testing.T, db *sql.DB, maxUploadSize int64) http.Handler {
	t.Helper()
	logger := discardLogger()

	codec, err := blob.NewCodec(testDecodeLimit)
	if err != nil {
		t.Fatalf("NewCodec() вернул ошибку: %v", err)
	}
	t.Cleanup(codec.Close)

	repo := repository.NewSQLiteFileRepository(db)
	svc := service.NewFileService(
		repo,
		service.NewNameAllocator(repo, logger),
		codec,
		service.NewCacheService(16, time.Minute, 1<<20),
		service.FileServiceOptions{BaseURL: testBaseURL, MaxUploadSize: maxUploadSize},
		logger,
	)

	api := NewAPIHandler(
		NewFilesHandler(svc, maxUploadSize, logger),
		NewHealthHandler(database.NewSQLiteReadinessChecker(db), "sqlite"),
		[]byte(`{"openapi":"3.0.3"}`),
		logger,
	)
	return routes.HandlerFromMux(api, chi.NewRouter(), api.ParamError)
}

// multipartBody формирует multipart-запрос с частью file.
func multipartBody(t *testing.T, field, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatalf("CreatePart() вернул ошибку: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("запись части: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("закрытие multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func upload(t *testing.T, h http.Handler, filename, contentType string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, "file", filename, contentType, data)
	req := httptest.NewRequest(http.MethodPost, "/api/file/upload", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apierrors.ErrorBody {
	t.Helper()
	var b apierrors.ErrorBody
	if err := json.NewDecoder(rec.Body).Decode(&b); err != nil {
		t.Fatalf("ошибка декодирования тела ошибки: %v", err)
	}
	return b
}

func TestUploadDownloadView(t *testing.T) {
	h := newTestRouter(t, 1<<20)
	data := []byte("Hello, World")

	rec := upload(t, h, "My Report.txt", "text/plain", data)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload: код = %d, тело = %s", rec.Code, rec.Body.String())
	}

	var result model.UploadResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("ошибка декодирования UploadResult: %v", err)
	}
	if result.UniqueName != "my-report-1.txt" {
		t.Errorf("uniqueName = %q, ожидается my-report-1.txt", result.UniqueName)
	}
	if result.OriginalName != "My Report.txt" {
		t.Errorf("originalName = %q", result.OriginalName)
	}
	if result.FileSize != "12 B" {
		t.Errorf("fileSize = %q, ожидается 12 B", result.FileSize)
	}
	if result.Message != "File uploaded successfully" {
		t.Errorf("message = %q, ожидается File uploaded successfully", result.Message)
	}
	if result.FileDownloadURL != testBaseURL+"/api/file/download/my-report-1.txt" {
		t.Errorf("fileDownloadUrl = %q", result.FileDownloadURL)
	}
	if result.FileViewURL != testBaseURL+"/api/file/view/my-report-1.txt" {
		t.Errorf("fileViewUrl = %q", result.FileViewURL)
	}

	// Скачивание
	rec = get(h, "/api/file/download/my-report-1.txt")
	if rec.Code != http.StatusOK {
		t.Fatalf("download: код = %d, тело = %s", rec.Code, rec.Body.String())
	}
	if !bytes.Equal(rec.Body.Bytes(), data) {
		t.Errorf("download: тело = %q, ожидается %q", rec.Body.Bytes(), data)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/plain" {
		t.Errorf("download: Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="My Report.txt"` {
		t.Errorf("download: Content-Disposition = %q", cd)
	}
	if cl := rec.Header().Get("Content-Length"); cl != "12" {
		t.Errorf("download: Content-Length = %q, ожидается 12", cl)
	}

	// Просмотр
	rec = get(h, "/api/file/view/my-report-1.txt")
	if rec.Code != http.StatusOK {
		t.Fatalf("view: код = %d, тело = %s", rec.Code, rec.Body.String())
	}
	if !bytes.Equal(rec.Body.Bytes(), data) {
		t.Errorf("view: тело = %q", rec.Body.Bytes())
	}
	if rec.Header().Get("Content-Disposition") != "" {
		t.Error("view: Content-Disposition не ожидается")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("view: ожидается X-Content-Type-Options: nosniff")
	}

	// Повторная загрузка получает следующий номер
	rec = upload(t, h, "My Report.txt", "text/plain", data)
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("ошибка декодирования UploadResult: %v", err)
	}
	if result.UniqueName != "my-report-2.txt" {
		t.Errorf("повторная загрузка: uniqueName = %q, ожидается my-report-2.txt", result.UniqueName)
	}
}

func TestDownload_ByReturnedURL_PercentInExtension(t *testing.T) {
	h := newTestRouter(t, 1<<20)

	tests := []struct {
		filename   string
		uniqueName string
	}{
		{"a.%41", "a-1.%41"},
		{"b.%zz", "b-1.%zz"},
		{"c.100%", "c-1.100%"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			data := []byte("payload " + tt.filename)

			rec := upload(t, h, tt.filename, "text/plain", data)
			if rec.Code != http.StatusOK {
				t.Fatalf("upload: код = %d, тело = %s", rec.Code, rec.Body.String())
			}
			var result model.UploadResult
			if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
				t.Fatalf("ошибка декодирования UploadResult: %v", err)
			}
			if result.UniqueName != tt.uniqueName {
				t.Fatalf("uniqueName = %q, ожидается %q", result.UniqueName, tt.uniqueName)
			}

			rec = get(h, strings.TrimPrefix(result.FileDownloadURL, testBaseURL))
			if rec.Code != http.StatusOK {
				t.Fatalf("download по %s: код = %d, тело = %s", result.FileDownloadURL, rec.Code, rec.Body.String())
			}
			if !bytes.Equal(rec.Body.Bytes(), data) {
				t.Errorf("тело = %q, ожидается %q", rec.Body.Bytes(), data)
			}

			// Ссылка на просмотр тоже разрешается в тот же файл.
			rec = get(h, strings.TrimPrefix(result.FileViewURL, testBaseURL))
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("view: код = %d, ожидается 422", rec.Code)
			}
			if b := decodeError(t, rec); !strings.Contains(b.Message, result.FileDownloadURL) {
				t.Errorf("view: message = %q, ожидается ссылка %s", b.Message, result.FileDownloadURL)
			}
		})
	}
}

func TestDownload_EscapedSlashInName(t *testing.T) {
	h := newTestRouter(t, 1<<20)

	// Имя с %2F не может быть выдано, но должно разбираться без ошибки привязки.
	rec := get(h, "/api/file/download/a%2Fb-1.txt")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("код = %d, ожидается 422", rec.Code)
	}
	if b := decodeError(t, rec); !strings.Contains(b.Message, "a/b-1.txt") {
		t.Errorf("message = %q, ожидается имя a/b-1.txt", b.Message)
	}
}

func TestDownload_AfterUploadLimitLowered(t *testing.T) {
	db, err := database.OpenSQLite(context.Background(), ":memory:", discardLogger())
	if err != nil {
		t.Fatalf("OpenSQLite() вернул ошибку: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	data := bytes.Repeat([]byte("x"), 4096)
	rec := upload(t, newTestRouterOnDB(t, db, 1<<20), "big.txt", "text/plain", data)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload: код = %d, тело = %s", rec.Code, rec.Body.String())
	}

	// Перезапуск с лимитом загрузки меньше сохранённого файла.
	h := newTestRouterOnDB(t, db, 16)

	rec = get(h, "/api/file/download/big-1.txt")
	if rec.Code != http.StatusOK {
		t.Fatalf("download: код = %d, тело = %s", rec.Code, rec.Body.String())
	}
	if !bytes.Equal(rec.Body.Bytes(), data) {
		t.Errorf("длина тела = %d, ожидается %d", rec.Body.Len(), len(data))
	}

	if rec := upload(t, h, "big.txt", "text/plain", data); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("повторная загрузка: код = %d, ожидается 422", rec.Code)
	}
}

func TestUpload_DefaultContentType(t *testing.T) {
	h := newTestRouter(t, 1<<20)

	rec := upload(t, h, "blob.bin", "", []byte{0x00, 0x01})
	if rec.Code != http.StatusOK {
		t.Fatalf("upload: код = %d, тело = %s", rec.Code, rec.Body.String())
	}

	rec = get(h, "/api/file/download/blob-1.bin")
	if ct := rec.Header().Get("Content-Type"); ct != service.DefaultContentType {
		t.Errorf("Content-Type = %q, ожидается %q", ct, service.DefaultContentType)
	}
}

func TestUpload_EmptyFile(t *testing.T) {
	h := newTestRouter(t, 1<<20)

	rec := upload(t, h, "empty.txt", "text/plain", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload: код = %d, тело = %s", rec.Code, rec.Body.String())
	}

	rec = get(h, "/api/file/download/empty-1.txt")
	if rec.Code != http.StatusOK {
		t.Fatalf("download: код = %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("ожидается пустое тело, получено %d байт", rec.Body.Len())
	}
	if cl := rec.Header().Get("Content-Length"); cl != "0" {
		t.Errorf("Content-Length = %q, ожидается 0", cl)
	}
}

func TestUpload_Errors(t *testing.T) {
	h := newTestRouter(t, 16)

	t.Run("нет части file", func(t *testing.T) {
		body, ct := multipartBody(t, "document", "a.txt", "text/plain", []byte("x"))
		req := httptest.NewRequest(http.MethodPost, "/api/file/upload", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("код = %d, ожидается 400", rec.Code)
		}
		if b := decodeError(t, rec); b.Error != apierrors.ErrorValidation {
			t.Errorf("error = %q", b.Error)
		}
	})

	t.Run("не multipart", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/file/upload", strings.NewReader("{}"))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("код = %d, ожидается 400", rec.Code)
		}
	})

	t.Run("некорректный content type", func(t *testing.T) {
		rec := upload(t, h, "a.txt", "text/", []byte("x"))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("код = %d, ожидается 400", rec.Code)
		}
	})

	t.Run("превышен размер", func(t *testing.T) {
		rec := upload(t, h, "big.txt", "text/plain", bytes.Repeat([]byte("a"), 17))
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("код = %d, ожидается 422", rec.Code)
		}
		b := decodeError(t, rec)
		if b.Error != apierrors.ErrorTooLarge || b.Message != apierrors.MessageTooLarge {
			t.Errorf("тело = %+v", b)
		}
	})

	t.Run("тело больше лимита с запасом", func(t *testing.T) {
		rec := upload(t, h, "huge.txt", "text/plain", bytes.Repeat([]byte("a"), multipartOverhead+64))
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("код = %d, ожидается 422", rec.Code)
		}
		if b := decodeError(t, rec); b.Error != apierrors.ErrorTooLarge {
			t.Errorf("error = %q", b.Error)
		}
	})
}

func TestView_NotPermitted(t *testing.T) {
	h := newTestRouter(t, 1<<20)

	if rec := upload(t, h, "setup.exe", "application/octet-stream", []byte("MZ")); rec.Code != http.StatusOK {
		t.Fatalf("upload: код = %d", rec.Code)
	}

	rec := get(h, "/api/file/view/setup-1.exe")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("код = %d, ожидается 422", rec.Code)
	}
	b := decodeError(t, rec)
	if b.Status != http.StatusUnprocessableEntity || b.Error != apierrors.ErrorUnprocessable {
		t.Errorf("тело = %+v", b)
	}
	if !strings.Contains(b.Message, testBaseURL+"/api/file/download/setup-1.exe") {
		t.Errorf("message должен содержать ссылку на скачивание: %q", b.Message)
	}

	// Скачивание того же файла разрешено
	if rec := get(h, "/api/file/download/setup-1.exe"); rec.Code != http.StatusOK {
		t.Errorf("download: код = %d, ожидается 200", rec.Code)
	}
}

func TestRetrieve_NotFound(t *testing.T) {
	h := newTestRouter(t, 1<<20)

	for _, path := range []string{
		"/api/file/download/missing-1.txt",
		"/api/file/view/missing-1.txt",
	} {
		t.Run(path, func(t *testing.T) {
			rec := get(h, path)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("код = %d, ожидается 422", rec.Code)
			}
			if b := decodeError(t, rec); b.Error != apierrors.ErrorUnprocessable {
				t.Errorf("error = %q", b.Error)
			}
		})
	}
}

func TestContentDisposition(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"report.pdf", `attachment; filename="report.pdf"`},
		{`a"b.txt`, `attachment; filename="a\"b.txt"`},
		{"отчёт.txt", `attachment; filename="отчёт.txt"; filename*=UTF-8''%D0%BE%D1%82%D1%87%D1%91%D1%82.txt`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := contentDisposition(tt.name); got != tt.expected {
				t.Errorf("contentDisposition(%q) = %q, ожидается %q", tt.name, got, tt.expected)
			}
		})
	}
}

func TestHealthAndOpenAPI(t *testing.T) {
	h := newTestRouter(t, 1<<20)

	rec := get(h, "/health/live")
	if rec.Code != http.StatusOK {
		t.Errorf("live: код = %d", rec.Code)
	}

	rec = get(h, "/health/ready")
	if rec.Code != http.StatusOK {
		t.Fatalf("ready: код = %d, тело = %s", rec.Code, rec.Body.String())
	}
	var ready healthReadyResponse
	if err := json.NewDecoder(rec.Body).Decode(&ready); err != nil {
		t.Fatalf("ошибка декодирования: %v", err)
	}
	if ready.Status != statusOK || ready.Checks.Storage.Backend != "sqlite" {
		t.Errorf("ready = %+v", ready)
	}

	rec = get(h, "/api/openapi.json")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/json" {
		t.Errorf("openapi: код = %d, Content-Type = %q", rec.Code, rec.Header().Get("Content-Type"))
	}
}

type failingChecker struct{}

func (failingChecker) CheckReady() (string, string) { return statusFail, "нет соединения" }

func TestHealthReady_Fail(t *testing.T) {
	h := NewHealthHandler(failingChecker{}, "postgres")
	rec := httptest.NewRecorder()
	h.HealthReady(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("код = %d, ожидается 503", rec.Code)
	}

	h = NewHealthHandler(nil, "sqlite")
	rec = httptest.NewRecorder()
	h.HealthReady(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("nil checker: код = %d, ожидается 503", rec.Code)
	}
}
