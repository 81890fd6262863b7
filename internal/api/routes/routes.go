// Пакет routes — привязка ServerInterface к chi-роутеру.
// Повторяет структуру oapi-codegen chi-server: обёртка разбирает
// path-параметры через oapi-codegen/runtime и вызывает обработчик.
package routes

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ServerInterface — обработчики HTTP API File Service.
type ServerInterface interface {
	// POST /api/file/upload
	UploadFile(w http.ResponseWriter, r *http.Request)
	// GET /api/file/download/{fileName}
	DownloadFile(w http.ResponseWriter, r *http.Request, fileName string)
	// GET /api/file/view/{fileName}
	ViewFile(w http.ResponseWriter, r *http.Request, fileName string)
	// GET /api/openapi.json
	GetOpenAPI(w http.ResponseWriter, r *http.Request)
	// GET /health/live
	HealthLive(w http.ResponseWriter, r *http.Request)
	// GET /health/ready
	HealthReady(w http.ResponseWriter, r *http.Request)
	// GET /metrics
	GetMetrics(w http.ResponseWriter, r *http.Request)
}

// InvalidParamFormatError — path-параметр не удалось разобрать.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("некорректный формат параметра %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error {
	return e.Err
}

// ErrorHandlerFunc обрабатывает ошибки разбора параметров.
type ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)

// wrapper разбирает параметры и делегирует в ServerInterface.
type wrapper struct {
	handler      ServerInterface
	errorHandler ErrorHandlerFunc
}

// fileNameParam разбирает {fileName}. Binder раскодирует значение сам,
// поэтому ему передаётся экранированный сегмент пути.
func (siw *wrapper) fileNameParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	var fileName string
	err := runtime.BindStyledParameterWithOptions("simple", "fileName", escapedURLParam(r, "fileName"), &fileName,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.errorHandler(w, r, &InvalidParamFormatError{ParamName: "fileName", Err: err})
		return "", false
	}
	return fileName, true
}

// escapedURLParam возвращает path-параметр в экранированном виде.
// chi маршрутизирует по RawPath, если он задан, иначе по уже раскодированному Path.
func escapedURLParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if r.URL.RawPath != "" {
		return v
	}
	return url.PathEscape(v)
}

func (siw *wrapper) downloadFile(w http.ResponseWriter, r *http.Request) {
	if fileName, ok := siw.fileNameParam(w, r); ok {
		siw.handler.DownloadFile(w, r, fileName)
	}
}

func (siw *wrapper) viewFile(w http.ResponseWriter, r *http.Request) {
	if fileName, ok := siw.fileNameParam(w, r); ok {
		siw.handler.ViewFile(w, r, fileName)
	}
}

// HandlerFromMux регистрирует маршруты API в переданном роутере.
// errorHandler вызывается при некорректных path-параметрах.
func HandlerFromMux(si ServerInterface, r chi.Router, errorHandler ErrorHandlerFunc) http.Handler {
	if errorHandler == nil {
		errorHandler = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	siw := &wrapper{handler: si, errorHandler: errorHandler}

	r.Post("/api/file/upload", si.UploadFile)
	r.Get("/api/file/download/{fileName}", siw.downloadFile)
	r.Get("/api/file/view/{fileName}", siw.viewFile)
	r.Get("/api/openapi.json", si.GetOpenAPI)
	r.Get("/health/live", si.HealthLive)
	r.Get("/health/ready", si.HealthReady)
	r.Get("/metrics", si.GetMetrics)

	return r
}
