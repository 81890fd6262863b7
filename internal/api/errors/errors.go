// Пакет errors — единый формат ошибок HTTP API File Service.
// Тело ответа: {"status": 422, "error": "...", "message": "..."}.
// Отображение ошибок сервисного слоя в HTTP — чистая функция FromError.
package errors //nolint:revive // конфликт имени со stdlib, импортируется как apierrors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/bigkaa/goartstore/file-service/internal/service"
)

// Значения поля error.
const (
	ErrorUnprocessable = "Unprocessable Entity"
	ErrorValidation    = "Validation Error"
	ErrorTooLarge      = "File size exceeds the maximum allowed."
	ErrorInternal      = "Internal Server Error"
)

// MessageTooLarge — сообщение при превышении размера загрузки.
const MessageTooLarge = "Maximum upload size exceeded"

// ErrorBody — тело ответа ошибки.
type ErrorBody struct {
	Status  int    `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// FromError отображает ошибку сервисного слоя в HTTP-статус и тело ответа.
// Внутренние причины ошибок хранилища в ответ не попадают.
func FromError(err error) (int, ErrorBody) {
	switch {
	case stderrors.Is(err, service.ErrTooLarge):
		return body(http.StatusUnprocessableEntity, ErrorTooLarge, MessageTooLarge)
	case stderrors.Is(err, service.ErrValidation):
		return body(http.StatusBadRequest, ErrorValidation, err.Error())
	case stderrors.Is(err, service.ErrNotFound),
		stderrors.Is(err, service.ErrViewNotPermitted):
		return body(http.StatusUnprocessableEntity, ErrorUnprocessable, err.Error())
	case stderrors.Is(err, service.ErrStorage):
		return body(http.StatusUnprocessableEntity, ErrorUnprocessable, service.ErrStorage.Error())
	default:
		return body(http.StatusInternalServerError, ErrorInternal, "внутренняя ошибка сервера")
	}
}

func body(status int, errText, message string) (int, ErrorBody) {
	return status, ErrorBody{Status: status, Error: errText, Message: message}
}

// Write записывает ответ для ошибки сервисного слоя.
func Write(w http.ResponseWriter, err error) {
	status, b := FromError(err)
	writeBody(w, status, b)
}

// WriteError записывает ответ ошибки с явными полями.
func WriteError(w http.ResponseWriter, status int, errText, message string) {
	writeBody(w, status, ErrorBody{Status: status, Error: errText, Message: message})
}

// ValidationError — 400 некорректные входные данные.
func ValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, ErrorValidation, message)
}

func writeBody(w http.ResponseWriter, status int, b ErrorBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(b)
}
