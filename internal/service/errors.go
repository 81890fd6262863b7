// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound — файл с указанным именем не найден.
	ErrNotFound = errors.New("файл не найден")
	// ErrViewNotPermitted — просмотр запрещён для расширения файла.
	ErrViewNotPermitted = errors.New("просмотр файла не разрешён")
	// ErrStorage — ошибка хранилища или кодека.
	ErrStorage = errors.New("ошибка хранилища")
	// ErrValidation — некорректные входные данные.
	ErrValidation = errors.New("ошибка валидации")
	// ErrTooLarge — размер файла превышает допустимый.
	ErrTooLarge = errors.New("размер файла превышает допустимый максимум")
)

// ViewNotPermittedError — отказ в просмотре с ссылкой на скачивание.
// errors.Is(err, ErrViewNotPermitted) возвращает true.
type ViewNotPermittedError struct {
	UniqueName  string
	DownloadURL string
}

func (e *ViewNotPermittedError) Error() string {
	return fmt.Sprintf("просмотр файла не разрешён, скачайте файл: %s", e.DownloadURL)
}

// Is сопоставляет ошибку с ErrViewNotPermitted.
func (e *ViewNotPermittedError) Is(target error) bool {
	return target == ErrViewNotPermitted
}
