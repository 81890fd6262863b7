// Пакет model — доменные модели File Service.
package model

import "time"

// FileRecord — сохранённый файл.
// Запись неизменяема после сохранения: сервис не обновляет и не удаляет файлы.
type FileRecord struct {
	// ID генерируется хранилищем при сохранении.
	ID string
	// UniqueName — глобально уникальный ключ, выданный при загрузке.
	UniqueName string
	// OriginalName — имя файла у клиента; пустая строка, если не передано.
	OriginalName string
	// ContentType — MIME-тип, переданный клиентом.
	ContentType string
	// Size — размер исходных данных в байтах (до кодирования).
	Size int64
	// Payload — данные в формате хранения (результат blob-кодека).
	Payload []byte
	// CreatedAt заполняется хранилищем.
	CreatedAt time.Time
}

// FileContent — раскодированный файл, готовый к отдаче клиенту.
type FileContent struct {
	UniqueName   string
	OriginalName string
	ContentType  string
	Data         []byte
}

// UploadResult — результат успешной загрузки.
type UploadResult struct {
	Message         string `json:"message"`
	OriginalName    string `json:"originalName"`
	UniqueName      string `json:"uniqueName"`
	FileSize        string `json:"fileSize"`
	FileDownloadURL string `json:"fileDownloadUrl"`
	FileViewURL     string `json:"fileViewUrl"`
}
