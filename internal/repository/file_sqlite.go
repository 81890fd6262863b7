// file_sqlite.go — репозиторий записей файлов в SQLite (modernc.org/sqlite).
// Используется для локального однонодового запуска и в тестах.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/goartstore/file-service/internal/domain/model"
)

// SQLiteFileRepository — реализация FileRepository для SQLite.
type SQLiteFileRepository struct {
	db *sql.DB
}

// NewSQLiteFileRepository создаёт репозиторий поверх открытой SQLite-базы.
// Схема должна быть создана заранее (database.OpenSQLite).
func NewSQLiteFileRepository(db *sql.DB) *SQLiteFileRepository {
	return &SQLiteFileRepository{db: db}
}

// Save вставляет запись. ID генерирует репозиторий.
func (r *SQLiteFileRepository) Save(ctx context.Context, record *model.FileRecord) error {
	id := uuid.NewString()
	createdAt := time.Now().UTC().Truncate(time.Millisecond)

	var originalName sql.NullString
	if record.OriginalName != "" {
		originalName = sql.NullString{String: record.OriginalName, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO files (id, unique_name, original_name, content_type, size, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, record.UniqueName, originalName, record.ContentType, record.Size, record.Payload,
		createdAt.UnixMilli(),
	)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return fmt.Errorf("%w: unique_name %s", ErrConflict, record.UniqueName)
		}
		return fmt.Errorf("сохранение файла %s: %w", record.UniqueName, err)
	}

	record.ID = id
	record.CreatedAt = createdAt
	return nil
}

// FindByUniqueName возвращает запись по unique_name.
func (r *SQLiteFileRepository) FindByUniqueName(ctx context.Context, uniqueName string) (*model.FileRecord, error) {
	var (
		rec          model.FileRecord
		originalName sql.NullString
		createdAtMS  int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, unique_name, original_name, content_type, size, payload, created_at
		FROM files
		WHERE unique_name = ?`,
		uniqueName,
	).Scan(&rec.ID, &rec.UniqueName, &originalName, &rec.ContentType, &rec.Size, &rec.Payload, &createdAtMS)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение файла %s: %w", uniqueName, err)
	}

	rec.OriginalName = originalName.String
	rec.CreatedAt = time.UnixMilli(createdAtMS).UTC()
	if rec.Payload == nil {
		rec.Payload = []byte{}
	}
	return &rec, nil
}

// ExistsByUniqueName проверяет наличие записи с указанным unique_name.
func (r *SQLiteFileRepository) ExistsByUniqueName(ctx context.Context, uniqueName string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM files WHERE unique_name = ? LIMIT 1`,
		uniqueName,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("проверка имени %s: %w", uniqueName, err)
	}
	return true, nil
}

// isSQLiteUniqueViolation распознаёт нарушение UNIQUE по тексту ошибки драйвера.
func isSQLiteUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed: files.unique_name")
}
