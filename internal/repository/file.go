// file.go — репозиторий записей файлов в PostgreSQL.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/goartstore/file-service/internal/domain/model"
)

// PostgresFileRepository — реализация FileRepository для PostgreSQL.
type PostgresFileRepository struct {
	db DBTX
}

// NewFileRepository создаёт репозиторий записей файлов поверх pgx.
func NewFileRepository(db DBTX) *PostgresFileRepository {
	return &PostgresFileRepository{db: db}
}

// Save вставляет запись одним INSERT: запись становится видимой целиком или не появляется вовсе.
func (r *PostgresFileRepository) Save(ctx context.Context, record *model.FileRecord) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO files (unique_name, original_name, content_type, size, payload)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5)
		RETURNING id::text, created_at`,
		record.UniqueName, record.OriginalName, record.ContentType, record.Size, record.Payload,
	).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: unique_name %s", ErrConflict, record.UniqueName)
		}
		return fmt.Errorf("сохранение файла %s: %w", record.UniqueName, err)
	}
	return nil
}

// FindByUniqueName возвращает запись по unique_name.
func (r *PostgresFileRepository) FindByUniqueName(ctx context.Context, uniqueName string) (*model.FileRecord, error) {
	var rec model.FileRecord
	err := r.db.QueryRow(ctx, `
		SELECT id::text, unique_name, COALESCE(original_name, ''), content_type, size, payload, created_at
		FROM files
		WHERE unique_name = $1`,
		uniqueName,
	).Scan(
		&rec.ID, &rec.UniqueName, &rec.OriginalName, &rec.ContentType,
		&rec.Size, &rec.Payload, &rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение файла %s: %w", uniqueName, err)
	}
	return &rec, nil
}

// ExistsByUniqueName проверяет наличие записи с указанным unique_name.
func (r *PostgresFileRepository) ExistsByUniqueName(ctx context.Context, uniqueName string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM files WHERE unique_name = $1)`,
		uniqueName,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("проверка имени %s: %w", uniqueName, err)
	}
	return exists, nil
}
