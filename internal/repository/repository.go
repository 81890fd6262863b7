// Пакет repository — слой доступа к хранилищу записей файлов.
// PostgreSQL — чистый SQL через pgx, SQLite — database/sql + modernc.org/sqlite.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bigkaa/goartstore/file-service/internal/domain/model"
)

// Ошибки слоя репозиториев.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("запись не найдена")
	// ErrConflict — конфликт уникальности (unique_name уже занят).
	ErrConflict = errors.New("конфликт — запись уже существует")
)

// FileRepository — хранилище записей файлов.
// Записи только добавляются: обновления и удаления не поддерживаются.
type FileRepository interface {
	// Save сохраняет запись и заполняет ID и CreatedAt.
	// Возвращает ErrConflict, если unique_name уже занят.
	Save(ctx context.Context, record *model.FileRecord) error
	// FindByUniqueName возвращает запись или ErrNotFound.
	FindByUniqueName(ctx context.Context, uniqueName string) (*model.FileRecord, error)
	// ExistsByUniqueName проверяет, занят ли unique_name.
	ExistsByUniqueName(ctx context.Context, uniqueName string) (bool, error)
}

// DBTX — интерфейс для выполнения SQL-запросов.
// Реализуется как *pgxpool.Pool, так и pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// isUniqueViolation проверяет, является ли ошибка нарушением уникальности PostgreSQL.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
