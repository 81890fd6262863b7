// Пакет config — загрузка и валидация конфигурации File Service
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Поддерживаемые драйверы хранилища записей.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config содержит все параметры конфигурации File Service.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера (по умолчанию 8040)
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- HTTP Server Timeouts ---

	// Таймаут чтения HTTP-сервера (по умолчанию 30s)
	HTTPReadTimeout time.Duration
	// Таймаут записи HTTP-сервера (по умолчанию 60s)
	HTTPWriteTimeout time.Duration
	// Таймаут простоя HTTP-сервера (по умолчанию 120s)
	HTTPIdleTimeout time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown (по умолчанию 5s)
	ShutdownTimeout time.Duration

	// --- Файлы ---

	// Базовый URL для ссылок download/view в ответе загрузки
	BaseURL string
	// Максимальный размер загружаемого файла в байтах (по умолчанию 10 MiB)
	MaxUploadSize int64
	// Лимит раскодированного payload при чтении (по умолчанию 1 GiB).
	// Не зависит от MaxUploadSize: сохранённые файлы читаются и после его уменьшения.
	BlobMaxDecodedSize int64
	// Количество повторов allocate+insert при конфликте уникальности (0 — без повторов)
	UploadConflictRetries int

	// --- Хранилище записей ---

	// Драйвер хранилища: postgres или sqlite
	DBDriver string
	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL (по умолчанию 5432)
	DBPort int
	// Имя базы данных
	DBName string
	// Пользователь PostgreSQL
	DBUser string
	// Пароль PostgreSQL
	DBPassword string
	// Режим SSL (disable, require, verify-ca, verify-full)
	DBSSLMode string
	// DSN SQLite (используется при DBDriver=sqlite)
	SQLiteDSN string

	// --- Кэш ---

	// Максимальное количество записей в LRU-кэше
	CacheSize int
	// Время жизни записи в кэше
	CacheTTL time.Duration
	// Записи с payload больше этого размера не кэшируются
	CacheMaxPayload int64

	// --- topologymetrics ---

	// Имя группы в метриках зависимостей
	DephealthGroup string
	// Интервал проверки зависимостей
	DephealthCheckInterval time.Duration
}

// Load загружает конфигурацию из переменных окружения.
// Возвращает ошибку, если обязательные переменные не заданы
// или значения некорректны.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// FS_PORT — порт HTTP-сервера (по умолчанию 8040)
	cfg.Port, err = getEnvInt("FS_PORT", 8040)
	if err != nil {
		return nil, fmt.Errorf("FS_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("FS_PORT: порт %d вне диапазона 1-65535", cfg.Port)
	}

	// FS_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("FS_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("FS_LOG_LEVEL: %w", err)
	}

	// FS_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("FS_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("FS_LOG_FORMAT: недопустимый формат %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- HTTP Server Timeouts ---

	cfg.HTTPReadTimeout, err = getEnvDuration("FS_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FS_HTTP_READ_TIMEOUT: %w", err)
	}
	cfg.HTTPWriteTimeout, err = getEnvDuration("FS_HTTP_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FS_HTTP_WRITE_TIMEOUT: %w", err)
	}
	cfg.HTTPIdleTimeout, err = getEnvDuration("FS_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FS_HTTP_IDLE_TIMEOUT: %w", err)
	}

	// --- Graceful shutdown ---

	cfg.ShutdownTimeout, err = getEnvDuration("FS_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FS_SHUTDOWN_TIMEOUT: %w", err)
	}

	// --- Файлы ---

	// FS_BASE_URL — базовый URL сервиса (без завершающего /)
	cfg.BaseURL = strings.TrimRight(getEnvDefault("FS_BASE_URL", "http://localhost:8040"), "/")
	if u, parseErr := url.Parse(cfg.BaseURL); parseErr != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("FS_BASE_URL: некорректный URL %q", cfg.BaseURL)
	}

	// FS_MAX_UPLOAD_SIZE — максимальный размер файла (10MiB, 1048576, 512KB)
	cfg.MaxUploadSize, err = getEnvBytes("FS_MAX_UPLOAD_SIZE", 10<<20)
	if err != nil {
		return nil, fmt.Errorf("FS_MAX_UPLOAD_SIZE: %w", err)
	}
	if cfg.MaxUploadSize <= 0 {
		return nil, fmt.Errorf("FS_MAX_UPLOAD_SIZE: значение должно быть > 0")
	}

	// FS_BLOB_MAX_DECODED_SIZE — лимит декодера payload, не меньше FS_MAX_UPLOAD_SIZE
	cfg.BlobMaxDecodedSize, err = getEnvBytes("FS_BLOB_MAX_DECODED_SIZE", 1<<30)
	if err != nil {
		return nil, fmt.Errorf("FS_BLOB_MAX_DECODED_SIZE: %w", err)
	}
	if cfg.BlobMaxDecodedSize < cfg.MaxUploadSize {
		return nil, fmt.Errorf("FS_BLOB_MAX_DECODED_SIZE: значение %d меньше FS_MAX_UPLOAD_SIZE %d",
			cfg.BlobMaxDecodedSize, cfg.MaxUploadSize)
	}

	cfg.UploadConflictRetries, err = getEnvInt("FS_UPLOAD_CONFLICT_RETRIES", 0)
	if err != nil {
		return nil, fmt.Errorf("FS_UPLOAD_CONFLICT_RETRIES: %w", err)
	}
	if cfg.UploadConflictRetries < 0 || cfg.UploadConflictRetries > 10 {
		return nil, fmt.Errorf("FS_UPLOAD_CONFLICT_RETRIES: значение %d вне диапазона 0-10", cfg.UploadConflictRetries)
	}

	// --- Хранилище записей ---

	cfg.DBDriver = strings.ToLower(getEnvDefault("FS_DB_DRIVER", DriverPostgres))
	switch cfg.DBDriver {
	case DriverPostgres:
		if err := loadPostgres(cfg); err != nil {
			return nil, err
		}
	case DriverSQLite:
		cfg.SQLiteDSN = getEnvDefault("FS_SQLITE_DSN",
			"file:file-service.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	default:
		return nil, fmt.Errorf("FS_DB_DRIVER: недопустимый драйвер %q, допустимые: postgres, sqlite", cfg.DBDriver)
	}

	// --- Кэш ---

	cfg.CacheSize, err = getEnvInt("FS_CACHE_SIZE", 256)
	if err != nil {
		return nil, fmt.Errorf("FS_CACHE_SIZE: %w", err)
	}
	if cfg.CacheSize < 0 {
		return nil, fmt.Errorf("FS_CACHE_SIZE: значение должно быть >= 0")
	}
	cfg.CacheTTL, err = getEnvDuration("FS_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("FS_CACHE_TTL: %w", err)
	}
	cfg.CacheMaxPayload, err = getEnvBytes("FS_CACHE_MAX_PAYLOAD", 1<<20)
	if err != nil {
		return nil, fmt.Errorf("FS_CACHE_MAX_PAYLOAD: %w", err)
	}

	// --- topologymetrics ---

	cfg.DephealthGroup = getEnvDefault("FS_DEPHEALTH_GROUP", "file-service")
	cfg.DephealthCheckInterval, err = getEnvDuration("FS_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("FS_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	return cfg, nil
}

// loadPostgres загружает параметры подключения к PostgreSQL.
func loadPostgres(cfg *Config) error {
	var err error

	if cfg.DBHost, err = getEnvRequired("FS_DB_HOST"); err != nil {
		return err
	}
	if cfg.DBPort, err = getEnvInt("FS_DB_PORT", 5432); err != nil {
		return fmt.Errorf("FS_DB_PORT: %w", err)
	}
	if cfg.DBName, err = getEnvRequired("FS_DB_NAME"); err != nil {
		return err
	}
	if cfg.DBUser, err = getEnvRequired("FS_DB_USER"); err != nil {
		return err
	}
	if cfg.DBPassword, err = getEnvRequired("FS_DB_PASSWORD"); err != nil {
		return err
	}

	cfg.DBSSLMode = getEnvDefault("FS_DB_SSL_MODE", "disable")
	switch cfg.DBSSLMode {
	case "disable", "require", "verify-ca", "verify-full":
	default:
		return fmt.Errorf("FS_DB_SSL_MODE: недопустимый режим %q", cfg.DBSSLMode)
	}
	return nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL PostgreSQL с указанной схемой (postgres, pgx5).
func (c *Config) DatabaseURL(scheme string) string {
	u := url.URL{
		Scheme:   scheme,
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + c.DBSSLMode,
	}
	return u.String()
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvBytes возвращает размер в байтах из переменной окружения.
// Принимает как целые числа, так и значения с единицами (10MiB, 512KB).
func getEnvBytes(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := humanize.ParseBytes(val)
	if err != nil {
		return 0, fmt.Errorf("некорректный размер: %q (примеры: 1048576, 512KB, 10MiB)", val)
	}
	if n > uint64(1<<62) {
		return 0, fmt.Errorf("слишком большой размер: %q", val)
	}
	return int64(n), nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	if d <= 0 {
		return 0, fmt.Errorf("значение должно быть > 0")
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
