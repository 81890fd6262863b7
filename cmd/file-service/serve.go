package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/bigkaa/goartstore/file-service/internal/api/handlers"
	"github.com/bigkaa/goartstore/file-service/internal/api/middleware"
	"github.com/bigkaa/goartstore/file-service/internal/api/openapi"
	"github.com/bigkaa/goartstore/file-service/internal/blob"
	"github.com/bigkaa/goartstore/file-service/internal/config"
	"github.com/bigkaa/goartstore/file-service/internal/database"
	"github.com/bigkaa/goartstore/file-service/internal/repository"
	"github.com/bigkaa/goartstore/file-service/internal/server"
	"github.com/bigkaa/goartstore/file-service/internal/service"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Запустить HTTP-сервер",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

// storage — выбранное хранилище записей и связанные с ним ресурсы.
type storage struct {
	repo    repository.FileRepository
	checker *database.ReadinessChecker
	closers []func()
}

func (s *storage) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func serve(ctx context.Context) error {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("загрузка конфигурации: %w", err)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("File Service запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("db_driver", cfg.DBDriver),
	)

	// 3. Хранилище записей (PostgreSQL или SQLite)
	st, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	// 4. Кодек payload (zstd)
	codec, err := blob.NewCodec(cfg.BlobMaxDecodedSize)
	if err != nil {
		return err
	}
	defer codec.Close()

	// 5. Сервисный слой: выдача имён, кэш, файловый сервис
	allocator := service.NewNameAllocator(st.repo, logger)
	var cache *service.CacheService
	if cfg.CacheSize > 0 {
		cache = service.NewCacheService(cfg.CacheSize, cfg.CacheTTL, cfg.CacheMaxPayload)
	}
	filesSvc := service.NewFileService(st.repo, allocator, codec, cache, service.FileServiceOptions{
		BaseURL:         cfg.BaseURL,
		MaxUploadSize:   cfg.MaxUploadSize,
		ConflictRetries: cfg.UploadConflictRetries,
	}, logger)

	// 6. OpenAPI-контракт
	doc, err := openapi.Load(ctx)
	if err != nil {
		return err
	}

	// 7. Handlers
	apiHandler := handlers.NewAPIHandler(
		handlers.NewFilesHandler(filesSvc, cfg.MaxUploadSize, logger),
		handlers.NewHealthHandler(st.checker, cfg.DBDriver),
		doc.JSON(),
		logger,
	)

	// 8. HTTP-сервер: метрики, логирование запросов
	srv := server.New(cfg, logger, apiHandler, apiHandler.ParamError,
		middleware.MetricsMiddleware(),
		middleware.RequestLogger(logger),
	)

	// 9. Запуск (блокирующий вызов с graceful shutdown)
	if err := srv.Run(ctx); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		return err
	}

	logger.Info("File Service остановлен")
	return nil
}

// openStorage открывает хранилище по FS_DB_DRIVER.
// Для PostgreSQL применяются миграции и запускается topologymetrics.
func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*storage, error) {
	st := &storage{}

	switch cfg.DBDriver {
	case config.DriverSQLite:
		db, err := database.OpenSQLite(ctx, cfg.SQLiteDSN, logger)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, func() { _ = db.Close() })
		st.repo = repository.NewSQLiteFileRepository(db)
		st.checker = database.NewSQLiteReadinessChecker(db)
		return st, nil

	case config.DriverPostgres:
		logger.Info("Применение миграций БД...")
		if err := database.Migrate(cfg, logger); err != nil {
			return nil, fmt.Errorf("миграции БД: %w", err)
		}

		pool, err := database.Connect(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, pool.Close)
		st.repo = repository.NewFileRepository(pool)
		st.checker = database.NewReadinessChecker(pool)

		// Проверка здоровья через существующий пул соединений.
		pgDB := stdlib.OpenDBFromPool(pool)
		st.closers = append(st.closers, func() { _ = pgDB.Close() })

		dephealthSvc, err := service.NewDephealthService(
			"file-service",
			cfg.DephealthGroup,
			pgDB,
			cfg.DatabaseURL("postgres"),
			cfg.DephealthCheckInterval,
			logger,
		)
		if err != nil {
			logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
				slog.String("error", err.Error()),
			)
			return st, nil
		}
		if err := dephealthSvc.Start(ctx); err != nil {
			logger.Warn("Ошибка запуска topologymetrics", slog.String("error", err.Error()))
			return st, nil
		}
		st.closers = append(st.closers, dephealthSvc.Stop)
		return st, nil

	default:
		return nil, fmt.Errorf("неизвестный драйвер хранилища: %s", cfg.DBDriver)
	}
}
