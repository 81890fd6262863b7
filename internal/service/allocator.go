// allocator.go — выдача уникальных имён файлов.
//
// Кандидаты перебираются строго по возрастанию: base-1.ext, base-2.ext, …,
// base-100.ext. Первый свободный возвращается сразу. Если заняты все сто,
// используется base-<uuid>.ext без повторной проверки.
// Проверка и вставка не атомарны: гонку закрывает уникальный индекс хранилища.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/file-service/internal/slug"
)

// MaxAttempts — количество последовательных кандидатов до перехода на UUID.
const MaxAttempts = 100

// Prometheus-метрики выдачи имён.
var (
	allocationAttempts = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fs_name_allocation_attempts",
		Help:    "Количество проверок существования при выдаче уникального имени.",
		Buckets: []float64{1, 2, 3, 5, 10, 25, 50, 100},
	})
	allocationFallbackTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fs_name_allocation_fallback_total",
		Help: "Количество имён, выданных через UUID после исчерпания счётчика.",
	})
)

// NameChecker — проверка занятости имени в хранилище.
type NameChecker interface {
	ExistsByUniqueName(ctx context.Context, uniqueName string) (bool, error)
}

// NameAllocator выдаёт уникальные имена на основе исходного имени файла.
type NameAllocator struct {
	checker NameChecker
	newUUID func() string
	logger  *slog.Logger
}

// NewNameAllocator создаёт аллокатор имён.
func NewNameAllocator(checker NameChecker, logger *slog.Logger) *NameAllocator {
	return &NameAllocator{
		checker: checker,
		newUUID: uuid.NewString,
		logger:  logger.With(slog.String("component", "name_allocator")),
	}
}

// Allocate возвращает имя, не занятое на момент проверки.
// Ошибка проверки существования возвращается как ErrStorage.
func (a *NameAllocator) Allocate(ctx context.Context, originalName string) (string, error) {
	base, ext := slug.Normalize(originalName)

	for counter := 1; counter <= MaxAttempts; counter++ {
		candidate := base + "-" + strconv.Itoa(counter) + ext

		exists, err := a.checker.ExistsByUniqueName(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("%w: проверка имени %s: %v", ErrStorage, candidate, err)
		}
		if !exists {
			allocationAttempts.Observe(float64(counter))
			return candidate, nil
		}
	}

	allocationAttempts.Observe(MaxAttempts)
	allocationFallbackTotal.Inc()

	name := base + "-" + a.newUUID() + ext
	a.logger.Warn("Счётчик имён исчерпан, выдано имя с UUID",
		slog.String("base", base),
		slog.String("unique_name", name),
	)
	return name, nil
}
