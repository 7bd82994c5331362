// sweeper.go — фоновая очистка истёкших записей.
// Запись считается истёкшей, когда с момента загрузки прошло больше
// срока хранения. Очистка удаляет блоб с диска и запись из снапшота;
// выполняется при старте сервиса и далее по тикеру.
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/arturkryukov/pindrop/internal/api/middleware"
	"github.com/arturkryukov/pindrop/internal/storage/blobstore"
	"github.com/arturkryukov/pindrop/internal/storage/snapshot"
)

// Prometheus-метрики очистки.
var (
	sweepRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pd_sweep_runs_total",
		Help: "Общее количество запусков очистки истёкших записей",
	})
	sweepRemovedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pd_sweep_removed_total",
		Help: "Общее количество удалённых очисткой записей",
	})
	sweepDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pd_sweep_duration_seconds",
		Help:    "Длительность одного прохода очистки в секундах",
		Buckets: prometheus.DefBuckets,
	})
)

// SweepResult — итог одного прохода очистки.
type SweepResult struct {
	// Removed — количество удалённых записей
	Removed int `json:"removed"`
	// Errors — количество блобов, которые не удалось удалить с диска
	Errors int `json:"errors"`
	// Duration — длительность прохода
	Duration time.Duration `json:"-"`
}

// Sweeper — сервис очистки истёкших записей.
type Sweeper struct {
	store     *snapshot.Store
	blobs     *blobstore.BlobStore
	cache     *CacheService
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewSweeper создаёт сервис очистки.
// retention — срок хранения записи с момента загрузки.
// interval — период между проходами; 0 отключает фоновый цикл
// (остаётся только очистка при старте и ручной запуск).
func NewSweeper(
	store *snapshot.Store,
	blobs *blobstore.BlobStore,
	cache *CacheService,
	retention time.Duration,
	interval time.Duration,
	logger *slog.Logger,
) *Sweeper {
	return &Sweeper{
		store:     store,
		blobs:     blobs,
		cache:     cache,
		retention: retention,
		interval:  interval,
		logger:    logger.With(slog.String("component", "sweeper")),
	}
}

// Start запускает фоновый цикл очистки. Первый проход выполняется
// сразу, далее — по тикеру. Повторный вызов без Stop игнорируется.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.logger.Warn("Очистка уже запущена")
		return
	}
	if s.interval <= 0 {
		s.logger.Info("Фоновая очистка отключена (interval=0)")
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	go s.run(ctx)

	s.logger.Info("Очистка запущена",
		slog.Duration("interval", s.interval),
		slog.Duration("retention", s.retention),
	)
}

// Stop останавливает фоновый цикл очистки.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return
	}
	s.cancel()
	s.cancel = nil
	s.logger.Info("Очистка остановлена")
}

// run — основной цикл очистки.
func (s *Sweeper) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunOnce(); err != nil {
				s.logger.Error("Ошибка прохода очистки", slog.String("error", err.Error()))
			}
		}
	}
}

// RunOnce выполняет один проход очистки и возвращает итог.
//
// Весь проход идёт внутри одной критической секции снапшота:
// конкурентные регистрации и другой проход очистки не видят
// промежуточного состояния. Ошибки удаления отдельных блобов не
// прерывают проход — запись удаляется из таблицы в любом случае,
// осиротевший блоб считается в Errors. Ошибкой прохода является
// только сбой самого снапшота.
func (s *Sweeper) RunOnce() (*SweepResult, error) {
	start := time.Now()
	result := &SweepResult{}
	cutoffNow := time.Now().UTC()

	err := s.store.Update(func(t snapshot.Table) (bool, error) {
		for code, rec := range t {
			if !rec.IsExpired(cutoffNow, s.retention) {
				continue
			}

			if delErr := s.blobs.Delete(rec.BlobPath); delErr != nil {
				result.Errors++
				s.logger.Error("Ошибка удаления блоба истёкшей записи",
					slog.String("pin", code),
					slog.String("blob_path", rec.BlobPath),
					slog.String("error", delErr.Error()),
				)
			}

			delete(t, code)
			s.cache.Delete(code)
			result.Removed++

			s.logger.Info("Истёкшая запись удалена",
				slog.String("pin", code),
				slog.String("filename", rec.Filename),
				slog.Time("uploaded_at", rec.UploadedAt),
			)
		}
		return result.Removed > 0, nil
	})
	if err != nil {
		return nil, err
	}

	result.Duration = time.Since(start)

	sweepRunsTotal.Inc()
	sweepRemovedTotal.Add(float64(result.Removed))
	sweepDurationSeconds.Observe(result.Duration.Seconds())
	middleware.TransfersActive.Sub(float64(result.Removed))

	if result.Removed > 0 || result.Errors > 0 {
		s.logger.Info("Проход очистки завершён",
			slog.Int("removed", result.Removed),
			slog.Int("errors", result.Errors),
			slog.Duration("duration", result.Duration),
		)
	} else {
		s.logger.Debug("Проход очистки завершён, истёкших записей нет",
			slog.Duration("duration", result.Duration),
		)
	}

	return result, nil
}
