// metrics.go — Prometheus HTTP метрики Pindrop.
// Регистрирует метрики: pd_http_requests_total, pd_http_request_duration_seconds.
// Бизнес-метрики (pd_transfers_active, pd_operations_total) экспортируются
// для обновления из сервисного слоя.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pd_http_requests_total",
			Help: "Общее количество HTTP-запросов к Pindrop",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pd_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к Pindrop в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Бизнес-метрики (экспортируются для обновления из сервисного слоя)
var (
	// TransfersActive — текущее количество активных трансферов (gauge).
	TransfersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pd_transfers_active",
			Help: "Текущее количество активных трансферов",
		},
	)

	// OperationsTotal — общее количество операций трансфера.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pd_operations_total",
			Help: "Общее количество операций трансфера",
		},
		[]string{"operation", "result"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
// Записывает количество запросов и длительность для каждого endpoint.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Нормализуем путь для лейблов метрик
			// (заменяем PIN на {pin} для предотвращения кардинальности)
			normalizedPath := normalizePath(r.URL.Path)

			wrapped := newMetricsResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(duration)
		})
	}
}

// metricsResponseWriter — обёртка для перехвата статус-кода.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (rw *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// normalizePath заменяет PIN-сегменты пути на {pin} для предотвращения
// взрывного роста кардинальности метрик.
// /api/v1/files/1234/download → /api/v1/files/{pin}/download
func normalizePath(path string) string {
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if isPinSegment(part) {
			parts[i] = "{pin}"
		}
	}
	return strings.Join(parts, "/")
}

// isPinSegment проверяет, является ли сегмент пути 4-значным PIN.
func isPinSegment(s string) bool {
	if len(s) != 4 {
		return false
	}
	for i := 0; i < 4; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
