package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Traffic: сколько GMUD создано (и сколько пропущено для не-prod)
	Created *prometheus.CounterVec

	// Итоги ожидания: APPROVED / REJECTED / TIMED_OUT / SKIPPED
	Decisions *prometheus.CounterVec

	// Polling: результат каждого опроса статуса (match, pending, error)
	StatusPolls *prometheus.CounterVec

	// Latency: сколько человек думал над GMUD
	WaitDuration *prometheus.HistogramVec

	// Errors: ошибки ClickUp по операциям
	ClickUpErrors *prometheus.CounterVec

	// Уведомления в чат (sent / failed / skipped)
	Notifications *prometheus.CounterVec

	// Saturation: сколько ожиданий висит прямо сейчас
	ActiveWaits prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - Если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		Created: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "gmud_created_total",
			Help: "Total number of GMUD tickets created or skipped.",
		}, []string{"environment", "result"}), // result: created, skipped, failed

		Decisions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "gmud_decisions_total",
			Help: "Total number of resolved approval waits by outcome.",
		}, []string{"outcome"}),

		StatusPolls: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "gmud_status_polls_total",
			Help: "Status reads performed by the approval wait loop.",
		}, []string{"result"}),

		WaitDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gmud_wait_duration_seconds",
			Help:    "Time from wait start to decision.",
			Buckets: []float64{10, 30, 60, 120, 300, 600, 1200, 1800, 3600, 7200},
		}, []string{"outcome"}),

		ClickUpErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "gmud_clickup_errors_total",
			Help: "ClickUp API failures by operation.",
		}, []string{"op"}),

		Notifications: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "gmud_notifications_total",
			Help: "Chat notifications by delivery result.",
		}, []string{"result"}),

		ActiveWaits: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "gmud_active_waits",
			Help: "Approval waits currently in progress.",
		}),
	}
}
