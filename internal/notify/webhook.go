package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/xela07ax/clickup-gmud/internal/metrics"
)

const maxRetryAfter = 30 * time.Second

// ThrottleError: чат ответил 429, RetryAfter берется из одноименного заголовка.
type ThrottleError struct {
	RetryAfter time.Duration
}

func (e *ThrottleError) Error() string {
	return fmt.Sprintf("webhook throttled, retry after %s", e.RetryAfter)
}

// StatusError описывает неуспешный HTTP-ответ вебхука.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook responded %d: %s", e.StatusCode, e.Body)
}

type payload struct {
	Content string `json:"content"`
}

// Webhook шлет {"content": "..."} POST-запросом. Повторы через retry-go,
// поверх них предохранитель: лежащий чат не тормозит каждый вызов.
type Webhook struct {
	url      string
	client   *http.Client
	cb       *gobreaker.CircuitBreaker
	attempts uint
	backoff  time.Duration
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

type Option func(*Webhook)

func WithHTTPClient(c *http.Client) Option {
	return func(w *Webhook) { w.client = c }
}

// WithTimeout задает таймаут одной попытки доставки.
func WithTimeout(d time.Duration) Option {
	return func(w *Webhook) {
		if d > 0 {
			w.client.Timeout = d
		}
	}
}

func WithAttempts(n uint) Option {
	return func(w *Webhook) {
		if n > 0 {
			w.attempts = n
		}
	}
}

// WithBackoff задает базовую задержку между повторами (удваивается на каждой попытке).
func WithBackoff(d time.Duration) Option {
	return func(w *Webhook) { w.backoff = d }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Webhook) { w.metrics = m }
}

func NewWebhook(url string, logger *zap.Logger, opts ...Option) *Webhook {
	w := &Webhook{
		url:      url,
		client:   &http.Client{Timeout: 10 * time.Second},
		attempts: 3,
		logger:   logger.Named("notify"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.metrics == nil {
		w.metrics = metrics.NewMetrics(nil)
	}

	w.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "gmud-webhook",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	return w
}

// Notify никогда не паникует и не возвращает ошибку: только лог и метрика.
func (w *Webhook) Notify(ctx context.Context, message string) {
	if w.url == "" {
		w.metrics.Notifications.WithLabelValues("skipped").Inc()
		w.logger.Debug("notification skipped: webhook url not configured")
		return
	}

	defer func() {
		if r := recover(); r != nil {
			w.metrics.Notifications.WithLabelValues("failed").Inc()
			w.logger.Error("notification panicked", zap.Any("panic", r))
		}
	}()

	_, err := w.cb.Execute(func() (interface{}, error) {
		return nil, w.deliver(ctx, message)
	})
	if err != nil {
		w.metrics.Notifications.WithLabelValues("failed").Inc()
		w.logger.Warn("notification not delivered",
			zap.Bool("breaker_open", errors.Is(err, gobreaker.ErrOpenState)),
			zap.Error(err))
		return
	}

	w.metrics.Notifications.WithLabelValues("sent").Inc()
	w.logger.Debug("notification sent")
}

func (w *Webhook) deliver(ctx context.Context, message string) error {
	body, err := json.Marshal(payload{Content: message})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	r := retry.New(
		retry.Context(ctx),
		retry.Attempts(w.attempts),
		retry.DelayType(func(n uint, err error, config retry.DelayContext) time.Duration {
			var tErr *ThrottleError
			if errors.As(err, &tErr) {
				return tErr.RetryAfter
			}
			if w.backoff > 0 {
				return w.backoff << n
			}
			return retry.BackOffDelay(n, err, config)
		}),
	)

	return r.Do(func() error {
		return w.post(ctx, body)
	})
}

func (w *Webhook) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return &ThrottleError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	return &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
}

func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return time.Second
	}
	d := time.Duration(secs) * time.Second
	if d > maxRetryAfter {
		return maxRetryAfter
	}
	return d
}
