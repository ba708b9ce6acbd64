// Package approval реализует ожидание решения по GMUD: опрос статуса тикета
// до совпадения с меткой одобрения/отказа или до дедлайна.
package approval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xela07ax/clickup-gmud/internal/domain"
	"github.com/xela07ax/clickup-gmud/internal/metrics"
)

// StatusReader: единственное, что циклу нужно от таск-трекера.
type StatusReader interface {
	GetStatus(ctx context.Context, taskID string) (string, error)
}

// Options задаются в секундах/минутах на входе, здесь уже как Duration.
type Options struct {
	Timeout       time.Duration
	PollInterval  time.Duration
	ApprovedLabel string
	RejectedLabel string
}

// Validate: метки не пустые и различаются, интервалы положительные.
func (o Options) Validate() error {
	switch {
	case strings.TrimSpace(o.ApprovedLabel) == "":
		return domain.Required("approved_label")
	case strings.TrimSpace(o.RejectedLabel) == "":
		return domain.Required("rejected_label")
	case strings.EqualFold(strings.TrimSpace(o.ApprovedLabel), strings.TrimSpace(o.RejectedLabel)):
		return &domain.ConfigError{Field: "rejected_label", Reason: "must differ from approved_label"}
	case o.Timeout <= 0:
		return &domain.ConfigError{Field: "timeout", Reason: "must be positive"}
	case o.PollInterval <= 0:
		return &domain.ConfigError{Field: "poll_interval", Reason: "must be positive"}
	}
	return nil
}

type Waiter struct {
	reader  StatusReader
	clock   Clock
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewWaiter(reader StatusReader, clock Clock, m *metrics.Metrics, logger *zap.Logger) *Waiter {
	if clock == nil {
		clock = RealClock{}
	}
	if m == nil {
		m = metrics.NewMetrics(nil)
	}
	return &Waiter{
		reader:  reader,
		clock:   clock,
		metrics: m,
		logger:  logger.Named("approval"),
	}
}

// Wait считает абсолютный дедлайн от текущего момента и запускает цикл.
func (w *Waiter) Wait(ctx context.Context, taskID string, opts Options) (domain.Decision, error) {
	if taskID == "" {
		return domain.Decision{}, domain.Required("task_id")
	}
	if err := opts.Validate(); err != nil {
		return domain.Decision{}, err
	}

	return w.WaitUntil(ctx, domain.ApprovalRequest{
		TicketID:      taskID,
		Deadline:      w.clock.Now().Add(opts.Timeout),
		PollInterval:  opts.PollInterval,
		ApprovedLabel: opts.ApprovedLabel,
		RejectedLabel: opts.RejectedLabel,
	})
}

// WaitUntil реализует сам автомат PENDING -> APPROVED | REJECTED | TIMED_OUT.
//
// Совпадение возвращается сразу, без досыпания интервала. Ошибка чтения статуса
// не завершает цикл: логируем, считаем "еще PENDING" и опрашиваем дальше после
// обычной паузы. Ошибку возвращает только отмена ctx (сигнал процессу).
func (w *Waiter) WaitUntil(ctx context.Context, req domain.ApprovalRequest) (domain.Decision, error) {
	start := w.clock.Now()
	decision := domain.Decision{TicketID: req.TicketID, Outcome: domain.OutcomePending}

	w.metrics.ActiveWaits.Inc()
	defer w.metrics.ActiveWaits.Dec()

	log := w.logger.With(zap.String("task_id", req.TicketID))
	log.Info("waiting for gmud decision",
		zap.Time("deadline", req.Deadline),
		zap.Duration("poll_interval", req.PollInterval),
		zap.String("approved_label", req.ApprovedLabel),
		zap.String("rejected_label", req.RejectedLabel))

	finish := func(outcome domain.Outcome) domain.Decision {
		decision.Outcome = outcome
		decision.Elapsed = w.clock.Now().Sub(start)
		w.metrics.Decisions.WithLabelValues(string(outcome)).Inc()
		w.metrics.WaitDuration.WithLabelValues(string(outcome)).Observe(decision.Elapsed.Seconds())
		return decision
	}

	for w.clock.Now().Before(req.Deadline) {
		if err := ctx.Err(); err != nil {
			return decision, fmt.Errorf("approval: wait for %s interrupted: %w", req.TicketID, err)
		}

		// 1. Свежий статус, без кэша
		status, err := w.reader.GetStatus(ctx, req.TicketID)
		decision.Polls++

		switch {
		case err != nil:
			if ctx.Err() != nil {
				return decision, fmt.Errorf("approval: wait for %s interrupted: %w", req.TicketID, ctx.Err())
			}
			w.metrics.StatusPolls.WithLabelValues("error").Inc()
			log.Warn("status read failed, will retry", zap.Int("poll", decision.Polls), zap.Error(err))

		default:
			decision.Status = strings.ToUpper(strings.TrimSpace(status))

			// 2. Сопоставление меток без учета регистра
			switch outcome := req.Match(status); outcome {
			case domain.OutcomeApproved, domain.OutcomeRejected:
				w.metrics.StatusPolls.WithLabelValues("match").Inc()
				d := finish(outcome)
				log.Info("gmud decision received",
					zap.String("outcome", string(outcome)),
					zap.String("status", d.Status),
					zap.Int("polls", d.Polls),
					zap.Duration("elapsed", d.Elapsed))
				return d, nil
			default:
				w.metrics.StatusPolls.WithLabelValues("pending").Inc()
				log.Debug("gmud still pending", zap.String("status", decision.Status), zap.Int("poll", decision.Polls))
			}
		}

		// 3. Полный интервал до следующего опроса; прерывается только отменой процесса
		select {
		case <-ctx.Done():
			return decision, fmt.Errorf("approval: wait for %s interrupted: %w", req.TicketID, ctx.Err())
		case <-w.clock.After(req.PollInterval):
		}
	}

	d := finish(domain.OutcomeTimedOut)
	log.Warn("gmud approval timed out",
		zap.String("last_status", d.Status),
		zap.Int("polls", d.Polls),
		zap.Duration("elapsed", d.Elapsed))
	return d, nil
}
