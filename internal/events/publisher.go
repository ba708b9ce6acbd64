// Package events раздает решения по GMUD и входящие вебхуки ClickUp через Redis pub/sub.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/clickup-gmud/internal/domain"
	"github.com/xela07ax/clickup-gmud/internal/infra"
)

// DecisionEvent уходит в канал gmud:decisions.
type DecisionEvent struct {
	TaskID    string         `json:"task_id"`
	Outcome   domain.Outcome `json:"outcome"`
	Status    string         `json:"status"`
	Polls     int            `json:"polls"`
	ElapsedMs int64          `json:"elapsed_ms"`
	TraceID   string         `json:"trace_id,omitempty"`
	At        time.Time      `json:"at"`
}

func NewDecisionEvent(d domain.Decision, traceID string) DecisionEvent {
	return DecisionEvent{
		TaskID:    d.TicketID,
		Outcome:   d.Outcome,
		Status:    d.Status,
		Polls:     d.Polls,
		ElapsedMs: d.Elapsed.Milliseconds(),
		TraceID:   traceID,
		At:        time.Now().UTC(),
	}
}

type Publisher interface {
	PublishDecision(ctx context.Context, ev DecisionEvent) error
	PublishWebhook(ctx context.Context, payload []byte) error
}

// Nop: Redis не настроен.
type Nop struct{}

func (Nop) PublishDecision(context.Context, DecisionEvent) error { return nil }
func (Nop) PublishWebhook(context.Context, []byte) error         { return nil }

type RedisPublisher struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewRedisPublisher(rdb *redis.Client, logger *zap.Logger) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, logger: logger.Named("events")}
}

// PublishDecision шлет событие в общий канал и в канал конкретной задачи.
func (p *RedisPublisher) PublishDecision(ctx context.Context, ev DecisionEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("events: encode decision: %w", err)
	}

	pipe := p.rdb.Pipeline()
	pipe.Publish(ctx, infra.RedisChanDecisions, payload)
	pipe.Publish(ctx, infra.TaskChannel(ev.TaskID), payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("events: publish decision for %s: %w", ev.TaskID, err)
	}

	p.logger.Debug("decision published", zap.String("task_id", ev.TaskID), zap.String("outcome", string(ev.Outcome)))
	return nil
}

func (p *RedisPublisher) PublishWebhook(ctx context.Context, payload []byte) error {
	if err := p.rdb.Publish(ctx, infra.RedisChanWebhookClickUp, payload).Err(); err != nil {
		return fmt.Errorf("events: publish webhook: %w", err)
	}
	return nil
}
