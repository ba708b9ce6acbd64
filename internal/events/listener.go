package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ListenDecisions держит живучую подписку на канал решений: переподключается
// при обрыве, битые сообщения пропускает. Возвращается только по отмене ctx.
func ListenDecisions(
	ctx context.Context,
	rdb *redis.Client,
	logger *zap.Logger,
	channel string,
	onDecision func(ev DecisionEvent),
) {
	for {
		pubsub := rdb.Subscribe(ctx, channel)

		if _, err := pubsub.Receive(ctx); err != nil {
			_ = pubsub.Close()
			if ctx.Err() != nil {
				return
			}
			logger.Error("failed to subscribe", zap.String("chan", channel), zap.Error(err))
			if !sleepCtx(ctx, 5*time.Second) {
				return
			}
			continue
		}

		ch := pubsub.Channel()

	loop:
		for {
			select {
			case <-ctx.Done():
				_ = pubsub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break loop // Канал закрыт, идем на переподключение
				}

				ev, err := DecodeDecision([]byte(msg.Payload))
				if err != nil {
					logger.Error("invalid decision payload", zap.String("payload", msg.Payload), zap.Error(err))
					continue
				}
				onDecision(ev)
			}
		}

		_ = pubsub.Close()
		if !sleepCtx(ctx, time.Second) {
			return
		}
	}
}

func DecodeDecision(raw []byte) (DecisionEvent, error) {
	var ev DecisionEvent
	err := json.Unmarshal(raw, &ev)
	return ev, err
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
