package infra

import "fmt"

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "gmud"
)

// Каналы Pub/Sub (события)
const (
	// RedisChanDecisions — финальные решения по GMUD (APPROVED/REJECTED/TIMED_OUT/SKIPPED).
	RedisChanDecisions = RedisNamespace + ":decisions"
	// RedisChanWebhookClickUp: сырые события вебхука ClickUp, для внешних подписчиков.
	RedisChanWebhookClickUp = RedisNamespace + ":webhook:clickup"
)

// TaskChannel: персональный канал задачи. На него можно подписаться из другого джоба.
func TaskChannel(taskID string) string {
	return fmt.Sprintf("%s:task:%s", RedisNamespace, taskID)
}
