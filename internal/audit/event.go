package audit

import (
	"time"

	"github.com/google/uuid"
)

// Kind — тип события жизненного цикла GMUD.
type Kind string

const (
	KindCreated       Kind = "gmud.created"
	KindSkipped       Kind = "gmud.skipped"
	KindDecision      Kind = "gmud.decision"
	KindStatusUpdated Kind = "gmud.status_updated"
)

type Event struct {
	ID      string `json:"id"`       // UUID события
	TraceID string `json:"trace_id"` // Сквозной ID запроса, если есть
	Kind    Kind   `json:"kind"`
	TaskID  string `json:"task_id"`

	// Контекст деплоя
	Environment string `json:"environment,omitempty"`
	House       string `json:"house,omitempty"`
	Actor       string `json:"actor,omitempty"`

	// Результат
	Status     string         `json:"status,omitempty"`  // Метка в ClickUp
	Outcome    string         `json:"outcome,omitempty"` // APPROVED / REJECTED / TIMED_OUT / SKIPPED
	Payload    map[string]any `json:"payload,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
	DurationMs int64          `json:"duration_ms"`
	Error      string         `json:"error,omitempty"`
}

func NewEvent(kind Kind, taskID string) Event {
	return Event{
		ID:        uuid.NewString(),
		Kind:      kind,
		TaskID:    taskID,
		Timestamp: time.Now().UTC(),
	}
}
