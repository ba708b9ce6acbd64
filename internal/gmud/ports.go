package gmud

//go:generate mockgen -source=ports.go -destination=mocks/mock_ports.go -package=mocks

import (
	"context"

	"github.com/xela07ax/clickup-gmud/internal/domain"
)

// TicketAPI описывает то, что ядру нужно от таск-трекера. Реализуется clickup.Client.
type TicketAPI interface {
	CreateTask(ctx context.Context, listID, name, status string) (*domain.Ticket, error)
	GetTask(ctx context.Context, taskID string) (*domain.Ticket, error)
	GetStatus(ctx context.Context, taskID string) (string, error)
	UpdateStatus(ctx context.Context, taskID, status string) (*domain.Ticket, error)
	AddComment(ctx context.Context, taskID, text string) error
	ListFields(ctx context.Context, listID string) ([]domain.ListField, error)
}

// Notifier повторяет notify.Notifier: ошибок наружу нет.
type Notifier interface {
	Notify(ctx context.Context, message string)
}
