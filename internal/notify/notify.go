// Package notify доставляет текстовые уведомления в чат через входящий вебхук.
// Доставка best-effort: ни одна ошибка не выходит за пределы Notify.
package notify

import "context"

// Notifier — порт уведомлений. Ошибок не возвращает: сбой чата не должен
// менять исход GMUD.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// Nop используется, когда вебхук не настроен.
type Nop struct{}

func (Nop) Notify(context.Context, string) {}
