package clickup

import (
	"errors"
	"fmt"
)

// ErrMissingTaskID: API ответил 2xx на создание, но без id задачи.
var ErrMissingTaskID = errors.New("response has no task id")

// APIError: не-2xx ответ ClickUp (или 2xx без ожидаемых данных).
// Клиент сам ничего не ретраит: решает вызывающий.
type APIError struct {
	Op         string // create_task, get_task, update_task, add_comment, list_fields
	StatusCode int
	Body       string
	Cause      error
}

func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("clickup: %s: HTTP %d: %v: %s", e.Op, e.StatusCode, e.Cause, e.Body)
	}
	return fmt.Sprintf("clickup: %s: HTTP %d %s", e.Op, e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error { return e.Cause }

// StatusCode достает HTTP-код из цепочки ошибок (0, если это не APIError).
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
