package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrRejected — ревьюер перевел GMUD в статус отказа.
	ErrRejected = errors.New("gmud rejected")
	// ErrTimedOut — дедлайн истек без решения. Для пайплайна равносилен отказу,
	// но в логах и метриках отличается.
	ErrTimedOut = errors.New("timed out waiting for gmud approval")
)

// ConfigError — отсутствует или некорректен обязательный параметр. Фатальна сразу.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("configuration: %s is required", e.Field)
	}
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}

// Required: короткий конструктор для самого частого случая.
func Required(field string) error {
	return &ConfigError{Field: field}
}

// IsConfigError проверяет цепочку ошибок на ConfigError.
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}
