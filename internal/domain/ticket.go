package domain

import "time"

// Ticket — проекция задачи ClickUp. Источник правды всегда внешний сервис,
// локально мы ничего не кэшируем.
type Ticket struct {
	ID          string     `json:"taskId"`
	Name        string     `json:"name"`
	Status      string     `json:"status"`
	URL         string     `json:"url"`
	Assignees   []Assignee `json:"assignees,omitempty"`
	DateCreated time.Time  `json:"dateCreated,omitzero"`
	DateUpdated time.Time  `json:"dateUpdated,omitzero"`
}

type Assignee struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// ListField описывает кастомное поле списка ClickUp.
type ListField struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	Required   bool   `json:"required"`
	DateCreate string `json:"date_created,omitempty"`
}
