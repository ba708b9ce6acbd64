package domain

import (
	"strings"
	"time"
)

// Outcome — терминальное состояние ожидания решения по GMUD.
type Outcome string

const (
	OutcomePending  Outcome = "PENDING" // Начальное состояние, наружу не отдается
	OutcomeApproved Outcome = "APPROVED"
	OutcomeRejected Outcome = "REJECTED"
	OutcomeTimedOut Outcome = "TIMED_OUT"

	// OutcomeSkipped синтезируется точкой входа для непродуктивных окружений.
	// Цикл ожидания его никогда не возвращает.
	OutcomeSkipped Outcome = "SKIPPED"
)

// Approved сообщает, можно ли продолжать пайплайн.
func (o Outcome) Approved() bool {
	return o == OutcomeApproved || o == OutcomeSkipped
}

// Terminal проверяет правила конечного автомата: выйти можно только из PENDING.
func (o Outcome) Terminal() bool {
	return o != OutcomePending && o != ""
}

// ApprovalRequest живет только в памяти на время одного ожидания.
// После рестарта процесса состояние ожидания теряется.
type ApprovalRequest struct {
	TicketID      string        `json:"ticket_id"`
	Deadline      time.Time     `json:"deadline"`
	PollInterval  time.Duration `json:"poll_interval"`
	ApprovedLabel string        `json:"approved_label"`
	RejectedLabel string        `json:"rejected_label"`
}

// Match сопоставляет статус тикета с метками решения без учета регистра
// и пробелов по краям.
// Любой другой статус означает, что решение еще не принято.
func (r ApprovalRequest) Match(status string) Outcome {
	current := strings.TrimSpace(status)
	switch {
	case strings.EqualFold(current, strings.TrimSpace(r.ApprovedLabel)):
		return OutcomeApproved
	case strings.EqualFold(current, strings.TrimSpace(r.RejectedLabel)):
		return OutcomeRejected
	default:
		return OutcomePending
	}
}

// Decision: результат ожидания вместе с последним увиденным статусом.
type Decision struct {
	TicketID string        `json:"task_id"`
	Outcome  Outcome       `json:"outcome"`
	Status   string        `json:"status"`
	Polls    int           `json:"polls"`
	Elapsed  time.Duration `json:"elapsed"`
}

// Approved: шорткат для адаптеров.
func (d Decision) Approved() bool {
	return d.Outcome.Approved()
}
