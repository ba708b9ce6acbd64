// Package gmud — общее ядро GMUD: создание тикета, ожидание решения и
// уведомления. CI-action и HTTP API только переводят свои входы в вызовы Service.
package gmud

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/xela07ax/clickup-gmud/internal/approval"
	"github.com/xela07ax/clickup-gmud/internal/audit"
	"github.com/xela07ax/clickup-gmud/internal/clickup"
	"github.com/xela07ax/clickup-gmud/internal/description"
	"github.com/xela07ax/clickup-gmud/internal/domain"
	"github.com/xela07ax/clickup-gmud/internal/events"
	"github.com/xela07ax/clickup-gmud/internal/infra"
	"github.com/xela07ax/clickup-gmud/internal/metrics"
)

const DefaultActor = "System"

var validate = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}()

// Request содержит параметры новой GMUD.
type Request struct {
	House       string `json:"house" validate:"required"`
	Environment string `json:"environment" validate:"required"`
	Actor       string `json:"actor"`
	PipelineURL string `json:"pipelineUrl" validate:"omitempty,url"`
	Status      string `json:"status"` // Начальный статус; пусто = status_pending из конфига

	Commit  *description.CommitInfo `json:"-"`
	PR      *description.PRInfo     `json:"-"`
	TraceID string                  `json:"-"`
}

// Validate возвращает domain.ConfigError по первому невалидному полю.
func (r *Request) Validate() error {
	r.House = strings.TrimSpace(r.House)
	r.Environment = strings.TrimSpace(r.Environment)
	r.Actor = strings.TrimSpace(r.Actor)
	r.Status = strings.TrimSpace(r.Status)
	if r.Actor == "" {
		r.Actor = DefaultActor
	}

	if err := validate.Struct(r); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) && len(vErrs) > 0 {
			fe := vErrs[0]
			if fe.Tag() == "required" {
				return domain.Required(fe.Field())
			}
			return &domain.ConfigError{Field: fe.Field(), Reason: fmt.Sprintf("failed %q check", fe.Tag())}
		}
		return err
	}
	return nil
}

// WaitOptions переопределяют конфиг для одного ожидания. Нулевые значения = конфиг.
type WaitOptions struct {
	Timeout           time.Duration
	PollInterval      time.Duration
	ApprovedStatus    string
	RejectedStatus    string
	CompleteOnSuccess *bool
	TraceID           string
}

// Created: результат шага создания. Skipped означает, что тикета нет.
type Created struct {
	TaskID  string `json:"taskId,omitempty"`
	Name    string `json:"name,omitempty"`
	URL     string `json:"url,omitempty"`
	Status  string `json:"status,omitempty"`
	Skipped bool   `json:"skipped"`
}

// Result хранит итог ожидания (и полного прогона).
type Result struct {
	TaskID    string          `json:"taskId,omitempty"`
	Name      string          `json:"name,omitempty"`
	URL       string          `json:"url,omitempty"`
	Decision  domain.Decision `json:"decision"`
	Completed bool            `json:"completed"`
	Skipped   bool            `json:"skipped"`
}

// Approved сообщает, можно ли продолжать пайплайн.
func (r *Result) Approved() bool {
	return r.Decision.Approved()
}

type Service struct {
	tickets   TicketAPI
	listID    string
	cfg       infra.GMUDConfig
	waiter    *approval.Waiter
	notifier  Notifier
	journal   audit.Recorder
	publisher events.Publisher
	clock     approval.Clock
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

type Option func(*Service)

func WithNotifier(n Notifier) Option { return func(s *Service) { s.notifier = n } }
func WithJournal(r audit.Recorder) Option { return func(s *Service) { s.journal = r } }
func WithPublisher(p events.Publisher) Option { return func(s *Service) { s.publisher = p } }
func WithClock(c approval.Clock) Option { return func(s *Service) { s.clock = c } }
func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

func NewService(tickets TicketAPI, listID string, cfg infra.GMUDConfig, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		tickets:   tickets,
		listID:    listID,
		cfg:       cfg,
		notifier:  nopNotifier{},
		journal:   audit.Nop{},
		publisher: events.Nop{},
		clock:     approval.RealClock{},
		logger:    logger.Named("gmud"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.NewMetrics(nil)
	}
	s.waiter = approval.NewWaiter(tickets, s.clock, s.metrics, logger)
	return s
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string) {}

// IsProduction: окружение продуктивное, если содержит любое из настроенных имен.
func (s *Service) IsProduction(environment string) bool {
	env := strings.ToLower(strings.TrimSpace(environment))
	for _, name := range s.cfg.ProductionEnvironments {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" && strings.Contains(env, name) {
			return true
		}
	}
	return false
}

// Create выполняет шаги до ожидания: валидация, пропуск не-prod, тикет, комментарий, уведомление.
func (s *Service) Create(ctx context.Context, req Request) (*Created, error) {
	// 1. Валидация входа
	if err := req.Validate(); err != nil {
		return nil, err
	}
	log := s.logger.With(
		zap.String("house", req.House),
		zap.String("environment", req.Environment),
		zap.String("actor", req.Actor))

	// 2. Непродуктивное окружение: тикет не нужен
	if s.cfg.SkipNonProduction && !s.IsProduction(req.Environment) {
		log.Info("skipping gmud for non-production environment")
		s.metrics.Created.WithLabelValues(req.Environment, "skipped").Inc()
		s.metrics.Decisions.WithLabelValues(string(domain.OutcomeSkipped)).Inc()

		ev := s.event(audit.KindSkipped, "", req.TraceID)
		ev.Environment, ev.House, ev.Actor = req.Environment, req.House, req.Actor
		ev.Outcome = string(domain.OutcomeSkipped)
		s.journal.Record(ev)

		s.notifier.Notify(ctx, msgSkipped(req.House, req.Environment))
		return &Created{Status: string(domain.OutcomeSkipped), Skipped: true}, nil
	}

	// 3. Тикет в статусе ожидания
	name := description.TaskName(req.House, req.Environment, req.Actor)
	initial := req.Status
	if initial == "" {
		initial = s.cfg.StatusPending
	}
	log.Info("creating gmud", zap.String("name", name), zap.String("list_id", s.listID), zap.String("status", initial))

	ticket, err := s.tickets.CreateTask(ctx, s.listID, name, initial)
	if err != nil {
		s.metrics.Created.WithLabelValues(req.Environment, "failed").Inc()
		s.metrics.ClickUpErrors.WithLabelValues("create_task").Inc()
		return nil, fmt.Errorf("gmud: create ticket: %w", err)
	}
	s.metrics.Created.WithLabelValues(req.Environment, "created").Inc()
	log = log.With(zap.String("task_id", ticket.ID))
	log.Info("gmud created", zap.String("url", ticket.URL))

	// 4. Комментарий с деталями пайплайна (best-effort)
	comment := description.Build(description.Input{
		Environment: req.Environment,
		House:       req.House,
		Actor:       req.Actor,
		PipelineURL: req.PipelineURL,
		Commit:      req.Commit,
		PR:          req.PR,
	})
	if err := s.tickets.AddComment(ctx, ticket.ID, comment); err != nil {
		s.metrics.ClickUpErrors.WithLabelValues("add_comment").Inc()
		log.Warn("failed to add gmud comment", zap.Error(err))
	}

	// 5. Уведомление (best-effort, ошибок не бывает)
	s.notifier.Notify(ctx, msgCreated(name, ticket.URL))

	ev := s.event(audit.KindCreated, ticket.ID, req.TraceID)
	ev.Environment, ev.House, ev.Actor = req.Environment, req.House, req.Actor
	ev.Status = initial
	ev.Payload = map[string]any{"name": name, "url": ticket.URL, "pipeline_url": req.PipelineURL}
	s.journal.Record(ev)

	status := ticket.Status
	if status == "" {
		status = initial
	}
	return &Created{TaskID: ticket.ID, Name: name, URL: ticket.URL, Status: status}, nil
}

// resolve накладывает переопределения на конфиг.
func (s *Service) resolve(o WaitOptions) (approval.Options, bool) {
	opts := approval.Options{
		Timeout:       s.cfg.Timeout,
		PollInterval:  s.cfg.PollInterval,
		ApprovedLabel: s.cfg.StatusApproved,
		RejectedLabel: s.cfg.StatusRejected,
	}
	if o.Timeout > 0 {
		opts.Timeout = o.Timeout
	}
	if o.PollInterval > 0 {
		opts.PollInterval = o.PollInterval
	}
	if o.ApprovedStatus != "" {
		opts.ApprovedLabel = o.ApprovedStatus
	}
	if o.RejectedStatus != "" {
		opts.RejectedLabel = o.RejectedStatus
	}
	complete := s.cfg.CompleteOnSuccess
	if o.CompleteOnSuccess != nil {
		complete = *o.CompleteOnSuccess
	}
	return opts, complete
}

// Wait ждет решения по существующему тикету. Rejected и TimedOut не ошибки:
// они лежат в Result.Decision. Ошибку дают только невалидные опции или отмена ctx.
func (s *Service) Wait(ctx context.Context, taskID string, o WaitOptions) (*Result, error) {
	opts, complete := s.resolve(o)

	decision, err := s.waiter.Wait(ctx, taskID, opts)
	if err != nil {
		return nil, err
	}
	res := &Result{TaskID: taskID, Decision: decision}
	log := s.logger.With(zap.String("task_id", taskID), zap.String("outcome", string(decision.Outcome)))

	switch decision.Outcome {
	case domain.OutcomeApproved:
		s.notifier.Notify(ctx, msgApproved(taskID))
		if complete {
			res.Completed = s.complete(ctx, taskID)
		}
	case domain.OutcomeRejected:
		s.notifier.Notify(ctx, msgRejected(taskID))
	case domain.OutcomeTimedOut:
		s.notifier.Notify(ctx, msgTimedOut(taskID, opts.Timeout))
	}

	ev := s.event(audit.KindDecision, taskID, o.TraceID)
	ev.Status = decision.Status
	ev.Outcome = string(decision.Outcome)
	ev.DurationMs = decision.Elapsed.Milliseconds()
	ev.Payload = map[string]any{"polls": decision.Polls, "completed": res.Completed}
	s.journal.Record(ev)

	if err := s.publisher.PublishDecision(ctx, events.NewDecisionEvent(decision, o.TraceID)); err != nil {
		log.Warn("failed to publish decision", zap.Error(err))
	}
	return res, nil
}

// complete переводит одобренную GMUD в финальный статус. Сбой только логируется.
func (s *Service) complete(ctx context.Context, taskID string) bool {
	if _, err := s.tickets.UpdateStatus(ctx, taskID, s.cfg.StatusComplete); err != nil {
		s.metrics.ClickUpErrors.WithLabelValues("update_status").Inc()
		s.logger.Warn("failed to mark gmud complete",
			zap.String("task_id", taskID),
			zap.String("status", s.cfg.StatusComplete),
			zap.Error(err))
		return false
	}
	s.logger.Info("gmud marked complete", zap.String("task_id", taskID), zap.String("status", s.cfg.StatusComplete))
	return true
}

// Run — полная последовательность для CI. Отказ и таймаут возвращаются как
// domain.ErrRejected / domain.ErrTimedOut вместе с заполненным Result.
func (s *Service) Run(ctx context.Context, req Request, o WaitOptions) (*Result, error) {
	if o.TraceID == "" {
		o.TraceID = req.TraceID
	}

	created, err := s.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	if created.Skipped {
		return &Result{
			Skipped:  true,
			Decision: domain.Decision{Outcome: domain.OutcomeSkipped},
		}, nil
	}

	res, err := s.Wait(ctx, created.TaskID, o)
	if err != nil {
		return &Result{TaskID: created.TaskID, Name: created.Name, URL: created.URL}, err
	}
	res.Name, res.URL = created.Name, created.URL

	switch res.Decision.Outcome {
	case domain.OutcomeRejected:
		return res, fmt.Errorf("gmud %s: %w", created.TaskID, domain.ErrRejected)
	case domain.OutcomeTimedOut:
		opts, _ := s.resolve(o)
		return res, fmt.Errorf("gmud %s: %w (%d minutes)", created.TaskID, domain.ErrTimedOut, int(opts.Timeout.Minutes()))
	}
	return res, nil
}

// Status читает свежую проекцию тикета.
func (s *Service) Status(ctx context.Context, taskID string) (*domain.Ticket, error) {
	if taskID == "" {
		return nil, domain.Required("task_id")
	}
	ticket, err := s.tickets.GetTask(ctx, taskID)
	if err != nil {
		s.metrics.ClickUpErrors.WithLabelValues("get_task").Inc()
		return nil, fmt.Errorf("gmud: get ticket %s: %w", taskID, err)
	}
	return ticket, nil
}

// UpdateStatus: ручная смена статуса (например, из бота ревьюеров).
func (s *Service) UpdateStatus(ctx context.Context, taskID, status, traceID string) (*domain.Ticket, error) {
	if taskID == "" {
		return nil, domain.Required("task_id")
	}
	if strings.TrimSpace(status) == "" {
		return nil, domain.Required("status")
	}

	ticket, err := s.tickets.UpdateStatus(ctx, taskID, status)
	if err != nil {
		s.metrics.ClickUpErrors.WithLabelValues("update_status").Inc()
		return nil, fmt.Errorf("gmud: update ticket %s: %w", taskID, err)
	}

	ev := s.event(audit.KindStatusUpdated, taskID, traceID)
	ev.Status = status
	s.journal.Record(ev)
	return ticket, nil
}

// Fields возвращает кастомные поля списка GMUD.
func (s *Service) Fields(ctx context.Context) ([]domain.ListField, error) {
	fields, err := s.tickets.ListFields(ctx, s.listID)
	if err != nil {
		s.metrics.ClickUpErrors.WithLabelValues("list_fields").Inc()
		return nil, fmt.Errorf("gmud: list fields: %w", err)
	}
	return fields, nil
}

func (s *Service) event(kind audit.Kind, taskID, traceID string) audit.Event {
	ev := audit.NewEvent(kind, taskID)
	ev.TraceID = traceID
	ev.Timestamp = s.clock.Now().UTC()
	return ev
}

// IsClientError проверяет, что ошибка пришла от ClickUp (не-2xx или нет id в ответе).
func IsClientError(err error) bool {
	var apiErr *clickup.APIError
	return errors.As(err, &apiErr)
}
