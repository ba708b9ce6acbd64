package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xela07ax/clickup-gmud/internal/audit"
	"github.com/xela07ax/clickup-gmud/internal/domain"
	"github.com/xela07ax/clickup-gmud/internal/gmud"
	"github.com/xela07ax/clickup-gmud/internal/infra"
)

// GMUDService описывает то, что HTTP-адаптеру нужно от ядра.
type GMUDService interface {
	Create(ctx context.Context, req gmud.Request) (*gmud.Created, error)
	Wait(ctx context.Context, taskID string, o gmud.WaitOptions) (*gmud.Result, error)
	Status(ctx context.Context, taskID string) (*domain.Ticket, error)
	UpdateStatus(ctx context.Context, taskID, status, traceID string) (*domain.Ticket, error)
	Fields(ctx context.Context) ([]domain.ListField, error)
}

// HistoryReader читает журнал событий GMUD. nil, если база не настроена.
type HistoryReader interface {
	ListByTask(ctx context.Context, taskID string, limit int) ([]audit.Event, error)
}

type GMUDHandler struct {
	service GMUDService
	history HistoryReader
	logger  *zap.Logger
}

func NewGMUDHandler(s GMUDService, history HistoryReader, logger *zap.Logger) *GMUDHandler {
	return &GMUDHandler{service: s, history: history, logger: logger.Named("gmud-handler")}
}

// CreateRequest принимает и английские ключи, и португальские (casa/ambiente/usuario).
type CreateRequest struct {
	House       string `json:"house"`
	Casa        string `json:"casa"`
	Environment string `json:"environment"`
	Ambiente    string `json:"ambiente"`
	Actor       string `json:"actor"`
	Usuario     string `json:"usuario"`
	PipelineURL string `json:"pipelineUrl"`
	Status      string `json:"status"`
}

func (c CreateRequest) toRequest(traceID string) gmud.Request {
	return gmud.Request{
		House:       firstNonEmpty(c.House, c.Casa),
		Environment: firstNonEmpty(c.Environment, c.Ambiente),
		Actor:       firstNonEmpty(c.Actor, c.Usuario),
		PipelineURL: c.PipelineURL,
		Status:      c.Status,
		TraceID:     traceID,
	}
}

func (h *GMUDHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	created, err := h.service.Create(r.Context(), req.toRequest(infra.TraceID(r.Context())))
	if err != nil {
		fail(w, h.logger, "failed to create gmud", err)
		return
	}

	code := http.StatusCreated
	if created.Skipped {
		code = http.StatusOK
	}
	writeJSON(w, code, created)
}

func (h *GMUDHandler) Status(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.service.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, h.logger, "failed to get gmud status", err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

// WaitRequest переопределяет параметры одного ожидания. Все поля опциональны.
type WaitRequest struct {
	TimeoutMinutes      int    `json:"timeoutMinutes"`
	PollIntervalSeconds int    `json:"pollIntervalSeconds"`
	ApprovedStatus      string `json:"approvedStatus"`
	RejectedStatus      string `json:"rejectedStatus"`
	CompleteOnSuccess   *bool  `json:"completeOnSuccess"`
}

type WaitResponse struct {
	Approved       bool           `json:"approved"`
	TaskID         string         `json:"taskId"`
	Status         string         `json:"status"`
	Outcome        domain.Outcome `json:"outcome"`
	Polls          int            `json:"polls"`
	ElapsedSeconds float64        `json:"elapsedSeconds"`
	Completed      bool           `json:"completed"`
	Message        string         `json:"message"`
}

// Wait держит соединение до решения. Таймаут отдается как 504.
func (h *GMUDHandler) Wait(w http.ResponseWriter, r *http.Request) {
	var req WaitRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.TimeoutMinutes < 0 || req.PollIntervalSeconds < 0 {
		writeError(w, http.StatusBadRequest, "timeoutMinutes and pollIntervalSeconds must be positive", nil)
		return
	}

	taskID := chi.URLParam(r, "id")
	res, err := h.service.Wait(r.Context(), taskID, gmud.WaitOptions{
		Timeout:           time.Duration(req.TimeoutMinutes) * time.Minute,
		PollInterval:      time.Duration(req.PollIntervalSeconds) * time.Second,
		ApprovedStatus:    req.ApprovedStatus,
		RejectedStatus:    req.RejectedStatus,
		CompleteOnSuccess: req.CompleteOnSuccess,
		TraceID:           infra.TraceID(r.Context()),
	})
	if err != nil {
		fail(w, h.logger, "failed to wait for gmud approval", err)
		return
	}

	resp := WaitResponse{
		Approved:       res.Approved(),
		TaskID:         taskID,
		Status:         res.Decision.Status,
		Outcome:        res.Decision.Outcome,
		Polls:          res.Decision.Polls,
		ElapsedSeconds: res.Decision.Elapsed.Seconds(),
		Completed:      res.Completed,
	}

	code := http.StatusOK
	switch res.Decision.Outcome {
	case domain.OutcomeApproved:
		resp.Message = "GMUD aprovada com sucesso"
	case domain.OutcomeRejected:
		resp.Message = "GMUD negada"
	case domain.OutcomeTimedOut:
		resp.Message = "Timeout aguardando aprovação"
		code = http.StatusGatewayTimeout
	}
	writeJSON(w, code, resp)
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type UpdateStatusResponse struct {
	TaskID  string `json:"taskId"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (h *GMUDHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	taskID := chi.URLParam(r, "id")
	if _, err := h.service.UpdateStatus(r.Context(), taskID, req.Status, infra.TraceID(r.Context())); err != nil {
		fail(w, h.logger, "failed to update gmud status", err)
		return
	}

	writeJSON(w, http.StatusOK, UpdateStatusResponse{
		TaskID:  taskID,
		Status:  req.Status,
		Message: "Status atualizado com sucesso",
	})
}

func (h *GMUDHandler) Fields(w http.ResponseWriter, r *http.Request) {
	fields, err := h.service.Fields(r.Context())
	if err != nil {
		fail(w, h.logger, "failed to list gmud fields", err)
		return
	}
	if fields == nil {
		fields = []domain.ListField{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"fields": fields})
}

// History отдает журнал событий GMUD; без базы 404.
func (h *GMUDHandler) History(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusNotFound, "journal is not configured", nil)
		return
	}

	list, err := h.history.ListByTask(r.Context(), chi.URLParam(r, "id"), 100)
	if err != nil {
		fail(w, h.logger, "failed to read gmud history", err)
		return
	}
	if list == nil {
		list = []audit.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": list})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
