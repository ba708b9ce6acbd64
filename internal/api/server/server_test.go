package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/clickup-gmud/internal/api/handler"
	"github.com/xela07ax/clickup-gmud/internal/api/server"
	"github.com/xela07ax/clickup-gmud/internal/audit"
	"github.com/xela07ax/clickup-gmud/internal/clickup"
	"github.com/xela07ax/clickup-gmud/internal/domain"
	"github.com/xela07ax/clickup-gmud/internal/gmud"
)

// stubService запоминает входы и отдает заготовленные ответы.
type stubService struct {
	createReq gmud.Request
	created   *gmud.Created
	createErr error

	waitID   string
	waitOpts gmud.WaitOptions
	result   *gmud.Result
	waitErr  error

	ticket    *domain.Ticket
	statusErr error

	updated   string
	updateErr error

	fields []domain.ListField
}

func (s *stubService) Create(_ context.Context, req gmud.Request) (*gmud.Created, error) {
	s.createReq = req
	return s.created, s.createErr
}

func (s *stubService) Wait(_ context.Context, id string, o gmud.WaitOptions) (*gmud.Result, error) {
	s.waitID, s.waitOpts = id, o
	return s.result, s.waitErr
}

func (s *stubService) Status(context.Context, string) (*domain.Ticket, error) {
	return s.ticket, s.statusErr
}

func (s *stubService) UpdateStatus(_ context.Context, _ string, status, _ string) (*domain.Ticket, error) {
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	if status == "" {
		return nil, domain.Required("status")
	}
	s.updated = status
	return &domain.Ticket{Status: status}, nil
}

func (s *stubService) Fields(context.Context) ([]domain.ListField, error) {
	return s.fields, nil
}

type stubHistory struct{ events []audit.Event }

func (h stubHistory) ListByTask(context.Context, string, int) ([]audit.Event, error) {
	return h.events, nil
}

type stubPublisher struct{ payloads [][]byte }

func (p *stubPublisher) PublishWebhook(_ context.Context, payload []byte) error {
	p.payloads = append(p.payloads, payload)
	return errors.New("redis down")
}

func newServer(svc *stubService, history handler.HistoryReader, pub *stubPublisher) http.Handler {
	logger := zap.NewNop()
	return server.NewGMUDServer(logger, nil,
		handler.NewGMUDHandler(svc, history, logger),
		handler.NewWebhookHandler(pub, logger),
	)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	rec := do(t, newServer(&stubService{}, nil, &stubPublisher{}), http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Trace-ID"))
}

func TestCreate_PortugueseAliases(t *testing.T) {
	svc := &stubService{created: &gmud.Created{TaskID: "999", Name: "[GMUD] acme - prd (por ana)", Status: "EM ANÁLISE"}}
	h := newServer(svc, nil, &stubPublisher{})

	rec := do(t, h, http.MethodPost, "/gmud", `{"casa":"acme","ambiente":"prd","usuario":"ana","pipelineUrl":"https://ci/1"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "acme", svc.createReq.House)
	assert.Equal(t, "prd", svc.createReq.Environment)
	assert.Equal(t, "ana", svc.createReq.Actor)
	assert.Equal(t, "https://ci/1", svc.createReq.PipelineURL)
	assert.NotEmpty(t, svc.createReq.TraceID)
	assert.Equal(t, "999", decodeBody(t, rec)["taskId"])
}

func TestCreate_Errors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		body string
		want int
	}{
		{"validation", domain.Required("house"), `{}`, http.StatusBadRequest},
		{"clickup", &clickup.APIError{Op: "create task", StatusCode: 401}, `{"house":"a","environment":"prd"}`, http.StatusBadGateway},
		{"internal", errors.New("boom"), `{"house":"a","environment":"prd"}`, http.StatusInternalServerError},
		{"bad json", nil, `{`, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newServer(&stubService{createErr: tc.err}, nil, &stubPublisher{})

			rec := do(t, h, http.MethodPost, "/gmud", tc.body)

			assert.Equal(t, tc.want, rec.Code)
			assert.NotEmpty(t, decodeBody(t, rec)["error"])
		})
	}
}

func TestCreate_SkippedIs200(t *testing.T) {
	h := newServer(&stubService{created: &gmud.Created{Status: "SKIPPED", Skipped: true}}, nil, &stubPublisher{})

	rec := do(t, h, http.MethodPost, "/gmud", `{"house":"acme","environment":"dev"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["skipped"])
	assert.Equal(t, "SKIPPED", body["status"])
}

func TestStatus(t *testing.T) {
	svc := &stubService{ticket: &domain.Ticket{ID: "1", Name: "n", Status: "em análise", URL: "u"}}
	h := newServer(svc, nil, &stubPublisher{})

	rec := do(t, h, http.MethodGet, "/gmud/1/status", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "1", body["taskId"])
	assert.Equal(t, "em análise", body["status"])

	svc.statusErr = &clickup.APIError{StatusCode: http.StatusNotFound}
	rec = do(t, h, http.MethodGet, "/gmud/1/status", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWait(t *testing.T) {
	cases := []struct {
		name     string
		outcome  domain.Outcome
		code     int
		approved bool
	}{
		{"approved", domain.OutcomeApproved, http.StatusOK, true},
		{"rejected", domain.OutcomeRejected, http.StatusOK, false},
		{"timed out", domain.OutcomeTimedOut, http.StatusGatewayTimeout, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubService{result: &gmud.Result{
				TaskID:   "42",
				Decision: domain.Decision{TicketID: "42", Outcome: tc.outcome, Status: "X", Polls: 2, Elapsed: 30 * time.Second},
			}}
			h := newServer(svc, nil, &stubPublisher{})

			rec := do(t, h, http.MethodPost, "/gmud/42/wait",
				`{"timeoutMinutes":2,"pollIntervalSeconds":10,"approvedStatus":"OK","rejectedStatus":"NO","completeOnSuccess":false}`)

			assert.Equal(t, tc.code, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, tc.approved, body["approved"])
			assert.Equal(t, string(tc.outcome), body["outcome"])
			assert.Equal(t, 30.0, body["elapsedSeconds"])

			assert.Equal(t, "42", svc.waitID)
			assert.Equal(t, 2*time.Minute, svc.waitOpts.Timeout)
			assert.Equal(t, 10*time.Second, svc.waitOpts.PollInterval)
			assert.Equal(t, "OK", svc.waitOpts.ApprovedStatus)
			require.NotNil(t, svc.waitOpts.CompleteOnSuccess)
			assert.False(t, *svc.waitOpts.CompleteOnSuccess)
		})
	}
}

func TestWait_EmptyBodyUsesDefaults(t *testing.T) {
	svc := &stubService{result: &gmud.Result{Decision: domain.Decision{Outcome: domain.OutcomeApproved}}}
	h := newServer(svc, nil, &stubPublisher{})

	rec := do(t, h, http.MethodPost, "/gmud/7/wait", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, svc.waitOpts.Timeout)
	assert.Nil(t, svc.waitOpts.CompleteOnSuccess)
}

func TestWait_NegativeOverrides(t *testing.T) {
	h := newServer(&stubService{}, nil, &stubPublisher{})

	rec := do(t, h, http.MethodPost, "/gmud/7/wait", `{"timeoutMinutes":-1}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateStatus(t *testing.T) {
	svc := &stubService{}
	h := newServer(svc, nil, &stubPublisher{})

	rec := do(t, h, http.MethodPut, "/gmud/5/status", `{"status":"APROVADAS"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "APROVADAS", svc.updated)
	assert.Equal(t, "Status atualizado com sucesso", decodeBody(t, rec)["message"])

	rec = do(t, h, http.MethodPut, "/gmud/5/status", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFieldsAndHistory(t *testing.T) {
	svc := &stubService{fields: []domain.ListField{{ID: "f1", Name: "Casa", Type: "drop_down"}}}

	h := newServer(svc, nil, &stubPublisher{})
	rec := do(t, h, http.MethodGet, "/gmud/fields", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["fields"], 1)

	rec = do(t, h, http.MethodGet, "/gmud/5/history", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	h = newServer(svc, stubHistory{events: []audit.Event{audit.NewEvent(audit.KindCreated, "5")}}, &stubPublisher{})
	rec = do(t, h, http.MethodGet, "/gmud/5/history", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["events"], 1)
}

func TestClickUpWebhook(t *testing.T) {
	pub := &stubPublisher{}
	h := newServer(&stubService{}, nil, pub)

	rec := do(t, h, http.MethodPost, "/webhook/clickup", `{"event":"taskStatusUpdated","task_id":"9","status":"aprovadas"}`)

	// Сбой ретрансляции не влияет на ответ ClickUp
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["received"])
	require.Len(t, pub.payloads, 1)

	rec = do(t, h, http.MethodPost, "/webhook/clickup", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
