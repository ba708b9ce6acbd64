package clickup_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xela07ax/clickup-gmud/internal/clickup"
)

func newTestClient(t *testing.T, token string, handler http.Handler) *clickup.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return clickup.NewClient(token, server.URL, clickup.WithHTTPClient(server.Client()))
}

func TestAuthHeader(t *testing.T) {
	assert.Equal(t, "pk_123_ABC", clickup.AuthHeader("pk_123_ABC"))
	assert.Equal(t, "Bearer oauth-token", clickup.AuthHeader("oauth-token"))
	// Префикс проверяется строго с начала строки
	assert.Equal(t, "Bearer xpk_123", clickup.AuthHeader("xpk_123"))
}

func TestCreateTask_SendsPayloadAndAuth(t *testing.T) {
	var gotAuth, gotPath, gotMethod string
	var gotBody map[string]string

	client := newTestClient(t, "pk_personal", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotMethod = r.Method
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"999","name":"[GMUD] acme - prd (por alice)","status":{"status":"em análise"},"url":"https://app.clickup.com/t/999","date_created":"1700000000000"}`))
	}))

	ticket, err := client.CreateTask(context.Background(), "901", "[GMUD] acme - prd (por alice)", "EM ANÁLISE")

	require.NoError(t, err)
	assert.Equal(t, "pk_personal", gotAuth)
	assert.Equal(t, "/list/901/task", gotPath)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "EM ANÁLISE", gotBody["status"])
	assert.Equal(t, "[GMUD] acme - prd (por alice)", gotBody["name"])

	assert.Equal(t, "999", ticket.ID)
	assert.Equal(t, "em análise", ticket.Status)
	assert.Equal(t, "https://app.clickup.com/t/999", ticket.URL)
	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), ticket.DateCreated)
}

func TestCreateTask_MissingIDIsError(t *testing.T) {
	client := newTestClient(t, "oauth", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer oauth", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"err":"weird","name":"no id here"}`))
	}))

	_, err := client.CreateTask(context.Background(), "901", "x", "EM ANÁLISE")

	require.Error(t, err)
	assert.True(t, errors.Is(err, clickup.ErrMissingTaskID))
	assert.Equal(t, http.StatusOK, clickup.StatusCode(err))

	var apiErr *clickup.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, `{"err":"weird","name":"no id here"}`, apiErr.Body)
	assert.Contains(t, err.Error(), "weird")
}

func TestCreateTask_NonSuccessCarriesStatusAndBody(t *testing.T) {
	client := newTestClient(t, "pk_x", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"err":"Token invalid","ECODE":"OAUTH_025"}`))
	}))

	_, err := client.CreateTask(context.Background(), "901", "x", "EM ANÁLISE")

	var apiErr *clickup.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "create_task", apiErr.Op)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "OAUTH_025")
}

func TestGetStatus(t *testing.T) {
	client := newTestClient(t, "pk_x", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/task/abc123", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write([]byte(`{"id":"abc123","status":{"status":"aprovadas","type":"custom"},"assignees":[{"id":7,"username":"bob"}]}`))
	}))

	status, err := client.GetStatus(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "aprovadas", status)

	ticket, err := client.GetTask(context.Background(), "abc123")
	require.NoError(t, err)
	require.Len(t, ticket.Assignees, 1)
	assert.Equal(t, "bob", ticket.Assignees[0].Username)
}

func TestGetStatus_ServerError(t *testing.T) {
	client := newTestClient(t, "pk_x", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))

	_, err := client.GetStatus(context.Background(), "abc123")
	assert.Equal(t, http.StatusBadGateway, clickup.StatusCode(err))
}

func TestUpdateStatus_EmptyBodyFallsBack(t *testing.T) {
	var gotBody map[string]string
	client := newTestClient(t, "pk_x", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.WriteHeader(http.StatusOK)
	}))

	ticket, err := client.UpdateStatus(context.Background(), "t1", "COMPLETE")

	require.NoError(t, err)
	assert.Equal(t, "COMPLETE", gotBody["status"])
	assert.Equal(t, "t1", ticket.ID)
	assert.Equal(t, "COMPLETE", ticket.Status)
}

func TestAddComment(t *testing.T) {
	var gotBody map[string]string
	client := newTestClient(t, "pk_x", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/task/t1/comment", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_, _ = w.Write([]byte(`{"id":"c1"}`))
	}))

	require.NoError(t, client.AddComment(context.Background(), "t1", "hello **world**"))
	assert.Equal(t, "hello **world**", gotBody["comment_text"])
}

func TestAddComment_Failure(t *testing.T) {
	client := newTestClient(t, "pk_x", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	err := client.AddComment(context.Background(), "t1", "x")
	assert.Equal(t, http.StatusForbidden, clickup.StatusCode(err))
}

func TestListFields(t *testing.T) {
	client := newTestClient(t, "pk_x", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/list/901/field", r.URL.Path)
		_, _ = w.Write([]byte(`{"fields":[{"id":"f1","name":"Casa","type":"drop_down","required":true}]}`))
	}))

	fields, err := client.ListFields(context.Background(), "901")

	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, "Casa", fields[0].Name)
	assert.True(t, fields[0].Required)
}

func TestRateLimitRespectsContext(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"id":"1","status":{"status":"x"}}`))
	}))
	t.Cleanup(server.Close)

	// 1 запрос в минуту: второй должен упереться в лимитер и отвалиться по контексту
	client := clickup.NewClient("pk_x", server.URL, clickup.WithHTTPClient(server.Client()), clickup.WithRateLimit(1))

	_, err := client.GetStatus(context.Background(), "1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.GetStatus(ctx, "1")

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
