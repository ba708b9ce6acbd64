// Package clickup — тонкий клиент ClickUp API v2 для тикетов GMUD.
package clickup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/xela07ax/clickup-gmud/internal/domain"
)

const (
	DefaultBaseURL = "https://api.clickup.com/api/v2"

	// Персональные токены ClickUp уходят в заголовок как есть.
	personalTokenPrefix = "pk_"

	maxBodySize = 1 << 20
)

// AuthHeader возвращает значение заголовка Authorization для токена.
// Personal Token (pk_...) передается без схемы, OAuth-токен — как Bearer.
func AuthHeader(token string) string {
	if strings.HasPrefix(token, personalTokenPrefix) {
		return token
	}
	return "Bearer " + token
}

type Client struct {
	baseURL    string
	authHeader string
	httpClient *http.Client
	limiter    *rate.Limiter
}

type Option func(*Client)

// WithHTTPClient подменяет транспорт (httptest в тестах).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit ограничивает клиента N запросами в минуту (лимит ClickUp — 100 на токен).
// При 0 и меньше лимита нет.
func WithRateLimit(perMinute int) Option {
	return func(c *Client) {
		if perMinute <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		burst := perMinute / 10
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst)
	}
}

// WithTimeout задает таймаут одного HTTP-запроса.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func NewClient(token, baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		authHeader: AuthHeader(token),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Inf, 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// --- Формат ответов ClickUp ---

type taskStatus struct {
	Status string `json:"status"`
	Color  string `json:"color,omitempty"`
	Type   string `json:"type,omitempty"`
}

type taskAssignee struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type taskResponse struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Status      taskStatus     `json:"status"`
	URL         string         `json:"url"`
	Assignees   []taskAssignee `json:"assignees"`
	DateCreated string         `json:"date_created"` // epoch ms строкой
	DateUpdated string         `json:"date_updated"`
}

func (t *taskResponse) toDomain() *domain.Ticket {
	ticket := &domain.Ticket{
		ID:          t.ID,
		Name:        t.Name,
		Status:      t.Status.Status,
		URL:         t.URL,
		DateCreated: parseEpochMillis(t.DateCreated),
		DateUpdated: parseEpochMillis(t.DateUpdated),
	}
	for _, a := range t.Assignees {
		ticket.Assignees = append(ticket.Assignees, domain.Assignee{ID: a.ID, Username: a.Username, Email: a.Email})
	}
	return ticket
}

func parseEpochMillis(s string) time.Time {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// CreateTask создает задачу в списке. Ответ без id считается ошибкой.
func (c *Client) CreateTask(ctx context.Context, listID, name, status string) (*domain.Ticket, error) {
	payload := map[string]string{"name": name, "status": status}

	var task taskResponse
	code, raw, err := c.do(ctx, "create_task", http.MethodPost, "/list/"+url.PathEscape(listID)+"/task", payload, &task)
	if err != nil {
		return nil, err
	}
	if task.ID == "" {
		return nil, &APIError{Op: "create_task", StatusCode: code, Body: strings.TrimSpace(string(raw)), Cause: ErrMissingTaskID}
	}
	return task.toDomain(), nil
}

// GetTask читает задачу целиком.
func (c *Client) GetTask(ctx context.Context, taskID string) (*domain.Ticket, error) {
	var task taskResponse
	if _, _, err := c.do(ctx, "get_task", http.MethodGet, "/task/"+url.PathEscape(taskID), nil, &task); err != nil {
		return nil, err
	}
	return task.toDomain(), nil
}

// GetStatus возвращает текущую метку статуса задачи. Всегда свежий запрос, без кэша.
func (c *Client) GetStatus(ctx context.Context, taskID string) (string, error) {
	task, err := c.GetTask(ctx, taskID)
	if err != nil {
		return "", err
	}
	return task.Status, nil
}

// UpdateStatus переводит задачу в новый статус.
func (c *Client) UpdateStatus(ctx context.Context, taskID, status string) (*domain.Ticket, error) {
	var task taskResponse
	if _, _, err := c.do(ctx, "update_task", http.MethodPut, "/task/"+url.PathEscape(taskID), map[string]string{"status": status}, &task); err != nil {
		return nil, err
	}
	// Часть инсталляций отвечает пустым телом, достраиваем то, что знаем
	if task.ID == "" {
		task.ID = taskID
	}
	if task.Status.Status == "" {
		task.Status.Status = status
	}
	return task.toDomain(), nil
}

// AddComment добавляет markdown-комментарий к задаче.
func (c *Client) AddComment(ctx context.Context, taskID, text string) error {
	_, _, err := c.do(ctx, "add_comment", http.MethodPost, "/task/"+url.PathEscape(taskID)+"/comment", map[string]string{"comment_text": text}, nil)
	return err
}

// ListFields возвращает кастомные поля списка.
func (c *Client) ListFields(ctx context.Context, listID string) ([]domain.ListField, error) {
	var resp struct {
		Fields []domain.ListField `json:"fields"`
	}
	if _, _, err := c.do(ctx, "list_fields", http.MethodGet, "/list/"+url.PathEscape(listID)+"/field", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Fields == nil {
		return []domain.ListField{}, nil
	}
	return resp.Fields, nil
}

// do выполняет запрос и возвращает HTTP-код и сырое тело. Любой не-2xx превращается в APIError с телом ответа.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) (int, []byte, error) {
	// 1. Rate Limiter (ждем, а не отказываем)
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, fmt.Errorf("clickup: %s: rate limiter: %w", op, err)
	}

	// 2. Сборка запроса
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return 0, nil, fmt.Errorf("clickup: %s: encode request: %w", op, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("clickup: %s: build request: %w", op, err)
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// 3. Вызов
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("clickup: %s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("clickup: %s: read response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, raw, &APIError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	// 4. Разбор ответа
	if out != nil && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, raw, &APIError{Op: op, StatusCode: resp.StatusCode, Body: string(raw), Cause: err}
		}
	}
	return resp.StatusCode, raw, nil
}
