// gmud-smoke прогоняет живой API: health → create → status → wait.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/xela07ax/clickup-gmud/internal/events"
	"github.com/xela07ax/clickup-gmud/internal/infra"
)

type smokeClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func (c *smokeClient) call(ctx context.Context, method, path string, in, out any) (int, error) {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return 0, err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusGatewayTimeout {
		return resp.StatusCode, fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return resp.StatusCode, nil
}

func main() {
	flags := pflag.NewFlagSet("gmud-smoke", pflag.ExitOnError)
	baseURL := flags.String("url", "http://localhost:3000", "gmud api base url")
	token := flags.String("token", "", "bearer token for /gmud")
	house := flags.String("house", "smoke-house", "house name")
	env := flags.String("env", "prd", "environment")
	actor := flags.String("actor", "smoke", "actor")
	timeout := flags.Duration("timeout", 2*time.Minute, "approval wait timeout")
	poll := flags.Duration("poll", 10*time.Second, "poll interval")
	redisAddr := flags.String("follow-redis", "", "redis addr to follow the task channel")
	_ = flags.Parse(os.Args[1:])

	logger, err := infra.NewLogger(infra.LoggerConfig{Level: "info", Format: "console"})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &smokeClient{
		baseURL: strings.TrimSuffix(*baseURL, "/"),
		token:   *token,
		// Ожидание держит соединение до таймаута плюс запас
		http: &http.Client{Timeout: *timeout + 30*time.Second},
	}

	// 1. Health
	var health map[string]any
	if _, err := c.call(ctx, http.MethodGet, "/health", nil, &health); err != nil {
		logger.Fatal("health check failed", zap.Error(err))
	}
	logger.Info("api healthy", zap.Any("health", health))

	// 2. Create
	var created struct {
		TaskID  string `json:"taskId"`
		Name    string `json:"name"`
		URL     string `json:"url"`
		Status  string `json:"status"`
		Skipped bool   `json:"skipped"`
	}
	_, err = c.call(ctx, http.MethodPost, "/gmud", map[string]string{
		"house":       *house,
		"environment": *env,
		"actor":       *actor,
		"pipelineUrl": "https://example.com/smoke/" + time.Now().UTC().Format("20060102T150405"),
	}, &created)
	if err != nil {
		logger.Fatal("create failed", zap.Error(err))
	}
	if created.Skipped {
		logger.Info("gmud skipped for non-production environment", zap.String("environment", *env))
		return
	}
	logger.Info("gmud created", zap.String("task_id", created.TaskID), zap.String("url", created.URL))

	// 2.1 Подписка на персональный канал задачи (опционально)
	if *redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: *redisAddr})
		defer func() { _ = rdb.Close() }()
		go events.ListenDecisions(ctx, rdb, logger, infra.TaskChannel(created.TaskID), func(ev events.DecisionEvent) {
			logger.Info("decision received from redis",
				zap.String("task_id", ev.TaskID),
				zap.String("outcome", string(ev.Outcome)),
				zap.Int("polls", ev.Polls))
		})
	}

	// 3. Status
	var status map[string]any
	if _, err := c.call(ctx, http.MethodGet, "/gmud/"+created.TaskID+"/status", nil, &status); err != nil {
		logger.Fatal("status failed", zap.Error(err))
	}
	logger.Info("current status", zap.Any("status", status["status"]))

	// 4. Wait
	logger.Info("waiting for approval in ClickUp", zap.Duration("timeout", *timeout), zap.Duration("poll", *poll))
	var result struct {
		Approved bool   `json:"approved"`
		Status   string `json:"status"`
		Outcome  string `json:"outcome"`
		Polls    int    `json:"polls"`
		Message  string `json:"message"`
	}
	code, err := c.call(ctx, http.MethodPost, "/gmud/"+created.TaskID+"/wait", map[string]any{
		"timeoutMinutes":      int((*timeout).Minutes()),
		"pollIntervalSeconds": int((*poll).Seconds()),
	}, &result)
	if err != nil {
		logger.Fatal("wait failed", zap.Error(err))
	}

	logger.Info("smoke finished",
		zap.Int("http_status", code),
		zap.Bool("approved", result.Approved),
		zap.String("outcome", result.Outcome),
		zap.String("status", result.Status),
		zap.Int("polls", result.Polls),
		zap.String("message", result.Message))
	if !result.Approved {
		os.Exit(1)
	}
}
