package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/xela07ax/clickup-gmud/internal/action"
	"github.com/xela07ax/clickup-gmud/internal/clickup"
	"github.com/xela07ax/clickup-gmud/internal/domain"
	"github.com/xela07ax/clickup-gmud/internal/gmud"
	"github.com/xela07ax/clickup-gmud/internal/infra"
	"github.com/xela07ax/clickup-gmud/internal/metrics"
	"github.com/xela07ax/clickup-gmud/internal/notify"
	"github.com/xela07ax/clickup-gmud/internal/pipeline"
)

func main() {
	os.Exit(run())
}

// run возвращает код выхода шага: 0 если можно деплоить, иначе 1.
func run() int {
	// SIGTERM приходит, когда джобу отменяют из UI
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Входы и конфиг
	inputs, err := action.LoadInputs(os.LookupEnv)
	if err != nil {
		fallbackLog("invalid inputs", err)
		return 1
	}
	cfg, err := inputs.Config(os.Getenv("GITHUB_API_URL"))
	if err != nil {
		fallbackLog("invalid configuration", err)
		return 1
	}

	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		fallbackLog("logger init failed", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	// 2. Контекст пайплайна и обогащение описания (best-effort)
	env := pipeline.EnvFromOS()
	req := gmud.Request{
		House:       inputs.HouseName,
		Environment: inputs.Environment,
		Actor:       inputs.Actor,
		PipelineURL: inputs.PipelineURL,
	}
	if req.PipelineURL == "" {
		req.PipelineURL = env.RunURL()
	}
	if cfg.GMUD.IncludeCommitInfo || cfg.GMUD.IncludePRInfo {
		enricher, err := pipeline.NewEnricher(cfg.GitHub.Token, cfg.GitHub.APIURL, logger)
		if err != nil {
			logger.Warn("github enrichment disabled", zap.Error(err))
		} else {
			req.Commit, req.PR = enricher.Enrich(ctx, env, cfg.GMUD.IncludeCommitInfo, cfg.GMUD.IncludePRInfo)
		}
	}

	// 3. Сборка сервиса. Метрики в CI никуда не экспортируются
	m := metrics.NewMetrics(nil)
	tickets := clickup.NewClient(cfg.ClickUp.Token, cfg.ClickUp.BaseURL,
		clickup.WithTimeout(cfg.ClickUp.Timeout),
		clickup.WithRateLimit(cfg.ClickUp.RateLimit),
	)
	notifier := notify.NewWebhook(cfg.Notify.WebhookURL, logger,
		notify.WithAttempts(cfg.Notify.Attempts),
		notify.WithTimeout(cfg.Notify.Timeout),
		notify.WithMetrics(m),
	)
	svc := gmud.NewService(tickets, cfg.ClickUp.ListID, cfg.GMUD, logger,
		gmud.WithNotifier(notifier),
		gmud.WithMetrics(m),
	)

	// 4. Создание и ожидание
	res, runErr := svc.Run(ctx, req, gmud.WaitOptions{})

	out := action.OutputsFor(res)
	if err := action.WriteOutputs(os.Getenv("GITHUB_OUTPUT"), os.Stdout, out); err != nil {
		logger.Error("failed to write step outputs", zap.Error(err))
	}

	// 5. Код выхода
	switch {
	case runErr == nil:
		logger.Info("gmud gate passed",
			zap.String("task_id", out.TaskID),
			zap.String("status", out.Status),
			zap.Bool("skipped", res.Skipped))
		return 0
	case errors.Is(runErr, domain.ErrRejected):
		logger.Error("gmud rejected, stopping pipeline", zap.String("task_id", out.TaskID), zap.Error(runErr))
	case errors.Is(runErr, domain.ErrTimedOut):
		logger.Error("gmud approval timed out, stopping pipeline", zap.String("task_id", out.TaskID), zap.Error(runErr))
	case domain.IsConfigError(runErr):
		logger.Error("invalid gmud request", zap.Error(runErr))
	default:
		logger.Error("gmud gate failed", zap.String("task_id", out.TaskID), zap.Error(runErr))
	}
	return 1
}

// fallbackLog пишет в stderr, пока основной логгер еще не собран.
func fallbackLog(msg string, err error) {
	l, _ := zap.NewDevelopment()
	defer func() { _ = l.Sync() }()
	l.Error(msg, zap.Error(err))
}
