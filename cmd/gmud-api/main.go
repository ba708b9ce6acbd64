package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/xela07ax/clickup-gmud/internal/api/handler"
	"github.com/xela07ax/clickup-gmud/internal/api/server"
	"github.com/xela07ax/clickup-gmud/internal/audit"
	"github.com/xela07ax/clickup-gmud/internal/clickup"
	"github.com/xela07ax/clickup-gmud/internal/events"
	"github.com/xela07ax/clickup-gmud/internal/gmud"
	"github.com/xela07ax/clickup-gmud/internal/infra"
	"github.com/xela07ax/clickup-gmud/internal/infra/auth"
	"github.com/xela07ax/clickup-gmud/internal/metrics"
	"github.com/xela07ax/clickup-gmud/internal/notify"
	"github.com/xela07ax/clickup-gmud/internal/repository/postgres"
)

func main() {
	// 1. Флаги и конфиг
	flags := pflag.NewFlagSet("gmud-api", pflag.ExitOnError)
	flags.String("config", "", "path to config file (yaml)")
	flags.Int("port", 3000, "HTTP port")
	_ = flags.Parse(os.Args[1:])

	cfg, err := infra.LoadConfig(flags)
	if err != nil {
		fallback, _ := zap.NewProduction()
		fallback.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		fallback, _ := zap.NewProduction()
		fallback.Fatal("failed to init logger", zap.Error(err))
	}
	defer func() { _ = logger.Sync() }()

	// Контекст жизни фоновых горутин: SIGINT/SIGTERM отменяет его
	appCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Метрики
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	if cfg.Server.MetricsPort > 0 {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			addr := ":" + strconv.Itoa(cfg.Server.MetricsPort)
			logger.Info("metrics listening", zap.String("addr", addr))
			if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
	}

	// 3. Внешние системы
	tickets := clickup.NewClient(cfg.ClickUp.Token, cfg.ClickUp.BaseURL,
		clickup.WithTimeout(cfg.ClickUp.Timeout),
		clickup.WithRateLimit(cfg.ClickUp.RateLimit),
	)
	notifier := notify.NewWebhook(cfg.Notify.WebhookURL, logger,
		notify.WithAttempts(cfg.Notify.Attempts),
		notify.WithTimeout(cfg.Notify.Timeout),
		notify.WithMetrics(m),
	)

	opts := []gmud.Option{gmud.WithNotifier(notifier), gmud.WithMetrics(m)}

	// 3.1 Redis (опционально): публикация решений и ретрансляция вебхука
	var publisher events.Publisher = events.Nop{}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = rdb.Close() }()

		publisher = events.NewRedisPublisher(rdb, logger)
		opts = append(opts, gmud.WithPublisher(publisher))

		go events.ListenDecisions(appCtx, rdb, logger.Named("decisions"), infra.RedisChanDecisions, func(ev events.DecisionEvent) {
			logger.Debug("decision broadcast",
				zap.String("task_id", ev.TaskID),
				zap.String("outcome", string(ev.Outcome)),
				zap.String("trace_id", ev.TraceID))
		})
	}

	// 3.2 Postgres (опционально): журнал событий и /history
	var history handler.HistoryReader
	if cfg.Database.URL != "" {
		initCtx, cancel := context.WithTimeout(appCtx, 10*time.Second)
		repo, err := postgres.NewJournalRepo(initCtx, cfg.Database.URL, cfg.Database.MaxConns)
		if err == nil {
			err = repo.Migrate()
		}
		cancel()
		if err != nil {
			logger.Fatal("database unreachable", zap.Error(err))
		}
		defer func() { _ = repo.Close() }()

		journal := audit.NewJournal(repo, cfg.Database.BufferSize, cfg.Database.FlushInterval, logger)
		journal.Start()
		// Stop до Close репозитория: defer выполняются в обратном порядке
		defer journal.Stop()

		opts = append(opts, gmud.WithJournal(journal))
		history = repo
	}

	// 3.3 RS256 (опционально)
	var validator auth.TokenValidator
	if len(cfg.Auth.PublicKey) > 0 {
		pub, err := auth.ParseRSAPublicKey(cfg.Auth.PublicKey)
		if err != nil {
			logger.Fatal("invalid auth public key", zap.Error(err))
		}
		validator = auth.NewRSAValidator(pub)
	} else {
		logger.Warn("auth public key not configured, /gmud is open")
	}

	// 4. Ядро и HTTP
	svc := gmud.NewService(tickets, cfg.ClickUp.ListID, cfg.GMUD, logger, opts...)

	apiServer := server.NewGMUDServer(logger, validator,
		handler.NewGMUDHandler(svc, history, logger),
		handler.NewWebhookHandler(publisher, logger),
	)

	srv := &http.Server{
		Addr:         cfg.Server.Host + ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      apiServer,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		// Контексты запросов наследуют appCtx: сигнал прерывает ждущие /wait
		BaseContext: func(net.Listener) context.Context { return appCtx },
	}

	go func() {
		logger.Info("gmud api started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	// 5. Graceful Shutdown
	<-appCtx.Done()
	logger.Info("gmud api stopping")

	// Ждущие /wait уже получили отмену через BaseContext и отвечают клиенту
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	logger.Info("gmud api exited properly")
}
