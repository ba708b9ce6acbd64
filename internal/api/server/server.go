package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/xela07ax/clickup-gmud/internal/api/handler"
	"github.com/xela07ax/clickup-gmud/internal/domain"
	"github.com/xela07ax/clickup-gmud/internal/infra"
	"github.com/xela07ax/clickup-gmud/internal/infra/auth"
)

type GMUDServer struct {
	router *chi.Mux
	logger *zap.Logger

	// nil — API открыт (ключ IdP не настроен)
	authValidator auth.TokenValidator

	gmudHandler    *handler.GMUDHandler    // /gmud
	webhookHandler *handler.WebhookHandler // /webhook/clickup
}

func NewGMUDServer(
	logger *zap.Logger,
	validator auth.TokenValidator,
	gmudH *handler.GMUDHandler,
	webhookH *handler.WebhookHandler,
) *GMUDServer {
	s := &GMUDServer{
		router:         chi.NewRouter(),
		logger:         logger.Named("gmud-api"),
		authValidator:  validator,
		gmudHandler:    gmudH,
		webhookHandler: webhookH,
	}

	s.routes()
	return s
}

func (s *GMUDServer) routes() {
	r := s.router

	// --- 1. Глобальные Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(infra.TracingMiddleware)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// --- 2. Публичные роуты ---
	r.Get("/health", handler.Health)
	// Вебхук ClickUp подписан их секретом, не нашим JWT
	r.Post("/webhook/clickup", s.webhookHandler.ClickUp)

	// --- 3. GMUD (RS256, если ключ настроен) ---
	r.Route("/gmud", func(r chi.Router) {
		if s.authValidator != nil {
			r.Use(auth.NewMiddleware(s.authValidator, s.logger))
		}

		r.With(auth.RequireScope(domain.ScopeGMUDWrite)).Post("/", s.gmudHandler.Create)
		r.With(auth.RequireScope(domain.ScopeGMUDRead)).Get("/fields", s.gmudHandler.Fields)

		r.Route("/{id}", func(r chi.Router) {
			r.With(auth.RequireScope(domain.ScopeGMUDRead)).Get("/status", s.gmudHandler.Status)
			r.With(auth.RequireScope(domain.ScopeGMUDRead)).Get("/history", s.gmudHandler.History)
			r.With(auth.RequireScope(domain.ScopeGMUDWrite)).Put("/status", s.gmudHandler.UpdateStatus)
			r.With(auth.RequireScope(domain.ScopeGMUDWrite)).Post("/wait", s.gmudHandler.Wait)
		})
	})
}

// ServeHTTP позволяет использовать GMUDServer как стандартный http.Handler
func (s *GMUDServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
