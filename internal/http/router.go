package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	"github.com/piyushmaurya04/expense-tracker/internal/http/handlers"
	"github.com/piyushmaurya04/expense-tracker/internal/http/middleware"
	"github.com/piyushmaurya04/expense-tracker/internal/models"
)

// Service — всё, что роутеру нужно от сервисного слоя.
type Service interface {
	handlers.AuthService
	handlers.RecordService
	handlers.Pinger
	middleware.Authenticator
}

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger         *slog.Logger
	Timeout        time.Duration
	AllowedOrigins []string
	CORSMaxAge     time.Duration
	DBDriver       string
	// Metrics — HTTP-метрики; nil отключает их.
	Metrics *middleware.Metrics
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
// Публичные маршруты (регистрация, вход, refresh, health) не проходят
// шлюз аутентификации; остальные требуют принципала.
func NewRouter(svc Service, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),            // безопасно ловим паники
		middleware.RequestID(),          // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger), // кладём request-scoped логгер в контекст и логируем
	)
	if opts.Metrics != nil {
		root.Use(opts.Metrics.Middleware())
	}
	root.Use(cors.New(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.HeaderRequestID},
		ExposedHeaders:   []string{middleware.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           int(opts.CORSMaxAge.Seconds()),
	}).Handler)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout)) // общий дедлайн запроса
	}

	h := handlers.New(svc, svc, svc, opts.DBDriver)

	root.Route("/api", func(r chi.Router) {
		registerRoutes(r, h, svc)
	})

	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers, authn middleware.Authenticator) {
	// health
	r.Get("/health", h.Health)
	r.Get("/health/db", h.HealthDB)

	// auth: публичные
	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)
	r.Post("/auth/refresh", h.Refresh)

	// всё остальное — только с принципалом
	r.Group(func(r chi.Router) {
		r.Use(
			middleware.Authenticate(authn),
			middleware.RequirePrincipal(),
		)

		r.Post("/auth/logout", h.Logout)
		r.Get("/auth/me", h.Me)
		r.Put("/auth/update", h.UpdateProfile)

		r.Route("/expenses", h.Records(models.KindExpense).Routes)
		r.Route("/incomes", h.Records(models.KindIncome).Routes)
	})
}
