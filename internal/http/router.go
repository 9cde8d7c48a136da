package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cornenkiV/web-ads/internal/http/handlers"
	"github.com/cornenkiV/web-ads/internal/http/middleware"
)

// Options - параметры сборки HTTP-роутера.
type Options struct {
	Logger   *slog.Logger
	Timeout  time.Duration
	BasePath string // например, "/api"; если пустой - роуты регистрируются на корне.
}

// Deps - зависимости эндпойнтов: менеджер сессии и клиенты удалённого API.
type Deps struct {
	Session handlers.Session
	Auth    handlers.AuthClient
	Ads     handlers.AdsClient
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(d Deps, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),
		middleware.RequestID(), // до логирования
		middleware.Logging(opts.Logger),
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout))
	}

	h := handlers.New(d.Session, d.Auth, d.Ads)
	guard := middleware.RequireSession(d.Session)

	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, h, guard)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h, guard)
	return root
}

// registerRoutes - единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers, guard middleware.Middleware) {
	// auth
	r.Get("/auth/session", h.GetSession)
	r.Post("/auth/login", h.Login)
	r.Post("/auth/register", h.Register)
	r.Post("/auth/logout", h.Logout)

	// ads
	r.Get("/ads", h.ListAds)
	r.Get("/ads/{id}", h.GetAd)

	r.Group(func(r chi.Router) {
		r.Use(guard)
		r.Post("/ads", h.CreateAd)
		r.Put("/ads/{id}", h.UpdateAd)
		r.Delete("/ads/{id}", h.DeleteAd)
	})
}
