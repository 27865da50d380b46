package main

import (
	"context"
	"net/http"

	"clevermock-web/internal/apiclient"
	"clevermock-web/internal/config"
	"clevermock-web/internal/handler"
	"clevermock-web/internal/middleware"
	"clevermock-web/internal/service"
	"clevermock-web/internal/session"
	"clevermock-web/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// app holds the long-lived services the router dispatches to.
type app struct {
	cfg      *config.Config
	sessions *session.Manager
	api      *apiclient.Client
	waitlist *service.WaitlistService
	hub      *websocket.Hub
	checks   map[string]handler.Check
}

// newRouter builds the HTTP surface. stop releases the rate limiters once
// the server is down.
func newRouter(ctx context.Context, a app) (r chi.Router, stop func()) {
	origins := middleware.ParseOrigins(a.cfg.AllowedOrigins)

	clients := handler.NewSessionClients(a.sessions, a.api)
	authHandler := handler.NewAuthHandler(clients)
	prepareHandler := handler.NewPrepareHandler(clients)
	waitlistHandler := handler.NewWaitlistHandler(a.waitlist)
	interviewHandler := handler.NewInterviewHandler(a.sessions, a.api, a.hub, origins)
	pages := handler.NewPagesHandler(a.cfg.StaticDir)

	r = chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(origins))
	r.Use(middleware.Metrics())

	r.Get("/health", handler.Health)
	r.Get("/health/ready", handler.Ready(a.checks))
	r.Handle("/metrics", promhttp.Handler())

	r.Handle("/static/*", pages.Assets())

	r.Group(func(r chi.Router) {
		r.Use(middleware.Identity(a.sessions))
		r.Use(middleware.RouteGuard())
		for route, file := range handler.Pages {
			r.Get(route, pages.Page(file))
		}
	})

	authLimiter := middleware.NewRateLimiter(ctx, 5, 10)
	apiLimiter := middleware.NewRateLimiter(ctx, 20, 50)
	validator := middleware.OpenAPIValidator(
		middleware.DefaultOpenAPIValidatorConfig(a.cfg.OpenAPISpecPath, !a.cfg.IsProduction()))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Identity(a.sessions))
		r.Use(validator)

		r.Group(func(r chi.Router) {
			r.Use(authLimiter.Middleware())
			r.Post("/auth/signup", authHandler.Signup)
			r.Post("/auth/login", authHandler.Login)
			r.Post("/waitlist", waitlistHandler.Join)
		})

		r.Group(func(r chi.Router) {
			r.Use(apiLimiter.Middleware())
			r.Post("/auth/logout", authHandler.Logout)
			r.Get("/auth/me", authHandler.Me)
			r.Post("/prepare/start", prepareHandler.Start)
			r.Get("/prepare/context", prepareHandler.Context)
			r.Post("/prepare/refine", prepareHandler.Refine)
			r.Post("/prepare/accept", prepareHandler.Accept)
		})
	})

	r.With(middleware.Identity(a.sessions)).Get("/ws/interview", interviewHandler.HandleConnection)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not Found", http.StatusNotFound)
	})

	return r, func() {
		authLimiter.Stop()
		apiLimiter.Stop()
	}
}
