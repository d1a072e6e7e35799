// Package router assembles the API's HTTP surface.
package router

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/habitbot/habitbot/internal/http/handler"
	"github.com/habitbot/habitbot/internal/http/middleware"
	"github.com/habitbot/habitbot/internal/http/response"
	"github.com/habitbot/habitbot/internal/token"
)

type Dependencies struct {
	AuthHandler    *handler.AuthHandler
	HabitHandler   *handler.HabitHandler
	TokenService   *token.Service
	Logger         *slog.Logger
	EnableOTelHTTP bool
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestLogger(dep.Logger))

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/register", dep.AuthHandler.Register)
	r.Post("/token", dep.AuthHandler.Token)
	r.Post("/refresh-token", dep.AuthHandler.RefreshToken)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(dep.TokenService))
		r.Post("/logout", dep.AuthHandler.Logout)
		r.Get("/users/me", dep.AuthHandler.Me)

		r.Route("/habits", func(r chi.Router) {
			r.Get("/", dep.HabitHandler.List)
			r.Post("/", dep.HabitHandler.Create)
			r.Get("/unlogged", dep.HabitHandler.Unlogged)
			r.Patch("/{id}", dep.HabitHandler.Update)
			r.Delete("/{id}", dep.HabitHandler.Delete)
			r.Post("/{id}/logs", dep.HabitHandler.CreateLog)
		})
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
