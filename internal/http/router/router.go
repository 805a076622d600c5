package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/novasector/server-bans/internal/http/handler"
	"github.com/novasector/server-bans/internal/http/middleware"
	"github.com/novasector/server-bans/internal/http/response"
)

type Dependencies struct {
	BanHandler     *handler.BanHandler
	EnableOTelHTTP bool
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.StructuredRequestLogger)

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Post("/bans", dep.BanHandler.IssueBan)
	})

	if dep.EnableOTelHTTP {
		return otelhttp.NewHandler(r, "server-bans")
	}
	return r
}
