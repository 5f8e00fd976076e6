package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/NoxZet/Restful/internal/config"
	"github.com/NoxZet/Restful/internal/mapping"
	"github.com/NoxZet/Restful/internal/observability"
	"github.com/NoxZet/Restful/internal/response"
)

// Deps are the collaborators the handlers need.
type Deps struct {
	Pool      Pinger
	Store     ResourceStore
	Mappers   *mapping.Context
	Responses *response.ResponseFactory
}

func NewRouter(cfg *config.Config, deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(LoggingMiddleware)
	r.Use(RecoverMiddleware)
	r.Use(observability.MetricsMiddleware)

	r.Get("/health", HealthHandler(deps.Pool))
	r.Get("/version", VersionHandler(deps.Responses))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Use(APIKeyAuth(cfg))

		api.Get("/resources", ListResourcesHandler(deps.Store, deps.Responses))
		api.Get("/resources/{name}", GetResourceHandler(deps.Store, deps.Responses))
		api.Put("/resources/{name}", PutResourceHandler(deps.Store, deps.Mappers, deps.Responses))
		api.Delete("/resources/{name}", DeleteResourceHandler(deps.Store, deps.Responses))
		api.Post("/convert", ConvertHandler(deps.Mappers, deps.Responses))
	})

	return r
}
