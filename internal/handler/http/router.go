package http

import (
	"net/http"

	middleware_http "product-store/internal/middleware/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts the product and health routes behind request-id, tracing and recovery.
func NewRouter(products *ProductHandler, health *HealthHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware_http.TraceMiddleware())
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(r.Context(), w, http.StatusOK, map[string]string{"data": "hello-world"})
	})

	r.Route("/products", func(r chi.Router) {
		r.Post("/", products.Create)
		r.Get("/", products.Query)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", products.Get)
			r.Patch("/", products.Update)
			r.Delete("/", products.Delete)
		})
	})

	if health != nil {
		r.Get("/healthz", health.Check)
	}

	return r
}
