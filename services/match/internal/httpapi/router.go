package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/cs3219-g21/matchmaker/internal/httpmetrics"
)

// NewRouter wires the matchmaker's public HTTP surface.
func NewRouter(h *Handlers, frontEndURL string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(httpmetrics.Middleware(serviceLabel))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins(frontEndURL),
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "X-User-ID"},
		AllowCredentials: true,
	}))

	r.Post("/find_match", h.FindMatch)
	r.Delete("/terminate_match", h.TerminateMatch)
	r.Post("/confirm_match/{match_id}", h.ConfirmMatch)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Handle("/metrics", httpmetrics.Handler())

	return r
}

func corsOrigins(frontEndURL string) []string {
	if frontEndURL == "" {
		return []string{"*"}
	}
	return []string{frontEndURL}
}
