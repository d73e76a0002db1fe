package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/cs3219-g21/roommanager/internal/httpmetrics"
)

const serviceLabel = "collab"

// NewRouter wires the room manager's public HTTP surface.
func NewRouter(h *Handlers, frontEndURL string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(httpmetrics.Middleware(serviceLabel))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins(frontEndURL),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "X-User-ID", "Authorization"},
		AllowCredentials: true,
	}))

	r.Post("/connect/{room_id}", h.Connect)
	r.Post("/reconnect", h.Reconnect)
	r.Post("/exit", h.Exit)
	r.Post("/terminate/{room_id}", h.Terminate)

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
