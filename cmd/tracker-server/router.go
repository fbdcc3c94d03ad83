package main

import (
	"net/http"

	"openfront-tracker/internal/archive"
	"openfront-tracker/internal/upstream"
	"openfront-tracker/internal/ws"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

func newRouter(query *archive.Query, client *upstream.Client, wsSrv *ws.Server) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(apiLogMiddleware()).Get("/healthz", healthHandler())

	r.Route("/data", func(r chi.Router) {
		r.Use(apiLogMiddleware())
		r.Get("/gameIds/all", allGameIDsHandler(query))
		r.Get("/gameIds/{span}", gameIDsHandler(query))
	})

	r.With(apiLogMiddleware()).Get("/player", playerHandler(client))
	r.Get("/ws", wsSrv.HandleWS)
	return r
}

func healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}
