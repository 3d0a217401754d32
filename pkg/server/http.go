package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"
)

func health(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte("ok"))
}

func compress(next http.Handler) http.Handler {
	return gzhttp.GzipHandler(next)
}

func NewMux(server *Server) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.DefaultLogger)
	r.Use(middleware.Recoverer)
	r.Get("/health", health)
	r.Route("/tasks", func(r chi.Router) {
		r.Use(compress)
		r.Post("/roll", server.RollJSON)
		r.Get("/roll/character/{level}", server.RollCharacter)
		r.Get("/roll/{dString}", server.RollNotation)
		r.Get("/odds/{dString}", server.Odds)
	})
	r.Get("/rooms/{roomName}", server.ServeHTTP)
	return r
}
