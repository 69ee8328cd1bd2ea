package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func SetupRoutes() http.Handler {
	r := chi.NewRouter()

	r.Post("/login", LoginHandler)
	r.Post("/logout", LogoutHandler)

	return r
}
