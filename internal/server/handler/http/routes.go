// Package http provides HTTP routing and middleware configuration
// for the mottokeeper service.
package http

import (
	"net/http"

	"github.com/atinyakov/mottokeeper/internal/common"
	"github.com/atinyakov/mottokeeper/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// maxJSONBody caps register and login payloads.
const maxJSONBody = 1 << 20

// NewRouter constructs and returns an HTTP handler that serves
// the mottokeeper API.
//
// Routes:
//
//	GET  /          → health document
//	POST /register  → authHandler.Register
//	POST /login     → authHandler.Login
//	GET  /user      → userHandler.Get (bearer token)
//	POST /upload    → uploadHandler.Upload (bearer token)
//
// Middleware chain (applied in order):
//  1. RequestID, WithRequestLogging(logger), Recoverer
//  2. CORS for any origin
//  3. versionGate, rejecting outdated clients before routing
//  4. Authenticate(gate) on the protected group
func NewRouter(
	authHandler *AuthHandler,
	userHandler *UserHandler,
	uploadHandler *UploadHandler,
	gate middleware.Authenticator,
	versionGate func(http.Handler) http.Handler,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", middleware.AppVersionHeader},
		MaxAge:         300,
	}))
	if versionGate != nil {
		r.Use(versionGate)
	}

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		common.WriteJSON(w, http.StatusOK, map[string]int{"status": http.StatusOK})
	})

	// Public JSON endpoints
	r.Group(func(r chi.Router) {
		r.Use(chiMiddleware.AllowContentType("application/json"))
		r.Use(chiMiddleware.RequestSize(maxJSONBody))
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
	})

	// Protected group: requires a valid bearer token
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(gate))
		r.Get("/user", userHandler.Get)
		r.Post("/upload", uploadHandler.Upload)
	})

	return r
}
