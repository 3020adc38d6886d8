// Package server exposes the account flows over HTTP.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/EdouardYu/ZeroDay/internal/server/middleware"
)

// AccountFlows is the account service surface the handlers call.
type AccountFlows interface {
	SignUp(ctx context.Context, email, username, password string) error
	Activate(ctx context.Context, email, code string) error
	NewActivationCode(ctx context.Context, email string) error
	SignIn(ctx context.Context, email, password, deviceID string) (string, error)
	SignOut(ctx context.Context, userID int64) error
	ResetPassword(ctx context.Context, email string) error
	NewPassword(ctx context.Context, email, code, password string) error
}

// DeviceIDs hands out the per-browser device identifier used by the throttle.
type DeviceIDs interface {
	EnsureDeviceID(w http.ResponseWriter, r *http.Request) (string, error)
}

// Server routes HTTP requests to the account flows.
type Server struct {
	flows   AccountFlows
	devices DeviceIDs
	tokens  middleware.Validator
}

// New returns a Server over the given services.
func New(flows AccountFlows, devices DeviceIDs, tokens middleware.Validator) *Server {
	return &Server{flows: flows, devices: devices, tokens: tokens}
}

// Router builds the chi router with all routes mounted.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Post("/signup", s.handleSignUp)
	r.Post("/activate", s.handleActivate)
	r.Post("/activate/new", s.handleNewActivationCode)
	r.Post("/signin", s.handleSignIn)
	r.Post("/password/reset", s.handleResetPassword)
	r.Post("/password/new", s.handleNewPassword)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(s.tokens))
		r.Post("/signout", s.handleSignOut)
	})

	return r
}
