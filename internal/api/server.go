package api

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/tunnelgate/gateway/internal/authn"
	"github.com/tunnelgate/gateway/internal/events"
	"github.com/tunnelgate/gateway/internal/ledger"
	"github.com/tunnelgate/gateway/internal/pipeline"
	"github.com/tunnelgate/gateway/internal/policy"
	"github.com/tunnelgate/gateway/internal/store"
)

// Server holds dependencies for the HTTP API.
type Server struct {
	App *fiber.App

	Credentials *store.CredentialStore
	Tunnels     *store.TunnelRegistry
	Runs        *store.RunStore

	Auth     *authn.Authenticator
	Policy   *policy.Evaluator
	Machine  *pipeline.Machine
	Audit    *ledger.AuditLog
	Settings *ledger.Settings
	Events   *events.Client
}

// Deps bundles everything NewServer needs to wire the API.
type Deps struct {
	Credentials *store.CredentialStore
	Tunnels     *store.TunnelRegistry
	Runs        *store.RunStore
	Auth        *authn.Authenticator
	Policy      *policy.Evaluator
	Machine     *pipeline.Machine
	Audit       *ledger.AuditLog
	Settings    *ledger.Settings
	Events      *events.Client
}

// NewServer creates a Fiber app with middleware and registers all routes.
func NewServer(d Deps) *Server {
	app := fiber.New(fiber.Config{
		AppName:      "tunnelgate",
		ErrorHandler: globalErrorHandler,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(corsHeaders())
	app.Use(requestLogger())

	s := &Server{
		App:         app,
		Credentials: d.Credentials,
		Tunnels:     d.Tunnels,
		Runs:        d.Runs,
		Auth:        d.Auth,
		Policy:      d.Policy,
		Machine:     d.Machine,
		Audit:       d.Audit,
		Settings:    d.Settings,
		Events:      d.Events,
	}

	s.registerRoutes()
	return s
}

// Listen starts the HTTP server on the given address.
func (s *Server) Listen(addr string) error {
	slog.Info("starting HTTP server", "addr", addr)
	return s.App.Listen(addr)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown() error {
	slog.Info("shutting down HTTP server")
	return s.App.Shutdown()
}
