// Command devserver runs the gateway against a throwaway temp directory
// and an in-memory ledger database, for integration testing without any
// external dependencies (adapted from the teacher's cmd/testserver).
package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tunnelgate/gateway/internal/api"
	"github.com/tunnelgate/gateway/internal/authn"
	"github.com/tunnelgate/gateway/internal/events"
	"github.com/tunnelgate/gateway/internal/ledger"
	"github.com/tunnelgate/gateway/internal/pipeline"
	"github.com/tunnelgate/gateway/internal/policy"
	"github.com/tunnelgate/gateway/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("starting tunnelgate devserver")

	dir, err := os.MkdirTemp("", "tunnelgate-dev-*")
	if err != nil {
		slog.Error("failed to create temp dir", "error", err)
		os.Exit(1)
	}
	defer os.RemoveAll(dir)

	creds, err := store.NewCredentialStore(dir + "/credentials.json")
	if err != nil {
		slog.Error("failed to load credential store", "error", err)
		os.Exit(1)
	}
	tunnels, err := store.NewTunnelRegistry(dir + "/tunnels.json")
	if err != nil {
		slog.Error("failed to load tunnel registry", "error", err)
		os.Exit(1)
	}
	runs, err := store.NewRunStore(dir + "/pipeline_runs.json")
	if err != nil {
		slog.Error("failed to load pipeline run store", "error", err)
		os.Exit(1)
	}

	db, err := ledger.Open(":memory:")
	if err != nil {
		slog.Error("failed to open ledger database", "error", err)
		os.Exit(1)
	}
	usage := ledger.NewUsageCounter(db)

	ids, err := pipeline.NewRunIDGenerator()
	if err != nil {
		slog.Error("failed to initialize run id generator", "error", err)
		os.Exit(1)
	}

	listenAddr := os.Getenv("LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = ":3333"
	}

	srv := api.NewServer(api.Deps{
		Credentials: creds,
		Tunnels:     tunnels,
		Runs:        runs,
		Auth:        authn.New(creds, usage),
		Policy:      policy.New(),
		Machine:     pipeline.New(runs, tunnels, ids),
		Audit:       ledger.NewAuditLog(db),
		Settings:    ledger.NewSettings(db),
		Events:      (*events.Client)(nil),
	})

	go func() {
		if err := srv.Listen(listenAddr); err != nil {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down devserver")
	if err := srv.Shutdown(); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
