// Command gateway runs the tunnelgate policy-enforcement gateway: it
// validates and, for pipeline tunnels, sequences the operations an agent
// proposes, but never executes or forwards them itself.
package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tunnelgate/gateway/internal/api"
	"github.com/tunnelgate/gateway/internal/authn"
	"github.com/tunnelgate/gateway/internal/config"
	"github.com/tunnelgate/gateway/internal/events"
	"github.com/tunnelgate/gateway/internal/ledger"
	"github.com/tunnelgate/gateway/internal/pipeline"
	"github.com/tunnelgate/gateway/internal/policy"
	"github.com/tunnelgate/gateway/internal/store"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("starting tunnelgate")

	dataDir := envOr("DATA_DIR", ".")
	credentialsPath := envOr("CREDENTIALS_FILE", dataDir+"/credentials.json")
	tunnelsPath := envOr("TUNNELS_FILE", dataDir+"/tunnels.json")
	runsPath := envOr("PIPELINE_RUNS_FILE", dataDir+"/pipeline_runs.json")
	ledgerPath := envOr("LEDGER_DB", dataDir+"/ledger.db")
	listenAddr := envOr("LISTEN_ADDR", ":8080")

	creds, err := store.NewCredentialStore(credentialsPath)
	if err != nil {
		slog.Error("failed to load credential store", "error", err)
		os.Exit(1)
	}
	tunnels, err := store.NewTunnelRegistry(tunnelsPath)
	if err != nil {
		slog.Error("failed to load tunnel registry", "error", err)
		os.Exit(1)
	}
	runs, err := store.NewRunStore(runsPath)
	if err != nil {
		slog.Error("failed to load pipeline run store", "error", err)
		os.Exit(1)
	}

	if err := config.Bootstrap(os.Getenv("BOOTSTRAP_FILE"), tunnels, creds); err != nil {
		slog.Error("bootstrap seeding failed", "error", err)
		os.Exit(1)
	}

	db, err := ledger.Open(ledgerPath)
	if err != nil {
		slog.Error("failed to open ledger database", "error", err)
		os.Exit(1)
	}
	usage := ledger.NewUsageCounter(db)
	audit := ledger.NewAuditLog(db)
	settings := ledger.NewSettings(db)

	ids, err := pipeline.NewRunIDGenerator()
	if err != nil {
		slog.Error("failed to initialize run id generator", "error", err)
		os.Exit(1)
	}

	ev, err := events.Connect(os.Getenv("NATS_URL"), "tunnelgate")
	if err != nil {
		slog.Error("failed to connect to nats", "error", err)
		os.Exit(1)
	}
	defer ev.Close()

	watcher, err := config.New(map[string]config.Reloadable{
		credentialsPath: creds,
		tunnelsPath:     tunnels,
	}, ev)
	if err != nil {
		slog.Error("failed to start config watcher", "error", err)
		os.Exit(1)
	}
	go watcher.Run()
	defer watcher.Close()

	// A sibling gateway process sharing these same files publishes
	// gateway.config.reloaded when its own watcher applies an edit; pick
	// it up here too so this process's snapshot doesn't lag behind its
	// own fsnotify latency on a shared filesystem.
	unsubscribe, err := ev.Subscribe(events.ConfigReloaded, func(events.Event) {
		if err := creds.Reload(); err != nil {
			slog.Warn("credential reload after peer config change failed", "error", err)
		}
		if err := tunnels.Reload(); err != nil {
			slog.Warn("tunnel reload after peer config change failed", "error", err)
		}
	})
	if err != nil {
		slog.Error("failed to subscribe to config reload events", "error", err)
		os.Exit(1)
	}
	defer unsubscribe()

	srv := api.NewServer(api.Deps{
		Credentials: creds,
		Tunnels:     tunnels,
		Runs:        runs,
		Auth:        authn.New(creds, usage),
		Policy:      policy.New(),
		Machine:     pipeline.New(runs, tunnels, ids),
		Audit:       audit,
		Settings:    settings,
		Events:      ev,
	})

	go func() {
		if err := srv.Listen(listenAddr); err != nil {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down tunnelgate")
	if err := srv.Shutdown(); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	usage.Flush()
}
