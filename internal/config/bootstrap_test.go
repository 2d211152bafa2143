package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tunnelgate/gateway/internal/store"
)

func TestBootstrap_NoPathIsNoOp(t *testing.T) {
	dir := t.TempDir()
	tunnels, err := store.NewTunnelRegistry(dir + "/tunnels.json")
	if err != nil {
		t.Fatalf("NewTunnelRegistry: %v", err)
	}
	creds, err := store.NewCredentialStore(dir + "/credentials.json")
	if err != nil {
		t.Fatalf("NewCredentialStore: %v", err)
	}

	if err := Bootstrap("", tunnels, creds); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if len(creds.List()) != 0 {
		t.Fatal("expected no credentials seeded with an empty path")
	}
}

func TestBootstrap_MissingFileIsNoOp(t *testing.T) {
	dir := t.TempDir()
	tunnels, _ := store.NewTunnelRegistry(dir + "/tunnels.json")
	creds, _ := store.NewCredentialStore(dir + "/credentials.json")

	if err := Bootstrap(dir+"/does-not-exist.yaml", tunnels, creds); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
}

func TestBootstrap_SeedsTunnelsAndCredentials(t *testing.T) {
	dir := t.TempDir()
	tunnels, _ := store.NewTunnelRegistry(dir + "/tunnels.json")
	creds, _ := store.NewCredentialStore(dir + "/credentials.json")

	seedPath := filepath.Join(dir, "bootstrap.yaml")
	seed := `
tunnels:
  - name: DevOps
    allowed_methods: ["POST"]
    allowed_commands: ["ls", "pwd"]
    command_whitelist_mode: strict
credentials:
  - name: admin
    tier: orchestrator
    daily_limit: 100000
`
	if err := os.WriteFile(seedPath, []byte(seed), 0o644); err != nil {
		t.Fatalf("writing seed file: %v", err)
	}

	if err := Bootstrap(seedPath, tunnels, creds); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	if _, ok := tunnels.Lookup("DevOps"); !ok {
		t.Fatal("expected DevOps tunnel to be seeded")
	}
	all := creds.List()
	if len(all) != 1 {
		t.Fatalf("expected 1 seeded credential, got %d", len(all))
	}
	if all[0].Name != "admin" {
		t.Fatalf("expected seeded credential named admin, got %q", all[0].Name)
	}
}

func TestBootstrap_SkipsWhenCredentialStoreNonEmpty(t *testing.T) {
	dir := t.TempDir()
	tunnels, _ := store.NewTunnelRegistry(dir + "/tunnels.json")
	creds, _ := store.NewCredentialStore(dir + "/credentials.json")
	if _, err := creds.Create("worker", "existing", "", 10, "test"); err != nil {
		t.Fatalf("seeding existing credential: %v", err)
	}

	seedPath := filepath.Join(dir, "bootstrap.yaml")
	seed := `
credentials:
  - name: admin
    tier: orchestrator
    daily_limit: 100000
`
	if err := os.WriteFile(seedPath, []byte(seed), 0o644); err != nil {
		t.Fatalf("writing seed file: %v", err)
	}

	if err := Bootstrap(seedPath, tunnels, creds); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	all := creds.List()
	if len(all) != 1 || all[0].Name != "existing" {
		t.Fatalf("expected bootstrap to be skipped, got %+v", all)
	}
}
