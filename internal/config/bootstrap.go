package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tunnelgate/gateway/internal/domain"
	"github.com/tunnelgate/gateway/internal/store"
)

// BootstrapFile is the shape of an optional YAML seed file (spec
// ambient-stack note: "an optional YAML bootstrap file can seed the
// tunnel and credential stores on first run"), generalizing the
// teacher's use of YAML for agent config serialization.
type BootstrapFile struct {
	Tunnels     []BootstrapTunnel     `yaml:"tunnels"`
	Credentials []BootstrapCredential `yaml:"credentials"`
}

// BootstrapTunnel seeds one tunnel.
type BootstrapTunnel struct {
	Name                 string               `yaml:"name"`
	Description          string               `yaml:"description"`
	AllowedMethods       []string             `yaml:"allowed_methods"`
	AllowedPaths         []string             `yaml:"allowed_paths"`
	AllowedCommands      []string             `yaml:"allowed_commands"`
	ForbiddenKeywords    []string             `yaml:"forbidden_keywords"`
	CommandWhitelistMode domain.WhitelistMode `yaml:"command_whitelist_mode"`
	Pipeline             *domain.PipelineDef  `yaml:"pipeline,omitempty"`
}

// BootstrapCredential seeds one credential. A fresh key is always minted
// at load time — the YAML file never names an existing key.
type BootstrapCredential struct {
	Name       string      `yaml:"name"`
	Tier       domain.Tier `yaml:"tier"`
	Tunnel     string      `yaml:"tunnel"`
	DailyLimit int         `yaml:"daily_limit"`
}

// Bootstrap seeds tunnels and credentials from path if, and only if, the
// credential store is currently empty — so a restart never re-seeds or
// duplicates entries the operator has since edited by hand. Minted keys
// are logged once, at Info level, since this is the only time the
// gateway will ever display them.
func Bootstrap(path string, tunnels *store.TunnelRegistry, creds *store.CredentialStore) error {
	if path == "" {
		return nil
	}
	if len(creds.List()) > 0 {
		slog.Info("bootstrap file present but credential store is non-empty, skipping", "path", path)
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading bootstrap file %s: %w", path, err)
	}

	var seed BootstrapFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parsing bootstrap file %s: %w", path, err)
	}

	for _, t := range seed.Tunnels {
		if _, ok := tunnels.Lookup(t.Name); ok {
			continue
		}
		desc := t.Description
		_, err := tunnels.Create(store.TunnelInput{
			Name:                 t.Name,
			Description:          &desc,
			AllowedMethods:       t.AllowedMethods,
			AllowedPaths:         t.AllowedPaths,
			AllowedCommands:      t.AllowedCommands,
			ForbiddenKeywords:    t.ForbiddenKeywords,
			CommandWhitelistMode: t.CommandWhitelistMode,
			Pipeline:             t.Pipeline,
		})
		if err != nil {
			return fmt.Errorf("seeding tunnel %s: %w", t.Name, err)
		}
		slog.Info("bootstrap: tunnel seeded", "tunnel", t.Name)
	}

	for _, cr := range seed.Credentials {
		tier := cr.Tier
		if tier != domain.TierOrchestrator {
			tier = domain.TierWorker
		}
		limit := cr.DailyLimit
		if limit <= 0 {
			limit = 1000
		}
		cred, err := creds.Create(tier, cr.Name, cr.Tunnel, limit, "bootstrap")
		if err != nil {
			return fmt.Errorf("seeding credential %s: %w", cr.Name, err)
		}
		slog.Info("bootstrap: credential seeded", "name", cred.Name, "tier", cred.Tier, "key", cred.Key)
	}

	return nil
}
