package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/tunnelgate/gateway/internal/domain"
	"github.com/tunnelgate/gateway/internal/persist"
)

// tunnelRecord is the on-disk shape of one entry in the tunnel file:
// domain.Tunnel without its Name field (the name is the map key).
type tunnelRecord struct {
	Description          string              `json:"description,omitempty"`
	AllowedMethods       []string            `json:"allowed_methods"`
	AllowedPaths         []string            `json:"allowed_paths"`
	AllowedCommands      []string            `json:"allowed_commands"`
	ForbiddenKeywords    []string            `json:"forbidden_keywords"`
	CommandWhitelistMode domain.WhitelistMode `json:"command_whitelist_mode"`
	Pipeline             *domain.PipelineDef `json:"pipeline,omitempty"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

// TunnelRegistry is the keyed collection of tunnel policies (spec §2.2,
// §3 "Tunnel").
type TunnelRegistry struct {
	mu     sync.RWMutex
	byName map[string]domain.Tunnel
	path   string
}

// NewTunnelRegistry loads path if it exists (absent => empty registry,
// plus a built-in PublicViewer tunnel).
func NewTunnelRegistry(path string) (*TunnelRegistry, error) {
	r := &TunnelRegistry{
		byName: make(map[string]domain.Tunnel),
		path:   path,
	}
	if persist.Exists(path) {
		if err := r.reload(); err != nil {
			return nil, fmt.Errorf("loading tunnel file %s: %w", path, err)
		}
	}
	r.ensurePublicViewerLocked()
	return r, nil
}

// ensurePublicViewerLocked installs the built-in read-only default tunnel
// if it is not already defined on disk. Must be called without the lock
// held (it takes it itself) — only ever called from NewTunnelRegistry and
// Reload, after the file contents have been swapped in.
func (r *TunnelRegistry) ensurePublicViewerLocked() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[domain.PublicViewerTunnel]; ok {
		return
	}
	r.byName[domain.PublicViewerTunnel] = domain.Tunnel{
		Name:                 domain.PublicViewerTunnel,
		Description:          "Default read-only tunnel for workers with no assigned tunnel.",
		AllowedMethods:       []string{"GET"},
		AllowedPaths:         nil,
		AllowedCommands:      nil,
		ForbiddenKeywords:    nil,
		CommandWhitelistMode: domain.WhitelistStrict,
		CreatedAt:            time.Now().UTC(),
		UpdatedAt:            time.Now().UTC(),
	}
}

func (r *TunnelRegistry) reload() error {
	var raw map[string]tunnelRecord
	if err := persist.ReadJSON(r.path, &raw); err != nil {
		return err
	}
	next := make(map[string]domain.Tunnel, len(raw))
	for name, rec := range raw {
		next[name] = domain.Tunnel{
			Name:                 name,
			Description:          rec.Description,
			AllowedMethods:       rec.AllowedMethods,
			AllowedPaths:         rec.AllowedPaths,
			AllowedCommands:      rec.AllowedCommands,
			ForbiddenKeywords:    rec.ForbiddenKeywords,
			CommandWhitelistMode: rec.CommandWhitelistMode,
			Pipeline:             rec.Pipeline,
			CreatedAt:            rec.CreatedAt,
			UpdatedAt:            rec.UpdatedAt,
		}
	}

	r.mu.Lock()
	r.byName = next
	r.mu.Unlock()
	return nil
}

// Reload re-reads the tunnel file from disk. Used by the Config Watcher.
func (r *TunnelRegistry) Reload() error {
	if err := r.reload(); err != nil {
		return err
	}
	r.ensurePublicViewerLocked()
	return nil
}

// Lookup returns the tunnel named name, if any.
func (r *TunnelRegistry) Lookup(name string) (domain.Tunnel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byName[name]
	return t, ok
}

// List returns all tunnels.
func (r *TunnelRegistry) List() []domain.Tunnel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Tunnel, 0, len(r.byName))
	for _, t := range r.byName {
		out = append(out, t)
	}
	return out
}

// Names returns the names of all tunnels, used by the public /status
// endpoint.
func (r *TunnelRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byName))
	for name := range r.byName {
		out = append(out, name)
	}
	return out
}

// TunnelInput is the shallow-mergeable set of fields an orchestrator may
// supply when creating or updating a tunnel.
type TunnelInput struct {
	Name                 string
	Description          *string
	AllowedMethods       []string
	AllowedPaths         []string
	AllowedCommands      []string
	ForbiddenKeywords    []string
	CommandWhitelistMode domain.WhitelistMode
	Pipeline             *domain.PipelineDef
}

// Create adds a new tunnel, applying the spec's defaults for any field
// the caller did not supply.
func (r *TunnelRegistry) Create(in TunnelInput) (domain.Tunnel, error) {
	r.mu.RLock()
	_, exists := r.byName[in.Name]
	r.mu.RUnlock()
	if exists {
		return domain.Tunnel{}, fmt.Errorf("tunnel %q already exists", in.Name)
	}

	methods := in.AllowedMethods
	if methods == nil {
		methods = []string{"GET", "POST"}
	}
	mode := in.CommandWhitelistMode
	if mode == "" {
		mode = domain.WhitelistStrict
	}

	now := time.Now().UTC()
	t := domain.Tunnel{
		Name:                 in.Name,
		AllowedMethods:       methods,
		AllowedPaths:         orEmpty(in.AllowedPaths),
		AllowedCommands:      orEmpty(in.AllowedCommands),
		ForbiddenKeywords:    orEmpty(in.ForbiddenKeywords),
		CommandWhitelistMode: mode,
		Pipeline:             in.Pipeline,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if in.Description != nil {
		t.Description = *in.Description
	}

	r.mu.Lock()
	r.byName[t.Name] = t
	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	if err := persist.WriteJSON(r.path, snapshot); err != nil {
		return domain.Tunnel{}, fmt.Errorf("persisting tunnel registry: %w", err)
	}
	return t, nil
}

// Update shallow-merges the supplied fields into the named tunnel and
// stamps updated_at.
func (r *TunnelRegistry) Update(name string, in TunnelInput) (domain.Tunnel, error) {
	r.mu.Lock()
	t, ok := r.byName[name]
	if !ok {
		r.mu.Unlock()
		return domain.Tunnel{}, fmt.Errorf("tunnel %q not found", name)
	}

	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.AllowedMethods != nil {
		t.AllowedMethods = in.AllowedMethods
	}
	if in.AllowedPaths != nil {
		t.AllowedPaths = in.AllowedPaths
	}
	if in.AllowedCommands != nil {
		t.AllowedCommands = in.AllowedCommands
	}
	if in.ForbiddenKeywords != nil {
		t.ForbiddenKeywords = in.ForbiddenKeywords
	}
	if in.CommandWhitelistMode != "" {
		t.CommandWhitelistMode = in.CommandWhitelistMode
	}
	if in.Pipeline != nil {
		t.Pipeline = in.Pipeline
	}
	t.UpdatedAt = time.Now().UTC()

	r.byName[name] = t
	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	if err := persist.WriteJSON(r.path, snapshot); err != nil {
		return domain.Tunnel{}, fmt.Errorf("persisting tunnel registry: %w", err)
	}
	return t, nil
}

// Delete removes the named tunnel.
func (r *TunnelRegistry) Delete(name string) error {
	r.mu.Lock()
	if _, ok := r.byName[name]; !ok {
		r.mu.Unlock()
		return fmt.Errorf("tunnel %q not found", name)
	}
	delete(r.byName, name)
	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	return persist.WriteJSON(r.path, snapshot)
}

func (r *TunnelRegistry) snapshotLocked() map[string]tunnelRecord {
	out := make(map[string]tunnelRecord, len(r.byName))
	for name, t := range r.byName {
		out[name] = tunnelRecord{
			Description:          t.Description,
			AllowedMethods:       t.AllowedMethods,
			AllowedPaths:         t.AllowedPaths,
			AllowedCommands:      t.AllowedCommands,
			ForbiddenKeywords:    t.ForbiddenKeywords,
			CommandWhitelistMode: t.CommandWhitelistMode,
			Pipeline:             t.Pipeline,
			CreatedAt:            t.CreatedAt,
			UpdatedAt:            t.UpdatedAt,
		}
	}
	return out
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
