package store

import (
	"encoding/base64"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/tunnelgate/gateway/internal/domain"
	"github.com/tunnelgate/gateway/internal/persist"
)

// credentialRecord is the on-disk shape of one entry in the credential
// file: domain.Credential without its Key field (the key is the map key).
type credentialRecord struct {
	Tier       domain.Tier `json:"tier"`
	Name       string      `json:"name"`
	Tunnel     string      `json:"tunnel,omitempty"`
	DailyLimit int         `json:"dailyLimit"`
	Active     bool        `json:"active"`
	CreatedAt  time.Time   `json:"createdAt"`
	CreatedBy  string      `json:"createdBy"`
}

// CredentialStore is the keyed collection of caller credentials (spec
// §2.1, §3 "Credential"). Reads take the shared lock; mutations
// (orchestrator actions, watcher reloads) take the exclusive lock.
type CredentialStore struct {
	mu     sync.RWMutex
	byKey  map[string]domain.Credential
	path   string
	minter *KeyMinter
}

// NewCredentialStore loads path if it exists (absent => empty store) and
// prepares a KeyMinter whose signing secret is persisted alongside the
// credential file so minted keys keep verifying across restarts.
func NewCredentialStore(path string) (*CredentialStore, error) {
	s := &CredentialStore{
		byKey: make(map[string]domain.Credential),
		path:  path,
	}

	secret, err := loadOrCreateSecret(path + ".key")
	if err != nil {
		return nil, fmt.Errorf("loading key-minter secret: %w", err)
	}
	s.minter = NewKeyMinter(secret)

	if persist.Exists(path) {
		if err := s.reload(); err != nil {
			return nil, fmt.Errorf("loading credential file %s: %w", path, err)
		}
	}
	return s, nil
}

func loadOrCreateSecret(path string) ([]byte, error) {
	if data, err := os.ReadFile(path); err == nil {
		return base64.RawURLEncoding.DecodeString(string(data))
	}
	m := NewKeyMinter(nil)
	encoded := base64.RawURLEncoding.EncodeToString(m.secret)
	if err := os.WriteFile(path, []byte(encoded), 0o600); err != nil {
		return nil, err
	}
	return m.secret, nil
}

func (s *CredentialStore) reload() error {
	var raw map[string]credentialRecord
	if err := persist.ReadJSON(s.path, &raw); err != nil {
		return err
	}
	next := make(map[string]domain.Credential, len(raw))
	for key, rec := range raw {
		next[key] = domain.Credential{
			Key:        key,
			Tier:       rec.Tier,
			Name:       rec.Name,
			Tunnel:     rec.Tunnel,
			DailyLimit: rec.DailyLimit,
			Active:     rec.Active,
			CreatedAt:  rec.CreatedAt,
			CreatedBy:  rec.CreatedBy,
		}
	}

	s.mu.Lock()
	s.byKey = next
	s.mu.Unlock()
	return nil
}

// Reload re-reads the credential file from disk, replacing the in-memory
// map atomically. Used by the Config Watcher (spec §4.6).
func (s *CredentialStore) Reload() error {
	return s.reload()
}

// VerifyKey checks that key was minted by this store's KeyMinter and has
// not been tampered with, without consulting the in-memory map. Callers
// should run this before Lookup so a corrupted or hand-edited key fails
// signature verification before a map lookup is even attempted.
func (s *CredentialStore) VerifyKey(key string) bool {
	return s.minter.Verify(key)
}

// Lookup returns the credential for key, if any.
func (s *CredentialStore) Lookup(key string) (domain.Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byKey[key]
	return c, ok
}

// List returns every credential, orchestrator and worker alike (used by
// the orchestrator listing endpoint, /status and Bootstrap; keys are
// redacted by the caller, not here).
func (s *CredentialStore) List() []domain.Credential {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Credential, 0, len(s.byKey))
	for _, c := range s.byKey {
		out = append(out, c)
	}
	return out
}

// FindByPrefix returns the credential whose key starts with prefix (the
// redacted form shown in listings), for the supplemental
// GET /orchestrator/agents/:key8 endpoint.
func (s *CredentialStore) FindByPrefix(prefix string) (domain.Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for key, c := range s.byKey {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			return c, true
		}
	}
	return domain.Credential{}, false
}

// Create mints a new key for the given tier/name/tunnel, persists the
// updated store, and returns the full Credential (with its plaintext key
// — the only time the caller sees it).
func (s *CredentialStore) Create(tier domain.Tier, name, tunnel string, dailyLimit int, createdBy string) (domain.Credential, error) {
	key, err := s.minter.Mint(tier, name, tunnel)
	if err != nil {
		return domain.Credential{}, fmt.Errorf("minting key: %w", err)
	}

	cred := domain.Credential{
		Key:        key,
		Tier:       tier,
		Name:       name,
		Tunnel:     tunnel,
		DailyLimit: dailyLimit,
		Active:     true,
		CreatedAt:  time.Now().UTC(),
		CreatedBy:  createdBy,
	}

	s.mu.Lock()
	s.byKey[key] = cred
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if err := persist.WriteJSON(s.path, snapshot); err != nil {
		return domain.Credential{}, fmt.Errorf("persisting credential store: %w", err)
	}
	return cred, nil
}

// Delete revokes (removes) the credential with the given key.
func (s *CredentialStore) Delete(key string) error {
	s.mu.Lock()
	if _, ok := s.byKey[key]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("credential %q not found", key)
	}
	delete(s.byKey, key)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	return persist.WriteJSON(s.path, snapshot)
}

// snapshotLocked must be called with s.mu held.
func (s *CredentialStore) snapshotLocked() map[string]credentialRecord {
	out := make(map[string]credentialRecord, len(s.byKey))
	for key, c := range s.byKey {
		out[key] = credentialRecord{
			Tier:       c.Tier,
			Name:       c.Name,
			Tunnel:     c.Tunnel,
			DailyLimit: c.DailyLimit,
			Active:     c.Active,
			CreatedAt:  c.CreatedAt,
			CreatedBy:  c.CreatedBy,
		}
	}
	return out
}
