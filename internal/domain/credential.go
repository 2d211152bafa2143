// Package domain defines the core data model: credentials, tunnels, and
// pipeline runs, independent of how they are persisted or served.
package domain

import "time"

// Tier identifies a credential's privilege level.
type Tier string

const (
	TierOrchestrator Tier = "orchestrator"
	TierWorker       Tier = "worker"
)

// Credential is an opaque-key-keyed caller identity.
type Credential struct {
	Key         string    `json:"-"`
	Tier        Tier      `json:"tier"`
	Name        string    `json:"name"`
	Tunnel      string    `json:"tunnel,omitempty"`
	DailyLimit  int       `json:"dailyLimit"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
	CreatedBy   string    `json:"createdBy"`
}

// Redacted returns the first 8 characters of the key followed by an
// ellipsis, per the spec's redaction rule for credential listings.
func (c Credential) Redacted() string {
	if len(c.Key) <= 8 {
		return c.Key + "..."
	}
	return c.Key[:8] + "..."
}

// CallerContext is what the Authenticator attaches to a request once a
// credential has been validated.
type CallerContext struct {
	Name   string
	Tier   Tier
	Tunnel string
	Usage  int
	Limit  int
}
