// Package authn implements the Authenticator (spec §4.1): validates the
// x-api-key header, enforces the per-key daily rate limit, and attaches
// caller identity to the request.
package authn

import (
	"time"

	"github.com/tunnelgate/gateway/internal/domain"
	"github.com/tunnelgate/gateway/internal/ledger"
	"github.com/tunnelgate/gateway/internal/store"
)

// Result is the outcome of Authenticate.
type Result struct {
	Caller     domain.CallerContext
	Denied     bool
	StatusCode int
	Message    string

	// Rate-limit headers, filled on an allow and on a 429; left zero on a
	// 401 denial.
	Limit     int
	Remaining int
	ResetAt   time.Time // only meaningful when the limit was hit
}

// Authenticator validates credentials and enforces the daily request cap.
type Authenticator struct {
	Credentials *store.CredentialStore
	Usage       *ledger.UsageCounter
}

// New creates an Authenticator.
func New(creds *store.CredentialStore, usage *ledger.UsageCounter) *Authenticator {
	return &Authenticator{Credentials: creds, Usage: usage}
}

// Authenticate validates apiKey and, if allowed, increments its daily
// usage counter. It never distinguishes "unknown" from "revoked" beyond
// the literal messages the spec requires (so logs may say more than the
// response body, but the response stays within the spec's wording).
func (a *Authenticator) Authenticate(apiKey string) Result {
	if apiKey == "" {
		return Result{Denied: true, StatusCode: 401, Message: "Missing x-api-key header"}
	}

	if !a.Credentials.VerifyKey(apiKey) {
		return Result{Denied: true, StatusCode: 401, Message: "Invalid API key"}
	}

	cred, ok := a.Credentials.Lookup(apiKey)
	if !ok {
		return Result{Denied: true, StatusCode: 401, Message: "Invalid API key"}
	}
	if !cred.Active {
		return Result{Denied: true, StatusCode: 401, Message: "API key has been revoked"}
	}

	count, resetAt := a.Usage.Peek(apiKey)
	if count >= cred.DailyLimit {
		return Result{
			Denied:     true,
			StatusCode: 429,
			Message:    "rate limit exceeded",
			Limit:      cred.DailyLimit,
			Remaining:  0,
			ResetAt:    resetAt,
		}
	}

	newCount, _ := a.Usage.Increment(apiKey)
	remaining := cred.DailyLimit - newCount
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Caller: domain.CallerContext{
			Name:   cred.Name,
			Tier:   cred.Tier,
			Tunnel: cred.Tunnel,
			Usage:  newCount,
			Limit:  cred.DailyLimit,
		},
		Limit:     cred.DailyLimit,
		Remaining: remaining,
	}
}
