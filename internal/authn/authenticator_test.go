package authn

import (
	"testing"

	"github.com/tunnelgate/gateway/internal/domain"
	"github.com/tunnelgate/gateway/internal/ledger"
	"github.com/tunnelgate/gateway/internal/store"
)

func newTestAuthenticator(t *testing.T) (*Authenticator, *store.CredentialStore) {
	t.Helper()
	dir := t.TempDir()
	creds, err := store.NewCredentialStore(dir + "/credentials.json")
	if err != nil {
		t.Fatalf("NewCredentialStore: %v", err)
	}
	db, err := ledger.Open(":memory:")
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	usage := ledger.NewUsageCounter(db)
	return New(creds, usage), creds
}

func TestAuthenticate_MissingKeyDenied(t *testing.T) {
	a, _ := newTestAuthenticator(t)

	res := a.Authenticate("")
	if !res.Denied || res.StatusCode != 401 {
		t.Fatalf("expected 401 denial, got %+v", res)
	}
}

func TestAuthenticate_UnknownKeyDenied(t *testing.T) {
	a, _ := newTestAuthenticator(t)

	res := a.Authenticate("wrk_bogus")
	if !res.Denied || res.StatusCode != 401 {
		t.Fatalf("expected 401 denial, got %+v", res)
	}
}

func TestAuthenticate_RevokedKeyDenied(t *testing.T) {
	a, creds := newTestAuthenticator(t)
	cred, err := creds.Create(domain.TierWorker, "worker-1", "", 100, "test")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := creds.Delete(cred.Key); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	res := a.Authenticate(cred.Key)
	if !res.Denied || res.StatusCode != 401 {
		t.Fatalf("expected 401 for a deleted/revoked key, got %+v", res)
	}
}

func TestAuthenticate_ValidKeyAttachesCaller(t *testing.T) {
	a, creds := newTestAuthenticator(t)
	cred, err := creds.Create(domain.TierWorker, "worker-1", "DevOps", 100, "test")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	res := a.Authenticate(cred.Key)
	if res.Denied {
		t.Fatalf("expected allow, got denial: %s", res.Message)
	}
	if res.Caller.Name != "worker-1" || res.Caller.Tunnel != "DevOps" || res.Caller.Tier != domain.TierWorker {
		t.Fatalf("unexpected caller context: %+v", res.Caller)
	}
	if res.Caller.Usage != 1 {
		t.Fatalf("expected usage 1 after first request, got %d", res.Caller.Usage)
	}
	if res.Remaining != 99 {
		t.Fatalf("expected 99 remaining, got %d", res.Remaining)
	}
}

func TestAuthenticate_DailyLimitEnforced(t *testing.T) {
	a, creds := newTestAuthenticator(t)
	cred, err := creds.Create(domain.TierWorker, "worker-1", "", 2, "test")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	for i := 0; i < 2; i++ {
		res := a.Authenticate(cred.Key)
		if res.Denied {
			t.Fatalf("request %d: unexpected denial: %s", i, res.Message)
		}
	}

	res := a.Authenticate(cred.Key)
	if !res.Denied || res.StatusCode != 429 {
		t.Fatalf("expected 429 on the third request, got %+v", res)
	}
}
