package policy

import (
	"testing"

	"github.com/tunnelgate/gateway/internal/domain"
)

func strictTunnel(commands, forbidden []string) *domain.Tunnel {
	return &domain.Tunnel{
		Name:                 "t",
		AllowedMethods:       []string{"GET", "POST"},
		AllowedCommands:      commands,
		ForbiddenKeywords:    forbidden,
		CommandWhitelistMode: domain.WhitelistStrict,
	}
}

func TestEvaluator_CheckMethod_AllowsListedMethod(t *testing.T) {
	e := New()
	tunnel := &domain.Tunnel{AllowedMethods: []string{"GET", "POST"}}

	d := e.CheckMethod(tunnel, "GET")
	if !d.Allowed {
		t.Fatalf("expected allowed, got denied: %s", d.Reason)
	}
}

func TestEvaluator_CheckMethod_DeniesUnlistedMethod(t *testing.T) {
	e := New()
	tunnel := &domain.Tunnel{AllowedMethods: []string{"GET"}}

	d := e.CheckMethod(tunnel, "DELETE")
	if d.Allowed {
		t.Fatal("expected DELETE to be denied")
	}
}

func TestEvaluator_CheckPath_EmptyAllowedPathsAllowsAll(t *testing.T) {
	e := New()
	tunnel := &domain.Tunnel{}

	d := e.CheckPath(tunnel, "/anything")
	if !d.Allowed {
		t.Fatalf("expected allowed, got denied: %s", d.Reason)
	}
}

func TestEvaluator_CheckPath_DeniesOutsidePrefix(t *testing.T) {
	e := New()
	tunnel := &domain.Tunnel{AllowedPaths: []string{"/deploy"}}

	d := e.CheckPath(tunnel, "/secrets")
	if d.Allowed {
		t.Fatal("expected /secrets to be denied")
	}
}

func TestEvaluator_CheckCommand_StrictModeExactMatch(t *testing.T) {
	e := New()
	tunnel := strictTunnel([]string{"ls", "pwd"}, nil)

	d := e.CheckCommand(tunnel, "ls")
	if !d.Allowed {
		t.Fatalf("expected allowed, got denied: %s", d.Reason)
	}
}

func TestEvaluator_CheckCommand_StrictModeAllowsArguments(t *testing.T) {
	e := New()
	tunnel := strictTunnel([]string{"ls"}, nil)

	d := e.CheckCommand(tunnel, "ls -la")
	if !d.Allowed {
		t.Fatalf("expected 'ls -la' to match whitelisted 'ls': %s", d.Reason)
	}
}

func TestEvaluator_CheckCommand_StrictModeRejectsLookalike(t *testing.T) {
	e := New()
	tunnel := strictTunnel([]string{"ls"}, nil)

	d := e.CheckCommand(tunnel, "ls-evil")
	if d.Allowed {
		t.Fatal("'ls-evil' should not match whitelisted 'ls'")
	}
}

func TestEvaluator_CheckCommand_StrictModeEmptyWhitelistDeniesAll(t *testing.T) {
	e := New()
	tunnel := strictTunnel(nil, nil)

	d := e.CheckCommand(tunnel, "ls")
	if d.Allowed {
		t.Fatal("empty AllowedCommands in strict mode should deny all")
	}
}

func TestEvaluator_CheckCommand_ForbiddenKeywordDenies(t *testing.T) {
	e := New()
	tunnel := &domain.Tunnel{CommandWhitelistMode: domain.WhitelistLax, ForbiddenKeywords: []string{"rm -rf"}}

	d := e.CheckCommand(tunnel, "rm -rf /tmp/x")
	if d.Allowed {
		t.Fatal("expected forbidden keyword to deny")
	}
}

func TestEvaluator_CheckCommand_ForbiddenKeywordCaseInsensitive(t *testing.T) {
	e := New()
	tunnel := &domain.Tunnel{CommandWhitelistMode: domain.WhitelistLax, ForbiddenKeywords: []string{"DROP TABLE"}}

	d := e.CheckCommand(tunnel, "drop table users")
	if d.Allowed {
		t.Fatal("forbidden keyword match should be case-insensitive")
	}
}

func TestEvaluator_CheckCommand_LaxModeWithNoForbiddenAllowsAnything(t *testing.T) {
	e := New()
	tunnel := &domain.Tunnel{CommandWhitelistMode: domain.WhitelistLax}

	d := e.CheckCommand(tunnel, "anything at all")
	if !d.Allowed {
		t.Fatalf("expected lax mode with no forbidden keywords to allow: %s", d.Reason)
	}
}

func TestExtractCommand_PrefersCommandOverURL(t *testing.T) {
	cmd := ExtractCommand(map[string]interface{}{"command": "ls", "url": "/ignored"})
	if cmd != "ls" {
		t.Fatalf("expected 'ls', got %q", cmd)
	}
}

func TestExtractCommand_FallsBackToURL(t *testing.T) {
	cmd := ExtractCommand(map[string]interface{}{"url": "/resource"})
	if cmd != "/resource" {
		t.Fatalf("expected '/resource', got %q", cmd)
	}
}

func TestExtractCommand_EmptyPayloadReturnsEmpty(t *testing.T) {
	if cmd := ExtractCommand(nil); cmd != "" {
		t.Fatalf("expected empty string, got %q", cmd)
	}
}

func TestBodyBearing(t *testing.T) {
	cases := map[string]bool{"GET": false, "POST": true, "PUT": true, "DELETE": false}
	for method, want := range cases {
		if got := BodyBearing(method); got != want {
			t.Fatalf("BodyBearing(%s) = %v, want %v", method, got, want)
		}
	}
}
