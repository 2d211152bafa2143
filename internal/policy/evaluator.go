// Package policy implements the per-tunnel policy evaluator (spec §4.2):
// method, path, command whitelist, and forbidden-keyword checks applied
// in a fixed order, the first failure winning.
package policy

import (
	"strings"

	"github.com/tunnelgate/gateway/internal/domain"
)

// Decision is the outcome of a policy evaluation.
type Decision struct {
	Allowed        bool
	Reason         string
	ExpectedCommand string // set only for a pipeline wrong-step denial
}

// Allow returns an allowing Decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny returns a denying Decision with the given human-readable reason.
func Deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// Evaluator evaluates worker requests against tunnel policy (spec §4.2).
// It does not itself decide pipeline dispatch — callers check
// tunnel.IsPipeline() and a run_id in the payload before reaching for the
// pipeline state machine; CheckMethod, CheckPath and CheckCommand below
// cover everything that happens before and instead of that.
type Evaluator struct{}

// New creates an Evaluator. It holds no state: it is a pure function of
// its arguments (spec §8 "Deterministic evaluation").
func New() *Evaluator {
	return &Evaluator{}
}

// CheckMethod applies spec §4.2 step 2.
func (e *Evaluator) CheckMethod(tunnel *domain.Tunnel, method string) Decision {
	if !tunnel.AllowsMethod(method) {
		return Deny("Method " + method + " not allowed")
	}
	return Allow()
}

// CheckPath applies spec §4.2 step 3. path must already have its query
// string stripped.
func (e *Evaluator) CheckPath(tunnel *domain.Tunnel, path string) Decision {
	if !tunnel.AllowsPath(path) {
		return Deny("Path " + path + " not allowed")
	}
	return Allow()
}

// CheckCommand applies spec §4.2 step 4's strict-whitelist and
// forbidden-keyword checks (steps 4b/4c — pipeline dispatch, step 4a, is
// handled by the caller before this is reached). command is the
// extracted canonical command string (payload.command ?? payload.url).
func (e *Evaluator) CheckCommand(tunnel *domain.Tunnel, command string) Decision {
	if tunnel.CommandWhitelistMode == domain.WhitelistStrict {
		if len(tunnel.AllowedCommands) == 0 {
			return Deny("No commands allowed in strict mode")
		}
		if !matchesWhitelist(command, tunnel.AllowedCommands) {
			return Deny("Command '" + command + "' not in whitelist")
		}
	}

	if kw, found := findForbiddenKeyword(command, tunnel.ForbiddenKeywords); found {
		return Deny("Forbidden keyword '" + kw + "' detected")
	}

	return Allow()
}

// matchesWhitelist reports whether command matches one of allowed's
// entries: either an exact match (after trimming) or a prefix match
// followed by a mandatory space, so "ls-evil" cannot sneak past an
// allow-"ls" policy while "ls -la" is permitted.
func matchesWhitelist(command string, allowed []string) bool {
	trimmed := strings.TrimSpace(command)
	for _, c := range allowed {
		c = strings.TrimSpace(c)
		if trimmed == c || strings.HasPrefix(trimmed, c+" ") {
			return true
		}
	}
	return false
}

// findForbiddenKeyword returns the first forbidden keyword that occurs
// as a case-insensitive substring of command.
func findForbiddenKeyword(command string, keywords []string) (string, bool) {
	lower := strings.ToLower(command)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return kw, true
		}
	}
	return "", false
}

// ExtractCommand implements the canonical-command extraction of spec
// §4.2: payload.command ?? payload.url ?? "".
func ExtractCommand(payload map[string]interface{}) string {
	if v, ok := payload["command"]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	if v, ok := payload["url"]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// BodyBearing reports whether method is one whose body the evaluator
// must inspect (spec §4.2: "applied iff method ∈ {POST, PUT}").
func BodyBearing(method string) bool {
	return method == "POST" || method == "PUT"
}
