// Package api implements the Fiber HTTP surface for the gateway: the
// public status endpoint, the worker policy-evaluation endpoint, and the
// orchestrator administration surface (spec §6.4).
package api

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// DenialResponse is the body for a 403 policy denial (spec §7):
// error, reason, tunnel, agent, and expected_command on a pipeline
// wrong-step denial.
type DenialResponse struct {
	Error           string `json:"error"`
	Reason          string `json:"reason"`
	Tunnel          string `json:"tunnel"`
	Agent           string `json:"agent"`
	ExpectedCommand string `json:"expected_command,omitempty"`
}

// AllowResponse is the body for a 200 allow.
type AllowResponse struct {
	Success     bool    `json:"success"`
	Tunnel      string  `json:"tunnel"`
	Agent       string  `json:"agent"`
	RunID       string  `json:"run_id,omitempty"`
	RunStatus   string  `json:"run_status,omitempty"`
	NextCommand *string `json:"next_command,omitempty"`
}

// pipelineDefInput is the wire shape of a tunnel's pipeline definition.
type pipelineDefInput struct {
	Steps []pipelineStepInput `json:"steps"`
}

type pipelineStepInput struct {
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
}

// CreateTunnelRequest is the payload for POST /orchestrator/tunnels/create.
type CreateTunnelRequest struct {
	Name                 string            `json:"name" validate:"required"`
	Description          string            `json:"description"`
	AllowedMethods       []string          `json:"allowed_methods"`
	AllowedPaths         []string          `json:"allowed_paths"`
	AllowedCommands      []string          `json:"allowed_commands"`
	ForbiddenKeywords    []string          `json:"forbidden_keywords"`
	CommandWhitelistMode string            `json:"command_whitelist_mode"`
	Pipeline             *pipelineDefInput `json:"pipeline,omitempty"`
}

// UpdateTunnelRequest is the payload for POST /orchestrator/tunnels/update.
// Every field but Name is optional: a nil slice or pointer leaves that
// field untouched (shallow merge, spec §4.4).
type UpdateTunnelRequest struct {
	Name                 string            `json:"name" validate:"required"`
	Description          *string           `json:"description"`
	AllowedMethods       []string          `json:"allowed_methods"`
	AllowedPaths         []string          `json:"allowed_paths"`
	AllowedCommands      []string          `json:"allowed_commands"`
	ForbiddenKeywords    []string          `json:"forbidden_keywords"`
	CommandWhitelistMode string            `json:"command_whitelist_mode"`
	Pipeline             *pipelineDefInput `json:"pipeline,omitempty"`
}

// DeleteTunnelRequest is the payload for POST /orchestrator/tunnels/delete.
type DeleteTunnelRequest struct {
	Name string `json:"name" validate:"required"`
}

// CreateCredentialRequest is the payload for POST /orchestrator/agents/create.
type CreateCredentialRequest struct {
	Name       string `json:"name" validate:"required"`
	Tier       string `json:"tier"`
	Tunnel     string `json:"tunnel"`
	DailyLimit int    `json:"daily_limit"`
}

// DeleteCredentialRequest is the payload for POST /orchestrator/agents/delete.
type DeleteCredentialRequest struct {
	Key string `json:"key" validate:"required"`
}

// CredentialView is a redacted credential, returned by the listing and
// single-credential endpoints (create returns the plaintext key instead).
type CredentialView struct {
	Key        string `json:"key"`
	Name       string `json:"name"`
	Tier       string `json:"tier"`
	Tunnel     string `json:"tunnel,omitempty"`
	DailyLimit int    `json:"daily_limit"`
	Active     bool   `json:"active"`
}

// StartPipelineRequest is the payload for POST /orchestrator/pipeline/start.
type StartPipelineRequest struct {
	Pipeline string `json:"pipeline" validate:"required"`
	Agent    string `json:"agent" validate:"required"`
}

// AbortPipelineRequest is the payload for POST /orchestrator/pipeline/reset.
type AbortPipelineRequest struct {
	RunID string `json:"run_id" validate:"required"`
}

// StatusResponse is the body for GET /status.
type StatusResponse struct {
	Status    string          `json:"status"`
	Mode      string          `json:"mode"`
	Tunnels   []string        `json:"tunnels"`
	Workers   int             `json:"workers"`
	Pipelines StatusPipelines `json:"pipelines"`
}

// StatusPipelines summarizes run counts for GET /status.
type StatusPipelines struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
}

// SettingRequest is the payload for PUT /orchestrator/settings.
type SettingRequest struct {
	Key   string `json:"key" validate:"required"`
	Value string `json:"value"`
}
