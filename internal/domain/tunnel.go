package domain

import "time"

// WhitelistMode controls how a tunnel's allowed_commands are enforced.
type WhitelistMode string

const (
	WhitelistStrict WhitelistMode = "strict"
	WhitelistLax    WhitelistMode = "lax"
)

// PipelineStep is one ordered command in a pipeline tunnel's sequence.
type PipelineStep struct {
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
}

// PipelineDef is the ordered sequence a pipeline tunnel enforces.
type PipelineDef struct {
	Steps []PipelineStep `json:"steps"`
}

// Tunnel is a named policy bundle constraining what a worker assigned to
// it may do. A tunnel is either a policy tunnel (Pipeline == nil) or a
// pipeline tunnel (Pipeline.Steps non-empty).
type Tunnel struct {
	Name                string        `json:"-"`
	Description         string        `json:"description,omitempty"`
	AllowedMethods      []string      `json:"allowed_methods"`
	AllowedPaths        []string      `json:"allowed_paths"`
	AllowedCommands     []string      `json:"allowed_commands"`
	ForbiddenKeywords   []string      `json:"forbidden_keywords"`
	CommandWhitelistMode WhitelistMode `json:"command_whitelist_mode"`
	Pipeline            *PipelineDef  `json:"pipeline,omitempty"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

// IsPipeline reports whether this tunnel is a pipeline tunnel.
func (t *Tunnel) IsPipeline() bool {
	return t.Pipeline != nil && len(t.Pipeline.Steps) > 0
}

// AllowsMethod reports whether method is permitted by this tunnel.
func (t *Tunnel) AllowsMethod(method string) bool {
	for _, m := range t.AllowedMethods {
		if m == "*" || m == method {
			return true
		}
	}
	return false
}

// AllowsPath reports whether path is permitted by this tunnel. An empty
// AllowedPaths list means "all paths".
func (t *Tunnel) AllowsPath(path string) bool {
	if len(t.AllowedPaths) == 0 {
		return true
	}
	for _, prefix := range t.AllowedPaths {
		if hasPathPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func hasPathPrefix(path, prefix string) bool {
	return len(path) >= len(prefix) && path[:len(prefix)] == prefix
}

// PublicViewerTunnel is the name of the designated read-only tunnel used
// when a worker credential carries no tunnel assignment.
const PublicViewerTunnel = "PublicViewer"
