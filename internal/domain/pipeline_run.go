package domain

import "time"

// RunStatus is the lifecycle state of a PipelineRun.
type RunStatus string

const (
	RunInProgress RunStatus = "in_progress"
	RunCompleted  RunStatus = "completed"
	RunAborted    RunStatus = "aborted"
	RunFailed     RunStatus = "failed"
)

// ConfirmedStep records one committed advance of a pipeline run.
type ConfirmedStep struct {
	StepNumber  int       `json:"step_number"`
	Command     string    `json:"command"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

// PipelineRun is one live instance of executing a pipeline tunnel's
// command sequence.
type PipelineRun struct {
	RunID          string          `json:"run_id"`
	Pipeline       string          `json:"pipeline"`
	Agent          string          `json:"agent"`
	StartedAt      time.Time       `json:"started_at"`
	CurrentStep    int             `json:"current_step"`
	Status         RunStatus       `json:"status"`
	StepsCompleted []ConfirmedStep `json:"steps_completed"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	AbortedAt      *time.Time      `json:"aborted_at,omitempty"`
}

// IsTerminal reports whether the run no longer accepts submissions.
func (r *PipelineRun) IsTerminal() bool {
	return r.Status != RunInProgress
}
