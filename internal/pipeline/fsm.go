// Package pipeline implements the pipeline state machine: the sequenced
// sub-evaluator that turns a tunnel's ordered command list into an
// externally-persisted run no caller can tamper with (spec §4.3).
package pipeline

import (
	"strings"
	"time"

	"github.com/tunnelgate/gateway/internal/domain"
	"github.com/tunnelgate/gateway/internal/store"
)

// Reason codes returned by ValidateStep, matching the spec's error kinds.
const (
	ReasonRunNotFound    = "PipelineRunMissing"
	ReasonTerminal       = "PipelineTerminal"
	ReasonConfigGone     = "PipelineConfigGone"
	ReasonAllCompleted   = "PipelineAllCompleted"
	ReasonWrongStep      = "PipelineWrongStep"
)

// Machine is the pipeline state machine, bound to a RunStore and a
// TunnelRegistry (so it can detect a pipeline definition vanishing out
// from under a run — spec §4.3 step 4).
type Machine struct {
	Runs    *store.RunStore
	Tunnels *store.TunnelRegistry
	IDs     *RunIDGenerator
}

// New creates a Machine.
func New(runs *store.RunStore, tunnels *store.TunnelRegistry, ids *RunIDGenerator) *Machine {
	return &Machine{Runs: runs, Tunnels: tunnels, IDs: ids}
}

// StartResult is returned by StartRun.
type StartResult struct {
	RunID          string
	NextCommand    string
	NextDescription string
}

// StartRun allocates a fresh run for the named pipeline tunnel
// (orchestrator-only; the caller is responsible for checking tier).
func (m *Machine) StartRun(tunnelName, agentName string) (StartResult, error) {
	tunnel, ok := m.Tunnels.Lookup(tunnelName)
	if !ok {
		return StartResult{}, &Error{Reason: "TunnelUnknown", Message: "tunnel not found: " + tunnelName}
	}
	if !tunnel.IsPipeline() {
		return StartResult{}, &Error{Reason: "PipelineConfigGone", Message: "tunnel has no pipeline steps: " + tunnelName}
	}

	runID, err := m.IDs.Next()
	if err != nil {
		return StartResult{}, err
	}
	// The id counter restarts at run_1 in a new process; skip any id
	// already held by a run loaded from the pipeline state file.
	for {
		if _, taken := m.Runs.Lookup(runID); !taken {
			break
		}
		if runID, err = m.IDs.Next(); err != nil {
			return StartResult{}, err
		}
	}

	run := domain.PipelineRun{
		RunID:          runID,
		Pipeline:       tunnelName,
		Agent:          agentName,
		StartedAt:      time.Now().UTC(),
		CurrentStep:    0,
		Status:         domain.RunInProgress,
		StepsCompleted: []domain.ConfirmedStep{},
	}
	if err := m.Runs.Insert(run); err != nil {
		return StartResult{}, err
	}

	first := tunnel.Pipeline.Steps[0]
	return StartResult{RunID: runID, NextCommand: first.Command, NextDescription: first.Description}, nil
}

// Error is a structured pipeline denial, carrying enough detail for the
// caller to self-correct (spec §7: expected_command set iff
// PipelineWrongStep).
type Error struct {
	Reason   string
	Message  string
	Expected string
	Received string
}

func (e *Error) Error() string { return e.Message }

// ValidateResult is returned by ValidateStep on success.
type ValidateResult struct {
	StepIndex int
	StepCount int
}

// ValidateStep checks whether command is the next expected step of
// run_id's pipeline. It has no visible side effects on the run — the
// caller must invoke ConfirmStep separately once it has decided to honor
// the allow (spec §4.3 "commit discipline").
func (m *Machine) ValidateStep(runID, command string) (ValidateResult, error) {
	run, ok := m.Runs.Lookup(runID)
	if !ok {
		return ValidateResult{}, &Error{Reason: ReasonRunNotFound, Message: "Pipeline run '" + runID + "' not found"}
	}

	if run.Status == domain.RunCompleted {
		return ValidateResult{}, &Error{Reason: ReasonTerminal, Message: "pipeline run already completed"}
	}
	if run.Status == domain.RunAborted || run.Status == domain.RunFailed {
		return ValidateResult{}, &Error{Reason: ReasonTerminal, Message: "pipeline run is " + string(run.Status)}
	}

	tunnel, ok := m.Tunnels.Lookup(run.Pipeline)
	if !ok || !tunnel.IsPipeline() {
		return ValidateResult{}, &Error{Reason: ReasonConfigGone, Message: "Pipeline config no longer exists"}
	}
	steps := tunnel.Pipeline.Steps

	if run.CurrentStep >= len(steps) {
		m.coerceCompleted(runID)
		return ValidateResult{}, &Error{Reason: ReasonAllCompleted, Message: "All pipeline steps already completed"}
	}

	expected := steps[run.CurrentStep]
	if strings.TrimSpace(command) != strings.TrimSpace(expected.Command) {
		return ValidateResult{}, &Error{
			Reason:   ReasonWrongStep,
			Message:  "unexpected step",
			Expected: expected.Command,
			Received: command,
		}
	}

	return ValidateResult{StepIndex: run.CurrentStep, StepCount: len(steps)}, nil
}

// coerceCompleted transitions a run whose current_step has already run
// off the end of the pipeline (e.g. after a tunnel edit shortened the
// list) into the completed status, per spec §4.3 step 5.
func (m *Machine) coerceCompleted(runID string) {
	m.Runs.WithRunLock(runID, func(run *domain.PipelineRun, exists bool) bool {
		if !exists || run.Status != domain.RunInProgress {
			return false
		}
		run.Status = domain.RunCompleted
		now := time.Now().UTC()
		run.CompletedAt = &now
		return true
	})
}

// ConfirmResult is returned by ConfirmStep.
type ConfirmResult struct {
	Status      domain.RunStatus
	NextCommand string
	Completed   bool
}

// ConfirmStep commits the advance of runID after the caller's evaluator
// has allowed a step. It is the sole mutation point for a run's
// current_step (spec §4.3 "commit discipline"). It runs inside the
// per-run lock it acquires through RunStore.WithRunLock and re-checks the
// expected step there, so a second worker racing on the same run_id
// blocks here until this completes and is then denied as a wrong step.
func (m *Machine) ConfirmStep(runID, command string) (ConfirmResult, error) {
	var result ConfirmResult
	var stepErr error

	err := m.Runs.WithRunLock(runID, func(run *domain.PipelineRun, exists bool) bool {
		if !exists {
			stepErr = &Error{Reason: ReasonRunNotFound, Message: "Pipeline run '" + runID + "' not found"}
			return false
		}
		if run.IsTerminal() {
			stepErr = &Error{Reason: ReasonTerminal, Message: "pipeline run is " + string(run.Status)}
			return false
		}

		tunnel, ok := m.Tunnels.Lookup(run.Pipeline)
		if !ok || !tunnel.IsPipeline() {
			stepErr = &Error{Reason: ReasonConfigGone, Message: "Pipeline config no longer exists"}
			return false
		}
		steps := tunnel.Pipeline.Steps

		if run.CurrentStep >= len(steps) {
			stepErr = &Error{Reason: ReasonAllCompleted, Message: "All pipeline steps already completed"}
			return false
		}
		expected := steps[run.CurrentStep]
		if strings.TrimSpace(command) != strings.TrimSpace(expected.Command) {
			stepErr = &Error{Reason: ReasonWrongStep, Message: "unexpected step", Expected: expected.Command, Received: command}
			return false
		}

		now := time.Now().UTC()
		run.StepsCompleted = append(run.StepsCompleted, domain.ConfirmedStep{
			StepNumber:  run.CurrentStep + 1,
			Command:     expected.Command,
			ConfirmedAt: now,
		})
		run.CurrentStep++

		if run.CurrentStep == len(steps) {
			run.Status = domain.RunCompleted
			run.CompletedAt = &now
			result = ConfirmResult{Status: domain.RunCompleted, Completed: true}
		} else {
			result = ConfirmResult{Status: domain.RunInProgress, NextCommand: steps[run.CurrentStep].Command}
		}
		return true
	})

	if err != nil {
		return ConfirmResult{}, err
	}
	if stepErr != nil {
		return ConfirmResult{}, stepErr
	}
	return result, nil
}

// AbortRun marks runID as aborted (orchestrator-only).
func (m *Machine) AbortRun(runID string) error {
	var stepErr error
	err := m.Runs.WithRunLock(runID, func(run *domain.PipelineRun, exists bool) bool {
		if !exists {
			stepErr = &Error{Reason: ReasonRunNotFound, Message: "Pipeline run '" + runID + "' not found"}
			return false
		}
		if run.IsTerminal() {
			stepErr = &Error{Reason: ReasonTerminal, Message: "pipeline run is " + string(run.Status)}
			return false
		}
		now := time.Now().UTC()
		run.Status = domain.RunAborted
		run.AbortedAt = &now
		return true
	})
	if err != nil {
		return err
	}
	return stepErr
}
