package store

import (
	"sync"
	"testing"
	"time"

	"github.com/tunnelgate/gateway/internal/domain"
)

func TestRunStore_InsertAndLookup(t *testing.T) {
	dir := t.TempDir()
	s, err := NewRunStore(dir + "/runs.json")
	if err != nil {
		t.Fatalf("NewRunStore: %v", err)
	}

	run := domain.PipelineRun{
		RunID:     "run_1",
		Pipeline:  "Deploy",
		Agent:     "agent-1",
		StartedAt: time.Now().UTC(),
		Status:    domain.RunInProgress,
	}
	if err := s.Insert(run); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, ok := s.Lookup("run_1")
	if !ok {
		t.Fatal("expected to find the inserted run")
	}
	if got.Pipeline != "Deploy" || got.Agent != "agent-1" {
		t.Fatalf("unexpected run: %+v", got)
	}
}

func TestRunStore_Aggregate(t *testing.T) {
	dir := t.TempDir()
	s, err := NewRunStore(dir + "/runs.json")
	if err != nil {
		t.Fatalf("NewRunStore: %v", err)
	}

	s.Insert(domain.PipelineRun{RunID: "run_1", Status: domain.RunInProgress})
	s.Insert(domain.PipelineRun{RunID: "run_2", Status: domain.RunCompleted})
	s.Insert(domain.PipelineRun{RunID: "run_3", Status: domain.RunCompleted})

	total, completed := s.Aggregate()
	if total != 3 {
		t.Fatalf("total: got %d, want 3", total)
	}
	if completed != 2 {
		t.Fatalf("completed: got %d, want 2", completed)
	}
}

func TestRunStore_WithRunLock_NoOpWhenUnchanged(t *testing.T) {
	dir := t.TempDir()
	s, err := NewRunStore(dir + "/runs.json")
	if err != nil {
		t.Fatalf("NewRunStore: %v", err)
	}
	s.Insert(domain.PipelineRun{RunID: "run_1", CurrentStep: 0, Status: domain.RunInProgress})

	err = s.WithRunLock("run_1", func(run *domain.PipelineRun, exists bool) bool {
		if !exists {
			t.Fatal("expected run to exist")
		}
		run.CurrentStep = 5 // mutated the copy, but signal no change
		return false
	})
	if err != nil {
		t.Fatalf("WithRunLock: %v", err)
	}

	got, _ := s.Lookup("run_1")
	if got.CurrentStep != 0 {
		t.Fatalf("expected CurrentStep unchanged when fn returns false, got %d", got.CurrentStep)
	}
}

func TestRunStore_WithRunLock_PersistsOnChange(t *testing.T) {
	dir := t.TempDir()
	s, err := NewRunStore(dir + "/runs.json")
	if err != nil {
		t.Fatalf("NewRunStore: %v", err)
	}
	s.Insert(domain.PipelineRun{RunID: "run_1", CurrentStep: 0, Status: domain.RunInProgress})

	err = s.WithRunLock("run_1", func(run *domain.PipelineRun, exists bool) bool {
		run.CurrentStep = 1
		return true
	})
	if err != nil {
		t.Fatalf("WithRunLock: %v", err)
	}

	got, _ := s.Lookup("run_1")
	if got.CurrentStep != 1 {
		t.Fatalf("expected CurrentStep == 1, got %d", got.CurrentStep)
	}
}

func TestRunStore_WithRunLock_SerializesConcurrentCallers(t *testing.T) {
	dir := t.TempDir()
	s, err := NewRunStore(dir + "/runs.json")
	if err != nil {
		t.Fatalf("NewRunStore: %v", err)
	}
	s.Insert(domain.PipelineRun{RunID: "run_1", CurrentStep: 0, Status: domain.RunInProgress})

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			s.WithRunLock("run_1", func(run *domain.PipelineRun, exists bool) bool {
				run.CurrentStep++
				return true
			})
		}()
	}
	wg.Wait()

	got, _ := s.Lookup("run_1")
	if got.CurrentStep != n {
		t.Fatalf("expected %d increments to land without loss, got %d", n, got.CurrentStep)
	}
}
