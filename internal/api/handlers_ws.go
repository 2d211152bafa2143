package api

import (
	"encoding/json"
	"time"

	"github.com/gofiber/contrib/websocket"
)

// StreamPipelineRun streams a pipeline run's state over WebSocket
// (SPEC_FULL.md "supplemental features" #2), pushing an update whenever
// current_step or status changes and closing once the run reaches a
// terminal status. Polls the run store directly rather than depending on
// NATS, since the gateway must work the same with or without NATS_URL
// configured.
func (s *Server) StreamPipelineRun(c *websocket.Conn) {
	runID := c.Params("run_id")
	defer c.Close()

	run, ok := s.Runs.Lookup(runID)
	if !ok {
		_ = c.WriteMessage(websocket.TextMessage, []byte(`{"error":"pipeline run not found"}`))
		return
	}

	done := make(chan struct{})
	go func() {
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				close(done)
				return
			}
		}
	}()

	lastStep := -1
	var lastStatus string
	push := func() bool {
		data, err := json.Marshal(run)
		if err != nil {
			return false
		}
		if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
			return false
		}
		return true
	}
	if !push() {
		return
	}
	lastStep, lastStatus = run.CurrentStep, string(run.Status)
	if run.IsTerminal() {
		return
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			run, ok = s.Runs.Lookup(runID)
			if !ok {
				return
			}
			if run.CurrentStep == lastStep && string(run.Status) == lastStatus {
				continue
			}
			if !push() {
				return
			}
			lastStep, lastStatus = run.CurrentStep, string(run.Status)
			if run.IsTerminal() {
				return
			}
		}
	}
}
