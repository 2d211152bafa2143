package api

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"github.com/tunnelgate/gateway/internal/domain"
	"github.com/tunnelgate/gateway/internal/events"
	"github.com/tunnelgate/gateway/internal/pipeline"
	"github.com/tunnelgate/gateway/internal/policy"
)

// HandleValidate is the worker policy-evaluation endpoint (spec §4.2,
// §6.4 POST /validate and POST /). It is also the fallback for any path
// the router doesn't otherwise recognize, and the path a non-orchestrator
// caller takes when it hits an /orchestrator/* route (spec §4.5) — the
// gateway never forwards a request downstream, so the response shape is
// the same allow/deny decision regardless of which path triggered it.
func (s *Server) HandleValidate(c *fiber.Ctx) error {
	return s.evaluateAndRespond(c, callerFromLocals(c))
}

func (s *Server) evaluateAndRespond(c *fiber.Ctx, caller domain.CallerContext) error {
	tunnelName := caller.Tunnel
	if tunnelName == "" {
		tunnelName = domain.PublicViewerTunnel
	}

	tunnel, ok := s.Tunnels.Lookup(tunnelName)
	if !ok {
		return s.deny(c, caller, tunnelName, "Tunnel not found: "+tunnelName, "")
	}

	method := c.Method()
	path := c.Path()

	if d := s.Policy.CheckMethod(&tunnel, method); !d.Allowed {
		return s.deny(c, caller, tunnelName, d.Reason, "")
	}
	if d := s.Policy.CheckPath(&tunnel, path); !d.Allowed {
		return s.deny(c, caller, tunnelName, d.Reason, "")
	}

	if !policy.BodyBearing(method) {
		return s.allow(c, caller, tunnelName, "", "", nil)
	}

	var payload map[string]interface{}
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &payload); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid JSON body"})
		}
	}
	command := policy.ExtractCommand(payload)

	if tunnel.IsPipeline() {
		if runID, ok := payload["run_id"].(string); ok && runID != "" {
			return s.dispatchPipelineStep(c, caller, tunnelName, runID, command)
		}
	}

	if d := s.Policy.CheckCommand(&tunnel, command); !d.Allowed {
		return s.deny(c, caller, tunnelName, d.Reason, "")
	}

	return s.allow(c, caller, tunnelName, "", "", nil)
}

// dispatchPipelineStep implements spec §4.3's validate-then-confirm
// sequence: ValidateStep decides the outcome with no side effects, and
// only once that succeeds does ConfirmStep commit the advance under the
// run's lock (the "commit discipline" the spec requires for crash
// safety and for resolving a race between two workers on the same run).
func (s *Server) dispatchPipelineStep(c *fiber.Ctx, caller domain.CallerContext, tunnelName, runID, command string) error {
	if _, err := s.Machine.ValidateStep(runID, command); err != nil {
		return s.denyPipelineErr(c, caller, tunnelName, err)
	}

	result, err := s.Machine.ConfirmStep(runID, command)
	if err != nil {
		return s.denyPipelineErr(c, caller, tunnelName, err)
	}

	status := string(result.Status)
	var next *string
	if !result.Completed {
		next = &result.NextCommand
	}

	s.Audit.Record(caller.Name, tunnelName, c.Method(), c.Path(), true, "pipeline step confirmed")
	eventType := events.PipelineStepConfirmed
	if result.Completed {
		eventType = events.PipelineRunFinished
	}
	s.Events.Publish(eventType, map[string]string{"run_id": runID})

	return c.Status(fiber.StatusOK).JSON(AllowResponse{
		Success:     true,
		Tunnel:      tunnelName,
		Agent:       caller.Name,
		RunID:       runID,
		RunStatus:   status,
		NextCommand: next,
	})
}

func (s *Server) denyPipelineErr(c *fiber.Ctx, caller domain.CallerContext, tunnelName string, err error) error {
	perr, ok := err.(*pipeline.Error)
	if !ok {
		return s.deny(c, caller, tunnelName, err.Error(), "")
	}
	return s.deny(c, caller, tunnelName, perr.Message, perr.Expected)
}

func (s *Server) allow(c *fiber.Ctx, caller domain.CallerContext, tunnelName, runID, runStatus string, next *string) error {
	s.Audit.Record(caller.Name, tunnelName, c.Method(), c.Path(), true, "")
	return c.Status(fiber.StatusOK).JSON(AllowResponse{
		Success:     true,
		Tunnel:      tunnelName,
		Agent:       caller.Name,
		RunID:       runID,
		RunStatus:   runStatus,
		NextCommand: next,
	})
}

func (s *Server) deny(c *fiber.Ctx, caller domain.CallerContext, tunnelName, reason, expectedCommand string) error {
	s.Audit.Record(caller.Name, tunnelName, c.Method(), c.Path(), false, reason)
	return c.Status(fiber.StatusForbidden).JSON(DenialResponse{
		Error:           "policy denied",
		Reason:          reason,
		Tunnel:          tunnelName,
		Agent:           caller.Name,
		ExpectedCommand: expectedCommand,
	})
}

