package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tunnelgate/gateway/internal/pipeline"
)

// StartPipeline serves POST /orchestrator/pipeline/start (spec §4.3: a
// run only ever begins under orchestrator control).
func (s *Server) StartPipeline(c *fiber.Ctx) error {
	var req StartPipelineRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Pipeline == "" || req.Agent == "" {
		return fiber.NewError(fiber.StatusBadRequest, "pipeline and agent are required")
	}

	result, err := s.Machine.StartRun(req.Pipeline, req.Agent)
	if err != nil {
		if perr, ok := err.(*pipeline.Error); ok {
			return fiber.NewError(fiber.StatusBadRequest, perr.Message)
		}
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"run_id":       result.RunID,
		"next_command": result.NextCommand,
	})
}

// GetPipelineRun serves GET /orchestrator/pipeline/status?run_id=X.
func (s *Server) GetPipelineRun(c *fiber.Ctx) error {
	runID := c.Query("run_id")
	if runID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "run_id query parameter is required")
	}
	run, ok := s.Runs.Lookup(runID)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "pipeline run not found")
	}
	return c.Status(fiber.StatusOK).JSON(run)
}

// ListPipelineRuns serves GET /orchestrator/pipeline/runs.
func (s *Server) ListPipelineRuns(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(s.Runs.List())
}

// AbortPipelineRun serves POST /orchestrator/pipeline/reset.
func (s *Server) AbortPipelineRun(c *fiber.Ctx) error {
	var req AbortPipelineRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := s.Machine.AbortRun(req.RunID); err != nil {
		if perr, ok := err.(*pipeline.Error); ok {
			return fiber.NewError(fiber.StatusBadRequest, perr.Message)
		}
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.SendStatus(fiber.StatusNoContent)
}
