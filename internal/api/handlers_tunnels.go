package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tunnelgate/gateway/internal/domain"
	"github.com/tunnelgate/gateway/internal/store"
)

// ListTunnels serves GET /orchestrator/tunnels.
func (s *Server) ListTunnels(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(s.Tunnels.List())
}

// GetTunnel serves GET /orchestrator/tunnels/:name.
func (s *Server) GetTunnel(c *fiber.Ctx) error {
	t, ok := s.Tunnels.Lookup(c.Params("name"))
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "tunnel not found")
	}
	return c.Status(fiber.StatusOK).JSON(t)
}

// CreateTunnel serves POST /orchestrator/tunnels/create (spec §4.4).
func (s *Server) CreateTunnel(c *fiber.Ctx) error {
	var req CreateTunnelRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name is required")
	}

	t, err := s.Tunnels.Create(store.TunnelInput{
		Name:                 req.Name,
		Description:          &req.Description,
		AllowedMethods:       req.AllowedMethods,
		AllowedPaths:         req.AllowedPaths,
		AllowedCommands:      req.AllowedCommands,
		ForbiddenKeywords:    req.ForbiddenKeywords,
		CommandWhitelistMode: domain.WhitelistMode(req.CommandWhitelistMode),
		Pipeline:             toPipelineDef(req.Pipeline),
	})
	if err != nil {
		return fiber.NewError(fiber.StatusConflict, err.Error())
	}
	return c.Status(fiber.StatusCreated).JSON(t)
}

// UpdateTunnel serves POST /orchestrator/tunnels/update (spec §4.4,
// shallow merge of the supplied fields only).
func (s *Server) UpdateTunnel(c *fiber.Ctx) error {
	var req UpdateTunnelRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name is required")
	}

	t, err := s.Tunnels.Update(req.Name, store.TunnelInput{
		Description:          req.Description,
		AllowedMethods:       req.AllowedMethods,
		AllowedPaths:         req.AllowedPaths,
		AllowedCommands:      req.AllowedCommands,
		ForbiddenKeywords:    req.ForbiddenKeywords,
		CommandWhitelistMode: domain.WhitelistMode(req.CommandWhitelistMode),
		Pipeline:             toPipelineDef(req.Pipeline),
	})
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return c.Status(fiber.StatusOK).JSON(t)
}

// DeleteTunnel serves POST /orchestrator/tunnels/delete.
func (s *Server) DeleteTunnel(c *fiber.Ctx) error {
	var req DeleteTunnelRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := s.Tunnels.Delete(req.Name); err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func toPipelineDef(in *pipelineDefInput) *domain.PipelineDef {
	if in == nil {
		return nil
	}
	steps := make([]domain.PipelineStep, 0, len(in.Steps))
	for _, st := range in.Steps {
		steps = append(steps, domain.PipelineStep{Command: st.Command, Description: st.Description})
	}
	return &domain.PipelineDef{Steps: steps}
}
