package api

import "github.com/gofiber/fiber/v2"

// GetSettings serves GET /orchestrator/settings, a supplemental endpoint
// (SPEC_FULL.md "supplemental features" #4).
func (s *Server) GetSettings(c *fiber.Ctx) error {
	rows, err := s.Settings.All()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.Status(fiber.StatusOK).JSON(rows)
}

// UpdateSetting serves PUT /orchestrator/settings.
func (s *Server) UpdateSetting(c *fiber.Ctx) error {
	var req SettingRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Key == "" {
		return fiber.NewError(fiber.StatusBadRequest, "key is required")
	}
	if err := s.Settings.Set(req.Key, req.Value); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteSetting serves DELETE /orchestrator/settings/:key.
func (s *Server) DeleteSetting(c *fiber.Ctx) error {
	if err := s.Settings.Delete(c.Params("key")); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.SendStatus(fiber.StatusNoContent)
}
