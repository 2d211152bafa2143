package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// GetAudit serves GET /orchestrator/audit, a supplemental endpoint
// (SPEC_FULL.md "supplemental features" #1) over the decision log every
// allow/deny writes to the ledger database.
func (s *Server) GetAudit(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit"))
	rows, err := s.Audit.Recent(c.Query("tunnel"), c.Query("agent"), limit)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.Status(fiber.StatusOK).JSON(rows)
}
