package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tunnelgate/gateway/internal/domain"
)

// Status serves GET /status, the one unauthenticated endpoint (spec
// §4.5, §6.4): server health, mode, tunnel names, worker count, and
// pipeline-run aggregate counts.
func (s *Server) Status(c *fiber.Ctx) error {
	total, completed := s.Runs.Aggregate()

	mode := "standalone"
	if s.Events.Connected() {
		mode = "clustered"
	}

	workers := 0
	for _, cr := range s.Credentials.List() {
		if cr.Tier == domain.TierWorker {
			workers++
		}
	}

	resp := StatusResponse{
		Status:  "ok",
		Mode:    mode,
		Tunnels: s.Tunnels.Names(),
		Workers: workers,
	}
	resp.Pipelines.Total = total
	resp.Pipelines.Completed = completed
	return c.Status(fiber.StatusOK).JSON(resp)
}
