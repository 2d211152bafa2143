package api

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

func (s *Server) registerRoutes() {
	// Public liveness probe (spec §6.4) — the one route with no auth.
	s.App.Get("/status", s.Status)

	// Worker policy evaluation (spec §4.2, §6.4).
	s.App.All("/validate", s.authMiddleware, s.HandleValidate)
	s.App.All("/", s.authMiddleware, s.HandleValidate)

	// Orchestrator administration surface (spec §4.4). orchestratorGuard
	// implements §4.5: a non-orchestrator caller here is policy-evaluated
	// like any other request instead of getting a blanket 403.
	orch := s.App.Group("/orchestrator", s.authMiddleware, s.orchestratorGuard)

	orch.Get("/tunnels", s.ListTunnels)
	orch.Get("/tunnels/:name", s.GetTunnel)
	orch.Post("/tunnels/create", s.CreateTunnel)
	orch.Post("/tunnels/update", s.UpdateTunnel)
	orch.Post("/tunnels/delete", s.DeleteTunnel)

	orch.Get("/agents", s.ListCredentials)
	orch.Get("/agents/:key8", s.GetCredential)
	orch.Post("/agents/create", s.CreateCredential)
	orch.Post("/agents/delete", s.DeleteCredential)

	orch.Post("/pipeline/start", s.StartPipeline)
	orch.Get("/pipeline/runs", s.ListPipelineRuns)
	orch.Get("/pipeline/status", s.GetPipelineRun)
	orch.Post("/pipeline/reset", s.AbortPipelineRun)

	orch.Get("/audit", s.GetAudit)

	orch.Get("/settings", s.GetSettings)
	orch.Put("/settings", s.UpdateSetting)
	orch.Delete("/settings/:key", s.DeleteSetting)

	// Pipeline run event stream (supplemental).
	s.App.Use("/ws", s.authMiddleware, func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.App.Get("/ws/pipeline/:run_id", websocket.New(s.StreamPipelineRun))

	// Anything else falls through to the generic evaluator, exactly as
	// /validate does (spec §1: the gateway never forwards a request
	// downstream, so an unmapped path still gets an allow/deny decision).
	s.App.Use(s.authMiddleware, s.HandleValidate)
}
