package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tunnelgate/gateway/internal/domain"
)

// ListCredentials serves GET /orchestrator/agents: every credential,
// with its key redacted (spec §4.4 "the plaintext key is returned only
// once, at creation").
func (s *Server) ListCredentials(c *fiber.Ctx) error {
	creds := s.Credentials.List()
	out := make([]CredentialView, 0, len(creds))
	for _, cr := range creds {
		out = append(out, CredentialView{
			Key:        cr.Redacted(),
			Name:       cr.Name,
			Tier:       string(cr.Tier),
			Tunnel:     cr.Tunnel,
			DailyLimit: cr.DailyLimit,
			Active:     cr.Active,
		})
	}
	return c.Status(fiber.StatusOK).JSON(out)
}

// GetCredential serves GET /orchestrator/agents/:key8, looking a
// credential up by the 8-character redacted prefix shown in listings.
func (s *Server) GetCredential(c *fiber.Ctx) error {
	cr, ok := s.Credentials.FindByPrefix(c.Params("key8"))
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "credential not found")
	}
	return c.Status(fiber.StatusOK).JSON(CredentialView{
		Key:        cr.Redacted(),
		Name:       cr.Name,
		Tier:       string(cr.Tier),
		Tunnel:     cr.Tunnel,
		DailyLimit: cr.DailyLimit,
		Active:     cr.Active,
	})
}

// CreateCredential serves POST /orchestrator/agents/create. The response
// carries the one and only plaintext key the caller will ever see.
func (s *Server) CreateCredential(c *fiber.Ctx) error {
	var req CreateCredentialRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name is required")
	}

	tier := domain.Tier(req.Tier)
	if tier != domain.TierOrchestrator {
		tier = domain.TierWorker
	}
	if req.Tunnel != "" {
		if _, ok := s.Tunnels.Lookup(req.Tunnel); !ok {
			return fiber.NewError(fiber.StatusNotFound, "unknown tunnel: "+req.Tunnel)
		}
	}
	limit := req.DailyLimit
	if limit <= 0 {
		limit = 1000
	}

	caller := callerFromLocals(c)
	cred, err := s.Credentials.Create(tier, req.Name, req.Tunnel, limit, caller.Name)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"key":         cred.Key,
		"name":        cred.Name,
		"tier":        cred.Tier,
		"tunnel":      cred.Tunnel,
		"daily_limit": cred.DailyLimit,
	})
}

// DeleteCredential serves POST /orchestrator/agents/delete.
func (s *Server) DeleteCredential(c *fiber.Ctx) error {
	var req DeleteCredentialRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := s.Credentials.Delete(req.Key); err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return c.SendStatus(fiber.StatusNoContent)
}
