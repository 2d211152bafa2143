package api

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/tunnelgate/gateway/internal/domain"
)

// requestLogger returns a middleware that logs each request.
func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		slog.Info("request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", c.Locals("requestid"),
		)
		return err
	}
}

// globalErrorHandler handles unhandled errors and returns JSON. Internal
// errors (5xx) return a generic message to avoid leaking implementation
// details.
func globalErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "internal server error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		if code < 500 {
			msg = e.Message
		} else {
			slog.Error("internal error", "error", e.Message, "path", c.Path())
		}
	} else {
		slog.Error("unhandled error", "error", err.Error(), "path", c.Path())
	}

	return c.Status(code).JSON(ErrorResponse{Error: msg})
}

// corsHeaders sets the CORS headers spec §6.4 requires on every response
// and answers OPTIONS preflights with a 200 and an empty body. Written by
// hand rather than with gofiber/fiber/v2/middleware/cors: that middleware
// answers preflight with 204 and offers no knob to change it, and the
// spec's status code is pinned at 200.
func corsHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("Access-Control-Allow-Origin", "*")
		c.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Set("Access-Control-Allow-Headers", "Content-Type,x-api-key")
		if c.Method() == fiber.MethodOptions {
			return c.SendStatus(fiber.StatusOK)
		}
		return c.Next()
	}
}

const callerLocalsKey = "caller"

// callerFromLocals retrieves the CallerContext attached by authMiddleware.
func callerFromLocals(c *fiber.Ctx) domain.CallerContext {
	caller, _ := c.Locals(callerLocalsKey).(domain.CallerContext)
	return caller
}

// authMiddleware validates the x-api-key header and enforces the daily
// rate limit (spec §4.1). On success it attaches the resolved
// CallerContext to c.Locals. The rate-limit headers are set on an allow
// and on a 429 (which also carries X-RateLimit-Reset); a 401 carries none.
func (s *Server) authMiddleware(c *fiber.Ctx) error {
	result := s.Auth.Authenticate(c.Get("x-api-key"))

	if result.Limit > 0 {
		c.Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	}
	if !result.ResetAt.IsZero() {
		c.Set("X-RateLimit-Reset", result.ResetAt.Format(time.RFC3339))
	}

	if result.Denied {
		return c.Status(result.StatusCode).JSON(ErrorResponse{Error: result.Message})
	}

	c.Locals(callerLocalsKey, result.Caller)
	return c.Next()
}

// orchestratorGuard implements spec §4.5's tier-routing rule: an
// orchestrator credential hitting an /orchestrator/* route is dispatched
// straight to the admin handler with no policy check; anyone else is
// evaluated exactly like any other request against their own tunnel, and
// will typically be denied by the method or path rules (or, absent a
// path restriction, by whatever command check applies to an empty
// command). It never special-cases non-orchestrators with a blanket 403.
func (s *Server) orchestratorGuard(c *fiber.Ctx) error {
	caller := callerFromLocals(c)
	if caller.Tier == domain.TierOrchestrator {
		return c.Next()
	}
	return s.evaluateAndRespond(c, caller)
}
