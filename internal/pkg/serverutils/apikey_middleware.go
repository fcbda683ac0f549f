package serverutils

import (
	"strings"

	"ai-chatbot-be/pkg/agent"

	"github.com/gofiber/fiber/v2"
)

const (
	APIKeyHeader = "X-API-Key"

	LocalAgentID = "agent_id"
)

// APIKeyMiddleware resolves the caller's agent from X-API-Key, or from an
// "Authorization: Bearer" header, and stores its id under LocalAgentID.
func APIKeyMiddleware(registry *agent.Registry) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		key := ctx.Get(APIKeyHeader)
		if key == "" {
			if auth := ctx.Get(fiber.HeaderAuthorization); strings.HasPrefix(auth, "Bearer ") {
				key = strings.TrimSpace(auth[len("Bearer "):])
			}
		}

		result, a := registry.Authorize(key)
		switch result {
		case agent.Authorized:
			ctx.Locals(LocalAgentID, a.Id)
			return ctx.Next()
		case agent.Forbidden:
			return ctx.Status(fiber.StatusForbidden).
				JSON(ErrorResponse(fiber.StatusForbidden, "Forbidden", nil))
		default:
			return ctx.Status(fiber.StatusUnauthorized).
				JSON(ErrorResponse(fiber.StatusUnauthorized, "Unauthorized", nil))
		}
	}
}
