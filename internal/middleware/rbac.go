package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/campus-admin-agent/internal/utils"
)

// Campus roles carried in the token's role claim.
const (
	RoleAdmin     = "admin"
	RoleRegistrar = "registrar"
	RoleStaff     = "staff"
)

// RequireRole admits requests whose role is one of roles. Requests without an
// authenticated user get 401, authenticated users with another role get 403.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		if normalized := strings.ToLower(strings.TrimSpace(role)); normalized != "" {
			allowed[normalized] = struct{}{}
		}
	}

	return func(c *fiber.Ctx) error {
		role, _ := c.Locals("user_role").(string)
		role = strings.ToLower(strings.TrimSpace(role))
		if role == "" {
			if userID, _ := c.Locals("user_id").(string); userID == "" {
				return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
			}
		}
		if _, ok := allowed[role]; !ok {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}
