package middlewares

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jenkinph/procedure-passport/logger"
	"github.com/jenkinph/procedure-passport/services"
)

// AccessCookie holds the signed identity.
const AccessCookie = "access_token"

// AuthMiddleware requires a valid access cookie and, when roles are given,
// one of those roles. The identity is stored in c.Locals under
// services.IdentityKey.
func AuthMiddleware(tokens *services.TokenService, log *logger.Logger, allowedRoles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := c.Cookies(AccessCookie)
		if tokenStr == "" {
			return c.Redirect("/?error=login_required")
		}
		id, err := tokens.ParseAccess(tokenStr)
		if err != nil {
			log.Debug("access token rejected", "path", c.Path(), "error", err)
			c.ClearCookie(AccessCookie)
			return c.Redirect("/?error=session_expired")
		}
		if len(allowedRoles) > 0 {
			allowed := false
			for _, r := range allowedRoles {
				if id.Role == r {
					allowed = true
					break
				}
			}
			if !allowed {
				return fiber.NewError(fiber.StatusForbidden, "not allowed for role "+id.Role)
			}
		}
		c.Locals(services.IdentityKey, id)
		return c.Next()
	}
}

// OptionalAuth stores the identity when a valid cookie is present and
// continues either way.
func OptionalAuth(tokens *services.TokenService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if tokenStr := c.Cookies(AccessCookie); tokenStr != "" {
			if id, err := tokens.ParseAccess(tokenStr); err == nil {
				c.Locals(services.IdentityKey, id)
			}
		}
		return c.Next()
	}
}

// CurrentIdentity returns the identity set by AuthMiddleware.
func CurrentIdentity(c *fiber.Ctx) (services.Identity, bool) {
	id, ok := c.Locals(services.IdentityKey).(services.Identity)
	return id, ok
}
