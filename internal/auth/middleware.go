package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"dataservice/internal/engine"
	"dataservice/internal/schema"
)

// Authenticate returns a Fiber middleware that validates bearer tokens and
// sets the caller's UserContext on the request. An unconfigured verifier
// fails closed with SERVER_CONFIG rather than UNAUTHORIZED: a missing server
// key is not the caller's fault.
func Authenticate(v *Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" {
			return engine.UnauthorizedError("Missing token")
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return engine.UnauthorizedError("Missing token")
		}

		if !v.Configured() {
			return engine.ServerConfigError("JWT verification not configured")
		}

		claims, err := v.Parse(parts[1])
		if err != nil {
			return engine.UnauthorizedError("Invalid token")
		}

		c.Locals("user", &schema.UserContext{
			ID:    claims.Identity(),
			Roles: claims.Roles,
		})
		return c.Next()
	}
}

// RequireRoles returns a middleware enforcing that the caller holds one of
// the required roles. An empty requirement means no restriction.
func RequireRoles(required []string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := c.Locals("user").(*schema.UserContext)
		if !ok || user == nil {
			return engine.UnauthorizedError("Missing token")
		}
		if !Authorized(user.Roles, required) {
			return engine.ForbiddenError("Insufficient role")
		}
		return c.Next()
	}
}

// Authorized reports whether the caller's role set intersects the required
// role set. An empty required set allows everyone.
func Authorized(callerRoles, required []string) bool {
	if len(required) == 0 {
		return true
	}
	for _, have := range callerRoles {
		for _, want := range required {
			if have == want {
				return true
			}
		}
	}
	return false
}

// GetUser extracts the UserContext from a Fiber context.
func GetUser(c *fiber.Ctx) *schema.UserContext {
	user, _ := c.Locals("user").(*schema.UserContext)
	return user
}
