package middleware

import (
	"fmt"
	"log"

	"github.com/casbin/casbin/v2"
	"github.com/gofiber/fiber/v2"
)

// RBAC enforces casbin policies with the token id as subject, the request
// path as object and the method as action.
func RBAC(enforcer *casbin.Enforcer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := Claims(c)
		if !ok {
			return refuse(c, fiber.StatusUnauthorized, msgInvalidJWT)
		}

		// Policies are shared with other services, reload before enforcing
		if err := enforcer.LoadPolicy(); err != nil {
			log.Printf("casbin load policy: %v", err)
			return refuse(c, fiber.StatusInternalServerError, msgInternal)
		}

		accepted, err := enforcer.Enforce(subject(claims["id"]), c.Path(), c.Method())
		if err != nil {
			log.Printf("casbin enforce: %v", err)
			return refuse(c, fiber.StatusInternalServerError, msgInternal)
		}
		if !accepted {
			return refuse(c, fiber.StatusForbidden, msgForbidden)
		}

		return c.Next()
	}
}

func subject(id any) string {
	switch v := id.(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	}
	return ""
}
