package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// OTP refuses tokens issued before the second factor was checked.
func OTP() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := Claims(c)
		if !ok {
			return refuse(c, fiber.StatusUnauthorized, msgInvalidJWT)
		}
		if pending, _ := claims["otp"].(bool); pending {
			return refuse(c, fiber.StatusBadRequest, msgSecondFactor)
		}

		return c.Next()
	}
}

// Claims returns the claims the JWT middleware stored on the request.
func Claims(c *fiber.Ctx) (jwt.MapClaims, bool) {
	user, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return nil, false
	}
	claims, ok := user.Claims.(jwt.MapClaims)
	return claims, ok
}
