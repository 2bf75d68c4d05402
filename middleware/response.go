package middleware

import "github.com/gofiber/fiber/v2"

const (
	msgMalformedJWT = "Missing or malformed JWT"
	msgInvalidJWT   = "Invalid or expired JWT"
	msgSecondFactor = "2FA required"
	msgForbidden    = "Unauthorized"
	msgInternal     = "Internal server error"
)

// refuse ends the request with the JSON error envelope used across the API.
func refuse(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"status":  "error",
		"message": message,
		"data":    nil,
	})
}
