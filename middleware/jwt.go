package middleware

import (
	"strings"

	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
)

// JWT verifies HS512 access tokens signed with key. The parsed token is
// stored under the "user" local; tokens without an id claim are refused.
func JWT(key []byte) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{
			JWTAlg: "HS512",
			Key:    key,
		},
		ContextKey:     "user",
		SuccessHandler: requireSubject,
		ErrorHandler:   jwtError,
	})
}

func requireSubject(c *fiber.Ctx) error {
	claims, ok := Claims(c)
	if !ok || subject(claims["id"]) == "" {
		return refuse(c, fiber.StatusUnauthorized, msgInvalidJWT)
	}
	return c.Next()
}

// jwtError maps a missing header to 400 and every verification failure to 401.
func jwtError(c *fiber.Ctx, err error) error {
	if strings.EqualFold(err.Error(), msgMalformedJWT) {
		return refuse(c, fiber.StatusBadRequest, msgMalformedJWT)
	}
	return refuse(c, fiber.StatusUnauthorized, msgInvalidJWT)
}
