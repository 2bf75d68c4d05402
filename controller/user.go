package controller

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"chat-gateway/database"
	"chat-gateway/middleware"
	"chat-gateway/model"

	"github.com/gofiber/fiber/v2"
)

type Users interface {
	FindIdentity(ctx context.Context, userID uint) (*model.User, error)
	UpdatePushToken(ctx context.Context, userID uint, token string) error
}

type UserDeviceInput struct {
	Token string `json:"token"`
}

func UserProfile(users Users) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := userID(c)
		if !ok {
			return unauthorized(c)
		}

		userModel, err := users.FindIdentity(c.UserContext(), id)
		if errors.Is(err, database.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"status":  "error",
				"message": "User not found",
				"data":    nil,
			})
		}
		if err != nil {
			return internalError(c)
		}

		return c.JSON(fiber.Map{
			"status":  "success",
			"message": nil,
			"data": fiber.Map{
				"id":       userModel.ID,
				"username": userModel.Username,
				"name":     userModel.Name(),
				"avatar":   userModel.Avatar,
				"rating":   userModel.Rating,
				"push":     userModel.PushToken != "",
			},
		})
	}
}

// UserDevice registers the push token of the caller's device. An empty token
// unregisters it.
func UserDevice(users Users) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := userID(c)
		if !ok {
			return unauthorized(c)
		}

		input := new(UserDeviceInput)
		if err := c.BodyParser(input); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"status":  "error",
				"message": "Invalid input",
				"data":    nil,
			})
		}
		input.Token = strings.TrimSpace(input.Token)

		err := users.UpdatePushToken(c.UserContext(), id, input.Token)
		if errors.Is(err, database.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"status":  "error",
				"message": "User not found",
				"data":    nil,
			})
		}
		if err != nil {
			return internalError(c)
		}

		return c.JSON(fiber.Map{
			"status":  "success",
			"message": nil,
			"data": fiber.Map{
				"registered": input.Token != "",
			},
		})
	}
}

func userID(c *fiber.Ctx) (uint, bool) {
	claims, ok := middleware.Claims(c)
	if !ok {
		return 0, false
	}

	switch v := claims["id"].(type) {
	case string:
		id, err := strconv.ParseUint(v, 10, 64)
		return uint(id), err == nil && id > 0
	case float64:
		return uint(v), v > 0
	}
	return 0, false
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"status":  "error",
		"message": "Invalid or expired JWT",
		"data":    nil,
	})
}

func internalError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"status":  "error",
		"message": "Internal server error",
		"data":    nil,
	})
}
