package router

import (
	"chat-gateway/controller"
	"chat-gateway/gateway"
	"chat-gateway/middleware"

	"github.com/casbin/casbin/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

type RestDeps struct {
	AccessKey []byte
	Users     controller.Users
	Enforcer  *casbin.Enforcer
	Gateway   *gateway.Gateway
}

func Rest(app *fiber.App, deps RestDeps) {
	api := app.Group("/v1", logger.New())

	api.Get("/health", controller.Health(deps.Gateway.Rooms()))

	// User
	user := api.Group("/user", middleware.JWT(deps.AccessKey), middleware.OTP())
	user.Get("/profile", controller.UserProfile(deps.Users))
	user.Put("/device", controller.UserDevice(deps.Users))

	// Topics
	topics := api.Group("/topics", middleware.JWT(deps.AccessKey), middleware.OTP(), middleware.RBAC(deps.Enforcer))
	topics.Post("/:topic/events", controller.TopicEvent(deps.Gateway))
}
