package controller

import (
	"log"

	"chat-gateway/gateway"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type TopicRelay interface {
	Publish(topic, event string, payload any) (int, error)
}

type TopicEventInput struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// TopicEvent relays a domain event, e.g. a new forum post, to the topic room.
func TopicEvent(relay TopicRelay) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input := new(TopicEventInput)
		if err := c.BodyParser(input); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"status":  "error",
				"message": "Invalid input",
				"data":    nil,
			})
		}

		delivered, err := relay.Publish(c.Params("topic"), input.Event, input.Payload)
		if err != nil {
			if gateway.CodeOf(err) == gateway.CodeValidation {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"status":  "error",
					"message": gateway.MessageOf(err),
					"data":    nil,
				})
			}
			return internalError(c)
		}

		id := uuid.NewString()
		log.Printf("topic event %s: %s -> %s (%d delivered)", id, input.Event, c.Params("topic"), delivered)

		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"status":  "success",
			"message": nil,
			"data": fiber.Map{
				"id":        id,
				"delivered": delivered,
			},
		})
	}
}
