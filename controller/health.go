package controller

import "github.com/gofiber/fiber/v2"

type RoomStats interface {
	Len() int
	Members(room string) []string
}

// Health reports the number of live rooms. With ?room=<key> it also reports
// how many connections are subscribed to that room.
func Health(rooms RoomStats) fiber.Handler {
	return func(c *fiber.Ctx) error {
		data := fiber.Map{
			"rooms": rooms.Len(),
		}
		if room := c.Query("room"); room != "" {
			data["room"] = room
			data["members"] = len(rooms.Members(room))
		}

		return c.JSON(fiber.Map{
			"status":  "success",
			"message": nil,
			"data":    data,
		})
	}
}
