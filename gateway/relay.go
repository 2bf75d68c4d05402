package gateway

import "strings"

var reservedEvents = map[string]struct{}{
	EventNewMessage:   {},
	EventMessagesRead: {},
	"connect":         {},
	"connect_error":   {},
	"disconnect":      {},
}

// Publish fans a domain event out to the topic room and returns how many
// connections received it.
func (g *Gateway) Publish(topic, event string, payload any) (int, error) {
	topic = strings.TrimSpace(topic)
	event = strings.TrimSpace(event)

	if topic == "" {
		return 0, newError(CodeValidation, "topic is required", nil)
	}
	if event == "" {
		return 0, newError(CodeValidation, "event is required", nil)
	}
	if _, reserved := reservedEvents[event]; reserved {
		return 0, newError(CodeValidation, "event name is reserved", nil)
	}

	delivered := g.rooms.Broadcast(TopicRoom(topic), event, payload)
	g.logger.Debug("topic event relayed", "topic", topic, "event", event, "delivered", delivered)
	return delivered, nil
}
