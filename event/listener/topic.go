package listener

import (
	"encoding/json"
	"log/slog"

	"chat-gateway/event"
)

const TopicQueue = "forum"

// Relay fans a domain event out to a topic room.
type Relay interface {
	Publish(topic, event string, payload any) (int, error)
}

// TopicEvent is the body of a message on the forum queue. The event name
// travels in the x-action header.
type TopicEvent struct {
	Topic   string `json:"topic"`
	Payload any    `json:"payload"`
}

// Topic relays every event read from channel until it is closed.
func Topic(channel <-chan event.EventChannelData, relay Relay, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "listener", "queue", TopicQueue)

	for data := range channel {
		handleTopic(data, relay, logger)
	}
	logger.Info("topic listener stopped")
}

func handleTopic(data event.EventChannelData, relay Relay, logger *slog.Logger) {
	var body TopicEvent
	if err := json.Unmarshal(data.Data, &body); err != nil {
		logger.Warn("malformed topic event", "action", data.Action, "error", err)
		return
	}

	delivered, err := relay.Publish(body.Topic, data.Action, body.Payload)
	if err != nil {
		logger.Warn("topic event rejected", "action", data.Action, "topic", body.Topic, "error", err)
		return
	}
	logger.Debug("topic event relayed", "action", data.Action, "topic", body.Topic, "delivered", delivered)
}
