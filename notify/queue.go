package notify

import (
	"context"
	"encoding/json"
	"fmt"
)

const (
	PushQueue  = "push"
	PushAction = "push.send"
)

// Publisher is the message broker side used by QueueProvider.
type Publisher interface {
	Publish(ctx context.Context, queue, action string, body []byte, persistent bool) error
}

// QueueProvider hands jobs to an external push worker through the broker.
// Messages are transient: a broker restart loses them, like the in-process queue.
type QueueProvider struct {
	publisher Publisher
	queue     string
}

func NewQueueProvider(publisher Publisher, queue string) *QueueProvider {
	if queue == "" {
		queue = PushQueue
	}
	return &QueueProvider{publisher: publisher, queue: queue}
}

func (p *QueueProvider) Send(ctx context.Context, job Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode push job: %w", err)
	}
	return p.publisher.Publish(ctx, p.queue, PushAction, body, false)
}
