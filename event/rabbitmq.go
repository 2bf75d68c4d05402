package event

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type EventChannelData struct {
	Action string
	Data   []byte
}

type RabbitMQSubscribeListener struct {
	Queue   string
	Channel chan EventChannelData
}

const RabbitMQActionHeader string = "x-action"

const publishTimeout = 5 * time.Second

// Broker is a RabbitMQ connection with one channel shared by publishers and consumers.
type Broker struct {
	connection *amqp.Connection
	channel    *amqp.Channel
	queues     map[string]amqp.Queue
	journal    *Journal

	publishMu sync.Mutex
}

// RabbitMQConnect dials url, opens a channel and declares queues.
// journal may be nil.
func RabbitMQConnect(url string, queues []string, journal *Journal) (*Broker, error) {
	connection, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	log.Printf("connection opened to RabbitMQ server")

	channel, err := connection.Channel()
	if err != nil {
		connection.Close()
		return nil, fmt.Errorf("failed to open a RabbitMQ channel: %w", err)
	}
	log.Printf("opened a RabbitMQ channel")

	b := &Broker{
		connection: connection,
		channel:    channel,
		queues:     make(map[string]amqp.Queue),
		journal:    journal,
	}

	for _, name := range queues {
		queue, err := channel.QueueDeclare(
			name,  // name
			false, // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to declare a RabbitMQ queue %s: %w", name, err)
		}

		b.queues[name] = queue
		log.Printf("success declare a RabbitMQ queue: %s", name)
	}

	return b, nil
}

// Subscribe forwards every delivery of each listener's queue to its channel.
// The channel is closed when the broker connection goes away.
func (b *Broker) Subscribe(listeners []RabbitMQSubscribeListener) error {
	for _, listener := range listeners {
		msgs, err := b.channel.Consume(
			listener.Queue, // queue
			"",             // consumer
			false,          // auto-ack
			false,          // exclusive
			false,          // no-local
			false,          // no-wait
			nil,            // args
		)
		if err != nil {
			return fmt.Errorf("failed to register a consumer on %s: %w", listener.Queue, err)
		}
		log.Printf("success subscribe to RabbitMQ [%s] queue", listener.Queue)

		go b.consume(listener, msgs)
	}
	return nil
}

func (b *Broker) consume(listener RabbitMQSubscribeListener, msgs <-chan amqp.Delivery) {
	defer close(listener.Channel)

	for msg := range msgs {
		data, ok := channelData(msg)
		if !ok {
			log.Printf("dropping [%s] message without %s header", listener.Queue, RabbitMQActionHeader)
			msg.Nack(false, false)
			continue
		}

		b.journal.In(listener.Queue, data.Action, data.Data)
		msg.Ack(false)

		listener.Channel <- data
	}
	log.Printf("RabbitMQ [%s] consumer stopped", listener.Queue)
}

func channelData(msg amqp.Delivery) (EventChannelData, bool) {
	action, _ := msg.Headers[RabbitMQActionHeader].(string)
	if action == "" {
		return EventChannelData{}, false
	}
	return EventChannelData{Action: action, Data: msg.Body}, true
}

// Publish sends body to queue through the default exchange with the action header.
func (b *Broker) Publish(ctx context.Context, queue, action string, body []byte, persistent bool) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	b.publishMu.Lock()
	defer b.publishMu.Unlock()

	err := b.channel.PublishWithContext(
		ctx,
		"",    // exchange
		queue, // routing key
		false, // mandatory
		false, // immediate
		publishing(action, body, persistent),
	)
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", queue, err)
	}

	b.journal.Out(queue, action, body)
	return nil
}

func publishing(action string, body []byte, persistent bool) amqp.Publishing {
	mode := amqp.Transient
	if persistent {
		mode = amqp.Persistent
	}
	return amqp.Publishing{
		DeliveryMode: mode,
		ContentType:  "application/json",
		Headers: amqp.Table{
			RabbitMQActionHeader: action,
		},
		Body: body,
	}
}

func (b *Broker) Close() error {
	var firstErr error
	if b.channel != nil {
		if err := b.channel.Close(); err != nil {
			firstErr = err
		}
	}
	if b.connection != nil {
		if err := b.connection.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
