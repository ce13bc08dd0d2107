package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"fitSquadAPI/internal/logger"
	"fitSquadAPI/internal/notification"
)

// EventPublisher forwards delivered notifications to an external stream.
type EventPublisher interface {
	Publish(ctx context.Context, event *notification.Event) error
	Close() error
}

var (
	errEventRejected  = errors.New("broker rejected event")
	errConfirmsClosed = errors.New("channel closed before confirmation")
)

// confirmBuffer holds confirmations for publishes that stopped waiting.
const confirmBuffer = 64

// AMQPPublisher publishes notification events to a durable RabbitMQ queue
// on a confirm-mode channel. Publishes are serialized and each one waits for
// the confirmation carrying its own delivery tag.
type AMQPPublisher struct {
	conn      *amqp.Connection
	channel   *amqp.Channel
	queue     amqp.Queue
	confirms  chan amqp.Confirmation
	published uint64
	mu        sync.Mutex
}

func NewAMQPPublisher(url, queueName string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	queue, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("error declaring queue: %w", err)
	}

	notifyClose := conn.NotifyClose(make(chan *amqp.Error, 1))
	go func() {
		if err := <-notifyClose; err != nil {
			logger.S().Errorf("EventPublisher: RabbitMQ connection closed: %v", err)
		}
	}()

	return &AMQPPublisher{
		conn:     conn,
		channel:  ch,
		queue:    queue,
		confirms: ch.NotifyPublish(make(chan amqp.Confirmation, confirmBuffer)),
	}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, event *notification.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.Publish(
		"",           // exchange
		p.queue.Name, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.NotificationID.String(),
			Timestamp:    time.Now(),
			Type:         string(event.Type),
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish a message: %w", err)
	}
	// Delivery tags count successful publishes on the channel from 1.
	p.published++

	if err := awaitConfirm(ctx, p.confirms, p.published); err != nil {
		return fmt.Errorf("event %s: %w", event.NotificationID, err)
	}
	return nil
}

// awaitConfirm reads confirmations until the one for tag arrives. Earlier
// tags belong to publishes that stopped waiting and are dropped.
func awaitConfirm(ctx context.Context, confirms <-chan amqp.Confirmation, tag uint64) error {
	for {
		select {
		case confirm, ok := <-confirms:
			if !ok {
				return errConfirmsClosed
			}
			if confirm.DeliveryTag < tag {
				logger.S().Debugf("EventPublisher: dropping late confirmation %d", confirm.DeliveryTag)
				continue
			}
			if confirm.DeliveryTag > tag {
				return fmt.Errorf("confirmation %d skipped past %d", confirm.DeliveryTag, tag)
			}
			if !confirm.Ack {
				return errEventRejected
			}
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.channel.Close(); err != nil {
		logger.S().Warnf("EventPublisher: failed to close channel: %v", err)
	}
	return p.conn.Close()
}
