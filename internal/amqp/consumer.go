package amqp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rabbitmq/amqp091-go"
)

// Handler processes one decoded event. A returned error requeues the delivery.
type Handler func(ctx context.Context, event LedgerEvent) error

// consumeChannel is the subset of *amqp091.Channel a Subscriber uses.
type consumeChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp091.Table) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp091.Table) (<-chan amqp091.Delivery, error)
	Close() error
}

// Subscriber receives every LedgerEvent published under the configured
// routing key through a private, auto-deleted queue.
type Subscriber struct {
	conn     *amqp091.Connection
	channel  consumeChannel
	queue    string
	exchange string
}

// Subscribe connects to the broker and binds a fresh queue to cfg.RoutingKey.#.
func Subscribe(ctx context.Context, cfg Config) (*Subscriber, error) {
	conn, err := amqp091.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	s, err := newSubscriber(ch, cfg)
	if err != nil {
		conn.Close()
		return nil, err
	}
	s.conn = conn

	slog.InfoContext(ctx, "Subscribed to ledger events",
		"exchange", cfg.Exchange,
		"queue", s.queue)
	return s, nil
}

func newSubscriber(ch consumeChannel, cfg Config) (*Subscriber, error) {
	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		"",    // server named
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, cfg.RoutingKey+".#", cfg.Exchange, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	return &Subscriber{channel: ch, queue: q.Name, exchange: cfg.Exchange}, nil
}

// Run delivers events to handle until ctx is cancelled or the channel closes.
func (s *Subscriber) Run(ctx context.Context, handle Handler) error {
	msgs, err := s.channel.Consume(
		s.queue, // queue
		"",      // consumer
		false,   // auto-ack
		true,    // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping event consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			s.dispatch(ctx, delivery, handle)
		}
	}
}

func (s *Subscriber) dispatch(ctx context.Context, d amqp091.Delivery, handle Handler) {
	event, err := LedgerEventFromJSON(d.Body)
	if err != nil {
		slog.ErrorContext(ctx, "Dropping malformed event", "error", err)
		_ = d.Nack(false, false)
		return
	}

	if err := handle(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to handle event",
			"event_id", event.ID,
			"error", err)
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}

func (s *Subscriber) Close() error {
	if s.channel != nil {
		s.channel.Close()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
