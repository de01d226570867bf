package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"budget/internal/resilience"

	"github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"
)

const publishTimeout = 5 * time.Second

// Config locates the broker and the topic exchange events go to.
type Config struct {
	URL        string
	Exchange   string
	RoutingKey string
}

// channel is the subset of *amqp091.Channel the publisher uses.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Publisher sends LedgerEvents to a durable topic exchange. Publishing goes
// through a circuit breaker so an unreachable broker fails fast.
type Publisher struct {
	conn       *amqp091.Connection
	channel    channel
	exchange   string
	routingKey string
	breaker    *gobreaker.CircuitBreaker
}

// Dial connects to the broker, retrying connection failures, and declares the exchange.
func Dial(ctx context.Context, cfg Config) (*Publisher, error) {
	policy := resilience.DefaultRetryPolicy
	policy.Retryable = isConnectionError

	var conn *amqp091.Connection
	err := resilience.RetryWithBackoff(ctx, policy, func() error {
		c, err := amqp091.Dial(cfg.URL)
		if err != nil {
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	p, err := newPublisher(ch, cfg)
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.conn = conn

	slog.InfoContext(ctx, "Connected to event broker",
		"exchange", cfg.Exchange,
		"routing_key", cfg.RoutingKey)
	return p, nil
}

func newPublisher(ch channel, cfg Config) (*Publisher, error) {
	err := ch.ExchangeDeclare(
		cfg.Exchange, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &Publisher{
		channel:    ch,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		breaker:    resilience.NewCircuitBreaker("amqp-publish", resilience.BreakerSettings{}),
	}, nil
}

// Publish sends one event as a persistent JSON message.
func (p *Publisher) Publish(ctx context.Context, event LedgerEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	key := event.RoutingKey(p.routingKey)
	_, err = p.breaker.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()

		return nil, p.channel.PublishWithContext(ctx,
			p.exchange, // exchange
			key,        // routing key
			false,      // mandatory
			false,      // immediate
			amqp091.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp091.Persistent,
				MessageId:    event.ID.String(),
				Timestamp:    event.Timestamp,
				Body:         body,
			})
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("publish event: circuit breaker is open: %w", err)
		}
		return fmt.Errorf("publish event: %w", err)
	}

	slog.DebugContext(ctx, "Published ledger event",
		"event_id", event.ID,
		"routing_key", key,
		"entity_id", event.EntityID)
	return nil
}

func (p *Publisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// isConnectionError reports whether err looks like a transport failure worth retrying.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}

	var amqpErr *amqp091.Error
	if errors.As(err, &amqpErr) {
		return amqpErr.Recover || amqpErr.Code == amqp091.ConnectionForced
	}

	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection refused", "connection reset", "connection closed", "eof", "broken pipe", "i/o timeout", "no such host"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
