// Package amqp publishes outbox events to a RabbitMQ topic exchange.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/IstiakDeveloper/orgreeni/pkg/config"
	"github.com/IstiakDeveloper/orgreeni/pkg/logger"
)

var (
	errURLRequired      = errors.New("amqp url is required")
	errExchangeRequired = errors.New("amqp exchange is required")
	// ErrNacked is returned when the broker refuses a confirmed publish.
	ErrNacked = errors.New("amqp publish nacked by broker")
)

// Publisher owns one connection and one confirm-mode channel. Publishes are
// serialised because a channel is not safe for concurrent use.
type Publisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// NewPublisher dials the broker, declares the durable topic exchange and puts
// the channel into confirm mode.
func NewPublisher(ctx context.Context, cfg config.AMQPConfig, logg *logger.Logger) (*Publisher, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errURLRequired
	}
	exchange := strings.TrimSpace(cfg.Exchange)
	if exchange == "" {
		return nil, errExchangeRequired
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dialing amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("opening amqp channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declaring exchange %q: %w", exchange, err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("enabling publisher confirms: %w", err)
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "exchange", exchange), "amqp.connected")
	}
	return &Publisher{conn: conn, channel: ch, exchange: exchange}, nil
}

// Publish sends body with routingKey and waits for the broker confirm.
func (p *Publisher) Publish(ctx context.Context, routingKey string, body []byte, headers map[string]string) error {
	if p == nil || p.channel == nil {
		return errors.New("amqp publisher not initialized")
	}

	table := amqp.Table{}
	for k, v := range headers {
		table[k] = v
	}
	msg := amqp.Publishing{
		Headers:      table,
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		MessageId:    headers["event_id"],
		Type:         headers["event_type"],
		Body:         body,
	}

	p.mu.Lock()
	confirm, err := p.channel.PublishWithDeferredConfirmWithContext(ctx, p.exchange, routingKey, false, false, msg)
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("publishing to %s/%s: %w", p.exchange, routingKey, err)
	}
	if confirm == nil {
		return nil
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("waiting for confirm: %w", err)
	}
	if !acked {
		return ErrNacked
	}
	return nil
}

// Ping reports whether the connection and channel are still open.
func (p *Publisher) Ping(context.Context) error {
	if p == nil || p.conn == nil || p.channel == nil {
		return errors.New("amqp publisher not initialized")
	}
	if p.conn.IsClosed() {
		return errors.New("amqp connection closed")
	}
	if p.channel.IsClosed() {
		return errors.New("amqp channel closed")
	}
	return nil
}

// Close shuts down the channel then the connection.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	var errs []error
	if p.channel != nil {
		if err := p.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RoutingKey maps an event type such as order_status_changed to the dotted
// key order.status.changed used for topic bindings.
func RoutingKey(eventType string) string {
	return strings.ReplaceAll(strings.TrimSpace(eventType), "_", ".")
}
