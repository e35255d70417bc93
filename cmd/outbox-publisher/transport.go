package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/IstiakDeveloper/orgreeni/pkg/amqp"
	"github.com/IstiakDeveloper/orgreeni/pkg/outbox/registry"
)

type outboundMessage struct {
	Data       []byte
	Attributes map[string]string
}

// transport delivers one resolved outbox row to the broker and returns once
// the broker has acknowledged it.
type transport interface {
	Name() string
	Ping(context.Context) error
	Publish(ctx context.Context, topic string, msg outboundMessage) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type pubSubTransport struct {
	client     pubSubClient
	mu         sync.Mutex
	publishers map[string]*gcppubsub.Publisher
}

func newPubSubTransport(client pubSubClient) *pubSubTransport {
	return &pubSubTransport{client: client, publishers: map[string]*gcppubsub.Publisher{}}
}

func (t *pubSubTransport) Name() string { return "pubsub" }

func (t *pubSubTransport) Ping(ctx context.Context) error { return t.client.Ping(ctx) }

func (t *pubSubTransport) Publish(ctx context.Context, topic string, msg outboundMessage) error {
	pub := t.publisher(topic)
	if pub == nil {
		return registry.Permanent(fmt.Errorf("publisher not configured for topic %s", topic))
	}
	result := pub.Publish(ctx, &gcppubsub.Message{Data: msg.Data, Attributes: msg.Attributes})
	if result == nil {
		return errors.New("publish result is nil")
	}
	_, err := result.Get(ctx)
	return err
}

// Stop flushes and stops every publisher handed out so far.
func (t *pubSubTransport) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, pub := range t.publishers {
		pub.Stop()
	}
}

func (t *pubSubTransport) publisher(topic string) *gcppubsub.Publisher {
	t.mu.Lock()
	defer t.mu.Unlock()
	if pub, ok := t.publishers[topic]; ok {
		return pub
	}
	pub := t.client.Publisher(topic)
	if pub != nil {
		t.publishers[topic] = pub
	}
	return pub
}

type amqpPublisher interface {
	Ping(context.Context) error
	Publish(ctx context.Context, routingKey string, body []byte, headers map[string]string) error
}

// amqpTransport routes by event type; the logical topic travels as a header
// so consumers can still filter on it.
type amqpTransport struct {
	publisher amqpPublisher
}

func (t *amqpTransport) Name() string { return "amqp" }

func (t *amqpTransport) Ping(ctx context.Context) error { return t.publisher.Ping(ctx) }

func (t *amqpTransport) Publish(ctx context.Context, topic string, msg outboundMessage) error {
	headers := make(map[string]string, len(msg.Attributes)+1)
	for k, v := range msg.Attributes {
		headers[k] = v
	}
	headers["topic"] = topic
	return t.publisher.Publish(ctx, amqp.RoutingKey(msg.Attributes["event_type"]), msg.Data, headers)
}
