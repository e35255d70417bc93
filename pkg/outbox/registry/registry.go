// Package registry routes outbox rows: it knows which topic each event type
// goes to and how to decode its payload.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/IstiakDeveloper/orgreeni/pkg/config"
	"github.com/IstiakDeveloper/orgreeni/pkg/db/models"
	"github.com/IstiakDeveloper/orgreeni/pkg/enums"
	"github.com/IstiakDeveloper/orgreeni/pkg/outbox"
	"github.com/IstiakDeveloper/orgreeni/pkg/outbox/payloads"
)

// Route is where one event type goes.
type Route struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
	decode        func(json.RawMessage) (any, error)
}

// Resolved is a row that passed validation, with its payload decoded.
type Resolved struct {
	Route    Route
	Envelope outbox.PayloadEnvelope
	Payload  any
}

// PermanentError marks a failure that no retry can fix.
type PermanentError struct {
	Err error
}

func (e PermanentError) Error() string {
	if e.Err == nil {
		return "permanent failure"
	}
	return e.Err.Error()
}

func (e PermanentError) Unwrap() error { return e.Err }

func Permanent(err error) error {
	return PermanentError{Err: err}
}

// IsPermanent reports whether err, or anything it wraps, is permanent.
func IsPermanent(err error) bool {
	var p PermanentError
	return errors.As(err, &p)
}

type Registry struct {
	routes map[enums.OutboxEventType]Route
}

func decodeAs[T any](raw json.RawMessage) (any, error) {
	v := new(T)
	if err := json.Unmarshal(raw, v); err != nil {
		return nil, err
	}
	return v, nil
}

// New routes order lifecycle and payment events to the orders topic and
// stock alerts to the inventory topic.
func New(cfg config.PubSubConfig) (*Registry, error) {
	if cfg.OrdersTopic == "" {
		return nil, errors.New("registry: orders topic is required")
	}
	if cfg.InventoryTopic == "" {
		return nil, errors.New("registry: inventory topic is required")
	}

	r := &Registry{routes: map[enums.OutboxEventType]Route{}}
	r.add(enums.EventOrderPlaced, enums.AggregateOrder, cfg.OrdersTopic, decodeAs[payloads.OrderPlacedEvent])
	r.add(enums.EventOrderStatusChanged, enums.AggregateOrder, cfg.OrdersTopic, decodeAs[payloads.OrderStatusChangedEvent])
	r.add(enums.EventOrderCancelled, enums.AggregateOrder, cfg.OrdersTopic, decodeAs[payloads.OrderCancelledEvent])
	r.add(enums.EventPaymentStatusChanged, enums.AggregateOrder, cfg.OrdersTopic, decodeAs[payloads.PaymentStatusChangedEvent])
	r.add(enums.EventStockLow, enums.AggregateProduct, cfg.InventoryTopic, decodeAs[payloads.StockLowEvent])
	return r, nil
}

func (r *Registry) add(eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType, topic string, decode func(json.RawMessage) (any, error)) {
	r.routes[eventType] = Route{
		EventType:     eventType,
		AggregateType: aggregate,
		Topic:         topic,
		decode:        decode,
	}
}

// Topics lists the distinct topics, sorted.
func (r *Registry) Topics() []string {
	seen := map[string]bool{}
	var topics []string
	for _, route := range r.routes {
		if !seen[route.Topic] {
			seen[route.Topic] = true
			topics = append(topics, route.Topic)
		}
	}
	sort.Strings(topics)
	return topics
}

// Resolve checks event against its route and decodes the payload. Every
// error it returns is permanent.
func (r *Registry) Resolve(event models.OutboxEvent) (*Resolved, error) {
	route, ok := r.routes[event.EventType]
	if !ok {
		return nil, Permanent(fmt.Errorf("no route for event type %q", event.EventType))
	}
	if route.AggregateType != event.AggregateType {
		return nil, Permanent(fmt.Errorf("%s expects aggregate %s, row has %s", event.EventType, route.AggregateType, event.AggregateType))
	}
	if event.AggregateID == uuid.Nil {
		return nil, Permanent(errors.New("row has no aggregate_id"))
	}

	env, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, Permanent(err)
	}
	payload, err := route.decode(env.Data)
	if err != nil {
		return nil, Permanent(fmt.Errorf("decode %s data: %w", event.EventType, err))
	}
	return &Resolved{Route: route, Envelope: env, Payload: payload}, nil
}
