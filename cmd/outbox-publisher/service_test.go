package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/IstiakDeveloper/orgreeni/pkg/config"
	"github.com/IstiakDeveloper/orgreeni/pkg/db/models"
	"github.com/IstiakDeveloper/orgreeni/pkg/enums"
	"github.com/IstiakDeveloper/orgreeni/pkg/logger"
	"github.com/IstiakDeveloper/orgreeni/pkg/metrics"
	"github.com/IstiakDeveloper/orgreeni/pkg/outbox"
	"github.com/IstiakDeveloper/orgreeni/pkg/outbox/registry"
)

func TestDrainContinuesAfterTransientFailure(t *testing.T) {
	repo := &fakeRepo{events: []models.OutboxEvent{
		orderEvent(t, enums.EventOrderPlaced, 0),
		orderEvent(t, enums.EventOrderPlaced, 0),
	}}
	tr := &fakeTransport{errs: []error{errors.New("transient"), nil}}
	svc := newTestService(t, repo, tr, &fakeResolver{topic: "orders-topic"}, nil)

	n, err := svc.drain(context.Background())
	if err != nil {
		t.Fatalf("drain returned error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 claimed rows, got %d", n)
	}
	if len(repo.failed) != 1 || repo.failed[0] != repo.events[0].ID {
		t.Fatalf("expected first row marked failed, got %v", repo.failed)
	}
	if len(repo.published) != 1 || repo.published[0] != repo.events[1].ID {
		t.Fatalf("expected second row published, got %v", repo.published)
	}
	if len(repo.dead) != 0 {
		t.Fatalf("nothing should be dead-lettered, got %d", len(repo.dead))
	}
}

func TestPublishCarriesEnvelopeAttributes(t *testing.T) {
	event := orderEvent(t, enums.EventOrderStatusChanged, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	tr := &fakeTransport{}
	svc := newTestService(t, repo, tr, &fakeResolver{topic: "orders-topic"}, nil)

	if _, err := svc.drain(context.Background()); err != nil {
		t.Fatalf("drain returned error: %v", err)
	}
	if len(tr.sent) != 1 {
		t.Fatalf("expected one publish, got %d", len(tr.sent))
	}
	sent := tr.sent[0]
	if sent.topic != "orders-topic" {
		t.Fatalf("unexpected topic %q", sent.topic)
	}
	attrs := sent.msg.Attributes
	if attrs["event_id"] != event.ID.String() {
		t.Fatalf("event_id attribute should be the row id, got %q", attrs["event_id"])
	}
	if attrs["event_type"] != string(enums.EventOrderStatusChanged) {
		t.Fatalf("unexpected event_type attribute %q", attrs["event_type"])
	}
	if attrs["aggregate_id"] != event.AggregateID.String() {
		t.Fatalf("aggregate_id attribute mismatch")
	}
	if attrs["schema_version"] != "1" {
		t.Fatalf("unexpected schema_version %q", attrs["schema_version"])
	}
	if !bytes.Equal(sent.msg.Data, event.Payload) {
		t.Fatalf("payload should be forwarded untouched")
	}
}

func TestDrainDeadLettersMalformedRows(t *testing.T) {
	event := orderEvent(t, enums.EventOrderPlaced, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	tr := &fakeTransport{}
	svc := newTestService(t, repo, tr, &fakeResolver{err: registry.Permanent(errors.New("invalid payload"))}, nil)

	if _, err := svc.drain(context.Background()); err != nil {
		t.Fatalf("drain returned error: %v", err)
	}
	if len(tr.sent) != 0 {
		t.Fatalf("malformed rows must not reach the broker")
	}
	if len(repo.dead) != 1 {
		t.Fatalf("expected one dead letter, got %d", len(repo.dead))
	}
	if got := repo.dead[0]; got.id != event.ID || got.reason != enums.DeadLetterMalformed || got.ceiling != 5 {
		t.Fatalf("unexpected dead letter %+v", got)
	}
}

func TestDrainDeadLettersRejectedPublishes(t *testing.T) {
	event := orderEvent(t, enums.EventOrderPlaced, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	tr := &fakeTransport{errs: []error{registry.Permanent(errors.New("topic deleted"))}}
	svc := newTestService(t, repo, tr, &fakeResolver{topic: "orders-topic"}, nil)

	if _, err := svc.drain(context.Background()); err != nil {
		t.Fatalf("drain returned error: %v", err)
	}
	if len(repo.dead) != 1 || repo.dead[0].reason != enums.DeadLetterRejected {
		t.Fatalf("expected rejected dead letter, got %+v", repo.dead)
	}
	if len(repo.failed) != 0 {
		t.Fatalf("rejected rows are not retried")
	}
}

func TestDrainDeadLettersAtMaxAttempts(t *testing.T) {
	event := orderEvent(t, enums.EventOrderCancelled, 1)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	tr := &fakeTransport{errs: []error{errors.New("transient")}}
	reg := prometheus.NewRegistry()
	svc := newTestService(t, repo, tr, &fakeResolver{topic: "orders-topic"}, &config.OutboxConfig{
		BatchSize:      1,
		PollIntervalMS: 100,
		MaxAttempts:    2,
	})
	svc.metrics = metrics.NewOutboxMetrics(reg)

	if _, err := svc.drain(context.Background()); err != nil {
		t.Fatalf("drain returned error: %v", err)
	}
	if len(repo.dead) != 1 {
		t.Fatalf("expected one dead letter, got %d", len(repo.dead))
	}
	if got := repo.dead[0]; got.reason != enums.DeadLetterMaxAttempts || got.ceiling != 2 {
		t.Fatalf("unexpected dead letter %+v", got)
	}
	if got := counterValue(t, reg, "orgreeni_outbox_events_total", "dead_lettered"); got != 1 {
		t.Fatalf("expected one dead_lettered count, got %v", got)
	}
}

func counterValue(t *testing.T, reg *prometheus.Registry, name, outcome string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "outcome" && label.GetValue() == outcome {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestDrainRollsBackOnBookkeepingFailure(t *testing.T) {
	repo := &fakeRepo{
		events:     []models.OutboxEvent{orderEvent(t, enums.EventOrderPlaced, 0)},
		publishErr: errors.New("connection reset"),
	}
	svc := newTestService(t, repo, &fakeTransport{}, &fakeResolver{topic: "orders-topic"}, nil)

	if _, err := svc.drain(context.Background()); err == nil {
		t.Fatalf("expected bookkeeping failure to surface")
	}
}

func TestRunStopsWhenTransportIsNotReady(t *testing.T) {
	svc := newTestService(t, &fakeRepo{}, &fakeTransport{pingErr: errors.New("no route")}, &fakeResolver{}, nil)
	if err := svc.Run(context.Background()); err == nil {
		t.Fatalf("expected readiness error")
	}
}

func TestRunReturnsOnCancel(t *testing.T) {
	svc := newTestService(t, &fakeRepo{}, &fakeTransport{}, &fakeResolver{}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := svc.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestAMQPTransportRoutesByEventType(t *testing.T) {
	pub := &fakeAMQPPublisher{}
	tr := &amqpTransport{publisher: pub}
	err := tr.Publish(context.Background(), "orders-topic", outboundMessage{
		Data:       []byte(`{}`),
		Attributes: map[string]string{"event_type": "order_status_changed"},
	})
	if err != nil {
		t.Fatalf("publish returned error: %v", err)
	}
	if pub.routingKey != "order.status.changed" {
		t.Fatalf("unexpected routing key %q", pub.routingKey)
	}
	if pub.headers["topic"] != "orders-topic" {
		t.Fatalf("expected topic header, got %q", pub.headers["topic"])
	}
}

func TestNextBackoffCaps(t *testing.T) {
	if got := nextBackoff(0, time.Second, 10*time.Second); got != 2*time.Second {
		t.Fatalf("unexpected first backoff %s", got)
	}
	if got := nextBackoff(8*time.Second, time.Second, 10*time.Second); got != 10*time.Second {
		t.Fatalf("expected cap, got %s", got)
	}
}

func TestWithJitterStaysInWindow(t *testing.T) {
	for range 100 {
		got := withJitter(time.Second)
		if got < time.Second || got >= time.Second+jitterWindow {
			t.Fatalf("jittered wait %s outside window", got)
		}
	}
	if withJitter(0) != 0 {
		t.Fatalf("zero wait must stay zero")
	}
}

func newTestService(t *testing.T, repo outboxRepository, tr transport, res resolver, override *config.OutboxConfig) *Service {
	t.Helper()
	cfg := config.OutboxConfig{BatchSize: 2, PollIntervalMS: 10, MaxAttempts: 5}
	if override != nil {
		cfg = *override
	}
	svc, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logger.New(logger.Options{ServiceName: "outbox-publisher-test", Output: io.Discard}),
		DB:         &fakeDB{},
		Transport:  tr,
		Repository: repo,
		Registry:   res,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func orderEvent(tb testing.TB, eventType enums.OutboxEventType, attempts int) models.OutboxEvent {
	tb.Helper()
	id := uuid.New()
	payload, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    outbox.SchemaVersion,
		EventID:    id,
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(`{}`),
	})
	if err != nil {
		tb.Fatalf("marshal envelope: %v", err)
	}
	return models.OutboxEvent{
		ID:            id,
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       payload,
		AttemptCount:  attempts,
		CreatedAt:     time.Now().UTC(),
	}
}

type deadLetter struct {
	id      uuid.UUID
	reason  enums.DeadLetterReason
	ceiling int
}

type fakeRepo struct {
	events     []models.OutboxEvent
	published  []uuid.UUID
	failed     []uuid.UUID
	dead       []deadLetter
	publishErr error
}

func (f *fakeRepo) ClaimBatch(*gorm.DB, int, int) ([]models.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeRepo) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) DeadLetterTx(_ *gorm.DB, event models.OutboxEvent, reason enums.DeadLetterReason, _ error, ceiling int) error {
	f.dead = append(f.dead, deadLetter{id: event.ID, reason: reason, ceiling: ceiling})
	return nil
}

type fakeDB struct{}

func (f *fakeDB) Ping(context.Context) error { return nil }

func (f *fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error {
	return fn(nil)
}

type sentMessage struct {
	topic string
	msg   outboundMessage
}

type fakeTransport struct {
	errs    []error
	sent    []sentMessage
	pingErr error
}

func (f *fakeTransport) Name() string { return "fake" }

func (f *fakeTransport) Ping(context.Context) error { return f.pingErr }

func (f *fakeTransport) Publish(_ context.Context, topic string, msg outboundMessage) error {
	var err error
	if len(f.errs) > 0 {
		err = f.errs[0]
		f.errs = f.errs[1:]
	}
	if err == nil {
		f.sent = append(f.sent, sentMessage{topic: topic, msg: msg})
	}
	return err
}

type fakeAMQPPublisher struct {
	routingKey string
	headers    map[string]string
}

func (f *fakeAMQPPublisher) Ping(context.Context) error { return nil }

func (f *fakeAMQPPublisher) Publish(_ context.Context, routingKey string, _ []byte, headers map[string]string) error {
	f.routingKey = routingKey
	f.headers = headers
	return nil
}

// fakeResolver routes every row to topic, or fails with err.
type fakeResolver struct {
	topic string
	err   error
}

func (f *fakeResolver) Resolve(event models.OutboxEvent) (*registry.Resolved, error) {
	if f.err != nil {
		return nil, f.err
	}
	env, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, registry.Permanent(err)
	}
	return &registry.Resolved{
		Route:    registry.Route{EventType: event.EventType, AggregateType: event.AggregateType, Topic: f.topic},
		Envelope: env,
	}, nil
}
