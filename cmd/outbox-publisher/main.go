package main

import (
	"context"
	"fmt"

	"github.com/IstiakDeveloper/orgreeni/pkg/amqp"
	"github.com/IstiakDeveloper/orgreeni/pkg/bootstrap"
	"github.com/IstiakDeveloper/orgreeni/pkg/metrics"
	"github.com/IstiakDeveloper/orgreeni/pkg/outbox"
	"github.com/IstiakDeveloper/orgreeni/pkg/outbox/registry"
	"github.com/IstiakDeveloper/orgreeni/pkg/pubsub"
)

func main() {
	bootstrap.Main("outbox-publisher", run)
}

func run(ctx context.Context, rt *bootstrap.Runtime) error {
	routes, err := registry.New(rt.Config.PubSub)
	if err != nil {
		return err
	}
	tr, err := buildTransport(ctx, rt, routes.Topics())
	if err != nil {
		return fmt.Errorf("publish transport: %w", err)
	}

	svc, err := NewService(ServiceParams{
		Config:     rt.Config.Outbox,
		Logger:     rt.Logger,
		DB:         rt.DB,
		Transport:  tr,
		Repository: outbox.NewRepository(rt.DB.DB()),
		Registry:   routes,
		Metrics:    metrics.NewOutboxMetrics(rt.Registry),
	})
	if err != nil {
		return err
	}
	return svc.Run(ctx)
}

// buildTransport picks RabbitMQ or Pub/Sub from ORGREENI_OUTBOX_TRANSPORT
// and registers its shutdown with rt.
func buildTransport(ctx context.Context, rt *bootstrap.Runtime, topics []string) (transport, error) {
	if rt.Config.Outbox.UsesAMQP() {
		publisher, err := amqp.NewPublisher(ctx, rt.Config.AMQP, rt.Logger)
		if err != nil {
			return nil, err
		}
		rt.OnClose("amqp", publisher.Close)
		return &amqpTransport{publisher: publisher}, nil
	}

	client, err := pubsub.Dial(ctx, rt.Config.GCP.ProjectID, topics, rt.Logger)
	if err != nil {
		return nil, err
	}
	t := newPubSubTransport(client)
	rt.OnClose("pubsub", func() error {
		t.Stop()
		return client.Close()
	})
	return t, nil
}
