// Package pubsub is the Pub/Sub side of the outbox publisher: it checks
// the routed topics exist and hands out publishers for them.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"go.uber.org/multierr"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/IstiakDeveloper/orgreeni/pkg/logger"
)

var ErrTopicMissing = errors.New("pubsub topic does not exist")

type Client struct {
	client  *gcppubsub.Client
	project string
	topics  []string
}

// Dial connects to projectID and fails unless every topic exists.
func Dial(ctx context.Context, projectID string, topics []string, logg *logger.Logger) (*Client, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, errors.New("pubsub: gcp project id is required")
	}
	if len(topics) == 0 {
		return nil, errors.New("pubsub: no topics to publish to")
	}

	raw, err := gcppubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub: new client: %w", err)
	}
	c := &Client{client: raw, project: projectID, topics: topics}
	if err := c.Ping(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"project": projectID,
			"topics":  topics,
		}), "pubsub.connected")
	}
	return c, nil
}

// Ping looks every topic up and reports all the missing ones at once.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("pubsub: client not initialized")
	}
	var errs error
	for _, topic := range c.topics {
		errs = multierr.Append(errs, c.checkTopic(ctx, topic))
	}
	return errs
}

func (c *Client) checkTopic(ctx context.Context, topic string) error {
	path, err := TopicPath(c.project, topic)
	if err != nil {
		return err
	}
	_, err = c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: path})
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%w: %s", ErrTopicMissing, path)
	default:
		return fmt.Errorf("pubsub: get topic %s: %w", path, err)
	}
}

// Publisher returns a publisher for topic, or nil if the name is blank.
// Callers own the handle and must Stop it.
func (c *Client) Publisher(topic string) *gcppubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	path, err := TopicPath(c.project, topic)
	if err != nil {
		return nil
	}
	return c.client.Publisher(path)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// TopicPath expands a bare topic id to projects/<project>/topics/<id>.
// Full resource names pass through.
func TopicPath(project, topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", errors.New("pubsub: blank topic name")
	}
	if strings.HasPrefix(topic, "projects/") && strings.Contains(topic, "/topics/") {
		return topic, nil
	}
	project = strings.TrimSpace(project)
	if project == "" {
		return "", errors.New("pubsub: project required for topic " + topic)
	}
	return "projects/" + project + "/topics/" + topic, nil
}
