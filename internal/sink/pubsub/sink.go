// Package pubsub implements a Google Cloud Pub/Sub sink.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"

	"github.com/kodexai/regwatch/internal/regulator"
)

// Sink publishes each publication as a JSON message to one topic.
type Sink struct {
	topic *pubsub.Topic
}

// New creates a Sink for the provided topic.
func New(topic *pubsub.Topic) *Sink {
	return &Sink{topic: topic}
}

// Publish marshals the publication to JSON and publishes it.
func (s *Sink) Publish(ctx context.Context, pub regulator.Publication) error {
	if s.topic == nil {
		return fmt.Errorf("pubsub topic is not configured")
	}
	data, err := json.Marshal(pub)
	if err != nil {
		return fmt.Errorf("marshal publication: %w", err)
	}

	msg := &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"regulator":    pub.Regulator,
			"content_type": string(pub.ContentType),
		},
	}
	if _, err := s.topic.Publish(ctx, msg).Get(ctx); err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}
