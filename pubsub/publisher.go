package pubsub

import (
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
)

const PublishedAtMetadataKey = "published_at"

type PublishedAtDecorator struct {
	message.Publisher
}

func (d PublishedAtDecorator) Publish(topic string, messages ...*message.Message) error {
	for i := range messages {
		if messages[i].Metadata.Get(PublishedAtMetadataKey) == "" {
			messages[i].Metadata.Set(PublishedAtMetadataKey, time.Now().UTC().Format(time.RFC3339Nano))
		}
	}
	return d.Publisher.Publish(topic, messages...)
}

// PublishedAt reads the publish time stamped by PublishedAtDecorator.
func PublishedAt(msg *message.Message) time.Time {
	publishedAt, err := time.Parse(time.RFC3339Nano, msg.Metadata.Get(PublishedAtMetadataKey))
	if err != nil {
		return time.Now().UTC()
	}
	return publishedAt
}
