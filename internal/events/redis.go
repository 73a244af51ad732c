package events

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// NewRedisStreamPublisher publishes booking events to Redis streams named after the topics
func NewRedisStreamPublisher(client *redis.Client, logger *logrus.Logger) (*WatermillPublisher, error) {
	publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client: client,
	}, NewLogrusAdapter(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create redis stream publisher: %w", err)
	}

	return NewWatermillPublisher(publisher), nil
}
