package eventbus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Metadata keys set on every published message.
const (
	TopicMetadataKey       = "topic"
	TenantMetadataKey      = "tenant_id"
	CorrelationMetadataKey = "correlation_id"
)

// EventBus is the in-process Watermill pub/sub the service publishes domain
// events on.
type EventBus struct {
	pubsub          *gochannel.GoChannel
	logger          *slog.Logger
	watermillLogger watermill.LoggerAdapter
}

// NewEventBus creates an EventBus backed by a Go channel pub/sub.
func NewEventBus(logger *slog.Logger, buffer int64) *EventBus {
	if logger == nil {
		logger = slog.Default()
	}
	// Create a Watermill logger that wraps slog
	watermillLogger := watermill.NewSlogLogger(logger)

	pubsub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            buffer,
			BlockPublishUntilSubscriberAck: false,
		},
		watermillLogger,
	)

	return &EventBus{
		pubsub:          pubsub,
		logger:          logger,
		watermillLogger: watermillLogger,
	}
}

// Publish sends msg to topic.
func (eb *EventBus) Publish(ctx context.Context, topic string, msg *message.Message) error {
	if msg.UUID == "" {
		msg.UUID = watermill.NewUUID()
	}
	msg.Metadata.Set(TopicMetadataKey, topic)
	msg.SetContext(ctx)

	eb.logger.DebugContext(ctx, "Publishing message",
		slog.String("topic", topic),
		slog.String("message_id", msg.UUID),
		slog.String("tenant_id", msg.Metadata.Get(TenantMetadataKey)),
	)

	if err := eb.pubsub.Publish(topic, msg); err != nil {
		eb.logger.ErrorContext(ctx, "Failed to publish message",
			slog.String("topic", topic),
			slog.Any("error", err),
		)
		return fmt.Errorf("failed to publish message to %s: %w", topic, err)
	}
	return nil
}

// Subscriber exposes the bus to a message.Router.
func (eb *EventBus) Subscriber() message.Subscriber {
	return eb.pubsub
}

// Publisher exposes the bus as a plain Watermill publisher.
func (eb *EventBus) Publisher() message.Publisher {
	return eb.pubsub
}

// WatermillLogger returns the slog-backed logger adapter shared with routers.
func (eb *EventBus) WatermillLogger() watermill.LoggerAdapter {
	return eb.watermillLogger
}

// Close closes the underlying pub/sub. Pending subscribers are released.
func (eb *EventBus) Close() error {
	if err := eb.pubsub.Close(); err != nil {
		eb.logger.Error("Error closing pub/sub", slog.Any("error", err))
		return err
	}
	return nil
}
