// Package events carries hand-raise broadcasts to connected clients.
//
// Every successful mutation produces one model.Broadcast, published on the
// topic for its kind. Delivery is fire-and-forget: the publisher never
// learns whether anyone received it.
package events

import (
	"context"

	"github.com/alfredjeanlab/hands/internal/model"
)

// Topic constants. The topic is "hands." followed by the broadcast kind.
const (
	TopicSessionStarted   = "hands." + string(model.KindSessionStarted)
	TopicSessionEnded     = "hands." + string(model.KindSessionEnded)
	TopicHandRaised       = "hands." + string(model.KindHandRaised)
	TopicHandLowered      = "hands." + string(model.KindHandLowered)
	TopicHandAcknowledged = "hands." + string(model.KindHandAcknowledged)
	TopicHandDenied       = "hands." + string(model.KindHandDenied)
	TopicHandsCleared     = "hands." + string(model.KindHandsCleared)

	// TopicAll matches every hand-raise topic.
	TopicAll = "hands.>"
)

// TopicFor returns the topic a broadcast of the given kind is published on.
func TopicFor(kind model.BroadcastKind) string {
	return "hands." + string(kind)
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// Subscriber receives broadcast payloads. NATSSubscriber reads them from the
// bus; the HTTP client reads the server's event stream.
type Subscriber interface {
	// Subscribe delivers raw payloads for topic on the returned channel.
	// Calling cancel unsubscribes and closes the channel.
	Subscribe(topic string) (<-chan []byte, func(), error)
	Close() error
}

// PublishBroadcast publishes b on the topic for its kind.
func PublishBroadcast(ctx context.Context, p Publisher, b *model.Broadcast) error {
	return p.Publish(ctx, TopicFor(b.Kind), b)
}
