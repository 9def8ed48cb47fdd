package events

import "context"

// NoopPublisher is a Publisher that drops every event. It stands in when
// broadcasting is turned off.
type NoopPublisher struct{}

func (n *NoopPublisher) Publish(ctx context.Context, topic string, event any) error {
	return nil
}

func (n *NoopPublisher) Close() error {
	return nil
}
