package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// subscriberBuffer is how many payloads a subscription holds for a slow
// reader before the client starts dropping them.
const subscriberBuffer = 64

// dial connects to url as name, reconnecting forever. opts are applied after
// the defaults so callers can override them or add handlers.
func dial(url, name string, opts []nats.Option) (*nats.Conn, error) {
	all := append([]nats.Option{
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}, opts...)
	nc, err := nats.Connect(url, all...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return nc, nil
}

// NATSPublisher publishes JSON-encoded broadcasts to NATS subjects named
// after their topic. Publishes made while disconnected are buffered by the
// client and flushed on reconnect.
type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string, opts ...nats.Option) (*NATSPublisher, error) {
	nc, err := dial(url, "hands-publisher", opts)
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{conn: nc}, nil
}

func (p *NATSPublisher) Publish(_ context.Context, topic string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	if err := p.conn.Publish(topic, data); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	return nil
}

func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}

// NATSSubscriber reads broadcasts straight off the NATS subjects the server
// publishes to.
type NATSSubscriber struct {
	conn *nats.Conn
}

func NewNATSSubscriber(url string, opts ...nats.Option) (*NATSSubscriber, error) {
	nc, err := dial(url, "hands-subscriber", opts)
	if err != nil {
		return nil, err
	}
	return &NATSSubscriber{conn: nc}, nil
}

// Subscribe delivers payloads published on topic, which may use NATS
// wildcards such as TopicAll. The client buffers up to subscriberBuffer
// payloads and drops the rest while the reader falls behind.
//
// The returned channel is closed by the time cancel returns; payloads still
// buffered at that point are discarded.
func (s *NATSSubscriber) Subscribe(topic string) (<-chan []byte, func(), error) {
	in := make(chan *nats.Msg, subscriberBuffer)
	sub, err := s.conn.ChanSubscribe(topic, in)
	if err != nil {
		return nil, nil, fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	// The subscription must reach the server before publishes on other
	// connections are routed to it.
	if err := s.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, nil, fmt.Errorf("flushing subscription: %w", err)
	}

	out := make(chan []byte)
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		forward(in, out, done)
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			_ = sub.Unsubscribe()
			close(done)
			<-exited
		})
	}
	return out, cancel, nil
}

// forward hands payloads from in to out until done closes, then closes out.
func forward(in <-chan *nats.Msg, out chan<- []byte, done <-chan struct{}) {
	defer close(out)
	for {
		select {
		case <-done:
			return
		case msg := <-in:
			select {
			case out <- msg.Data:
			case <-done:
				return
			}
		}
	}
}

func (s *NATSSubscriber) Close() error {
	s.conn.Close()
	return nil
}
