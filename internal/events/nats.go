package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// subscriberBuffer is how many undelivered payloads a subscription holds
// before new ones are dropped.
const subscriberBuffer = 64

func connect(url, name string, opts ...nats.Option) (*nats.Conn, error) {
	base := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	nc, err := nats.Connect(url, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return nc, nil
}

// NATSPublisher publishes record events as JSON on foundry.* subjects.
type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string) (*NATSPublisher, error) {
	nc, err := connect(url, "foundry-server")
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{conn: nc}, nil
}

// Publish sends event, encoded with Encode, on topic.
func (p *NATSPublisher) Publish(ctx context.Context, topic string, event any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, _, ok := ParseTopic(topic); !ok {
		return fmt.Errorf("publishing to %q: not a %s topic", topic, TopicPrefix)
	}
	data, err := Encode(event)
	if err != nil {
		return err
	}
	return p.conn.Publish(topic, data)
}

func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}

// NATSSubscriber reads record events for the CLI's watch command.
type NATSSubscriber struct {
	conn *nats.Conn
}

// NewNATSSubscriber connects with unlimited reconnects. opts are appended
// to the defaults (e.g. disconnect and reconnect handlers).
func NewNATSSubscriber(url string, opts ...nats.Option) (*NATSSubscriber, error) {
	nc, err := connect(url, "foundry-watch", opts...)
	if err != nil {
		return nil, err
	}
	return &NATSSubscriber{conn: nc}, nil
}

// subscription bridges a NATS callback to a channel. Once cancelled it
// accepts nothing further.
type subscription struct {
	mu     sync.Mutex
	ch     chan []byte
	sub    *nats.Subscription
	closed bool
}

func (s *subscription) deliver(msg *nats.Msg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- msg.Data:
	default:
		// full: drop rather than stall the connection's dispatcher
	}
}

func (s *subscription) cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.sub != nil {
		_ = s.sub.Unsubscribe()
	}
	// A cancelled subscription yields nothing, even what was buffered.
	for {
		select {
		case <-s.ch:
		default:
			close(s.ch)
			return
		}
	}
}

// Subscribe streams payloads for topic, which may use NATS wildcards
// ("foundry.>", "foundry.talents.*"). The subscription is registered on the
// server before Subscribe returns.
func (s *NATSSubscriber) Subscribe(topic string) (<-chan []byte, func(), error) {
	sub := &subscription{ch: make(chan []byte, subscriberBuffer)}

	ns, err := s.conn.Subscribe(topic, sub.deliver)
	if err != nil {
		sub.cancel()
		return nil, nil, fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	sub.mu.Lock()
	sub.sub = ns
	sub.mu.Unlock()

	if err := s.conn.Flush(); err != nil {
		sub.cancel()
		return nil, nil, fmt.Errorf("flushing subscription: %w", err)
	}
	return sub.ch, sub.cancel, nil
}

func (s *NATSSubscriber) Close() error {
	s.conn.Close()
	return nil
}
