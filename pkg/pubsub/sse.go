package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/DerAndereJohannes/pmrs-cli/pkg/logging"
)

// TopicConfig controls buffering for late subscribers.
type TopicConfig struct {
	BufferSize int  // events retained per topic (0 disables buffering)
	ReplayAll  bool // replay the whole buffer instead of only the latest event
}

// SSEPublisher implements Publisher for Server-Sent Events delivery.
type SSEPublisher struct {
	mu            sync.RWMutex
	subscriptions map[string]map[*sseSubscription]bool
	version       map[string]int
	buffer        map[string][]Event
	config        map[string]TopicConfig
	closed        bool
}

// NewSSEPublisher creates an SSE publisher.
func NewSSEPublisher() *SSEPublisher {
	return &SSEPublisher{
		subscriptions: make(map[string]map[*sseSubscription]bool),
		version:       make(map[string]int),
		buffer:        make(map[string][]Event),
		config:        make(map[string]TopicConfig),
	}
}

// ConfigureTopic sets the buffering behavior of a topic.
func (p *SSEPublisher) ConfigureTopic(topic string, config TopicConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.config[topic] = config
}

// Subscribe attaches to a topic and replays buffered events according to
// the topic's configuration.
func (p *SSEPublisher) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, fmt.Errorf("publisher is closed")
	}

	sub := &sseSubscription{
		topic:     topic,
		events:    make(chan Event, 100), // buffered so publishers never block
		publisher: p,
	}
	if p.subscriptions[topic] == nil {
		p.subscriptions[topic] = make(map[*sseSubscription]bool)
	}
	p.subscriptions[topic][sub] = true

	config := p.config[topic]
	replay := make([]Event, len(p.buffer[topic]))
	copy(replay, p.buffer[topic])
	p.mu.Unlock()

	if len(replay) > 0 && !config.ReplayAll {
		replay = replay[len(replay)-1:]
	}
	for _, event := range replay {
		select {
		case sub.events <- event:
		default:
			logging.Warn("dropping replayed event", "topic", topic)
		}
	}

	go func() {
		<-ctx.Done()
		sub.Close()
	}()

	return sub, nil
}

// Publish delivers an event to every subscriber of the topic.
func (p *SSEPublisher) Publish(topic, eventType string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling event data: %w", err)
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return fmt.Errorf("publisher is closed")
	}

	p.version[topic]++
	event := Event{
		Topic:   topic,
		Type:    eventType,
		Data:    payload,
		Version: p.version[topic],
	}

	if config := p.config[topic]; config.BufferSize > 0 {
		buffered := append(p.buffer[topic], event)
		if len(buffered) > config.BufferSize {
			buffered = buffered[len(buffered)-config.BufferSize:]
		}
		p.buffer[topic] = buffered
	}

	subs := make([]*sseSubscription, 0, len(p.subscriptions[topic]))
	for sub := range p.subscriptions[topic] {
		subs = append(subs, sub)
	}
	p.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub.events <- event:
		default:
			logging.Warn("subscriber too slow, dropping event", "topic", topic)
		}
	}
	return nil
}

// Close shuts down the publisher and every subscription.
func (p *SSEPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	var subs []*sseSubscription
	for _, topicSubs := range p.subscriptions {
		for sub := range topicSubs {
			subs = append(subs, sub)
		}
	}
	p.subscriptions = make(map[string]map[*sseSubscription]bool)
	p.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
	return nil
}

func (p *SSEPublisher) unsubscribe(sub *sseSubscription) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if subs := p.subscriptions[sub.topic]; subs != nil {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(p.subscriptions, sub.topic)
		}
	}
}

type sseSubscription struct {
	topic     string
	events    chan Event
	publisher *SSEPublisher
	closed    bool
	mu        sync.Mutex
}

func (s *sseSubscription) Topic() string {
	return s.topic
}

func (s *sseSubscription) Events() <-chan Event {
	return s.events
}

func (s *sseSubscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.publisher.unsubscribe(s)
	return nil
}

// WriteSSE renders an event in the text/event-stream wire format.
func WriteSSE(w io.Writer, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", payload)
	return err
}
