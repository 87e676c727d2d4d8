package pubsub

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func receiveEvent(t *testing.T, sub Subscription) Event {
	t.Helper()
	select {
	case event := <-sub.Events():
		return event
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for an event")
		return Event{}
	}
}

func expectNoEvent(t *testing.T, sub Subscription) {
	t.Helper()
	select {
	case event := <-sub.Events():
		t.Fatalf("Expected no event, got %+v", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishDelivers(t *testing.T) {
	p := NewSSEPublisher()
	defer p.Close()

	sub, err := p.Subscribe(context.Background(), TopicPipelineStatus)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Close()

	status := PipelineStatus{State: "generating", Step: 2, Total: 3}
	if err := p.Publish(TopicPipelineStatus, "generating", status); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	event := receiveEvent(t, sub)
	if event.Topic != TopicPipelineStatus || event.Type != "generating" {
		t.Errorf("Unexpected event: %+v", event)
	}
	var got PipelineStatus
	if err := json.Unmarshal(event.Data, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got != status {
		t.Errorf("Expected %+v, got %+v", status, got)
	}
}

func TestVersionsIncreasePerTopic(t *testing.T) {
	p := NewSSEPublisher()
	defer p.Close()

	sub, err := p.Subscribe(context.Background(), TopicGraph)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Close()

	for i := 0; i < 3; i++ {
		if err := p.Publish(TopicGraph, "update", GraphUpdate{Nodes: i}); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
	}
	// A publish on another topic must not advance this topic's counter.
	if err := p.Publish(TopicPipelineStatus, "ready", PipelineStatus{}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	for want := 1; want <= 3; want++ {
		event := receiveEvent(t, sub)
		if event.Version != want {
			t.Errorf("Expected version %d, got %d", want, event.Version)
		}
	}
	expectNoEvent(t, sub)
}

func TestTopicIsolation(t *testing.T) {
	p := NewSSEPublisher()
	defer p.Close()

	sub, err := p.Subscribe(context.Background(), TopicGraph)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Close()

	if err := p.Publish(TopicPipelineStatus, "importing", PipelineStatus{}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	expectNoEvent(t, sub)
}

func TestReplayLatestOnly(t *testing.T) {
	p := NewSSEPublisher()
	defer p.Close()
	p.ConfigureTopic(TopicGraph, TopicConfig{BufferSize: 10})

	for i := 0; i < 3; i++ {
		if err := p.Publish(TopicGraph, "update", GraphUpdate{Nodes: i}); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
	}

	sub, err := p.Subscribe(context.Background(), TopicGraph)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Close()

	event := receiveEvent(t, sub)
	if event.Version != 3 {
		t.Errorf("Expected only the latest event, got version %d", event.Version)
	}
	expectNoEvent(t, sub)
}

func TestReplayAll(t *testing.T) {
	p := NewSSEPublisher()
	defer p.Close()
	p.ConfigureTopic(TopicPipelineStatus, TopicConfig{BufferSize: 10, ReplayAll: true})

	for i := 0; i < 3; i++ {
		if err := p.Publish(TopicPipelineStatus, "step", PipelineStatus{Step: i}); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
	}

	sub, err := p.Subscribe(context.Background(), TopicPipelineStatus)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Close()

	for want := 1; want <= 3; want++ {
		event := receiveEvent(t, sub)
		if event.Version != want {
			t.Errorf("Expected version %d, got %d", want, event.Version)
		}
	}
}

func TestBufferCapped(t *testing.T) {
	p := NewSSEPublisher()
	defer p.Close()
	p.ConfigureTopic(TopicGraph, TopicConfig{BufferSize: 2, ReplayAll: true})

	for i := 0; i < 5; i++ {
		if err := p.Publish(TopicGraph, "update", GraphUpdate{Nodes: i}); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
	}

	sub, err := p.Subscribe(context.Background(), TopicGraph)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Close()

	first := receiveEvent(t, sub)
	if first.Version != 4 {
		t.Errorf("Expected the buffer to keep only the last 2, got version %d", first.Version)
	}
	second := receiveEvent(t, sub)
	if second.Version != 5 {
		t.Errorf("Expected version 5, got %d", second.Version)
	}
	expectNoEvent(t, sub)
}

func TestClosedSubscriptionStopsReceiving(t *testing.T) {
	p := NewSSEPublisher()
	defer p.Close()

	sub, err := p.Subscribe(context.Background(), TopicGraph)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	sub.Close()

	if err := p.Publish(TopicGraph, "update", GraphUpdate{}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	expectNoEvent(t, sub)
}

func TestContextCancelClosesSubscription(t *testing.T) {
	p := NewSSEPublisher()
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := p.Subscribe(ctx, TopicGraph)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	cancel()

	// The unsubscribe runs on a goroutine; give it a moment, then verify
	// delivery has stopped.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		p.mu.RLock()
		_, attached := p.subscriptions[TopicGraph][sub.(*sseSubscription)]
		p.mu.RUnlock()
		if !attached {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := p.Publish(TopicGraph, "update", GraphUpdate{}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	expectNoEvent(t, sub)
}

func TestPublishAfterClose(t *testing.T) {
	p := NewSSEPublisher()
	p.Close()

	if err := p.Publish(TopicGraph, "update", GraphUpdate{}); err == nil {
		t.Error("Expected an error publishing after close")
	}
	if _, err := p.Subscribe(context.Background(), TopicGraph); err == nil {
		t.Error("Expected an error subscribing after close")
	}
}

func TestWriteSSE(t *testing.T) {
	var buf bytes.Buffer
	event := Event{Topic: TopicGraph, Type: "update", Data: json.RawMessage(`{"nodes":1}`), Version: 7}
	if err := WriteSSE(&buf, event); err != nil {
		t.Fatalf("WriteSSE failed: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "data: ") || !strings.HasSuffix(out, "\n\n") {
		t.Errorf("Unexpected wire framing: %q", out)
	}
	var decoded Event
	if err := json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(out, "data: "))), &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded.Version != 7 || decoded.Topic != TopicGraph {
		t.Errorf("Unexpected decoded event: %+v", decoded)
	}
}
