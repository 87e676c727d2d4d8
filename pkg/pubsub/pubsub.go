// Package pubsub carries pipeline and graph updates from the run
// orchestrator to connected web clients over Server-Sent Events.
package pubsub

import (
	"context"
	"encoding/json"
)

// Topics published while a pipeline run progresses.
const (
	TopicPipelineStatus = "pipeline_status"
	TopicGraph          = "graph"
)

// Event is one published update.
type Event struct {
	Topic   string          `json:"topic"`
	Type    string          `json:"type"` // e.g. "importing", "generating", "ready", "error"
	Data    json.RawMessage `json:"data"`
	Version int             `json:"version"` // per-topic ordering
}

// Subscription is one client's view of a topic.
type Subscription interface {
	Topic() string
	Events() <-chan Event
	Close() error
}

// Publisher fans events out to topic subscribers.
type Publisher interface {
	// Subscribe attaches to a topic; cancelling ctx closes the subscription.
	Subscribe(ctx context.Context, topic string) (Subscription, error)
	Publish(topic, eventType string, data interface{}) error
	Close() error
}

// PipelineStatus reports where a run currently is.
type PipelineStatus struct {
	State   string `json:"state"`
	Message string `json:"message"`
	Step    int    `json:"step"`
	Total   int    `json:"total"`
}

// GraphUpdate reports the shape of the current graph.
type GraphUpdate struct {
	Nodes     int      `json:"nodes"`
	Edges     int      `json:"edges"`
	Relations []string `json:"relations"`
	Complete  bool     `json:"complete"`
}
