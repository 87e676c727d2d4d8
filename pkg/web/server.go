// Package web serves a generated dependency graph over HTTP with SSE
// push of pipeline status and graph updates.
package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"github.com/DerAndereJohannes/pmrs-cli/pkg/logging"
	"github.com/DerAndereJohannes/pmrs-cli/pkg/ocdg"
	"github.com/DerAndereJohannes/pmrs-cli/pkg/pubsub"
)

// GraphNode is a node as exposed over the API.
type GraphNode struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// GraphEdge is an edge as exposed over the API.
type GraphEdge struct {
	Source   string   `json:"source"`
	Target   string   `json:"target"`
	Relation string   `json:"relation"`
	Weight   int      `json:"weight"`
	Evidence []string `json:"evidence"`
}

// GraphData is the full graph payload.
type GraphData struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// RelationStats summarizes one relation kind.
type RelationStats struct {
	Relation string `json:"relation"`
	Edges    int    `json:"edges"`
	Cycles   int    `json:"cycles"`
}

// Server exposes the current graph and pipeline state.
type Server struct {
	router    *mux.Router
	publisher pubsub.Publisher

	mu     sync.RWMutex
	source string // the log file backing the graph
	graph  *ocdg.Graph
	diff   *ocdg.DecompositionDiff
}

// NewServer creates the server and its SSE publisher.
func NewServer(source string) *Server {
	publisher := pubsub.NewSSEPublisher()
	publisher.ConfigureTopic(pubsub.TopicPipelineStatus, pubsub.TopicConfig{
		BufferSize: 10,
		ReplayAll:  false, // a new subscriber only needs the current state
	})
	publisher.ConfigureTopic(pubsub.TopicGraph, pubsub.TopicConfig{
		BufferSize: 5,
		ReplayAll:  false,
	})

	s := &Server{
		router:    mux.NewRouter(),
		publisher: publisher,
		source:    source,
	}
	s.setupRoutes()
	return s
}

// SetGraph swaps in a freshly generated graph and its decomposition
// preview.
func (s *Server) SetGraph(g *ocdg.Graph, diff *ocdg.DecompositionDiff) {
	s.mu.Lock()
	s.graph = g
	s.diff = diff
	s.mu.Unlock()
}

// Graph returns the current graph, if any.
func (s *Server) Graph() *ocdg.Graph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph
}

// PublishStatus pushes a pipeline status event.
func (s *Server) PublishStatus(state, message string, step, total int) error {
	return s.publisher.Publish(pubsub.TopicPipelineStatus, state, pubsub.PipelineStatus{
		State:   state,
		Message: message,
		Step:    step,
		Total:   total,
	})
}

// PublishGraphUpdate pushes the current graph shape.
func (s *Server) PublishGraphUpdate(eventType string, complete bool) error {
	update := pubsub.GraphUpdate{Complete: complete}
	s.mu.RLock()
	if s.graph != nil {
		update.Nodes = s.graph.NodeCount()
		update.Edges = s.graph.EdgeCount()
		for _, relation := range s.graph.Relations() {
			update.Relations = append(update.Relations, relation.String())
		}
	}
	s.mu.RUnlock()
	return s.publisher.Publish(pubsub.TopicGraph, eventType, update)
}

func (s *Server) setupRoutes() {
	s.router.Use(logging.RequestIDMiddleware)

	s.router.HandleFunc("/api/subscribe/pipeline_status", s.subscribeHandler(pubsub.TopicPipelineStatus)).Methods("GET")
	s.router.HandleFunc("/api/subscribe/graph", s.subscribeHandler(pubsub.TopicGraph)).Methods("GET")

	s.router.HandleFunc("/api/graph", s.handleGraph).Methods("GET")
	s.router.HandleFunc("/api/graph/relations", s.handleRelations).Methods("GET")
	s.router.HandleFunc("/api/graph/relations/{relation}", s.handleRelationEdges).Methods("GET")
	s.router.HandleFunc("/api/decomposition", s.handleDecomposition).Methods("GET")

	s.router.HandleFunc("/", s.handleIndex).Methods("GET")
}

// subscribeHandler streams one topic over SSE.
func (s *Server) subscribeHandler(topic string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("Access-Control-Allow-Origin", "*")

		// Establish the stream before the first event.
		fmt.Fprintf(w, ": connected\n\n")
		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}

		sub, err := s.publisher.Subscribe(r.Context(), topic)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		defer sub.Close()

		for {
			select {
			case <-r.Context().Done():
				return
			case event := <-sub.Events():
				if err := pubsub.WriteSSE(w, event); err != nil {
					logging.ErrorContext(r.Context(), "writing SSE event", "error", err)
					return
				}
				if flusher, ok := w.(http.Flusher); ok {
					flusher.Flush()
				}
			}
		}
	}
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	s.mu.RLock()
	g := s.graph
	s.mu.RUnlock()

	if g == nil {
		http.Error(w, "graph not available yet", http.StatusServiceUnavailable)
		return
	}
	json.NewEncoder(w).Encode(buildGraphData(g))
}

func (s *Server) handleRelations(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	s.mu.RLock()
	g := s.graph
	s.mu.RUnlock()

	if g == nil {
		json.NewEncoder(w).Encode([]RelationStats{})
		return
	}

	cycles := ocdg.CyclesByRelation(g)
	stats := make([]RelationStats, 0)
	for _, relation := range g.Relations() {
		stats = append(stats, RelationStats{
			Relation: relation.String(),
			Edges:    len(g.EdgesByRelation(relation)),
			Cycles:   len(cycles[relation]),
		})
	}
	json.NewEncoder(w).Encode(stats)
}

func (s *Server) handleRelationEdges(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	s.mu.RLock()
	g := s.graph
	s.mu.RUnlock()

	if g == nil {
		http.Error(w, "graph not available yet", http.StatusServiceUnavailable)
		return
	}

	relation, err := ocdg.ParseRelation(mux.Vars(r)["relation"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	edges := make([]GraphEdge, 0)
	for _, edge := range g.EdgesByRelation(relation) {
		edges = append(edges, buildGraphEdge(edge))
	}
	json.NewEncoder(w).Encode(edges)
}

func (s *Server) handleDecomposition(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	s.mu.RLock()
	diff := s.diff
	s.mu.RUnlock()

	if diff == nil {
		http.Error(w, "decomposition not available yet", http.StatusServiceUnavailable)
		return
	}
	json.NewEncoder(w).Encode(diff)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	s.mu.RLock()
	source := s.source
	s.mu.RUnlock()
	fmt.Fprintf(w, indexPage, source)
}

const indexPage = `<!DOCTYPE html>
<html>
<head><title>pmrs OCDG</title></head>
<body>
<h1>Object-Centric Dependency Graph</h1>
<p>Source log: <code>%s</code></p>
<ul>
<li><a href="/api/graph">/api/graph</a> - full graph</li>
<li><a href="/api/graph/relations">/api/graph/relations</a> - relation stats</li>
<li><a href="/api/decomposition">/api/decomposition</a> - decomposition preview</li>
<li><code>/api/subscribe/pipeline_status</code>, <code>/api/subscribe/graph</code> - SSE streams</li>
</ul>
</body>
</html>
`

func buildGraphData(g *ocdg.Graph) *GraphData {
	data := &GraphData{
		Nodes: make([]GraphNode, 0, g.NodeCount()),
		Edges: make([]GraphEdge, 0, g.EdgeCount()),
	}
	for _, node := range g.Nodes() {
		data.Nodes = append(data.Nodes, GraphNode{
			ID:         node.ID,
			Type:       node.Type,
			Attributes: node.Attributes,
		})
	}
	for _, edge := range g.Edges() {
		data.Edges = append(data.Edges, buildGraphEdge(edge))
	}
	return data
}

func buildGraphEdge(edge *ocdg.Edge) GraphEdge {
	return GraphEdge{
		Source:   edge.Source,
		Target:   edge.Target,
		Relation: edge.Relation.String(),
		Weight:   edge.Weight,
		Evidence: edge.Evidence(),
	}
}

// Start serves until the listener fails.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	logging.Info("starting web server", "addr", fmt.Sprintf("http://localhost%s", addr))
	return http.ListenAndServe(addr, s.router)
}
