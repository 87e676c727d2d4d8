// Package pipeline orchestrates one analysis run: import the log,
// generate the dependency graph, and hand the result to the web layer.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/DerAndereJohannes/pmrs-cli/pkg/logging"
	"github.com/DerAndereJohannes/pmrs-cli/pkg/ocdg"
	"github.com/DerAndereJohannes/pmrs-cli/pkg/ocel"
	"github.com/DerAndereJohannes/pmrs-cli/pkg/watcher"
	"github.com/DerAndereJohannes/pmrs-cli/pkg/web"
)

// Runner drives repeated pipeline runs over one log file.
type Runner struct {
	path      string
	relations []ocdg.Relation
	server    *web.Server
	mu        sync.Mutex // one run at a time
}

// RunOptions configures a single run.
type RunOptions struct {
	Reason string // e.g. "initial analysis", "log changed"
}

// NewRunner creates a runner bound to a log file and a server.
func NewRunner(path string, relations []ocdg.Relation, server *web.Server) *Runner {
	return &Runner{path: path, relations: relations, server: server}
}

// Run executes one import-generate cycle and publishes progress.
func (r *Runner) Run(ctx context.Context, opts RunOptions) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	logging.Info("starting analysis", "reason", opts.Reason, "path", r.path)

	r.server.PublishStatus("importing", "Importing event log...", 1, 3)
	log, err := ocel.Import(r.path)
	if err != nil {
		r.server.PublishStatus("error", fmt.Sprintf("Import failed: %v", err), 1, 3)
		return fmt.Errorf("importing log: %w", err)
	}
	logging.Info("log imported", "events", len(log.Events), "objects", len(log.Objects))

	r.server.PublishStatus("generating", "Computing relations...", 2, 3)
	graph, err := ocdg.Generate(ctx, log, r.relations)
	if err != nil {
		r.server.PublishStatus("error", fmt.Sprintf("Generation failed: %v", err), 2, 3)
		return fmt.Errorf("generating graph: %w", err)
	}

	r.server.PublishStatus("decomposing", "Computing decomposition preview...", 3, 3)
	reduced, err := ocdg.Decompose(ctx, graph)
	if err != nil {
		r.server.PublishStatus("error", fmt.Sprintf("Decomposition failed: %v", err), 3, 3)
		return fmt.Errorf("decomposing graph: %w", err)
	}
	diff := ocdg.ComputeDiff(graph, reduced)

	r.server.SetGraph(graph, diff)
	r.server.PublishGraphUpdate("ready", true)
	r.server.PublishStatus("ready", "Analysis complete", 3, 3)

	logging.Info("analysis complete",
		"objects", graph.NodeCount(), "edges", graph.EdgeCount(), "redundant", diff.Removed())
	return nil
}

// WatchLoop re-runs the pipeline for every debounced change batch until
// the channel closes or the context is cancelled.
func (r *Runner) WatchLoop(ctx context.Context, changes <-chan watcher.ChangeEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			logging.Info("log changed, regenerating", "changes", len(change.Paths))
			if err := r.Run(ctx, RunOptions{Reason: "log changed"}); err != nil {
				logging.Error("regeneration failed", "error", err)
			}
		}
	}
}
