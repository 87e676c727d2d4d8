package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/DerAndereJohannes/pmrs-cli/pkg/config"
	"github.com/DerAndereJohannes/pmrs-cli/pkg/gexf"
	"github.com/DerAndereJohannes/pmrs-cli/pkg/logging"
	"github.com/DerAndereJohannes/pmrs-cli/pkg/ocdg"
	"github.com/DerAndereJohannes/pmrs-cli/pkg/ocel"
	"github.com/DerAndereJohannes/pmrs-cli/pkg/output"
	"github.com/DerAndereJohannes/pmrs-cli/pkg/pipeline"
	"github.com/DerAndereJohannes/pmrs-cli/pkg/watcher"
	"github.com/DerAndereJohannes/pmrs-cli/pkg/web"
)

const (
	logExtension   = ".jsonocel"
	graphExtension = ".gexf"

	defaultGenerateOutput  = "output.gexf"
	defaultDecomposeOutput = "output-decomposed.gexf"
)

func runValidate(args []string, debug bool) error {
	fs := pflag.NewFlagSet("validate", pflag.ContinueOnError)
	fs.BoolP("verbose", "v", false, "print every violation")
	fs.Bool("debug", false, "enable debug output")

	cfg, path, err := loadConfig(fs, args, debug)
	if err != nil {
		return err
	}
	if !strings.HasSuffix(path, logExtension) {
		return fmt.Errorf("%s: file format is not supported, expected %s", path, logExtension)
	}

	violations, err := ocel.ValidateVerbose(path)
	if err != nil {
		return err
	}
	output.PrintValidationReport(path, violations, cfg.Verbose)
	return nil
}

func runGenerate(args []string, debug bool) error {
	fs := pflag.NewFlagSet("generate", pflag.ContinueOnError)
	fs.StringP("output", "o", "", "output file (default output.gexf)")
	fs.StringSlice("relations", nil, "relation kinds to compute (default: all)")
	fs.Bool("debug", false, "enable debug output")

	cfg, path, err := loadConfig(fs, args, debug)
	if err != nil {
		return err
	}
	if !strings.HasSuffix(path, logExtension) {
		return fmt.Errorf("%s: file format is not supported, expected %s", path, logExtension)
	}
	outputPath := cfg.Output
	if outputPath == "" {
		outputPath = defaultGenerateOutput
	}
	relations, err := selectedRelations(cfg)
	if err != nil {
		return err
	}

	logging.Debug("importing log", "path", path)
	log, err := ocel.Import(path)
	if err != nil {
		return err
	}

	start := time.Now()
	graph, err := ocdg.Generate(context.Background(), log, relations)
	if err != nil {
		return err
	}

	if err := gexf.WriteFile(graph, outputPath); err != nil {
		return err
	}
	output.PrintGenerationSummary(graph, outputPath, time.Since(start))
	return nil
}

func runDecompose(args []string, debug bool) error {
	fs := pflag.NewFlagSet("decompose", pflag.ContinueOnError)
	fs.StringP("output", "o", "", "output file (default output-decomposed.gexf)")
	fs.BoolP("verbose", "v", false, "list every removed edge")
	fs.Bool("debug", false, "enable debug output")

	cfg, path, err := loadConfig(fs, args, debug)
	if err != nil {
		return err
	}
	if !strings.HasSuffix(path, graphExtension) {
		return fmt.Errorf("%s: file format is not supported, expected %s", path, graphExtension)
	}
	outputPath := cfg.Output
	if outputPath == "" {
		outputPath = defaultDecomposeOutput
	}

	logging.Debug("reading graph", "path", path)
	graph, err := gexf.ReadFile(path)
	if err != nil {
		return err
	}

	for relation, cycles := range ocdg.CyclesByRelation(graph) {
		logging.Debug("relation subgraph contains cycles",
			"relation", relation.String(), "cycles", len(cycles))
	}

	reduced, err := ocdg.Decompose(context.Background(), graph)
	if err != nil {
		return err
	}

	if err := gexf.WriteFile(reduced, outputPath); err != nil {
		return err
	}
	output.PrintDecompositionSummary(ocdg.ComputeDiff(graph, reduced), outputPath, cfg.Verbose)
	return nil
}

func runServe(args []string, debug bool) error {
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	fs.IntP("port", "p", 8080, "port to serve on")
	fs.BoolP("watch", "w", false, "regenerate when the log file changes")
	fs.StringSlice("relations", nil, "relation kinds to compute (default: all)")
	fs.Bool("debug", false, "enable debug output")

	cfg, path, err := loadConfig(fs, args, debug)
	if err != nil {
		return err
	}
	if !strings.HasSuffix(path, logExtension) {
		return fmt.Errorf("%s: file format is not supported, expected %s", path, logExtension)
	}
	relations, err := selectedRelations(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server := web.NewServer(path)
	runner := pipeline.NewRunner(path, relations, server)

	// Run the first analysis in the background so the server is reachable
	// immediately.
	go func() {
		if err := runner.Run(ctx, pipeline.RunOptions{Reason: "initial analysis"}); err != nil {
			logging.Error("initial analysis failed", "error", err)
		}
	}()

	if cfg.Watch {
		logWatcher, err := watcher.NewLogWatcher(path)
		if err != nil {
			return err
		}
		if err := logWatcher.Start(ctx); err != nil {
			return err
		}
		defer logWatcher.Stop()
		debouncer := watcher.NewDebouncer(logWatcher.Events(), 500*time.Millisecond, 5*time.Second)
		debouncer.Start(ctx)
		go runner.WatchLoop(ctx, debouncer.Events())
	}

	return server.Start(cfg.Port)
}

// selectedRelations resolves the configured relation names, defaulting to
// the full catalog.
func selectedRelations(cfg *config.Config) ([]ocdg.Relation, error) {
	if len(cfg.Relations) == 0 {
		return ocdg.AllRelations(), nil
	}
	relations := make([]ocdg.Relation, 0, len(cfg.Relations))
	for _, name := range cfg.Relations {
		relation, err := ocdg.ParseRelation(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		relations = append(relations, relation)
	}
	return relations, nil
}
