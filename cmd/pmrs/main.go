package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/DerAndereJohannes/pmrs-cli/pkg/config"
	"github.com/DerAndereJohannes/pmrs-cli/pkg/logging"
)

// jsonLogs switches the process to machine-readable log output.
var jsonLogs bool

// applyLogLevel configures the process logger for the resolved verbosity,
// keeping the JSON handler when --log-json was given.
func applyLogLevel(debug bool) {
	if jsonLogs {
		level := slog.LevelInfo
		if debug {
			level = slog.LevelDebug
		}
		logging.SetJSONOutput(level)
		return
	}
	logging.SetDebug(debug)
}

const usage = `pmrs - object-centric process mining toolkit

Usage:
  pmrs [--debug] [--log-json] ocel validate <path> [--verbose]
  pmrs [--debug] [--log-json] ocdg generate <path> [--output FILE] [--relations LIST]
  pmrs [--debug] [--log-json] ocdg decompose <path> [--output FILE]
  pmrs [--debug] [--log-json] ocdg serve <path> [--port PORT] [--watch]

Commands:
  ocel validate   Check an OCEL log (.jsonocel) for structural problems
  ocdg generate   Generate a dependency graph from a log, write GEXF
  ocdg decompose  Reduce an existing graph (.gexf), write GEXF
  ocdg serve      Generate and serve the graph over HTTP
`

func main() {
	args := os.Args[1:]

	// The debug and log-format flags are global and may precede the
	// command group.
	debug := false
	logJSON := false
	filtered := make([]string, 0, len(args))
	for _, arg := range args {
		switch arg {
		case "--debug", "-d":
			debug = true
		case "--log-json":
			logJSON = true
		default:
			filtered = append(filtered, arg)
		}
	}
	jsonLogs = logJSON
	applyLogLevel(debug)

	if len(filtered) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	group, command := filtered[0], filtered[1]
	rest := filtered[2:]

	var err error
	switch {
	case group == "ocel" && command == "validate":
		err = runValidate(rest, debug)
	case group == "ocdg" && command == "generate":
		err = runGenerate(rest, debug)
	case group == "ocdg" && command == "decompose":
		err = runDecompose(rest, debug)
	case group == "ocdg" && command == "serve":
		err = runServe(rest, debug)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		logging.Fatal("command failed", "error", err)
	}
}

// loadConfig resolves a subcommand's flags against the layered config and
// returns the positional path argument.
func loadConfig(fs *pflag.FlagSet, args []string, debug bool) (*config.Config, string, error) {
	if err := fs.Parse(args); err != nil {
		return nil, "", err
	}
	cfg, err := config.Load(fs)
	if err != nil {
		return nil, "", err
	}
	cfg.Debug = cfg.Debug || debug
	applyLogLevel(cfg.Debug)

	if fs.NArg() != 1 {
		return nil, "", fmt.Errorf("expected exactly one path argument")
	}
	return cfg, fs.Arg(0), nil
}
