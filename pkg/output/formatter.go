// Package output renders colorized console reports for the CLI commands.
package output

import (
	"fmt"
	"time"

	"github.com/fatih/color"

	"github.com/DerAndereJohannes/pmrs-cli/pkg/ocdg"
	"github.com/DerAndereJohannes/pmrs-cli/pkg/ocel"
)

// PrintValidationReport prints the validate verdict, with per-violation
// lines in verbose mode.
func PrintValidationReport(path string, violations []ocel.Violation, verbose bool) {
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	if verbose {
		for i, v := range violations {
			red.Printf("Error %d: ", i+1)
			fmt.Printf("%s at ", v.Message)
			yellow.Printf("%s\n", v.Location)
		}
	}

	bold.Printf("%s: ", path)
	if len(violations) == 0 {
		green.Println("true")
	} else {
		red.Println("false")
		if !verbose {
			yellow.Printf("%d violation(s); rerun with --verbose for details\n", len(violations))
		}
	}
}

// PrintGenerationSummary prints the shape of a freshly generated graph.
func PrintGenerationSummary(g *ocdg.Graph, outputPath string, elapsed time.Duration) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)

	bold.Println("OCDG Generation")
	fmt.Printf("Objects: %d\n", g.NodeCount())
	fmt.Printf("Edges: %d\n", g.EdgeCount())
	for _, relation := range g.Relations() {
		cyan.Printf("  %s: ", relation)
		fmt.Printf("%d edge(s)\n", len(g.EdgesByRelation(relation)))
	}
	fmt.Printf("Elapsed: %s\n", elapsed.Round(time.Millisecond))
	green.Printf("Written to %s\n", outputPath)
}

// PrintDecompositionSummary prints what decomposition changed.
func PrintDecompositionSummary(diff *ocdg.DecompositionDiff, outputPath string, verbose bool) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	bold.Println("OCDG Decomposition")
	fmt.Printf("Objects: %d (unchanged)\n", diff.NodeCount)
	fmt.Printf("Edges: %d -> %d\n", diff.EdgesBefore, diff.EdgesAfter)

	if diff.Removed() == 0 {
		green.Println("No redundant edges found")
	} else {
		yellow.Printf("Removed %d redundant edge(s)\n", diff.Removed())
		if verbose {
			for _, removed := range diff.RemovedEdges {
				cyan.Printf("  %s: ", removed.Relation)
				fmt.Printf("%s -> %s (weight %d)\n", removed.Source, removed.Target, removed.Weight)
			}
		}
	}
	green.Printf("Written to %s\n", outputPath)
}
