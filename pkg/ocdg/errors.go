package ocdg

import "fmt"

// DanglingReferenceError reports an edge or event that names an object
// absent from the graph or log. It always indicates an upstream contract
// violation (an unvalidated or malformed input), never a recoverable state.
type DanglingReferenceError struct {
	Object string // the missing object ID
	Event  string // the referencing event, empty for graph-level edges
	Source string // the edge source, empty for log-level references
	Target string // the edge target, empty for log-level references
}

func (e *DanglingReferenceError) Error() string {
	if e.Event != "" {
		return fmt.Sprintf("event %s references unknown object %s", e.Event, e.Object)
	}
	return fmt.Sprintf("edge %s -> %s references unknown object %s", e.Source, e.Target, e.Object)
}

// UnknownRelationError reports a requested relation kind that is not in
// the catalog.
type UnknownRelationError struct {
	Name string
}

func (e *UnknownRelationError) Error() string {
	return fmt.Sprintf("unknown relation kind %q", e.Name)
}
