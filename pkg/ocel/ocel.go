// Package ocel holds the in-memory model of an object-centric event log
// and the importer/validator for the OCEL JSON interchange format.
package ocel

import (
	"sort"
	"time"
)

// Log is a fully materialized object-centric event log.
// Events and Objects are immutable once imported.
type Log struct {
	GlobalLog    map[string]interface{} // ocel:global-log metadata
	GlobalEvent  map[string]interface{} // default event attribute values
	GlobalObject map[string]interface{} // default object attribute values
	Events       map[string]*Event
	Objects      map[string]*Object
}

// Event is a single timestamped occurrence referencing zero or more objects.
type Event struct {
	ID        string
	Activity  string
	Timestamp time.Time
	OMap      []string               // referenced object IDs, in log order
	VMap      map[string]interface{} // event attributes
}

// Object is a business object referenced by events.
type Object struct {
	ID    string
	Type  string
	OvMap map[string]interface{} // object attributes
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{
		GlobalLog:    make(map[string]interface{}),
		GlobalEvent:  make(map[string]interface{}),
		GlobalObject: make(map[string]interface{}),
		Events:       make(map[string]*Event),
		Objects:      make(map[string]*Object),
	}
}

// OrderedEvents returns all events sorted by timestamp, ties broken by
// event ID. This is the total order every relation rule scans in.
func (l *Log) OrderedEvents() []*Event {
	events := make([]*Event, 0, len(l.Events))
	for _, e := range l.Events {
		events = append(events, e)
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].Timestamp.Equal(events[j].Timestamp) {
			return events[i].ID < events[j].ID
		}
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	return events
}
