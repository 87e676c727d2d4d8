package ocel

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"
)

// Raw field names of the OCEL JSON format.
const (
	keyGlobalLog    = "ocel:global-log"
	keyGlobalEvent  = "ocel:global-event"
	keyGlobalObject = "ocel:global-object"
	keyEvents       = "ocel:events"
	keyObjects      = "ocel:objects"
	keyActivity     = "ocel:activity"
	keyTimestamp    = "ocel:timestamp"
	keyOMap         = "ocel:omap"
	keyVMap         = "ocel:vmap"
	keyType         = "ocel:type"
	keyOvMap        = "ocel:ovmap"
)

// Timestamp layouts accepted by the importer, tried in order.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

type rawLog struct {
	GlobalLog    map[string]interface{} `json:"ocel:global-log"`
	GlobalEvent  map[string]interface{} `json:"ocel:global-event"`
	GlobalObject map[string]interface{} `json:"ocel:global-object"`
	Events       map[string]rawEvent    `json:"ocel:events"`
	Objects      map[string]rawObject   `json:"ocel:objects"`
}

type rawEvent struct {
	Activity  string                 `json:"ocel:activity"`
	Timestamp string                 `json:"ocel:timestamp"`
	OMap      []string               `json:"ocel:omap"`
	VMap      map[string]interface{} `json:"ocel:vmap"`
}

type rawObject struct {
	Type  string                 `json:"ocel:type"`
	OvMap map[string]interface{} `json:"ocel:ovmap"`
}

// Import reads an OCEL JSON log from path into the in-memory model.
// It parses structure only; use Validate for well-formedness reporting.
func Import(path string) (*Log, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading log file: %w", err)
	}
	return importBytes(data)
}

func importBytes(data []byte) (*Log, error) {
	var raw rawLog
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing OCEL JSON: %w", err)
	}

	log := NewLog()
	if raw.GlobalLog != nil {
		log.GlobalLog = raw.GlobalLog
	}
	if raw.GlobalEvent != nil {
		log.GlobalEvent = raw.GlobalEvent
	}
	if raw.GlobalObject != nil {
		log.GlobalObject = raw.GlobalObject
	}

	for id, ro := range raw.Objects {
		obj := &Object{ID: id, Type: ro.Type, OvMap: ro.OvMap}
		if obj.OvMap == nil {
			obj.OvMap = make(map[string]interface{})
		}
		log.Objects[id] = obj
	}

	for id, re := range raw.Events {
		ts, err := parseTimestamp(re.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", id, err)
		}
		ev := &Event{
			ID:        id,
			Activity:  re.Activity,
			Timestamp: ts,
			OMap:      re.OMap,
			VMap:      re.VMap,
		}
		if ev.VMap == nil {
			ev.VMap = make(map[string]interface{})
		}
		log.Events[id] = ev
	}

	return log, nil
}

func parseTimestamp(value string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", value)
}

// ObjectTypes returns the distinct object types present in the log, sorted.
func (l *Log) ObjectTypes() []string {
	seen := make(map[string]bool)
	for _, obj := range l.Objects {
		seen[obj.Type] = true
	}
	types := make([]string, 0, len(seen))
	for t := range seen {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
