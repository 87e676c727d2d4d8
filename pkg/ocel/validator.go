package ocel

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Violation is a single structural problem found in a raw log.
type Violation struct {
	Message  string `json:"message"`
	Location string `json:"location"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s at %s", v.Message, v.Location)
}

// Validate checks a raw OCEL file for structural well-formedness and
// reports only the overall verdict.
func Validate(path string) (bool, error) {
	violations, err := ValidateVerbose(path)
	if err != nil {
		return false, err
	}
	return len(violations) == 0, nil
}

// ValidateVerbose checks a raw OCEL file and returns every structural
// violation in a deterministic order. An empty slice means the log is
// well formed.
func ValidateVerbose(path string) ([]Violation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading log file: %w", err)
	}
	return validateBytes(data)
}

func validateBytes(data []byte) ([]Violation, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing OCEL JSON: %w", err)
	}

	var violations []Violation
	report := func(message, location string) {
		violations = append(violations, Violation{Message: message, Location: location})
	}

	for _, section := range []string{keyGlobalLog, keyEvents, keyObjects} {
		if _, ok := doc[section]; !ok {
			report(fmt.Sprintf("missing required section %s", section), "log")
		}
	}

	objects := make(map[string]rawObject)
	if rawObjects, ok := doc[keyObjects]; ok {
		if err := json.Unmarshal(rawObjects, &objects); err != nil {
			report("objects section is not an object map", keyObjects)
		}
	}
	for _, id := range sortedKeysObj(objects) {
		if objects[id].Type == "" {
			report(fmt.Sprintf("object %s has no %s", id, keyType), "object "+id)
		}
	}

	events := make(map[string]map[string]json.RawMessage)
	if rawEvents, ok := doc[keyEvents]; ok {
		if err := json.Unmarshal(rawEvents, &events); err != nil {
			report("events section is not an object map", keyEvents)
		}
	}
	for _, id := range sortedKeysEvt(events) {
		fields := events[id]
		location := "event " + id

		for _, required := range []string{keyActivity, keyTimestamp, keyOMap} {
			if _, ok := fields[required]; !ok {
				report(fmt.Sprintf("event %s is missing %s", id, required), location)
			}
		}

		if rawTS, ok := fields[keyTimestamp]; ok {
			var ts string
			if err := json.Unmarshal(rawTS, &ts); err != nil {
				report(fmt.Sprintf("event %s has a non-string timestamp", id), location)
			} else if _, err := parseTimestamp(ts); err != nil {
				report(fmt.Sprintf("event %s has unparseable timestamp %q", id, ts), location)
			}
		}

		if rawOMap, ok := fields[keyOMap]; ok {
			var omap []string
			if err := json.Unmarshal(rawOMap, &omap); err != nil {
				report(fmt.Sprintf("event %s has a malformed %s", id, keyOMap), location)
				continue
			}
			for _, objID := range omap {
				if _, declared := objects[objID]; !declared {
					report(fmt.Sprintf("event %s references undeclared object %s", id, objID), location)
				}
			}
		}
	}

	return violations, nil
}

func sortedKeysObj(m map[string]rawObject) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeysEvt(m map[string]map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
