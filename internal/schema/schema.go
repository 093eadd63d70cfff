package schema

import (
	"encoding/json"
	"sort"

	"github.com/hpungsan/arkiv/internal/record"
)

// MaxEnumValues is the distinct-value cap: a key whose scalar values stay
// at or under this count is reported as an enumeration, above it only a
// representative example is kept.
const MaxEnumValues = 20

// Entry describes one metadata key within a collection's schema. Exactly
// one of Values/Example is populated for discovered keys; a curated-only
// key (count 0) may have neither.
type Entry struct {
	// Type is the JSON type label of the most recently observed value
	Type string `json:"type" yaml:"type"`

	// Count is the number of records in which the key occurred
	Count int `json:"count" yaml:"count"`

	// Values enumerates the distinct scalar values when there are few enough
	Values []any `json:"values,omitempty" yaml:"values,omitempty"`

	// Example is the first value ever observed, kept when enumeration is off
	Example any `json:"example,omitempty" yaml:"example,omitempty"`

	// Description is human-authored and survives rediscovery
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// jsonType classifies a JSON value. The order is load-bearing: boolean is
// checked before number so true/false is never reported as a number, and
// anything unrecognized (including null) falls back to "string".
func jsonType(v any) string {
	switch v.(type) {
	case bool:
		return "boolean"
	case float64, int, int64, json.Number:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return "string"
	}
}

// valueState tracks the distinct scalar values seen for one key. The state
// moves one way: the first array or object value poisons enumeration for
// good, and later scalar values do not revive it.
type valueState struct {
	poisoned bool
	seen     map[any]struct{}
	ordered  []any
}

func newValueState() *valueState {
	return &valueState{seen: make(map[any]struct{})}
}

func (s *valueState) observe(v any) {
	if s.poisoned {
		return
	}
	switch v.(type) {
	case []any, map[string]any:
		s.poisoned = true
		s.seen = nil
		s.ordered = nil
		return
	}
	if _, ok := s.seen[v]; !ok {
		s.seen[v] = struct{}{}
		s.ordered = append(s.ordered, v)
	}
}

// enumeration returns the distinct values when the key stayed enumerable
// within MaxEnumValues; ok is false when the caller should keep the
// first-seen example instead.
func (s *valueState) enumeration() ([]any, bool) {
	if s.poisoned || len(s.ordered) > MaxEnumValues {
		return nil, false
	}
	out := make([]any, len(s.ordered))
	copy(out, s.ordered)
	allStrings := true
	for _, v := range out {
		if _, ok := v.(string); !ok {
			allStrings = false
			break
		}
	}
	if allStrings {
		sort.Slice(out, func(i, j int) bool { return out[i].(string) < out[j].(string) })
	}
	return out, true
}

// Discover scans one collection's records and infers a schema entry for
// every metadata key: occurrence count, last-seen type, and either the
// enumerated distinct values or a first-seen example.
func Discover(records []record.Record) map[string]*Entry {
	entries := make(map[string]*Entry)
	states := make(map[string]*valueState)

	for _, rec := range records {
		for key, value := range rec.Metadata {
			e, ok := entries[key]
			if !ok {
				e = &Entry{Example: value}
				entries[key] = e
				states[key] = newValueState()
			}
			e.Count++
			e.Type = jsonType(value)
			states[key].observe(value)
		}
	}

	for key, e := range entries {
		if values, ok := states[key].enumeration(); ok {
			e.Values = values
			e.Example = nil
		}
	}
	return entries
}

// Merge reconciles freshly discovered facts with curated ones. Live facts
// (type, count, example) always come from auto; descriptions come from
// curated; curated non-empty values override discovered values but curated
// can never supply an example. Keys present only in curated survive with
// count forced to 0 and type defaulted to "string" — they document fields
// absent from the current data. Neither input is modified.
func Merge(auto, curated map[string]*Entry) map[string]*Entry {
	merged := make(map[string]*Entry, len(auto))

	for key, a := range auto {
		c, ok := curated[key]
		if !ok {
			merged[key] = a
			continue
		}
		e := &Entry{
			Type:        a.Type,
			Count:       a.Count,
			Values:      a.Values,
			Example:     a.Example,
			Description: c.Description,
		}
		if len(c.Values) > 0 {
			e.Values = c.Values
			e.Example = nil
		}
		merged[key] = e
	}

	for key, c := range curated {
		if _, ok := auto[key]; ok {
			continue
		}
		e := &Entry{
			Type:        c.Type,
			Count:       0,
			Values:      c.Values,
			Description: c.Description,
		}
		if e.Type == "" {
			e.Type = "string"
		}
		merged[key] = e
	}
	return merged
}

// DescriptionsOnly wraps a key→description map as curated entries, the
// form the import path feeds into Merge to thread stored descriptions
// through a rediscovery.
func DescriptionsOnly(descriptions map[string]string) map[string]*Entry {
	if len(descriptions) == 0 {
		return nil
	}
	curated := make(map[string]*Entry, len(descriptions))
	for key, desc := range descriptions {
		curated[key] = &Entry{Description: desc}
	}
	return curated
}
