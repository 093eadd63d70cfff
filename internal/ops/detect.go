package ops

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/hpungsan/arkiv/internal/errors"
	"github.com/hpungsan/arkiv/internal/schema"
)

// knownFields are the top-level keys of the record line format. Anything
// else is folded into metadata on import.
var knownFields = map[string]bool{
	"mimetype":  true,
	"uri":       true,
	"content":   true,
	"timestamp": true,
	"metadata":  true,
}

// fixFields maps unknown fields to the known field they unambiguously
// stand for. Order matters: the first match wins when several aliases
// target the same field.
var fixFields = []struct{ from, to string }{
	{"url", "uri"},
	{"link", "uri"},
	{"href", "uri"},
}

// fieldSuggestions covers fixFields plus aliases too ambiguous to fix
// automatically; detect only warns about these.
var fieldSuggestions = map[string]string{
	"url":  "uri",
	"link": "uri",
	"href": "uri",
	"type": "mimetype",
	"mime": "mimetype",
}

// DetectInput names the JSONL file to inspect.
type DetectInput struct {
	Path string `json:"path"`
}

// DetectOutput reports how well a file matches the record line format.
type DetectOutput struct {
	ValidJSONL    bool     `json:"valid_jsonl"`
	TotalRecords  int      `json:"total_records"`
	Collection    string   `json:"collection"`
	FieldsUsed    []string `json:"fields_used"`
	UnknownFields []string `json:"unknown_fields"`
	MetadataKeys  []string `json:"metadata_keys"`
	Warnings      []string `json:"warnings"`
	SchemaInfo    []string `json:"schema_info,omitempty"`
}

// Detect inspects a JSONL file without importing it: per-line validity,
// which known fields appear, which unknown fields would be folded into
// metadata, and the metadata keys in use. A schema.yaml next to the file
// contributes curated-value notes for the matching collection.
func Detect(input DetectInput) (*DetectOutput, error) {
	if input.Path == "" {
		return nil, errors.NewInvalidRequest("file path is required")
	}
	if ClassifyPath(input.Path) == PathDatabase {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("%s is a database file; detect inspects JSONL files", input.Path))
	}
	data, err := os.ReadFile(input.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound(input.Path)
		}
		return nil, errors.NewInternal(err)
	}
	if !utf8.Valid(data) {
		return nil, errors.NewEncoding(input.Path)
	}

	out := &DetectOutput{
		Collection: CollectionFromPath(input.Path),
		Warnings:   []string{},
	}
	fieldsUsed := make(map[string]bool)
	unknownFields := make(map[string]bool)
	metadataKeys := make(map[string]bool)
	invalid := 0

	for i, line := range strings.Split(string(data), "\n") {
		lineno := i + 1
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		var v any
		if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
			out.Warnings = append(out.Warnings, fmt.Sprintf("Line %d: invalid JSON", lineno))
			invalid++
			continue
		}
		obj, ok := v.(map[string]any)
		if !ok {
			out.Warnings = append(out.Warnings, fmt.Sprintf("Line %d: not a JSON object", lineno))
			invalid++
			continue
		}

		out.TotalRecords++
		for key := range obj {
			if knownFields[key] {
				fieldsUsed[key] = true
			} else {
				unknownFields[key] = true
			}
		}
		if meta, ok := obj["metadata"].(map[string]any); ok {
			for key := range meta {
				metadataKeys[key] = true
			}
		}
	}

	out.ValidJSONL = invalid == 0
	out.FieldsUsed = sortedFields(fieldsUsed)
	out.UnknownFields = sortedFields(unknownFields)
	out.MetadataKeys = sortedFields(metadataKeys)

	for _, field := range out.UnknownFields {
		if suggestion, ok := fieldSuggestions[field]; ok {
			out.Warnings = append(out.Warnings, fmt.Sprintf("Unknown field '%s' — did you mean '%s'?", field, suggestion))
		} else {
			out.Warnings = append(out.Warnings, fmt.Sprintf("Unknown field '%s' (will be merged into metadata on import)", field))
		}
	}

	out.SchemaInfo = curatedValueNotes(input.Path, out.Collection)
	return out, nil
}

// curatedValueNotes reads a schema.yaml beside the inspected file and
// describes the curated value sets recorded for this collection. The
// sidecar is advisory: any load problem just means no notes.
func curatedValueNotes(path, collection string) []string {
	sidecar := filepath.Join(filepath.Dir(path), "schema.yaml")
	collections, err := schema.LoadFile(sidecar)
	if err != nil {
		return nil
	}
	coll, ok := collections[collection]
	if !ok || len(coll.MetadataKeys) == 0 {
		return nil
	}

	keys := make([]string, 0, len(coll.MetadataKeys))
	for key := range coll.MetadataKeys {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var notes []string
	for _, key := range keys {
		entry := coll.MetadataKeys[key]
		if len(entry.Values) == 0 {
			continue
		}
		values := make([]string, len(entry.Values))
		for i, v := range entry.Values {
			values[i] = fmt.Sprintf("%v", v)
		}
		notes = append(notes, fmt.Sprintf("Curated values for '%s': %s", key, strings.Join(values, ", ")))
	}
	return notes
}

func sortedFields(set map[string]bool) []string {
	fields := make([]string, 0, len(set))
	for field := range set {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}
