package record

// Known top-level field names. Any other key in an incoming object is
// folded into the metadata bag.
const (
	FieldMimetype  = "mimetype"
	FieldURI       = "uri"
	FieldContent   = "content"
	FieldTimestamp = "timestamp"
	FieldMetadata  = "metadata"
)

// KnownFields is the set of recognized top-level keys.
var KnownFields = map[string]bool{
	FieldMimetype:  true,
	FieldURI:       true,
	FieldContent:   true,
	FieldTimestamp: true,
	FieldMetadata:  true,
}

// Record is one archived fact. All fields are optional; values are carried
// verbatim from the source JSON with no coercion, so a known field may hold
// any JSON value the input had. A nil field is absent and is omitted when
// the record is serialized.
type Record struct {
	// Mimetype describes the content format (e.g., "text/markdown")
	Mimetype any `json:"mimetype,omitempty"`

	// URI locates the origin of the record (a URL, file path, or other locator)
	URI any `json:"uri,omitempty"`

	// Content is the record's payload text
	Content any `json:"content,omitempty"`

	// Timestamp is an opaque, unparsed time string from the source
	Timestamp any `json:"timestamp,omitempty"`

	// Metadata holds everything else: the input's own metadata object plus
	// any unrecognized top-level keys
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Parse maps an arbitrary JSON object into a Record. The five known fields
// are copied verbatim. Every other top-level key is folded into Metadata:
// the object's own metadata map is copied first, then unknown keys are added
// on top, so an unknown top-level key overwrites a metadata entry of the
// same name. A metadata value that is not itself an object is ignored.
func Parse(obj map[string]any) Record {
	meta := make(map[string]any)
	if m, ok := obj[FieldMetadata].(map[string]any); ok {
		for k, v := range m {
			meta[k] = v
		}
	}
	for k, v := range obj {
		if !KnownFields[k] {
			meta[k] = v
		}
	}
	if len(meta) == 0 {
		meta = nil
	}
	return Record{
		Mimetype:  obj[FieldMimetype],
		URI:       obj[FieldURI],
		Content:   obj[FieldContent],
		Timestamp: obj[FieldTimestamp],
		Metadata:  meta,
	}
}
