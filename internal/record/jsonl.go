package record

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"unicode/utf8"

	"github.com/hpungsan/arkiv/internal/errors"
)

// maxLineBytes caps a single JSONL line at 1 MiB.
const maxLineBytes = 1 << 20

// NewScanner returns a line scanner sized for large single-line records.
func NewScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return scanner
}

// ParseLine parses one JSONL line. ok is false for blank lines, lines that
// are not valid JSON, and lines whose value is not an object; callers skip
// those without erroring.
func ParseLine(line []byte) (Record, bool) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return Record{}, false
	}
	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return Record{}, false
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return Record{}, false
	}
	return Parse(obj), true
}

// Read consumes a JSONL stream and returns the records it contains. Blank,
// malformed, and non-object lines are skipped; input that is not valid
// UTF-8 fails the whole read. name is used in error messages only.
func Read(r io.Reader, name string) ([]Record, error) {
	var records []Record
	scanner := NewScanner(r)
	for scanner.Scan() {
		line := scanner.Bytes()
		if !utf8.Valid(line) {
			return nil, errors.NewEncoding(name)
		}
		rec, ok := ParseLine(line)
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.NewInvalidRequest("failed to read " + name + ": " + err.Error())
	}
	return records, nil
}

// ReadFile parses a JSONL file into records.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound(path)
		}
		return nil, errors.NewInternal(err)
	}
	defer f.Close()
	return Read(f, path)
}

// EncodeLine writes the record's JSON form followed by a newline. Fields
// appear in a fixed order (mimetype, uri, content, timestamp, metadata),
// absent fields are omitted entirely, and non-ASCII text is left unescaped.
func (r Record) EncodeLine(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(r)
}

// WriteAll streams records to w, one JSON line each.
func WriteAll(w io.Writer, records []Record) error {
	for _, rec := range records {
		if err := rec.EncodeLine(w); err != nil {
			return err
		}
	}
	return nil
}
