package ops

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/hpungsan/arkiv/internal/errors"
)

// FixInput names the JSONL file to rewrite in place.
type FixInput struct {
	Path string `json:"path"`
}

// FixOutput reports how many fields were duplicated.
type FixOutput struct {
	Fixed int    `json:"fixed"`
	File  string `json:"file"`
}

// Fix rewrites a JSONL file, duplicating unambiguous field aliases into
// the known field they stand for (url/link/href into uri) wherever the
// known field is absent. Blank lines, invalid JSON, and non-object lines
// pass through byte for byte; only changed lines are re-encoded.
func Fix(input FixInput) (*FixOutput, error) {
	if input.Path == "" {
		return nil, errors.NewInvalidRequest("file path is required")
	}
	if ClassifyPath(input.Path) == PathDatabase {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("%s is a database file; fix rewrites JSONL files", input.Path))
	}
	// The rewrite renames over input.Path, which would silently replace a
	// symlink with a regular file, so refuse symlinked inputs up front.
	f, err := openFileNoFollowRead(input.Path)
	if err != nil {
		if _, ok := err.(*errors.ArkivError); ok {
			return nil, err
		}
		return nil, errors.NewInternal(err)
	}
	data, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if !utf8.Valid(data) {
		return nil, errors.NewEncoding(input.Path)
	}

	out := &FixOutput{File: input.Path}
	var rewritten bytes.Buffer
	for _, line := range splitKeepEnds(string(data)) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			rewritten.WriteString(line)
			continue
		}
		var v any
		if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
			rewritten.WriteString(line)
			continue
		}
		obj, ok := v.(map[string]any)
		if !ok {
			rewritten.WriteString(line)
			continue
		}

		changed := false
		for _, fix := range fixFields {
			if _, has := obj[fix.from]; !has {
				continue
			}
			if _, has := obj[fix.to]; has {
				continue
			}
			obj[fix.to] = obj[fix.from]
			changed = true
			out.Fixed++
		}
		if !changed {
			rewritten.WriteString(line)
			continue
		}

		enc := json.NewEncoder(&rewritten)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(obj); err != nil {
			return nil, errors.NewInternal(err)
		}
	}

	err = writeFileAtomic(input.Path, func(f *os.File) error {
		_, err := f.Write(rewritten.Bytes())
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// splitKeepEnds splits after every newline, keeping the newline on each
// line so unchanged lines round-trip exactly. A final chunk without a
// trailing newline is kept as-is.
func splitKeepEnds(data string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' {
			lines = append(lines, data[start:i+1])
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, data[start:])
	}
	return lines
}
