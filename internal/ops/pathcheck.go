package ops

import (
	"path/filepath"
	"strings"
)

// PathKind classifies an input path for import dispatch and CLI guards.
type PathKind int

const (
	PathJSONL    PathKind = iota // default: record data, one JSON object per line
	PathManifest                 // .json descriptor listing collection files
	PathReadme                   // .md structured document with frontmatter
	PathDatabase                 // .db, the archive itself
)

// ClassifyPath maps a file path to its kind by extension.
func ClassifyPath(path string) PathKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db":
		return PathDatabase
	case ".json":
		return PathManifest
	case ".md":
		return PathReadme
	default:
		return PathJSONL
	}
}

// IsDataFilePath reports whether path looks like importable data rather
// than a database. Commands that take a database argument use this to
// catch swapped arguments early with a useful hint.
func IsDataFilePath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".json", ".md":
		return true
	}
	return false
}

// SanitizeForFilename sanitizes a collection name for safe use in an
// export filename. Removes/replaces characters that could be used for
// path traversal or injection.
func SanitizeForFilename(s string) string {
	// Replace path separators with dashes
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, "\\", "-")

	// Replace ".." sequences (could be embedded)
	s = strings.ReplaceAll(s, "..", "-")

	// Remove null bytes and other control characters
	var result strings.Builder
	for _, r := range s {
		if r >= 32 && r != 127 { // printable ASCII and unicode
			result.WriteRune(r)
		}
	}
	s = result.String()

	// Collapse multiple dashes
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}

	// Trim leading/trailing dashes
	s = strings.Trim(s, "-")

	// If empty after sanitization, use a safe default
	if s == "" {
		s = "unnamed"
	}

	return s
}
