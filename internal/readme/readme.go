package readme

import (
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/hpungsan/arkiv/internal/errors"
)

// Doc is a structured document: an ordered key→value header plus a
// free-text markdown body. Known header keys by convention: name,
// description, datetime, generator, and a contents list.
type Doc struct {
	Frontmatter *Frontmatter
	Body        string
}

// ContentsEntry is one row of the header's contents list.
type ContentsEntry struct {
	Path        string `json:"path" yaml:"path"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Split divides a document into frontmatter text and body. The header is
// delimited by --- lines at the start; without a closing delimiter the
// whole text is body. One blank line following the closing delimiter is
// swallowed.
func Split(text string) (frontmatter, body string) {
	lines := strings.Split(text, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return "", text
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) != "---" {
			continue
		}
		fm := strings.Join(lines[1:i], "\n")
		rest := strings.Join(lines[i+1:], "\n")
		rest = strings.TrimPrefix(rest, "\n")
		return fm, rest
	}
	return "", text
}

// Parse builds a Doc from raw document text. A header that is valid YAML
// but not a mapping degrades to an empty header.
func Parse(text string) (*Doc, error) {
	fmText, body := Split(text)
	fm, err := ParseHeader(fmText)
	if err != nil {
		return nil, err
	}
	return &Doc{Frontmatter: fm, Body: body}, nil
}

// ParseFile reads and parses a structured document from disk.
func ParseFile(path string) (*Doc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound(path)
		}
		return nil, errors.NewInternal(err)
	}
	if !utf8.Valid(data) {
		return nil, errors.NewEncoding(path)
	}
	return Parse(string(data))
}

// Write emits the document: a --- delimited header when one exists, a
// blank separator line, then the body, always ending in a newline.
func (d *Doc) Write(w io.Writer) error {
	var parts []string
	if d.Frontmatter.Len() > 0 {
		text, err := d.Frontmatter.HeaderText()
		if err != nil {
			return err
		}
		parts = append(parts, "---", strings.TrimRight(text, "\n"), "---")
		if d.Body != "" {
			parts = append(parts, "")
		}
	}
	if d.Body != "" {
		parts = append(parts, d.Body)
	}
	out := strings.Join(parts, "\n")
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	_, err := io.WriteString(w, out)
	return err
}

// Contents returns the header's contents list. Entries that are not maps,
// or that lack a path, are skipped.
func (d *Doc) Contents() []ContentsEntry {
	return contentsFrom(d.Frontmatter)
}

func contentsFrom(f *Frontmatter) []ContentsEntry {
	raw, ok := f.Get("contents")
	if !ok {
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	var out []ContentsEntry
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		path, _ := m["path"].(string)
		if path == "" {
			continue
		}
		desc, _ := m["description"].(string)
		out = append(out, ContentsEntry{Path: path, Description: desc})
	}
	return out
}

// ContentsDescriptions maps each contents path to its description, for
// carrying curator notes across a header regeneration.
func (f *Frontmatter) ContentsDescriptions() map[string]string {
	out := make(map[string]string)
	for _, entry := range contentsFrom(f) {
		if entry.Description != "" {
			out[entry.Path] = entry.Description
		}
	}
	return out
}
