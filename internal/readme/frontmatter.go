package readme

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hpungsan/arkiv/internal/errors"
)

// Frontmatter is an insertion-ordered key→value header. Serialization
// preserves top-level key order, so unknown keys round-trip in place. The
// zero value is an empty, usable header.
type Frontmatter struct {
	keys   []string
	values map[string]any
}

// NewFrontmatter returns an empty header.
func NewFrontmatter() *Frontmatter {
	return &Frontmatter{}
}

// Set stores a value. A new key is appended at the end; an existing key
// keeps its position.
func (f *Frontmatter) Set(key string, value any) {
	if f.values == nil {
		f.values = make(map[string]any)
	}
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
}

// Get returns the value stored under key.
func (f *Frontmatter) Get(key string) (any, bool) {
	if f == nil || f.values == nil {
		return nil, false
	}
	v, ok := f.values[key]
	return v, ok
}

// GetString returns the value under key when it is a string, else "".
func (f *Frontmatter) GetString(key string) string {
	v, _ := f.Get(key)
	s, _ := v.(string)
	return s
}

// Keys returns the header's keys in insertion order.
func (f *Frontmatter) Keys() []string {
	if f == nil {
		return nil
	}
	out := make([]string, len(f.keys))
	copy(out, f.keys)
	return out
}

// Len reports the number of keys.
func (f *Frontmatter) Len() int {
	if f == nil {
		return 0
	}
	return len(f.keys)
}

// MarshalYAML emits the header as a mapping in insertion order.
func (f *Frontmatter) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range f.keys {
		keyNode := &yaml.Node{}
		keyNode.SetString(k)
		valNode := &yaml.Node{}
		if err := valNode.Encode(f.values[k]); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, keyNode, valNode)
	}
	return node, nil
}

// UnmarshalYAML decodes a mapping, recording key order.
func (f *Frontmatter) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("frontmatter must be a mapping, got %v", value.Tag)
	}
	return f.fromMapping(value)
}

func (f *Frontmatter) fromMapping(node *yaml.Node) error {
	for i := 0; i+1 < len(node.Content); i += 2 {
		var key string
		if err := node.Content[i].Decode(&key); err != nil {
			return err
		}
		var val any
		if err := node.Content[i+1].Decode(&val); err != nil {
			return err
		}
		f.Set(key, val)
	}
	return nil
}

// HeaderText serializes the header to YAML text, insertion order intact.
// An empty header yields "".
func (f *Frontmatter) HeaderText() (string, error) {
	if f.Len() == 0 {
		return "", nil
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		enc.Close()
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ParseHeader parses YAML header text into ordered frontmatter. Text that
// parses to anything other than a mapping yields an empty header; only
// YAML that fails to parse at all is an error.
func ParseHeader(text string) (*Frontmatter, error) {
	f := NewFrontmatter()
	if strings.TrimSpace(text) == "" {
		return f, nil
	}
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return f, errors.NewInvalidRequest(fmt.Sprintf("invalid frontmatter YAML: %v", err))
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return f, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return f, nil
	}
	if err := f.fromMapping(root); err != nil {
		return NewFrontmatter(), errors.NewInvalidRequest(fmt.Sprintf("invalid frontmatter YAML: %v", err))
	}
	return f, nil
}
