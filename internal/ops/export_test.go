package ops

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hpungsan/arkiv/internal/db"
	"github.com/hpungsan/arkiv/internal/errors"
	"github.com/hpungsan/arkiv/internal/readme"
	"github.com/hpungsan/arkiv/internal/record"
	"github.com/hpungsan/arkiv/internal/schema"
)

// seedStore imports the shared chat fixture plus a notes collection and
// returns the store and the fixture directory.
func seedStore(t *testing.T) (*db.Store, string) {
	t.Helper()
	store := newTestStore(t)
	dir := t.TempDir()
	writeTestFile(t, dir, "chats.jsonl", chatLines)
	writeTestFile(t, dir, "notes.jsonl", `{"content": "a note", "metadata": {"tag": "todo"}}`+"\n")
	for _, name := range []string{"chats.jsonl", "notes.jsonl"} {
		if _, err := ImportFile(store, ImportInput{Path: filepath.Join(dir, name)}); err != nil {
			t.Fatalf("seed import of %s failed: %v", name, err)
		}
	}
	return store, dir
}

func TestExport_WritesCollectionFiles(t *testing.T) {
	store, _ := seedStore(t)
	outDir := filepath.Join(t.TempDir(), "exported")

	out, err := Export(store, ExportInput{Dir: outDir})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if out.Total != 5 {
		t.Errorf("Total = %d, want 5", out.Total)
	}
	if len(out.Files) != 2 {
		t.Fatalf("len(Files) = %d, want 2", len(out.Files))
	}
	// Alphabetical collection order
	if out.Files[0].Collection != "chats" || out.Files[1].Collection != "notes" {
		t.Errorf("Files order = %v, want chats then notes", out.Files)
	}

	for _, name := range []string{"chats.jsonl", "notes.jsonl", "README.md", "schema.yaml"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("expected %s in export dir: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(outDir, "manifest.json")); !os.IsNotExist(err) {
		t.Error("manifest.json written; export should not produce one")
	}

	records, err := record.ReadFile(filepath.Join(outDir, "chats.jsonl"))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("exported chats records = %d, want 4", len(records))
	}
	if records[0].Content != "hello" {
		t.Errorf("first exported record = %q, want insertion order preserved", records[0].Content)
	}
}

func TestExport_RoundTrip(t *testing.T) {
	store, _ := seedStore(t)
	outDir := filepath.Join(t.TempDir(), "exported")
	if _, err := Export(store, ExportInput{Dir: outDir}); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	fresh := newTestStore(t)
	out, err := ImportFile(fresh, ImportInput{Path: filepath.Join(outDir, "chats.jsonl")})
	if err != nil {
		t.Fatalf("re-import failed: %v", err)
	}
	if out.Total != 4 {
		t.Errorf("re-imported records = %d, want 4", out.Total)
	}
}

func TestExport_ReadmeContentsRebuilt(t *testing.T) {
	store, fixtures := seedStore(t)

	// Store a README whose contents list has a curated description and a
	// stale entry for a collection that no longer exists.
	readmeText := `---
name: My Archive
license: MIT
contents:
  - path: chats.jsonl
    description: Chat history
  - path: gone.jsonl
    description: Stale entry
---

Body text survives export.
`
	readmePath := writeTestFile(t, fixtures, "README.md", readmeText)
	if _, err := ImportFile(store, ImportInput{Path: readmePath}); err != nil {
		t.Fatalf("README import failed: %v", err)
	}

	outDir := filepath.Join(t.TempDir(), "exported")
	if _, err := Export(store, ExportInput{Dir: outDir}); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	doc, err := readme.ParseFile(filepath.Join(outDir, "README.md"))
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if doc.Frontmatter.GetString("name") != "My Archive" {
		t.Errorf("name = %q, want passed through", doc.Frontmatter.GetString("name"))
	}
	if doc.Frontmatter.GetString("license") != "MIT" {
		t.Errorf("license = %q, want unrecognized key preserved", doc.Frontmatter.GetString("license"))
	}
	if !strings.Contains(doc.Body, "Body text survives export.") {
		t.Errorf("body = %q, want stored body", doc.Body)
	}

	contents := doc.Contents()
	if len(contents) != 2 {
		t.Fatalf("contents = %v, want the two live collections", contents)
	}
	byPath := map[string]string{}
	for _, entry := range contents {
		byPath[entry.Path] = entry.Description
	}
	if byPath["chats.jsonl"] != "Chat history" {
		t.Errorf("chats description = %q, want preserved", byPath["chats.jsonl"])
	}
	if _, ok := byPath["notes.jsonl"]; !ok {
		t.Error("notes.jsonl missing from rebuilt contents")
	}
	if _, ok := byPath["gone.jsonl"]; ok {
		t.Error("stale contents entry survived; want dropped")
	}
}

func TestExport_SchemaYAML(t *testing.T) {
	store, _ := seedStore(t)
	if err := MergeCuratedSchema(store, "chats", map[string]*schema.Entry{
		"role": {Type: "string", Description: "Speaker role"},
	}); err != nil {
		t.Fatalf("MergeCuratedSchema failed: %v", err)
	}

	outDir := filepath.Join(t.TempDir(), "exported")
	if _, err := Export(store, ExportInput{Dir: outDir}); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	collections, err := schema.LoadFile(filepath.Join(outDir, "schema.yaml"))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	chats := collections["chats"]
	if chats == nil {
		t.Fatal("chats missing from schema.yaml")
	}
	if chats.RecordCount != 4 {
		t.Errorf("record_count = %d, want live count 4", chats.RecordCount)
	}
	role := chats.MetadataKeys["role"]
	if role == nil {
		t.Fatal("role missing from exported schema")
	}
	if role.Description != "Speaker role" {
		t.Errorf("role description = %q, want curated", role.Description)
	}
	if len(role.Values) != 2 {
		t.Errorf("role values = %v, want enumeration", role.Values)
	}
}

func TestExport_EmptyStore(t *testing.T) {
	store := newTestStore(t)
	outDir := filepath.Join(t.TempDir(), "exported")

	out, err := Export(store, ExportInput{Dir: outDir})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if out.Total != 0 || len(out.Files) != 0 {
		t.Errorf("out = %+v, want empty export", out)
	}

	doc, err := readme.ParseFile(filepath.Join(outDir, "README.md"))
	if err != nil {
		t.Fatalf("README.md missing from empty export: %v", err)
	}
	if len(doc.Contents()) != 0 {
		t.Errorf("contents = %v, want empty list", doc.Contents())
	}
	if _, err := os.Stat(filepath.Join(outDir, "schema.yaml")); err != nil {
		t.Errorf("schema.yaml missing from empty export: %v", err)
	}
}

func TestExport_SanitizesCollectionFilenames(t *testing.T) {
	store := newTestStore(t)
	path := writeTestFile(t, t.TempDir(), "data.jsonl", `{"content": "x"}`+"\n")
	if _, err := ImportFile(store, ImportInput{Path: path, Collection: "my/sneaky"}); err != nil {
		t.Fatalf("import failed: %v", err)
	}

	outDir := filepath.Join(t.TempDir(), "exported")
	out, err := Export(store, ExportInput{Dir: outDir})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if out.Files[0].File != "my-sneaky.jsonl" {
		t.Errorf("File = %q, want sanitized filename", out.Files[0].File)
	}
	if _, err := os.Stat(filepath.Join(outDir, "my-sneaky.jsonl")); err != nil {
		t.Errorf("sanitized file missing: %v", err)
	}
}

func TestExport_RequiresDir(t *testing.T) {
	store := newTestStore(t)
	_, err := Export(store, ExportInput{})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("error = %v, want INVALID_REQUEST", err)
	}
}
