package ops

import (
	"os"
	"path/filepath"

	"github.com/hpungsan/arkiv/internal/db"
	"github.com/hpungsan/arkiv/internal/errors"
	"github.com/hpungsan/arkiv/internal/readme"
	"github.com/hpungsan/arkiv/internal/record"
	"github.com/hpungsan/arkiv/internal/schema"
)

// ExportInput names the directory to export into. It is created when
// missing.
type ExportInput struct {
	Dir string `json:"dir"`
}

// ExportedFile reports one collection written during an export.
type ExportedFile struct {
	Collection string `json:"collection"`
	File       string `json:"file"`
	Records    int    `json:"records"`
}

// ExportOutput reports everything an export produced.
type ExportOutput struct {
	Dir   string         `json:"dir"`
	Files []ExportedFile `json:"files"`
	Total int            `json:"total_records"`
}

// Export writes every collection that has records to <dir>/<name>.jsonl,
// plus a README.md rebuilt from stored metadata and a schema.yaml built
// from the stored schemas. Contents descriptions a curator wrote into
// the README survive the rebuild; collections that exist only as curated
// schema rows are not exported.
func Export(store *db.Store, input ExportInput) (*ExportOutput, error) {
	if input.Dir == "" {
		return nil, errors.NewInvalidRequest("export directory is required")
	}
	if err := os.MkdirAll(input.Dir, 0o755); err != nil {
		return nil, errors.NewInternal(err)
	}

	conn := store.Conn()
	collections, err := db.RecordCollections(conn)
	if err != nil {
		return nil, err
	}

	out := &ExportOutput{Dir: input.Dir, Files: make([]ExportedFile, 0, len(collections))}
	schemas := make(map[string]*schema.Collection, len(collections))
	for _, name := range collections {
		records, err := db.CollectionRecords(conn, name, 0)
		if err != nil {
			return nil, err
		}
		filename := SanitizeForFilename(name) + ".jsonl"
		err = writeFileAtomic(filepath.Join(input.Dir, filename), func(f *os.File) error {
			return record.WriteAll(f, records)
		})
		if err != nil {
			return nil, err
		}

		entries, err := db.LoadSchemaEntries(conn, name)
		if err != nil {
			return nil, err
		}
		schemas[name] = &schema.Collection{RecordCount: len(records), MetadataKeys: entries}
		out.Files = append(out.Files, ExportedFile{Collection: name, File: filename, Records: len(records)})
		out.Total += len(records)
	}

	if err := writeReadme(store, input.Dir, out.Files); err != nil {
		return nil, err
	}
	err = writeFileAtomic(filepath.Join(input.Dir, "schema.yaml"), func(f *os.File) error {
		return schema.Write(f, schemas)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// writeReadme regenerates README.md: the stored header and body pass
// through as stored, except the contents list, which is rebuilt from the
// files just written. A stored header that no longer parses as a mapping
// is treated as empty rather than failing the export.
func writeReadme(store *db.Store, dir string, files []ExportedFile) error {
	header, body, _, err := db.LoadReadmeMeta(store.Conn())
	if err != nil {
		return err
	}
	fm, err := readme.ParseHeader(header)
	if err != nil {
		fm = readme.NewFrontmatter()
	}

	stored := fm.ContentsDescriptions()
	contents := make([]readme.ContentsEntry, 0, len(files))
	for _, f := range files {
		contents = append(contents, readme.ContentsEntry{Path: f.File, Description: stored[f.File]})
	}
	fm.Set("contents", contents)

	doc := &readme.Doc{Frontmatter: fm, Body: body}
	return writeFileAtomic(filepath.Join(dir, "README.md"), func(f *os.File) error {
		return doc.Write(f)
	})
}
