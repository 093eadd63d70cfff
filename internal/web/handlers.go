package web

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/hpungsan/arkiv/internal/db"
	"github.com/hpungsan/arkiv/internal/errors"
	"github.com/hpungsan/arkiv/internal/ops"
)

// previewLimit caps how many records the collection page shows.
const previewLimit = 20

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	store    *db.Store
	renderer *Renderer
}

// HandleCollections handles GET /collections — the archive overview.
func (h *Handlers) HandleCollections(w http.ResponseWriter, r *http.Request) {
	manifest, err := ops.GetManifest(h.store)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	rows := make([]CollectionRow, 0, len(manifest.Collections))
	for _, c := range manifest.Collections {
		row := CollectionRow{
			Name:        strings.TrimSuffix(c.File, ".jsonl"),
			Records:     c.RecordCount,
			Description: c.Description,
		}
		if c.Schema != nil {
			row.Keys = len(c.Schema.MetadataKeys)
		}
		rows = append(rows, row)
	}

	data := CollectionsPageData{
		PageData: PageData{
			Title:   "Collections",
			Version: h.renderer.version,
			Nav:     "collections",
		},
		Name:        displayValue(manifest.Name),
		Description: displayValue(manifest.Description),
		Collections: rows,
	}

	if _, body, ok, err := db.LoadReadmeMeta(h.store.Conn()); err == nil && ok && strings.TrimSpace(body) != "" {
		data.ReadmeHTML = renderMarkdown(body)
	}

	h.renderer.renderPage(w, r, "collections", data)
}

// HandleCollection handles GET /collections/{name} — schema and a record preview.
func (h *Handlers) HandleCollection(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("collection name is required"))
		return
	}

	manifest, err := ops.GetManifest(h.store)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	var entry *ops.ManifestCollection
	for _, c := range manifest.Collections {
		if strings.TrimSuffix(c.File, ".jsonl") == name {
			entry = c
			break
		}
	}
	if entry == nil {
		h.renderer.renderError(w, r, errors.NewNotFound("collection "+name))
		return
	}

	var schemaRows []SchemaRow
	if entry.Schema != nil {
		keys := make([]string, 0, len(entry.Schema.MetadataKeys))
		for k := range entry.Schema.MetadataKeys {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sk := entry.Schema.MetadataKeys[k]
			schemaRows = append(schemaRows, SchemaRow{
				Key:         k,
				Type:        sk.Type,
				Count:       sk.Count,
				Values:      joinValues(sk.Values),
				Description: sk.Description,
			})
		}
	}

	records, err := db.CollectionRecords(h.store.Conn(), name, previewLimit)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	preview := make([]RecordRow, 0, len(records))
	for _, rec := range records {
		preview = append(preview, RecordRow{
			Content:   displayValue(rec.Content),
			Timestamp: displayValue(rec.Timestamp),
			URI:       displayValue(rec.URI),
			Metadata:  metadataJSON(rec.Metadata),
		})
	}

	h.renderer.renderPage(w, r, "collection", CollectionPageData{
		PageData: PageData{
			Title:   name,
			Version: h.renderer.version,
			Nav:     "collections",
		},
		Name:        name,
		Description: entry.Description,
		Records:     entry.RecordCount,
		Schema:      schemaRows,
		Preview:     preview,
	})
}

// HandleQuery handles GET /query — the SQL form and its results.
func (h *Handlers) HandleQuery(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))

	data := QueryPageData{
		PageData: PageData{
			Title:   "Query",
			Version: h.renderer.version,
			Nav:     "query",
		},
		Query:    q,
		HasQuery: q != "",
	}

	if q != "" {
		result, err := ops.Query(h.store, ops.QueryInput{SQL: q})
		if err != nil {
			// Rejected statements render inline above the form; anything
			// unexpected still gets the full error treatment.
			var aErr *errors.ArkivError
			if stderrors.As(err, &aErr) && aErr.Status < 500 {
				data.QueryError = aErr.Message
			} else {
				h.renderer.renderError(w, r, err)
				return
			}
		} else {
			data.Columns = result.Columns
			data.Count = result.Count
			data.Rows = make([][]string, 0, len(result.Rows))
			for _, row := range result.Rows {
				cells := make([]string, len(result.Columns))
				for i, col := range result.Columns {
					cells[i] = cellString(row[col])
				}
				data.Rows = append(data.Rows, cells)
			}
		}
	}

	// If htmx targets #results, render only the results fragment
	if r.Header.Get("HX-Target") == "results" {
		h.renderer.renderBlock(w, http.StatusOK, "query", "query-results", data)
		return
	}

	h.renderer.renderPage(w, r, "query", data)
}

// displayValue renders a record field or frontmatter value for templates.
func displayValue(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// cellString renders one SQL result cell. NULL is shown literally so it
// is distinguishable from an empty string.
func cellString(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}

// joinValues renders an enum sample list as "a, b, c".
func joinValues(values []any) string {
	if len(values) == 0 {
		return ""
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%v", v)
	}
	return strings.Join(parts, ", ")
}

// metadataJSON renders a record's metadata map as compact JSON.
func metadataJSON(m map[string]any) string {
	if len(m) == 0 {
		return ""
	}
	b, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(b)
}
