package web

import (
	"encoding/json"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hpungsan/arkiv/internal/db"
	"github.com/hpungsan/arkiv/internal/ops"
)

const chatLines = `{"content": "hello", "timestamp": "2024-06-01T10:00:00Z", "metadata": {"role": "user"}}
{"content": "hi there", "timestamp": "2024-06-01T10:00:05Z", "metadata": {"role": "assistant"}}
{"content": "thanks", "metadata": {"role": "user"}}
{"content": "bare"}
`

func setupTest(t *testing.T) *Handlers {
	t.Helper()
	tmpDir := t.TempDir()
	store, err := db.Open(filepath.Join(tmpDir, "archive.db"))
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		t.Fatalf("template sub-FS: %v", err)
	}
	renderer := NewRenderer(templateSub, "test")

	return &Handlers{
		store:    store,
		renderer: renderer,
	}
}

// seedCollection imports a JSONL fixture into the handler's store.
func seedCollection(t *testing.T, h *Handlers, name, lines string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), name+".jsonl")
	if err := os.WriteFile(path, []byte(lines), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := ops.ImportFile(h.store, ops.ImportInput{Path: path}); err != nil {
		t.Fatalf("seed collection %q: %v", name, err)
	}
}

// --- HandleCollections ---

func TestHandleCollections_Empty(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("GET", "/collections", nil)
	rec := httptest.NewRecorder()
	h.HandleCollections(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No collections yet") {
		t.Error("expected empty state message")
	}
}

func TestHandleCollections_ListsCollections(t *testing.T) {
	h := setupTest(t)
	seedCollection(t, h, "chats", chatLines)

	req := httptest.NewRequest("GET", "/collections", nil)
	rec := httptest.NewRecorder()
	h.HandleCollections(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `href="/collections/chats"`) {
		t.Error("expected link to the chats collection")
	}
	if !strings.Contains(body, "Collections") {
		t.Error("expected page title 'Collections' in response")
	}
}

func TestHandleCollections_ReadmeRendered(t *testing.T) {
	h := setupTest(t)
	seedCollection(t, h, "chats", chatLines)

	fm := "name: My Archive\ndescription: Everything I keep\n"
	if err := db.StoreReadmeMeta(h.store.Conn(), fm, "## Purpose\nOne place for all of it.\n"); err != nil {
		t.Fatalf("store readme meta: %v", err)
	}

	req := httptest.NewRequest("GET", "/collections", nil)
	rec := httptest.NewRecorder()
	h.HandleCollections(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "My Archive") {
		t.Error("expected archive name from stored README")
	}
	if !strings.Contains(body, "Everything I keep") {
		t.Error("expected archive description from stored README")
	}
	// Body markdown should be rendered to HTML
	if !strings.Contains(body, "<h2") || !strings.Contains(body, "Purpose") {
		t.Error("expected rendered README body heading")
	}
}

func TestHandleCollections_HtmxReturnsContentOnly(t *testing.T) {
	h := setupTest(t)
	seedCollection(t, h, "chats", chatLines)

	req := httptest.NewRequest("GET", "/collections", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	h.HandleCollections(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	// Htmx response should not contain the full layout shell
	if strings.Contains(body, "<!DOCTYPE html>") {
		t.Error("htmx response should not contain full layout")
	}
	if !strings.Contains(body, "chats") {
		t.Error("htmx response should contain collection data")
	}
}

// --- HandleCollection ---

func TestHandleCollection_SchemaAndPreview(t *testing.T) {
	h := setupTest(t)
	seedCollection(t, h, "chats", chatLines)

	req := httptest.NewRequest("GET", "/collections/chats", nil)
	req.SetPathValue("name", "chats")
	rec := httptest.NewRecorder()
	h.HandleCollection(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "role") {
		t.Error("expected metadata key 'role' in schema table")
	}
	if !strings.Contains(body, "assistant") {
		t.Error("expected enum value 'assistant' in schema table")
	}
	if !strings.Contains(body, "hello") {
		t.Error("expected record content in preview table")
	}
	if !strings.Contains(body, "4 records") {
		t.Error("expected record count line")
	}
}

func TestHandleCollection_NotFound(t *testing.T) {
	h := setupTest(t)
	seedCollection(t, h, "chats", chatLines)

	req := httptest.NewRequest("GET", "/collections/ghosts", nil)
	req.SetPathValue("name", "ghosts")
	rec := httptest.NewRecorder()
	h.HandleCollection(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "404") {
		t.Error("error page should show status code")
	}
}

func TestHandleCollection_NotFound_JSON(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("GET", "/collections/ghosts", nil)
	req.SetPathValue("name", "ghosts")
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	h.HandleCollection(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	var resp map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	errObj, ok := resp["error"].(map[string]any)
	if !ok {
		t.Fatal("expected error object in JSON response")
	}
	if errObj["code"] != "NOT_FOUND" {
		t.Errorf("error.code = %v, want NOT_FOUND", errObj["code"])
	}
}

func TestHandleCollection_EmptyName(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("GET", "/collections/", nil)
	rec := httptest.NewRecorder()
	h.HandleCollection(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleCollection_HtmxErrorFragment(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("GET", "/collections/ghosts", nil)
	req.SetPathValue("name", "ghosts")
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	h.HandleCollection(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "error-message") {
		t.Error("expected error-message div in htmx error response")
	}
	if strings.Contains(body, "<!DOCTYPE html>") {
		t.Error("htmx error should not contain full layout")
	}
}

// --- HandleQuery ---

func TestHandleQuery_EmptyForm(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("GET", "/query", nil)
	rec := httptest.NewRecorder()
	h.HandleQuery(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<textarea") {
		t.Error("expected SQL textarea in form")
	}
	if !strings.Contains(body, "only SELECT statements are allowed") {
		t.Error("expected read-only hint")
	}
}

func TestHandleQuery_RunsSelect(t *testing.T) {
	h := setupTest(t)
	seedCollection(t, h, "chats", chatLines)

	q := url.QueryEscape("SELECT content FROM records WHERE json_extract(metadata, '$.role') = 'assistant'")
	req := httptest.NewRequest("GET", "/query?q="+q, nil)
	rec := httptest.NewRecorder()
	h.HandleQuery(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "hi there") {
		t.Error("expected matching record content in results")
	}
	if !strings.Contains(body, "1 row") {
		t.Error("expected row count")
	}
}

func TestHandleQuery_RejectedStatementShowsError(t *testing.T) {
	h := setupTest(t)
	seedCollection(t, h, "chats", chatLines)

	q := url.QueryEscape("DELETE FROM records")
	req := httptest.NewRequest("GET", "/query?q="+q, nil)
	rec := httptest.NewRecorder()
	h.HandleQuery(rec, req)

	// Page renders fine; the rejection shows inline
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "error-message") {
		t.Error("expected inline error block")
	}
	if !strings.Contains(body, "only SELECT queries are allowed") {
		t.Error("expected rejection reason in response")
	}
}

func TestHandleQuery_EngineErrorShowsInline(t *testing.T) {
	h := setupTest(t)
	seedCollection(t, h, "chats", chatLines)

	q := url.QueryEscape("SELECT * FROM no_such_table")
	req := httptest.NewRequest("GET", "/query?q="+q, nil)
	rec := httptest.NewRecorder()
	h.HandleQuery(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "error-message") {
		t.Error("expected inline error block for engine error")
	}
}

func TestHandleQuery_HtmxTargetResults_ReturnsFragment(t *testing.T) {
	h := setupTest(t)
	seedCollection(t, h, "chats", chatLines)

	q := url.QueryEscape("SELECT content FROM records")
	req := httptest.NewRequest("GET", "/query?q="+q, nil)
	req.Header.Set("HX-Target", "results")
	rec := httptest.NewRecorder()
	h.HandleQuery(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if strings.Contains(body, "<!DOCTYPE html>") {
		t.Error("fragment response should not contain full layout")
	}
	if strings.Contains(body, "<textarea") {
		t.Error("fragment response should not repeat the form")
	}
	if !strings.Contains(body, "hello") {
		t.Error("fragment should contain result rows")
	}
}

// --- Helper functions ---

func TestDisplayValue(t *testing.T) {
	tests := []struct {
		in       any
		expected string
	}{
		{nil, ""},
		{"plain", "plain"},
		{float64(7), "7"},
		{true, "true"},
	}
	for _, tt := range tests {
		if got := displayValue(tt.in); got != tt.expected {
			t.Errorf("displayValue(%v) = %q, want %q", tt.in, got, tt.expected)
		}
	}
}

func TestCellString(t *testing.T) {
	if got := cellString(nil); got != "NULL" {
		t.Errorf("cellString(nil) = %q, want NULL", got)
	}
	if got := cellString(int64(42)); got != "42" {
		t.Errorf("cellString(42) = %q, want 42", got)
	}
}

func TestJoinValues(t *testing.T) {
	if got := joinValues(nil); got != "" {
		t.Errorf("joinValues(nil) = %q, want empty", got)
	}
	if got := joinValues([]any{"a", "b", float64(3)}); got != "a, b, 3" {
		t.Errorf("joinValues = %q, want %q", got, "a, b, 3")
	}
}

func TestFormatCount(t *testing.T) {
	tests := []struct {
		in       int
		expected string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-4200, "-4,200"},
	}
	for _, tt := range tests {
		if got := formatCount(tt.in); got != tt.expected {
			t.Errorf("formatCount(%d) = %q, want %q", tt.in, got, tt.expected)
		}
	}
}
