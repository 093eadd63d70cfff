package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/arkiv/internal/config"
	"github.com/hpungsan/arkiv/internal/db"
	"github.com/hpungsan/arkiv/internal/errors"
	"github.com/hpungsan/arkiv/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	store *db.Store
	cfg   *config.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(store *db.Store, cfg *config.Config) *Handlers {
	return &Handlers{store: store, cfg: cfg}
}

// Request types for each tool

// SchemaRequest represents the arguments for get_schema.
type SchemaRequest struct {
	Collection string `json:"collection,omitempty"`
}

// QueryRequest represents the arguments for sql_query.
type QueryRequest struct {
	Query string `json:"query"`
}

// decode unmarshals MCP request arguments into a typed struct.
// Avoids unsafe type assertions and handles JSON decoding safely.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var result T
	args := req.GetArguments()
	b, err := json.Marshal(args)
	if err != nil {
		return result, fmt.Errorf("marshal args: %w", err)
	}
	if err := json.Unmarshal(b, &result); err != nil {
		return result, fmt.Errorf("unmarshal args: %w", err)
	}
	return result, nil
}

// Handler implementations

// HandleGetManifest handles the get_manifest tool call.
func (h *Handlers) HandleGetManifest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.GetManifest(h.store)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleGetSchema handles the get_schema tool call. Without a collection
// argument it returns the schema for every collection in the archive.
func (h *Handlers) HandleGetSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SchemaRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	if input.Collection == "" {
		result, err := ops.GetAllSchemas(h.store)
		if err != nil {
			return errorResult(err), nil
		}
		return successResult(result)
	}

	result, err := ops.GetSchema(h.store, input.Collection)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSQLQuery handles the sql_query tool call. The payload is the bare
// rows array so clients see result rows directly, not a wrapper object.
func (h *Handlers) HandleSQLQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[QueryRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Query(h.store, ops.QueryInput{SQL: input.Query})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result.Rows)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var arkivErr *errors.ArkivError
	if stderrors.As(err, &arkivErr) {
		errorObj := map[string]any{
			"code":    arkivErr.Code,
			"message": arkivErr.Message,
			"status":  arkivErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if arkivErr.Code != errors.ErrInternal && arkivErr.Details != nil {
			errorObj["details"] = arkivErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
