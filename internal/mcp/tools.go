package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// Tool definitions for the archive server. Descriptions are what LLM
// clients see, so they spell out the table layout and the json_extract
// idiom instead of assuming the model knows the schema.

var manifestToolDef = mcp.NewTool("get_manifest",
	mcp.WithDescription("Get the archive manifest: lists all collections with record counts and pre-computed metadata schemas. Call this first to understand what data is available."),
)

var schemaToolDef = mcp.NewTool("get_schema",
	mcp.WithDescription("Get metadata schema for a collection. Shows all metadata keys, their types, counts, and sample values. Use this to understand what fields are queryable via json_extract(metadata, '$.key')."),
	mcp.WithString("collection",
		mcp.Description("Collection name. Omit to get schemas for every collection."),
	),
)

var queryToolDef = mcp.NewTool("sql_query",
	mcp.WithDescription("Run a read-only SQL query against the archive. The 'records' table has columns: id, collection, mimetype, uri, content, timestamp, metadata (JSON). Use json_extract(metadata, '$.key') to query metadata fields. Only SELECT statements are allowed."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("SQL SELECT statement to run."),
	),
)
