package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/arkiv/internal/config"
	"github.com/hpungsan/arkiv/internal/db"
	"github.com/hpungsan/arkiv/internal/errors"
	"github.com/hpungsan/arkiv/internal/mcp"
	"github.com/hpungsan/arkiv/internal/ops"
	"github.com/hpungsan/arkiv/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(cfg *config.Config) *cli.App {
	app := &cli.App{
		Name:    "arkiv",
		Usage:   "Universal personal data format. JSONL in, SQL out, MCP to LLMs.",
		Version: Version,
		Commands: []*cli.Command{
			importCmd(cfg),
			exportCmd(cfg),
			schemaCmd(cfg),
			queryCmd(cfg),
			infoCmd(cfg),
			detectCmd(),
			fixCmd(),
			historyCmd(cfg),
			serveCmd(cfg),
			mcpCmd(cfg),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// importCmd creates the import command.
func importCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import a JSONL, manifest, or README file into an archive",
		ArgsUsage: "<input>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "db", Value: cfg.DefaultDB, Usage: "SQLite database path"},
			&cli.StringFlag{Name: "collection", Aliases: []string{"c"}, Usage: "Collection name (default: input file stem)"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("input path is required"))
			}
			input := c.Args().First()

			store, err := openArchive(c.String("db"), cfg)
			if err != nil {
				return outputError(err)
			}
			defer store.Close()

			out, err := ops.ImportFile(store, ops.ImportInput{
				Path:       input,
				Collection: c.String("collection"),
			})
			if err != nil {
				return outputError(err)
			}

			switch ops.ClassifyPath(input) {
			case ops.PathManifest:
				fmt.Printf("Imported %d records from manifest\n", out.Total)
			case ops.PathReadme:
				fmt.Printf("Imported %d records from README\n", out.Total)
			default:
				fmt.Printf("Imported %d records from %s\n", out.Total, filepath.Base(input))
			}
			return nil
		},
	}
}

// exportCmd creates the export command.
func exportCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export an archive back to JSONL files plus README.md and schema.yaml",
		ArgsUsage: "<db>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: cfg.ExportDir, Usage: "Output directory"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("database path is required"))
			}
			dbPath := c.Args().First()
			if err := requireDB(dbPath, "export"); err != nil {
				return outputError(err)
			}

			store, err := openReadOnly(dbPath, cfg)
			if err != nil {
				return outputError(err)
			}
			defer store.Close()

			out, err := ops.Export(store, ops.ExportInput{Dir: c.String("output")})
			if err != nil {
				return outputError(err)
			}
			fmt.Printf("Exported to %s\n", out.Dir)
			return nil
		},
	}
}

// schemaCmd creates the schema command.
func schemaCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "schema",
		Usage:     "Show the metadata schema of an archive or a standalone JSONL file",
		ArgsUsage: "<input>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("input path is required"))
			}
			input := c.Args().First()

			if ops.ClassifyPath(input) == ops.PathDatabase {
				store, err := openReadOnly(input, cfg)
				if err != nil {
					return outputError(err)
				}
				defer store.Close()

				out, err := ops.GetAllSchemas(store)
				if err != nil {
					return outputError(err)
				}
				return outputJSON(out)
			}

			entries, err := ops.DiscoverFileSchema(input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(entries)
		},
	}
}

// queryCmd creates the query command.
func queryCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "query",
		Usage:     "Run a read-only SQL query against an archive",
		ArgsUsage: "<db> <sql>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return outputError(errors.NewInvalidRequest("usage: arkiv query <db> <sql>"))
			}
			dbPath := c.Args().Get(0)
			if err := requireDB(dbPath, "query"); err != nil {
				return outputError(err)
			}

			store, err := openReadOnly(dbPath, cfg)
			if err != nil {
				return outputError(err)
			}
			defer store.Close()

			out, err := ops.Query(store, ops.QueryInput{SQL: c.Args().Get(1)})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(out.Rows)
		},
	}
}

// infoCmd creates the info command.
func infoCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     "Summarize an archive or a standalone JSONL file",
		ArgsUsage: "<input>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("input path is required"))
			}
			input := c.Args().First()

			if ops.ClassifyPath(input) == ops.PathDatabase {
				store, err := openReadOnly(input, cfg)
				if err != nil {
					return outputError(err)
				}
				defer store.Close()

				out, err := ops.GetInfo(store)
				if err != nil {
					return outputError(err)
				}
				return outputJSON(out)
			}

			out, err := ops.FileInfo(input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(out)
		},
	}
}

// detectCmd creates the detect command.
func detectCmd() *cli.Command {
	return &cli.Command{
		Name:      "detect",
		Usage:     "Inspect a JSONL file for format problems before importing",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "strict", Usage: "Exit non-zero when any warning is found"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("file path is required"))
			}

			out, err := ops.Detect(ops.DetectInput{Path: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			if err := outputJSON(out); err != nil {
				return err
			}
			if c.Bool("strict") && len(out.Warnings) > 0 {
				return cli.Exit(fmt.Sprintf("detect found %d warnings", len(out.Warnings)), 1)
			}
			return nil
		},
	}
}

// fixCmd creates the fix command.
func fixCmd() *cli.Command {
	return &cli.Command{
		Name:      "fix",
		Usage:     "Rewrite a JSONL file, copying recognized field aliases into place",
		ArgsUsage: "<file>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("file path is required"))
			}

			out, err := ops.Fix(ops.FixInput{Path: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(out)
		},
	}
}

// historyCmd creates the history command.
func historyCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "history",
		Usage:     "List recent imports recorded in an archive",
		ArgsUsage: "<db>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "collection", Aliases: []string{"c"}, Usage: "Only show imports for this collection"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 20, Usage: "Maximum entries to show"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("database path is required"))
			}
			dbPath := c.Args().First()
			if err := requireDB(dbPath, "history"); err != nil {
				return outputError(err)
			}

			store, err := openReadOnly(dbPath, cfg)
			if err != nil {
				return outputError(err)
			}
			defer store.Close()

			out, err := ops.History(store, ops.HistoryInput{
				Collection: c.String("collection"),
				Limit:      c.Int("limit"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(out)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "serve",
		Usage:     "Serve a read-only web UI for an archive",
		ArgsUsage: "<db>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind to"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 8080, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("database path is required"))
			}
			dbPath := c.Args().First()
			if err := requireDB(dbPath, "serve"); err != nil {
				return outputError(err)
			}

			store, err := openReadOnly(dbPath, cfg)
			if err != nil {
				return outputError(err)
			}
			defer store.Close()

			srv := web.NewServer(store, Version, c.String("bind"), c.Int("port"))
			if err := web.Run(srv); err != nil {
				return outputError(err)
			}
			return nil
		},
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "mcp",
		Usage:     "Serve an archive to MCP clients over stdio",
		ArgsUsage: "<db>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("database path is required"))
			}
			dbPath := c.Args().First()
			if err := requireDB(dbPath, "mcp"); err != nil {
				return outputError(err)
			}

			if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
				fmt.Fprintf(os.Stderr, "warning: unknown tools in disabled_tools: %v\n", unknown)
			}

			store, err := openReadOnly(dbPath, cfg)
			if err != nil {
				return outputError(err)
			}
			defer store.Close()

			if err := mcp.Run(store, cfg, Version); err != nil {
				return outputError(err)
			}
			return nil
		},
	}
}

// Helper functions

// openArchive opens the database at path for writing, applying the
// configured pool limits. The file is created when missing.
func openArchive(path string, cfg *config.Config) (*db.Store, error) {
	store, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	db.ConfigurePool(store, cfg)
	return store, nil
}

// openReadOnly opens the database at path read-only so a reading command
// cannot mutate the archive.
func openReadOnly(path string, cfg *config.Config) (*db.Store, error) {
	store, err := db.OpenReadOnly(path)
	if err != nil {
		return nil, err
	}
	db.ConfigurePool(store, cfg)
	return store, nil
}

// requireDB rejects data-file paths passed where a database path is
// expected, with a hint showing the import step that was skipped.
func requireDB(path, command string) error {
	if !ops.IsDataFilePath(path) {
		return nil
	}
	name := filepath.Base(path)
	return errors.NewInvalidRequest(fmt.Sprintf(
		"%s is a JSONL file, not a SQLite database.\nImport it first:\n  arkiv import --db archive.db %s\n  arkiv %s archive.db ...",
		name, name, command))
}

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if arkivErr, ok := err.(*errors.ArkivError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", arkivErr.Code, arkivErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
