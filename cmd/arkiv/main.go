package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/arkiv/internal/config"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"import": true, "export": true, "schema": true, "query": true,
	"info": true, "detect": true, "fix": true, "history": true,
	"serve": true, "mcp": true,
	"help": true,
}

// isCLIMode reports whether the first argument selects a known subcommand
// or a help/version flag.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
     _     ____   _  __ ___ __     __
    / \   |  _ \ | |/ /|_ _|\ \   / /
   / _ \  | |_) || ' /  | |  \ \ / /
  / ___ \ |  _ < | . \  | |   \ V /
 /_/   \_\|_| \_\|_|\_\|___|   \_/

  Universal personal data format.
  JSONL in, SQL out, MCP to LLMs.

  Usage: arkiv <command> [options]
         arkiv --help`)
}

func main() {
	// No args: banner on a terminal, a terse error when piped
	if len(os.Args) < 2 {
		if isTerminal() {
			printBanner()
		} else {
			fmt.Fprintln(os.Stderr, "error: no command given")
			fmt.Fprintln(os.Stderr, "Run 'arkiv --help' for usage.")
		}
		os.Exit(1)
	}

	// Handle --help/--version before config load (no config needed)
	if isHelpOrVersion() {
		app := newCLIApp(config.DefaultConfig())
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if !isCLIMode() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'arkiv --help' for usage.\n")
		os.Exit(1)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		os.Exit(1)
	}
	workDir, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine working directory: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadWithRepo(filepath.Join(homeDir, ".arkiv"), workDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	app := newCLIApp(cfg)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
