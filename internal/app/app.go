package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "ingest", "run-once":
		return runIngest(args[1:])
	case "serve":
		return runServe(args[1:])
	case "migrate":
		return runMigrate(args[1:])
	case "health":
		return runHealth(args[1:])
	case "validate":
		return runValidate(args[1:])
	case "providers":
		return runProviders(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "newshub CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  newshub <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  ingest     Run one ingestion across the configured providers")
	fmt.Fprintln(os.Stderr, "  run-once   Alias for ingest")
	fmt.Fprintln(os.Stderr, "  serve      Start the HTTP trigger server")
	fmt.Fprintln(os.Stderr, "  migrate    Apply the schema and seed tracked companies")
	fmt.Fprintln(os.Stderr, "  health     Verify database connectivity")
	fmt.Fprintln(os.Stderr, "  validate   Validate candidate JSON files against the article schema")
	fmt.Fprintln(os.Stderr, "  providers  List news providers and whether they are enabled")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"newshub <command> -h\" for command-specific flags.")
}
