// Package app implements the trendpulse CLI: flag-based subcommands that
// return process exit codes (0 ok, 1 runtime failure, 2 usage error).
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
	case "health":
		return runHealth(args[1:])
	case "ingest":
		return runIngest(args[1:])
	case "process":
		return runProcess(args[1:])
	case "growth":
		return runGrowth(args[1:])
	case "clusters":
		return runClusters(args[1:])
	case "serve":
		return runServe(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "trendpulse CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  trendpulse <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health    Verify database connectivity")
	fmt.Fprintln(os.Stderr, "  ingest    Validate and store one raw post payload")
	fmt.Fprintln(os.Stderr, "  process   Normalize, score, and cluster pending raw posts")
	fmt.Fprintln(os.Stderr, "  growth    Recompute growth for active clusters")
	fmt.Fprintln(os.Stderr, "  clusters  List clusters")
	fmt.Fprintln(os.Stderr, "  serve     Start the API server")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"trendpulse <command> -h\" for command-specific flags.")
}
