package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "querylens",
	Short: "QueryLens - SQL query trace analysis",
	Long: `QueryLens inspects captured SQL query traces for common ORM and
query anti-patterns: N+1 query storms, excessive joins, unbounded
find-all scans, flush-in-loop write patterns, ineffective LIKE
filters, and more.

Traces can be captured from MySQL's performance_schema with the
ingest command, or supplied as JSON files produced by an application
instrumentation layer.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
