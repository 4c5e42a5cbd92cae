package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/querylens/querylens/internal/analyze"
	"github.com/querylens/querylens/internal/config"
	"github.com/querylens/querylens/internal/database"
	"github.com/querylens/querylens/internal/metadata"
	"github.com/querylens/querylens/internal/report"
	"github.com/querylens/querylens/internal/trace"
)

var (
	analyzeFormat   string
	analyzeMetadata bool
	analyzeArchive  bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <trace.json>",
	Short: "Analyze a captured query trace for anti-patterns",
	Long: `Runs the full analyzer pipeline over a JSON trace file and reports
the detected issues.

With --metadata, QueryLens connects to the configured database and
reads foreign key associations from information_schema, which lets the
join analyzers distinguish collection joins from scalar joins.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "console", "Output format: console or json")
	analyzeCmd.Flags().BoolVar(&analyzeMetadata, "metadata", false, "Load schema associations from the configured database")
	analyzeCmd.Flags().BoolVar(&analyzeArchive, "archive", false, "Persist the run and its issues to the archive tables")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	tr, err := trace.LoadFile(args[0])
	if err != nil {
		return err
	}

	if analyzeFormat == "console" {
		fmt.Printf("🔍 Analyzing %d queries...\n\n", tr.Len())
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	runner, err := analyze.NewRunner(cfg.Analysis, logger)
	if err != nil {
		return fmt.Errorf("failed to build analyzer pipeline: %w", err)
	}

	var db *database.DB
	var provider metadata.Provider
	if analyzeMetadata || analyzeArchive {
		db, err = database.NewConnection(&cfg.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
	}
	if analyzeMetadata {
		provider = metadata.NewMySQLProvider(db.DB, cfg.DB.Schema)
	}

	startedAt := time.Now()
	issues := runner.Run(tr, provider)
	finishedAt := time.Now()

	var reporter interface {
		Report([]analyze.Issue) error
	}
	switch analyzeFormat {
	case "console":
		reporter = report.NewConsoleReporter()
	case "json":
		reporter = report.NewJSONReporter()
	default:
		return fmt.Errorf("unknown format: %s", analyzeFormat)
	}
	if err := reporter.Report(issues); err != nil {
		return err
	}

	if analyzeArchive {
		store := database.NewStore(db)
		runID, err := store.SaveRun(tr.Len(), issues, startedAt, finishedAt)
		if err != nil {
			return fmt.Errorf("failed to archive run: %w", err)
		}
		if analyzeFormat == "console" {
			fmt.Printf("💾 Archived run %s\n", runID)
		}
	}

	return nil
}
