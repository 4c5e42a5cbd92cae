package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/querylens/querylens/internal/config"
	"github.com/querylens/querylens/internal/database"
	"github.com/querylens/querylens/internal/ingest"
	"github.com/querylens/querylens/internal/trace"
)

var (
	ingestOut    string
	ingestLimit  int
	ingestSchema string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Capture a query trace from MySQL performance_schema",
	Long: `Reads recorded statements from
performance_schema.events_statements_history_long and writes them as a
JSON trace file suitable for the analyze command.

Statement history must be enabled on the server:

  UPDATE performance_schema.setup_consumers
  SET ENABLED = 'YES'
  WHERE NAME = 'events_statements_history_long';`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&ingestOut, "out", "trace.json", "Output trace file")
	ingestCmd.Flags().IntVar(&ingestLimit, "limit", 10000, "Maximum number of statements to capture")
	ingestCmd.Flags().StringVar(&ingestSchema, "schema", "", "Schema to capture (defaults to the configured schema)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	fmt.Println("📥 Capturing query trace from performance_schema...")

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	schema := ingestSchema
	if schema == "" {
		schema = cfg.DB.Schema
	}
	if schema == "" {
		return fmt.Errorf("no schema configured; pass --schema or set db.schema")
	}

	db, err := database.NewConnection(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	ingester := ingest.NewPerfSchemaIngester(db)
	tr, err := ingester.Fetch(schema, ingestLimit)
	if err != nil {
		return err
	}

	if err := trace.SaveFile(tr, ingestOut); err != nil {
		return err
	}

	fmt.Printf("✅ Captured %d queries to %s\n", tr.Len(), ingestOut)
	return nil
}
