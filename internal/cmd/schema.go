package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/querylens/querylens/internal/config"
	"github.com/querylens/querylens/internal/database"
	"github.com/querylens/querylens/internal/metadata"
)

var schemaName string

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Dump the association metadata detected for a schema",
	Long: `Connects to the configured database and prints the foreign-key
associations and primary keys read from information_schema, the same
metadata the join analyzers consume with --metadata.`,
	RunE: runSchema,
}

func init() {
	rootCmd.AddCommand(schemaCmd)

	schemaCmd.Flags().StringVar(&schemaName, "schema", "", "Schema to inspect (defaults to the configured schema)")
}

type tableMetadata struct {
	Table        string                 `json:"table"`
	Identifiers  []string               `json:"identifiers,omitempty"`
	Associations []metadata.Association `json:"associations"`
}

func runSchema(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	schema := schemaName
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

	provider := metadata.NewMySQLProvider(db.DB, schema)
	all, err := provider.AllAssociations()
	if err != nil {
		return err
	}

	tables := make([]string, 0, len(all))
	for table := range all {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	dump := make([]tableMetadata, 0, len(tables))
	for _, table := range tables {
		ids, err := provider.IdentifierColumns(table)
		if err != nil {
			return err
		}
		dump = append(dump, tableMetadata{
			Table:        table,
			Identifiers:  ids,
			Associations: all[table],
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(dump)
}
