package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/querylens/querylens/internal/config"
	"github.com/querylens/querylens/internal/database"
)

var initDropFirst bool

var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Create the analysis archive tables",
	Long: `Creates the app_analysis_runs and app_issues tables used to archive
analysis results. Safe to run repeatedly.`,
	RunE: runInitDB,
}

func init() {
	rootCmd.AddCommand(initDBCmd)

	initDBCmd.Flags().BoolVar(&initDropFirst, "drop-first", false, "Drop existing archive tables before creating")
}

func runInitDB(cmd *cobra.Command, args []string) error {
	fmt.Println("🔧 Setting up archive tables...")

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := database.NewConnection(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if initDropFirst {
		fmt.Println("🗑️  Dropping existing archive tables...")
		if err := db.DropSchema(); err != nil {
			return fmt.Errorf("failed to drop archive tables: %w", err)
		}
	}

	if err := db.InitSchema(); err != nil {
		return fmt.Errorf("failed to create archive tables: %w", err)
	}

	fmt.Println("✅ Archive tables ready")
	return nil
}
