package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/querylens/querylens/internal/config"
	"github.com/querylens/querylens/internal/database"
	"github.com/querylens/querylens/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the QueryLens HTTP server",
	Long: `Start the QueryLens server which provides:
- POST /api/analyze to run the analyzer pipeline over a posted trace
- GET /api/runs and /api/runs/:id/issues to browse archived results
- GET /api/health for monitoring`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Println("🚀 QueryLens Server Starting...")

	fmt.Println("📝 Loading configuration...")
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var db *database.DB
	if cfg.DB.DSN != "" {
		fmt.Println("🔌 Connecting to database...")
		db, err = database.NewConnection(&cfg.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		fmt.Println("✅ Database connected successfully")
	} else {
		fmt.Println("ℹ️  No DSN configured, running without the archive backend")
	}

	fmt.Println("⚙️  Setting up server...")
	srv := server.NewServer(cfg, db, logger)

	fmt.Printf("🌐 Starting server on %s...\n", cfg.Server.Addr)
	if err := srv.Start(cfg.Server.Addr); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}
