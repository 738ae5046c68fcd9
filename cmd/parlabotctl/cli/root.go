// Package cli implements the parlabotctl command tree. Commands talk to
// the database directly, so they work without a running server and
// without an admin session.
package cli

import (
	"database/sql"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/parlabot/parlabot/internal/config"
	"github.com/parlabot/parlabot/pkg/repository"
)

// Execute creates the root command tree and runs it.
func Execute() error {
	rootCmd := newRootCmd()
	return rootCmd.Execute()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parlabotctl",
		Short: "Administer parlabot accounts and premium keys",
		Long: `parlabotctl manages the parlabot account service: issue and revoke
premium keys, and grant or remove the admin flag on accounts.

Database connection settings are read from the environment (or a .env
file), the same variables the server uses.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cobra.OnInitialize(func() {
		_ = godotenv.Load()
	})

	// Add subcommands
	cmd.AddCommand(newKeyCmd())
	cmd.AddCommand(newUserCmd())

	return cmd
}

// openDB connects to the database using the server's configuration. The
// JWT secret is not needed here, so a placeholder keeps config.Load happy.
func openDB() (*sql.DB, error) {
	if os.Getenv("JWT_SECRET") == "" {
		os.Setenv("JWT_SECRET", "parlabotctl")
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return repository.NewDB(repository.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
}
