package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/parlabot/parlabot/pkg/domain"
	"github.com/parlabot/parlabot/pkg/premium"
	"github.com/parlabot/parlabot/pkg/repository"
)

func newKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage premium keys",
		Long:  "Create, list, and revoke the single-use keys that grant premium entitlement.",
	}

	cmd.AddCommand(newKeyCreateCmd())
	cmd.AddCommand(newKeyListCmd())
	cmd.AddCommand(newKeyRevokeCmd())

	return cmd
}

// ---------- key create ----------

func newKeyCreateCmd() *cobra.Command {
	var period string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new premium key",
		Long:  "Generate a premium key valid for one redemption within the given period.",
		Example: `  parlabotctl key create --period month
  parlabotctl key create --period year`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyCreate(period)
		},
	}

	cmd.Flags().StringVar(&period, "period", "month", `Validity period: "month" or "year"`)

	return cmd
}

func runKeyCreate(period string) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	service := premium.NewService(repository.NewPremiumKeysRepository(db))
	key, err := service.GenerateKey(context.Background(), domain.KeyPeriod(period))
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}

	fmt.Println("Premium key created:")
	fmt.Println()
	fmt.Printf("  Key:     %s\n", key.Key)
	fmt.Printf("  Period:  %s\n", period)
	fmt.Printf("  Expires: %s\n", key.ExpiresAt.Format(time.RFC3339))
	return nil
}

// ---------- key list ----------

func newKeyListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all premium keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyList(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runKeyList(jsonOutput bool) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	service := premium.NewService(repository.NewPremiumKeysRepository(db))
	keys, err := service.ListKeys(context.Background())
	if err != nil {
		return fmt.Errorf("list keys: %w", err)
	}

	type keyRow struct {
		Key        string `json:"key"`
		Used       bool   `json:"used"`
		RedeemedBy string `json:"redeemed_by,omitempty"`
		Expires    string `json:"expires,omitempty"`
	}

	rows := make([]keyRow, len(keys))
	for i, k := range keys {
		row := keyRow{Key: k.Key, Used: k.Used}
		if k.RedeemedBy != nil {
			row.RedeemedBy = *k.RedeemedBy
		}
		if k.ExpiresAt != nil {
			row.Expires = k.ExpiresAt.Format(time.RFC3339)
		}
		rows[i] = row
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(rows) == 0 {
		fmt.Println("No premium keys. Use 'parlabotctl key create' to create one.")
		return nil
	}

	fmt.Printf("%-36s %-6s %-16s %-25s\n", "KEY", "USED", "REDEEMED BY", "EXPIRES")
	for _, k := range rows {
		used := "no"
		if k.Used {
			used = "yes"
		}
		fmt.Printf("%-36s %-6s %-16s %-25s\n", k.Key, used, k.RedeemedBy, k.Expires)
	}

	return nil
}

// ---------- key revoke ----------

func newKeyRevokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke <key>",
		Short: "Revoke a premium key",
		Long:  "Invalidate a key so it can never be redeemed. Nobody gains entitlement.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyRevoke(args[0])
		},
	}

	return cmd
}

func runKeyRevoke(rawKey string) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	service := premium.NewService(repository.NewPremiumKeysRepository(db))
	if err := service.Revoke(context.Background(), rawKey); err != nil {
		return fmt.Errorf("revoke key: %w", err)
	}

	fmt.Println("Key revoked.")
	return nil
}
