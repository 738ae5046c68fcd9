package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parlabot/parlabot/pkg/auth"
	"github.com/parlabot/parlabot/pkg/repository"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}

	cmd.AddCommand(newUserPromoteCmd())
	cmd.AddCommand(newUserDemoteCmd())
	cmd.AddCommand(newUserTOTPCmd())

	return cmd
}

func newUserPromoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "promote <username>",
		Short: "Grant the admin flag to an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetAdmin(args[0], true)
		},
	}
	return cmd
}

func newUserDemoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demote <username>",
		Short: "Remove the admin flag from an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetAdmin(args[0], false)
		},
	}
	return cmd
}

func runSetAdmin(username string, admin bool) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	users := repository.NewUsersRepository(db)
	if err := users.SetAdmin(context.Background(), username, admin); err != nil {
		return fmt.Errorf("update %s: %w", username, err)
	}

	if admin {
		fmt.Printf("%s is now an admin.\n", username)
	} else {
		fmt.Printf("%s is no longer an admin.\n", username)
	}
	return nil
}

func newUserTOTPCmd() *cobra.Command {
	var issuer string

	cmd := &cobra.Command{
		Use:   "set-totp <username>",
		Short: "Enroll an admin account in TOTP step-up",
		Long: `Generate a TOTP secret for an account and store it. Once set, admin
API endpoints require a valid X-TOTP-Code header from this account.
The enrollment URL is shown once.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetTOTP(args[0], issuer)
		},
	}

	cmd.Flags().StringVar(&issuer, "issuer", "parlabot", "Issuer name shown in the authenticator app")

	return cmd
}

func runSetTOTP(username, issuer string) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	key, err := auth.GenerateTOTPSecret(issuer, username)
	if err != nil {
		return fmt.Errorf("generate TOTP secret: %w", err)
	}

	users := repository.NewUsersRepository(db)
	if err := users.SetTOTPSecret(context.Background(), username, key.Secret()); err != nil {
		return fmt.Errorf("store TOTP secret: %w", err)
	}

	fmt.Printf("TOTP enabled for %s.\n", username)
	fmt.Println()
	fmt.Printf("  Secret: %s\n", key.Secret())
	fmt.Printf("  URL:    %s\n", key.URL())
	fmt.Println()
	fmt.Println("  Scan the URL with an authenticator app. It cannot be shown again.")
	return nil
}
