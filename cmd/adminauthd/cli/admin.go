package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/MrEthical07/adminauth"
	"github.com/MrEthical07/adminauth/account"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
		Long:  "Provision admin accounts, clear lockouts and change account status in the configured account store.",
	}

	cmd.AddCommand(newAdminCreateCmd())
	cmd.AddCommand(newAdminUnlockCmd())
	cmd.AddCommand(newAdminStatusCmd("disable", "Deactivate an account and revoke its refresh tokens", "Disabled",
		(*adminauth.Engine).DisableAccount))
	cmd.AddCommand(newAdminStatusCmd("enable", "Reactivate a disabled account", "Enabled",
		(*adminauth.Engine).EnableAccount))

	return cmd
}

// ---------- admin create ----------

func newAdminCreateCmd() *cobra.Command {
	var (
		email    string
		password string
		name     string
		role     string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new admin account",
		Example: `  adminauthd admin create --email admin@example.com --name Admin
  adminauthd admin create --email root@example.com --role super-admin --password secret`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				var err error
				if password, err = promptPassword(cmd.ErrOrStderr()); err != nil {
					return err
				}
			}
			return runAdminCreate(cmd, adminauth.NewAccount{
				Name:     name,
				Email:    email,
				Password: password,
				Role:     account.Role(role),
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Admin email address (required)")
	cmd.Flags().StringVar(&password, "password", "", "Admin password (prompted if omitted)")
	cmd.Flags().StringVar(&name, "name", "", "Admin display name (required)")
	cmd.Flags().StringVar(&role, "role", string(account.RoleAdmin), "admin or super-admin")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func promptPassword(w io.Writer) (string, error) {
	fmt.Fprint(w, "Password: ")
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Fprintln(w)

	fmt.Fprint(w, "Confirm password: ")
	confirm, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("failed to read confirmation: %w", err)
	}
	fmt.Fprintln(w)

	if string(pw) != string(confirm) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(pw), nil
}

func runAdminCreate(cmd *cobra.Command, req adminauth.NewAccount) error {
	ctx := cmd.Context()
	engine, backend, err := buildEngine(ctx, newLogger())
	if err != nil {
		return err
	}
	defer backend.close(ctx)
	defer engine.Close()

	pub, err := engine.CreateAccount(ctx, req)
	if err != nil {
		return fmt.Errorf("create admin: %s", adminauth.Message(err))
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(pub)
}

// ---------- admin unlock ----------

func newAdminUnlockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlock <account-id>",
		Short: "Clear the lockout and failed attempts of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			engine, backend, err := buildEngine(ctx, newLogger())
			if err != nil {
				return err
			}
			defer backend.close(ctx)
			defer engine.Close()

			if err := engine.UnlockAccount(ctx, args[0]); err != nil {
				return fmt.Errorf("unlock %s: %s", args[0], adminauth.Message(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Unlocked %s\n", args[0])
			return nil
		},
	}
}

// ---------- admin disable / enable ----------

func newAdminStatusCmd(verb, short, done string, apply func(*adminauth.Engine, context.Context, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <account-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			engine, backend, err := buildEngine(ctx, newLogger())
			if err != nil {
				return err
			}
			defer backend.close(ctx)
			defer engine.Close()

			if err := apply(engine, ctx, args[0]); err != nil {
				return fmt.Errorf("%s %s: %s", verb, args[0], adminauth.Message(err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", done, args[0])
			return nil
		},
	}
}
