package main

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"tracklist/internal/media"
	"tracklist/internal/site"
)

func newAccountsCommand(ctx *commandContext) *cobra.Command {
	accountsCmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage site accounts",
	}

	accountsCmd.AddCommand(newAccountsListCommand(ctx))
	accountsCmd.AddCommand(newAccountsAddCommand(ctx))
	accountsCmd.AddCommand(newAccountsDefaultCommand(ctx))
	accountsCmd.AddCommand(newAccountsDeleteCommand(ctx))

	return accountsCmd
}

func newAccountsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, reg, err := ctx.accounts()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			keys := reg.Keys()
			if len(keys) == 0 {
				fmt.Fprintln(out, "No accounts; add one with `tracklist accounts add <username> <site>`")
				return nil
			}
			rows := make([][]string, 0, len(keys))
			for _, key := range keys {
				acct := reg.Accounts[key]
				marker := ""
				if key == reg.Default {
					marker = "*"
				}
				rows = append(rows, []string{marker, key, acct.Username, acct.Site})
			}
			fmt.Fprintln(out, renderTable(
				[]column{col(""), numCol("Key"), col("Username"), col("Site")},
				rows,
			))
			return nil
		},
	}
}

func newAccountsAddCommand(ctx *commandContext) *cobra.Command {
	var password string
	var makeDefault bool
	var extras map[string]string

	cmd := &cobra.Command{
		Use:   "add <username> <site>",
		Short: "Register an account",
		Long:  "Register an account. The password may also come from TRACKLIST_PASSWORD.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			siteID := strings.TrimSpace(args[1])
			if known := site.Registered(); !slices.Contains(known, siteID) {
				return fmt.Errorf("unknown site %q (available: %s)", siteID, strings.Join(known, ", "))
			}
			if password == "" {
				password = os.Getenv("TRACKLIST_PASSWORD")
			}
			_, reg, err := ctx.accounts()
			if err != nil {
				return err
			}
			key, err := reg.Add(media.Account{
				Username: args[0],
				Password: password,
				Site:     siteID,
				Extras:   extras,
			})
			if err != nil {
				return err
			}
			if makeDefault {
				if err := reg.SetDefault(key); err != nil {
					return err
				}
			}
			if err := reg.Save(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderStatusLine(statusOK, fmt.Sprintf("Added account %s as %s", strings.TrimSpace(args[0])+"."+siteID, key), shouldColorize(out)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password")
	cmd.Flags().BoolVar(&makeDefault, "default", false, "Make this the default account")
	cmd.Flags().StringToStringVar(&extras, "extra", nil, "Site specific settings as key=value")
	return cmd
}

func newAccountsDefaultCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "default <key>",
		Short: "Set the default account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, reg, err := ctx.accounts()
			if err != nil {
				return err
			}
			if err := reg.SetDefault(strings.TrimSpace(args[0])); err != nil {
				return err
			}
			if err := reg.Save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Default account is now %s\n", reg.Default)
			return nil
		},
	}
}

func newAccountsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "Forget an account; its data directory is kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, reg, err := ctx.accounts()
			if err != nil {
				return err
			}
			key := strings.TrimSpace(args[0])
			if err := reg.Delete(key); err != nil {
				return err
			}
			if err := reg.Save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted account %s\n", key)
			return nil
		},
	}
}
