package main

import (
	"github.com/spf13/cobra"

	"tracklist/internal/engine"
	_ "tracklist/internal/site/local"
)

func newRootCommand() *cobra.Command {
	return buildRootCommand(engine.Options{})
}

// buildRootCommand wires the command tree; opts seeds every engine the
// commands open.
func buildRootCommand(opts engine.Options) *cobra.Command {
	var configFlag string
	var accountFlag string
	var mediatypeFlag string

	ctx := newCommandContext(&configFlag, &accountFlag, &mediatypeFlag)
	ctx.engineOptions = opts

	rootCmd := &cobra.Command{
		Use:           "tracklist",
		Short:         "Keep a media list in sync with a tracking site",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVarP(&accountFlag, "account", "a", "", "Account key (defaults to the registry default)")
	rootCmd.PersistentFlags().StringVarP(&mediatypeFlag, "mediatype", "m", "", "Mediatype (defaults to the last one used)")

	for _, cmd := range newListCommands(ctx) {
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range newEditCommands(ctx) {
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range newSyncCommands(ctx) {
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range newLibraryCommands(ctx) {
		rootCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(newTrackCommand(ctx))
	rootCmd.AddCommand(newDoctorCommand(ctx))
	rootCmd.AddCommand(newLogsCommand(ctx))
	rootCmd.AddCommand(newTestNotifyCommand(ctx))
	rootCmd.AddCommand(newAccountsCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
