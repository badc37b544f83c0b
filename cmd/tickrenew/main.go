package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/tickrenew/internal/app"
	"github.com/MrSnakeDoc/tickrenew/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatalf("❌ tickrenew failed: %v", err)
	}
}

func newRootCmd() *cobra.Command {
	var opts app.Options

	root := &cobra.Command{
		Use:           "tickrenew",
		Short:         "Renew a Tickhosting free server once and report the outcome",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(opts)
			if err != nil {
				return err
			}
			return a.Run()
		},
	}

	root.Flags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	root.Flags().StringVar(&opts.ProfileFile, "profile", "", "YAML site profile overlaid on the built-in Tickhosting profile")
	root.Flags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(newStatusCmd())
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	})

	return root
}

func newStatusCmd() *cobra.Command {
	var opts app.StatusOptions

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the run lease and the last outcome stored in Redis",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Status(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	cmd.Flags().StringVar(&opts.ProfileFile, "profile", "", "YAML site profile naming the profile to inspect")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&opts.All, "all", false, "show every profile recorded in Redis")
	return cmd
}
