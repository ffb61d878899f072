package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// withEnv wraps a command body with environment setup and teardown.
func withEnv(flags *globalFlags, run func(cmd *cobra.Command, env *cliEnv, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		env, err := newCLIEnv(cmd, flags)
		if err != nil {
			return err
		}
		defer func() { _ = env.close() }()
		return run(cmd, env, args)
	}
}

func newLoginCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in to the service",
		Long: `Log in to the service with the configured authentication model.

Examples:
  jsdo login --service http://localhost:8080/App --model sso -u alice -p secret
  JSDO_TOKEN=tok-1 jsdo login --model bearer`,
		Args: cobra.NoArgs,
		RunE: withEnv(flags, func(cmd *cobra.Command, env *cliEnv, _ []string) error {
			if err := env.provider.Login(cmd.Context(), env.creds); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n",
				text.FgGreen.Sprint("Logged in to"), env.provider.URI(), env.model)
			return nil
		}),
	}
}

func newLogoutCmd(flags *globalFlags) *cobra.Command {
	var purge bool

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Log out and forget stored credentials",
		Args:  cobra.NoArgs,
		RunE: withEnv(flags, func(cmd *cobra.Command, env *cliEnv, _ []string) error {
			if err := env.provider.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged out of %s\n", env.provider.URI())

			if purge {
				n, err := env.purge(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d stored entries\n", n)
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&purge, "purge", false, "also remove any other stored keys for the service")
	return cmd
}

func newRefreshCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the sso refresh token for a new access token",
		Args:  cobra.NoArgs,
		RunE: withEnv(flags, func(cmd *cobra.Command, env *cliEnv, _ []string) error {
			if err := env.provider.Refresh(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text.FgGreen.Sprint("Access token refreshed"))
			return nil
		}),
	}
}
