package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/progress/jsdo/pkg/auth"
	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	ExitCodeSuccess      = 0
	ExitCodeError        = 1
	ExitCodeAuthRequired = 2
	ExitCodeAuthFailed   = 3
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	profile  string
	service  string
	model    string
	username string
	password string
	token    string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "jsdo",
		Short: "Authenticate against a JSDO backend and read its data",
		Long: `jsdo logs in to a Progress Data Object service using one of the
anonymous, basic, bearer, form or sso authentication models.

Logged-in state is kept in a local credential store so anonymous and sso
sessions survive between invocations. Basic, bearer and form credentials are
never written to disk; pass them with --username/--password or --token on
each call.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(`{{printf "jsdo version %s\n" .Version}}`)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.profile, "profile", "", "YAML profile (default $JSDO_PROFILE)")
	pf.StringVar(&flags.service, "service", "", "service URI (default $JSDO_SERVICE_URI)")
	pf.StringVar(&flags.model, "model", "", "authentication model (default $JSDO_AUTH_MODEL or anonymous)")
	pf.StringVarP(&flags.username, "username", "u", os.Getenv("JSDO_USERNAME"), "user name for basic, form and sso")
	pf.StringVarP(&flags.password, "password", "p", os.Getenv("JSDO_PASSWORD"), "password for basic, form and sso")
	pf.StringVar(&flags.token, "token", os.Getenv("JSDO_TOKEN"), "token for the bearer model")

	root.AddCommand(
		newLoginCmd(flags),
		newLogoutCmd(flags),
		newRefreshCmd(flags),
		newStatusCmd(flags),
		newCatalogCmd(flags),
		newGetCmd(flags),
	)
	return root
}

// execute runs the CLI with args and returns the process exit code.
func execute(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
		return exitCode(err)
	}
	return ExitCodeSuccess
}

// exitCode maps auth error kinds to semantic exit codes for scripting.
func exitCode(err error) int {
	switch {
	case errors.Is(err, auth.ErrNotAuthorized), errors.Is(err, auth.ErrNotLoggedIn):
		return ExitCodeAuthRequired
	case errors.Is(err, auth.ErrAuthenticationFailure):
		return ExitCodeAuthFailed
	default:
		return ExitCodeError
	}
}
