package main

import (
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

func newStatusCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored authentication state",
		Args:  cobra.NoArgs,
		RunE: withEnv(flags, func(cmd *cobra.Command, env *cliEnv, _ []string) error {
			ctx := cmd.Context()
			p := env.provider

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Property", "Value"})
			t.AppendRow(table.Row{"Service", p.URI()})
			t.AppendRow(table.Row{"Model", p.Model()})
			t.AppendRow(table.Row{"Logged in", yesNo(p.LoggedIn())})
			t.AppendRow(table.Row{"Client credentials", yesNo(p.HasClientCredentials(ctx))})

			if p.Model().SupportsRefresh() {
				t.AppendRow(table.Row{"Refresh token", yesNo(p.HasRefreshToken(ctx))})
				t.AppendRow(table.Row{"Automatic refresh", yesNo(p.AutomaticTokenRefresh())})
				if exp, ok := p.AccessTokenExpiration(ctx); ok {
					t.AppendRow(table.Row{"Refresh due", formatDue(exp, time.Now())})
				}
			}
			keys, err := env.storedKeys(ctx)
			if err != nil {
				return err
			}
			t.AppendRow(table.Row{"Stored entries", len(keys)})
			t.Render()
			return nil
		}),
	}
}

func yesNo(b bool) string {
	if b {
		return text.FgGreen.Sprint("yes")
	}
	return text.FgYellow.Sprint("no")
}

// formatDue renders exp relative to now.
func formatDue(exp, now time.Time) string {
	d := exp.Sub(now).Round(time.Second)
	if d <= 0 {
		return exp.Format(time.RFC3339) + " (" + text.FgYellow.Sprint("due") + ")"
	}
	return exp.Format(time.RFC3339) + " (in " + d.String() + ")"
}
