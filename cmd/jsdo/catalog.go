package main

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newCatalogCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Work with data object catalogs",
	}
	cmd.AddCommand(newCatalogAddCmd(flags))
	return cmd
}

func newCatalogAddCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "add <uri>...",
		Short: "Load catalogs and list their resources",
		Long: `Load one or more catalogs through the authenticated session and list
the resources each declares. Relative URIs resolve against the service URI.

Examples:
  jsdo catalog add static/catalogs/CustomerService.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: withEnv(flags, func(cmd *cobra.Command, env *cliEnv, args []string) error {
			s, err := env.connectedSession(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = s.Disconnect(cmd.Context()) }()

			if err := s.AddCatalog(cmd.Context(), args); err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Catalog", "Resources"})
			for _, uri := range s.Catalogs() {
				cat, _ := s.Catalog(uri)
				t.AppendRow(table.Row{uri, strings.Join(cat.Resources, ", ")})
			}
			t.Render()
			return nil
		}),
	}
}
