package main

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
)

func newGetCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "get <path>",
		Short: "GET a path below the service URI and print the body",
		Long: `Send an authorized GET for a path below the service URI and write the
response body to stdout.

Examples:
  jsdo get rest/Customer`,
		Args: cobra.ExactArgs(1),
		RunE: withEnv(flags, func(cmd *cobra.Command, env *cliEnv, args []string) error {
			ctx := cmd.Context()

			s, err := env.connectedSession(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = s.Disconnect(ctx) }()

			target := s.ServiceURI() + "/" + strings.TrimPrefix(args[0], "/")
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
			if err != nil {
				return err
			}

			resp, err := s.Do(ctx, req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if _, err := io.Copy(cmd.OutOrStdout(), resp.Body); err != nil {
				return err
			}
			if resp.StatusCode >= 300 {
				return fmt.Errorf("GET %s: %s", target, resp.Status)
			}
			return nil
		}),
	}
}
