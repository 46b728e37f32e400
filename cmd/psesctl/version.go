package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/wagiedev/pses-client-go"
)

func newVersionCommand(flags *rootFlags, logOut io.Writer) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Start a worker and print the PowerShell version hosting it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := flags.clientOptions(cmd, logOut)
			if err != nil {
				return err
			}

			ctx := cmd.Context()

			return pses.WithClient(ctx, func(client pses.Client) error {
				version, err := client.GetVersion(ctx)
				if err != nil {
					return fmt.Errorf("get version: %w", err)
				}

				out := cmd.OutOrStdout()

				if asJSON {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")

					return enc.Encode(version)
				}

				fmt.Fprintf(out, "PowerShell %s (%s, %s)\n", version.Version, version.Edition, version.Architecture)

				return nil
			}, opts...)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the version details as JSON")

	return cmd
}
