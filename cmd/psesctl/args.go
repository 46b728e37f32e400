package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/wagiedev/pses-client-go"
)

func newArgsCommand(flags *rootFlags, logOut io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "args",
		Short: "Print the worker command line without launching it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := flags.clientOptions(cmd, logOut)
			if err != nil {
				return err
			}

			client, err := pses.NewClient(opts...)
			if err != nil {
				return err
			}
			defer client.Close()

			spec, err := client.SpawnSpec(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, spec.Path)

			for _, arg := range spec.Args {
				fmt.Fprintln(out, arg)
			}

			return nil
		},
	}
}
