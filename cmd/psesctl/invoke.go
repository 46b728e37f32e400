package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wagiedev/pses-client-go"
)

func newInvokeCommand(flags *rootFlags, logOut io.Writer) *cobra.Command {
	var (
		params []string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "invoke COMMAND [COMMAND...]",
		Short: "Run a command pipeline in the worker",
		Long: `Run a command pipeline in the worker.

Each COMMAND is one pipeline stage. Parameters given with --param apply to
the last stage; a parameter without a value is passed as a switch.`,
		Example: `  psesctl invoke Get-Process Select-Object -p First=3
  psesctl invoke Get-ChildItem -p Path=/tmp -p Recurse`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, err := buildPipeline(args, params)
			if err != nil {
				return err
			}

			opts, err := flags.clientOptions(cmd, logOut)
			if err != nil {
				return err
			}

			ctx := cmd.Context()

			return pses.WithClient(ctx, func(client pses.Client) error {
				result, err := client.InvokeCommand(ctx, pipeline)
				if err != nil {
					return fmt.Errorf("invoke: %w", err)
				}

				return printResult(cmd, result, asJSON)
			}, opts...)
		},
	}

	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "parameter NAME=VALUE or switch NAME for the last command")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the output as JSON")

	return cmd
}

func buildPipeline(commands, params []string) (*pses.Pipeline, error) {
	pipeline := pses.NewPipeline()

	for _, text := range commands {
		pipeline.AddCommand(text)
	}

	for _, param := range params {
		name, value, err := parseParam(param)
		if err != nil {
			return nil, err
		}

		pipeline.AddParameter(name, value)
	}

	if err := pipeline.Err(); err != nil {
		return nil, err
	}

	return pipeline, nil
}

// parseParam splits NAME=VALUE. A bare NAME is a switch parameter.
func parseParam(s string) (string, any, error) {
	name, value, found := strings.Cut(s, "=")

	name = strings.TrimPrefix(strings.TrimSpace(name), "-")
	if name == "" {
		return "", nil, fmt.Errorf("invalid parameter %q: missing name", s)
	}

	if !found {
		return name, true, nil
	}

	return name, value, nil
}

func printResult(cmd *cobra.Command, result *pses.InvokeResult, asJSON bool) error {
	out := cmd.OutOrStdout()

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")

		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		for _, item := range result.Output {
			fmt.Fprintln(out, formatOutput(item))
		}
	}

	for _, msg := range result.Errors {
		fmt.Fprintln(cmd.ErrOrStderr(), msg)
	}

	if result.HadErrors() {
		return fmt.Errorf("pipeline reported %d error(s)", len(result.Errors))
	}

	return nil
}

func formatOutput(item any) string {
	switch v := item.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}

		return string(data)
	}
}
