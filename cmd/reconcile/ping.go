package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPingCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the configured sink is reachable.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, components, _, err := root.setup(cmd, nil)
			if err != nil {
				return err
			}
			defer closeComponents(components)

			if err := components.Runs.PingSink(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sink %s: ok\n", components.Runs.SinkName())
			return nil
		},
	}
}
