package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solutionspelichet/library-un/pkg/contracts"
)

func newVersionCmd() *cobra.Command {
	var full bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if full {
				fmt.Fprintln(cmd.OutOrStdout(), contracts.GetFullVersionString())
				return
			}
			fmt.Fprintln(cmd.OutOrStdout(), contracts.GetVersionString())
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "Include build time, commit and Go version")
	return cmd
}
