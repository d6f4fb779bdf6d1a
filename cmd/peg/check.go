package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imasahiro/peg/pkg/generator"
)

func newCheckCommand(root *rootParams) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "check <grammar> [grammar [...]]",
		Short: "Check grammars for problems",
		Long: `Check grammars for undefined rules, unused rules and left recursion.

Warnings are printed to stderr. With --strict any warning fails the command.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var warnings int
			for _, path := range args {
				g, opts, err := root.load(cmd, path)
				if err != nil {
					return err
				}
				_, diags, err := generator.Compile(g, opts)
				for _, d := range diags {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: warning: %s\n", path, d)
				}
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				warnings += len(diags)
			}
			if strict && warnings > 0 {
				return fmt.Errorf("%d warning(s) in strict mode", warnings)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&strict, "strict", "S", false, "treat warnings as errors")
	return cmd
}
