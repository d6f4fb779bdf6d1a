package main

import (
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/imasahiro/peg/internal/compiler"
	"github.com/imasahiro/peg/internal/grammar"
	"github.com/imasahiro/peg/pkg/generator"
)

func newRulesCommand(root *rootParams) *cobra.Command {
	var listing bool
	cmd := &cobra.Command{
		Use:   "rules <grammar>",
		Short: "Show the analysis of every rule",
		Long: `Show one row per rule with its identifier, whether it is defined and
reachable from the start rule, whether it always consumes input, and the
size of its generated matcher. With --listing print the generated
instructions instead; instructions emitted for a grammar node end with
the node's id.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, opts, err := root.load(cmd, args[0])
			if err != nil {
				return err
			}
			prog, diags, err := generator.Compile(g, opts)
			printDiagnostics(cmd.ErrOrStderr(), diags)
			if err != nil {
				return err
			}
			if listing {
				_, err := io.WriteString(cmd.OutOrStdout(), prog.String())
				return err
			}
			renderRules(cmd.OutOrStdout(), g, prog)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&listing, "listing", "l", false, "print the instruction listing")
	return cmd
}

func renderRules(w io.Writer, g *grammar.Grammar, prog *compiler.Program) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Rule", "ID", "Defined", "Used", "Consumes", "Safe", "Instructions"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetRowLine(false)

	for _, f := range prog.Fragments {
		name := f.Rule
		if f.Index == prog.Start {
			name += " (start)"
		}
		table.Append([]string{
			name,
			strconv.Itoa(f.ID),
			yesNo(f.Defined),
			yesNo(g.Rules[f.Index].Has(grammar.Used)),
			yesNo(f.Consumes),
			yesNo(f.Safe),
			strconv.Itoa(len(f.Code)),
		})
	}
	table.Render()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
