package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/eaburns/peggy/peg"
	"github.com/spf13/cobra"

	"github.com/imasahiro/peg/internal/interp"
	"github.com/imasahiro/peg/pkg/generator"
)

type matchParams struct {
	full bool
	tree bool
}

func newMatchCommand(root *rootParams) *cobra.Command {
	params := matchParams{}
	cmd := &cobra.Command{
		Use:   "match <grammar> [input [...]]",
		Short: "Match inputs against a grammar",
		Long: `Run the compiled matcher of a grammar over each input without
generating code. Without inputs, stdin is matched as one input.

The start rule matches a prefix of the input unless --full is given.
Actions return their partial result unchanged; predicates are not
available and fail the match with an error.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs := args[1:]
			if len(inputs) == 0 {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				inputs = []string{string(data)}
			}
			return runMatch(cmd, root, params, args[0], inputs)
		},
	}
	cmd.Flags().BoolVar(&params.full, "full", false, "require the whole input to match")
	cmd.Flags().BoolVar(&params.tree, "tree", false, "print the value tree of each match")
	return cmd
}

func runMatch(cmd *cobra.Command, root *rootParams, params matchParams, path string, inputs []string) error {
	g, opts, err := root.load(cmd, path)
	if err != nil {
		return err
	}
	prog, diags, err := generator.Compile(g, opts)
	printDiagnostics(cmd.ErrOrStderr(), diags)
	if err != nil {
		return err
	}
	in, err := interp.New(prog, interp.Config{})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var failed int
	for _, input := range inputs {
		match := in.Match
		if params.full {
			match = in.MatchFull
		}
		n, err := match(input)
		if err != nil {
			var merr *interp.MatchError
			if !errors.As(err, &merr) {
				return err
			}
			failed++
			fmt.Fprintf(out, "%q: no match: %v\n", input, err)
			continue
		}
		fmt.Fprintf(out, "%q: matched %d of %d bytes\n", input, len(n.Text), len(input))
		if params.tree {
			printTree(out, n, 1)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d input(s) did not match", failed, len(inputs))
	}
	return nil
}

func printTree(w io.Writer, n *peg.Node, depth int) {
	name := n.Name
	if name == "" {
		name = "-"
	}
	fmt.Fprintf(w, "%s%s %q\n", strings.Repeat("  ", depth), name, n.Text)
	for _, kid := range n.Kids {
		printTree(w, kid, depth+1)
	}
}
