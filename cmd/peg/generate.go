package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"github.com/imasahiro/peg/pkg/generator"
)

var errOutOfDate = errors.New("generated output is out of date")

type generateParams struct {
	output  string
	pkg     string
	parser  string
	backend string
	diff    bool
}

func newGenerateCommand(root *rootParams) *cobra.Command {
	params := generateParams{}
	cmd := &cobra.Command{
		Use:   "generate <grammar>",
		Short: "Generate a matcher from a grammar",
		Long: `Generate a matcher from a YAML grammar document.

The Go backend writes one method per rule; the combinator backend writes the
grammar in parser-combinator notation. Grammar warnings are printed to stderr
and never stop generation.

With --diff the output is compared against the file given by --output
instead of being written, and the command fails if they differ.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, root, params, args[0])
		},
	}

	cmd.Flags().StringVarP(&params.output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVarP(&params.pkg, "package", "p", "main", "package name of the generated Go file")
	cmd.Flags().StringVar(&params.parser, "parser", "Parser", "name of the generated parser type")
	cmd.Flags().StringVarP(&params.backend, "backend", "b", generator.BackendGo, "output notation (go, combinator)")
	cmd.Flags().BoolVar(&params.diff, "diff", false, "show the difference against --output instead of writing it")
	return cmd
}

func runGenerate(cmd *cobra.Command, root *rootParams, params generateParams, path string) error {
	if params.diff && params.output == "" {
		return fmt.Errorf("--diff requires --output")
	}

	g, opts, err := root.load(cmd, path)
	if err != nil {
		return err
	}
	opts.Backend = params.backend
	opts.Package = params.pkg
	opts.ParserName = params.parser

	var buf bytes.Buffer
	diags, err := generator.Generate(&buf, g, opts)
	printDiagnostics(cmd.ErrOrStderr(), diags)
	if err != nil {
		return err
	}

	switch {
	case params.diff:
		current, err := os.ReadFile(params.output)
		if err != nil && !os.IsNotExist(err) {
			return err
		}
		if d := lineDiff(string(current), buf.String()); d != "" {
			fmt.Fprint(cmd.OutOrStdout(), d)
			return errOutOfDate
		}
		return nil
	case params.output != "":
		return os.WriteFile(params.output, buf.Bytes(), 0o644)
	}
	_, err = cmd.OutOrStdout().Write(buf.Bytes())
	return err
}

// lineDiff returns the changed lines between before and after, prefixed with
// "- " and "+ ", or "" if they are equal.
func lineDiff(before, after string) string {
	if before == after {
		return ""
	}
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sb strings.Builder
	for _, d := range diffs {
		var prefix string
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		default:
			continue
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			sb.WriteString(prefix + line)
			if !strings.HasSuffix(line, "\n") {
				sb.WriteByte('\n')
			}
		}
	}
	return sb.String()
}
