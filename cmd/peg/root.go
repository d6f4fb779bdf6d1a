package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/imasahiro/peg/internal/compiler"
	"github.com/imasahiro/peg/internal/grammar"
	"github.com/imasahiro/peg/pkg/generator"
)

const (
	logFormatText = "text"
	logFormatJSON = "json"
)

type rootParams struct {
	logLevel  string
	logFormat string
	verbose   bool
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	params := &rootParams{}
	root := &cobra.Command{
		Use:           "peg",
		Short:         "PEG matcher generator",
		Long:          "Compile PEG grammars into backtracking label/goto matchers.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return checkEnvironmentVariables(cmd)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&params.logLevel, "log-level", "info", "set log level (debug, info, warn, error)")
	flags.StringVar(&params.logFormat, "log-format", logFormatText, "set log format (text, json)")
	flags.BoolVarP(&params.verbose, "verbose", "v", false, "log analysis and generation decisions")

	root.AddCommand(
		newGenerateCommand(params),
		newCheckCommand(params),
		newRulesCommand(params),
		newMatchCommand(params),
		newVersionCommand(),
	)
	return root
}

// logger builds the compiler logger the flags describe. Verbose output is
// written at debug level, so --verbose lowers the level to debug.
func (p *rootParams) logger(w io.Writer) (*compiler.Logger, error) {
	level, err := logrus.ParseLevel(p.logLevel)
	if err != nil {
		return nil, err
	}
	if p.verbose && level < logrus.DebugLevel {
		level = logrus.DebugLevel
	}

	l := compiler.NewLogger(p.verbose)
	l.SetOutput(w)
	l.SetLevel(level)
	switch p.logFormat {
	case logFormatText:
	case logFormatJSON:
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q", p.logFormat)
	}
	return l, nil
}

// load reads the grammar at path and compiles it with the logging flags.
func (p *rootParams) load(cmd *cobra.Command, path string) (*grammar.Grammar, generator.Options, error) {
	logger, err := p.logger(cmd.ErrOrStderr())
	if err != nil {
		return nil, generator.Options{}, err
	}
	g, err := grammar.LoadFile(path)
	if err != nil {
		return nil, generator.Options{}, err
	}
	return g, generator.Options{Source: filepath.Base(path), Verbose: p.verbose, Logger: logger}, nil
}

func printDiagnostics(w io.Writer, diags compiler.Diagnostics) {
	for _, d := range diags {
		fmt.Fprintf(w, "warning: %s\n", d)
	}
}
