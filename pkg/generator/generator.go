// Package generator provides PEG grammar to matcher code generation.
// It analyzes a grammar, compiles it into a label/goto matcher program and
// serializes the program with one of the emission backends.
package generator

import (
	"fmt"
	"go/token"
	"io"

	"github.com/imasahiro/peg/internal/codegen"
	"github.com/imasahiro/peg/internal/combinator"
	"github.com/imasahiro/peg/internal/compiler"
	"github.com/imasahiro/peg/internal/grammar"
)

// Backends.
const (
	BackendGo         = "go"
	BackendCombinator = "combinator"
)

// Version is reported in the header of every generated file.
var Version = "0.1.0"

// Options configures the generation process.
type Options struct {
	// Backend selects the output notation: BackendGo (default) or BackendCombinator
	Backend string

	// Package is the Go package name for the generated code
	Package string

	// ParserName is the name of the generated parser type (default "Parser")
	ParserName string

	// Source names the grammar in the generated header comment
	Source string

	// Verbose logs analysis and generation decisions
	Verbose bool

	// Logger overrides the logger built from Verbose
	Logger *compiler.Logger
}

// Validate checks if the options are valid.
func (o Options) Validate() error {
	switch o.Backend {
	case "", BackendGo:
		if o.Package == "" {
			return fmt.Errorf("package cannot be empty")
		}
		if !token.IsIdentifier(o.Package) {
			return fmt.Errorf("package %q is not a Go identifier", o.Package)
		}
		if o.ParserName != "" && !token.IsIdentifier(o.ParserName) {
			return fmt.Errorf("parser name %q is not a Go identifier", o.ParserName)
		}
	case BackendCombinator:
	default:
		return fmt.Errorf("unknown backend %q", o.Backend)
	}
	return nil
}

// Compile analyzes g and returns its matcher program with the grammar
// warnings found on the way. Warnings never cause an error.
func Compile(g *grammar.Grammar, opts Options) (*compiler.Program, compiler.Diagnostics, error) {
	if err := g.Err(); err != nil {
		return nil, nil, fmt.Errorf("invalid grammar: %w", err)
	}
	c := compiler.New(compiler.Config{Verbose: opts.Verbose, Logger: opts.Logger})
	prog, err := c.Generate(g)
	if err != nil {
		return nil, c.Diagnostics(), fmt.Errorf("failed to compile grammar: %w", err)
	}
	return prog, c.Diagnostics(), nil
}

// Generate compiles g and writes the matcher to w in the notation opts
// selects. The diagnostics are returned even when generation fails.
func Generate(w io.Writer, g *grammar.Grammar, opts Options) (compiler.Diagnostics, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	prog, diags, err := Compile(g, opts)
	if err != nil {
		return diags, err
	}

	switch opts.Backend {
	case BackendCombinator:
		err = combinator.Generate(w, g, prog, combinator.Config{Version: Version})
	default:
		err = codegen.NewGenerator(prog, codegen.Config{
			Package: opts.Package,
			Parser:  opts.ParserName,
			Source:  opts.Source,
			Version: Version,
		}).Generate(w)
	}
	if err != nil {
		return diags, fmt.Errorf("failed to generate code: %w", err)
	}
	return diags, nil
}
