// Package compiler turns a bound PEG grammar into a Program: one flat
// label/goto instruction fragment per rule, plus the shared class and
// action tables the emission backends need.
package compiler

import (
	"errors"
	"fmt"

	"github.com/imasahiro/peg/internal/grammar"
)

// ErrNoStart is returned when the grammar names no start rule.
var ErrNoStart = errors.New("grammar has no start rule")

// Config holds the configuration for one generation pass.
type Config struct {
	Verbose bool    // Enable verbose logging of analysis decisions
	Logger  *Logger // Optional; overrides the logger built from Verbose
}

// Compiler generates matcher programs from grammars. A Compiler may be
// reused; every call to Generate starts from fresh state.
type Compiler struct {
	config   Config
	logger   *Logger
	grammar  *grammar.Grammar
	program  *Program
	analyzer *analyzer
	diags    Diagnostics
	consumes []bool         // per rule index, from the binder pre-pass
	classes  map[string]int // canonical class form -> index in program.Classes
	actions  map[string]int // action name -> index in program.Actions
	frag     *Fragment      // fragment under construction
	lastID   int
}

// New creates a new compiler instance.
func New(config Config) *Compiler {
	logger := config.Logger
	if logger == nil {
		logger = NewLogger(config.Verbose)
	}
	return &Compiler{
		config: config,
		logger: logger,
	}
}

// Generate binds g, analyzes it and emits one fragment per rule in rule
// list order. Grammar problems are collected as diagnostics and never stop
// the pass; only an IR the compiler cannot interpret returns an error,
// which wraps ErrInternal.
//
// Generate mutates rule flags and node IDs of g.
func (c *Compiler) Generate(g *grammar.Grammar) (*Program, error) {
	start := g.StartRule()
	if start == nil {
		return nil, ErrNoStart
	}
	c.reset(g)

	c.logger.Section("Binding")
	if err := c.bind(); err != nil {
		return nil, err
	}

	c.logger.Section("Generation")
	for _, r := range g.Rules {
		c.check(r)
		f, err := c.generateRule(r)
		if err != nil {
			return nil, fmt.Errorf("rule '%s': %w", r.Name, err)
		}
		c.logger.Log("rule %s: id=%d consumes=%v safe=%v slots=%d instructions=%d",
			f.Rule, f.ID, f.Consumes, f.Safe, len(f.Slots), len(f.Code))
		c.program.Fragments = append(c.program.Fragments, f)
	}
	return c.program, nil
}

// Diagnostics returns the warnings of the last Generate call in the order
// they were found: left recursion first, then per-rule checks.
func (c *Compiler) Diagnostics() Diagnostics {
	return c.diags
}

func (c *Compiler) reset(g *grammar.Grammar) {
	c.grammar = g
	c.program = &Program{Start: g.Start}
	c.diags = nil
	c.analyzer = newAnalyzer(g, c.logger, &c.diags)
	c.consumes = make([]bool, len(g.Rules))
	c.classes = make(map[string]int)
	c.actions = make(map[string]int)
	c.frag = nil
	c.lastID = 0
}

// check reports the per-rule grammar warnings.
func (c *Compiler) check(r *grammar.Rule) {
	var d Diagnostic
	switch {
	case !r.Defined():
		var defined []string
		for _, o := range c.grammar.Rules {
			if o.Defined() {
				defined = append(defined, o.Name)
			}
		}
		d = undefinedRule(r.Name, defined)
	case !r.Has(grammar.Used) && r.Index != c.grammar.Start:
		d = unusedRule(r.Name)
	default:
		return
	}
	c.diags = append(c.diags, d)
	c.logger.Diagnostic(d)
}

// nextID hands out the identifiers shared by rules, nodes, labels and
// slots. They are unique within one pass.
func (c *Compiler) nextID() int {
	c.lastID++
	return c.lastID
}
