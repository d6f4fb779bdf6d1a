package compiler

import (
	"fmt"

	"github.com/imasahiro/peg/internal/grammar"
)

// analyzer decides whether rules and operators are guaranteed to consume
// input on every successful match.
//
// Sequence is treated coarsely: it consumes as soon as any element does,
// whatever its position. Alternate and Sequence stop at the first child
// that settles the answer, so a left recursion hidden behind that child is
// not reported.
type analyzer struct {
	g        *grammar.Grammar
	logger   *Logger
	diags    *Diagnostics
	reported map[int]bool
}

func newAnalyzer(g *grammar.Grammar, logger *Logger, diags *Diagnostics) *analyzer {
	return &analyzer{
		g:        g,
		logger:   logger,
		diags:    diags,
		reported: make(map[int]bool),
	}
}

// rule analyzes r. Reaching r again while it is still under analysis is a
// left recursion; the cycle is reported once per rule and counts as not
// consuming.
func (a *analyzer) rule(r *grammar.Rule) (bool, error) {
	if r.Has(grammar.Reached) {
		if !a.reported[r.Index] {
			a.reported[r.Index] = true
			d := leftRecursion(r.Name)
			*a.diags = append(*a.diags, d)
			a.logger.Diagnostic(d)
		}
		return false, nil
	}
	if !r.Defined() {
		return false, nil
	}

	r.Flags |= grammar.Reached
	defer func() { r.Flags &^= grammar.Reached }()
	return a.node(r.Expression)
}

func (a *analyzer) node(n *grammar.Node) (bool, error) {
	if n == nil {
		return false, nil
	}

	switch n.Kind {
	case grammar.KindRule, grammar.KindName:
		r := a.g.Resolve(n)
		if r == nil {
			return false, fmt.Errorf("%w: %s node refers to rule %d outside the grammar", ErrInternal, n.Kind, n.Rule)
		}
		return a.rule(r)

	case grammar.KindDot, grammar.KindClass:
		return true, nil

	case grammar.KindCharacter, grammar.KindString:
		return len(n.Text) > 0, nil

	case grammar.KindAction, grammar.KindPredicate,
		grammar.KindPeekFor, grammar.KindPeekNot, grammar.KindQuery, grammar.KindStar:
		return false, nil

	case grammar.KindError, grammar.KindPlus:
		return a.node(n.Element)

	case grammar.KindAlternate:
		for _, child := range n.Children {
			ok, err := a.node(child)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil

	case grammar.KindSequence:
		for _, child := range n.Children {
			ok, err := a.node(child)
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	}

	return false, fmt.Errorf("%w: consumption analysis of node kind %s", ErrInternal, n.Kind)
}

// Consumes reports whether every successful match of n in g advances the
// input. Left recursion found on the way is returned as diagnostics.
func Consumes(g *grammar.Grammar, n *grammar.Node) (bool, Diagnostics, error) {
	var diags Diagnostics
	a := newAnalyzer(g, NewLogger(false), &diags)
	ok, err := a.node(n)
	return ok, diags, err
}
