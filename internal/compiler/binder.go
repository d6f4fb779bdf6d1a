package compiler

import (
	"github.com/imasahiro/peg/internal/grammar"
)

// bind prepares the grammar for generation: it clears stale flags, numbers
// every rule and non-Name node, marks the rules reachable from the start
// rule as Used, runs consumption analysis over every rule and builds the
// action dispatch table.
func (c *Compiler) bind() error {
	g := c.grammar

	for _, r := range g.Rules {
		r.Flags = 0
	}
	for _, a := range g.Actions {
		a.ID = 0
	}
	for _, r := range g.Rules {
		r.ID = c.nextID()
		grammar.Walk(r.Expression, func(n *grammar.Node) {
			if n.Kind != grammar.KindName {
				n.ID = c.nextID()
			}
		})
	}

	c.markUsed(g.StartRule())

	for _, r := range g.Rules {
		ok, err := c.analyzer.rule(r)
		if err != nil {
			return err
		}
		c.consumes[r.Index] = ok
		c.logger.Log("rule %s consumes input: %v", r.Name, ok)
	}

	for _, a := range g.Actions {
		c.action(a)
	}
	return nil
}

// markUsed flags every rule a Name reachable from start refers to.
func (c *Compiler) markUsed(start *grammar.Rule) {
	pending := []*grammar.Rule{start}
	for len(pending) > 0 {
		r := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		grammar.Walk(r.Expression, func(n *grammar.Node) {
			if n.Kind != grammar.KindName {
				return
			}
			target := c.grammar.Resolve(n)
			if target == nil || target.Has(grammar.Used) {
				return
			}
			target.Flags |= grammar.Used
			pending = append(pending, target)
		})
	}
}

// action returns the dispatch index of the action named by n, adding it to
// the table on first sight.
func (c *Compiler) action(n *grammar.Node) int {
	if i, ok := c.actions[n.Name]; ok {
		return i
	}
	if n.ID == 0 {
		n.ID = c.nextID()
	}
	i := len(c.program.Actions)
	c.program.Actions = append(c.program.Actions, ActionDecl{Name: n.Name, Text: n.Text, ID: n.ID})
	c.actions[n.Name] = i
	return i
}
