package grammar

import (
	"errors"
	"fmt"
)

// Flags records the binder and analyzer state of a rule.
type Flags uint8

const (
	// Used is set when a Name reachable from the start rule refers to the rule.
	Used Flags = 1 << iota
	// Reached is set while consumption analysis is inside the rule.
	Reached
)

// Rule is a named production. Expression is nil when the rule was
// referenced but never defined.
type Rule struct {
	Name       string
	Expression *Node
	Flags      Flags
	ID         int
	Index      int
}

// Defined reports whether the rule has an expression.
func (r *Rule) Defined() bool { return r.Expression != nil }

// Has reports whether every flag in f is set.
func (r *Rule) Has(f Flags) bool { return r.Flags&f == f }

func (r *Rule) String() string { return r.Name }

// Grammar is the arena of rules plus the list of distinct actions. Name
// nodes address rules by their index in Rules.
type Grammar struct {
	Rules   []*Rule
	Actions []*Node
	Start   int

	byName  map[string]int
	actions map[string]*Node
	errs    []error
}

// New returns an empty grammar with no start rule.
func New() *Grammar {
	return &Grammar{
		Start:   -1,
		byName:  make(map[string]int),
		actions: make(map[string]*Node),
	}
}

// lookup returns the rule called name, appending an undefined record to
// the rule list on first mention.
func (g *Grammar) lookup(name string) *Rule {
	if i, ok := g.byName[name]; ok {
		return g.Rules[i]
	}
	r := &Rule{Name: name, Index: len(g.Rules)}
	g.Rules = append(g.Rules, r)
	g.byName[name] = r.Index
	return r
}

// Define attaches expr to the rule called name and binds the Name nodes
// under expr. Rules enter the rule list in order of first mention, the
// defined name ahead of the names its body refers to, the way a grammar
// text reads. The first defined rule becomes the start rule unless SetStart
// says otherwise.
func (g *Grammar) Define(name string, expr *Node) *Rule {
	r := g.lookup(name)
	if r.Expression != nil {
		g.errs = append(g.errs, fmt.Errorf("rule '%s' defined twice", name))
		return r
	}
	g.bind(expr)
	r.Expression = expr
	if g.Start < 0 {
		g.Start = r.Index
	}
	return r
}

// Ref returns a Name node for the rule called name. The node is bound,
// and an undefined rule record created, when Define receives an expression
// holding it.
func (g *Grammar) Ref(name string) *Node {
	return &Node{Kind: KindName, Name: name, Rule: -1}
}

func (g *Grammar) bind(expr *Node) {
	Walk(expr, func(n *Node) {
		if n.Kind == KindName && n.Rule < 0 {
			n.Rule = g.lookup(n.Name).Index
		}
	})
}

// Action returns an Action node. Every distinct action name is linked into
// the action list once; later uses of the same name share that entry.
func (g *Grammar) Action(name, text string) *Node {
	n := &Node{Kind: KindAction, Name: name, Text: text}
	if first, ok := g.actions[name]; ok {
		if first.Text != text {
			g.errs = append(g.errs, fmt.Errorf("action '%s' has conflicting bodies", name))
		}
		return n
	}
	g.actions[name] = n
	g.Actions = append(g.Actions, n)
	return n
}

// SetStart designates the start rule.
func (g *Grammar) SetStart(name string) {
	g.Start = g.lookup(name).Index
}

// StartRule returns the designated start rule, or nil if none.
func (g *Grammar) StartRule() *Rule {
	if g.Start < 0 || g.Start >= len(g.Rules) {
		return nil
	}
	return g.Rules[g.Start]
}

// Rule returns the rule called name.
func (g *Grammar) Rule(name string) (*Rule, bool) {
	i, ok := g.byName[name]
	if !ok {
		return nil, false
	}
	return g.Rules[i], true
}

// Resolve returns the rule a Name node refers to. A node not yet bound by
// Define resolves by name.
func (g *Grammar) Resolve(n *Node) *Rule {
	if n.Rule < 0 {
		r, _ := g.Rule(n.Name)
		return r
	}
	if n.Rule >= len(g.Rules) {
		return nil
	}
	return g.Rules[n.Rule]
}

// Names returns the rule names in rule-list order.
func (g *Grammar) Names() []string {
	names := make([]string, len(g.Rules))
	for i, r := range g.Rules {
		names[i] = r.Name
	}
	return names
}

// Err returns the construction errors recorded so far.
func (g *Grammar) Err() error {
	return errors.Join(g.errs...)
}
