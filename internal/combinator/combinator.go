// Package combinator renders a grammar in parser-combinator notation: one
// symbol per rule whose Target is an expression built from or, seq,
// peekfor, not, opt, repeat, repeat1, any, string and charctor, with
// semantic actions spliced in as apply units.
package combinator

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/template"

	"github.com/imasahiro/peg/internal/charclass"
	"github.com/imasahiro/peg/internal/compiler"
	"github.com/imasahiro/peg/internal/grammar"
)

// Config holds the configuration for combinator output.
type Config struct {
	Version string
}

type rule struct {
	Name   string
	ID     int
	Target string
}

type unit struct {
	Name string
	Text string
}

var parserTemplate = template.Must(template.New("parser").Parse(
	`/* A recursive-descent parser generated by peg {{.Version}} */

{{range .Actions}}class YY{{.Name}} implements Transformer<T1, T2> {
	@Override
	public T2 apply(final T1 param) {
		{{.Text}}
	}
}
{{end}}class {{.Start}}Parser {
	public static Parser<Object> NewInstance() {
{{range .Rules}}SymbolParser<Object> {{.Name}} = symbol(null); /* {{.ID}} */
{{end}}
{{range .Rules}}{{if .Target}}{{.Name}}.Target = {{.Target}};
{{end}}{{end}}		return {{.Start}};
	}
}
`))

// Generate writes g in combinator notation. prog must come from compiling g;
// it supplies rule identifiers and the distinct action list.
func Generate(w io.Writer, g *grammar.Grammar, prog *compiler.Program, config Config) error {
	data := struct {
		Version string
		Start   string
		Actions []unit
		Rules   []rule
	}{
		Version: config.Version,
		Start:   prog.StartFragment().Rule,
	}

	for _, a := range prog.Actions {
		data.Actions = append(data.Actions, unit{Name: a.Name, Text: a.Text})
	}
	for _, f := range prog.Fragments {
		r := rule{Name: f.Rule, ID: f.ID}
		if f.Defined {
			target, err := expression(g, g.Rules[f.Index].Expression)
			if err != nil {
				return fmt.Errorf("rule '%s': %w", f.Rule, err)
			}
			r.Target = target
		}
		data.Rules = append(data.Rules, r)
	}

	return parserTemplate.Execute(w, data)
}

func expression(g *grammar.Grammar, n *grammar.Node) (string, error) {
	if n == nil {
		return "", fmt.Errorf("%w: missing operand", compiler.ErrInternal)
	}

	switch n.Kind {
	case grammar.KindDot:
		return "any", nil

	case grammar.KindName:
		r := g.Resolve(n)
		if r == nil {
			return "", fmt.Errorf("%w: name %s refers to rule %d outside the grammar", compiler.ErrInternal, n.Name, n.Rule)
		}
		return r.Name, nil

	case grammar.KindCharacter, grammar.KindString:
		return "string(" + strconv.Quote(n.Text) + ")", nil

	case grammar.KindClass:
		return `charctor("` + charclass.Compile(n.Text).Escaped() + `")`, nil

	case grammar.KindAction:
		return apply(nil, n), nil

	case grammar.KindPredicate:
		return "predicate:" + n.Text, nil

	case grammar.KindError:
		elem, err := expression(g, n.Element)
		if err != nil {
			return "", err
		}
		return "error(" + elem + ", " + strconv.Quote(n.Text) + ")", nil

	case grammar.KindAlternate:
		items, err := list(g, n.Children)
		if err != nil {
			return "", err
		}
		return "or(" + strings.Join(items, ", ") + ")", nil

	case grammar.KindSequence:
		var items []string
		for _, child := range n.Children {
			if child.Kind == grammar.KindAction {
				items = []string{apply(items, child)}
				continue
			}
			item, err := expression(g, child)
			if err != nil {
				return "", err
			}
			items = append(items, item)
		}
		return "seq(" + strings.Join(items, ", ") + ")", nil

	case grammar.KindPeekFor:
		return wrap(g, "peekfor", n.Element)
	case grammar.KindPeekNot:
		return wrap(g, "not", n.Element)
	case grammar.KindQuery:
		return wrap(g, "opt", n.Element)
	case grammar.KindStar:
		return wrap(g, "repeat", n.Element)
	case grammar.KindPlus:
		return wrap(g, "repeat1", n.Element)
	}
	return "", fmt.Errorf("%w: cannot render node kind %s", compiler.ErrInternal, n.Kind)
}

// apply wraps the sequence items matched so far into the action's unit.
func apply(items []string, action *grammar.Node) string {
	return fmt.Sprintf("apply(seq(%s), new YY%s())", strings.Join(items, ", "), action.Name)
}

func wrap(g *grammar.Grammar, fn string, elem *grammar.Node) (string, error) {
	inner, err := expression(g, elem)
	if err != nil {
		return "", err
	}
	return fn + "(" + inner + ")", nil
}

func list(g *grammar.Grammar, nodes []*grammar.Node) ([]string, error) {
	items := make([]string, 0, len(nodes))
	for _, n := range nodes {
		item, err := expression(g, n)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
