package grammar

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadError reports a malformed IR document.
type LoadError struct {
	Line int
	Msg  string
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return e.Msg
}

type document struct {
	Start string    `yaml:"start"`
	Rules []ruleDoc `yaml:"rules"`
}

type ruleDoc struct {
	Name string    `yaml:"name"`
	Expr yaml.Node `yaml:"expr"`
}

type actionDoc struct {
	Name string `yaml:"name"`
	Text string `yaml:"text"`
}

type errorDoc struct {
	Element yaml.Node `yaml:"element"`
	Text    string    `yaml:"text"`
}

// LoadFile reads an IR document from path.
func LoadFile(path string) (*Grammar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	g, err := Load(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// Load decodes a YAML IR document: a start rule name and a list of rules
// whose expressions are single-key operator mappings.
func Load(r io.Reader) (*Grammar, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &LoadError{Msg: "empty grammar document"}
		}
		return nil, fmt.Errorf("decode grammar: %w", err)
	}

	g := New()
	for _, rd := range doc.Rules {
		if rd.Name == "" {
			return nil, &LoadError{Line: rd.Expr.Line, Msg: "rule without a name"}
		}
		expr, err := g.decode(&rd.Expr)
		if err != nil {
			return nil, err
		}
		g.Define(rd.Name, expr)
	}
	if err := g.Err(); err != nil {
		return nil, err
	}
	if len(doc.Rules) == 0 {
		return nil, &LoadError{Msg: "grammar defines no rules"}
	}
	if doc.Start != "" {
		r, ok := g.Rule(doc.Start)
		if !ok || !r.Defined() {
			return nil, &LoadError{Msg: fmt.Sprintf("start rule '%s' is not defined", doc.Start)}
		}
		g.Start = r.Index
	}
	return g, nil
}

func (g *Grammar) decode(y *yaml.Node) (*Node, error) {
	if y.Kind != yaml.MappingNode || len(y.Content) != 2 {
		return nil, &LoadError{Line: y.Line, Msg: "expression must be a mapping with exactly one operator key"}
	}
	key, val := y.Content[0], y.Content[1]

	scalar := func() (string, error) {
		if val.Kind != yaml.ScalarNode {
			return "", &LoadError{Line: val.Line, Msg: fmt.Sprintf("%s expects a scalar", key.Value)}
		}
		return val.Value, nil
	}

	switch key.Value {
	case "dot":
		return Dot(), nil
	case "name":
		s, err := scalar()
		if err != nil {
			return nil, err
		}
		return g.Ref(s), nil
	case "char", "string", "class", "predicate":
		s, err := scalar()
		if err != nil {
			return nil, err
		}
		switch key.Value {
		case "char":
			return Char(s), nil
		case "string":
			return Str(s), nil
		case "class":
			return Class(s), nil
		}
		return Predicate(s), nil
	case "action":
		var ad actionDoc
		if err := val.Decode(&ad); err != nil {
			return nil, &LoadError{Line: val.Line, Msg: err.Error()}
		}
		if ad.Name == "" {
			return nil, &LoadError{Line: val.Line, Msg: "action without a name"}
		}
		return g.Action(ad.Name, ad.Text), nil
	case "error":
		var ed errorDoc
		if err := val.Decode(&ed); err != nil {
			return nil, &LoadError{Line: val.Line, Msg: err.Error()}
		}
		elem, err := g.decode(&ed.Element)
		if err != nil {
			return nil, err
		}
		return Error(elem, ed.Text), nil
	case "alt", "seq":
		if val.Kind != yaml.SequenceNode {
			return nil, &LoadError{Line: val.Line, Msg: fmt.Sprintf("%s expects a list", key.Value)}
		}
		children := make([]*Node, 0, len(val.Content))
		for _, c := range val.Content {
			child, err := g.decode(c)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		if key.Value == "alt" {
			return Alt(children...), nil
		}
		return Seq(children...), nil
	case "peekfor", "peeknot", "query", "star", "plus":
		elem, err := g.decode(val)
		if err != nil {
			return nil, err
		}
		switch key.Value {
		case "peekfor":
			return PeekFor(elem), nil
		case "peeknot":
			return PeekNot(elem), nil
		case "query":
			return Query(elem), nil
		case "star":
			return Star(elem), nil
		}
		return Plus(elem), nil
	}
	return nil, &LoadError{Line: key.Line, Msg: fmt.Sprintf("unknown operator %q", key.Value)}
}
