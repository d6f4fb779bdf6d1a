package compiler

import (
	"fmt"

	"github.com/imasahiro/peg/internal/charclass"
	"github.com/imasahiro/peg/internal/grammar"
)

// generateRule emits the fragment of one rule. An undefined rule still gets
// a fragment that always fails, so references to it stay resolvable.
func (c *Compiler) generateRule(r *grammar.Rule) (*Fragment, error) {
	f := &Fragment{
		Rule:     r.Name,
		Index:    r.Index,
		ID:       r.ID,
		Defined:  r.Defined(),
		Consumes: c.consumes[r.Index],
	}
	c.frag = f
	if !r.Defined() {
		c.emit(Inst{Op: OpFail, Text: r.Name})
		return f, nil
	}

	// Query and Star never fail, so their rules need no failure path.
	kind := r.Expression.Kind
	f.Safe = kind == grammar.KindQuery || kind == grammar.KindStar

	ko := c.label()
	f.Entry = c.slot()
	c.emit(Inst{Op: OpSave, Slot: f.Entry})
	if err := c.generateNode(r.Expression, ko, f.Entry); err != nil {
		return nil, err
	}
	c.emit(Inst{Op: OpCollect, Slot: f.Entry, Text: r.Name})
	c.emit(Inst{Op: OpSucceed})
	if !f.Safe {
		c.place(ko)
		c.emit(Inst{Op: OpRestore, Slot: f.Entry})
		c.emit(Inst{Op: OpFail, Text: r.Name})
	}
	return f, nil
}

// generateNode emits the code matching n. Control reaches ko when n fails;
// otherwise it falls through with n's value pushed. mark is the innermost
// enclosing save point: actions, predicates and recovery see the values
// pushed since mark as their partial result.
func (c *Compiler) generateNode(n *grammar.Node, ko Label, mark Slot) error {
	if n == nil {
		return fmt.Errorf("%w: missing operand", ErrInternal)
	}

	switch n.Kind {
	case grammar.KindDot:
		c.emit(Inst{Op: OpAny, Label: ko, Node: n.ID})

	case grammar.KindName:
		c.emit(Inst{Op: OpCall, Rule: n.Rule, Label: ko, Text: n.Name})

	case grammar.KindCharacter, grammar.KindString:
		c.emit(Inst{Op: OpString, Text: n.Text, Label: ko, Node: n.ID})

	case grammar.KindClass:
		c.emit(Inst{Op: OpClass, Index: c.class(n.Text), Label: ko, Node: n.ID})

	case grammar.KindAction:
		c.emit(Inst{Op: OpAction, Index: c.action(n), Slot: mark, Node: n.ID})

	case grammar.KindPredicate:
		c.emit(Inst{Op: OpPredicate, Text: n.Text, Slot: mark, Label: ko, Node: n.ID})

	case grammar.KindError:
		onErr, ok := c.label(), c.label()
		if err := c.generateNode(n.Element, onErr, mark); err != nil {
			return err
		}
		c.jump(ok)
		c.place(onErr)
		c.emit(Inst{Op: OpRecover, Text: n.Text, Slot: mark, Node: n.ID})
		c.jump(ko)
		c.place(ok)

	case grammar.KindAlternate:
		// No choices: fail without a save point nothing would restore.
		if len(n.Children) == 0 {
			c.jump(ko)
			break
		}
		s, ok := c.slot(), c.label()
		c.emit(Inst{Op: OpSave, Slot: s, Node: n.ID})
		for _, child := range n.Children {
			next := c.label()
			if err := c.generateNode(child, next, s); err != nil {
				return err
			}
			c.jump(ok)
			c.place(next)
			c.emit(Inst{Op: OpRestore, Slot: s, Node: n.ID})
		}
		c.jump(ko)
		c.place(ok)

	case grammar.KindSequence:
		m := c.slot()
		c.emit(Inst{Op: OpSave, Slot: m, Node: n.ID})
		for _, child := range n.Children {
			if err := c.generateNode(child, ko, m); err != nil {
				return err
			}
		}
		c.emit(Inst{Op: OpCollect, Slot: m, Node: n.ID})

	case grammar.KindPeekFor:
		s, fail, ok := c.slot(), c.label(), c.label()
		c.emit(Inst{Op: OpSave, Slot: s, Node: n.ID})
		if err := c.generateNode(n.Element, fail, s); err != nil {
			return err
		}
		c.emit(Inst{Op: OpRestore, Slot: s, Node: n.ID})
		c.jump(ok)
		c.place(fail)
		c.emit(Inst{Op: OpRestore, Slot: s, Node: n.ID})
		c.jump(ko)
		c.place(ok)

	case grammar.KindPeekNot:
		s, miss := c.slot(), c.label()
		c.emit(Inst{Op: OpSave, Slot: s, Node: n.ID})
		if err := c.generateNode(n.Element, miss, s); err != nil {
			return err
		}
		c.emit(Inst{Op: OpRestore, Slot: s, Node: n.ID})
		c.jump(ko)
		c.place(miss)
		c.emit(Inst{Op: OpRestore, Slot: s, Node: n.ID})

	case grammar.KindQuery:
		s, miss, done := c.slot(), c.label(), c.label()
		c.emit(Inst{Op: OpSave, Slot: s, Node: n.ID})
		if err := c.generateNode(n.Element, miss, s); err != nil {
			return err
		}
		c.jump(done)
		c.place(miss)
		c.emit(Inst{Op: OpRestore, Slot: s, Node: n.ID})
		c.emit(Inst{Op: OpEmpty, Node: n.ID})
		c.place(done)

	case grammar.KindStar:
		m := c.slot()
		c.emit(Inst{Op: OpSave, Slot: m, Node: n.ID})
		return c.repeat(n, m)

	case grammar.KindPlus:
		m := c.slot()
		c.emit(Inst{Op: OpSave, Slot: m, Node: n.ID})
		if err := c.generateNode(n.Element, ko, m); err != nil {
			return err
		}
		return c.repeat(n, m)

	case grammar.KindRule:
		return fmt.Errorf("%w: rule '%s' nested inside an expression", ErrInternal, n.Name)

	default:
		return fmt.Errorf("%w: cannot generate node kind %s", ErrInternal, n.Kind)
	}
	return nil
}

// repeat emits the zero-or-more loop shared by Star and Plus. Every
// successful iteration leaves its value above m; the failing one is undone
// and the values are collected into one node. An element that may succeed
// without consuming ends the loop instead of spinning.
func (c *Compiler) repeat(n *grammar.Node, m Slot) error {
	again, out, s := c.label(), c.label(), c.slot()
	c.place(again)
	c.emit(Inst{Op: OpSave, Slot: s, Node: n.ID})
	if err := c.generateNode(n.Element, out, s); err != nil {
		return err
	}
	consumes, err := c.analyzer.node(n.Element)
	if err != nil {
		return err
	}
	if !consumes {
		c.emit(Inst{Op: OpProgress, Slot: s, Label: out, Node: n.ID})
	}
	c.jump(again)
	c.place(out)
	c.emit(Inst{Op: OpRestore, Slot: s, Node: n.ID})
	c.emit(Inst{Op: OpCollect, Slot: m, Node: n.ID})
	return nil
}

// class returns the table index of the class spec compiles to. Specs with
// the same canonical form share one entry.
func (c *Compiler) class(spec string) int {
	set := charclass.Compile(spec)
	key := set.Escaped()
	if i, ok := c.classes[key]; ok {
		return i
	}
	i := len(c.program.Classes)
	c.program.Classes = append(c.program.Classes, ClassDecl{Spec: key, Set: set})
	c.classes[key] = i
	c.logger.Log("class [%s] compiled to [%s]", spec, key)
	return i
}

func (c *Compiler) emit(in Inst) {
	c.frag.Code = append(c.frag.Code, in)
}

func (c *Compiler) label() Label {
	return Label(c.nextID())
}

func (c *Compiler) slot() Slot {
	s := Slot(c.nextID())
	c.frag.Slots = append(c.frag.Slots, s)
	return s
}

func (c *Compiler) place(l Label) {
	c.emit(Inst{Op: OpLabel, Label: l})
}

func (c *Compiler) jump(l Label) {
	c.emit(Inst{Op: OpJump, Label: l})
}
