// Package interp executes a compiled matcher Program directly, without
// generating code. Semantic actions, predicates and recovery bodies are
// bound to Go functions by name.
package interp

import (
	"errors"
	"fmt"
	"sync"

	"github.com/eaburns/peggy/peg"
	"github.com/imasahiro/peg/internal/compiler"
)

// DefaultMaxDepth bounds nested rule calls when Config.MaxDepth is zero.
const DefaultMaxDepth = 10000

var (
	// ErrUnbound is returned when a predicate has no Go function bound to it.
	ErrUnbound = errors.New("unbound predicate")
	// ErrTooDeep is returned when rule calls nest deeper than MaxDepth.
	ErrTooDeep = errors.New("rule calls nested too deeply")
)

// Action computes the value of an action from the partial result of the
// enclosing sequence.
type Action func(yy *peg.Node) *peg.Node

// Predicate decides a semantic predicate over the partial result.
type Predicate func(yy *peg.Node) bool

// Config binds host behaviour to a program.
type Config struct {
	Actions    map[string]Action    // by action name; unbound actions pass yy through
	Predicates map[string]Predicate // by predicate text
	Recover    func(text string, yy *peg.Node)
	MaxDepth   int
}

// Interpreter runs one program. It is safe for concurrent use once
// created; every Match call has its own state.
type Interpreter struct {
	prog   *compiler.Program
	config Config
	frames []frame
	pool   sync.Pool // *machine, reused across Match calls
}

// frame is the resolved layout of one fragment.
type frame struct {
	labels map[compiler.Label]int
	slots  map[compiler.Slot]int
}

// New resolves every label and slot of prog.
func New(prog *compiler.Program, config Config) (*Interpreter, error) {
	if config.MaxDepth <= 0 {
		config.MaxDepth = DefaultMaxDepth
	}
	in := &Interpreter{prog: prog, config: config, frames: make([]frame, len(prog.Fragments))}
	for i, f := range prog.Fragments {
		fr := frame{labels: make(map[compiler.Label]int), slots: make(map[compiler.Slot]int)}
		for pc, inst := range f.Code {
			switch {
			case inst.Op == compiler.OpLabel:
				fr.labels[inst.Label] = pc
			case inst.Op == compiler.OpClass && (inst.Index < 0 || inst.Index >= len(prog.Classes)),
				inst.Op == compiler.OpAction && (inst.Index < 0 || inst.Index >= len(prog.Actions)):
				return nil, fmt.Errorf("%w: rule '%s' refers to %s %d outside the program", compiler.ErrInternal, f.Rule, inst.Op, inst.Index)
			}
		}
		for l := range f.Targets() {
			if _, ok := fr.labels[l]; !ok {
				return nil, fmt.Errorf("%w: rule '%s' jumps to missing label L%d", compiler.ErrInternal, f.Rule, l)
			}
		}
		for j, s := range f.Slots {
			fr.slots[s] = j
		}
		in.frames[i] = fr
	}
	return in, nil
}

// Match runs the start rule against a prefix of input and returns its value.
func (in *Interpreter) Match(input string) (*peg.Node, error) {
	m := in.machine(input)
	defer in.release(m)
	ok, err := m.call(in.prog.Start)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, m.error()
	}
	return m.stack[len(m.stack)-1], nil
}

// MatchFull is Match but also fails unless the whole input was consumed.
func (in *Interpreter) MatchFull(input string) (*peg.Node, error) {
	m := in.machine(input)
	defer in.release(m)
	ok, err := m.call(in.prog.Start)
	if err != nil {
		return nil, err
	}
	if ok && m.pos == len(input) {
		return m.stack[len(m.stack)-1], nil
	}
	if ok {
		m.expect("end of input")
	}
	return nil, m.error()
}

func (in *Interpreter) machine(input string) *machine {
	m, _ := in.pool.Get().(*machine)
	if m == nil {
		m = &machine{in: in, active: make(map[call]bool)}
	}
	m.input = input
	m.pos, m.errPos, m.errRule, m.depth = 0, 0, "", 0
	m.stack, m.want = m.stack[:0], m.want[:0]
	return m
}

func (in *Interpreter) release(m *machine) {
	clear(m.stack)
	m.input = ""
	in.pool.Put(m)
}

type call struct {
	rule, pos int
}

type save struct {
	pos, depth int
}

type machine struct {
	in      *Interpreter
	input   string
	pos     int
	stack   []*peg.Node
	errPos  int
	errRule string
	want    []string
	active  map[call]bool
	depth   int
}

// call runs fragment rule. A rule entered again at the same position while
// it is still active fails instead of recursing forever.
func (m *machine) call(rule int) (bool, error) {
	prog := m.in.prog
	if rule < 0 || rule >= len(prog.Fragments) {
		return false, fmt.Errorf("%w: call of rule %d out of range", compiler.ErrInternal, rule)
	}
	f, fr := prog.Fragments[rule], m.in.frames[rule]

	key := call{rule: rule, pos: m.pos}
	if m.active[key] {
		return false, nil
	}
	if m.depth >= m.in.config.MaxDepth {
		return false, fmt.Errorf("%w: rule '%s' at offset %d", ErrTooDeep, f.Rule, m.pos)
	}
	m.active[key] = true
	m.depth++
	defer func() {
		delete(m.active, key)
		m.depth--
	}()

	saves := make([]save, len(f.Slots))
	for pc := 0; pc < len(f.Code); pc++ {
		inst := f.Code[pc]
		var s *save
		if j, ok := fr.slots[inst.Slot]; ok {
			s = &saves[j]
		} else if usesSlot(inst.Op) {
			return false, fmt.Errorf("%w: %s of unknown slot s%d in rule '%s'", compiler.ErrInternal, inst.Op, inst.Slot, f.Rule)
		}
		fail := false

		switch inst.Op {
		case compiler.OpLabel:
		case compiler.OpJump:
			fail = true
		case compiler.OpSave:
			s.pos, s.depth = m.pos, len(m.stack)
		case compiler.OpRestore:
			m.pos, m.stack = s.pos, m.stack[:s.depth]
		case compiler.OpProgress:
			fail = m.pos == s.pos
		case compiler.OpAny:
			fail = !m.matchDot()
		case compiler.OpString:
			fail = !m.matchString(inst.Text)
		case compiler.OpClass:
			fail = !m.matchClass(inst.Index)
		case compiler.OpCall:
			ok, err := m.call(inst.Rule)
			if err != nil {
				return false, err
			}
			fail = !ok
		case compiler.OpAction:
			m.act(inst.Index, *s)
		case compiler.OpPredicate:
			ok, err := m.test(inst.Text, *s)
			if err != nil {
				return false, err
			}
			fail = !ok
		case compiler.OpRecover:
			if m.in.config.Recover != nil {
				m.in.config.Recover(inst.Text, m.partial(*s))
			}
		case compiler.OpEmpty:
			m.stack = append(m.stack, &peg.Node{})
		case compiler.OpCollect:
			n := m.partial(*s)
			n.Name = inst.Text
			m.stack = append(m.stack[:s.depth], n)
		case compiler.OpSucceed:
			return true, nil
		case compiler.OpFail:
			m.fail(inst.Text)
			return false, nil
		default:
			return false, fmt.Errorf("%w: unknown instruction %s in rule '%s'", compiler.ErrInternal, inst.Op, f.Rule)
		}

		if fail {
			pc = fr.labels[inst.Label]
		}
	}
	return false, fmt.Errorf("%w: rule '%s' has no exit", compiler.ErrInternal, f.Rule)
}

func usesSlot(op compiler.Op) bool {
	switch op {
	case compiler.OpSave, compiler.OpRestore, compiler.OpProgress, compiler.OpAction,
		compiler.OpPredicate, compiler.OpRecover, compiler.OpCollect:
		return true
	}
	return false
}

func (m *machine) leaf(end int) {
	m.stack = append(m.stack, &peg.Node{Text: m.input[m.pos:end]})
	m.pos = end
}

func (m *machine) matchDot() bool {
	if m.pos < len(m.input) {
		m.leaf(m.pos + 1)
		return true
	}
	return m.expect("any character")
}

func (m *machine) matchString(s string) bool {
	if end := m.pos + len(s); end <= len(m.input) && m.input[m.pos:end] == s {
		m.leaf(end)
		return true
	}
	return m.expect(fmt.Sprintf("%q", s))
}

func (m *machine) matchClass(index int) bool {
	class := m.in.prog.Classes[index]
	if m.pos < len(m.input) && class.Set.Has(m.input[m.pos]) {
		m.leaf(m.pos + 1)
		return true
	}
	return m.expect("[" + class.Spec + "]")
}

// partial returns the values pushed since s as the kids of one node
// spanning the input consumed since s.
func (m *machine) partial(s save) *peg.Node {
	kids := make([]*peg.Node, len(m.stack)-s.depth)
	copy(kids, m.stack[s.depth:])
	return &peg.Node{Text: m.input[s.pos:m.pos], Kids: kids}
}

func (m *machine) act(index int, s save) {
	yy := m.partial(s)
	if f, ok := m.in.config.Actions[m.in.prog.Actions[index].Name]; ok {
		yy = f(yy)
	}
	m.stack = append(m.stack[:s.depth], yy)
}

func (m *machine) test(text string, s save) (bool, error) {
	f, ok := m.in.config.Predicates[text]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnbound, text)
	}
	return f(m.partial(s)), nil
}

// expect records a terminal that failed at the current position.
func (m *machine) expect(want string) bool {
	switch {
	case m.pos > m.errPos:
		m.errPos, m.errRule = m.pos, ""
		m.want = append(m.want[:0], want)
	case m.pos == m.errPos:
		for _, w := range m.want {
			if w == want {
				return false
			}
		}
		m.want = append(m.want, want)
	}
	return false
}

// fail names the innermost rule that failed over the furthest failure.
func (m *machine) fail(rule string) {
	if m.errRule == "" && m.errPos >= m.pos {
		m.errRule = rule
	}
}

func (m *machine) error() error {
	fail := &peg.Fail{Name: m.errRule, Pos: m.errPos}
	for _, w := range m.want {
		fail.Kids = append(fail.Kids, &peg.Fail{Pos: m.errPos, Want: w})
	}
	return &MatchError{
		Pos:  m.errPos,
		Rule: m.errRule,
		Want: append([]string(nil), m.want...),
		text: m.input,
		fail: fail,
	}
}

// MatchError reports where and why the input was rejected.
type MatchError struct {
	Path string
	Pos  int
	Rule string
	Want []string

	text string
	fail *peg.Fail
}

// Tree returns the failure tree handed to peg.SimpleError.
func (err *MatchError) Tree() *peg.Fail { return err.fail }

func (err *MatchError) Error() string {
	e := peg.SimpleError(err.text, err.fail)
	e.FilePath = err.Path
	return e.Error()
}
