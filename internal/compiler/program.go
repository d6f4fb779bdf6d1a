package compiler

import (
	"fmt"
	"strings"

	"github.com/imasahiro/peg/internal/charclass"
)

// Label names a jump target inside a fragment.
type Label int

// Slot names a save point: an input position plus a value stack depth.
type Slot int

// Op is a matcher instruction.
type Op uint8

const (
	OpLabel     Op = iota // Label: jump target
	OpJump                // goto Label
	OpSave                // Slot = (pos, depth)
	OpRestore             // (pos, depth) = Slot, dropping values pushed since
	OpProgress            // if pos == Slot.pos goto Label
	OpAny                 // match one byte or goto Label
	OpString              // match Text or goto Label
	OpClass               // match one byte in Classes[Index] or goto Label
	OpCall                // call fragment Rule or goto Label
	OpAction              // replace values since Slot with Actions[Index](partial)
	OpPredicate           // if !Text(partial since Slot) goto Label
	OpRecover             // run recovery Text with the partial since Slot
	OpEmpty               // push an empty value
	OpCollect             // pop values since Slot into one node named Text
	OpSucceed             // return success
	OpFail                // report failure of rule Text and return
)

var opNames = [...]string{
	OpLabel:     "label",
	OpJump:      "jump",
	OpSave:      "save",
	OpRestore:   "restore",
	OpProgress:  "progress",
	OpAny:       "any",
	OpString:    "string",
	OpClass:     "class",
	OpCall:      "call",
	OpAction:    "action",
	OpPredicate: "predicate",
	OpRecover:   "recover",
	OpEmpty:     "empty",
	OpCollect:   "collect",
	OpSucceed:   "succeed",
	OpFail:      "fail",
}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("Op(%d)", uint8(op))
}

// Inst is one instruction. Label is the jump target of OpLabel/OpJump and
// the failure destination of every instruction that can fail.
type Inst struct {
	Op    Op
	Label Label
	Slot  Slot
	Rule  int
	Index int
	Text  string
	Node  int
}

// Fails reports whether the instruction can transfer control to Label.
func (in Inst) Fails() bool {
	switch in.Op {
	case OpJump, OpProgress, OpAny, OpString, OpClass, OpCall, OpPredicate:
		return true
	}
	return false
}

// String renders the instruction as one listing line. Instructions emitted
// for a grammar node end with the node's id.
func (in Inst) String() string {
	s := in.text()
	if in.Node != 0 {
		s += fmt.Sprintf(" /* %d */", in.Node)
	}
	return s
}

func (in Inst) text() string {
	switch in.Op {
	case OpLabel:
		return fmt.Sprintf("L%d:", in.Label)
	case OpJump:
		return fmt.Sprintf("\tjump L%d", in.Label)
	case OpSave, OpRestore:
		return fmt.Sprintf("\t%s s%d", in.Op, in.Slot)
	case OpProgress:
		return fmt.Sprintf("\tprogress s%d L%d", in.Slot, in.Label)
	case OpAny:
		return fmt.Sprintf("\tany L%d", in.Label)
	case OpString:
		return fmt.Sprintf("\tstring %q L%d", in.Text, in.Label)
	case OpPredicate:
		return fmt.Sprintf("\tpredicate %q s%d L%d", in.Text, in.Slot, in.Label)
	case OpClass:
		return fmt.Sprintf("\tclass c%d L%d", in.Index, in.Label)
	case OpCall:
		return fmt.Sprintf("\tcall r%d L%d", in.Rule, in.Label)
	case OpAction:
		return fmt.Sprintf("\taction a%d s%d", in.Index, in.Slot)
	case OpRecover:
		return fmt.Sprintf("\trecover %q s%d", in.Text, in.Slot)
	case OpCollect:
		return fmt.Sprintf("\tcollect s%d %q", in.Slot, in.Text)
	case OpFail:
		return fmt.Sprintf("\tfail %q", in.Text)
	}
	return "\t" + in.Op.String()
}

// Fragment is the generated matcher for one rule.
type Fragment struct {
	Rule     string
	Index    int
	ID       int
	Defined  bool
	Safe     bool
	Consumes bool
	Entry    Slot
	Slots    []Slot
	Code     []Inst
}

// Targets returns the labels some instruction of the fragment can jump to.
func (f *Fragment) Targets() map[Label]bool {
	used := make(map[Label]bool)
	for _, in := range f.Code {
		if in.Fails() {
			used[in.Label] = true
		}
	}
	return used
}

// ClassDecl is a compiled character class shared by every Class node with
// the same canonical form.
type ClassDecl struct {
	Spec string
	Set  *charclass.Set
}

// ActionDecl is the dispatch entry for one distinct action name.
type ActionDecl struct {
	Name string
	Text string
	ID   int
}

// Program is the output of one generation pass.
type Program struct {
	Start     int
	Fragments []*Fragment
	Classes   []ClassDecl
	Actions   []ActionDecl
}

// StartFragment returns the fragment of the start rule.
func (p *Program) StartFragment() *Fragment {
	return p.Fragments[p.Start]
}

// Fragment returns the fragment generated for rule name.
func (p *Program) Fragment(name string) (*Fragment, bool) {
	for _, f := range p.Fragments {
		if f.Rule == name {
			return f, true
		}
	}
	return nil, false
}

// String renders the whole program as an instruction listing.
func (p *Program) String() string {
	var b strings.Builder
	for i, c := range p.Classes {
		fmt.Fprintf(&b, "class c%d [%s]\n", i, c.Spec)
	}
	for i, a := range p.Actions {
		fmt.Fprintf(&b, "action a%d %s /* %d */\n", i, a.Name, a.ID)
	}
	for _, f := range p.Fragments {
		fmt.Fprintf(&b, "rule r%d %s /* %d */\n", f.Index, f.Rule, f.ID)
		for _, in := range f.Code {
			b.WriteString(in.String())
			b.WriteByte('\n')
		}
	}
	return b.String()
}
