package codegen

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dave/jennifer/jen"
	"github.com/imasahiro/peg/internal/compiler"
)

// Config holds the configuration for Go code generation.
type Config struct {
	Package string // Package clause of the generated file
	Parser  string // Name of the generated parser type
	Source  string // Grammar name shown in the header comment
	Version string // Generator version shown in the header comment
}

// Generator renders one Program as a Go file.
type Generator struct {
	config     Config
	program    *compiler.Program
	file       *jen.File
	predicates map[string]int
	recoveries map[string]int
	predOrder  []string
	recOrder   []string
}

// NewGenerator creates a generator for program.
func NewGenerator(program *compiler.Program, config Config) *Generator {
	if config.Parser == "" {
		config.Parser = "Parser"
	}
	return &Generator{
		config:     config,
		program:    program,
		file:       jen.NewFile(config.Package),
		predicates: make(map[string]int),
		recoveries: make(map[string]int),
	}
}

// Generate renders the parser and writes the formatted source to w.
func (g *Generator) Generate(w io.Writer) error {
	g.file.ImportName(PegPath, "peg")
	g.file.HeaderComment(fmt.Sprintf("Code generated by peg %s from %s. DO NOT EDIT.", g.config.Version, g.config.Source))

	g.generateTypes()
	g.generateHelpers()
	g.generateClasses()
	for _, f := range g.program.Fragments {
		if err := g.generateFragment(f); err != nil {
			return fmt.Errorf("rule '%s': %w", f.Rule, err)
		}
	}
	g.generateActions()

	if err := g.file.Render(w); err != nil {
		return fmt.Errorf("failed to render generated parser: %w", err)
	}
	return nil
}

// method returns a jen.Statement declaring a method on the parser type.
func (g *Generator) method(name string) *jen.Statement {
	return g.file.Func().Params(jen.Id(RecvName).Op("*").Id(g.config.Parser)).Id(name)
}

func field(name string) *jen.Statement {
	return jen.Id(RecvName).Dot(name)
}

func node() *jen.Statement {
	return jen.Op("*").Qual(PegPath, "Node")
}

func (g *Generator) generateTypes() {
	name := g.config.Parser
	start := g.program.StartFragment()

	g.file.Comment(fmt.Sprintf("%s is a backtracking recursive-descent parser for the %s grammar.", name, g.config.Source))
	g.file.Type().Id(name).Struct(
		jen.Id(BufferName).String(),
		jen.Line(),
		jen.Id(PosName).Int(),
		jen.Id(StackName).Index().Add(node()),
		jen.Id(ErrPosName).Int(),
		jen.Id(ErrRuleName).String(),
		jen.Id(WantName).Index().String(),
	)
	g.file.Line()

	g.file.Comment(fmt.Sprintf("New%s returns a parser over buffer.", name))
	g.file.Func().Id("New"+name).Params(jen.Id("buffer").String()).Op("*").Id(name).Block(
		jen.Return(jen.Op("&").Id(name).Values(jen.Dict{jen.Id(BufferName): jen.Id("buffer")})),
	)
	g.file.Line()

	g.file.Comment(fmt.Sprintf("Parse matches rule %s against a prefix of the buffer and returns its value.", start.Rule))
	g.method("Parse").Params().Params(node(), jen.Error()).Block(
		jen.List(field(PosName), field(StackName)).Op("=").List(jen.Lit(0), field(StackName).Index(jen.Empty(), jen.Lit(0))),
		jen.List(field(ErrPosName), field(ErrRuleName), field(WantName)).Op("=").List(jen.Lit(0), jen.Lit(""), jen.Nil()),
		jen.If(jen.Op("!").Add(field(RuleName(start.Index, start.Rule))).Call()).Block(
			jen.Return(jen.Nil(), field(ErrorName).Call()),
		),
		jen.Return(field(StackName).Index(jen.Len(field(StackName)).Op("-").Lit(1)), jen.Nil()),
	)
	g.file.Line()

	g.file.Comment("Pos returns the input position reached by the last successful Parse.")
	g.method("Pos").Params().Int().Block(jen.Return(field(PosName)))
	g.file.Line()
}

func (g *Generator) generateHelpers() {
	pos, depth, end := jen.Id("pos"), jen.Id("depth"), jen.Id("end")

	g.method(LeafName).Params(jen.Id("end").Int()).Block(
		jen.Id(RecvName).Dot(StackName).Op("=").Append(field(StackName), jen.Op("&").Qual(PegPath, "Node").Values(jen.Dict{
			jen.Id("Text"): field(BufferName).Index(field(PosName), end),
		})),
		field(PosName).Op("=").Add(end),
	)
	g.file.Line()

	g.method(MatchDotName).Params().Bool().Block(
		jen.If(field(PosName).Op("<").Len(field(BufferName))).Block(
			field(LeafName).Call(field(PosName).Op("+").Lit(1)),
			jen.Return(jen.True()),
		),
		jen.Return(field(ExpectName).Call(jen.Lit("any character"))),
	)
	g.file.Line()

	g.method(MatchStringName).Params(jen.List(jen.Id("s"), jen.Id("want")).String()).Bool().Block(
		jen.If(
			jen.Id("end").Op(":=").Add(field(PosName)).Op("+").Len(jen.Id("s")),
			end.Clone().Op("<=").Len(field(BufferName)).Op("&&").Add(field(BufferName)).Index(field(PosName), end.Clone()).Op("==").Id("s"),
		).Block(
			field(LeafName).Call(end.Clone()),
			jen.Return(jen.True()),
		),
		jen.Return(field(ExpectName).Call(jen.Id("want"))),
	)
	g.file.Line()

	g.method(MatchClassName).Params(jen.Id("class").Op("*").Index(jen.Lit(8)).Uint32(), jen.Id("want").String()).Bool().Block(
		jen.If(field(PosName).Op("<").Len(field(BufferName))).Block(
			jen.If(
				jen.Id("c").Op(":=").Add(field(BufferName)).Index(field(PosName)),
				jen.Id("class").Index(jen.Id("c").Op(">>").Lit(5)).Op("&").Parens(jen.Lit(1).Op("<<").Parens(jen.Id("c").Op("&").Lit(31))).Op("!=").Lit(0),
			).Block(
				field(LeafName).Call(field(PosName).Op("+").Lit(1)),
				jen.Return(jen.True()),
			),
		),
		jen.Return(field(ExpectName).Call(jen.Id("want"))),
	)
	g.file.Line()

	g.file.Comment(fmt.Sprintf("%s returns the values pushed since depth as the kids of one node spanning", PartialName))
	g.file.Comment("the input consumed since pos.")
	g.method(PartialName).Params(jen.List(pos, depth).Int()).Add(node()).Block(
		jen.Id("kids").Op(":=").Make(jen.Index().Add(node()), jen.Len(field(StackName)).Op("-").Add(depth.Clone())),
		jen.Copy(jen.Id("kids"), field(StackName).Index(depth.Clone(), jen.Empty())),
		jen.Return(jen.Op("&").Qual(PegPath, "Node").Values(jen.Dict{
			jen.Id("Text"): field(BufferName).Index(pos.Clone(), field(PosName)),
			jen.Id("Kids"): jen.Id("kids"),
		})),
	)
	g.file.Line()

	g.method(CollectName).Params(jen.Id("name").String(), jen.List(pos.Clone(), depth.Clone()).Int()).Block(
		jen.Id("n").Op(":=").Add(field(PartialName)).Call(pos.Clone(), depth.Clone()),
		jen.Id("n").Dot("Name").Op("=").Id("name"),
		field(StackName).Op("=").Append(field(StackName).Index(jen.Empty(), depth.Clone()), jen.Id("n")),
	)
	g.file.Line()

	g.method(ActName).Params(jen.List(pos.Clone(), depth.Clone()).Int(), jen.Id("f").Func().Params(node()).Add(node())).Block(
		jen.Id("v").Op(":=").Id("f").Call(field(PartialName).Call(pos.Clone(), depth.Clone())),
		field(StackName).Op("=").Append(field(StackName).Index(jen.Empty(), depth.Clone()), jen.Id("v")),
	)
	g.file.Line()

	g.method(TestName).Params(jen.List(pos.Clone(), depth.Clone()).Int(), jen.Id("f").Func().Params(node()).Bool()).Bool().Block(
		jen.Return(jen.Id("f").Call(field(PartialName).Call(pos.Clone(), depth.Clone()))),
	)
	g.file.Line()

	g.method(RecoverName).Params(jen.List(pos.Clone(), depth.Clone()).Int(), jen.Id("f").Func().Params(node())).Block(
		jen.Id("f").Call(field(PartialName).Call(pos.Clone(), depth.Clone())),
	)
	g.file.Line()

	g.method(EmptyName).Params().Block(
		field(StackName).Op("=").Append(field(StackName), jen.Op("&").Qual(PegPath, "Node").Values()),
	)
	g.file.Line()

	g.file.Comment(fmt.Sprintf("%s records a terminal that failed at the current position.", ExpectName))
	g.method(ExpectName).Params(jen.Id("want").String()).Bool().Block(
		jen.Switch().Block(
			jen.Case(field(PosName).Op(">").Add(field(ErrPosName))).Block(
				jen.List(field(ErrPosName), field(ErrRuleName)).Op("=").List(field(PosName), jen.Lit("")),
				field(WantName).Op("=").Append(field(WantName).Index(jen.Empty(), jen.Lit(0)), jen.Id("want")),
			),
			jen.Case(field(PosName).Op("==").Add(field(ErrPosName))).Block(
				jen.For(jen.List(jen.Id("_"), jen.Id("w")).Op(":=").Range().Add(field(WantName))).Block(
					jen.If(jen.Id("w").Op("==").Id("want")).Block(jen.Return(jen.False())),
				),
				field(WantName).Op("=").Append(field(WantName), jen.Id("want")),
			),
		),
		jen.Return(jen.False()),
	)
	g.file.Line()

	g.file.Comment(fmt.Sprintf("%s names the innermost rule that failed over the furthest failure.", FailName))
	g.method(FailName).Params(jen.Id("rule").String()).Bool().Block(
		jen.If(field(ErrRuleName).Op("==").Lit("").Op("&&").Add(field(ErrPosName)).Op(">=").Add(field(PosName))).Block(
			field(ErrRuleName).Op("=").Id("rule"),
		),
		jen.Return(jen.False()),
	)
	g.file.Line()

	g.method(ErrorName).Params().Error().Block(
		jen.Id("fail").Op(":=").Op("&").Qual(PegPath, "Fail").Values(jen.Dict{
			jen.Id("Name"): field(ErrRuleName),
			jen.Id("Pos"):  field(ErrPosName),
		}),
		jen.For(jen.List(jen.Id("_"), jen.Id("w")).Op(":=").Range().Add(field(WantName))).Block(
			jen.Id("fail").Dot("Kids").Op("=").Append(jen.Id("fail").Dot("Kids"), jen.Op("&").Qual(PegPath, "Fail").Values(jen.Dict{
				jen.Id("Pos"):  field(ErrPosName),
				jen.Id("Want"): jen.Id("w"),
			})),
		),
		jen.Id("e").Op(":=").Qual(PegPath, "SimpleError").Call(field(BufferName), jen.Id("fail")),
		jen.Return(jen.Qual("errors", "New").Call(jen.Id("e").Dot("Error").Call())),
	)
	g.file.Line()
}

func (g *Generator) generateClasses() {
	if len(g.program.Classes) == 0 {
		return
	}
	rows := make([]jen.Code, len(g.program.Classes))
	for i, c := range g.program.Classes {
		words := c.Set.Words()
		lits := make([]jen.Code, len(words))
		for j, w := range words {
			lits[j] = jen.Id(fmt.Sprintf("0x%08x", w))
		}
		rows[i] = jen.Values(lits...)
		g.file.Comment(fmt.Sprintf("%d: [%s]", i, c.Spec))
	}
	g.file.Var().Id(ClassesName(g.config.Parser)).Op("=").
		Index(jen.Lit(len(rows))).Index(jen.Lit(8)).Uint32().Values(rows...)
	g.file.Line()
}

func (g *Generator) generateFragment(f *compiler.Fragment) error {
	var body []jen.Code
	if len(f.Slots) > 0 {
		vars := make([]jen.Code, 0, 2*len(f.Slots))
		for _, s := range f.Slots {
			pos, depth := SlotNames(int(s))
			vars = append(vars, jen.Id(pos), jen.Id(depth))
		}
		body = append(body, jen.Var().List(vars...).Int())
	}

	targets := f.Targets()
	for _, in := range f.Code {
		code, err := g.generateInst(in, targets)
		if err != nil {
			return err
		}
		body = append(body, code...)
	}

	switch {
	case !f.Defined:
		g.file.Comment(fmt.Sprintf("%s always fails: rule %s is not defined.", RuleName(f.Index, f.Rule), f.Rule))
	default:
		g.file.Comment(fmt.Sprintf("%s matches rule %s (%d).", RuleName(f.Index, f.Rule), f.Rule, f.ID))
	}
	g.method(RuleName(f.Index, f.Rule)).Params().Bool().Block(body...)
	g.file.Line()
	return nil
}

func (g *Generator) generateInst(in compiler.Inst, targets map[compiler.Label]bool) ([]jen.Code, error) {
	ko := jen.Goto().Id(LabelName(int(in.Label)))
	pos, depth := SlotNames(int(in.Slot))

	switch in.Op {
	case compiler.OpLabel:
		if !targets[in.Label] {
			return nil, nil
		}
		return []jen.Code{jen.Id(LabelName(int(in.Label))).Op(":")}, nil

	case compiler.OpJump:
		return []jen.Code{ko}, nil

	case compiler.OpSave:
		return []jen.Code{
			jen.List(jen.Id(pos), jen.Id(depth)).Op("=").List(field(PosName), jen.Len(field(StackName))),
		}, nil

	case compiler.OpRestore:
		return []jen.Code{
			jen.List(field(PosName), field(StackName)).Op("=").List(jen.Id(pos), field(StackName).Index(jen.Empty(), jen.Id(depth))),
		}, nil

	case compiler.OpProgress:
		return []jen.Code{jen.If(field(PosName).Op("==").Id(pos)).Block(ko)}, nil

	case compiler.OpAny:
		return []jen.Code{jen.If(jen.Op("!").Add(field(MatchDotName)).Call()).Block(ko)}, nil

	case compiler.OpString:
		return []jen.Code{
			jen.If(jen.Op("!").Add(field(MatchStringName)).Call(jen.Lit(in.Text), jen.Lit(strconv.Quote(in.Text)))).Block(ko),
		}, nil

	case compiler.OpClass:
		if in.Index < 0 || in.Index >= len(g.program.Classes) {
			return nil, fmt.Errorf("%w: class %d out of range", compiler.ErrInternal, in.Index)
		}
		want := "[" + g.program.Classes[in.Index].Spec + "]"
		return []jen.Code{
			jen.If(jen.Op("!").Add(field(MatchClassName)).Call(
				jen.Op("&").Id(ClassesName(g.config.Parser)).Index(jen.Lit(in.Index)),
				jen.Lit(want),
			)).Block(ko),
		}, nil

	case compiler.OpCall:
		if in.Rule < 0 || in.Rule >= len(g.program.Fragments) {
			return nil, fmt.Errorf("%w: call of rule %d out of range", compiler.ErrInternal, in.Rule)
		}
		callee := g.program.Fragments[in.Rule]
		return []jen.Code{jen.If(jen.Op("!").Add(field(RuleName(callee.Index, callee.Rule))).Call()).Block(ko)}, nil

	case compiler.OpAction:
		if in.Index < 0 || in.Index >= len(g.program.Actions) {
			return nil, fmt.Errorf("%w: action %d out of range", compiler.ErrInternal, in.Index)
		}
		a := g.program.Actions[in.Index]
		return []jen.Code{
			field(ActName).Call(jen.Id(pos), jen.Id(depth), field(ActionName(in.Index, a.Name))),
		}, nil

	case compiler.OpPredicate:
		name := PredicateName(index(g.predicates, &g.predOrder, in.Text))
		return []jen.Code{
			jen.If(jen.Op("!").Add(field(TestName)).Call(jen.Id(pos), jen.Id(depth), field(name))).Block(ko),
		}, nil

	case compiler.OpRecover:
		name := RecoveryName(index(g.recoveries, &g.recOrder, in.Text))
		return []jen.Code{field(RecoverName).Call(jen.Id(pos), jen.Id(depth), field(name))}, nil

	case compiler.OpEmpty:
		return []jen.Code{field(EmptyName).Call()}, nil

	case compiler.OpCollect:
		return []jen.Code{field(CollectName).Call(jen.Lit(in.Text), jen.Id(pos), jen.Id(depth))}, nil

	case compiler.OpSucceed:
		return []jen.Code{jen.Return(jen.True())}, nil

	case compiler.OpFail:
		return []jen.Code{jen.Return(field(FailName).Call(jen.Lit(in.Text)))}, nil
	}
	return nil, fmt.Errorf("%w: unknown instruction %s", compiler.ErrInternal, in.Op)
}

// index returns the position of text in order, appending it on first use.
func index(seen map[string]int, order *[]string, text string) int {
	if i, ok := seen[text]; ok {
		return i
	}
	i := len(*order)
	seen[text] = i
	*order = append(*order, text)
	return i
}

// generateActions emits one method per distinct action, predicate and
// recovery body. Bodies are Go source with the partial result in yy.
func (g *Generator) generateActions() {
	for i, a := range g.program.Actions {
		g.file.Comment(fmt.Sprintf("%s is action %s.", ActionName(i, a.Name), a.Name))
		g.method(ActionName(i, a.Name)).Params(jen.Id(ValueName).Add(node())).Add(node()).Block(jen.Op(a.Text))
		g.file.Line()
	}
	for i, text := range g.predOrder {
		g.method(PredicateName(i)).Params(jen.Id(ValueName).Add(node())).Bool().Block(jen.Return(jen.Op(text)))
		g.file.Line()
	}
	for i, text := range g.recOrder {
		g.method(RecoveryName(i)).Params(jen.Id(ValueName).Add(node())).Block(jen.Op(text))
		g.file.Line()
	}
}
