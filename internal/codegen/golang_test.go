package codegen

import (
	"bytes"
	"errors"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"
	"testing"

	"github.com/imasahiro/peg/internal/compiler"
	"github.com/imasahiro/peg/internal/grammar"
)

func render(t *testing.T, g *grammar.Grammar, config Config) string {
	t.Helper()
	prog, err := compiler.New(compiler.Config{}).Generate(g)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	var buf bytes.Buffer
	if err := NewGenerator(prog, config).Generate(&buf); err != nil {
		t.Fatalf("generation failed: %v", err)
	}
	return buf.String()
}

// checkLabels parses src and verifies that in every function each goto
// target is declared, each declared label is used and each declared
// variable is read, as the Go compiler requires.
func checkLabels(t *testing.T, src string) *ast.File {
	t.Helper()
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "parser.go", src, 0)
	if err != nil {
		t.Fatalf("generated source does not parse: %v\n%s", err, src)
	}
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Body == nil {
			continue
		}
		declared := make(map[string]bool)
		used := make(map[string]bool)
		vars := make(map[string]bool)
		read := make(map[string]bool)
		written := make(map[*ast.Ident]bool)
		ast.Inspect(fn.Body, func(n ast.Node) bool {
			switch n := n.(type) {
			case *ast.LabeledStmt:
				declared[n.Label.Name] = true
			case *ast.BranchStmt:
				if n.Tok == token.GOTO {
					used[n.Label.Name] = true
				}
			case *ast.ValueSpec:
				for _, id := range n.Names {
					vars[id.Name] = true
					written[id] = true
				}
			case *ast.AssignStmt:
				for _, e := range n.Lhs {
					if id, ok := e.(*ast.Ident); ok {
						written[id] = true
					}
				}
			case *ast.Ident:
				if !written[n] {
					read[n.Name] = true
				}
			}
			return true
		})
		for v := range vars {
			if !read[v] {
				t.Errorf("%s: %s declared and not used", fn.Name.Name, v)
			}
		}
		for l := range used {
			if !declared[l] {
				t.Errorf("%s: goto %s has no label", fn.Name.Name, l)
			}
		}
		for l := range declared {
			if !used[l] {
				t.Errorf("%s: label %s is never used", fn.Name.Name, l)
			}
		}
	}
	return file
}

func methods(file *ast.File) map[string]bool {
	names := make(map[string]bool)
	for _, decl := range file.Decls {
		if fn, ok := decl.(*ast.FuncDecl); ok {
			names[fn.Name.Name] = true
		}
	}
	return names
}

func TestGenerate(t *testing.T) {
	tests := []struct {
		name    string
		build   func(g *grammar.Grammar)
		methods []string
		want    []string
	}{
		{
			name: "plus then query",
			build: func(g *grammar.Grammar) {
				g.Define("Start", grammar.Seq(grammar.Plus(grammar.Char("a")), grammar.Query(grammar.Char("b"))))
			},
			methods: []string{"rule0Start", "Parse", "NewParser"},
			want:    []string{`p.matchString("a", "\"a\"")`, "p.empty()", `p.collect("Start", pos`},
		},
		{
			name: "class table",
			build: func(g *grammar.Grammar) {
				g.Define("Start", grammar.Seq(grammar.Class("0-9"), grammar.Class("9-0"), grammar.Class("0123456789")))
			},
			methods: []string{"rule0Start"},
			want:    []string{"0x03ff0000", "// 0: [0-9]", "// 1: []", "&parserClasses[0]", `"[0-9]"`, "var parserClasses = [2][8]uint32"},
		},
		{
			name: "rules call each other",
			build: func(g *grammar.Grammar) {
				g.Define("List", grammar.Seq(g.Ref("Item"), grammar.Star(grammar.Seq(grammar.Str(","), g.Ref("Item")))))
				g.Define("Item", grammar.Alt(grammar.Plus(grammar.Class("a-z")), grammar.Dot()))
			},
			methods: []string{"rule0List", "rule1Item"},
			want:    []string{"!p.rule1Item()", "!p.matchDot()", "Parse matches rule List"},
		},
		{
			name: "undefined rule",
			build: func(g *grammar.Grammar) {
				g.Define("Start", g.Ref("Missing"))
			},
			methods: []string{"rule1Missing"},
			want:    []string{"rule1Missing always fails", `return p.fail("Missing")`},
		},
		{
			name: "actions predicates and recovery",
			build: func(g *grammar.Grammar) {
				g.Define("Start", grammar.Seq(
					grammar.Error(grammar.Str("x"), "println(len(yy.Kids))"),
					grammar.Predicate("yy.Text != \"\""),
					grammar.Predicate("yy.Text != \"\""),
					g.Action("Keep", "return yy"),
				))
			},
			methods: []string{"action0Keep", "predicate0", "recover0"},
			want:    []string{"p.act(pos", "p.test(pos", "p.recoverWith(pos", "func (p *Parser) action0Keep(yy *peg.Node) *peg.Node"},
		},
		{
			name: "lookahead and zero-width loop",
			build: func(g *grammar.Grammar) {
				g.Define("Start", grammar.Seq(
					grammar.PeekFor(grammar.Str("a")),
					grammar.PeekNot(grammar.Str("b")),
					grammar.Star(grammar.Query(grammar.Dot())),
				))
			},
			methods: []string{"rule0Start"},
			want:    []string{"if p.pos == pos"},
		},
		{
			name: "empty choice",
			build: func(g *grammar.Grammar) {
				g.Define("Start", grammar.Alt(grammar.Seq(grammar.Alt(), grammar.Str("a")), grammar.Str("b")))
			},
			methods: []string{"rule0Start"},
			want:    []string{`p.matchString("b", "\"b\"")`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := grammar.New()
			tt.build(g)
			src := render(t, g, Config{Package: "demo", Source: "demo.peg", Version: "test"})

			file := checkLabels(t, src)
			if file.Name.Name != "demo" {
				t.Errorf("package = %s, want demo", file.Name.Name)
			}
			if !strings.HasPrefix(src, "// Code generated by peg test from demo.peg. DO NOT EDIT.") {
				t.Errorf("missing generated header:\n%s", src)
			}
			if !strings.Contains(src, `"github.com/eaburns/peggy/peg"`) {
				t.Error("peg import missing")
			}

			have := methods(file)
			for _, m := range tt.methods {
				if !have[m] {
					t.Errorf("method %s not generated", m)
				}
			}
			for _, w := range tt.want {
				if !strings.Contains(src, w) {
					t.Errorf("generated source does not contain %q:\n%s", w, src)
				}
			}
		})
	}
}

func TestGenerateParserName(t *testing.T) {
	g := grammar.New()
	g.Define("Expr", grammar.Class("0-9"))
	src := render(t, g, Config{Package: "calc", Parser: "Calc", Source: "calc"})

	for _, w := range []string{"type Calc struct", "func NewCalc(buffer string) *Calc", "calcClasses", "func (p *Calc) rule0Expr() bool"} {
		if !strings.Contains(src, w) {
			t.Errorf("generated source does not contain %q", w)
		}
	}
}

func TestGenerateBadActionBody(t *testing.T) {
	g := grammar.New()
	g.Define("Start", grammar.Seq(grammar.Dot(), g.Action("Broken", "return yy +")))
	prog, err := compiler.New(compiler.Config{}).Generate(g)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}

	var buf bytes.Buffer
	if err := NewGenerator(prog, Config{Package: "demo"}).Generate(&buf); err == nil {
		t.Error("expected a render error for an action body that is not Go")
	}
}

func TestGenerateInternalError(t *testing.T) {
	prog := &compiler.Program{
		Fragments: []*compiler.Fragment{{
			Rule:    "Start",
			Defined: true,
			Code:    []compiler.Inst{{Op: compiler.OpClass, Index: 3}},
		}},
	}
	var buf bytes.Buffer
	err := NewGenerator(prog, Config{Package: "demo"}).Generate(&buf)
	if !errors.Is(err, compiler.ErrInternal) {
		t.Errorf("error = %v, want ErrInternal", err)
	}
}
