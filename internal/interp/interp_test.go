package interp

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/eaburns/peggy/peg"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/imasahiro/peg/internal/compiler"
	"github.com/imasahiro/peg/internal/grammar"
)

func load(t *testing.T, g *grammar.Grammar, config Config) *Interpreter {
	t.Helper()
	prog, err := compiler.New(compiler.Config{}).Generate(g)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	in, err := New(prog, config)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return in
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name   string
		build  func(g *grammar.Grammar)
		accept map[string]string // input to consumed prefix
		reject []string
	}{
		{
			name: "plus then query",
			build: func(g *grammar.Grammar) {
				g.Define("Start", grammar.Seq(grammar.Plus(grammar.Char("a")), grammar.Query(grammar.Char("b"))))
			},
			accept: map[string]string{"aaab": "aaab", "aaa": "aaa", "abz": "ab"},
			reject: []string{"b", ""},
		},
		{
			name: "class",
			build: func(g *grammar.Grammar) {
				g.Define("Start", grammar.Class("0-9"))
			},
			accept: map[string]string{"5": "5", "42": "4"},
			reject: []string{"g", ""},
		},
		{
			name: "ordered choice commits to the first match",
			build: func(g *grammar.Grammar) {
				g.Define("Start", grammar.Alt(grammar.Str("a"), grammar.Str("ab")))
			},
			accept: map[string]string{"ab": "a"},
			reject: []string{"b"},
		},
		{
			name: "positive lookahead",
			build: func(g *grammar.Grammar) {
				g.Define("Start", grammar.Seq(grammar.PeekFor(grammar.Str("a")), grammar.Dot()))
			},
			accept: map[string]string{"a": "a"},
			reject: []string{"b"},
		},
		{
			name: "negative lookahead",
			build: func(g *grammar.Grammar) {
				g.Define("Start", grammar.Seq(grammar.PeekNot(grammar.Str("a")), grammar.Dot()))
			},
			accept: map[string]string{"b": "b"},
			reject: []string{"a", ""},
		},
		{
			name: "zero-width element ends the loop",
			build: func(g *grammar.Grammar) {
				g.Define("Start", grammar.Star(grammar.Query(grammar.Char("a"))))
			},
			accept: map[string]string{"aa": "aa", "": "", "b": ""},
		},
		{
			name: "rules call each other",
			build: func(g *grammar.Grammar) {
				g.Define("List", grammar.Seq(g.Ref("Item"), grammar.Star(grammar.Seq(grammar.Str(","), g.Ref("Item")))))
				g.Define("Item", grammar.Plus(grammar.Class("a-z")))
			},
			accept: map[string]string{"ab,c,de": "ab,c,de", "ab,": "ab"},
			reject: []string{",a"},
		},
		{
			name: "undefined rule fails",
			build: func(g *grammar.Grammar) {
				g.Define("Start", grammar.Alt(g.Ref("Missing"), grammar.Str("a")))
			},
			accept: map[string]string{"a": "a"},
			reject: []string{"b"},
		},
		{
			name: "left recursion fails the inner call",
			build: func(g *grammar.Grammar) {
				g.Define("A", grammar.Alt(grammar.Seq(g.Ref("A"), grammar.Str("x")), grammar.Str("y")))
			},
			accept: map[string]string{"yx": "y"},
			reject: []string{"x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := grammar.New()
			tt.build(g)
			in := load(t, g, Config{})

			for input, want := range tt.accept {
				n, err := in.Match(input)
				if err != nil {
					t.Errorf("Match(%q) failed: %v", input, err)
					continue
				}
				if n.Text != want {
					t.Errorf("Match(%q) consumed %q, want %q", input, n.Text, want)
				}
			}
			for _, input := range tt.reject {
				if _, err := in.Match(input); err == nil {
					t.Errorf("Match(%q) succeeded, want failure", input)
				}
			}
		})
	}
}

func TestMatchFull(t *testing.T) {
	g := grammar.New()
	g.Define("Start", grammar.Alt(grammar.Str("a"), grammar.Str("ab")))
	in := load(t, g, Config{})

	if _, err := in.MatchFull("a"); err != nil {
		t.Errorf("MatchFull(a) failed: %v", err)
	}

	_, err := in.MatchFull("ab")
	var merr *MatchError
	if !errors.As(err, &merr) {
		t.Fatalf("MatchFull(ab) error = %v, want *MatchError", err)
	}
	if merr.Pos != 1 {
		t.Errorf("Pos = %d, want 1", merr.Pos)
	}
	if diff := cmp.Diff([]string{"end of input"}, merr.Want); diff != "" {
		t.Errorf("Want mismatch (-want +got):\n%s", diff)
	}
}

func TestMatchValues(t *testing.T) {
	g := grammar.New()
	g.Define("Start", grammar.Seq(grammar.Query(grammar.Str("x")), grammar.Str("y")))
	in := load(t, g, Config{})

	got, err := in.Match("y")
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	want := &peg.Node{
		Name: "Start",
		Text: "y",
		Kids: []*peg.Node{{
			Text: "y",
			Kids: []*peg.Node{{}, {Text: "y"}},
		}},
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("value mismatch (-want +got):\n%s", diff)
	}
}

func TestMatchError(t *testing.T) {
	g := grammar.New()
	g.Define("Start", grammar.Seq(grammar.Str("a"), g.Ref("Digit")))
	g.Define("Digit", grammar.Class("0-9"))
	in := load(t, g, Config{})

	_, err := in.Match("ax")
	var merr *MatchError
	if !errors.As(err, &merr) {
		t.Fatalf("error = %v, want *MatchError", err)
	}
	want := &MatchError{Pos: 1, Rule: "Digit", Want: []string{"[0-9]"}}
	if diff := cmp.Diff(want, merr, cmpopts.IgnoreUnexported(MatchError{})); diff != "" {
		t.Errorf("error mismatch (-want +got):\n%s", diff)
	}
	if merr.Error() == "" {
		t.Error("empty error message")
	}
	if merr.Tree() == nil {
		t.Error("missing failure tree")
	}
}

func TestActions(t *testing.T) {
	build := func() *grammar.Grammar {
		g := grammar.New()
		g.Define("Start", grammar.Seq(grammar.Plus(grammar.Class("0-9")), g.Action("Num", "return yy")))
		return g
	}

	t.Run("bound", func(t *testing.T) {
		var calls int
		in := load(t, build(), Config{Actions: map[string]Action{
			"Num": func(yy *peg.Node) *peg.Node {
				calls++
				return &peg.Node{Name: "num", Text: yy.Text}
			},
		}})
		n, err := in.Match("123")
		if err != nil {
			t.Fatalf("Match failed: %v", err)
		}
		if calls != 1 {
			t.Errorf("action ran %d times, want 1", calls)
		}
		want := &peg.Node{Name: "num", Text: "123"}
		if diff := cmp.Diff(want, n.Kids[0].Kids[0], cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("action value mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("unbound passes the partial through", func(t *testing.T) {
		in := load(t, build(), Config{})
		n, err := in.Match("12")
		if err != nil {
			t.Fatalf("Match failed: %v", err)
		}
		yy := n.Kids[0].Kids[0]
		if yy.Text != "12" || len(yy.Kids) != 1 {
			t.Errorf("partial = %q with %d kids, want \"12\" with 1", yy.Text, len(yy.Kids))
		}
	})
}

func TestPredicates(t *testing.T) {
	g := grammar.New()
	g.Define("Start", grammar.Seq(grammar.Plus(grammar.Class("0-9")), grammar.Predicate("even")))

	in := load(t, g, Config{Predicates: map[string]Predicate{
		"even": func(yy *peg.Node) bool { return len(yy.Text)%2 == 0 },
	}})
	if _, err := in.Match("12"); err != nil {
		t.Errorf("Match(12) failed: %v", err)
	}
	if _, err := in.Match("123"); err == nil {
		t.Error("Match(123) succeeded, want predicate failure")
	}

	unbound := load(t, g, Config{})
	if _, err := unbound.Match("12"); !errors.Is(err, ErrUnbound) {
		t.Errorf("error = %v, want ErrUnbound", err)
	}
}

func TestRecover(t *testing.T) {
	g := grammar.New()
	g.Define("Start", grammar.Seq(grammar.Error(grammar.Str("x"), "expected x"), grammar.Str("y")))

	var got []string
	in := load(t, g, Config{Recover: func(text string, yy *peg.Node) {
		got = append(got, text)
	}})
	if _, err := in.Match("z"); err == nil {
		t.Error("Match(z) succeeded, want failure")
	}
	if _, err := in.Match("xy"); err != nil {
		t.Errorf("Match(xy) failed: %v", err)
	}
	if diff := cmp.Diff([]string{"expected x"}, got); diff != "" {
		t.Errorf("recoveries mismatch (-want +got):\n%s", diff)
	}
}

func TestMaxDepth(t *testing.T) {
	g := grammar.New()
	g.Define("Start", grammar.Alt(grammar.Seq(grammar.Str("("), g.Ref("Start"), grammar.Str(")")), grammar.Str("x")))

	if _, err := load(t, g, Config{}).MatchFull("((x))"); err != nil {
		t.Errorf("MatchFull failed: %v", err)
	}
	if _, err := load(t, g, Config{MaxDepth: 3}).Match("((((x))))"); !errors.Is(err, ErrTooDeep) {
		t.Errorf("error = %v, want ErrTooDeep", err)
	}
}

func TestNewInternalError(t *testing.T) {
	tests := []struct {
		name string
		code []compiler.Inst
	}{
		{"missing label", []compiler.Inst{{Op: compiler.OpJump, Label: 9}}},
		{"class out of range", []compiler.Inst{{Op: compiler.OpClass, Index: 2}}},
		{"action out of range", []compiler.Inst{{Op: compiler.OpAction, Index: 0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := &compiler.Program{Fragments: []*compiler.Fragment{{Rule: "Start", Defined: true, Code: tt.code}}}
			if _, err := New(prog, Config{}); !errors.Is(err, compiler.ErrInternal) {
				t.Errorf("error = %v, want ErrInternal", err)
			}
		})
	}
}

func TestMatchConcurrent(t *testing.T) {
	g := grammar.New()
	g.Define("Start", grammar.Seq(grammar.Plus(grammar.Char("a")), grammar.Query(grammar.Char("b"))))
	in := load(t, g, Config{})

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 1; i <= 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			input := strings.Repeat("a", n) + "b"
			for j := 0; j < 50; j++ {
				got, err := in.MatchFull(input)
				if err != nil {
					errs <- err
					return
				}
				if got.Text != input {
					errs <- errors.New("consumed " + got.Text + ", want " + input)
					return
				}
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
