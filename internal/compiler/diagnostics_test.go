package compiler

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestClosestStrings(t *testing.T) {
	candidates := []string{"Expr", "Exprs", "Term", "Factor", "Start"}
	tests := []struct {
		name string
		want []string
	}{
		{"Exp", []string{"Expr"}},
		{"Expz", []string{"Expr"}},
		{"Tern", []string{"Term"}},
		{"Expr", []string{"Exprs"}},
		{"Whitespace", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := closestStrings(3, tt.name, candidates)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("closestStrings(%q) mismatch (-want +got):\n%s", tt.name, diff)
			}
		})
	}
}

func TestDiagnosticString(t *testing.T) {
	d := undefinedRule("Exp", []string{"Expr", "Term"})
	if got, want := d.String(), "rule 'Exp' used but not defined (did you mean 'Expr'?)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	ds := Diagnostics{unusedRule("A"), leftRecursion("B")}
	want := "rule 'A' defined but not used\npossible infinite left recursion in rule 'B'"
	if got := ds.String(); got != want {
		t.Errorf("Diagnostics.String() = %q, want %q", got, want)
	}
	if ds.Count(UnusedRule) != 1 || ds.Count(UndefinedRule) != 0 {
		t.Error("Count() mismatch")
	}
}

func TestCodeString(t *testing.T) {
	tests := map[Code]string{
		UndefinedRule: "undefined-rule",
		UnusedRule:    "unused-rule",
		LeftRecursion: "left-recursion",
		Code(9):       "Code(9)",
	}
	for code, want := range tests {
		if got := code.String(); got != want {
			t.Errorf("Code(%d).String() = %q, want %q", int(code), got, want)
		}
	}
}
