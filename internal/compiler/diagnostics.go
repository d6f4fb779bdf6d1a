package compiler

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/agnivade/levenshtein"
)

// ErrInternal marks a malformed IR: a node kind the generator or the
// analyzer does not know. It is never caused by a grammar mistake.
var ErrInternal = errors.New("internal error")

// Code classifies a grammar warning.
type Code int

const (
	UndefinedRule Code = iota + 1
	UnusedRule
	LeftRecursion
)

func (c Code) String() string {
	switch c {
	case UndefinedRule:
		return "undefined-rule"
	case UnusedRule:
		return "unused-rule"
	case LeftRecursion:
		return "left-recursion"
	}
	return fmt.Sprintf("Code(%d)", int(c))
}

// Diagnostic is a non-fatal grammar warning.
type Diagnostic struct {
	Code    Code
	Rule    string
	Message string
	Hint    string
}

func (d Diagnostic) String() string {
	if d.Hint != "" {
		return d.Message + " (" + d.Hint + ")"
	}
	return d.Message
}

// Diagnostics is the ordered list of warnings of one generation pass.
type Diagnostics []Diagnostic

// Has reports whether a diagnostic with code was reported for rule.
func (ds Diagnostics) Has(code Code, rule string) bool {
	for _, d := range ds {
		if d.Code == code && d.Rule == rule {
			return true
		}
	}
	return false
}

// Count returns how many diagnostics carry code.
func (ds Diagnostics) Count(code Code) int {
	n := 0
	for _, d := range ds {
		if d.Code == code {
			n++
		}
	}
	return n
}

func (ds Diagnostics) String() string {
	lines := make([]string, len(ds))
	for i, d := range ds {
		lines[i] = d.String()
	}
	return strings.Join(lines, "\n")
}

func undefinedRule(name string, candidates []string) Diagnostic {
	d := Diagnostic{
		Code:    UndefinedRule,
		Rule:    name,
		Message: fmt.Sprintf("rule '%s' used but not defined", name),
	}
	if near := closestStrings(3, name, candidates); len(near) > 0 {
		d.Hint = fmt.Sprintf("did you mean '%s'?", strings.Join(near, "', '"))
	}
	return d
}

func unusedRule(name string) Diagnostic {
	return Diagnostic{
		Code:    UnusedRule,
		Rule:    name,
		Message: fmt.Sprintf("rule '%s' defined but not used", name),
	}
}

func leftRecursion(name string) Diagnostic {
	return Diagnostic{
		Code:    LeftRecursion,
		Rule:    name,
		Message: fmt.Sprintf("possible infinite left recursion in rule '%s'", name),
	}
}

// closestStrings returns the candidates nearest to a whose edit distance is
// below minDistance.
func closestStrings(minDistance int, a string, candidates []string) []string {
	closest := []string{}
	for _, c := range candidates {
		if c == a {
			continue
		}
		d := levenshtein.ComputeDistance(a, c)
		switch {
		case d < minDistance:
			closest = []string{c}
			minDistance = d
		case d == minDistance && len(closest) > 0:
			closest = append(closest, c)
		}
	}
	slices.Sort(closest)
	return closest
}
