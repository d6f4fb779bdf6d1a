// Package codegen renders a compiled matcher Program as Go source.
package codegen

import (
	"fmt"
	"strings"
)

// PegPath is the import path of the node and failure types the generated
// parser builds.
const PegPath = "github.com/eaburns/peggy/peg"

// Names used in generated code.
const (
	RecvName    = "p"
	BufferName  = "Buffer"
	PosName     = "pos"
	StackName   = "stack"
	ErrPosName  = "errPos"
	ErrRuleName = "errRule"
	WantName    = "want"
	ValueName   = "yy"
)

// Helper methods of the generated parser.
const (
	LeafName        = "leaf"
	MatchDotName    = "matchDot"
	MatchStringName = "matchString"
	MatchClassName  = "matchClass"
	PartialName     = "partial"
	CollectName     = "collect"
	ActName         = "act"
	TestName        = "test"
	RecoverName     = "recoverWith"
	EmptyName       = "empty"
	ExpectName      = "expect"
	FailName        = "fail"
	ErrorName       = "error"
)

// LabelName returns the goto label for a jump target.
func LabelName(id int) string {
	return fmt.Sprintf("l%d", id)
}

// SlotNames returns the position and depth variables of a save point.
func SlotNames(id int) (pos, depth string) {
	return fmt.Sprintf("pos%d", id), fmt.Sprintf("depth%d", id)
}

// RuleName returns the method matching rule index. The rule name is kept
// as a suffix so stack traces stay readable.
func RuleName(index int, rule string) string {
	return fmt.Sprintf("rule%d%s", index, UpperFirst(Identifier(rule)))
}

// ActionName returns the method holding the body of action index.
func ActionName(index int, action string) string {
	return fmt.Sprintf("action%d%s", index, UpperFirst(Identifier(action)))
}

// PredicateName returns the method evaluating predicate index.
func PredicateName(index int) string {
	return fmt.Sprintf("predicate%d", index)
}

// RecoveryName returns the method running recovery body index.
func RecoveryName(index int) string {
	return fmt.Sprintf("recover%d", index)
}

// ClassesName returns the class table variable of a parser type.
func ClassesName(parser string) string {
	return LowerFirst(parser) + "Classes"
}

// Identifier replaces every byte that cannot appear in a Go identifier
// with an underscore.
func Identifier(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return '_'
	}, s)
}

// LowerFirst converts the first character of a string to lowercase.
func LowerFirst(s string) string {
	if s == "" || s[0] < 'A' || s[0] > 'Z' {
		return s
	}
	return string(s[0]|0x20) + s[1:]
}

// UpperFirst converts the first character of a string to uppercase.
func UpperFirst(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]&^0x20) + s[1:]
}
